package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/listenupapp/yearlist-server/internal/domain"
	"github.com/listenupapp/yearlist-server/internal/store"
)

// GetRanking returns a ranked sequence, or an empty one if none is stored.
func (s *Store) GetRanking(ctx context.Context, key domain.RankingKey) ([]domain.RankedEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT album_id, rank, title, artist, release_year, cover_url
		FROM ranked_entries
		WHERE ranking_id = ? AND year = ? AND category = ?
		ORDER BY rank`,
		key.RankingID, key.Year, string(key.Category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seq := []domain.RankedEntry{}
	for rows.Next() {
		var e domain.RankedEntry
		var coverURL sql.NullString
		if err := rows.Scan(&e.AlbumID, &e.Rank, &e.Title, &e.Artist, &e.ReleaseYear, &coverURL); err != nil {
			return nil, err
		}
		e.CoverURL = coverURL.String
		seq = append(seq, e)
	}
	return seq, rows.Err()
}

// ReplaceRanking stores seq as the whole ranked sequence, renumbered 1..N.
func (s *Store) ReplaceRanking(ctx context.Context, key domain.RankingKey, seq []domain.RankedEntry) error {
	prepared, err := store.PrepareRanking(seq)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM ranked_entries WHERE ranking_id = ? AND year = ? AND category = ?`,
			key.RankingID, key.Year, string(key.Category),
		); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO ranked_entries (
				ranking_id, year, category, rank, album_id, title, artist, release_year, cover_url
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range prepared {
			if _, err := stmt.ExecContext(ctx,
				key.RankingID, key.Year, string(key.Category),
				e.Rank, e.AlbumID, e.Title, e.Artist, e.ReleaseYear, nullString(e.CoverURL),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

const rankingScopeColumns = `ranking_id, year, owner_id, group_id, display_name, avatar_url,
	updated_at, updated_by, origin, revision`

func scanRankingScope(scanner interface{ Scan(dest ...any) error }) (*domain.RankingScope, error) {
	var (
		rs        domain.RankingScope
		groupID   sql.NullString
		avatarURL sql.NullString
		updatedAt string
		origin    sql.NullString
		revision  int64
	)
	if err := scanner.Scan(
		&rs.RankingID,
		&rs.Year,
		&rs.OwnerID,
		&groupID,
		&rs.DisplayName,
		&avatarURL,
		&updatedAt,
		&rs.UpdatedBy,
		&origin,
		&revision,
	); err != nil {
		return nil, err
	}

	var err error
	if rs.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	rs.GroupID = groupID.String
	rs.AvatarURL = avatarURL.String
	rs.Origin = origin.String
	rs.Revision = uint64(revision)
	return &rs, nil
}

// GetRankingScope returns the metadata of a ranking document.
func (s *Store) GetRankingScope(ctx context.Context, rankingID string, year int) (*domain.RankingScope, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+rankingScopeColumns+` FROM ranking_scopes WHERE ranking_id = ? AND year = ?`,
		rankingID, year)

	rs, err := scanRankingScope(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return rs, err
}

// SaveRankingScope creates or replaces ranking metadata.
func (s *Store) SaveRankingScope(ctx context.Context, scope *domain.RankingScope) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ranking_scopes (`+rankingScopeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ranking_id, year) DO UPDATE SET
			owner_id = excluded.owner_id,
			group_id = excluded.group_id,
			display_name = excluded.display_name,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by,
			origin = excluded.origin,
			revision = excluded.revision`,
		scope.RankingID,
		scope.Year,
		scope.OwnerID,
		nullString(scope.GroupID),
		scope.DisplayName,
		nullString(scope.AvatarURL),
		formatTime(scope.UpdatedAt),
		scope.UpdatedBy,
		nullString(scope.Origin),
		int64(scope.Revision),
	)
	return err
}

// ListRankingScopes returns the solo ranking documents of a year.
func (s *Store) ListRankingScopes(ctx context.Context, year int) ([]*domain.RankingScope, error) {
	prefix := domain.SoloScope("").RankingID()
	return s.queryRankingScopes(ctx,
		`SELECT `+rankingScopeColumns+` FROM ranking_scopes
		WHERE year = ? AND `+hasPrefix("ranking_id")+` ORDER BY ranking_id`,
		year, prefix, prefix)
}

// ListGroupRankingScopes returns the member ranking documents of a group for a year.
func (s *Store) ListGroupRankingScopes(ctx context.Context, groupID string, year int) ([]*domain.RankingScope, error) {
	prefix := store.GroupRankingPrefix(groupID)
	return s.queryRankingScopes(ctx,
		`SELECT `+rankingScopeColumns+` FROM ranking_scopes
		WHERE year = ? AND `+hasPrefix("ranking_id")+` ORDER BY ranking_id`,
		year, prefix, prefix)
}

func (s *Store) queryRankingScopes(ctx context.Context, query string, args ...any) ([]*domain.RankingScope, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scopes []*domain.RankingScope
	for rows.Next() {
		rs, err := scanRankingScope(rows)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, rs)
	}
	return scopes, rows.Err()
}
