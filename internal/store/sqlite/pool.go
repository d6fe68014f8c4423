package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/listenupapp/yearlist-server/internal/domain"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
	"github.com/listenupapp/yearlist-server/internal/store"
)

// AddPoolEntry inserts an album into a pool set.
// The primary key rejects a second row for the same album, so concurrent
// adds resolve to the first committed writer and the rest get ErrDuplicateItem.
func (s *Store) AddPoolEntry(ctx context.Context, key domain.PoolKey, entry domain.PoolEntry) error {
	if entry.AlbumID() == "" {
		return domainerrors.Validation("album id is required")
	}

	a := entry.Album
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pool_entries (
			pool_id, category, album_id, title, artist, release_year, cover_url, added_by, added_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key.PoolID,
		string(key.Category),
		a.ID,
		a.Title,
		a.Artist,
		a.ReleaseYear,
		nullString(a.CoverURL),
		entry.AddedBy,
		formatTime(entry.AddedAt),
	)
	if isUniqueViolation(err) {
		return domainerrors.DuplicateItemf("album %s is already in the pool", a.ID)
	}
	return err
}

// RemovePoolEntry deletes an album from a pool set.
func (s *Store) RemovePoolEntry(ctx context.Context, key domain.PoolKey, albumID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM pool_entries WHERE pool_id = ? AND category = ? AND album_id = ?`,
		key.PoolID, string(key.Category), albumID)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrPoolEntryNotFound
	}
	return nil
}

// ListPool returns every entry of a pool set, oldest first.
func (s *Store) ListPool(ctx context.Context, key domain.PoolKey) ([]domain.PoolEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, album_id, title, artist, release_year, cover_url, added_by, added_at
		FROM pool_entries
		WHERE pool_id = ? AND category = ?
		ORDER BY added_at, album_id`,
		key.PoolID, string(key.Category))
	if err != nil {
		return nil, fmt.Errorf("list pool %s: %w", key, err)
	}
	defer rows.Close()

	entries := []domain.PoolEntry{}
	for rows.Next() {
		var (
			e        domain.PoolEntry
			category string
			coverURL sql.NullString
			addedAt  string
		)
		if err := rows.Scan(
			&category,
			&e.Album.ID,
			&e.Album.Title,
			&e.Album.Artist,
			&e.Album.ReleaseYear,
			&coverURL,
			&e.AddedBy,
			&addedAt,
		); err != nil {
			return nil, err
		}
		e.Album.Category = domain.Category(category)
		e.Album.CoverURL = coverURL.String
		if e.AddedAt, err = parseTime(addedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeletePoolScope removes every category of a pool scope.
func (s *Store) DeletePoolScope(ctx context.Context, poolID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pool_entries WHERE pool_id = ?`, poolID)
	return err
}
