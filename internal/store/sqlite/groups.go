package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/listenupapp/yearlist-server/internal/domain"
	"github.com/listenupapp/yearlist-server/internal/store"
)

const groupColumns = `id, created_at, updated_at, name, code, owner_id`

func scanGroup(scanner interface{ Scan(dest ...any) error }) (*domain.Group, error) {
	var g domain.Group
	var createdAt, updatedAt string

	if err := scanner.Scan(&g.ID, &createdAt, &updatedAt, &g.Name, &g.Code, &g.OwnerID); err != nil {
		return nil, err
	}

	var err error
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if g.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateGroup inserts a group and its members.
// Returns store.ErrCodeTaken if the join code is in use.
func (s *Store) CreateGroup(ctx context.Context, group *domain.Group) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_groups (id, created_at, updated_at, name, code, owner_id)
			VALUES (?, ?, ?, ?, ?, ?)`,
			group.ID,
			formatTime(group.CreatedAt),
			formatTime(group.UpdatedAt),
			group.Name,
			normalizeCode(group.Code),
			group.OwnerID,
		)
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "code") {
				return store.ErrCodeTaken
			}
			return store.ErrAlreadyExists
		}
		if err != nil {
			return err
		}
		return insertMembers(ctx, tx, group)
	})
}

func insertMembers(ctx context.Context, tx *sql.Tx, group *domain.Group) error {
	for i, uid := range group.MemberIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id, position) VALUES (?, ?, ?)`,
			group.ID, uid, i,
		); err != nil {
			return fmt.Errorf("insert member %s: %w", uid, err)
		}
	}
	return nil
}

// GetGroup retrieves a group with its members.
func (s *Store) GetGroup(ctx context.Context, id string) (*domain.Group, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM user_groups WHERE id = ?`, id)
	return s.loadGroup(ctx, row)
}

// GetGroupByCode retrieves a group by join code, case-insensitively.
func (s *Store) GetGroupByCode(ctx context.Context, code string) (*domain.Group, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM user_groups WHERE code = ?`, normalizeCode(code))
	return s.loadGroup(ctx, row)
}

func (s *Store) loadGroup(ctx context.Context, row *sql.Row) (*domain.Group, error) {
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}

	if g.MemberIDs, err = s.groupMembers(ctx, g.ID); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Store) groupMembers(ctx context.Context, groupID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM group_members WHERE group_id = ? ORDER BY position`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		members = append(members, uid)
	}
	return members, rows.Err()
}

// UpdateGroup replaces a group's fields and its member list.
func (s *Store) UpdateGroup(ctx context.Context, group *domain.Group) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE user_groups SET updated_at = ?, name = ?, code = ?, owner_id = ?
			WHERE id = ?`,
			formatTime(group.UpdatedAt),
			group.Name,
			normalizeCode(group.Code),
			group.OwnerID,
			group.ID,
		)
		if isUniqueViolation(err) {
			return store.ErrCodeTaken
		}
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return store.ErrGroupNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = ?`, group.ID); err != nil {
			return err
		}
		return insertMembers(ctx, tx, group)
	})
}

// ListGroupsForUser returns every group the user belongs to.
func (s *Store) ListGroupsForUser(ctx context.Context, userID string) ([]*domain.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.created_at, g.updated_at, g.name, g.code, g.owner_id
		FROM user_groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = ?
		ORDER BY g.created_at, g.id`, userID)
	if err != nil {
		return nil, err
	}

	var groups []*domain.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		groups = append(groups, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, g := range groups {
		if g.MemberIDs, err = s.groupMembers(ctx, g.ID); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// DeleteGroup removes the group with its shared pools, every member ranking
// and the ranking metadata, in one transaction.
func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM user_groups WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return store.ErrGroupNotFound
		}

		poolID := domain.GroupScope(id, "").PoolID(0)
		if _, err := tx.ExecContext(ctx, `DELETE FROM pool_entries WHERE pool_id = ?`, poolID); err != nil {
			return fmt.Errorf("delete group pools: %w", err)
		}

		prefix := store.GroupRankingPrefix(id)
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM ranked_entries WHERE `+hasPrefix("ranking_id"), prefix, prefix); err != nil {
			return fmt.Errorf("delete group rankings: %w", err)
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM ranking_scopes WHERE `+hasPrefix("ranking_id"), prefix, prefix)
		return err
	})
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("group deleted", "group_id", id)
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// hasPrefix is a case-sensitive prefix predicate on column taking the
// prefix twice as arguments. LIKE folds ASCII case, so it cannot be used.
func hasPrefix(column string) string {
	return "substr(" + column + ", 1, length(?)) = ?"
}
