package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/yearlist-server/internal/domain"
	"github.com/listenupapp/yearlist-server/internal/store"
)

// initGroups initializes the Groups entity.
// Join codes are unique and matched case-insensitively; the member index
// holds one "{userID}:{groupID}" entry per membership.
func (s *Store) initGroups() {
	s.Groups = NewEntity[domain.Group](s, groupPrefix).
		WithNotFound(store.ErrGroupNotFound).
		WithIndexTransform("code",
			func(g *domain.Group) []string {
				return []string{normalizeCode(g.Code)}
			},
			normalizeCode,
		).
		WithIndex("member", func(g *domain.Group) []string {
			keys := make([]string, len(g.MemberIDs))
			for i, uid := range g.MemberIDs {
				keys[i] = uid + ":" + g.ID
			}
			return keys
		})
}

// CreateGroup creates a new group. A colliding join code returns ErrCodeTaken.
func (s *Store) CreateGroup(ctx context.Context, group *domain.Group) error {
	err := s.Groups.Create(ctx, group.ID, group)
	if errors.Is(err, store.ErrAlreadyExists) {
		return store.ErrCodeTaken
	}
	return err
}

// GetGroup retrieves a group by ID.
func (s *Store) GetGroup(ctx context.Context, id string) (*domain.Group, error) {
	return s.Groups.Get(ctx, id)
}

// GetGroupByCode retrieves a group by its join code.
func (s *Store) GetGroupByCode(ctx context.Context, code string) (*domain.Group, error) {
	return s.Groups.GetByIndex(ctx, "code", code)
}

// UpdateGroup replaces a group and rewrites its membership index.
func (s *Store) UpdateGroup(ctx context.Context, group *domain.Group) error {
	err := s.Groups.Update(ctx, group.ID, group)
	if errors.Is(err, store.ErrAlreadyExists) {
		return store.ErrCodeTaken
	}
	return err
}

// ListGroupsForUser returns every group the user belongs to.
func (s *Store) ListGroupsForUser(ctx context.Context, userID string) ([]*domain.Group, error) {
	return s.Groups.ListByIndexPrefix(ctx, "member", userID+":")
}

// DeleteGroup removes the group with its shared pools, every member ranking
// and the ranking metadata, in one transaction.
func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	if _, err := s.Groups.Get(ctx, id); err != nil {
		return err
	}

	err := s.update(ctx, func(txn *badger.Txn) error {
		if err := s.Groups.deleteInTxn(txn, id); err != nil {
			return err
		}
		if err := deletePrefixInTxn(txn, []byte(poolPrefix+domain.GroupScope(id, "").PoolID(0)+":")); err != nil {
			return fmt.Errorf("delete group pools: %w", err)
		}
		if err := deletePrefixInTxn(txn, []byte(rankingPrefix+store.GroupRankingPrefix(id))); err != nil {
			return fmt.Errorf("delete group rankings: %w", err)
		}
		return deleteMemberScopesInTxn(txn, id)
	})
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("group deleted", "group_id", id)
	}
	return nil
}

// deleteMemberScopesInTxn removes ranking metadata for every member of a group
// across all years. Keys are rankscope:{year}:{rankingID}.
func deleteMemberScopesInTxn(txn *badger.Txn, groupID string) error {
	prefix := []byte(rankingScopePrefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false

	it := txn.NewIterator(opts)
	var doomed [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().KeyCopy(nil)
		rest := strings.TrimPrefix(string(key), rankingScopePrefix)
		_, rankingID, ok := strings.Cut(rest, ":")
		if ok && store.IsMemberRanking(rankingID, groupID) {
			doomed = append(doomed, key)
		}
	}
	it.Close()

	for _, key := range doomed {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
