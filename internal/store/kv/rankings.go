package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/yearlist-server/internal/domain"
	"github.com/listenupapp/yearlist-server/internal/store"
)

func rankingKey(key domain.RankingKey) []byte {
	return []byte(rankingPrefix + key.String())
}

func rankingScopeYearPrefix(year int) string {
	return rankingScopePrefix + strconv.Itoa(year) + ":"
}

func rankingScopeKey(rankingID string, year int) []byte {
	return []byte(rankingScopeYearPrefix(year) + rankingID)
}

// GetRanking returns a ranked sequence, or an empty one if none is stored.
func (s *Store) GetRanking(_ context.Context, key domain.RankingKey) ([]domain.RankedEntry, error) {
	var seq []domain.RankedEntry
	err := s.get(rankingKey(key), &seq)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return []domain.RankedEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ranking %s: %w", key, err)
	}
	if seq == nil {
		seq = []domain.RankedEntry{}
	}
	return seq, nil
}

// ReplaceRanking stores seq as the whole ranked sequence, renumbered 1..N.
func (s *Store) ReplaceRanking(ctx context.Context, key domain.RankingKey, seq []domain.RankedEntry) error {
	prepared, err := store.PrepareRanking(seq)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.set(rankingKey(key), prepared)
}

// GetRankingScope returns the metadata of a ranking document.
func (s *Store) GetRankingScope(_ context.Context, rankingID string, year int) (*domain.RankingScope, error) {
	var scope domain.RankingScope
	err := s.get(rankingScopeKey(rankingID, year), &scope)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &scope, nil
}

// SaveRankingScope creates or replaces ranking metadata.
func (s *Store) SaveRankingScope(ctx context.Context, scope *domain.RankingScope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.set(rankingScopeKey(scope.RankingID, scope.Year), scope)
}

// ListRankingScopes returns the solo ranking documents of a year.
func (s *Store) ListRankingScopes(ctx context.Context, year int) ([]*domain.RankingScope, error) {
	return scanPrefix[*domain.RankingScope](ctx, s, rankingScopeYearPrefix(year)+domain.SoloScope("").RankingID())
}

// ListGroupRankingScopes returns the member ranking documents of a group for a year.
func (s *Store) ListGroupRankingScopes(ctx context.Context, groupID string, year int) ([]*domain.RankingScope, error) {
	return scanPrefix[*domain.RankingScope](ctx, s, rankingScopeYearPrefix(year)+store.GroupRankingPrefix(groupID))
}
