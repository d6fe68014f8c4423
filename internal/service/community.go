package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/listenupapp/yearlist-server/internal/domain"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
	"github.com/listenupapp/yearlist-server/internal/store"
	"github.com/listenupapp/yearlist-server/internal/validation"
)

// communityFanOut bounds concurrent ranking reads.
const communityFanOut = 8

// CommunityService is a read-only view over everyone's rankings.
type CommunityService struct {
	store  store.Store
	logger *slog.Logger
}

// NewCommunityService creates a new community service.
func NewCommunityService(s store.Store, logger *slog.Logger) *CommunityService {
	return &CommunityService{store: s, logger: logger}
}

// CommunityRanking is one person's rankings for a year.
type CommunityRanking struct {
	UserID      string                                   `json:"user_id"`
	DisplayName string                                   `json:"display_name"`
	AvatarURL   string                                   `json:"avatar_url,omitempty"`
	UpdatedAt   time.Time                                `json:"updated_at,omitzero"`
	Rankings    map[domain.Category][]domain.RankedEntry `json:"rankings"`
}

// YearRankings returns every user's solo rankings for year, most recently
// updated first. Users who ranked nothing are left out.
func (s *CommunityService) YearRankings(ctx context.Context, userID string, year int) ([]CommunityRanking, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := checkYear(year); err != nil {
		return nil, err
	}

	scopes, err := s.store.ListRankingScopes(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("list ranking scopes: %w", err)
	}
	return s.collect(ctx, scopes, year)
}

// GroupRankings returns every member's rankings inside a group for year.
// Only members may read them.
func (s *CommunityService) GroupRankings(ctx context.Context, userID, groupID string, year int) ([]CommunityRanking, error) {
	if _, _, err := resolveScope(ctx, s.store, userID, groupID); err != nil {
		return nil, err
	}
	if err := checkYear(year); err != nil {
		return nil, err
	}

	scopes, err := s.store.ListGroupRankingScopes(ctx, groupID, year)
	if err != nil {
		return nil, fmt.Errorf("list group ranking scopes: %w", err)
	}
	return s.collect(ctx, scopes, year)
}

// collect loads both categories of every scope concurrently.
func (s *CommunityService) collect(ctx context.Context, scopes []*domain.RankingScope, year int) ([]CommunityRanking, error) {
	results := make([]CommunityRanking, len(scopes))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(communityFanOut)

	for i, meta := range scopes {
		g.Go(func() error {
			rankings := make(map[domain.Category][]domain.RankedEntry, len(domain.Categories))
			for _, c := range domain.Categories {
				key := domain.RankingKey{RankingID: meta.RankingID, Category: c, Year: year}
				seq, err := s.store.GetRanking(ctx, key)
				if err != nil {
					return fmt.Errorf("get ranking %s: %w", key, err)
				}
				rankings[c] = seq
			}

			results[i] = CommunityRanking{
				UserID:      meta.OwnerID,
				DisplayName: meta.DisplayName,
				AvatarURL:   meta.AvatarURL,
				UpdatedAt:   meta.UpdatedAt,
				Rankings:    rankings,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]CommunityRanking, 0, len(results))
	for _, r := range results {
		if len(r.Rankings[domain.CategoryFrench])+len(r.Rankings[domain.CategoryInternational]) > 0 {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b CommunityRanking) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})

	s.logger.Debug("community rankings collected", "year", year, "scopes", len(scopes), "non_empty", len(out))
	return out, nil
}

func checkYear(year int) error {
	if year < validation.MinYear || year > validation.MaxYear {
		return domainerrors.Validationf("year must be between %d and %d", validation.MinYear, validation.MaxYear)
	}
	return nil
}
