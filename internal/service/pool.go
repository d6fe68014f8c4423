package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/listenupapp/yearlist-server/internal/bridge"
	"github.com/listenupapp/yearlist-server/internal/domain"
	"github.com/listenupapp/yearlist-server/internal/metrics"
	"github.com/listenupapp/yearlist-server/internal/sse"
	"github.com/listenupapp/yearlist-server/internal/store"
)

// PoolService handles album contributions to pools.
// Deleting from a pool is a ranking command, see RankingService.
type PoolService struct {
	store  store.Store
	bridge *bridge.Bridge
	events *sse.Manager
	logger *slog.Logger
	now    func() time.Time
}

// NewPoolService creates a new pool service.
func NewPoolService(s store.Store, b *bridge.Bridge, events *sse.Manager, logger *slog.Logger) *PoolService {
	return &PoolService{
		store:  s,
		bridge: b,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// AddToPoolRequest contributes one album to a pool.
type AddToPoolRequest struct {
	GroupID  string          `json:"group_id,omitempty"`
	Year     int             `json:"year" validate:"year"`
	Category domain.Category `json:"category" validate:"required,category"`
	Album    AlbumInput      `json:"album"`
}

// AlbumInput is an album as picked from catalog search results.
type AlbumInput struct {
	ID          string `json:"id" validate:"required,max=128"`
	Title       string `json:"title" validate:"required,max=512"`
	Artist      string `json:"artist" validate:"required,max=512"`
	ReleaseYear int    `json:"release_year" validate:"gte=0"`
	CoverURL    string `json:"cover_url,omitempty" validate:"omitempty,url,max=2048"`
}

// AddToPool records userID as the contributor of an album. An album already
// in the pool is rejected with a duplicate error and its first contributor
// is kept.
func (s *PoolService) AddToPool(ctx context.Context, userID string, req AddToPoolRequest) (*domain.PoolEntry, error) {
	scope, group, err := resolveScope(ctx, s.store, userID, req.GroupID)
	if err != nil {
		return nil, err
	}
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	entry := domain.PoolEntry{
		Album: domain.Album{
			ID:          strings.TrimSpace(req.Album.ID),
			Title:       req.Album.Title,
			Artist:      req.Album.Artist,
			ReleaseYear: req.Album.ReleaseYear,
			CoverURL:    req.Album.CoverURL,
			Category:    req.Category,
		},
		AddedBy: userID,
		AddedAt: s.now(),
	}
	key := scope.PoolKey(req.Year, req.Category)

	if err := s.store.AddPoolEntry(ctx, key, entry); err != nil {
		if errors.Is(err, store.ErrDuplicateItem) {
			metrics.RecordPoolAdd("duplicate")
			return nil, err
		}
		metrics.RecordPoolAdd("error")
		return nil, fmt.Errorf("add pool entry: %w", err)
	}
	metrics.RecordPoolAdd("ok")

	s.bridge.PoolChanged(ctx, key)
	s.events.EmitToUsers(poolRecipients(scope, group), sse.NewPoolEntryAddedEvent(key.PoolID, entry))

	s.logger.Info("album added to pool",
		"pool", key.String(),
		"album_id", entry.AlbumID(),
		"user_id", userID,
	)
	return &entry, nil
}
