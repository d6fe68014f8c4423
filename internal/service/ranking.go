package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/listenupapp/yearlist-server/internal/domain"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
	"github.com/listenupapp/yearlist-server/internal/ranking"
	"github.com/listenupapp/yearlist-server/internal/store"
)

// RankingService routes engine commands to the session owning a document.
type RankingService struct {
	store    store.Store
	registry *ranking.Registry
	logger   *slog.Logger
}

// NewRankingService creates a new ranking service.
func NewRankingService(s store.Store, registry *ranking.Registry, logger *slog.Logger) *RankingService {
	return &RankingService{store: s, registry: registry, logger: logger}
}

// DocumentRef addresses a document as seen by the signed-in user.
type DocumentRef struct {
	GroupID string
	Year    int
}

// Board returns the current state of a document.
func (s *RankingService) Board(ctx context.Context, userID string, ref DocumentRef) (*ranking.Snapshot, error) {
	session, err := s.session(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	snap, err := session.Sync(ctx)
	if errors.Is(err, ranking.ErrSessionClosed) {
		if session, err = s.session(ctx, userID, ref); err != nil {
			return nil, err
		}
		return session.Sync(ctx)
	}
	return snap, err
}

// Apply runs one engine command and returns the resulting state. The change
// is persisted in the background; a failed write is reported over the
// event stream while the returned state stays in effect.
func (s *RankingService) Apply(ctx context.Context, userID string, ref DocumentRef, cmd ranking.Command) (*ranking.Snapshot, error) {
	if !cmd.Category.Valid() {
		return nil, domainerrors.Validationf("unknown category %q", cmd.Category)
	}
	if cmd.AlbumID == "" {
		return nil, domainerrors.Validation("album_id is required")
	}

	session, err := s.session(ctx, userID, ref)
	if err != nil {
		return nil, err
	}

	snap, err := session.Do(ctx, cmd)
	if errors.Is(err, ranking.ErrSessionClosed) {
		// Swept or closed after lookup; the registry opens a fresh one.
		if session, err = s.session(ctx, userID, ref); err != nil {
			return nil, err
		}
		snap, err = session.Do(ctx, cmd)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Debug("ranking command applied",
		"document", session.Key().String(),
		"command", cmd.Kind,
		"album_id", cmd.AlbumID,
	)
	return snap, nil
}

func (s *RankingService) session(ctx context.Context, userID string, ref DocumentRef) (*ranking.Session, error) {
	if err := checkYear(ref.Year); err != nil {
		return nil, err
	}
	scope, _, err := resolveScope(ctx, s.store, userID, ref.GroupID)
	if err != nil {
		return nil, err
	}

	session, err := s.registry.Session(domain.DocumentKey{Scope: scope, Year: ref.Year})
	if err != nil {
		return nil, fmt.Errorf("open ranking session: %w", err)
	}
	return session, nil
}
