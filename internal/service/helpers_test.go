package service

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/listenupapp/yearlist-server/internal/auth"
	"github.com/listenupapp/yearlist-server/internal/bridge"
	"github.com/listenupapp/yearlist-server/internal/domain"
	"github.com/listenupapp/yearlist-server/internal/id"
	"github.com/listenupapp/yearlist-server/internal/ranking"
	"github.com/listenupapp/yearlist-server/internal/sse"
	"github.com/listenupapp/yearlist-server/internal/store/kv"
)

const testYear = 2024

// testEnv wires the services over a temporary Badger store.
type testEnv struct {
	store    *kv.Store
	events   *sse.Manager
	bridge   *bridge.Bridge
	registry *ranking.Registry

	auth      *AuthService
	groups    *GroupService
	pools     *PoolService
	rankings  *RankingService
	community *CommunityService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	s, err := kv.New(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	events := sse.NewManager(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go events.Start(ctx)

	b := bridge.New(s, logger)
	notifier := NewSyncNotifier(events, s, logger)
	b.SetNotifier(notifier)

	registry := ranking.NewRegistry(b, ranking.SessionOptions{
		OnWriteError: notifier.WriteFailed,
		Logger:       logger,
	}, time.Minute)
	t.Cleanup(func() {
		registry.Shutdown()
		cancel()
	})

	tokens, err := auth.NewTokenService(bytes.Repeat([]byte{7}, 32), 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)
	sessions := NewSessionService(s, tokens, logger)

	return &testEnv{
		store:     s,
		events:    events,
		bridge:    b,
		registry:  registry,
		auth:      NewAuthService(s, tokens, sessions, logger),
		groups:    NewGroupService(s, registry, events, logger),
		pools:     NewPoolService(s, b, events, logger),
		rankings:  NewRankingService(s, registry, logger),
		community: NewCommunityService(s, logger),
	}
}

// createUser stores a user directly, skipping password hashing.
func (e *testEnv) createUser(t *testing.T, name string) *domain.User {
	t.Helper()
	userID := id.MustGenerate("user")
	user := &domain.User{
		Syncable:    domain.Syncable{ID: userID},
		Email:       userID + "@example.com",
		DisplayName: name,
	}
	user.InitTimestamps()
	require.NoError(t, e.store.CreateUser(context.Background(), user))
	return user
}

// addAlbum contributes an album to a scope's pool.
func (e *testEnv) addAlbum(t *testing.T, userID, groupID string, category domain.Category, albumID string) {
	t.Helper()
	_, err := e.pools.AddToPool(context.Background(), userID, AddToPoolRequest{
		GroupID:  groupID,
		Year:     testYear,
		Category: category,
		Album: AlbumInput{
			ID:          albumID,
			Title:       "Title " + albumID,
			Artist:      "Artist " + albumID,
			ReleaseYear: testYear,
		},
	})
	require.NoError(t, err)
}

// connect opens an event stream for a user.
func (e *testEnv) connect(t *testing.T, userID string) *sse.Client {
	t.Helper()
	client, err := e.events.Connect(userID)
	require.NoError(t, err)
	return client
}

// nextEvent waits for the next event of type want, skipping others.
func nextEvent(t *testing.T, client *sse.Client, want sse.EventType) sse.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-client.EventChan:
			require.True(t, ok, "event stream closed")
			if ev.Type == want {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s event received", want)
		}
	}
}

func albumIDs(entries []domain.RankedEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.AlbumID
	}
	return out
}

func poolIDs(entries []domain.PoolEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.AlbumID()
	}
	return out
}
