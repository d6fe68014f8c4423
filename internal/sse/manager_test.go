package sse

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/yearlist-server/internal/domain"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	t.Cleanup(cancel)
	return m
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev := <-c.EventChan:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return Event{}
	}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case ev := <-c.EventChan:
		t.Fatalf("unexpected event %s for %s", ev.Type, c.UserID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_FiltersByRecipient(t *testing.T) {
	m := newTestManager(t)

	alice, err := m.Connect("alice")
	require.NoError(t, err)
	bob, err := m.Connect("bob")
	require.NoError(t, err)
	carol, err := m.Connect("carol")
	require.NoError(t, err)
	assert.Equal(t, 3, m.ClientCount())

	key := domain.DocumentKey{Scope: domain.SoloScope("alice"), Year: 2024}
	m.EmitToUser("alice", NewWriteFailedEvent(key, "boom"))

	ev := receive(t, alice)
	assert.Equal(t, EventWriteFailed, ev.Type)
	assertNothing(t, bob)
	assertNothing(t, carol)

	entry := domain.PoolEntry{Album: domain.Album{ID: "a1"}, AddedBy: "alice"}
	m.EmitToUsers([]string{"alice", "bob"}, NewPoolEntryAddedEvent("group:g1", entry))

	assert.Equal(t, EventPoolEntryAdded, receive(t, alice).Type)
	assert.Equal(t, EventPoolEntryAdded, receive(t, bob).Type)
	assertNothing(t, carol)

	m.EmitToUsers(nil, NewGroupDeletedEvent("g1"))
	assertNothing(t, alice)
}

func TestManager_DisconnectClosesClient(t *testing.T) {
	m := newTestManager(t)

	c, err := m.Connect("alice")
	require.NoError(t, err)
	m.Disconnect(c.ID)
	m.Disconnect(c.ID) // second call is a no-op

	_, open := <-c.EventChan
	assert.False(t, open)
	assert.Equal(t, 0, m.ClientCount())
}

func TestManager_ShutdownDropsLateEvents(t *testing.T) {
	m := newTestManager(t)
	c, err := m.Connect("alice")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))
	require.NoError(t, m.Shutdown(ctx))

	m.EmitToUser("alice", NewGroupDeletedEvent("g1")) // must not panic

	select {
	case <-c.Done:
	case <-time.After(time.Second):
		t.Fatal("client not closed on shutdown")
	}
}

func TestHandler_RequiresUser(t *testing.T) {
	m := newTestManager(t)
	h := NewHandler(m, func(context.Context) (string, error) { return "", assert.AnError }, slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sync/stream", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_StreamsUserEvents(t *testing.T) {
	m := newTestManager(t)
	h := NewHandler(m, func(context.Context) (string, error) { return "alice", nil }, slog.New(slog.DiscardHandler))

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Wait for registration before emitting.
	require.Eventually(t, func() bool { return m.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	m.EmitToUser("alice", NewGroupMemberJoinedEvent("g1", "bob", "Bob"))

	buf := make([]byte, 4096)
	var got strings.Builder
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !strings.Contains(got.String(), "group.member_joined") {
		n, err := resp.Body.Read(buf)
		got.Write(buf[:n])
		if err != nil {
			break
		}
	}
	assert.Contains(t, got.String(), "event: connected")
	assert.Contains(t, got.String(), "event: group.member_joined")
	assert.Contains(t, got.String(), `"user_id":"bob"`)
}
