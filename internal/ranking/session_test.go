package ranking

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/yearlist-server/internal/domain"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
)

// fakeMirror is an in-memory Mirror that records persisted updates and lets
// tests push remote snapshots.
type fakeMirror struct {
	mu        sync.Mutex
	initial   *Snapshot
	subs      map[domain.DocumentKey]func(*Snapshot)
	persisted []PartialUpdate
	failWith  error
	block     chan struct{}
}

func newFakeMirror(initial *Snapshot) *fakeMirror {
	return &fakeMirror{
		initial: initial,
		subs:    make(map[domain.DocumentKey]func(*Snapshot)),
	}
}

func (m *fakeMirror) Subscribe(key domain.DocumentKey, fn func(*Snapshot)) func() {
	m.mu.Lock()
	m.subs[key] = fn
	initial := m.initial
	m.mu.Unlock()

	fn(initial)

	return func() {
		m.mu.Lock()
		delete(m.subs, key)
		m.mu.Unlock()
	}
}

func (m *fakeMirror) Persist(_ context.Context, u PartialUpdate) error {
	m.mu.Lock()
	block := m.block
	m.mu.Unlock()
	if block != nil {
		<-block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.persisted = append(m.persisted, u)
	return nil
}

func (m *fakeMirror) push(key domain.DocumentKey, snap *Snapshot) {
	m.mu.Lock()
	fn := m.subs[key]
	m.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

func (m *fakeMirror) updates() []PartialUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PartialUpdate(nil), m.persisted...)
}

func (m *fakeMirror) subscribed(key domain.DocumentKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.subs[key]
	return ok
}

var testKey = domain.DocumentKey{Scope: domain.SoloScope("user-1"), Year: 2024}

func seededSnapshot(pooled []string, ranked ...string) *Snapshot {
	snap := EmptySnapshot(testKey)
	snap.Boards[domain.CategoryFrench] = boardWith(pooled, ranked...)
	snap.Origin = "remote-writer"
	snap.Revision = 7
	return snap
}

func TestSession_NilInitialSnapshotIsEmpty(t *testing.T) {
	s := NewSession(testKey, newFakeMirror(nil), SessionOptions{})
	defer s.Close()

	snap, err := s.Sync(context.Background())
	require.NoError(t, err)

	for _, c := range domain.Categories {
		assert.Empty(t, snap.Board(c).Pool)
		assert.Empty(t, snap.Board(c).Ranked)
	}
}

func TestSession_AppliesInitialSnapshotBeforeCommands(t *testing.T) {
	mirror := newFakeMirror(seededSnapshot([]string{"A", "B"}))
	s := NewSession(testKey, mirror, SessionOptions{})
	defer s.Close()

	snap, err := s.Do(context.Background(), Command{Kind: CmdPromote, Category: domain.CategoryFrench, AlbumID: "B"})
	require.NoError(t, err)

	assert.Equal(t, []string{"B"}, rankedIDs(snap.Board(domain.CategoryFrench)))
	assert.Equal(t, s.Origin(), snap.Origin)
	assert.Equal(t, uint64(1), snap.Revision)
}

func TestSession_PersistsPartialUpdateInOrder(t *testing.T) {
	mirror := newFakeMirror(seededSnapshot([]string{"A", "B", "C"}))
	s := NewSession(testKey, mirror, SessionOptions{})
	ctx := context.Background()

	for _, id := range []string{"A", "B", "C"} {
		_, err := s.Do(ctx, Command{Kind: CmdPromote, Category: domain.CategoryFrench, AlbumID: id})
		require.NoError(t, err)
	}
	_, err := s.Do(ctx, Command{Kind: CmdRemovePooled, Category: domain.CategoryFrench, AlbumID: "A"})
	require.NoError(t, err)

	s.Close() // waits for pending writes

	updates := mirror.updates()
	require.Len(t, updates, 4)
	for i, u := range updates {
		assert.Equal(t, uint64(i+1), u.Revision)
		assert.Equal(t, s.Origin(), u.Origin)
		assert.Equal(t, "user-1", u.Actor)
	}

	// Only the touched category is written.
	assert.Len(t, updates[2].Ranked, 1)
	assert.Len(t, updates[2].Ranked[domain.CategoryFrench], 3)
	assert.NotContains(t, updates[2].Ranked, domain.CategoryInternational)

	// Pool removal carries no ranked field.
	assert.Nil(t, updates[3].Ranked)
	assert.Equal(t, []string{"A"}, updates[3].PoolRemovals[domain.CategoryFrench])
}

func TestSession_NoopAndFailedCommandsAreNotPersisted(t *testing.T) {
	mirror := newFakeMirror(seededSnapshot([]string{"A", "B"}, "A", "B"))
	s := NewSession(testKey, mirror, SessionOptions{})
	ctx := context.Background()

	_, err := s.Do(ctx, Command{Kind: CmdReorder, Category: domain.CategoryFrench, AlbumID: "A", Target: 0})
	require.NoError(t, err)

	_, err = s.Do(ctx, Command{Kind: CmdDemote, Category: domain.CategoryFrench, AlbumID: "Z"})
	assert.ErrorIs(t, err, domainerrors.ErrNotRanked)

	s.Close()

	assert.Empty(t, mirror.updates())
}

func TestSession_RejectsUnknownCategory(t *testing.T) {
	s := NewSession(testKey, newFakeMirror(nil), SessionOptions{})
	defer s.Close()

	_, err := s.Do(context.Background(), Command{Kind: CmdPromote, Category: "jazz", AlbumID: "A"})

	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestSession_RemoteSnapshotOverwrites(t *testing.T) {
	mirror := newFakeMirror(seededSnapshot([]string{"A", "B"}))
	s := NewSession(testKey, mirror, SessionOptions{})
	defer s.Close()
	ctx := context.Background()

	_, err := s.Do(ctx, Command{Kind: CmdPromote, Category: domain.CategoryFrench, AlbumID: "A"})
	require.NoError(t, err)

	// Another writer's snapshot wins even over an unacknowledged local change.
	remote := seededSnapshot([]string{"A", "B"}, "B")
	remote.Origin = "other-device"
	remote.Revision = 1
	mirror.push(testKey, remote)

	snap, err := s.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, rankedIDs(snap.Board(domain.CategoryFrench)))
	assert.Equal(t, "other-device", snap.Origin)
}

func TestSession_EchoKeepsLocalRankedButTakesPool(t *testing.T) {
	mirror := newFakeMirror(seededSnapshot([]string{"A", "B"}))
	s := NewSession(testKey, mirror, SessionOptions{})
	defer s.Close()
	ctx := context.Background()

	_, err := s.Do(ctx, Command{Kind: CmdPromote, Category: domain.CategoryFrench, AlbumID: "A"})
	require.NoError(t, err)
	_, err = s.Do(ctx, Command{Kind: CmdPromote, Category: domain.CategoryFrench, AlbumID: "B"})
	require.NoError(t, err)

	// Echo of revision 1 arrives after revision 2 was applied locally, with a
	// new pool row contributed by someone else.
	echo := seededSnapshot([]string{"A", "B", "C"}, "A")
	echo.Origin = s.Origin()
	echo.Revision = 1
	mirror.push(testKey, echo)

	snap, err := s.Sync(ctx)
	require.NoError(t, err)

	board := snap.Board(domain.CategoryFrench)
	assert.Equal(t, []string{"A", "B"}, rankedIDs(board))
	assert.Equal(t, []string{"C"}, visibleIDs(board))
}

func TestSession_LatestEchoRepairsOverwrittenState(t *testing.T) {
	mirror := newFakeMirror(seededSnapshot([]string{"A", "B"}))
	s := NewSession(testKey, mirror, SessionOptions{})
	defer s.Close()
	ctx := context.Background()

	_, err := s.Do(ctx, Command{Kind: CmdPromote, Category: domain.CategoryFrench, AlbumID: "A"})
	require.NoError(t, err)

	// A foreign snapshot taken before our write landed wipes the optimistic
	// change, then the echo of that write arrives.
	mirror.push(testKey, seededSnapshot([]string{"A", "B"}))
	snap, err := s.Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, rankedIDs(snap.Board(domain.CategoryFrench)))

	echo := seededSnapshot([]string{"A", "B"}, "A")
	echo.Origin = s.Origin()
	echo.Revision = 1
	mirror.push(testKey, echo)

	snap, err = s.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, rankedIDs(snap.Board(domain.CategoryFrench)))
	assert.Equal(t, []string{"B"}, visibleIDs(snap.Board(domain.CategoryFrench)))
}

func TestSession_WriteErrorKeepsOptimisticState(t *testing.T) {
	mirror := newFakeMirror(seededSnapshot([]string{"A"}))
	mirror.failWith = errors.New("network down")

	var (
		mu       sync.Mutex
		notified []error
		actors   []string
	)
	s := NewSession(testKey, mirror, SessionOptions{
		OnWriteError: func(key domain.DocumentKey, actor string, err error) {
			mu.Lock()
			defer mu.Unlock()
			notified = append(notified, err)
			actors = append(actors, actor)
		},
	})

	snap, err := s.Do(context.Background(), Command{Kind: CmdPromote, Category: domain.CategoryFrench, AlbumID: "A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, rankedIDs(snap.Board(domain.CategoryFrench)))

	s.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, notified, 1)
	assert.ErrorIs(t, notified[0], domainerrors.ErrWriteError)
	assert.Equal(t, []string{"user-1"}, actors)
	assert.Equal(t, []string{"A"}, rankedIDs(s.Snapshot().Board(domain.CategoryFrench)))
}

func TestSession_DoesNotBlockOnSlowPersist(t *testing.T) {
	mirror := newFakeMirror(seededSnapshot([]string{"A", "B"}))
	mirror.block = make(chan struct{})
	s := NewSession(testKey, mirror, SessionOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := s.Do(ctx, Command{Kind: CmdPromote, Category: domain.CategoryFrench, AlbumID: "A"})
	require.NoError(t, err)
	_, err = s.Do(ctx, Command{Kind: CmdPromote, Category: domain.CategoryFrench, AlbumID: "B"})
	require.NoError(t, err)

	close(mirror.block)
	s.Close()

	assert.Len(t, mirror.updates(), 2)
}

func TestSession_CloseUnsubscribesAndRefusesCommands(t *testing.T) {
	mirror := newFakeMirror(nil)
	s := NewSession(testKey, mirror, SessionOptions{})
	require.True(t, mirror.subscribed(testKey))

	s.Close()
	s.Close() // idempotent

	assert.False(t, mirror.subscribed(testKey))
	_, err := s.Do(context.Background(), Command{Kind: CmdPromote, Category: domain.CategoryFrench, AlbumID: "A"})
	assert.ErrorIs(t, err, ErrSessionClosed)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeSessionClosed, domainErr.Code)
	assert.Equal(t, http.StatusServiceUnavailable, domainErr.HTTPStatus())
}

func TestRegistry_ReusesAndSweeps(t *testing.T) {
	mirror := newFakeMirror(nil)
	r := NewRegistry(mirror, SessionOptions{}, time.Minute)
	defer r.Shutdown()

	a, err := r.Session(testKey)
	require.NoError(t, err)
	b, err := r.Session(testKey)
	require.NoError(t, err)
	assert.Same(t, a, b)

	groupKey := domain.DocumentKey{Scope: domain.GroupScope("group-1", "user-1"), Year: 2024}
	_, err = r.Session(groupKey)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())

	assert.Equal(t, 1, r.CloseGroup("group-1"))
	assert.Equal(t, 1, r.Len())

	_, err = r.Session(groupKey)
	require.NoError(t, err)
	assert.Equal(t, 1, r.CloseScope(groupKey.Scope))
	assert.Equal(t, 0, r.CloseScope(groupKey.Scope))
	assert.Equal(t, 1, r.Len())

	assert.Equal(t, 0, r.Sweep(time.Now()))
	assert.Equal(t, 1, r.Sweep(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_ShutdownRefusesNewSessions(t *testing.T) {
	r := NewRegistry(newFakeMirror(nil), SessionOptions{}, time.Minute)
	r.Shutdown()

	_, err := r.Session(testKey)

	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestQueue_FIFO(t *testing.T) {
	q := newQueue[int]()
	for i := range 5 {
		assert.True(t, q.Enqueue(i))
	}
	assert.Equal(t, 5, q.Len())

	for i := range 5 {
		v, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok)

	closed := newQueue[int]()
	closed.Close()
	assert.False(t, closed.Enqueue(9))
	_, open := <-closed.Wait()
	assert.False(t, open)
}

func TestRegistry_ReplacesClosedSession(t *testing.T) {
	r := NewRegistry(newFakeMirror(nil), SessionOptions{}, time.Minute)
	defer r.Shutdown()

	stale, err := r.Session(testKey)
	require.NoError(t, err)
	stale.Close()

	fresh, err := r.Session(testKey)
	require.NoError(t, err)
	assert.NotSame(t, stale, fresh)
	assert.Equal(t, 1, r.Len())

	_, err = fresh.Do(context.Background(), Command{Kind: CmdPromote, Category: domain.CategoryFrench, AlbumID: "A"})
	assert.ErrorIs(t, err, domainerrors.ErrNotInPool)
}

// gatedMirror holds Subscribe for one key until gate is closed.
type gatedMirror struct {
	gated domain.DocumentKey
	gate  chan struct{}

	mu           sync.Mutex
	waiting      int
	unsubscribed int
}

func (m *gatedMirror) Subscribe(key domain.DocumentKey, fn func(*Snapshot)) func() {
	if key == m.gated {
		m.mu.Lock()
		m.waiting++
		m.mu.Unlock()
		<-m.gate
	}
	fn(nil)
	return func() {
		m.mu.Lock()
		m.unsubscribed++
		m.mu.Unlock()
	}
}

func (m *gatedMirror) Persist(context.Context, PartialUpdate) error { return nil }

func (m *gatedMirror) counts() (waiting, unsubscribed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waiting, m.unsubscribed
}

func TestRegistry_SlowOpenDoesNotBlockOtherDocuments(t *testing.T) {
	mirror := &gatedMirror{gated: testKey, gate: make(chan struct{})}
	r := NewRegistry(mirror, SessionOptions{}, time.Minute)
	defer r.Shutdown()

	opened := make(chan *Session, 2)
	for range 2 {
		go func() {
			s, err := r.Session(testKey)
			assert.NoError(t, err)
			opened <- s
		}()
	}
	require.Eventually(t, func() bool {
		waiting, _ := mirror.counts()
		return waiting == 2
	}, 2*time.Second, 5*time.Millisecond)

	// Both opens of testKey are parked in Subscribe; another document still opens.
	other := domain.DocumentKey{Scope: domain.SoloScope("user-2"), Year: 2024}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := r.Session(other)
		assert.NoError(t, err)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("opening another document waited on a slow load")
	}

	close(mirror.gate)
	a, b := <-opened, <-opened
	assert.Same(t, a, b)
	assert.Equal(t, 2, r.Len())

	_, unsubscribed := mirror.counts()
	assert.Equal(t, 1, unsubscribed, "the losing session is closed")
}
