package bridge

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/yearlist-server/internal/domain"
	"github.com/listenupapp/yearlist-server/internal/ranking"
	"github.com/listenupapp/yearlist-server/internal/store"
	"github.com/listenupapp/yearlist-server/internal/store/kv"
	"github.com/listenupapp/yearlist-server/internal/store/storetest"
)

const year = 2024

type removal struct {
	key     domain.PoolKey
	albumID string
	actor   string
}

type recordingNotifier struct {
	mu        sync.Mutex
	published []domain.DocumentKey
	removed   []removal
}

func (n *recordingNotifier) SnapshotPublished(key domain.DocumentKey, _ *ranking.Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, key)
}

func (n *recordingNotifier) PoolEntryRemoved(key domain.PoolKey, albumID, actor string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.removed = append(n.removed, removal{key, albumID, actor})
}

func (n *recordingNotifier) removals() []removal {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]removal(nil), n.removed...)
}

func setup(t *testing.T) (*Bridge, store.Store, *recordingNotifier) {
	t.Helper()
	s, err := kv.New(t.TempDir(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	b := New(s, nil)
	n := &recordingNotifier{}
	b.SetNotifier(n)
	return b, s, n
}

func openSession(t *testing.T, b *Bridge, key domain.DocumentKey) *ranking.Session {
	t.Helper()
	sess := ranking.NewSession(key, b, ranking.SessionOptions{})
	t.Cleanup(sess.Close)
	return sess
}

func addToPool(t *testing.T, s store.Store, key domain.PoolKey, albumIDs ...string) {
	t.Helper()
	for i, id := range albumIDs {
		e := storetest.NewEntry(id, "u1")
		e.AddedAt = time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC)
		require.NoError(t, s.AddPoolEntry(context.Background(), key, e))
	}
}

func rankedIDs(seq []domain.RankedEntry) []string {
	out := make([]string, len(seq))
	for i, e := range seq {
		out[i] = e.AlbumID
	}
	return out
}

func poolIDs(pool []domain.PoolEntry) []string {
	out := make([]string, len(pool))
	for i, e := range pool {
		out[i] = e.AlbumID()
	}
	return out
}

func TestSubscribe_DeliversNilForEmptyDocument(t *testing.T) {
	b, _, _ := setup(t)
	key := domain.DocumentKey{Scope: domain.SoloScope("u1"), Year: year}

	var got []*ranking.Snapshot
	unsubscribe := b.Subscribe(key, func(s *ranking.Snapshot) { got = append(got, s) })
	require.Len(t, got, 1)
	assert.Nil(t, got[0])

	assert.True(t, b.Subscribed(key))
	unsubscribe()
	unsubscribe()
	assert.False(t, b.Subscribed(key))

	b.Publish(context.Background(), key)
	assert.Len(t, got, 1, "no delivery after unsubscribe")
}

func TestLoad_SortsPoolAndReadsMetadata(t *testing.T) {
	b, s, _ := setup(t)
	ctx := context.Background()
	scope := domain.SoloScope("u1")
	key := domain.DocumentKey{Scope: scope, Year: year}

	addToPool(t, s, scope.PoolKey(year, domain.CategoryFrench), "z", "a", "m")
	require.NoError(t, s.SaveRankingScope(ctx, &domain.RankingScope{
		RankingID: scope.RankingID(), Year: year, Origin: "o1", Revision: 4,
	}))

	snap, err := b.Load(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, []string{"z", "a", "m"}, poolIDs(snap.Board(domain.CategoryFrench).Pool), "contribution order")
	assert.Empty(t, snap.Board(domain.CategoryInternational).Pool)
	assert.Equal(t, "o1", snap.Origin)
	assert.Equal(t, uint64(4), snap.Revision)
}

func TestPersist_MergesOnlyPresentFields(t *testing.T) {
	b, s, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, storetest.NewUser("u1", "u1@example.com")))

	scope := domain.SoloScope("u1")
	key := domain.DocumentKey{Scope: scope, Year: year}
	french := []domain.RankedEntry{{AlbumID: "f1", Title: "F"}, {AlbumID: "f2", Title: "G"}}
	require.NoError(t, s.ReplaceRanking(ctx, scope.RankingKey(year, domain.CategoryFrench), french))

	err := b.Persist(ctx, ranking.PartialUpdate{
		Key:      key,
		Origin:   "writer-1",
		Revision: 9,
		Actor:    "u1",
		Ranked: map[domain.Category][]domain.RankedEntry{
			domain.CategoryInternational: {{AlbumID: "i1", Title: "I"}},
		},
	})
	require.NoError(t, err)

	intl, err := s.GetRanking(ctx, scope.RankingKey(year, domain.CategoryInternational))
	require.NoError(t, err)
	assert.Equal(t, []string{"i1"}, rankedIDs(intl))
	assert.Equal(t, 1, intl[0].Rank)

	kept, err := s.GetRanking(ctx, scope.RankingKey(year, domain.CategoryFrench))
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2"}, rankedIDs(kept), "untouched category survives")

	meta, err := s.GetRankingScope(ctx, scope.RankingID(), year)
	require.NoError(t, err)
	assert.Equal(t, "User u1", meta.DisplayName)
	assert.Equal(t, "u1", meta.OwnerID)
	assert.Equal(t, "u1", meta.UpdatedBy)
	assert.Equal(t, "writer-1", meta.Origin)
	assert.Equal(t, uint64(9), meta.Revision)
	assert.False(t, meta.UpdatedAt.IsZero())
}

func TestPersist_DuplicateRankIsRejected(t *testing.T) {
	b, _, _ := setup(t)
	key := domain.DocumentKey{Scope: domain.SoloScope("u1"), Year: year}

	err := b.Persist(context.Background(), ranking.PartialUpdate{
		Key: key,
		Ranked: map[domain.Category][]domain.RankedEntry{
			domain.CategoryFrench: {{AlbumID: "a"}, {AlbumID: "a"}},
		},
	})
	assert.ErrorIs(t, err, store.ErrDuplicateRank)
}

func TestSession_PersistsThroughBridge(t *testing.T) {
	b, s, _ := setup(t)
	ctx := context.Background()
	scope := domain.SoloScope("u1")
	key := domain.DocumentKey{Scope: scope, Year: year}
	addToPool(t, s, scope.PoolKey(year, domain.CategoryInternational), "a", "b", "c")

	sess := openSession(t, b, key)
	snap, err := sess.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, poolIDs(snap.Board(domain.CategoryInternational).Pool))

	for _, id := range []string{"b", "a"} {
		_, err := sess.Do(ctx, ranking.Command{Kind: ranking.CmdPromote, Category: domain.CategoryInternational, AlbumID: id})
		require.NoError(t, err)
	}

	rk := scope.RankingKey(year, domain.CategoryInternational)
	require.Eventually(t, func() bool {
		seq, err := s.GetRanking(ctx, rk)
		return err == nil && len(seq) == 2
	}, 2*time.Second, 10*time.Millisecond)

	seq, err := s.GetRanking(ctx, rk)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, rankedIDs(seq))
	assert.Equal(t, "Title b", seq[0].Title)

	// Echoes of our own writes never roll the ranked list back.
	snap, err = sess.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, rankedIDs(snap.Board(domain.CategoryInternational).Ranked))
	assert.Equal(t, []domain.PoolEntry{snap.Board(domain.CategoryInternational).Pool[2]},
		snap.Board(domain.CategoryInternational).VisiblePool())
}

func TestGroupPool_ChangesReachEveryMember(t *testing.T) {
	b, s, n := setup(t)
	ctx := context.Background()

	alice := domain.DocumentKey{Scope: domain.GroupScope("g1", "alice"), Year: year}
	bob := domain.DocumentKey{Scope: domain.GroupScope("g1", "bob"), Year: year}
	outsider := domain.DocumentKey{Scope: domain.SoloScope("alice"), Year: year}
	pool := alice.Scope.PoolKey(year, domain.CategoryFrench)
	addToPool(t, s, pool, "x", "y")

	aliceSess := openSession(t, b, alice)
	bobSess := openSession(t, b, bob)
	outsiderSess := openSession(t, b, outsider)

	// Bob ranks y; Alice then deletes x from the shared pool.
	_, err := bobSess.Do(ctx, ranking.Command{Kind: ranking.CmdPromote, Category: domain.CategoryFrench, AlbumID: "y"})
	require.NoError(t, err)
	_, err = aliceSess.Do(ctx, ranking.Command{Kind: ranking.CmdRemovePooled, Category: domain.CategoryFrench, AlbumID: "x"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap, err := bobSess.Sync(ctx)
		return err == nil && len(snap.Board(domain.CategoryFrench).Pool) == 1
	}, 2*time.Second, 10*time.Millisecond, "bob sees alice's removal")

	snap, err := bobSess.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, rankedIDs(snap.Board(domain.CategoryFrench).Ranked), "bob keeps his ranking")

	require.Len(t, n.removals(), 1)
	assert.Equal(t, removal{pool, "x", "alice"}, n.removals()[0])

	// A contribution made outside any session.
	addToPool(t, s, pool, "z")
	b.PoolChanged(ctx, pool)

	for _, sess := range []*ranking.Session{aliceSess, bobSess} {
		require.Eventually(t, func() bool {
			snap, err := sess.Sync(ctx)
			return err == nil && slices.Contains(poolIDs(snap.Board(domain.CategoryFrench).Pool), "z")
		}, 2*time.Second, 10*time.Millisecond)
	}

	snap, err = outsiderSess.Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Board(domain.CategoryFrench).Pool, "solo pool is separate")
}
