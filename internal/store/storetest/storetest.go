// Package storetest holds the behavior every store.Store backend must share.
// Backends call Run from their own tests with a constructor for a fresh store.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/yearlist-server/internal/domain"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
	"github.com/listenupapp/yearlist-server/internal/store"
)

// Factory returns an empty store that lives for the duration of t.
type Factory func(t *testing.T) store.Store

// Run executes the shared suite against a backend.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Sessions", func(t *testing.T) { testSessions(t, newStore(t)) })
	t.Run("Groups", func(t *testing.T) { testGroups(t, newStore(t)) })
	t.Run("GroupTeardown", func(t *testing.T) { testGroupTeardown(t, newStore(t)) })
	t.Run("Pool", func(t *testing.T) { testPool(t, newStore(t)) })
	t.Run("PoolConcurrentAdd", func(t *testing.T) { testPoolConcurrentAdd(t, newStore(t)) })
	t.Run("Rankings", func(t *testing.T) { testRankings(t, newStore(t)) })
	t.Run("RankingScopes", func(t *testing.T) { testRankingScopes(t, newStore(t)) })
}

// NewUser returns a user fixture with timestamps set.
func NewUser(id, email string) *domain.User {
	u := &domain.User{
		Email:       email,
		DisplayName: "User " + id,
		LastLoginAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	u.ID = id
	u.InitTimestamps()
	return u
}

// NewEntry returns a pool entry fixture.
func NewEntry(albumID, addedBy string) domain.PoolEntry {
	return domain.PoolEntry{
		Album: domain.Album{
			ID:          albumID,
			Title:       "Title " + albumID,
			Artist:      "Artist " + albumID,
			ReleaseYear: 2024,
			CoverURL:    "https://covers.example/" + albumID + ".jpg",
			Category:    domain.CategoryInternational,
		},
		AddedBy: addedBy,
		AddedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func entries(ids ...string) []domain.RankedEntry {
	out := make([]domain.RankedEntry, len(ids))
	for i, id := range ids {
		out[i] = domain.RankedEntry{AlbumID: id, Title: "Title " + id, Artist: "Artist " + id, ReleaseYear: 2024}
	}
	return out
}

func albumIDs(seq []domain.RankedEntry) []string {
	out := make([]string, len(seq))
	for i, e := range seq {
		out[i] = e.AlbumID
	}
	return out
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()

	u := NewUser("u1", "Alice@Example.com")
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice@Example.com", got.Email)
	assert.Equal(t, "User u1", got.DisplayName)

	byEmail, err := s.GetUserByEmail(ctx, "alice@example.COM")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)

	err = s.CreateUser(ctx, NewUser("u2", "alice@example.com"))
	assert.ErrorIs(t, err, store.ErrEmailExists)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	require.NoError(t, s.CreateUser(ctx, NewUser("u3", "carol@example.com")))
	users, err := s.GetUsersByIDs(ctx, []string{"u3", "missing", "u1"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u3", users[0].ID)
	assert.Equal(t, "u1", users[1].ID)

	got.DisplayName = "Alice"
	got.AvatarURL = "https://avatars.example/alice.png"
	require.NoError(t, s.UpdateUser(ctx, got))

	got, err = s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.DisplayName)
	assert.Equal(t, "https://avatars.example/alice.png", got.AvatarURL)
}

func testSessions(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, NewUser("u1", "alice@example.com")))

	now := time.Now().UTC().Truncate(time.Millisecond)
	session := &domain.Session{
		ID:               "s1",
		UserID:           "u1",
		RefreshTokenHash: "hash-1",
		ExpiresAt:        now.Add(time.Hour),
		CreatedAt:        now,
		LastSeenAt:       now,
		ClientName:       "web",
	}
	require.NoError(t, s.CreateSession(ctx, session))
	assert.Error(t, s.CreateSession(ctx, session), "duplicate session id")

	got, err := s.GetSessionByRefreshToken(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, "web", got.ClientName)

	// Rotation retires the old token.
	got.RefreshTokenHash = "hash-2"
	require.NoError(t, s.UpdateSession(ctx, got))

	_, err = s.GetSessionByRefreshToken(ctx, "hash-1")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
	got, err = s.GetSessionByRefreshToken(ctx, "hash-2")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)

	expired := &domain.Session{
		ID:               "s2",
		UserID:           "u1",
		RefreshTokenHash: "hash-old",
		ExpiresAt:        now.Add(-time.Minute),
		CreatedAt:        now.Add(-time.Hour),
		LastSeenAt:       now.Add(-time.Hour),
	}
	require.NoError(t, s.CreateSession(ctx, expired))
	_, err = s.GetSessionByRefreshToken(ctx, "hash-old")
	assert.ErrorIs(t, err, store.ErrSessionExpired)

	require.NoError(t, s.DeleteSession(ctx, "s1"))
	require.NoError(t, s.DeleteSession(ctx, "s1"), "deleting twice is not an error")
	_, err = s.GetSessionByRefreshToken(ctx, "hash-2")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func newGroup(id, code, owner string, members ...string) *domain.Group {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Group{
		CreatedAt: now,
		UpdatedAt: now,
		ID:        id,
		Name:      "Group " + id,
		Code:      code,
		OwnerID:   owner,
		MemberIDs: append([]string{owner}, members...),
	}
}

func testGroups(t *testing.T, s store.Store) {
	ctx := context.Background()

	require.NoError(t, s.CreateGroup(ctx, newGroup("g1", "ABC123", "u1")))
	require.NoError(t, s.CreateGroup(ctx, newGroup("g2", "XYZ789", "u2", "u1")))

	err := s.CreateGroup(ctx, newGroup("g3", "ABC123", "u3"))
	assert.ErrorIs(t, err, store.ErrCodeTaken)

	got, err := s.GetGroupByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "g1", got.ID)

	_, err = s.GetGroupByCode(ctx, "NOPE00")
	assert.ErrorIs(t, err, store.ErrGroupNotFound)
	_, err = s.GetGroup(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrGroupNotFound)

	mine, err := s.ListGroupsForUser(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"g1", "g2"}, groupIDs(mine))

	// Joining and leaving are membership updates.
	got.AddMember("u3")
	require.NoError(t, s.UpdateGroup(ctx, got))
	g2, err := s.GetGroup(ctx, "g2")
	require.NoError(t, err)
	g2.RemoveMember("u1")
	require.NoError(t, s.UpdateGroup(ctx, g2))

	mine, err = s.ListGroupsForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, groupIDs(mine))

	theirs, err := s.ListGroupsForUser(ctx, "u3")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, groupIDs(theirs))

	got, err = s.GetGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u3"}, got.MemberIDs)
}

func groupIDs(groups []*domain.Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.ID
	}
	return out
}

func testGroupTeardown(t *testing.T, s store.Store) {
	ctx := context.Background()
	const year = 2024

	require.NoError(t, s.CreateGroup(ctx, newGroup("g1", "AAAAAA", "u1", "u2")))
	require.NoError(t, s.CreateGroup(ctx, newGroup("g10", "BBBBBB", "u1")))

	doomed := domain.GroupScope("g1", "u1")
	kept := domain.GroupScope("g10", "u1")
	solo := domain.SoloScope("u1")

	for _, scope := range []domain.Scope{doomed, kept, solo} {
		for _, c := range domain.Categories {
			require.NoError(t, s.AddPoolEntry(ctx, scope.PoolKey(year, c), NewEntry("a1", "u1")))
			require.NoError(t, s.ReplaceRanking(ctx, scope.RankingKey(year, c), entries("a1")))
		}
		require.NoError(t, s.SaveRankingScope(ctx, &domain.RankingScope{
			RankingID: scope.RankingID(),
			OwnerID:   scope.UserID,
			GroupID:   scope.GroupID,
			Year:      year,
		}))
	}
	require.NoError(t, s.ReplaceRanking(ctx, domain.GroupScope("g1", "u2").RankingKey(year+1, domain.CategoryFrench), entries("a2")))
	require.NoError(t, s.SaveRankingScope(ctx, &domain.RankingScope{RankingID: domain.GroupScope("g1", "u2").RankingID(), GroupID: "g1", Year: year + 1}))

	require.NoError(t, s.DeleteGroup(ctx, "g1"))

	_, err := s.GetGroup(ctx, "g1")
	assert.ErrorIs(t, err, store.ErrGroupNotFound)
	_, err = s.GetGroupByCode(ctx, "AAAAAA")
	assert.ErrorIs(t, err, store.ErrGroupNotFound)

	for _, c := range domain.Categories {
		pool, err := s.ListPool(ctx, doomed.PoolKey(year, c))
		require.NoError(t, err)
		assert.Empty(t, pool)
		seq, err := s.GetRanking(ctx, doomed.RankingKey(year, c))
		require.NoError(t, err)
		assert.Empty(t, seq)
	}
	seq, err := s.GetRanking(ctx, domain.GroupScope("g1", "u2").RankingKey(year+1, domain.CategoryFrench))
	require.NoError(t, err)
	assert.Empty(t, seq)

	for _, y := range []int{year, year + 1} {
		scopes, err := s.ListGroupRankingScopes(ctx, "g1", y)
		require.NoError(t, err)
		assert.Empty(t, scopes)
	}

	// Neighbours with a shared ID prefix and the member's solo data survive.
	for _, scope := range []domain.Scope{kept, solo} {
		for _, c := range domain.Categories {
			pool, err := s.ListPool(ctx, scope.PoolKey(year, c))
			require.NoError(t, err)
			assert.Len(t, pool, 1, scope.RankingID())
			seq, err := s.GetRanking(ctx, scope.RankingKey(year, c))
			require.NoError(t, err)
			assert.Len(t, seq, 1, scope.RankingID())
		}
		_, err := s.GetRankingScope(ctx, scope.RankingID(), year)
		assert.NoError(t, err, scope.RankingID())
	}

	assert.ErrorIs(t, s.DeleteGroup(ctx, "g1"), store.ErrGroupNotFound)
}

func testPool(t *testing.T, s store.Store) {
	ctx := context.Background()
	scope := domain.SoloScope("u1")
	intl := scope.PoolKey(2024, domain.CategoryInternational)
	french := scope.PoolKey(2024, domain.CategoryFrench)

	first := NewEntry("a1", "u1")
	require.NoError(t, s.AddPoolEntry(ctx, intl, first))
	require.NoError(t, s.AddPoolEntry(ctx, intl, NewEntry("a2", "u1")))

	// Duplicate adds are rejected and never merged.
	err := s.AddPoolEntry(ctx, intl, NewEntry("a1", "u2"))
	require.ErrorIs(t, err, store.ErrDuplicateItem)
	var derr *domainerrors.Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, domainerrors.CodeDuplicateItem, derr.Code)

	pool, err := s.ListPool(ctx, intl)
	require.NoError(t, err)
	require.Len(t, pool, 2)
	for _, e := range pool {
		assert.Equal(t, "u1", e.AddedBy)
	}
	assert.ElementsMatch(t, []string{"a1", "a2"}, []string{pool[0].AlbumID(), pool[1].AlbumID()})
	for _, e := range pool {
		if e.AlbumID() == "a1" {
			assert.Equal(t, first.Album, e.Album)
			assert.True(t, first.AddedAt.Equal(e.AddedAt))
		}
	}

	// Categories and solo years are separate sets.
	require.NoError(t, s.AddPoolEntry(ctx, french, NewEntry("a1", "u1")))
	require.NoError(t, s.AddPoolEntry(ctx, scope.PoolKey(2023, domain.CategoryInternational), NewEntry("a1", "u1")))

	frenchPool, err := s.ListPool(ctx, french)
	require.NoError(t, err)
	assert.Len(t, frenchPool, 1)

	require.NoError(t, s.RemovePoolEntry(ctx, intl, "a1"))
	assert.ErrorIs(t, s.RemovePoolEntry(ctx, intl, "a1"), store.ErrNotFound)

	pool, err = s.ListPool(ctx, intl)
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, "a2", pool[0].AlbumID())

	empty, err := s.ListPool(ctx, scope.PoolKey(2020, domain.CategoryFrench))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, s.DeletePoolScope(ctx, scope.PoolID(2024)))
	for _, k := range []domain.PoolKey{intl, french} {
		pool, err := s.ListPool(ctx, k)
		require.NoError(t, err)
		assert.Empty(t, pool)
	}
	other, err := s.ListPool(ctx, scope.PoolKey(2023, domain.CategoryInternational))
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

// testPoolConcurrentAdd covers two or more members adding the same album to
// a shared group pool at once: exactly one succeeds and keeps authorship.
func testPoolConcurrentAdd(t *testing.T, s store.Store) {
	ctx := context.Background()
	key := domain.GroupScope("g1", "").PoolKey(2024, domain.CategoryFrench)

	const writers = 8
	errs := make([]error, writers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = s.AddPoolEntry(ctx, key, NewEntry("x", fmt.Sprintf("member-%d", i)))
		}()
	}
	close(start)
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "more than one add succeeded")
			winner = i
			continue
		}
		assert.ErrorIs(t, err, store.ErrDuplicateItem)
	}
	require.NotEqual(t, -1, winner, "no add succeeded")

	pool, err := s.ListPool(ctx, key)
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, fmt.Sprintf("member-%d", winner), pool[0].AddedBy)
}

func testRankings(t *testing.T, s store.Store) {
	ctx := context.Background()
	scope := domain.SoloScope("u1")
	key := scope.RankingKey(2024, domain.CategoryInternational)

	seq, err := s.GetRanking(ctx, key)
	require.NoError(t, err)
	assert.NotNil(t, seq)
	assert.Empty(t, seq)

	// Incoming ranks are ignored and re-derived from order.
	in := entries("a", "b", "c")
	in[0].Rank, in[1].Rank, in[2].Rank = 7, 7, 2
	require.NoError(t, s.ReplaceRanking(ctx, key, in))

	seq, err = s.GetRanking(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, albumIDs(seq))
	for i, e := range seq {
		assert.Equal(t, i+1, e.Rank)
	}
	assert.Equal(t, "Title b", seq[1].Title)
	assert.Equal(t, 7, in[0].Rank, "caller's slice is not modified")

	err = s.ReplaceRanking(ctx, key, entries("a", "b", "a"))
	assert.ErrorIs(t, err, store.ErrDuplicateRank)

	seq, err = s.GetRanking(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, albumIDs(seq), "failed replace keeps the stored sequence")

	// Same scope, other year and other category are independent.
	other, err := s.GetRanking(ctx, scope.RankingKey(2023, domain.CategoryInternational))
	require.NoError(t, err)
	assert.Empty(t, other)
	other, err = s.GetRanking(ctx, scope.RankingKey(2024, domain.CategoryFrench))
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, s.ReplaceRanking(ctx, key, nil))
	seq, err = s.GetRanking(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, seq)
}

func testRankingScopes(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	save := func(scope domain.Scope, year int, name string) {
		t.Helper()
		require.NoError(t, s.SaveRankingScope(ctx, &domain.RankingScope{
			RankingID:   scope.RankingID(),
			OwnerID:     scope.UserID,
			GroupID:     scope.GroupID,
			Year:        year,
			DisplayName: name,
			UpdatedAt:   now,
			UpdatedBy:   scope.UserID,
			Origin:      "origin-1",
			Revision:    3,
		}))
	}
	save(domain.SoloScope("u1"), 2024, "Alice")
	save(domain.SoloScope("u2"), 2024, "Bob")
	save(domain.SoloScope("u1"), 2023, "Alice")
	save(domain.GroupScope("g1", "u1"), 2024, "Alice")
	save(domain.GroupScope("g1", "u2"), 2024, "Bob")
	save(domain.GroupScope("g2", "u1"), 2024, "Alice")

	got, err := s.GetRankingScope(ctx, "user:u1", 2024)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.DisplayName)
	assert.Equal(t, "origin-1", got.Origin)
	assert.Equal(t, uint64(3), got.Revision)
	assert.True(t, now.Equal(got.UpdatedAt))

	_, err = s.GetRankingScope(ctx, "user:u9", 2024)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Saving again replaces.
	save(domain.SoloScope("u1"), 2024, "Alice B.")
	got, err = s.GetRankingScope(ctx, "user:u1", 2024)
	require.NoError(t, err)
	assert.Equal(t, "Alice B.", got.DisplayName)

	solo, err := s.ListRankingScopes(ctx, 2024)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user:u1", "user:u2"}, rankingIDs(solo))

	group, err := s.ListGroupRankingScopes(ctx, "g1", 2024)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"group:g1:member:u1", "group:g1:member:u2"}, rankingIDs(group))

	none, err := s.ListGroupRankingScopes(ctx, "g1", 2022)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func rankingIDs(scopes []*domain.RankingScope) []string {
	out := make([]string, len(scopes))
	for i, s := range scopes {
		out[i] = s.RankingID
	}
	return out
}
