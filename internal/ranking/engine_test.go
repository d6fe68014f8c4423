package ranking

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/yearlist-server/internal/domain"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
)

func poolEntry(id string) domain.PoolEntry {
	return domain.PoolEntry{
		Album: domain.Album{
			ID:          id,
			Title:       "Title " + id,
			Artist:      "Artist " + id,
			ReleaseYear: 2024,
			CoverURL:    "https://covers.test/" + id + ".jpg",
			Category:    domain.CategoryFrench,
		},
		AddedBy: "user-1",
	}
}

// boardWith builds a board whose pool holds every id and whose ranked
// sequence holds the ranked ids in order.
func boardWith(pooled []string, ranked ...string) Board {
	b := Board{}
	for _, id := range pooled {
		b.Pool = append(b.Pool, poolEntry(id))
	}
	for _, id := range ranked {
		b.Ranked = append(b.Ranked, domain.NewRankedEntry(poolEntry(id)))
	}
	Renumber(b.Ranked)
	return b
}

func rankedIDs(b Board) []string {
	ids := make([]string, len(b.Ranked))
	for i, e := range b.Ranked {
		ids[i] = e.AlbumID
	}
	return ids
}

func visibleIDs(b Board) []string {
	visible := b.VisiblePool()
	ids := make([]string, len(visible))
	for i, e := range visible {
		ids[i] = e.Album.ID
	}
	return ids
}

func TestPromote_MovesAlbumOutOfVisiblePool(t *testing.T) {
	b := Board{}
	b.Pool = append(b.Pool, poolEntry("A"))

	assert.Equal(t, []string{"A"}, visibleIDs(b))
	assert.Empty(t, b.Ranked)

	next, err := Promote(b, "A")
	require.NoError(t, err)

	require.Len(t, next.Ranked, 1)
	assert.Equal(t, "A", next.Ranked[0].AlbumID)
	assert.Equal(t, 1, next.Ranked[0].Rank)
	assert.Empty(t, next.VisiblePool())

	// The pool row survives; only visibility changes.
	assert.True(t, next.InPool("A"))
}

func TestPromote_CopiesDisplayFields(t *testing.T) {
	b := boardWith([]string{"A"})

	next, err := Promote(b, "A")
	require.NoError(t, err)

	got := next.Ranked[0]
	assert.Equal(t, "Title A", got.Title)
	assert.Equal(t, "Artist A", got.Artist)
	assert.Equal(t, 2024, got.ReleaseYear)
	assert.Equal(t, "https://covers.test/A.jpg", got.CoverURL)
}

func TestPromote_AppendsAtEnd(t *testing.T) {
	b := boardWith([]string{"A", "B", "C"}, "A", "B")

	next, err := Promote(b, "C")
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, rankedIDs(next))
	assert.Equal(t, 3, next.Ranked[2].Rank)
}

func TestPromote_NotInPool(t *testing.T) {
	b := boardWith([]string{"A"})

	next, err := Promote(b, "Z")

	assert.ErrorIs(t, err, domainerrors.ErrNotInPool)
	assert.Equal(t, b, next)
}

func TestPromote_AlreadyRanked(t *testing.T) {
	b := boardWith([]string{"A"}, "A")

	_, err := Promote(b, "A")

	assert.ErrorIs(t, err, domainerrors.ErrNotInPool)
	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, map[string]string{"reason": "already_ranked"}, domainErr.Details)
}

func TestPromote_DoesNotMutateInput(t *testing.T) {
	b := boardWith([]string{"A", "B"}, "A")
	before := b.Clone()

	_, err := Promote(b, "B")
	require.NoError(t, err)

	assert.Equal(t, before, b)
}

func TestReorder_RenumbersDensely(t *testing.T) {
	b := boardWith([]string{"A", "B", "C"}, "A", "B", "C")

	next, err := Reorder(b, "C", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"C", "A", "B"}, rankedIDs(next))
	for i, e := range next.Ranked {
		assert.Equal(t, i+1, e.Rank)
	}
}

func TestReorder_SameIndexIsNoop(t *testing.T) {
	b := boardWith([]string{"A", "B", "C"}, "A", "B", "C")
	before := b.Clone()

	next, err := Reorder(b, "B", 1)
	require.NoError(t, err)

	assert.Equal(t, before, next)

	out, err := Apply(b, Command{Kind: CmdReorder, AlbumID: "B", Target: 1})
	require.NoError(t, err)
	assert.False(t, out.Changed())
}

func TestReorder_ClampsTarget(t *testing.T) {
	tests := []struct {
		name     string
		target   int
		expected []string
	}{
		{"negative clamps to top", -5, []string{"B", "A", "C"}},
		{"past end clamps to bottom", 99, []string{"A", "C", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := boardWith([]string{"A", "B", "C"}, "A", "B", "C")

			next, err := Reorder(b, "B", tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rankedIDs(next))
		})
	}
}

func TestReorder_NotRanked(t *testing.T) {
	b := boardWith([]string{"A"})

	_, err := Reorder(b, "A", 0)

	assert.ErrorIs(t, err, domainerrors.ErrNotRanked)
}

func TestDemote_RestoresPoolVisibility(t *testing.T) {
	b := boardWith([]string{"A", "B"}, "A", "B")
	assert.Empty(t, b.VisiblePool())

	next, err := Demote(b, "A")
	require.NoError(t, err)

	require.Len(t, next.Ranked, 1)
	assert.Equal(t, "B", next.Ranked[0].AlbumID)
	assert.Equal(t, 1, next.Ranked[0].Rank)
	assert.Equal(t, []string{"A"}, visibleIDs(next))
}

func TestDemote_NotRanked(t *testing.T) {
	b := boardWith([]string{"A"})

	_, err := Demote(b, "A")

	assert.ErrorIs(t, err, domainerrors.ErrNotRanked)
}

func TestPromoteDemote_RoundTrip(t *testing.T) {
	b := boardWith([]string{"A", "B", "C", "X"}, "A", "B", "C")

	promoted, err := Promote(b, "X")
	require.NoError(t, err)
	assert.NotContains(t, visibleIDs(promoted), "X")

	restored, err := Demote(promoted, "X")
	require.NoError(t, err)

	assert.Equal(t, b.Ranked, restored.Ranked)
	assert.Equal(t, visibleIDs(b), visibleIDs(restored))
}

func TestInsertFromPool(t *testing.T) {
	tests := []struct {
		name     string
		target   int
		expected []string
	}{
		{"top", 0, []string{"X", "A", "B"}},
		{"middle", 1, []string{"A", "X", "B"}},
		{"end", 2, []string{"A", "B", "X"}},
		{"negative clamps to top", -1, []string{"X", "A", "B"}},
		{"past end clamps to end", 10, []string{"A", "B", "X"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := boardWith([]string{"A", "B", "X"}, "A", "B")

			next, err := InsertFromPool(b, "X", tt.target)
			require.NoError(t, err)

			assert.Equal(t, tt.expected, rankedIDs(next))
			assert.NoError(t, Validate(next.Ranked))
			assert.Empty(t, next.VisiblePool())
		})
	}
}

func TestInsertFromPool_Preconditions(t *testing.T) {
	b := boardWith([]string{"A"}, "A")

	_, err := InsertFromPool(b, "Z", 0)
	assert.ErrorIs(t, err, domainerrors.ErrNotInPool)

	_, err = InsertFromPool(b, "A", 0)
	assert.ErrorIs(t, err, domainerrors.ErrNotInPool)
}

func TestMoveRanked(t *testing.T) {
	b := boardWith([]string{"A", "B", "C"}, "A", "B", "C")

	up, err := MoveRanked(b, "B", Up)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C"}, rankedIDs(up))

	down, err := MoveRanked(b, "B", Down)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "B"}, rankedIDs(down))
}

func TestMoveRanked_BoundariesAreNoops(t *testing.T) {
	b := boardWith([]string{"A", "B"}, "A", "B")

	top, err := MoveRanked(b, "A", Up)
	require.NoError(t, err)
	assert.Equal(t, b, top)

	bottom, err := MoveRanked(b, "B", Down)
	require.NoError(t, err)
	assert.Equal(t, b, bottom)
}

func TestMoveRanked_UnknownDirection(t *testing.T) {
	b := boardWith([]string{"A"}, "A")

	_, err := MoveRanked(b, "A", Direction("sideways"))

	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestRemoveRanked_KeepsPoolRow(t *testing.T) {
	b := boardWith([]string{"A", "B"}, "A", "B")

	next, err := RemoveRanked(b, "A")
	require.NoError(t, err)

	assert.Equal(t, []string{"B"}, rankedIDs(next))
	assert.True(t, next.InPool("A"))

	_, err = RemoveRanked(next, "A")
	assert.ErrorIs(t, err, domainerrors.ErrNotRanked)
}

func TestRemovePooled_DeletesRow(t *testing.T) {
	b := boardWith([]string{"A", "B"}, "B")

	out, err := Apply(b, Command{Kind: CmdRemovePooled, AlbumID: "A"})
	require.NoError(t, err)

	assert.False(t, out.Board.InPool("A"))
	assert.Equal(t, "A", out.RemovedFromPool)
	assert.False(t, out.RankedChanged)
	assert.True(t, out.Changed())

	_, err = RemovePooled(out.Board, "A")
	assert.ErrorIs(t, err, domainerrors.ErrNotInPool)
}

func TestApply_UnknownCommand(t *testing.T) {
	_, err := Apply(Board{}, Command{Kind: "shuffle"})

	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestValidate(t *testing.T) {
	good := boardWith(nil, "A", "B")
	assert.NoError(t, Validate(good.Ranked))

	dup := []domain.RankedEntry{{AlbumID: "A", Rank: 1}, {AlbumID: "A", Rank: 2}}
	assert.ErrorIs(t, Validate(dup), domainerrors.ErrDuplicateRank)

	gap := []domain.RankedEntry{{AlbumID: "A", Rank: 1}, {AlbumID: "B", Rank: 3}}
	assert.ErrorIs(t, Validate(gap), domainerrors.ErrDuplicateRank)
}

// TestInvariants_RandomCommands drives the engine with random commands and
// checks the ranked sequence stays dense and duplicate free, and that
// nothing ranked is ever visible in the pool.
func TestInvariants_RandomCommands(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	ids := []string{"A", "B", "C", "D", "E", "F"}
	kinds := []CommandKind{CmdPromote, CmdDemote, CmdReorder, CmdInsertFromPool, CmdMoveRanked, CmdRemoveRanked}

	b := boardWith(ids)
	for i := range 2000 {
		cmd := Command{
			Kind:      kinds[rng.IntN(len(kinds))],
			AlbumID:   ids[rng.IntN(len(ids))],
			Target:    rng.IntN(10) - 2,
			Direction: []Direction{Up, Down}[rng.IntN(2)],
		}

		out, err := Apply(b, cmd)
		if err != nil {
			assert.Equal(t, b, out.Board, "failed command must leave the board untouched")
			continue
		}
		b = out.Board

		require.NoError(t, Validate(b.Ranked), fmt.Sprintf("step %d: %+v", i, cmd))
		for _, e := range b.VisiblePool() {
			require.False(t, b.IsRanked(e.Album.ID), "step %d: %s visible while ranked", i, e.Album.ID)
		}
	}
}
