package ranking

import (
	"slices"

	"github.com/listenupapp/yearlist-server/internal/domain"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
)

// Direction is the neighbour a MoveRanked swaps with.
type Direction string

const (
	// Up moves an album one position toward rank 1.
	Up Direction = "up"
	// Down moves an album one position away from rank 1.
	Down Direction = "down"
)

// Promote appends a pooled album to the end of the ranked sequence.
// The pool row is kept; the album only leaves the visible pool.
func Promote(b Board, albumID string) (Board, error) {
	return InsertFromPool(b, albumID, len(b.Ranked))
}

// InsertFromPool ranks a pooled album at target, clamped to [0, N].
func InsertFromPool(b Board, albumID string, target int) (Board, error) {
	pi := b.PoolIndex(albumID)
	if pi < 0 {
		return b, domainerrors.NotInPoolf("album %s is not in the pool", albumID)
	}
	if b.IsRanked(albumID) {
		return b, domainerrors.NotInPoolf("album %s is already ranked", albumID).
			WithDetails(map[string]string{"reason": "already_ranked"})
	}

	target = clamp(target, 0, len(b.Ranked))

	next := b.Clone()
	next.Ranked = slices.Insert(next.Ranked, target, domain.NewRankedEntry(b.Pool[pi]))
	Renumber(next.Ranked)
	return next, nil
}

// Demote removes an album from the ranked sequence and compacts the ranks.
// The album becomes visible in the pool again because its row was never removed.
func Demote(b Board, albumID string) (Board, error) {
	ri := b.RankIndex(albumID)
	if ri < 0 {
		return b, domainerrors.NotRankedf("album %s is not ranked", albumID)
	}

	next := b.Clone()
	next.Ranked = slices.Delete(next.Ranked, ri, ri+1)
	Renumber(next.Ranked)
	return next, nil
}

// Reorder moves a ranked album to target, clamped to [0, N-1].
// Reordering to the current index returns the board unchanged.
func Reorder(b Board, albumID string, target int) (Board, error) {
	ri := b.RankIndex(albumID)
	if ri < 0 {
		return b, domainerrors.NotRankedf("album %s is not ranked", albumID)
	}

	target = clamp(target, 0, len(b.Ranked)-1)
	if target == ri {
		return b, nil
	}

	next := b.Clone()
	moved := next.Ranked[ri]
	next.Ranked = slices.Delete(next.Ranked, ri, ri+1)
	next.Ranked = slices.Insert(next.Ranked, target, moved)
	Renumber(next.Ranked)
	return next, nil
}

// MoveRanked swaps a ranked album with its neighbour.
// Moving past either end returns the board unchanged.
func MoveRanked(b Board, albumID string, dir Direction) (Board, error) {
	ri := b.RankIndex(albumID)
	if ri < 0 {
		return b, domainerrors.NotRankedf("album %s is not ranked", albumID)
	}

	var swap int
	switch dir {
	case Up:
		swap = ri - 1
	case Down:
		swap = ri + 1
	default:
		return b, domainerrors.Validationf("unknown direction %q", dir)
	}
	if swap < 0 || swap >= len(b.Ranked) {
		return b, nil
	}

	next := b.Clone()
	next.Ranked[ri], next.Ranked[swap] = next.Ranked[swap], next.Ranked[ri]
	Renumber(next.Ranked)
	return next, nil
}

// RemoveRanked deletes an album from the ranked sequence.
// Unlike Demote it is an explicit user deletion, but it never touches the pool.
func RemoveRanked(b Board, albumID string) (Board, error) {
	ri := b.RankIndex(albumID)
	if ri < 0 {
		return b, domainerrors.NotRankedf("album %s is not ranked", albumID)
	}

	next := b.Clone()
	next.Ranked = slices.Delete(next.Ranked, ri, ri+1)
	Renumber(next.Ranked)
	return next, nil
}

// RemovePooled deletes an album's pool row.
// Any ranked entry for the album is left alone; it carries its own display fields.
func RemovePooled(b Board, albumID string) (Board, error) {
	pi := b.PoolIndex(albumID)
	if pi < 0 {
		return b, domainerrors.NotInPoolf("album %s is not in the pool", albumID)
	}

	next := b.Clone()
	next.Pool = slices.Delete(next.Pool, pi, pi+1)
	return next, nil
}

// Renumber rewrites ranks as 1..N from sequence order, in place.
func Renumber(seq []domain.RankedEntry) {
	for i := range seq {
		seq[i].Rank = i + 1
	}
}

// Validate checks that a ranked sequence is a dense 1..N permutation without duplicate albums.
func Validate(seq []domain.RankedEntry) error {
	seen := make(map[string]struct{}, len(seq))
	for i, e := range seq {
		if _, dup := seen[e.AlbumID]; dup {
			return domainerrors.DuplicateRankf("album %s appears more than once", e.AlbumID)
		}
		seen[e.AlbumID] = struct{}{}
		if e.Rank != i+1 {
			return domainerrors.DuplicateRankf("rank %d at position %d", e.Rank, i+1)
		}
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
