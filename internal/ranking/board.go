// Package ranking implements the reconciliation engine that keeps an
// unranked pool and a ranked sequence consistent.
//
// Engine operations are pure functions over a Board. A Session serializes
// local commands and remote snapshots for one document through a single
// ordered queue and mirrors every local change to a Mirror.
package ranking

import (
	"slices"

	"github.com/listenupapp/yearlist-server/internal/domain"
)

// View is the explicit selection an engine call operates on.
type View struct {
	Scope    domain.Scope
	Category domain.Category
	Year     int
}

// DocumentKey returns the document holding this view.
func (v View) DocumentKey() domain.DocumentKey {
	return domain.DocumentKey{Scope: v.Scope, Year: v.Year}
}

// PoolKey returns the pool set backing this view.
func (v View) PoolKey() domain.PoolKey {
	return v.Scope.PoolKey(v.Year, v.Category)
}

// RankingKey returns the ranked sequence backing this view.
func (v View) RankingKey() domain.RankingKey {
	return v.Scope.RankingKey(v.Year, v.Category)
}

// Board is the pair of collections for one (scope, category, year).
// Pool holds raw pool rows; an album may be both pooled and ranked.
type Board struct {
	Pool   []domain.PoolEntry   `json:"pool"`
	Ranked []domain.RankedEntry `json:"ranked"`
}

// Clone returns a deep copy of the board.
func (b Board) Clone() Board {
	return Board{
		Pool:   slices.Clone(b.Pool),
		Ranked: slices.Clone(b.Ranked),
	}
}

// RankIndex returns the zero-based position of an album in the ranked sequence, or -1.
func (b Board) RankIndex(albumID string) int {
	return slices.IndexFunc(b.Ranked, func(e domain.RankedEntry) bool {
		return e.AlbumID == albumID
	})
}

// IsRanked reports whether an album is in the ranked sequence.
func (b Board) IsRanked(albumID string) bool {
	return b.RankIndex(albumID) >= 0
}

// PoolIndex returns the position of an album's pool row, or -1.
func (b Board) PoolIndex(albumID string) int {
	return slices.IndexFunc(b.Pool, func(e domain.PoolEntry) bool {
		return e.Album.ID == albumID
	})
}

// InPool reports whether an album has a pool row.
func (b Board) InPool(albumID string) bool {
	return b.PoolIndex(albumID) >= 0
}

// VisiblePool returns pool entries not ranked in this board.
// It is derived on every call and never cached.
func (b Board) VisiblePool() []domain.PoolEntry {
	ranked := make(map[string]struct{}, len(b.Ranked))
	for _, e := range b.Ranked {
		ranked[e.AlbumID] = struct{}{}
	}
	visible := make([]domain.PoolEntry, 0, len(b.Pool))
	for _, e := range b.Pool {
		if _, ok := ranked[e.Album.ID]; !ok {
			visible = append(visible, e)
		}
	}
	return visible
}
