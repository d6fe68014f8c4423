package ranking

import (
	"context"
	"maps"
	"time"

	"github.com/listenupapp/yearlist-server/internal/domain"
)

// Snapshot is an immutable full state of one document: a board per category.
// Origin and Revision identify the local write that produced it.
type Snapshot struct {
	Key       domain.DocumentKey        `json:"key"`
	Boards    map[domain.Category]Board `json:"boards"`
	Origin    string                    `json:"origin,omitempty"`
	Revision  uint64                    `json:"revision"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// EmptySnapshot returns the state of a document nothing was stored for.
func EmptySnapshot(key domain.DocumentKey) *Snapshot {
	boards := make(map[domain.Category]Board, len(domain.Categories))
	for _, c := range domain.Categories {
		boards[c] = Board{Pool: []domain.PoolEntry{}, Ranked: []domain.RankedEntry{}}
	}
	return &Snapshot{Key: key, Boards: boards}
}

// Board returns the board for a category. Missing categories are empty.
func (s *Snapshot) Board(c domain.Category) Board {
	if s == nil {
		return Board{}
	}
	return s.Boards[c]
}

// with returns a copy of the snapshot with one board replaced.
func (s *Snapshot) with(c domain.Category, b Board) *Snapshot {
	next := *s
	next.Boards = maps.Clone(s.Boards)
	if next.Boards == nil {
		next.Boards = make(map[domain.Category]Board, 1)
	}
	next.Boards[c] = b
	return &next
}

// PartialUpdate is what a local change hands to the mirror. Only the fields
// present are written; everything else in the document is left untouched.
type PartialUpdate struct {
	Key          domain.DocumentKey                      `json:"key"`
	Origin       string                                  `json:"origin"`
	Revision     uint64                                  `json:"revision"`
	Actor        string                                  `json:"actor"`
	Ranked       map[domain.Category][]domain.RankedEntry `json:"ranked,omitempty"`
	PoolRemovals map[domain.Category][]string            `json:"pool_removals,omitempty"`
}

// Mirror is the remote store a session mirrors its state to.
type Mirror interface {
	// Subscribe delivers the current snapshot (nil if nothing is stored)
	// immediately and again after every change. The callback must not block.
	Subscribe(key domain.DocumentKey, fn func(*Snapshot)) (unsubscribe func())
	// Persist merges a partial update into the stored document.
	Persist(ctx context.Context, update PartialUpdate) error
}
