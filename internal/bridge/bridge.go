// Package bridge mirrors ranking sessions onto the store.
//
// It implements ranking.Mirror: partial updates are merged field by field
// (one ranked sequence per category, individual pool removals) and every
// change is republished as a full snapshot to the sessions subscribed to
// the affected documents.
package bridge

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/listenupapp/yearlist-server/internal/domain"
	"github.com/listenupapp/yearlist-server/internal/ranking"
	"github.com/listenupapp/yearlist-server/internal/store"
)

// loadTimeout bounds snapshot reads that have no caller context.
const loadTimeout = 5 * time.Second

var _ ranking.Mirror = (*Bridge)(nil)

// Notifier is told about published changes so they can be pushed to clients.
type Notifier interface {
	SnapshotPublished(key domain.DocumentKey, snap *ranking.Snapshot)
	PoolEntryRemoved(key domain.PoolKey, albumID, actor string)
}

// Bridge is a ranking.Mirror backed by a store.Store.
type Bridge struct {
	store    store.Store
	logger   *slog.Logger
	notifier Notifier
	now      func() time.Time

	mu     sync.Mutex
	subs   map[domain.DocumentKey]map[uint64]func(*ranking.Snapshot)
	nextID uint64

	// deliverMu orders snapshot loads with their delivery, so a subscriber
	// never receives an older snapshot after a newer one.
	deliverMu sync.Mutex
}

// New creates a bridge over s.
func New(s store.Store, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bridge{
		store:  s,
		logger: logger,
		now:    time.Now,
		subs:   make(map[domain.DocumentKey]map[uint64]func(*ranking.Snapshot)),
	}
}

// SetNotifier sets the receiver of published changes.
func (b *Bridge) SetNotifier(n Notifier) {
	b.notifier = n
}

// Subscribe registers fn for key and delivers the current snapshot at once.
func (b *Bridge) Subscribe(key domain.DocumentKey, fn func(*ranking.Snapshot)) func() {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	subID := b.nextID
	b.nextID++
	if b.subs[key] == nil {
		b.subs[key] = make(map[uint64]func(*ranking.Snapshot))
	}
	b.subs[key][subID] = fn
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	snap, err := b.Load(ctx, key)
	cancel()
	if err != nil {
		b.logger.Warn("initial snapshot load failed", "document", key.String(), "error", err)
	} else {
		fn(snap)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[key], subID)
			if len(b.subs[key]) == 0 {
				delete(b.subs, key)
			}
		})
	}
}

// Load reads the full state of a document. Returns nil when nothing is stored.
func (b *Bridge) Load(ctx context.Context, key domain.DocumentKey) (*ranking.Snapshot, error) {
	snap := ranking.EmptySnapshot(key)
	empty := true

	for _, c := range domain.Categories {
		pool, err := b.store.ListPool(ctx, key.Scope.PoolKey(key.Year, c))
		if err != nil {
			return nil, fmt.Errorf("load pool: %w", err)
		}
		ranked, err := b.store.GetRanking(ctx, key.Scope.RankingKey(key.Year, c))
		if err != nil {
			return nil, fmt.Errorf("load ranking: %w", err)
		}
		if len(pool) > 0 || len(ranked) > 0 {
			empty = false
		}
		sortPool(pool)
		snap.Boards[c] = ranking.Board{Pool: pool, Ranked: ranked}
	}

	meta, err := b.store.GetRankingScope(ctx, key.Scope.RankingID(), key.Year)
	switch {
	case err == nil:
		empty = false
		snap.Origin = meta.Origin
		snap.Revision = meta.Revision
		snap.UpdatedAt = meta.UpdatedAt
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("load ranking scope: %w", err)
	}

	if empty {
		return nil, nil
	}
	return snap, nil
}

// sortPool orders entries oldest first, the order they were contributed in.
func sortPool(pool []domain.PoolEntry) {
	slices.SortStableFunc(pool, func(a, b domain.PoolEntry) int {
		return cmp.Or(a.AddedAt.Compare(b.AddedAt), cmp.Compare(a.AlbumID(), b.AlbumID()))
	})
}

// Persist merges a partial update into the store and republishes the
// affected documents. Fields absent from the update are left untouched.
func (b *Bridge) Persist(ctx context.Context, u ranking.PartialUpdate) error {
	scope := u.Key.Scope

	for c, seq := range u.Ranked {
		if err := b.store.ReplaceRanking(ctx, scope.RankingKey(u.Key.Year, c), seq); err != nil {
			return fmt.Errorf("replace %s ranking: %w", c, err)
		}
	}

	var touchedPools []domain.PoolKey
	for c, albumIDs := range u.PoolRemovals {
		pk := scope.PoolKey(u.Key.Year, c)
		for _, albumID := range albumIDs {
			err := b.store.RemovePoolEntry(ctx, pk, albumID)
			if errors.Is(err, store.ErrNotFound) {
				continue // Someone else removed it first
			}
			if err != nil {
				return fmt.Errorf("remove pool entry: %w", err)
			}
			if b.notifier != nil {
				b.notifier.PoolEntryRemoved(pk, albumID, u.Actor)
			}
		}
		touchedPools = append(touchedPools, pk)
	}

	if err := b.saveScope(ctx, u); err != nil {
		return err
	}

	if len(touchedPools) > 0 {
		b.publishWhere(ctx, func(k domain.DocumentKey) bool {
			return k == u.Key || sharesPool(k, touchedPools)
		})
	} else {
		b.publishWhere(ctx, func(k domain.DocumentKey) bool { return k == u.Key })
	}
	return nil
}

// saveScope stamps the document metadata with the writer and its revision.
func (b *Bridge) saveScope(ctx context.Context, u ranking.PartialUpdate) error {
	scope := u.Key.Scope
	meta := &domain.RankingScope{
		RankingID: scope.RankingID(),
		OwnerID:   scope.UserID,
		GroupID:   scope.GroupID,
		Year:      u.Key.Year,
	}

	user, err := b.store.GetUser(ctx, scope.UserID)
	switch {
	case err == nil:
		meta.DisplayName = user.Name()
		meta.AvatarURL = user.AvatarURL
	case errors.Is(err, store.ErrUserNotFound):
		if prev, err := b.store.GetRankingScope(ctx, meta.RankingID, meta.Year); err == nil {
			meta.DisplayName = prev.DisplayName
			meta.AvatarURL = prev.AvatarURL
		}
	default:
		return fmt.Errorf("load owner: %w", err)
	}

	meta.UpdatedAt = b.now()
	meta.UpdatedBy = u.Actor
	meta.Origin = u.Origin
	meta.Revision = u.Revision

	if err := b.store.SaveRankingScope(ctx, meta); err != nil {
		return fmt.Errorf("save ranking scope: %w", err)
	}
	return nil
}

// PoolChanged republishes every subscribed document reading from a pool.
// Pool writes made outside a session, such as contributions, call this.
func (b *Bridge) PoolChanged(ctx context.Context, key domain.PoolKey) {
	b.publishWhere(ctx, func(k domain.DocumentKey) bool {
		return sharesPool(k, []domain.PoolKey{key})
	})
}

// Publish republishes one document, e.g. after an out-of-band write.
func (b *Bridge) Publish(ctx context.Context, key domain.DocumentKey) {
	b.publishWhere(ctx, func(k domain.DocumentKey) bool { return k == key })
}

// Subscribed reports whether any session currently watches key.
func (b *Bridge) Subscribed(key domain.DocumentKey) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[key]) > 0
}

func sharesPool(k domain.DocumentKey, pools []domain.PoolKey) bool {
	for _, pk := range pools {
		if k.Scope.PoolKey(k.Year, pk.Category) == pk {
			return true
		}
	}
	return false
}

func (b *Bridge) publishWhere(ctx context.Context, match func(domain.DocumentKey) bool) {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	var keys []domain.DocumentKey
	for k := range b.subs {
		if match(k) {
			keys = append(keys, k)
		}
	}
	b.mu.Unlock()

	for _, k := range keys {
		snap, err := b.Load(ctx, k)
		if err != nil {
			b.logger.Warn("snapshot reload failed", "document", k.String(), "error", err)
			continue
		}
		b.deliver(k, snap)
	}
}

func (b *Bridge) deliver(key domain.DocumentKey, snap *ranking.Snapshot) {
	b.mu.Lock()
	fns := make([]func(*ranking.Snapshot), 0, len(b.subs[key]))
	for _, fn := range b.subs[key] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
	if b.notifier != nil {
		b.notifier.SnapshotPublished(key, snap)
	}
}
