package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/listenupapp/yearlist-server/internal/bridge"
	"github.com/listenupapp/yearlist-server/internal/domain"
	"github.com/listenupapp/yearlist-server/internal/ranking"
	"github.com/listenupapp/yearlist-server/internal/sse"
	"github.com/listenupapp/yearlist-server/internal/store"
)

const recipientLookupTimeout = 2 * time.Second

var _ bridge.Notifier = (*SyncNotifier)(nil)

// SyncNotifier pushes ranking and pool changes to connected clients.
type SyncNotifier struct {
	events *sse.Manager
	store  store.Store
	logger *slog.Logger
}

// NewSyncNotifier creates a notifier emitting on events.
func NewSyncNotifier(events *sse.Manager, s store.Store, logger *slog.Logger) *SyncNotifier {
	return &SyncNotifier{events: events, store: s, logger: logger}
}

// SnapshotPublished sends a document's new state to its owner.
func (n *SyncNotifier) SnapshotPublished(key domain.DocumentKey, snap *ranking.Snapshot) {
	n.events.EmitToUser(key.Scope.UserID, sse.NewSnapshotEvent(SnapshotEventData(key, snap)))
}

// PoolEntryRemoved tells everyone reading a pool that an album left it.
func (n *SyncNotifier) PoolEntryRemoved(key domain.PoolKey, albumID, actor string) {
	recipients := n.poolReaders(key.PoolID)
	if len(recipients) == 0 {
		return
	}
	n.events.EmitToUsers(recipients, sse.NewPoolEntryRemovedEvent(key, albumID, actor))
}

// WriteFailed reports a failed persist to the user whose change it was.
// It matches ranking.WriteErrorHandler.
func (n *SyncNotifier) WriteFailed(key domain.DocumentKey, actor string, err error) {
	n.logger.Warn("ranking write failed", "document", key.String(), "user_id", actor, "error", err)
	n.events.EmitToUser(actor, sse.NewWriteFailedEvent(key, "your last change could not be saved and is only kept on this server for now"))
}

// poolReaders resolves the users sharing a pool from its ID.
func (n *SyncNotifier) poolReaders(poolID string) []string {
	if groupID, ok := strings.CutPrefix(poolID, "group:"); ok {
		ctx, cancel := context.WithTimeout(context.Background(), recipientLookupTimeout)
		defer cancel()
		group, err := n.store.GetGroup(ctx, groupID)
		if err != nil {
			n.logger.Debug("pool readers lookup failed", "pool_id", poolID, "error", err)
			return nil
		}
		return group.MemberIDs
	}
	// Solo pools are "user:{uid}:{year}".
	rest, ok := strings.CutPrefix(poolID, "user:")
	if !ok {
		return nil
	}
	if i := strings.LastIndexByte(rest, ':'); i > 0 {
		return []string{rest[:i]}
	}
	return nil
}

// SnapshotEventData converts a snapshot to its wire form. Pools list only
// albums that are not ranked. A nil snapshot is an empty document.
func SnapshotEventData(key domain.DocumentKey, snap *ranking.Snapshot) sse.SnapshotEventData {
	if snap == nil {
		snap = ranking.EmptySnapshot(key)
	}
	boards := make(map[domain.Category]sse.BoardEventData, len(domain.Categories))
	for _, c := range domain.Categories {
		b := snap.Board(c)
		ranked := b.Ranked
		if ranked == nil {
			ranked = []domain.RankedEntry{}
		}
		boards[c] = sse.BoardEventData{Pool: b.VisiblePool(), Ranked: ranked}
	}
	return sse.SnapshotEventData{
		Key:       key,
		Boards:    boards,
		Revision:  snap.Revision,
		UpdatedAt: snap.UpdatedAt,
	}
}
