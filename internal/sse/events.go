// Package sse implements Server-Sent Events for real-time ranking and pool updates.
package sse

import (
	"time"

	"github.com/listenupapp/yearlist-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventRankingSnapshot carries the full state of a ranking document after
	// a change the client did not make itself.
	EventRankingSnapshot EventType = "ranking.snapshot"

	// EventPoolEntryAdded represents an album contributed to a pool.
	EventPoolEntryAdded EventType = "pool.entry_added"
	// EventPoolEntryRemoved represents an album deleted from a pool.
	EventPoolEntryRemoved EventType = "pool.entry_removed"

	// EventWriteFailed tells a user a change was kept locally but could not
	// be saved.
	EventWriteFailed EventType = "sync.write_failed"

	EventGroupMemberJoined EventType = "group.member_joined"
	EventGroupMemberLeft   EventType = "group.member_left"
	EventGroupDeleted      EventType = "group.deleted"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"` // Event-specific data as JSON object
	Type      EventType `json:"type"`

	// Recipients. When both are empty the event goes to every client.
	UserID  string   `json:"-"` // Filter to a single user (not sent to client)
	UserIDs []string `json:"-"` // Filter to a set of users, e.g. group members
}

// SnapshotEventData is the data payload for ranking snapshot events.
// Pool lists only what is still unranked.
type SnapshotEventData struct {
	Key       domain.DocumentKey                 `json:"key"`
	Boards    map[domain.Category]BoardEventData `json:"boards"`
	Revision  uint64                             `json:"revision"`
	UpdatedAt time.Time                          `json:"updated_at"`
}

// BoardEventData is one category of a snapshot.
type BoardEventData struct {
	Pool   []domain.PoolEntry   `json:"pool"`
	Ranked []domain.RankedEntry `json:"ranked"`
}

// PoolEntryEventData is the data payload for pool add events.
type PoolEntryEventData struct {
	PoolID string           `json:"pool_id"`
	Entry  domain.PoolEntry `json:"entry"`
}

// PoolEntryRemovedEventData is the data payload for pool remove events.
type PoolEntryRemovedEventData struct {
	PoolID    string          `json:"pool_id"`
	Category  domain.Category `json:"category"`
	AlbumID   string          `json:"album_id"`
	RemovedBy string          `json:"removed_by"`
}

// WriteFailedEventData is the data payload for write failure events.
type WriteFailedEventData struct {
	Key     domain.DocumentKey `json:"key"`
	Message string             `json:"message"`
}

// GroupMemberEventData is the data payload for membership events.
type GroupMemberEventData struct {
	GroupID     string `json:"group_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// GroupDeletedEventData is the data payload for group deletion events.
type GroupDeletedEventData struct {
	GroupID   string    `json:"group_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewSnapshotEvent creates a ranking.snapshot event.
func NewSnapshotEvent(data SnapshotEventData) Event {
	return Event{
		Type:      EventRankingSnapshot,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewPoolEntryAddedEvent creates a pool.entry_added event.
func NewPoolEntryAddedEvent(poolID string, entry domain.PoolEntry) Event {
	return Event{
		Type:      EventPoolEntryAdded,
		Data:      PoolEntryEventData{PoolID: poolID, Entry: entry},
		Timestamp: time.Now(),
	}
}

// NewPoolEntryRemovedEvent creates a pool.entry_removed event.
func NewPoolEntryRemovedEvent(key domain.PoolKey, albumID, removedBy string) Event {
	return Event{
		Type: EventPoolEntryRemoved,
		Data: PoolEntryRemovedEventData{
			PoolID:    key.PoolID,
			Category:  key.Category,
			AlbumID:   albumID,
			RemovedBy: removedBy,
		},
		Timestamp: time.Now(),
	}
}

// NewWriteFailedEvent creates a sync.write_failed event.
func NewWriteFailedEvent(key domain.DocumentKey, message string) Event {
	return Event{
		Type:      EventWriteFailed,
		Data:      WriteFailedEventData{Key: key, Message: message},
		Timestamp: time.Now(),
	}
}

// NewGroupMemberJoinedEvent creates a group.member_joined event.
func NewGroupMemberJoinedEvent(groupID, userID, displayName string) Event {
	return Event{
		Type:      EventGroupMemberJoined,
		Data:      GroupMemberEventData{GroupID: groupID, UserID: userID, DisplayName: displayName},
		Timestamp: time.Now(),
	}
}

// NewGroupMemberLeftEvent creates a group.member_left event.
func NewGroupMemberLeftEvent(groupID, userID string) Event {
	return Event{
		Type:      EventGroupMemberLeft,
		Data:      GroupMemberEventData{GroupID: groupID, UserID: userID},
		Timestamp: time.Now(),
	}
}

// NewGroupDeletedEvent creates a group.deleted event.
func NewGroupDeletedEvent(groupID string) Event {
	now := time.Now()
	return Event{
		Type:      EventGroupDeleted,
		Data:      GroupDeletedEventData{GroupID: groupID, DeletedAt: now},
		Timestamp: now,
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type: EventHeartbeat,
		Data: HeartbeatEventData{
			ServerTime: time.Now(),
		},
		Timestamp: time.Now(),
	}
}
