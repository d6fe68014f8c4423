package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/yearlist-server/internal/domain"
	"github.com/listenupapp/yearlist-server/internal/sse"
)

func TestSyncNotifier_PoolReaders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "Owner")
	member := env.createUser(t, "Member")

	group, err := env.groups.CreateGroup(ctx, owner.ID, CreateGroupRequest{Name: "Club"})
	require.NoError(t, err)
	_, err = env.groups.JoinGroup(ctx, member.ID, JoinGroupRequest{Code: group.Code})
	require.NoError(t, err)

	n := NewSyncNotifier(env.events, env.store, slog.New(slog.DiscardHandler))

	tests := []struct {
		name   string
		poolID string
		want   []string
	}{
		{"solo", domain.SoloScope("user-abc").PoolID(testYear), []string{"user-abc"}},
		{"group", domain.GroupScope(group.ID, owner.ID).PoolID(testYear), []string{owner.ID, member.ID}},
		{"missing group", "group:group-missing", nil},
		{"unknown", "elsewhere:1", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, n.poolReaders(tt.poolID))
		})
	}
}

func TestSyncNotifier_WriteFailed(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "Solo")
	stream := env.connect(t, user.ID)

	n := NewSyncNotifier(env.events, env.store, slog.New(slog.DiscardHandler))
	key := domain.DocumentKey{Scope: domain.SoloScope(user.ID), Year: testYear}
	n.WriteFailed(key, user.ID, assert.AnError)

	ev := nextEvent(t, stream, sse.EventWriteFailed)
	data, ok := ev.Data.(sse.WriteFailedEventData)
	require.True(t, ok)
	assert.Equal(t, key, data.Key)
	assert.NotEmpty(t, data.Message)
}

func TestSnapshotEventData_NilIsEmpty(t *testing.T) {
	key := domain.DocumentKey{Scope: domain.SoloScope("u1"), Year: testYear}

	data := SnapshotEventData(key, nil)

	assert.Equal(t, key, data.Key)
	for _, c := range domain.Categories {
		board, ok := data.Boards[c]
		require.True(t, ok)
		assert.NotNil(t, board.Pool)
		assert.NotNil(t, board.Ranked)
	}
}
