// Package store defines the persistence interface for the yearlist server.
//
// Two backends implement it: kv (Badger) and sqlite. Both enforce the same
// constraints: one pool entry per album per pool set, and ranked sequences
// that are renumbered 1..N and free of duplicate albums on every replace.
package store

import (
	"context"

	"github.com/listenupapp/yearlist-server/internal/domain"
)

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error

	// Auth Sessions
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSessionByRefreshToken(ctx context.Context, tokenHash string) (*domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, id string) error

	// Groups
	CreateGroup(ctx context.Context, group *domain.Group) error
	GetGroup(ctx context.Context, id string) (*domain.Group, error)
	GetGroupByCode(ctx context.Context, code string) (*domain.Group, error)
	UpdateGroup(ctx context.Context, group *domain.Group) error
	ListGroupsForUser(ctx context.Context, userID string) ([]*domain.Group, error)
	// DeleteGroup removes the group, its shared pool and every member ranking.
	DeleteGroup(ctx context.Context, id string) error

	// Pool
	AddPoolEntry(ctx context.Context, key domain.PoolKey, entry domain.PoolEntry) error
	RemovePoolEntry(ctx context.Context, key domain.PoolKey, albumID string) error
	ListPool(ctx context.Context, key domain.PoolKey) ([]domain.PoolEntry, error)
	DeletePoolScope(ctx context.Context, poolID string) error

	// Rankings
	GetRanking(ctx context.Context, key domain.RankingKey) ([]domain.RankedEntry, error)
	ReplaceRanking(ctx context.Context, key domain.RankingKey, seq []domain.RankedEntry) error
	GetRankingScope(ctx context.Context, rankingID string, year int) (*domain.RankingScope, error)
	SaveRankingScope(ctx context.Context, scope *domain.RankingScope) error
	ListRankingScopes(ctx context.Context, year int) ([]*domain.RankingScope, error)
	ListGroupRankingScopes(ctx context.Context, groupID string, year int) ([]*domain.RankingScope, error)
}
