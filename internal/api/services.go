package api

import (
	"github.com/listenupapp/yearlist-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Auth      *service.AuthService
	Groups    *service.GroupService
	Pools     *service.PoolService
	Rankings  *service.RankingService
	Community *service.CommunityService
	Catalog   *service.CatalogService // nil when no provider is configured
}
