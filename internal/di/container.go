// Package di provides dependency injection configuration for the yearlist server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/yearlist-server/internal/auth"
	"github.com/listenupapp/yearlist-server/internal/bridge"
	"github.com/listenupapp/yearlist-server/internal/config"
	"github.com/listenupapp/yearlist-server/internal/di/providers"
	"github.com/listenupapp/yearlist-server/internal/logger"
	"github.com/listenupapp/yearlist-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Ranking layer
	do.Provide(injector, providers.ProvideSyncNotifier)
	do.Provide(injector, providers.ProvideBridge)
	do.Provide(injector, providers.ProvideRegistry)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideSessionService)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideGroupService)
	do.Provide(injector, providers.ProvidePoolService)
	do.Provide(injector, providers.ProvideRankingService)
	do.Provide(injector, providers.ProvideCommunityService)
	do.Provide(injector, providers.ProvideCatalogService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*service.SyncNotifier](injector)
	_ = do.MustInvoke[*bridge.Bridge](injector)
	_ = do.MustInvoke[*providers.RegistryHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.SessionService](injector)
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.GroupService](injector)
	_ = do.MustInvoke[*service.PoolService](injector)
	_ = do.MustInvoke[*service.RankingService](injector)
	_ = do.MustInvoke[*service.CommunityService](injector)
	_ = do.MustInvoke[*service.CatalogService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
