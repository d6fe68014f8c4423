package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/yearlist-server/internal/auth"
	"github.com/listenupapp/yearlist-server/internal/bridge"
	"github.com/listenupapp/yearlist-server/internal/catalog"
	"github.com/listenupapp/yearlist-server/internal/catalog/itunes"
	"github.com/listenupapp/yearlist-server/internal/catalog/spotify"
	"github.com/listenupapp/yearlist-server/internal/config"
	"github.com/listenupapp/yearlist-server/internal/logger"
	"github.com/listenupapp/yearlist-server/internal/service"
)

// ProvideSessionService provides the session management service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSessionService(storeHandle.Store, tokenService, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, sessionService, log.Logger), nil
}

// ProvideGroupService provides the group membership service.
func ProvideGroupService(i do.Injector) (*service.GroupService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	registry := do.MustInvoke[*RegistryHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewGroupService(storeHandle.Store, registry.Registry, sseHandle.Manager, log.Logger), nil
}

// ProvidePoolService provides the album pool service.
func ProvidePoolService(i do.Injector) (*service.PoolService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	b := do.MustInvoke[*bridge.Bridge](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewPoolService(storeHandle.Store, b, sseHandle.Manager, log.Logger), nil
}

// ProvideRankingService provides the ranking command service.
func ProvideRankingService(i do.Injector) (*service.RankingService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	registry := do.MustInvoke[*RegistryHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRankingService(storeHandle.Store, registry.Registry, log.Logger), nil
}

// ProvideCommunityService provides the read-only community view.
func ProvideCommunityService(i do.Injector) (*service.CommunityService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCommunityService(storeHandle.Store, log.Logger), nil
}

// ProvideCatalogService provides album search backed by the configured provider.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var provider catalog.Provider
	switch cfg.Catalog.Provider {
	case config.CatalogSpotify:
		provider = spotify.NewClient(spotify.Config{
			ClientID:     cfg.Catalog.SpotifyClientID,
			ClientSecret: cfg.Catalog.SpotifyClientSecret,
		}, log.Logger)
	default:
		provider = itunes.NewClient(cfg.Catalog.Country, log.Logger)
	}

	log.Info("Catalog initialized", "provider", provider.Name(), "country", cfg.Catalog.Country)

	return service.NewCatalogService(catalog.New(provider, log.Logger)), nil
}
