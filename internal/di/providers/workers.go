package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/yearlist-server/internal/bridge"
	"github.com/listenupapp/yearlist-server/internal/config"
	"github.com/listenupapp/yearlist-server/internal/logger"
	"github.com/listenupapp/yearlist-server/internal/ranking"
	"github.com/listenupapp/yearlist-server/internal/service"
)

// ProvideSyncNotifier provides the notifier that fans bridge events out to SSE clients.
func ProvideSyncNotifier(i do.Injector) (*service.SyncNotifier, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSyncNotifier(sseHandle.Manager, storeHandle.Store, log.Logger), nil
}

// ProvideBridge provides the store bridge shared by all ranking sessions.
func ProvideBridge(i do.Injector) (*bridge.Bridge, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	notifier := do.MustInvoke[*service.SyncNotifier](i)
	log := do.MustInvoke[*logger.Logger](i)

	b := bridge.New(storeHandle.Store, log.Logger)
	b.SetNotifier(notifier)

	return b, nil
}

// RegistryHandle owns the ranking session registry and its idle sweeper.
type RegistryHandle struct {
	*ranking.Registry
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable. Open sessions drain their pending writes.
func (h *RegistryHandle) Shutdown() error {
	h.cancel()
	h.Registry.Shutdown()
	return nil
}

// ProvideRegistry provides the ranking session registry and starts the idle sweeper.
func ProvideRegistry(i do.Injector) (*RegistryHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	b := do.MustInvoke[*bridge.Bridge](i)
	notifier := do.MustInvoke[*service.SyncNotifier](i)
	log := do.MustInvoke[*logger.Logger](i)

	registry := ranking.NewRegistry(b, ranking.SessionOptions{
		PersistTimeout: cfg.Ranking.PersistTimeout,
		OnWriteError:   notifier.WriteFailed,
		Logger:         log.Logger,
	}, cfg.Ranking.SessionIdleTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	go registry.Run(ctx)

	log.Info("Ranking session sweeper started",
		"idle_timeout", cfg.Ranking.SessionIdleTimeout,
		"persist_timeout", cfg.Ranking.PersistTimeout,
	)

	return &RegistryHandle{Registry: registry, cancel: cancel}, nil
}
