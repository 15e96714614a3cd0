// Package bootstrap wires the adapters and services from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"stacks-dao-reader/internal/adapter/dao"
	"stacks-dao-reader/internal/adapter/rpc"
	"stacks-dao-reader/internal/adapter/storage/catalog"
	"stacks-dao-reader/internal/adapter/storage/hiro"
	"stacks-dao-reader/internal/adapter/storage/memory"
	"stacks-dao-reader/internal/application"
	"stacks-dao-reader/internal/application/port"
	"stacks-dao-reader/internal/config"
	"stacks-dao-reader/internal/domain/entity"
	domainService "stacks-dao-reader/internal/domain/service"

	"go.uber.org/zap"
)

// App holds the wired components.
type App struct {
	Service  port.DaoService
	Registry *dao.Registry
	Networks entity.NetworkTable
	Watcher  *rpc.ChainTipWatcher
}

// New builds the dependency graph. When the watcher is enabled it starts streaming
// chain tips until rootCtx is cancelled.
func New(rootCtx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	logger.Info("Initializing dependencies...")

	networks := entity.NewNetworkTable(cfg.Networks.MainnetURL, cfg.Networks.TestnetURL)

	known, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load DAO catalog: %w", err)
	}
	catalogRepo := catalog.NewRepository(known, logger)

	client := hiro.NewClient(
		hiro.NewFastHTTPTransport(cfg.API.GetRequestTimeout()),
		hiro.RetryPolicy{MaxRetries: cfg.API.MaxRetries, BaseDelay: cfg.API.GetRetryBaseDelay()},
		logger,
		hiro.WithRateLimit(cfg.API.RateLimitRPS, cfg.API.RateLimitBurst),
	)
	chainRepo := hiro.NewRepository(client, networks, logger)
	cacheRepo := memory.NewCacheRepository(cfg.Cache, logger)
	checker := rpc.NewChecker(cfg.API.GetHealthCheckTimeout(), logger)

	app := &App{Networks: networks}

	var tip domainService.ChainTip
	if cfg.Watcher.Enabled {
		watched, err := rpc.WatchedNetworks(cfg.Watcher.Networks, networks)
		if err != nil {
			return nil, fmt.Errorf("invalid watcher networks: %w", err)
		}
		app.Watcher = rpc.NewChainTipWatcher(watched, cfg.Watcher, logger)
		app.Watcher.Start(rootCtx)
		tip = app.Watcher
	}

	app.Registry = dao.NewRegistry(catalogRepo, dao.Dependencies{
		Chain:        chainRepo,
		Tip:          tip,
		MaxProposals: cfg.Dao.MaxProposals,
		Logger:       logger,
	})

	app.Service = application.NewDaoService(
		catalogRepo,
		chainRepo,
		cacheRepo,
		app.Registry,
		checker,
		tip,
		networks,
		logger,
		cfg,
	)

	logger.Info("Dependencies initialized", zap.Int("knownDaos", len(known)), zap.Bool("watcher", cfg.Watcher.Enabled))
	return app, nil
}
