package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"stacks-dao-reader/internal/adapter/handler/http"
	"stacks-dao-reader/internal/bootstrap"
	"stacks-dao-reader/internal/config"
	"stacks-dao-reader/internal/logger"
)

func main() {
	// --- Configuration ---
	cfgPath := "configs"
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", cfgPath, err)
	}

	// --- Logger ---
	appLogger, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to setup logger: %v", err)
	}
	defer appLogger.Sync()
	appLogger.Info("Logger initialized", zap.Any("config", cfg.Logger))

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Dependency Injection ---
	app, err := bootstrap.New(rootCtx, *cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize application", zap.Error(err))
	}

	daoHandler := http.NewDaoHandler(rootCtx, app.Service, cfg.API.GetRequestTimeout(), appLogger)

	// --- HTTP Router & Server ---
	appLogger.Info("Setting up HTTP router...")
	r := router.New()
	http.RegisterRoutes(r, daoHandler, appLogger)

	server := &fasthttp.Server{
		Handler: http.LoggingMiddleware(appLogger, r.Handler),
		Name:    cfg.App.Name,
	}

	serverAddr := ":" + cfg.Server.Port
	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("address", serverAddr))
		serverErr <- server.ListenAndServe(serverAddr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	case <-rootCtx.Done():
		appLogger.Info("Shutdown signal received, stopping HTTP server...")
		if err := server.Shutdown(); err != nil {
			appLogger.Error("HTTP server shutdown failed", zap.Error(err))
		}
	}
	appLogger.Info("Server stopped.")
}
