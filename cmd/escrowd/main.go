package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"escrow_wallet/internal/app/bootstrap"
	"escrow_wallet/internal/infrastructure/configloader"
	"escrow_wallet/internal/infrastructure/restapi"
	"escrow_wallet/internal/pkg/logger"
)

const defaultConfigPath = "config/config.yml"

func main() {
	configPath := defaultConfigPath
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	cfg, err := configloader.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	zapLogger, err := logger.InitZap(cfg.Logging.Level, cfg.Logging.Production)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()

	if cfg.Logging.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("Escrow wallet service starting", "config", configPath, "network", cfg.Network.Identifier)

	app, err := bootstrap.Build(cfg, zapLogger)
	if err != nil {
		logger.Fatal("Failed to initialize services", "error", err)
	}
	defer app.Close()

	signer := app.Contract.SignerAddress()
	logger.Info("Token contract ready",
		"network", app.Network.Name,
		"token", app.Contract.TokenAddress(),
		"escrow", app.Contract.SpenderAddress(),
		"signer", signer,
		"readOnly", signer == "",
		"apiTokenRequired", cfg.Server.APIToken != "",
		"corsOrigins", len(cfg.Server.AllowedOrigins))

	apiLogger := logger.NewSlogAdapter("component", "restapi")
	sessions := restapi.NewSessionStore(time.Duration(cfg.Sessions.TTLMinutes) * time.Minute)
	router := restapi.SetupRouter(cfg, restapi.RouterDeps{
		Profile:   restapi.NewProfileHandler(app.Reader, signer, apiLogger),
		Allowance: restapi.NewAllowanceHandler(app.Reader, app.Approver, sessions, signer, apiLogger, app.WorkflowOptions()...),
		Metrics:   app.Metrics.Handler(),
		ZapLogger: zapLogger,
	})

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutdown signal received, stopping HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", "error", err)
	} else {
		logger.Info("HTTP server stopped")
	}
}
