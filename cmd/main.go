package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arzan03/coursehub/internal/bootstrap"
	"github.com/arzan03/coursehub/internal/config"
	"github.com/arzan03/coursehub/internal/logger"
	"github.com/arzan03/coursehub/internal/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	appLog := logger.New(logger.Options{Env: cfg.Env, RollbarToken: cfg.RollbarToken})
	defer logger.Close()

	ctx := context.Background()
	store, closeStore, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		appLog.Error("opening store", err)
		os.Exit(1)
	}

	svc, err := bootstrap.Services(ctx, cfg, store, appLog)
	if err != nil {
		appLog.Error("wiring services", err)
		os.Exit(1)
	}

	app := routes.New(cfg, svc, appLog)

	go func() {
		appLog.Info("listening", cfg.Port, cfg.StoreDriver)
		if err := app.Listen(":" + cfg.Port); err != nil {
			appLog.Error("server stopped", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("shutting down")
	if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
		appLog.Error("shutting down server", err)
	}
	svc.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := closeStore(shutdownCtx); err != nil {
		appLog.Error("closing store", err)
	}
}
