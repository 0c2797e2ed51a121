package main

import (
	"context"
	"log"
	"os"

	"github.com/arzan03/coursehub/internal/bootstrap"
	"github.com/arzan03/coursehub/internal/config"
	"github.com/arzan03/coursehub/internal/logger"
	"github.com/arzan03/coursehub/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	appLog := logger.New(logger.Options{Env: cfg.Env, RollbarToken: cfg.RollbarToken})

	ctx := context.Background()
	store, closeStore, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	// The CLI only manages accounts, so no external integrations are wired.
	svc := services.New(services.Options{
		Store:      store,
		JWTSecret:  cfg.JWTSecret,
		SessionTTL: cfg.SessionTTL,
		Logger:     appLog,
	})

	cli := newCommandLine(svc.Auth)
	runErr := cli.run(os.Args)

	svc.Close()
	_ = closeStore(context.Background())
	logger.Close()

	if runErr != nil {
		if runErr != errHelp {
			log.Printf("error: %v", runErr)
		}
		os.Exit(1)
	}
}
