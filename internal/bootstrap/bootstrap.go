// Package bootstrap builds the long-lived dependencies shared by the API
// server and the admin CLI from configuration.
package bootstrap

import (
	"context"
	"net/http"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/arzan03/coursehub/internal/config"
	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/db/memory"
	"github.com/arzan03/coursehub/internal/identity"
	"github.com/arzan03/coursehub/internal/logger"
	"github.com/arzan03/coursehub/internal/mailer"
	"github.com/arzan03/coursehub/internal/payment"
	"github.com/arzan03/coursehub/internal/services"
	"github.com/arzan03/coursehub/internal/storage"
)

const appName = "CourseHub"

// OpenStore connects the configured persistence backend. The returned
// function releases it.
func OpenStore(ctx context.Context, cfg *config.Config) (*db.Store, func(context.Context) error, error) {
	if cfg.StoreDriver == "memory" {
		return memory.NewStore(), func(context.Context) error { return nil }, nil
	}
	client, err := db.ConnectMongoDB(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	database := client.Database(cfg.MongoDatabase)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, errors.Wrap(err, "ensuring indexes")
	}
	return db.NewMongoStore(database), client.Disconnect, nil
}

// Services wires every optional integration that is configured and builds
// the service layer on top of store.
func Services(ctx context.Context, cfg *config.Config, store *db.Store, log logger.Logger) (*services.Services, error) {
	httpClient := &http.Client{Timeout: 15 * time.Second}
	opts := services.Options{
		Store:            store,
		JWTSecret:        cfg.JWTSecret,
		SessionTTL:       cfg.SessionTTL,
		Logger:           log,
		Currency:         cfg.Currency,
		CallbackURL:      cfg.PaystackCallbackURL,
		MediaMaxBytes:    cfg.MediaMaxBytes,
		NotifyWebhookURL: cfg.NotifyWebhookURL,
		NotifyWorkers:    cfg.NotifyWorkers,
		HTTPClient:       httpClient,
	}

	if cfg.MinioEndpoint != "" {
		objects, err := storage.NewMinioStore(ctx, storage.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MediaPublicURL,
		})
		if err != nil {
			if !cfg.IsDev() {
				return nil, err
			}
			log.Warn("media storage unavailable, uploads disabled", err)
		} else {
			opts.Objects = objects
		}
	}

	if cfg.PaystackSecretKey != "" {
		opts.Gateway = payment.NewPaystack(cfg.PaystackSecretKey, cfg.PaystackBaseURL, httpClient)
	} else {
		log.Warn("PAYSTACK_SECRET_KEY not set, paid checkout disabled")
	}

	if cfg.FirebaseCredentials != "" {
		verifier, err := identity.NewFirebaseVerifier(ctx, cfg.FirebaseCredentials)
		if err != nil {
			return nil, err
		}
		opts.Identity = verifier
	}

	from, err := mail.ParseAddress(cfg.MailFrom)
	if err != nil {
		return nil, errors.Wrap(err, "parsing MAIL_FROM")
	}
	if cfg.SendgridAPIKey != "" {
		opts.Mailer = mailer.NewSendgrid(cfg.SendgridAPIKey, appName, *from)
	} else {
		opts.Mailer = mailer.NewConsole(appName, *from, log)
	}

	return services.New(opts), nil
}
