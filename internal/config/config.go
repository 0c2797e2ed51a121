package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the API server and the admin CLI.
type Config struct {
	Env  string
	Port string

	MongoURI      string
	MongoDatabase string
	// StoreDriver selects the persistence backend: "mongo" or "memory".
	StoreDriver string

	JWTSecret    string
	SessionTTL   time.Duration
	AdminCookie  string
	UserCookie   string
	CookieSecure bool

	AllowedOrigins string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MediaPublicURL string
	MediaMaxBytes  int64

	PaystackSecretKey   string
	PaystackBaseURL     string
	PaystackCallbackURL string
	Currency            string

	FirebaseCredentials string

	NotifyWebhookURL string
	NotifyWorkers    int
	// NotifyRateLimit is the number of admin notification sends allowed per sender per minute.
	NotifyRateLimit int

	SendgridAPIKey string
	MailFrom       string

	RollbarToken string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "DEV")
	v.SetDefault("port", "8080")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_database", "coursehub")
	v.SetDefault("store_driver", "mongo")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("session_ttl", 24*time.Hour)
	v.SetDefault("admin_cookie", "admin_token")
	v.SetDefault("user_cookie", "user_token")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("allowed_origins", "http://localhost:3000")
	v.SetDefault("minio_endpoint", "localhost:9000")
	v.SetDefault("minio_access_key", "minioadmin")
	v.SetDefault("minio_secret_key", "minioadmin")
	v.SetDefault("minio_bucket", "coursehub-media")
	v.SetDefault("minio_use_ssl", false)
	v.SetDefault("media_public_url", "")
	v.SetDefault("media_max_bytes", int64(200<<20))
	v.SetDefault("paystack_secret_key", "")
	v.SetDefault("paystack_base_url", "https://api.paystack.co")
	v.SetDefault("paystack_callback_url", "http://localhost:3000/checkout/complete")
	v.SetDefault("currency", "NGN")
	v.SetDefault("firebase_credentials", "")
	v.SetDefault("notify_webhook_url", "")
	v.SetDefault("notify_workers", 4)
	v.SetDefault("notify_rate_limit", 10)
	v.SetDefault("sendgrid_api_key", "")
	v.SetDefault("mail_from", "noreply@coursehub.local")
	v.SetDefault("rollbar_token", "")
}

// Load reads an optional .env file and resolves every key from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(errors.Cause(err)) {
			log.Printf("config: .env not loaded: %v", err)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.AutomaticEnv()

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Env:                 strings.ToUpper(v.GetString("env")),
		Port:                v.GetString("port"),
		MongoURI:            v.GetString("mongo_uri"),
		MongoDatabase:       v.GetString("mongo_database"),
		StoreDriver:         strings.ToLower(v.GetString("store_driver")),
		JWTSecret:           v.GetString("jwt_secret"),
		SessionTTL:          v.GetDuration("session_ttl"),
		AdminCookie:         v.GetString("admin_cookie"),
		UserCookie:          v.GetString("user_cookie"),
		CookieSecure:        v.GetBool("cookie_secure"),
		AllowedOrigins:      v.GetString("allowed_origins"),
		MinioEndpoint:       v.GetString("minio_endpoint"),
		MinioAccessKey:      v.GetString("minio_access_key"),
		MinioSecretKey:      v.GetString("minio_secret_key"),
		MinioBucket:         v.GetString("minio_bucket"),
		MinioUseSSL:         v.GetBool("minio_use_ssl"),
		MediaPublicURL:      v.GetString("media_public_url"),
		MediaMaxBytes:       v.GetInt64("media_max_bytes"),
		PaystackSecretKey:   v.GetString("paystack_secret_key"),
		PaystackBaseURL:     v.GetString("paystack_base_url"),
		PaystackCallbackURL: v.GetString("paystack_callback_url"),
		Currency:            strings.ToUpper(v.GetString("currency")),
		FirebaseCredentials: v.GetString("firebase_credentials"),
		NotifyWebhookURL:    v.GetString("notify_webhook_url"),
		NotifyWorkers:       v.GetInt("notify_workers"),
		NotifyRateLimit:     v.GetInt("notify_rate_limit"),
		SendgridAPIKey:      v.GetString("sendgrid_api_key"),
		MailFrom:            v.GetString("mail_from"),
		RollbarToken:        v.GetString("rollbar_token"),
	}
}

// IsDev reports whether the server runs in a local or test environment.
func (c *Config) IsDev() bool {
	return c.Env == "DEV" || c.Env == "TEST"
}

// IsTest reports whether the app runs under the test environment.
func (c *Config) IsTest() bool {
	return c.Env == "TEST"
}

// Validate checks required settings and fills defaults for tunables left unset.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if !c.IsDev() {
			return errors.New("config: JWT_SECRET is required outside DEV/TEST")
		}
		c.JWTSecret = "dev-secret-change-me"
	}
	if c.StoreDriver != "mongo" && c.StoreDriver != "memory" {
		return errors.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	if c.NotifyWorkers <= 0 {
		c.NotifyWorkers = 1
	}
	if c.NotifyRateLimit <= 0 {
		c.NotifyRateLimit = 10
	}
	if c.MediaMaxBytes <= 0 {
		return errors.New("config: MEDIA_MAX_BYTES must be positive")
	}
	if c.MediaPublicURL == "" {
		scheme := "http"
		if c.MinioUseSSL {
			scheme = "https"
		}
		c.MediaPublicURL = scheme + "://" + c.MinioEndpoint + "/" + c.MinioBucket
	}
	return nil
}
