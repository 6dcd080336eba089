package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Media    MediaConfig
	Auth     AuthConfig
	Admin    AdminConfig
	Site     SiteConfig
	Chat     ChatConfig
	Orphans  OrphanConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"drc-backend"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Version     string `env:"APP_VERSION" envDefault:"1.0.0"`
}

type ServerConfig struct {
	Port         string        `env:"PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	// Upper bound for one request's work against the store and media host.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"20s"`
}

// StoreConfig selects the document backend: postgres, mongo or memory.
type StoreConfig struct {
	Driver string `env:"STORE_DRIVER" envDefault:"postgres"`
}

type DatabaseConfig struct {
	DSN       string        `env:"DB_DSN"`
	MaxConns  int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	MinConns  int32         `env:"DB_MIN_CONNS" envDefault:"1"`
	ConnectTO time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`
	PingTO    time.Duration `env:"DB_PING_TIMEOUT" envDefault:"2s"`
}

type MongoConfig struct {
	URI      string `env:"MONGODB_URI"`
	Database string `env:"MONGODB_DATABASE" envDefault:"drc"`
}

// RedisConfig is optional; an empty Addr switches cache, locks and the
// orphan ledger to their in-process variants.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type MediaConfig struct {
	Driver         string `env:"MEDIA_DRIVER" envDefault:"cloudinary"`
	MaxUploadBytes int64  `env:"MEDIA_MAX_UPLOAD_BYTES" envDefault:"5242880"`
	DefaultFolder  string `env:"MEDIA_DEFAULT_FOLDER" envDefault:"drc"`

	CloudinaryURL       string `env:"CLOUDINARY_URL"`
	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`

	S3Bucket        string `env:"S3_BUCKET"`
	S3Region        string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint      string `env:"S3_ENDPOINT"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
}

type AuthConfig struct {
	Mode string `env:"AUTH_MODE" envDefault:"firebase"`
	// FirebaseCredentialsPath points to the service-account JSON.
	FirebaseCredentialsPath string   `env:"FIREBASE_CREDENTIALS_PATH"`
	AdminEmails             []string `env:"ADMIN_EMAILS" envSeparator:","`
}

// AdminConfig shapes the admin form flow. AfterUpdate is "create" to reset
// the form after a successful edit or "edit" to keep the entity open.
type AdminConfig struct {
	AfterUpdate string `env:"ADMIN_AFTER_UPDATE" envDefault:"create"`
}

type SiteConfig struct {
	CacheTTL       time.Duration `env:"SITE_CACHE_TTL" envDefault:"60s"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

type ChatConfig struct {
	APIKey      string        `env:"GEMINI_API_KEY"`
	Model       string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	// BaseURL overrides the Gemini endpoint, e.g. for a proxy.
	BaseURL     string        `env:"GEMINI_BASE_URL"`
	Timeout     time.Duration `env:"GEMINI_TIMEOUT" envDefault:"30s"`
	RatePerMin  int           `env:"CHAT_RATE_PER_MINUTE" envDefault:"10"`
	UploadBurst int           `env:"UPLOAD_RATE_BURST" envDefault:"5"`
}

type OrphanConfig struct {
	Schedule    string `env:"ORPHAN_SWEEP_SCHEDULE" envDefault:"0 */30 * * * *"`
	BatchSize   int    `env:"ORPHAN_SWEEP_BATCH" envDefault:"50"`
	MaxAttempts int    `env:"ORPHAN_MAX_ATTEMPTS" envDefault:"10"`
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.Media.Driver = strings.ToLower(strings.TrimSpace(cfg.Media.Driver))
	cfg.Auth.Mode = strings.ToLower(strings.TrimSpace(cfg.Auth.Mode))
	cfg.Admin.AfterUpdate = strings.ToLower(strings.TrimSpace(cfg.Admin.AfterUpdate))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Store.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("DB_DSN is required when STORE_DRIVER=postgres")
		}
	case "mongo":
		if c.Mongo.URI == "" {
			return fmt.Errorf("MONGODB_URI is required when STORE_DRIVER=mongo")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Media.Driver {
	case "cloudinary":
		if c.Media.CloudinaryURL == "" && (c.Media.CloudinaryCloudName == "" || c.Media.CloudinaryAPIKey == "" || c.Media.CloudinaryAPISecret == "") {
			return fmt.Errorf("CLOUDINARY_URL or CLOUDINARY_CLOUD_NAME/API_KEY/API_SECRET are required when MEDIA_DRIVER=cloudinary")
		}
	case "s3":
		if c.Media.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when MEDIA_DRIVER=s3")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported MEDIA_DRIVER %q", c.Media.Driver)
	}
	if c.Media.MaxUploadBytes <= 0 {
		return fmt.Errorf("MEDIA_MAX_UPLOAD_BYTES must be positive")
	}

	switch c.Auth.Mode {
	case "firebase":
		if c.Auth.FirebaseCredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required when AUTH_MODE=firebase")
		}
	case "none":
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=none is not allowed in production")
		}
	default:
		return fmt.Errorf("unsupported AUTH_MODE %q", c.Auth.Mode)
	}

	switch c.Admin.AfterUpdate {
	case "create", "edit":
	default:
		return fmt.Errorf("ADMIN_AFTER_UPDATE must be create or edit, got %q", c.Admin.AfterUpdate)
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
