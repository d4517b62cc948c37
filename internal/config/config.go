package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName  string
	AppEnv   string
	AppURL   string
	Port     string
	LogLevel string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string
	AutoMigrate  bool

	// Security
	JWTSecret         string
	JWTExpiry         time.Duration
	SignupTokenExpiry time.Duration

	// OAuth (a provider is enabled when its client id is set)
	GoogleClientID       string
	GoogleClientSecret   string
	GitHubClientID       string
	GitHubClientSecret   string
	FacebookClientID     string
	FacebookClientSecret string

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Observability (optional)
	SentryDSN string

	// Uploads
	StorageDriver   string // "local" or "s3"
	UploadPath      string
	UploadURLPrefix string
	MaxUploadSize   int64

	// Storage (S3-compatible: MinIO, AWS S3, Cloudflare R2, DigitalOcean Spaces, etc.)
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3Endpoint      string        // Optional: for S3-compatible services (MinIO, DO Spaces, R2, etc.)
	S3PresignExpiry time.Duration // Expiry for presigned upload reads

	// Sentinel admin account
	AdminEmail string

	// Tumblr (optional)
	TumblrAPIKey string
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:  envString("APP_NAME", "Pemoi"),
		AppEnv:   envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:   envRequired("APP_URL"), // Required: base URL for OAuth redirects
		Port:     envString("PORT", "8090"),
		LogLevel: envString("LOG_LEVEL", ""),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/pemoi.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),
		AutoMigrate:  envBool("AUTO_MIGRATE", true),

		// Security
		JWTSecret:         envRequired("JWT_SECRET"),
		JWTExpiry:         envDuration("JWT_EXPIRY", 168*time.Hour),          // 7 days
		SignupTokenExpiry: envDuration("SIGNUP_TOKEN_EXPIRY", 30*time.Minute), // 30 minutes

		// OAuth
		GoogleClientID:       envString("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   envString("GOOGLE_CLIENT_SECRET", ""),
		GitHubClientID:       envString("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret:   envString("GITHUB_CLIENT_SECRET", ""),
		FacebookClientID:     envString("FACEBOOK_CLIENT_ID", ""),
		FacebookClientSecret: envString("FACEBOOK_CLIENT_SECRET", ""),

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "noreply@pemoi.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Uploads
		StorageDriver:   envString("STORAGE_DRIVER", "local"),
		UploadPath:      envString("UPLOAD_PATH", "./data/uploads"),
		UploadURLPrefix: envString("UPLOAD_URL_PREFIX", "/static/users"),
		MaxUploadSize:   envInt64("MAX_UPLOAD_SIZE", 10<<20), // 10MB

		S3Region:        envString("S3_REGION", ""),
		S3Bucket:        envString("S3_BUCKET", ""),
		S3AccessKey:     envString("S3_ACCESS_KEY", ""),
		S3SecretKey:     envString("S3_SECRET_KEY", ""),
		S3Endpoint:      envString("S3_ENDPOINT", ""),
		S3PresignExpiry: envDuration("S3_PRESIGN_EXPIRY", 1*time.Hour),

		AdminEmail: envString("ADMIN_EMAIL", "admin@pemoi.com"),

		TumblrAPIKey: envString("TUMBLR_API_KEY", ""),
	}

	if cfg.StorageDriver == "s3" {
		validateS3(cfg)
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures all required services are configured for production deployments.
// Development allows email to use the log fallback for easier local testing.
func validateProduction(cfg *Config) {
	if cfg.ResendAPIKey == "" {
		slog.Error("production deployment requires RESEND_API_KEY",
			"hint", "set APP_ENV=development for local testing with email log mode")
		os.Exit(1)
	}
}

func validateS3(cfg *Config) {
	missing := []string{}
	for key, value := range map[string]string{
		"S3_REGION":     cfg.S3Region,
		"S3_BUCKET":     cfg.S3Bucket,
		"S3_ACCESS_KEY": cfg.S3AccessKey,
		"S3_SECRET_KEY": cfg.S3SecretKey,
	} {
		if value == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		slog.Error("STORAGE_DRIVER=s3 requires S3 settings", "missing", missing)
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		slog.Warn("config invalid integer, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// OAuthEnabled reports whether a sign-in provider has credentials configured.
func (c *Config) OAuthEnabled(provider string) bool {
	switch provider {
	case "google":
		return c.GoogleClientID != ""
	case "github":
		return c.GitHubClientID != ""
	case "facebook":
		return c.FacebookClientID != ""
	}
	return false
}

// Sanitized returns a copy of the config with only public/safe fields.
// All secrets, credentials, and sensitive data are excluded.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName:         c.AppName,
		AppEnv:          c.AppEnv,
		AppURL:          c.AppURL,
		Port:            c.Port,
		DBDriver:        c.DBDriver,
		StorageDriver:   c.StorageDriver,
		UploadURLPrefix: c.UploadURLPrefix,
		MaxUploadSize:   c.MaxUploadSize,

		EmailFrom: c.EmailFrom,

		GoogleClientID:   c.GoogleClientID,
		GitHubClientID:   c.GitHubClientID,
		FacebookClientID: c.FacebookClientID,

		S3Endpoint: c.S3Endpoint,
	}
}
