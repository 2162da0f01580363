// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Auth     AuthConfig
	History  HistoryConfig
	Report   ReportConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty keeps history and
	// accounts in memory, which is only suitable for a single instance.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate applies pending migrations when the server starts (default: true)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"true"`
}

// Enabled reports whether a database is configured.
func (c *DatabaseConfig) Enabled() bool { return c.URL != "" }

// StorageConfig holds object storage settings for raw uploaded files.
type StorageConfig struct {
	// Endpoint is the S3-compatible host:port. Empty keeps blobs in memory.
	Endpoint string `env:"STORAGE_ENDPOINT" envAlt:"MINIO_ENDPOINT"`

	AccessKey string `env:"STORAGE_ACCESS_KEY" envAlt:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"STORAGE_SECRET_KEY" envAlt:"MINIO_SECRET_KEY"`

	// Bucket holds every dataset object (default: datasets)
	Bucket string `env:"STORAGE_BUCKET" default:"datasets"`

	// UseSSL enables TLS to the storage endpoint (default: false)
	UseSSL bool `env:"STORAGE_USE_SSL" default:"false"`
}

// Enabled reports whether object storage is configured.
func (c *StorageConfig) Enabled() bool { return c.Endpoint != "" }

// RedisConfig holds the optional shared rate-limit store.
type RedisConfig struct {
	// Addr is host:port. Empty keeps rate-limit counters per process.
	Addr string `env:"REDIS_ADDR"`

	Password string `env:"REDIS_PASSWORD"`

	DB int `env:"REDIS_DB" default:"0"`
}

// Enabled reports whether Redis is configured.
func (c *RedisConfig) Enabled() bool { return c.Addr != "" }

// UploadConfig holds CSV upload processing settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 10MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the maximum number of parallel uploads (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for an upload slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single upload operation (default: 2m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"2m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for upload endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`

	// AuthLimit is requests per minute for register and login (default: 20)
	AuthLimit int `env:"RATE_LIMIT_AUTH" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// AllowedOrigins is a comma-separated CORS allow list for the API
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
}

// AuthConfig holds account and token settings.
type AuthConfig struct {
	// TokenTTL is how long an issued token stays valid (default: 24h)
	TokenTTL time.Duration `env:"AUTH_TOKEN_TTL" default:"24h"`

	// PurgeInterval is how often expired tokens are deleted (default: 1h)
	PurgeInterval time.Duration `env:"AUTH_PURGE_INTERVAL" default:"1h"`

	// BcryptCost is the password hashing cost (default: 10)
	BcryptCost int `env:"AUTH_BCRYPT_COST" default:"10"`
}

// HistoryConfig holds per-user dataset history settings.
type HistoryConfig struct {
	// Capacity is the number of datasets kept per user (default: 5)
	Capacity int `env:"HISTORY_CAPACITY" default:"5"`
}

// ReportConfig holds PDF report settings.
type ReportConfig struct {
	// CacheMaxBytes bounds the rendered report cache (default: 64MB, 0 disables)
	CacheMaxBytes int64 `env:"REPORT_CACHE_MAX_BYTES" default:"67108864"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
