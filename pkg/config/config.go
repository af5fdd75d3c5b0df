// Package config loads application configuration from an optional YAML file
// and environment variables. Environment variables win over file values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Audit         AuditConfig         `yaml:"audit"`
	Archive       ArchiveConfig       `yaml:"archive"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// DatabaseConfig holds persistence settings. Driver is "postgres" or
// "memory"; memory is for development and tests only.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig holds Redis settings used by the distributed rate limiter.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RateLimitConfig holds request rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`

	// Distributed switches to the Redis-backed limiter so limits hold
	// across replicas.
	Distributed bool `yaml:"distributed"`
}

// AuditConfig holds audit trail settings.
type AuditConfig struct {
	// FilePath enables the NDJSON file sink when non-empty.
	FilePath string `yaml:"file_path"`

	// FileMaxSizeMB triggers rotation of the file sink.
	FileMaxSizeMB int64 `yaml:"file_max_size_mb"`

	// DBEnabled enables the database sink.
	DBEnabled bool `yaml:"db_enabled"`
}

// ArchiveConfig holds settings for the audit archiver binary.
type ArchiveConfig struct {
	Schedule       string `yaml:"schedule"`
	S3Bucket       string `yaml:"s3_bucket"`
	S3Region       string `yaml:"s3_region"`
	S3Prefix       string `yaml:"s3_prefix"`
	S3Endpoint     string `yaml:"s3_endpoint"`
	S3AccessKey    string `yaml:"s3_access_key"`
	S3SecretKey    string `yaml:"s3_secret_key"`
	S3UsePathStyle bool   `yaml:"s3_use_path_style"`

	// RetainDays bounds how far back each archive run exports.
	RetainDays int `yaml:"retain_days"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// LogLevel is parsed with observability.ParseLogLevel.
	LogLevel string `yaml:"log_level"`

	MetricsEnabled bool `yaml:"metrics_enabled"`

	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelEnvironment    string  `yaml:"otel_environment"`
	OTelSampleRate     float64 `yaml:"otel_sample_rate"`
}

// DefaultConfig returns the baseline configuration before file and
// environment overlays.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Database: DatabaseConfig{
			Driver:          "memory",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Audit: AuditConfig{
			FileMaxSizeMB: 100,
			DBEnabled:     true,
		},
		Archive: ArchiveConfig{
			Schedule:   "0 3 * * *",
			S3Region:   "us-east-1",
			S3Prefix:   "audit",
			RetainDays: 1,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelServiceName:    "openbay",
			OTelServiceVersion: "dev",
			OTelEnvironment:    "development",
			OTelSampleRate:     1.0,
		},
	}
}

// Load builds configuration from defaults, an optional YAML file, and
// environment variables, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("OPENBAY_CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("OPENBAY_HOST", c.Server.Host)
	c.Server.Port = getEnv("OPENBAY_PORT", c.Server.Port)
	c.Server.HealthPort = getEnv("OPENBAY_HEALTH_PORT", c.Server.HealthPort)
	c.Server.ReadTimeout = getEnvDuration("OPENBAY_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("OPENBAY_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("OPENBAY_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("OPENBAY_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Database.Driver = getEnv("OPENBAY_DB_DRIVER", c.Database.Driver)
	c.Database.URL = getEnv("OPENBAY_DB_URL", c.Database.URL)
	c.Database.MaxOpenConns = getEnvInt("OPENBAY_DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvInt("OPENBAY_DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetime = getEnvDuration("OPENBAY_DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime)

	c.Redis.Enabled = getEnvBool("OPENBAY_REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = getEnv("OPENBAY_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("OPENBAY_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("OPENBAY_REDIS_DB", c.Redis.DB)

	c.RateLimit.Enabled = getEnvBool("OPENBAY_RATELIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.RequestsPerSecond = getEnvFloat("OPENBAY_RATELIMIT_RPS", c.RateLimit.RequestsPerSecond)
	c.RateLimit.Burst = getEnvInt("OPENBAY_RATELIMIT_BURST", c.RateLimit.Burst)
	c.RateLimit.Distributed = getEnvBool("OPENBAY_RATELIMIT_DISTRIBUTED", c.RateLimit.Distributed)

	c.Audit.FilePath = getEnv("OPENBAY_AUDIT_FILE_PATH", c.Audit.FilePath)
	c.Audit.FileMaxSizeMB = getEnvInt64("OPENBAY_AUDIT_FILE_MAX_SIZE_MB", c.Audit.FileMaxSizeMB)
	c.Audit.DBEnabled = getEnvBool("OPENBAY_AUDIT_DB_ENABLED", c.Audit.DBEnabled)

	c.Archive.Schedule = getEnv("OPENBAY_ARCHIVE_SCHEDULE", c.Archive.Schedule)
	c.Archive.S3Bucket = getEnv("OPENBAY_ARCHIVE_S3_BUCKET", c.Archive.S3Bucket)
	c.Archive.S3Region = getEnv("OPENBAY_ARCHIVE_S3_REGION", c.Archive.S3Region)
	c.Archive.S3Prefix = getEnv("OPENBAY_ARCHIVE_S3_PREFIX", c.Archive.S3Prefix)
	c.Archive.S3Endpoint = getEnv("OPENBAY_ARCHIVE_S3_ENDPOINT", c.Archive.S3Endpoint)
	c.Archive.S3AccessKey = getEnv("OPENBAY_ARCHIVE_S3_ACCESS_KEY", c.Archive.S3AccessKey)
	c.Archive.S3SecretKey = getEnv("OPENBAY_ARCHIVE_S3_SECRET_KEY", c.Archive.S3SecretKey)
	c.Archive.S3UsePathStyle = getEnvBool("OPENBAY_ARCHIVE_S3_USE_PATH_STYLE", c.Archive.S3UsePathStyle)
	c.Archive.RetainDays = getEnvInt("OPENBAY_ARCHIVE_RETAIN_DAYS", c.Archive.RetainDays)

	c.Observability.LogLevel = getEnv("OPENBAY_LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.MetricsEnabled = getEnvBool("OPENBAY_METRICS_ENABLED", c.Observability.MetricsEnabled)
	c.Observability.OTelEnabled = getEnvBool("OPENBAY_OTEL_ENABLED", c.Observability.OTelEnabled)
	c.Observability.OTelEndpoint = getEnv("OPENBAY_OTEL_ENDPOINT", c.Observability.OTelEndpoint)
	c.Observability.OTelServiceName = getEnv("OPENBAY_OTEL_SERVICE_NAME", c.Observability.OTelServiceName)
	c.Observability.OTelServiceVersion = getEnv("OPENBAY_OTEL_SERVICE_VERSION", c.Observability.OTelServiceVersion)
	c.Observability.OTelEnvironment = getEnv("OPENBAY_OTEL_ENVIRONMENT", c.Observability.OTelEnvironment)
	c.Observability.OTelSampleRate = getEnvFloat("OPENBAY_OTEL_SAMPLE_RATE", c.Observability.OTelSampleRate)
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver: %s", c.Database.Driver)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port must not be empty")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid server port: %s", c.Server.Port)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate limit requests per second must be positive")
		}
		if c.RateLimit.Distributed && !c.Redis.Enabled {
			return fmt.Errorf("distributed rate limiting requires redis to be enabled")
		}
	}

	if c.Observability.OTelEnabled && c.Observability.OTelEndpoint == "" {
		return fmt.Errorf("OTel endpoint is required when OTel is enabled")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
