// Package config provides configuration management and environment variable handling for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database  DatabaseConfig  `json:"database"`
	Server    ServerConfig    `json:"server"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics"`
	Cache     CacheConfig     `json:"cache"`
	Upstream  UpstreamConfig  `json:"upstream"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Query     QueryConfig     `json:"query"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

// DSN renders the key/value connection string accepted by the postgres driver
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	AllowedOrigins  []string      `json:"allowed_origins"`
	GlobalRateLimit int           `json:"global_rate_limit"` // requests per minute
}

type LoggingConfig struct {
	Level      string `json:"level"`    // debug, info, warn, error
	Encoding   string `json:"encoding"` // json, console
	Output     string `json:"output"`   // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled     bool   `json:"enabled"`
	Provider    string `json:"provider"` // redis
	RedisURL    string `json:"redis_url"`
	RedisDB     int    `json:"redis_db"`
	RedisPrefix string `json:"redis_prefix"`
	// HealthInterval is how often the redis connection is pinged
	HealthInterval time.Duration `json:"health_interval"`
}

type UpstreamConfig struct {
	BaseURL     string          `json:"base_url"`
	Origin      string          `json:"origin"`
	Timeout     time.Duration   `json:"timeout"`
	MaxAttempts int             `json:"max_attempts"`
	Backoffs    []time.Duration `json:"backoffs"`
	UseMock     bool            `json:"use_mock"`
}

type SchedulerConfig struct {
	Enabled    bool          `json:"enabled"`
	CronSpec   string        `json:"cron_spec"`
	Levels     []int         `json:"levels"`
	ProvinceID string        `json:"province_id"`
	RunTimeout time.Duration `json:"run_timeout"`
}

type QueryConfig struct {
	CacheTTL time.Duration `json:"cache_ttl"`
}

// LoadProductionConfig reads the process environment, after merging a .env file when one exists
func LoadProductionConfig() (*ProductionConfig, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "harga_pangan"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8000),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 1*1024*1024), // 1MB
			AllowedOrigins:  getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			GlobalRateLimit: getEnvInt("GLOBAL_RATE_LIMIT", 600),
		},
		Logging: LoggingConfig{
			Level:      strings.ToLower(getEnvString("LOG_LEVEL", "info")),
			Encoding:   getEnvString("LOG_ENCODING", "json"),
			Output:     getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:   getEnvString("LOG_FILE_PATH", "data/harga-pangan.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:        getEnvBool("CACHE_ENABLED", false),
			Provider:       getEnvString("CACHE_PROVIDER", "redis"),
			RedisURL:       getEnvString("CACHE_REDIS_URL", "redis://localhost:6379/0"),
			RedisDB:        getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix:    getEnvString("CACHE_REDIS_PREFIX", "harga"),
			HealthInterval: getEnvDuration("CACHE_HEALTH_INTERVAL", 30*time.Second),
		},
		Upstream: UpstreamConfig{
			BaseURL:     getEnvString("UPSTREAM_BASE_URL", "https://api-panelhargav2.badanpangan.go.id/api/front/harga-pangan-bulanan-v2"),
			Origin:      getEnvString("UPSTREAM_ORIGIN", "https://panelharga.badanpangan.go.id"),
			Timeout:     getEnvDuration("UPSTREAM_TIMEOUT", 20*time.Second),
			MaxAttempts: getEnvInt("UPSTREAM_MAX_ATTEMPTS", 3),
			Backoffs:    getEnvDurationSlice("UPSTREAM_BACKOFFS", []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}),
			UseMock:     getEnvBool("UPSTREAM_USE_MOCK", false),
		},
		Scheduler: SchedulerConfig{
			Enabled:    getEnvBool("SCHEDULER_ENABLED", false),
			CronSpec:   getEnvString("SCHEDULER_CRON_SPEC", "0 0 3 5 * *"),
			Levels:     getEnvIntSlice("SCHEDULER_LEVELS", []int{3}),
			ProvinceID: getEnvString("SCHEDULER_PROVINCE_ID", ""),
			RunTimeout: getEnvDuration("SCHEDULER_RUN_TIMEOUT", 10*time.Minute),
		},
		Query: QueryConfig{
			CacheTTL: getEnvDuration("QUERY_CACHE_TTL", 5*time.Minute),
		},
	}

	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile merges key=value pairs from path into the environment without overriding set variables
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
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

func getEnvStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getEnvDurationSlice parses a comma separated list such as "2s,4s,8s"; any bad entry falls back to the default
func getEnvDurationSlice(key string, defaultValue []time.Duration) []time.Duration {
	parts := getEnvStringSlice(key, nil)
	if len(parts) == 0 {
		return defaultValue
	}
	out := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		d, err := time.ParseDuration(part)
		if err != nil {
			return defaultValue
		}
		out = append(out, d)
	}
	return out
}

func getEnvIntSlice(key string, defaultValue []int) []int {
	parts := getEnvStringSlice(key, nil)
	if len(parts) == 0 {
		return defaultValue
	}
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}

// ValidateProductionConfig reports every invalid setting in one error
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Validate database configuration
	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}

	// Validate logging configuration
	validLevels := []string{"debug", "info", "warn", "error"}
	if !containsString(validLevels, cfg.Logging.Level) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
	}
	if cfg.Logging.Encoding != "json" && cfg.Logging.Encoding != "console" {
		errors = append(errors, "LOG_ENCODING must be json or console")
	}
	if cfg.Logging.Output != "stdout" && cfg.Logging.FilePath == "" {
		errors = append(errors, "LOG_FILE_PATH is required when LOG_OUTPUT writes to a file")
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		if cfg.Cache.Provider == "redis" && cfg.Cache.RedisURL == "" {
			errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled with redis provider")
		}
	}

	// Validate upstream configuration
	if !cfg.Upstream.UseMock && cfg.Upstream.BaseURL == "" {
		errors = append(errors, "UPSTREAM_BASE_URL is required unless UPSTREAM_USE_MOCK is set")
	}
	if cfg.Upstream.Timeout <= 0 {
		errors = append(errors, "UPSTREAM_TIMEOUT must be positive")
	}
	if cfg.Upstream.MaxAttempts < 1 {
		errors = append(errors, "UPSTREAM_MAX_ATTEMPTS must be at least 1")
	}
	if len(cfg.Upstream.Backoffs) == 0 {
		errors = append(errors, "UPSTREAM_BACKOFFS must list at least one duration")
	}

	// Validate scheduler configuration if enabled
	if cfg.Scheduler.Enabled {
		if cfg.Scheduler.CronSpec == "" {
			errors = append(errors, "SCHEDULER_CRON_SPEC is required when the scheduler is enabled")
		}
		for _, level := range cfg.Scheduler.Levels {
			if level < 1 || level > 5 {
				errors = append(errors, "SCHEDULER_LEVELS entries must be between 1 and 5")
				break
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
