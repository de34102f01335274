package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProductionConfig_Defaults(t *testing.T) {
	cfg, err := LoadProductionConfig()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 3, cfg.Upstream.MaxAttempts)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, cfg.Upstream.Backoffs)
	assert.Equal(t, []int{3}, cfg.Scheduler.Levels)
	assert.Equal(t, "0 0 3 5 * *", cfg.Scheduler.CronSpec)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Query.CacheTTL)
}

func TestLoadProductionConfig_FromEnvironment(t *testing.T) {
	t.Setenv("DB_NAME", "prices")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("UPSTREAM_BACKOFFS", "1s,3s")
	t.Setenv("UPSTREAM_USE_MOCK", "true")
	t.Setenv("SCHEDULER_ENABLED", "true")
	t.Setenv("SCHEDULER_LEVELS", "1,3,5")
	t.Setenv("SCHEDULER_PROVINCE_ID", "31")

	cfg, err := LoadProductionConfig()
	require.NoError(t, err)

	assert.Equal(t, "prices", cfg.Database.Name)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second}, cfg.Upstream.Backoffs)
	assert.True(t, cfg.Upstream.UseMock)
	assert.Equal(t, []int{1, 3, 5}, cfg.Scheduler.Levels)
	assert.Equal(t, "31", cfg.Scheduler.ProvinceID)
}

func TestLoadProductionConfig_BadListsFallBack(t *testing.T) {
	t.Setenv("UPSTREAM_BACKOFFS", "1s,soon")
	t.Setenv("SCHEDULER_LEVELS", "3,x")
	t.Setenv("SERVER_PORT", "not-a-number")

	cfg, err := LoadProductionConfig()
	require.NoError(t, err)
	assert.Len(t, cfg.Upstream.Backoffs, 3)
	assert.Equal(t, []int{3}, cfg.Scheduler.Levels)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoadProductionConfig_DotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DB_NAME=from_file\nDB_USER=file_user\n"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("DB_NAME", "from_env")
	// registers a restore of DB_USER, which godotenv sets from the file
	t.Setenv("DB_USER", "")
	require.NoError(t, os.Unsetenv("DB_USER"))

	cfg, err := LoadProductionConfig()
	require.NoError(t, err)
	assert.Equal(t, "from_env", cfg.Database.Name)
	assert.Equal(t, "file_user", cfg.Database.User)
}

func TestValidateProductionConfig(t *testing.T) {
	valid := func() *ProductionConfig {
		cfg, err := LoadProductionConfig()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*ProductionConfig)
		wantErr string
	}{
		{"db port", func(c *ProductionConfig) { c.Database.Port = 0 }, "DB_PORT"},
		{"server port", func(c *ProductionConfig) { c.Server.Port = 70000 }, "SERVER_PORT"},
		{"log level", func(c *ProductionConfig) { c.Logging.Level = "trace" }, "LOG_LEVEL"},
		{"log encoding", func(c *ProductionConfig) { c.Logging.Encoding = "xml" }, "LOG_ENCODING"},
		{"log file", func(c *ProductionConfig) { c.Logging.Output = "file"; c.Logging.FilePath = "" }, "LOG_FILE_PATH"},
		{"redis url", func(c *ProductionConfig) { c.Cache.Enabled = true; c.Cache.RedisURL = "" }, "CACHE_REDIS_URL"},
		{"upstream url", func(c *ProductionConfig) { c.Upstream.UseMock = false; c.Upstream.BaseURL = "" }, "UPSTREAM_BASE_URL"},
		{"attempts", func(c *ProductionConfig) { c.Upstream.MaxAttempts = 0 }, "UPSTREAM_MAX_ATTEMPTS"},
		{"backoffs", func(c *ProductionConfig) { c.Upstream.Backoffs = nil }, "UPSTREAM_BACKOFFS"},
		{"scheduler level", func(c *ProductionConfig) { c.Scheduler.Enabled = true; c.Scheduler.Levels = []int{3, 6} }, "SCHEDULER_LEVELS"},
		{"scheduler spec", func(c *ProductionConfig) { c.Scheduler.Enabled = true; c.Scheduler.CronSpec = "" }, "SCHEDULER_CRON_SPEC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := ValidateProductionConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("mock upstream needs no url", func(t *testing.T) {
		cfg := valid()
		cfg.Upstream.UseMock = true
		cfg.Upstream.BaseURL = ""
		assert.NoError(t, ValidateProductionConfig(cfg))
	})
}

func TestDatabaseConfigDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=require", c.DSN())
}
