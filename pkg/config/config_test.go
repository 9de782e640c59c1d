package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 20, cfg.Crawl.PageSize)
	assert.Equal(t, 0, cfg.Crawl.ItemLimit)
	assert.Equal(t, 10, cfg.Crawl.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Crawl.InitialBackoff)
	assert.Equal(t, 5*time.Second, cfg.Crawl.MaxBackoff)
	assert.Equal(t, 2.0, cfg.Crawl.BackoffFactor)
	assert.Equal(t, 500*time.Millisecond, cfg.Crawl.InterPageDelay)
	assert.Equal(t, 3, cfg.Crawl.EmptyPageThreshold)
	assert.Equal(t, 50, cfg.Crawl.HardAttemptCeiling)
	assert.True(t, cfg.Crawl.AdvanceOnEmpty)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TTSCRAPER_COOKIE", "sessionid=abc")
	t.Setenv("TTSCRAPER_PROXY", "socks5://127.0.0.1:9050")
	t.Setenv("TTSCRAPER_PAGE_SIZE", "30")
	t.Setenv("TTSCRAPER_MAX_ATTEMPTS", "15")
	t.Setenv("TTSCRAPER_REQUESTS_PER_MINUTE", "30")
	t.Setenv("TTSCRAPER_INTER_PAGE_DELAY", "250ms")
	t.Setenv("TTSCRAPER_OUTPUT_DIR", "/tmp/tt-out")
	t.Setenv("TTSCRAPER_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "sessionid=abc", cfg.TikTok.Cookie)
	assert.Equal(t, "socks5://127.0.0.1:9050", cfg.HTTP.Proxy)
	assert.Equal(t, 30, cfg.Crawl.PageSize)
	assert.Equal(t, 15, cfg.Crawl.MaxAttempts)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 250*time.Millisecond, cfg.Crawl.InterPageDelay)
	assert.Equal(t, "/tmp/tt-out", cfg.Output.BaseDirectory)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidNumber(t *testing.T) {
	t.Setenv("TTSCRAPER_PAGE_SIZE", "twenty")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TTSCRAPER_PAGE_SIZE")
	assert.Equal(t, 20, cfg.Crawl.PageSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"page size zero", func(c *Config) { c.Crawl.PageSize = 0 }, "page size"},
		{"page size above ceiling", func(c *Config) { c.Crawl.PageSize = MaxPageSize + 1 }, "page size"},
		{"negative limit", func(c *Config) { c.Crawl.ItemLimit = -1 }, "item limit"},
		{"no attempts", func(c *Config) { c.Crawl.MaxAttempts = 0 }, "max attempts"},
		{"backoff inverted", func(c *Config) { c.Crawl.MaxBackoff = 10 * time.Millisecond }, "max backoff"},
		{"factor below one", func(c *Config) { c.Crawl.BackoffFactor = 0.5 }, "backoff factor"},
		{"jitter above one", func(c *Config) { c.Crawl.BackoffJitter = 1.5 }, "jitter"},
		{"empty threshold", func(c *Config) { c.Crawl.EmptyPageThreshold = 0 }, "empty page threshold"},
		{"ceiling", func(c *Config) { c.Crawl.HardAttemptCeiling = 0 }, "hard attempt ceiling"},
		{"bad proxy scheme", func(c *Config) { c.HTTP.Proxy = "ftp://proxy:21" }, "proxy scheme"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "log level"},
		{"no timeout", func(c *Config) { c.HTTP.Timeout = 0 }, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Crawl.PageSize = 0
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page size")
	assert.Contains(t, err.Error(), "log level")
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"cookie":           "sid=1",
		"limit":            100,
		"page-size":        25,
		"inter-page-delay": 200 * time.Millisecond,
		"parallel":         3,
		"report":           false,
		"log-level":        "warn",
	})

	assert.Equal(t, "sid=1", cfg.TikTok.Cookie)
	assert.Equal(t, 100, cfg.Crawl.ItemLimit)
	assert.Equal(t, 25, cfg.Crawl.PageSize)
	assert.Equal(t, 200*time.Millisecond, cfg.Crawl.InterPageDelay)
	assert.Equal(t, 3, cfg.Crawl.Parallel)
	assert.False(t, cfg.Output.WriteReport)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Crawl.PageSize = 15
	cfg.Crawl.MaxBackoff = 3 * time.Second
	cfg.Storage.DatabasePath = "/tmp/posts.db"
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, 15, loaded.Crawl.PageSize)
	assert.Equal(t, 3*time.Second, loaded.Crawl.MaxBackoff)
	assert.Equal(t, "/tmp/posts.db", loaded.Storage.DatabasePath)
}

func TestLoadFromFileDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
crawl:
  initial_backoff: 200ms
  max_backoff: 2s
  inter_page_delay: 300ms
  empty_page_threshold: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))
	assert.Equal(t, 200*time.Millisecond, cfg.Crawl.InitialBackoff)
	assert.Equal(t, 2*time.Second, cfg.Crawl.MaxBackoff)
	assert.Equal(t, 300*time.Millisecond, cfg.Crawl.InterPageDelay)
	assert.Equal(t, 4, cfg.Crawl.EmptyPageThreshold)
	// untouched keys keep their defaults
	assert.Equal(t, 20, cfg.Crawl.PageSize)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crawl:\n  page_size: 10\n  max_attempts: 4\n"), 0600))
	t.Setenv("TTSCRAPER_MAX_ATTEMPTS", "12")

	cfg, err := Load(path, map[string]interface{}{"page-size": 30})
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Crawl.PageSize)
	assert.Equal(t, 12, cfg.Crawl.MaxAttempts)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crawl:\n  page_size: 500\n"), 0600))

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}
