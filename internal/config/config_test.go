package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/skillprobe/internal/llm"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, 20, cfg.CAT.MaxItems)
	assert.Equal(t, 0.3, cfg.CAT.SEStop)
	assert.Equal(t, 0.2, cfg.BKT.Init)
	assert.Equal(t, "hybrid", cfg.Lookup.Strategy)
	assert.Equal(t, 3, cfg.Lookup.TopK)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.False(t, cfg.LLM.Enabled())
}

func TestFromEnvOverlays(t *testing.T) {
	t.Setenv("SKILLPROBE_DB_DRIVER", "postgres")
	t.Setenv("SKILLPROBE_DB", "postgres://localhost/probe")
	t.Setenv("SKILLPROBE_CAT_MAX_ITEMS", "12")
	t.Setenv("SKILLPROBE_CAT_SE_STOP", "0.25")
	t.Setenv("SKILLPROBE_BKT_SLIP", "0.05")
	t.Setenv("SKILLPROBE_REDIS_ADDR", "localhost:6379")
	t.Setenv("SKILLPROBE_REDIS_TTL", "30m")
	t.Setenv("SKILLPROBE_LOOKUP_TOP_K", "5")
	t.Setenv("SKILLPROBE_TRACING", "true")
	t.Setenv("SKILLPROBE_LLM_PROVIDER", "mock")

	cfg, err := FromEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "postgres://localhost/probe", cfg.DB.DSN)
	assert.Equal(t, 12, cfg.CAT.MaxItems)
	assert.Equal(t, 0.25, cfg.CAT.SEStop)
	assert.Equal(t, 0.05, cfg.BKT.Slip)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, 5, cfg.Lookup.TopK)
	assert.True(t, cfg.Tracing)
	assert.Equal(t, llm.ProviderMock, cfg.LLM.Provider)
}

func TestFromEnvReportsBadValues(t *testing.T) {
	t.Setenv("SKILLPROBE_CAT_MAX_ITEMS", "twenty")
	t.Setenv("SKILLPROBE_REDIS_TTL", "soon")

	_, err := FromEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SKILLPROBE_CAT_MAX_ITEMS")
	assert.Contains(t, err.Error(), "SKILLPROBE_REDIS_TTL")
}

func TestFromEnvLoadsDotenv(t *testing.T) {
	const key = "SKILLPROBE_LOOKUP_STRATEGY"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=keyword\n"), 0o600))

	cfg, err := FromEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "keyword", cfg.Lookup.Strategy)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown driver", func(c *Config) { c.DB.Driver = "mysql" }, "unknown database driver"},
		{"postgres without dsn", func(c *Config) { c.DB.Driver = "postgres" }, "postgres requires"},
		{"zero max items", func(c *Config) { c.CAT.MaxItems = 0 }, "max items"},
		{"zero se stop", func(c *Config) { c.CAT.SEStop = 0 }, "SE stop"},
		{"bkt out of range", func(c *Config) { c.BKT.Guess = 1.5 }, "bkt"},
		{"redis without ttl", func(c *Config) { c.Redis.Addr = "x:1"; c.Redis.TTL = 0 }, "redis TTL"},
		{"bad strategy", func(c *Config) { c.Lookup.Strategy = "semantic" }, "lookup strategy"},
		{"zero top-k", func(c *Config) { c.Lookup.TopK = 0 }, "top-k"},
		{"bad log mode", func(c *Config) { c.LogMode = "loud" }, "log mode"},
		{"llm without key", func(c *Config) { c.LLM.Provider = llm.ProviderAnthropic }, "llm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
