package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Engine.LockTimeout)
	assert.Equal(t, 0, cfg.Engine.ContentionRetries)
	assert.Empty(t, cfg.Engine.BootstrapAssets)
	assert.Equal(t, "INFO", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ENGINE_LOCK_TIMEOUT", "250ms")
	t.Setenv("ENGINE_CONTENTION_RETRIES", "3")
	t.Setenv("BOOTSTRAP_ASSETS", " btc-2030, ,eth-2030 ")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "Console")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DATABASE_ENABLED", "true")

	cfg := FromEnv()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.LockTimeout)
	assert.Equal(t, 3, cfg.Engine.ContentionRetries)
	assert.Equal(t, []string{"btc-2030", "eth-2030"}, cfg.Engine.BootstrapAssets)
	assert.Equal(t, "DEBUG", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Database.Enabled)
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("ENGINE_CONTENTION_RETRIES", "many")
	t.Setenv("ENGINE_LOCK_TIMEOUT", "soon")

	cfg := FromEnv()
	assert.Equal(t, 0, cfg.Engine.ContentionRetries)
	assert.Equal(t, 2*time.Second, cfg.Engine.LockTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }, "PORT"},
		{"zero lock timeout", func(c *Config) { c.Engine.LockTimeout = 0 }, "ENGINE_LOCK_TIMEOUT"},
		{"negative retries", func(c *Config) { c.Engine.ContentionRetries = -1 }, "ENGINE_CONTENTION_RETRIES"},
		{"trade limits", func(c *Config) { c.API.MaxTradeLimit = 1 }, "MAX_TRADE_LIMIT"},
		{"depth", func(c *Config) { c.API.DefaultOrderBookDepth = 0 }, "DEFAULT_ORDERBOOK_DEPTH"},
		{"batch", func(c *Config) { c.API.MaxBatchSize = 0 }, "MAX_BATCH_SIZE"},
		{"log level", func(c *Config) { c.Logger.Level = "TRACE" }, "LOG_LEVEL"},
		{"log format", func(c *Config) { c.Logger.Format = "xml" }, "LOG_FORMAT"},
		{"kafka brokers", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }, "KAFKA_BROKERS"},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "METRICS_PATH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
