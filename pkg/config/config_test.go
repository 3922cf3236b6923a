package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8082", cfg.Server.Address)
	assert.Equal(t, "http://localhost:8082", cfg.Streaming.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Streaming.Timeout)
	assert.Equal(t, 3, cfg.Streaming.MaxRetries)
	assert.Equal(t, []int{502, 503, 504}, cfg.Streaming.RetryStatuses)
	assert.Equal(t, 100*time.Millisecond, cfg.Streaming.BackoffStep)
	assert.False(t, cfg.Streaming.FastMode)
	assert.Equal(t, "demo_app@nanit.com", cfg.Mobile.Username)
	assert.Equal(t, "ios", cfg.Mobile.Platform)
	assert.Equal(t, 5, cfg.Segments.Count)
	assert.Equal(t, 102400, cfg.Segments.SizeBytes)
}

func TestLoad_UsesDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load("non-existent-config.yaml")
	require.NoError(t, err)
	assert.Equal(t, ":8082", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "normal", cfg.Network.InitialCondition)
}

func TestLoad_LoadsFromYAMLAndAppliesEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, `
server:
  address: ":9000"
  read_timeout: 10s
  write_timeout: 15s

network:
  initial_condition: poor
  simulate_delay: false
  seed: 42

streaming:
  base_url: "http://mock:9000"
  max_retries: 5
  retry_statuses: [503]

logging:
  level: "debug"
`)

	t.Setenv("STREAMQA_SERVER_ADDRESS", ":7000")
	t.Setenv("STREAMING_TIMEOUT", "2.5")
	t.Setenv("FAST_MODE", "TRUE")
	t.Setenv("MOB_USER", "qa@example.com")
	t.Setenv("MOB_PLATFORM", "Android")

	cfg, err := Load(path)
	require.NoError(t, err)

	// YAML values
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "poor", cfg.Network.InitialCondition)
	assert.False(t, cfg.Network.SimulateDelay)
	assert.Equal(t, int64(42), cfg.Network.Seed)
	assert.Equal(t, "http://mock:9000", cfg.Streaming.BaseURL)
	assert.Equal(t, 5, cfg.Streaming.MaxRetries)
	assert.Equal(t, []int{503}, cfg.Streaming.RetryStatuses)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Defaults survive partial YAML
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	// Env overrides
	assert.Equal(t, ":7000", cfg.Server.Address)
	assert.Equal(t, 2500*time.Millisecond, cfg.Streaming.Timeout)
	assert.True(t, cfg.Streaming.FastMode)
	assert.Equal(t, "qa@example.com", cfg.Mobile.Username)
	assert.Equal(t, "Android", cfg.Mobile.Platform)
}

func TestLoad_FastModeOnlyForTrue(t *testing.T) {
	t.Setenv("FAST_MODE", "yes")

	cfg, err := Load("non-existent-config.yaml")
	require.NoError(t, err)
	assert.False(t, cfg.Streaming.FastMode)
}

func TestLoad_InvalidTimeoutEnv(t *testing.T) {
	t.Setenv("STREAMING_TIMEOUT", "soon")

	_, err := Load("non-existent-config.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAMLValues(t *testing.T) {
	path := writeTempConfig(t, `
network:
  initial_condition: bogus
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network.initial_condition")
}

func TestValidate_BlankRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		blank func(cfg *Config)
		want  string
	}{
		{"server address", func(cfg *Config) { cfg.Server.Address = " " }, "server.address is required"},
		{"logging level", func(cfg *Config) { cfg.Logging.Level = "" }, "logging.level is required"},
		{"token secret", func(cfg *Config) { cfg.Mobile.TokenSecret = "" }, "mobile.token_secret is required"},
		{"redis address", func(cfg *Config) {
			cfg.Redis.Enabled = true
			cfg.Redis.Address = ""
		}, "redis.address is required when redis.enabled=true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.blank(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestLoadFirst(t *testing.T) {
	path := writeTempConfig(t, `
server:
  address: ":9100"
`)

	cfg, used, err := LoadFirst("missing-a.yaml", path, "missing-b.yaml")
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, ":9100", cfg.Server.Address)

	cfg, used, err = LoadFirst("missing-a.yaml")
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, ":8082", cfg.Server.Address)
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "empty server address",
			mutate: func(c *Config) { c.Server.Address = "" },
		},
		{
			name:   "unknown initial condition",
			mutate: func(c *Config) { c.Network.InitialCondition = "great" },
		},
		{
			name:   "no segments",
			mutate: func(c *Config) { c.Segments.Count = 0 },
		},
		{
			name:   "redis without address",
			mutate: func(c *Config) { c.Redis.Enabled = true; c.Redis.Address = "" },
		},
		{
			name: "rate limiting with zero rps",
			mutate: func(c *Config) {
				c.RateLimiting.Enabled = true
				c.RateLimiting.HTTP.RequestsPerSecond = 0
			},
		},
		{
			name:   "tracing sample rate out of range",
			mutate: func(c *Config) { c.Tracing.Enabled = true; c.Tracing.SampleRate = 2 },
		},
		{
			name:   "relative base url",
			mutate: func(c *Config) { c.Streaming.BaseURL = "localhost:8082" },
		},
		{
			name:   "zero retries",
			mutate: func(c *Config) { c.Streaming.MaxRetries = 0 },
		},
		{
			name:   "bad retry status",
			mutate: func(c *Config) { c.Streaming.RetryStatuses = []int{999} },
		},
		{
			name:   "breaker without cooldown",
			mutate: func(c *Config) { c.Streaming.BreakerThreshold = 3; c.Streaming.BreakerCooldown = 0 },
		},
		{
			name:   "invalid username",
			mutate: func(c *Config) { c.Mobile.Username = "not-an-email" },
		},
		{
			name:   "unknown platform",
			mutate: func(c *Config) { c.Mobile.Platform = "windows" },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)

			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for case %q, got nil", tc.name)
			}
		})
	}
}
