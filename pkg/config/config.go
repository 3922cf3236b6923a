package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"streamqa/pkg/validation"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Network struct {
		InitialCondition string `yaml:"initial_condition"`
		SimulateDelay    bool   `yaml:"simulate_delay"` // false: report sampled latency without sleeping
		Seed             int64  `yaml:"seed"`           // 0 seeds from the clock
	} `yaml:"network"`

	Segments struct {
		Count     int           `yaml:"count"`
		SizeBytes int           `yaml:"size_bytes"`
		Duration  time.Duration `yaml:"duration"`
	} `yaml:"segments"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
		Key      string `yaml:"key"`
	} `yaml:"redis"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
		} `yaml:"http"`
	} `yaml:"rate_limiting"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		ServiceName string  `yaml:"service_name"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	// Streaming configures the validator side (HTTP client) of the harness.
	Streaming struct {
		BaseURL       string        `yaml:"base_url"`
		Timeout       time.Duration `yaml:"timeout"`
		MaxRetries    int           `yaml:"max_retries"`
		RetryStatuses []int         `yaml:"retry_statuses"`
		BackoffStep   time.Duration `yaml:"backoff_step"`
		FastMode      bool          `yaml:"fast_mode"`

		// Consecutive failed calls before the validator stops contacting
		// the server for BreakerCooldown. 0 disables.
		BreakerThreshold int           `yaml:"breaker_threshold"`
		BreakerCooldown  time.Duration `yaml:"breaker_cooldown"`
	} `yaml:"streaming"`

	Mobile struct {
		Username    string        `yaml:"username"`
		Password    string        `yaml:"password"`
		Platform    string        `yaml:"platform"`
		TokenSecret string        `yaml:"token_secret"`
		TokenTTL    time.Duration `yaml:"token_ttl"`
	} `yaml:"mobile"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if err := validation.ValidateNonEmptyString(c.Server.Address, "server.address"); err != nil {
		return err
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Network
	if !validCondition(c.Network.InitialCondition) {
		return fmt.Errorf("network.initial_condition must be one of normal, poor, terrible")
	}

	// Segments
	if c.Segments.Count <= 0 {
		return fmt.Errorf("segments.count must be > 0")
	}
	if c.Segments.SizeBytes <= 0 {
		return fmt.Errorf("segments.size_bytes must be > 0")
	}
	if c.Segments.Duration <= 0 {
		return fmt.Errorf("segments.duration must be > 0")
	}

	// Logging
	if err := validation.ValidateNonEmptyString(c.Logging.Level, "logging.level"); err != nil {
		return err
	}

	// Redis
	if c.Redis.Enabled {
		if err := validation.ValidateNonEmptyString(c.Redis.Address, "redis.address"); err != nil {
			return fmt.Errorf("%w when redis.enabled=true", err)
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing is enabled")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
		}
	}

	// Streaming client
	if err := validation.ValidateBaseURL(c.Streaming.BaseURL); err != nil {
		return fmt.Errorf("streaming.base_url: %w", err)
	}
	if c.Streaming.Timeout <= 0 {
		return fmt.Errorf("streaming.timeout must be > 0")
	}
	if c.Streaming.MaxRetries < 1 {
		return fmt.Errorf("streaming.max_retries must be >= 1")
	}
	if c.Streaming.BackoffStep < 0 {
		return fmt.Errorf("streaming.backoff_step must be >= 0")
	}
	if c.Streaming.BreakerThreshold < 0 {
		return fmt.Errorf("streaming.breaker_threshold must be >= 0")
	}
	if c.Streaming.BreakerThreshold > 0 && c.Streaming.BreakerCooldown <= 0 {
		return fmt.Errorf("streaming.breaker_cooldown must be > 0 when the breaker is enabled")
	}
	for _, status := range c.Streaming.RetryStatuses {
		if status < 100 || status > 599 {
			return fmt.Errorf("streaming.retry_statuses contains invalid HTTP status %d", status)
		}
	}

	// Mobile
	if err := validation.ValidateEmail(c.Mobile.Username); err != nil {
		return fmt.Errorf("mobile.username: %w", err)
	}
	if err := validation.ValidatePassword(c.Mobile.Password); err != nil {
		return fmt.Errorf("mobile.password: %w", err)
	}
	if p := strings.ToLower(c.Mobile.Platform); p != "ios" && p != "android" {
		return fmt.Errorf("mobile.platform must be ios or android")
	}
	if err := validation.ValidateNonEmptyString(c.Mobile.TokenSecret, "mobile.token_secret"); err != nil {
		return err
	}
	if c.Mobile.TokenTTL <= 0 {
		return fmt.Errorf("mobile.token_ttl must be > 0")
	}

	return nil
}

// validCondition mirrors domain.ParseCondition; config stays free of internal imports.
func validCondition(name string) bool {
	switch name {
	case "normal", "poor", "terrible":
		return true
	}
	return false
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.applyEnvOverrides(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFirst tries each path in order and returns the first configuration that loads.
// Defaults (with env overrides) are returned when none of the paths exist.
func LoadFirst(paths ...string) (*Config, string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := Load(path)
		return cfg, path, err
	}

	cfg := DefaultConfig()
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8082"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 10 * time.Second

	cfg.Network.InitialCondition = "normal"
	cfg.Network.SimulateDelay = true

	cfg.Segments.Count = 5
	cfg.Segments.SizeBytes = 100 * 1024
	cfg.Segments.Duration = 10 * time.Second

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10
	cfg.Redis.Key = "streamqa:server_state"

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.HTTP.MaxConcurrent = 0

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "streamqa-mockserver"
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Streaming.BaseURL = "http://localhost:8082"
	cfg.Streaming.Timeout = 5 * time.Second
	cfg.Streaming.MaxRetries = 3
	cfg.Streaming.RetryStatuses = []int{502, 503, 504}
	cfg.Streaming.BackoffStep = 100 * time.Millisecond
	cfg.Streaming.FastMode = false
	cfg.Streaming.BreakerThreshold = 5
	cfg.Streaming.BreakerCooldown = 5 * time.Second

	cfg.Mobile.Username = "demo_app@nanit.com"
	cfg.Mobile.Password = "12341234"
	cfg.Mobile.Platform = "ios"
	cfg.Mobile.TokenSecret = "change-me-in-production"
	cfg.Mobile.TokenTTL = 15 * time.Minute

	return cfg
}

func (c *Config) applyEnvOverrides() error {
	if addr := os.Getenv("STREAMQA_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("STREAMQA_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if addr := os.Getenv("STREAMQA_REDIS_ADDRESS"); addr != "" {
		c.Redis.Enabled = true
		c.Redis.Address = addr
	}

	if baseURL := os.Getenv("STREAMING_BASE_URL"); baseURL != "" {
		c.Streaming.BaseURL = baseURL
	}
	if raw := os.Getenv("STREAMING_TIMEOUT"); raw != "" {
		seconds, err := strconv.ParseFloat(raw, 64)
		if err != nil || seconds <= 0 {
			return fmt.Errorf("invalid STREAMING_TIMEOUT %q: must be a positive number of seconds", raw)
		}
		c.Streaming.Timeout = time.Duration(seconds * float64(time.Second))
	}
	if raw := os.Getenv("FAST_MODE"); raw != "" {
		c.Streaming.FastMode = strings.EqualFold(raw, "true")
	}

	if user := os.Getenv("MOB_USER"); user != "" {
		c.Mobile.Username = user
	}
	if pass := os.Getenv("MOB_PASS"); pass != "" {
		c.Mobile.Password = pass
	}
	if platform := os.Getenv("MOB_PLATFORM"); platform != "" {
		c.Mobile.Platform = platform
	}
	return nil
}
