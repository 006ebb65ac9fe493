// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the lobby service.
package server

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort              = ":8080"
	defaultMaxMessageSize    = 100 << 20
	defaultRateLimitBurst    = 20
	defaultDeliveryTimeout   = 2 * time.Second
	defaultFanoutConcurrency = 16
	defaultSendBuffer        = 256
	defaultShutdownTimeout   = 10 * time.Second
	defaultWriteWait         = 10 * time.Second
	defaultPongWait          = 60 * time.Second
)

// RateLimitConfig defines the parameters for per-connection request rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings including security controls
// and push delivery tuning.
type Config struct {
	Port           string
	AllowedOrigins []string
	MaxMessageSize int64
	RateLimit      RateLimitConfig

	// DeliveryTimeout bounds a single push to one subscriber.
	DeliveryTimeout   time.Duration
	FanoutConcurrency int
	SendBuffer        int

	WriteWait       time.Duration
	PongWait        time.Duration
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string
}

func defaultConfig() Config {
	return Config{
		Port: defaultPort,
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: defaultMaxMessageSize,
		RateLimit: RateLimitConfig{
			Burst:          defaultRateLimitBurst,
			RefillInterval: time.Second,
		},
		DeliveryTimeout:   defaultDeliveryTimeout,
		FanoutConcurrency: defaultFanoutConcurrency,
		SendBuffer:        defaultSendBuffer,
		WriteWait:         defaultWriteWait,
		PongWait:          defaultPongWait,
		ShutdownTimeout:   defaultShutdownTimeout,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// sanitize replaces unusable values with defaults and returns the result.
func (cfg Config) sanitize() Config {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = defaultRateLimitBurst
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	if cfg.FanoutConcurrency <= 0 {
		cfg.FanoutConcurrency = defaultFanoutConcurrency
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaultWriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaultPongWait
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// pingPeriod is how often the write pump pings; it must stay below PongWait.
func (cfg Config) pingPeriod() time.Duration {
	return cfg.PongWait * 9 / 10
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}
	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}
	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}
	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(interval, cfg.RateLimit.RefillInterval)
	}
	if timeout := os.Getenv("DELIVERY_TIMEOUT_MS"); timeout != "" {
		cfg.DeliveryTimeout = parseMillis(timeout, cfg.DeliveryTimeout)
	}
	if n := os.Getenv("FANOUT_CONCURRENCY"); n != "" {
		cfg.FanoutConcurrency = parseIntValue(n, cfg.FanoutConcurrency)
	}
	if n := os.Getenv("SEND_BUFFER"); n != "" {
		cfg.SendBuffer = parseIntValue(n, cfg.SendBuffer)
	}
	if timeout := os.Getenv("SHUTDOWN_TIMEOUT"); timeout != "" {
		cfg.ShutdownTimeout = parseSeconds(timeout, cfg.ShutdownTimeout)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = strings.ToLower(format)
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func parseMillis(value string, defaultValue time.Duration) time.Duration {
	if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
