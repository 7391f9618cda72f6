// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the fan-out chat service.
package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Tyrowin/fanout/internal/chat"
	"github.com/Tyrowin/fanout/internal/logging"
)

const (
	defaultPort            = ":5000"
	defaultMaxMessageSize  = 10_000_000
	defaultSendBufferSize  = 256
	defaultPingInterval    = 54 * time.Second
	defaultPongWait        = 60 * time.Second
	defaultWriteWait       = 10 * time.Second
	defaultRateLimitBurst  = 20
	defaultRefillInterval  = time.Second
	defaultShutdownTimeout = 30 * time.Second
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int           `mapstructure:"burst"`
	RefillInterval time.Duration `mapstructure:"-"`
}

// WebSocketConfig holds the transport limits and keepalive timings.
type WebSocketConfig struct {
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBufferSize int           `mapstructure:"send_buffer_size"`
	PingInterval   time.Duration `mapstructure:"-"`
	PongWait       time.Duration `mapstructure:"-"`
	WriteWait      time.Duration `mapstructure:"-"`
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port                    string          `mapstructure:"-"`
	AllowedOrigins          []string        `mapstructure:"-"`
	WebSocket               WebSocketConfig `mapstructure:"websocket"`
	RateLimit               RateLimitConfig `mapstructure:"rate_limit"`
	MessageTrackingCapacity int             `mapstructure:"message_tracking_capacity"`
	ShutdownTimeout         time.Duration   `mapstructure:"-"`
	Log                     logging.Config  `mapstructure:"log"`
}

func defaultConfig() Config {
	return Config{
		Port: defaultPort,
		AllowedOrigins: []string{
			"http://localhost:5000",
			"http://localhost:5173",
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: defaultMaxMessageSize,
			SendBufferSize: defaultSendBufferSize,
			PingInterval:   defaultPingInterval,
			PongWait:       defaultPongWait,
			WriteWait:      defaultWriteWait,
		},
		RateLimit: RateLimitConfig{
			Burst:          defaultRateLimitBurst,
			RefillInterval: defaultRefillInterval,
		},
		MessageTrackingCapacity: chat.DefaultTrackingCapacity,
		ShutdownTimeout:         defaultShutdownTimeout,
		Log: logging.Config{
			Level:       "info",
			ServiceName: "fanout-chat",
		},
	}
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// Sanitize returns a copy of cfg where every unset or invalid value is
// replaced by its default and origins are normalized.
func (cfg Config) Sanitize() Config {
	def := defaultConfig()

	cfg.Port = normalizePort(cfg.Port)
	if cfg.Port == "" {
		cfg.Port = def.Port
	}
	if cfg.WebSocket.MaxMessageSize <= 0 {
		cfg.WebSocket.MaxMessageSize = def.WebSocket.MaxMessageSize
	}
	if cfg.WebSocket.SendBufferSize <= 0 {
		cfg.WebSocket.SendBufferSize = def.WebSocket.SendBufferSize
	}
	if cfg.WebSocket.PongWait <= 0 {
		cfg.WebSocket.PongWait = def.WebSocket.PongWait
	}
	if cfg.WebSocket.PingInterval <= 0 || cfg.WebSocket.PingInterval >= cfg.WebSocket.PongWait {
		// Pings must go out before the peer's read deadline expires.
		cfg.WebSocket.PingInterval = cfg.WebSocket.PongWait * 9 / 10
	}
	if cfg.WebSocket.WriteWait <= 0 {
		cfg.WebSocket.WriteWait = def.WebSocket.WriteWait
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = def.RateLimit.Burst
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	if cfg.MessageTrackingCapacity < 0 {
		cfg.MessageTrackingCapacity = def.MessageTrackingCapacity
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// LoadConfig reads configuration from an optional YAML file and the
// environment. An empty path searches for config.yaml in "." and "./config";
// a missing file in that case is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	def := defaultConfig()
	v.SetDefault("port", def.Port)
	v.SetDefault("allowed_origins", strings.Join(def.AllowedOrigins, ","))
	v.SetDefault("websocket.max_message_size", def.WebSocket.MaxMessageSize)
	v.SetDefault("websocket.send_buffer_size", def.WebSocket.SendBufferSize)
	v.SetDefault("websocket.ping_interval", def.WebSocket.PingInterval.String())
	v.SetDefault("websocket.pong_wait", def.WebSocket.PongWait.String())
	v.SetDefault("websocket.write_wait", def.WebSocket.WriteWait.String())
	v.SetDefault("rate_limit.burst", def.RateLimit.Burst)
	v.SetDefault("rate_limit.refill_interval", def.RateLimit.RefillInterval.String())
	v.SetDefault("message_tracking_capacity", def.MessageTrackingCapacity)
	v.SetDefault("shutdown_timeout", def.ShutdownTimeout.String())
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.pretty", def.Log.Pretty)
	v.SetDefault("log.service_name", def.Log.ServiceName)

	bindings := map[string][]string{
		"port":                       {"SERVER_PORT", "PORT"},
		"allowed_origins":            {"ALLOWED_ORIGINS", "CORS_ORIGIN"},
		"websocket.max_message_size": {"MAX_MESSAGE_SIZE"},
		"websocket.send_buffer_size": {"SEND_BUFFER_SIZE"},
		"websocket.ping_interval":    {"PING_INTERVAL"},
		"websocket.pong_wait":        {"PONG_WAIT"},
		"websocket.write_wait":       {"WRITE_WAIT"},
		"rate_limit.burst":           {"RATE_LIMIT_BURST"},
		"rate_limit.refill_interval": {"RATE_LIMIT_REFILL_INTERVAL"},
		"message_tracking_capacity":  {"MESSAGE_TRACKING_CAPACITY"},
		"shutdown_timeout":           {"SHUTDOWN_TIMEOUT"},
		"log.level":                  {"LOG_LEVEL"},
		"log.pretty":                 {"LOG_PRETTY"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Port = v.GetString("port")
	cfg.AllowedOrigins = parseOriginsValue(v.Get("allowed_origins"))
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", def.WebSocket.PingInterval)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", def.WebSocket.PongWait)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", def.WebSocket.WriteWait)
	cfg.RateLimit.RefillInterval = parseDuration(v, "rate_limit.refill_interval", def.RateLimit.RefillInterval)
	cfg.ShutdownTimeout = parseDuration(v, "shutdown_timeout", def.ShutdownTimeout)

	sanitized := cfg.Sanitize()
	return &sanitized, nil
}

func normalizePort(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return ""
	}
	if _, err := strconv.Atoi(port); err == nil {
		return ":" + port
	}
	return port
}

func parseOriginsValue(raw any) []string {
	switch val := raw.(type) {
	case string:
		return parseOrigins(val)
	case []string:
		return parseOrigins(strings.Join(val, ","))
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
		return parseOrigins(strings.Join(parts, ","))
	default:
		return nil
	}
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDuration accepts Go duration strings ("30s") as well as a bare number
// of seconds.
func parseDuration(v *viper.Viper, key string, defaultValue time.Duration) time.Duration {
	str := strings.TrimSpace(v.GetString(key))
	if seconds, err := strconv.Atoi(str); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return defaultValue
	}
	d, err := time.ParseDuration(str)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
