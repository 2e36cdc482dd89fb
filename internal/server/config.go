// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the chat service.
package server

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings including security controls.
// Values start from defaultConfig and are overridden by the environment.
type Config struct {
	Env             string        `env:"APP_ENV" validate:"oneof=dev prod test"`
	Port            string        `env:"PORT" validate:"required"`
	ClientURL       string        `env:"CLIENT_URL" validate:"omitempty,url"`
	Origins         string        `env:"ALLOWED_ORIGINS"`
	Rooms           string        `env:"CHAT_ROOMS" validate:"required"`
	DefaultRoom     string        `env:"CHAT_DEFAULT_ROOM" validate:"required"`
	HistoryCapacity int           `env:"CHAT_HISTORY_CAPACITY" validate:"gt=0"`
	MaxMessageSize  int64         `env:"MAX_MESSAGE_SIZE" validate:"gt=0"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST" validate:"gt=0"`
	RateLimitRefill time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" validate:"gt=0"`
	SendBufferSize  int           `env:"SEND_BUFFER_SIZE" validate:"gt=0"`
	InboxSize       int           `env:"SESSION_INBOX_SIZE" validate:"gt=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`

	// AllowedOrigins is derived from Origins, or ClientURL when Origins is empty.
	AllowedOrigins []string
}

func defaultConfig() Config {
	return Config{
		Env:             "dev",
		Port:            ":5000",
		ClientURL:       "http://localhost:5173",
		Rooms:           strings.Join(chat.DefaultRooms(), ","),
		DefaultRoom:     chat.DefaultRoom,
		HistoryCapacity: chat.DefaultHistoryCapacity,
		MaxMessageSize:  4096,
		RateLimitBurst:  5,
		RateLimitRefill: time.Second,
		SendBufferSize:  256,
		InboxSize:       chat.DefaultInboxSize,
		ShutdownTimeout: 10 * time.Second,
	}
}

func sanitizeConfig(cfg Config) Config {
	defaults := defaultConfig()

	if cfg.Port == "" {
		cfg.Port = defaults.Port
	}
	if !strings.Contains(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}
	if cfg.Env == "" {
		cfg.Env = defaults.Env
	}
	if strings.TrimSpace(cfg.Rooms) == "" {
		cfg.Rooms = defaults.Rooms
	}
	cfg.DefaultRoom = strings.TrimSpace(cfg.DefaultRoom)
	if cfg.DefaultRoom == "" {
		cfg.DefaultRoom = cfg.RoomNames()[0]
	}
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = defaults.HistoryCapacity
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = defaults.RateLimitBurst
	}
	if cfg.RateLimitRefill <= 0 {
		cfg.RateLimitRefill = defaults.RateLimitRefill
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaults.SendBufferSize
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = defaults.InboxSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}

	origins := splitList(cfg.Origins)
	if len(origins) == 0 && cfg.ClientURL != "" {
		origins = []string{cfg.ClientURL}
	}
	cfg.AllowedOrigins = origins
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := sanitizeConfig(defaultConfig())
	return &cfg
}

// LoadConfig builds the configuration from defaults, the optional dotenv
// files (".env" when none are given) and the process environment.
func LoadConfig(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	cfg := defaultConfig()
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg = sanitizeConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and that the default room is part of the catalog.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, room := range c.RoomNames() {
		if room == c.DefaultRoom {
			return nil
		}
	}
	return fmt.Errorf("invalid config: default room %q is not in %q", c.DefaultRoom, c.Rooms)
}

// RoomNames returns the configured room catalog.
func (c Config) RoomNames() []string {
	return splitList(c.Rooms)
}

// RateLimit returns the per-connection rate limit settings.
func (c Config) RateLimit() RateLimitConfig {
	return RateLimitConfig{Burst: c.RateLimitBurst, RefillInterval: c.RateLimitRefill}
}

// EngineOptions maps the configuration onto chat engine options.
func (c Config) EngineOptions() chat.Options {
	return chat.Options{
		Rooms:           c.RoomNames(),
		DefaultRoom:     c.DefaultRoom,
		HistoryCapacity: c.HistoryCapacity,
		InboxSize:       c.InboxSize,
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
