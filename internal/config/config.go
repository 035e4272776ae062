package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment variables that override file values.
// BAKERY_DATABASE_HOST maps to database.host.
const EnvPrefix = "BAKERY_"

// Totals check modes for order submission.
const (
	TotalsCheckOff    = "off"
	TotalsCheckWarn   = "warn"
	TotalsCheckReject = "reject"
)

// Config holds all configuration for the bakery POS
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	RabbitMQ RabbitMQConfig `koanf:"rabbitmq"`
	Logging  LoggingConfig  `koanf:"logging"`
	Orders   OrdersConfig   `koanf:"orders"`
	Till     TillConfig     `koanf:"till"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	LoginRateLimit  int           `koanf:"login_rate_limit"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Prefetch int    `koanf:"prefetch"`
}

// LoggingConfig selects level and output format
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// OrdersConfig controls server-side order checks
type OrdersConfig struct {
	// TotalsCheck is one of off, warn, reject.
	TotalsCheck string `koanf:"totals_check"`
}

// TillConfig holds settings for the terminal till
type TillConfig struct {
	APIURL     string        `koanf:"api_url"`
	StorePath  string        `koanf:"store_path"`
	UndoWindow time.Duration `koanf:"undo_window"`
}

// Default returns the built-in configuration used before the file and
// environment layers are applied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			LoginRateLimit:  10,
			CORSOrigins:     []string{"*"},
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "bakery_user",
			Password: "bakery_pass",
			Database: "bakery_db",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
			Prefetch: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Orders: OrdersConfig{
			TotalsCheck: TotalsCheckWarn,
		},
		Till: TillConfig{
			APIURL:     "http://localhost:3000",
			StorePath:  "./data/till",
			UndoWindow: 3 * time.Second,
		},
	}
}

// Load layers defaults, the optional YAML file at filename and BAKERY_*
// environment variables, in that order of precedence.
func Load(filename string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			if err := k.Load(file.Provider(filename), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", filename, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Origins arrive from the environment as a comma separated string.
	if raw, ok := k.Get("server.cors_origins").(string); ok {
		if err := k.Set("server.cors_origins", splitList(raw)); err != nil {
			return nil, fmt.Errorf("failed to parse server.cors_origins: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform maps BAKERY_SECTION_KEY_NAME to section.key_name.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return ""
	}
	return section + "." + rest
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects settings the services cannot start with
func (c *Config) Validate() error {
	switch c.Orders.TotalsCheck {
	case TotalsCheckOff, TotalsCheckWarn, TotalsCheckReject:
	default:
		return fmt.Errorf("invalid orders.totals_check %q: want off, warn or reject", c.Orders.TotalsCheck)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Till.UndoWindow <= 0 {
		return fmt.Errorf("invalid till.undo_window %s", c.Till.UndoWindow)
	}
	return nil
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}
