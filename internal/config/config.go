package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings for the service. Values come from an
// optional YAML file overridden by environment variables.
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	HTTP       HTTPConfig       `yaml:"http"`
	NATS       NATSConfig       `yaml:"nats"`
	DeadLetter DeadLetterConfig `yaml:"dead_letter"`
	Log        LogConfig        `yaml:"log"`
}

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
}

type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type NATSConfig struct {
	URL           string        `yaml:"url"`
	Required      bool          `yaml:"required"`
	StreamName    string        `yaml:"stream_name"`
	ConsumerName  string        `yaml:"consumer_name"`
	SubjectFilter string        `yaml:"subject_filter"`
	MaxDeliver    int           `yaml:"max_deliver"`
	AckWait       time.Duration `yaml:"ack_wait"`
	MaxAckPending int           `yaml:"max_ack_pending"`
	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

// Configured reports whether a NATS URL is set at all.
func (c NATSConfig) Configured() bool { return c.URL != "" }

type DeadLetterConfig struct {
	// Policy decides what happens to valid envelopes no handler matches:
	// "drop", "deadletter" or "alert".
	Policy   string         `yaml:"policy"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// Configured reports whether a dead-letter database was pointed at.
func (c PostgresConfig) Configured() bool { return c.Database != "" }

// DSN returns the Postgres connection URL.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "wraiths-core",
			Environment: "dev",
		},
		HTTP: HTTPConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"*"},
		},
		NATS: NATSConfig{
			StreamName:    "TOOL_EVENTS",
			ConsumerName:  "wraiths-core",
			SubjectFilter: "tool.invoke.>",
			MaxDeliver:    5,
			AckWait:       30 * time.Second,
			MaxAckPending: 100,
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		DeadLetter: DeadLetterConfig{
			Policy: "alert",
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    5432,
				User:    "postgres",
				SSLMode: "disable",
			},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the config from defaults, an optional YAML file and the
// environment, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Service.Name = getEnv("SERVICE_NAME", c.Service.Name)
	c.Service.Environment = getEnv("ENVIRONMENT", c.Service.Environment)

	if port := os.Getenv("SERVICE_PORT"); port != "" {
		c.HTTP.Addr = ":" + port
	}
	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.HTTP.AllowedOrigins = splitAndTrim(origins)
	}

	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.Required = getEnvAsBool("NATS_REQUIRED", c.NATS.Required)
	c.NATS.StreamName = getEnv("NATS_STREAM", c.NATS.StreamName)
	c.NATS.ConsumerName = getEnv("NATS_CONSUMER", c.NATS.ConsumerName)
	c.NATS.SubjectFilter = getEnv("NATS_SUBJECT_FILTER", c.NATS.SubjectFilter)

	c.DeadLetter.Policy = getEnv("NO_ROUTE_POLICY", c.DeadLetter.Policy)
	c.DeadLetter.Postgres.Host = getEnv("DB_HOST", c.DeadLetter.Postgres.Host)
	c.DeadLetter.Postgres.Port = getEnvAsInt("DB_PORT", c.DeadLetter.Postgres.Port)
	c.DeadLetter.Postgres.User = getEnv("DB_USER", c.DeadLetter.Postgres.User)
	c.DeadLetter.Postgres.Password = getEnv("DB_PASSWORD", c.DeadLetter.Postgres.Password)
	c.DeadLetter.Postgres.Database = getEnv("DB_NAME", c.DeadLetter.Postgres.Database)
	c.DeadLetter.Postgres.SSLMode = getEnv("DB_SSLMODE", c.DeadLetter.Postgres.SSLMode)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

func (c *Config) validate() error {
	switch c.DeadLetter.Policy {
	case "drop", "deadletter", "alert":
	default:
		return fmt.Errorf("invalid no-route policy %q", c.DeadLetter.Policy)
	}
	if c.NATS.Required && !c.NATS.Configured() {
		return fmt.Errorf("NATS is required but NATS_URL is not set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes":
			return true
		case "0", "false", "no":
			return false
		}
	}
	return fallback
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
