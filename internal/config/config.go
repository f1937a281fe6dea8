// Package config loads server configuration from the environment, an optional
// .env file and an optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the typed server configuration
type Config struct {
	Port        string `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFile     string `mapstructure:"log_file"`
	JWTSecret   string `mapstructure:"jwt_secret"`

	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`

	ElasticsearchURL string `mapstructure:"elasticsearch_url"`

	Tracing TracingConfig `mapstructure:"tracing"`

	CORSOrigins []string `mapstructure:"cors_origins"`

	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`

	WSRateLimitPerSecond int `mapstructure:"ws_rate_limit_per_second"`
	WSRateLimitBurst     int `mapstructure:"ws_rate_limit_burst"`

	NotificationRetentionDays int    `mapstructure:"notification_retention_days"`
	RetentionSchedule         string `mapstructure:"retention_schedule"`

	// SearchReconcileSchedule rebuilds the search index; empty disables it
	SearchReconcileSchedule string `mapstructure:"search_reconcile_schedule"`

	// RequiredServices lists optional services ("redis", "elasticsearch")
	// whose absence must abort startup
	RequiredServices []string `mapstructure:"required_services"`
}

// DatabaseConfig selects and addresses the record store
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // "postgres" or "sqlite"
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"` // sqlite file
}

// RedisConfig addresses the optional cache
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
}

// Enabled reports whether a Redis host was configured
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// TracingConfig controls OpenTelemetry export
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// DSN returns the postgres connection string
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == "development"
}

var ErrMissingJWTSecret = errors.New("JWT_SECRET is required outside development")

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8787")
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("jwt_secret", "")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.url", "")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "quill")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.path", "quill.db")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")

	v.SetDefault("elasticsearch_url", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.otlp_endpoint", "localhost:4318")
	v.SetDefault("tracing.sampling_rate", 1.0)

	v.SetDefault("cors_origins", []string{"http://localhost:5173"})

	v.SetDefault("rate_limit_requests", 300)
	v.SetDefault("rate_limit_window", time.Minute)

	v.SetDefault("ws_rate_limit_per_second", 10)
	v.SetDefault("ws_rate_limit_burst", 20)

	v.SetDefault("notification_retention_days", 90)
	v.SetDefault("retention_schedule", "@daily")
	v.SetDefault("search_reconcile_schedule", "@every 6h")
	v.SetDefault("required_services", []string{})
}

// Load reads .env (if present), config.yaml (if present) and the environment.
// Environment keys are the upper-cased config keys with "." replaced by "_",
// e.g. DB_HOST, REDIS_PORT, TRACING_ENABLED. DATABASE_URL is accepted as an alias of DB_URL.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("db.url", "DB_URL", "DATABASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// CORS_ORIGINS may arrive as one comma-separated string
	cfg.CORSOrigins = splitAndTrim(strings.Join(cfg.CORSOrigins, ","))
	cfg.RequiredServices = splitAndTrim(strings.Join(cfg.RequiredServices, ","))

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, ErrMissingJWTSecret
		}
		cfg.JWTSecret = "dev-secret-change-me"
	}

	return &cfg, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
