// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the service and for client processes.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"-"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Redis Configuration
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Notification Configuration
	NotificationTTL    time.Duration `mapstructure:"-"`
	WriteBehindTimeout time.Duration `mapstructure:"-"`
	StreamKeepAlive    time.Duration `mapstructure:"-"`

	// Identity Configuration
	SessionJWTSecret              string `mapstructure:"SESSION_JWT_SECRET"`
	FirebaseServiceAccountKeyPath string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH"`
	FirebaseProjectID             string `mapstructure:"FIREBASE_PROJECT_ID"`
	ProducerAPIKey                string `mapstructure:"PRODUCER_API_KEY"`

	// CORS
	CORSAllowedOrigins []string `mapstructure:"-"`

	// Client Configuration
	NotifyAPIURL              string        `mapstructure:"NOTIFY_API_URL"`
	NotifySessionToken        string        `mapstructure:"NOTIFY_SESSION_TOKEN"`
	ClientHealthCheckSchedule string        `mapstructure:"CLIENT_HEALTH_CHECK_SCHEDULE"`
	ClientRefreshSchedule     string        `mapstructure:"CLIENT_REFRESH_SCHEDULE"`
	ClientQueueItemDelay      time.Duration `mapstructure:"-"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("NOTIFICATION_TTL_HOURS", 168) // 7 days
	v.SetDefault("WRITE_BEHIND_TIMEOUT_SECONDS", 10)
	v.SetDefault("STREAM_KEEPALIVE_SECONDS", 25)

	v.SetDefault("SESSION_JWT_SECRET", "")
	v.SetDefault("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", "")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("PRODUCER_API_KEY", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("NOTIFY_API_URL", "http://localhost:8080")
	v.SetDefault("NOTIFY_SESSION_TOKEN", "")
	v.SetDefault("CLIENT_HEALTH_CHECK_SCHEDULE", "@every 30s")
	v.SetDefault("CLIENT_REFRESH_SCHEDULE", "@every 30s")
	v.SetDefault("CLIENT_QUEUE_ITEM_DELAY_MS", 50)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Duration fields are skipped by Unmarshal; the env values are plain integers in their named unit.
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.NotificationTTL = time.Duration(v.GetInt("NOTIFICATION_TTL_HOURS")) * time.Hour
	cfg.WriteBehindTimeout = time.Duration(v.GetInt("WRITE_BEHIND_TIMEOUT_SECONDS")) * time.Second
	cfg.StreamKeepAlive = time.Duration(v.GetInt("STREAM_KEEPALIVE_SECONDS")) * time.Second
	cfg.ClientQueueItemDelay = time.Duration(v.GetInt("CLIENT_QUEUE_ITEM_DELAY_MS")) * time.Millisecond

	for _, origin := range strings.Split(v.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if o := strings.TrimSpace(origin); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}
	return &cfg, nil
}

// Validate performs basic sanity checks on values the service cannot run without.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.ServerPort); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT %q", c.ServerPort)
	}
	if c.NotificationTTL <= 0 {
		return fmt.Errorf("NOTIFICATION_TTL_HOURS must be positive")
	}
	if c.WriteBehindTimeout <= 0 {
		return fmt.Errorf("WRITE_BEHIND_TIMEOUT_SECONDS must be positive")
	}
	if strings.TrimSpace(c.RedisAddr) == "" {
		return fmt.Errorf("REDIS_ADDR is not set")
	}
	if c.FirebaseServiceAccountKeyPath != "" {
		if _, err := os.Stat(c.FirebaseServiceAccountKeyPath); os.IsNotExist(err) {
			return fmt.Errorf("firebase service account key file specified in FIREBASE_SERVICE_ACCOUNT_KEY_PATH (%s) not found", c.FirebaseServiceAccountKeyPath)
		}
	}
	return nil
}
