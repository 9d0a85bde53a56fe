package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret string
}

type SignaturesConfig struct {
	SigningBaseURL string
	DefaultExpiry  time.Duration
}

type NotifierConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Signatures  SignaturesConfig
	Notifier    NotifierConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Signatures: SignaturesConfig{
			SigningBaseURL: v.GetString("SIGNING_BASE_URL"),
			DefaultExpiry:  v.GetDuration("SIGNING_DEFAULT_EXPIRY"),
		},
		Notifier: NotifierConfig{
			WebhookURL: v.GetString("NOTIFIER_WEBHOOK_URL"),
			Timeout:    v.GetDuration("NOTIFIER_TIMEOUT"),
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7091
	}
	if cfg.Signatures.DefaultExpiry == 0 {
		cfg.Signatures.DefaultExpiry = 14 * 24 * time.Hour
	}
	if cfg.Notifier.Timeout == 0 {
		cfg.Notifier.Timeout = 10 * time.Second
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Signatures.SigningBaseURL == "" {
		return fmt.Errorf("SIGNING_BASE_URL is required")
	}
	if strings.HasSuffix(cfg.Signatures.SigningBaseURL, "/") {
		cfg.Signatures.SigningBaseURL = strings.TrimRight(cfg.Signatures.SigningBaseURL, "/")
	}
	return nil
}
