package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hugh/taskhub/pkg/util"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Mail      MailConfig
	Notify    NotifyConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxIdleConns int
	MaxOpenConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// TLS is one of "none", "opportunistic" or "mandatory"
	TLS string
}

type NotifyConfig struct {
	BufferSize int
	// OverdueCron schedules the overdue reminder sweep; empty disables it
	OverdueCron string
	Concurrency int
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int

	// TrustedProxies lists addresses or CIDR ranges allowed to set X-Forwarded-For
	TrustedProxies []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func (m *MailConfig) Enabled() bool {
	return m.Host != ""
}

func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.JWT.ExpiryHours <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRY_HOURS must be positive"))
	}
	if c.Notify.BufferSize <= 0 {
		errs = append(errs, errors.New("NOTIFY_BUFFER_SIZE must be positive"))
	}
	if c.Notify.OverdueCron != "" {
		if err := util.ValidateCronExpr(c.Notify.OverdueCron); err != nil {
			errs = append(errs, fmt.Errorf("NOTIFY_OVERDUE_CRON: %w", err))
		}
	}
	switch c.Mail.TLS {
	case "none", "opportunistic", "mandatory":
	default:
		errs = append(errs, fmt.Errorf("MAIL_TLS: unknown policy %q", c.Mail.TLS))
	}
	for _, p := range c.RateLimit.TrustedProxies {
		if _, _, err := net.ParseCIDR(p); err != nil && net.ParseIP(p) == nil {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_TRUSTED_PROXIES: invalid entry %q", p))
		}
	}
	return errors.Join(errs...)
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8000)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "taskhub")
	v.SetDefault("DATABASE_PASSWORD", "taskhub_secret")
	v.SetDefault("DATABASE_NAME", "taskhub")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 10)
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 100)
	v.SetDefault("DATABASE_AUTO_MIGRATE", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("MAIL_HOST", "")
	v.SetDefault("MAIL_PORT", 1025)
	v.SetDefault("MAIL_FROM", "no-reply@taskhub.local")
	v.SetDefault("MAIL_TLS", "opportunistic")
	v.SetDefault("NOTIFY_BUFFER_SIZE", 256)
	v.SetDefault("NOTIFY_OVERDUE_CRON", "0 8 * * *")
	v.SetDefault("NOTIFY_CONCURRENCY", 10)
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("RATE_LIMIT_TRUSTED_PROXIES", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:8080,http://localhost:3000")

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	// An empty variable is a real value, e.g. NOTIFY_OVERDUE_CRON= disables the sweep
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
			Env:  v.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:         v.GetString("DATABASE_HOST"),
			Port:         v.GetInt("DATABASE_PORT"),
			User:         v.GetString("DATABASE_USER"),
			Password:     v.GetString("DATABASE_PASSWORD"),
			Name:         v.GetString("DATABASE_NAME"),
			SSLMode:      v.GetString("DATABASE_SSLMODE"),
			MaxIdleConns: v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			MaxOpenConns: v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			AutoMigrate:  v.GetBool("DATABASE_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		Mail: MailConfig{
			Host:     v.GetString("MAIL_HOST"),
			Port:     v.GetInt("MAIL_PORT"),
			Username: v.GetString("MAIL_USERNAME"),
			Password: v.GetString("MAIL_PASSWORD"),
			From:     v.GetString("MAIL_FROM"),
			TLS:      v.GetString("MAIL_TLS"),
		},
		Notify: NotifyConfig{
			BufferSize:  v.GetInt("NOTIFY_BUFFER_SIZE"),
			OverdueCron: v.GetString("NOTIFY_OVERDUE_CRON"),
			Concurrency: v.GetInt("NOTIFY_CONCURRENCY"),
		},
		RateLimit: RateLimitConfig{
			Requests:       v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds:  v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
			TrustedProxies: splitList(v.GetString("RATE_LIMIT_TRUSTED_PROXIES")),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
