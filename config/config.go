package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Store     StoreConfig
	Storage   StorageConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Email     EmailConfig
	Mail      MailConfig
}

type AppConfig struct {
	Port           int    `env:"APP_PORT" envDefault:"8080"`
	Env            string `env:"APP_ENV" envDefault:"local"`
	BodyLimit      int    `env:"APP_BODY_LIMIT" envDefault:"4194304"` // 4MB
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout int    `env:"APP_REQUEST_TIMEOUT" envDefault:"600"` // seconds; bulk sends are slow
}

type CORSConfig struct {
	AllowOrigins     string `env:"CORS_ALLOW_ORIGINS" envDefault:"http://localhost:3000"`
	AllowMethods     string `env:"CORS_ALLOW_METHODS" envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowHeaders     string `env:"CORS_ALLOW_HEADERS" envDefault:"Origin,Content-Type,Accept,Authorization"`
	AllowCredentials bool   `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
}

type RateLimitConfig struct {
	StrictMax     int `env:"RATE_LIMIT_STRICT_MAX" envDefault:"5"`
	StrictWindow  int `env:"RATE_LIMIT_STRICT_WINDOW_SECS" envDefault:"60"`
	NormalMax     int `env:"RATE_LIMIT_NORMAL_MAX" envDefault:"100"`
	NormalWindow  int `env:"RATE_LIMIT_NORMAL_WINDOW_SECS" envDefault:"900"`
	RelaxedMax    int `env:"RATE_LIMIT_RELAXED_MAX" envDefault:"300"`
	RelaxedWindow int `env:"RATE_LIMIT_RELAXED_WINDOW_SECS" envDefault:"60"`
}

type DBConfig struct {
	Host            string `env:"DB_HOST" envDefault:"localhost"`
	Port            int    `env:"DB_PORT" envDefault:"5432"`
	Database        string `env:"DB_DATABASE" envDefault:"progress_mailer"`
	Username        string `env:"DB_USERNAME" envDefault:"postgres"`
	Password        string `env:"DB_PASSWORD" envDefault:"postgres"`
	Schema          string `env:"DB_SCHEMA" envDefault:"public"`
	SSLMode         string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns        int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	MinConns        int32  `env:"DB_MIN_CONNS" envDefault:"2"`
	MaxConnLifetime int    `env:"DB_MAX_CONN_LIFETIME" envDefault:"3600"` // seconds
	MaxConnIdleTime int    `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"300"` // seconds
}

// StoreConfig selects where student records live.
type StoreConfig struct {
	Driver         string `env:"STORE_DRIVER" envDefault:"postgres"`
	MigrationsPath string `env:"STORE_MIGRATIONS_PATH" envDefault:"migrations"`
}

type CacheConfig struct {
	Driver   string `env:"CACHE_DRIVER" envDefault:"memory"`
	RedisURL string `env:"REDIS_URL"`
}

type EmailConfig struct {
	Driver       string `env:"EMAIL_DRIVER" envDefault:"console"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASS"`
	ResendAPIKey string `env:"RESEND_API_KEY"`
	FromAddress  string `env:"FROM_EMAIL" envDefault:"noreply@localhost"`
	FromName     string `env:"FROM_NAME" envDefault:"Student Mentor"`
	// RatePerSec caps outbound messages across all runs; 0 disables the cap.
	RatePerSec int `env:"EMAIL_RATE_PER_SEC" envDefault:"0"`
}

// MailConfig controls the progress-report template and bulk dispatch.
type MailConfig struct {
	ProgramLabel    string `env:"MAIL_PROGRAM_LABEL" envDefault:"B.Tech (CSE)"`
	Department      string `env:"MAIL_DEPARTMENT" envDefault:"Department of Computer Science and Engineering"`
	DepartmentShort string `env:"MAIL_DEPARTMENT_SHORT" envDefault:"Department of CSE"`
	PortalURL       string `env:"MAIL_PORTAL_URL" envDefault:"https://mujslcm.jaipur.manipal.edu/"`
	ContactHours    string `env:"MAIL_CONTACT_HOURS" envDefault:"10:00 AM to 5:00 PM"`
	PacingMillis    int    `env:"MAIL_PACING_MS" envDefault:"1000"`
	MaxBatch        int    `env:"MAIL_MAX_BATCH" envDefault:"500"`
	RunTTLHours     int    `env:"MAIL_RUN_TTL_HOURS" envDefault:"24"`
}

func (m MailConfig) Pacing() time.Duration {
	return time.Duration(m.PacingMillis) * time.Millisecond
}

func (m MailConfig) RunTTL() time.Duration {
	return time.Duration(m.RunTTLHours) * time.Hour
}

// StorageConfig configures where finished run reports are archived.
type StorageConfig struct {
	Driver      string `env:"STORAGE_DRIVER" envDefault:"local"`
	LocalPath   string `env:"STORAGE_LOCAL_PATH" envDefault:"./reports"`
	S3Endpoint  string `env:"STORAGE_S3_ENDPOINT"`
	S3Region    string `env:"STORAGE_S3_REGION" envDefault:"us-east-1"`
	S3Bucket    string `env:"STORAGE_S3_BUCKET" envDefault:"mail-reports"`
	S3AccessKey string `env:"STORAGE_S3_ACCESS_KEY"`
	S3SecretKey string `env:"STORAGE_S3_SECRET_KEY"`
	S3UseSSL    bool   `env:"STORAGE_S3_USE_SSL" envDefault:"false"`
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Origins returns the list of allowed CORS origins.
func (c CORSConfig) Origins() []string { return splitList(c.AllowOrigins) }

// Methods returns the list of allowed CORS methods.
func (c CORSConfig) Methods() []string { return splitList(c.AllowMethods) }

// Headers returns the list of allowed CORS headers.
func (c CORSConfig) Headers() []string { return splitList(c.AllowHeaders) }

func (db DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&search_path=%s",
		db.Username, db.Password, db.Host, db.Port, db.Database, db.SSLMode, db.Schema,
	)
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if cfg.App.Port < 1 || cfg.App.Port > 65535 {
		return fmt.Errorf("APP_PORT must be between 1 and 65535")
	}
	if cfg.App.BodyLimit < 1 {
		return fmt.Errorf("APP_BODY_LIMIT must be at least 1 byte")
	}
	if cfg.RateLimit.StrictMax < 1 || cfg.RateLimit.NormalMax < 1 || cfg.RateLimit.RelaxedMax < 1 {
		return fmt.Errorf("all RATE_LIMIT_*_MAX values must be at least 1")
	}
	if cfg.RateLimit.StrictWindow < 1 || cfg.RateLimit.NormalWindow < 1 || cfg.RateLimit.RelaxedWindow < 1 {
		return fmt.Errorf("all RATE_LIMIT_*_WINDOW_SECS values must be at least 1")
	}
	if cfg.Mail.PacingMillis < 0 {
		return fmt.Errorf("MAIL_PACING_MS must not be negative")
	}
	if cfg.Mail.MaxBatch < 1 {
		return fmt.Errorf("MAIL_MAX_BATCH must be at least 1")
	}
	if cfg.Mail.RunTTLHours < 1 {
		return fmt.Errorf("MAIL_RUN_TTL_HOURS must be at least 1")
	}
	if cfg.Email.RatePerSec < 0 {
		return fmt.Errorf("EMAIL_RATE_PER_SEC must not be negative")
	}

	switch cfg.Store.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be one of: postgres, memory (got %q)", cfg.Store.Driver)
	}

	switch cfg.Cache.Driver {
	case "memory":
	case "redis":
		if cfg.Cache.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for redis cache driver")
		}
	default:
		return fmt.Errorf("CACHE_DRIVER must be one of: memory, redis (got %q)", cfg.Cache.Driver)
	}

	switch cfg.Email.Driver {
	case "console":
	case "smtp":
		if cfg.Email.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required for smtp driver")
		}
	case "resend":
		if cfg.Email.ResendAPIKey == "" {
			return fmt.Errorf("RESEND_API_KEY is required for resend driver")
		}
	default:
		return fmt.Errorf("EMAIL_DRIVER must be one of: console, smtp, resend (got %q)", cfg.Email.Driver)
	}

	switch cfg.Storage.Driver {
	case "local":
		if cfg.Storage.LocalPath == "" {
			return fmt.Errorf("STORAGE_LOCAL_PATH is required for local driver")
		}
	case "s3", "minio":
		if cfg.Storage.S3Endpoint == "" {
			return fmt.Errorf("STORAGE_S3_ENDPOINT is required for %s driver", cfg.Storage.Driver)
		}
		if cfg.Storage.S3AccessKey == "" {
			return fmt.Errorf("STORAGE_S3_ACCESS_KEY is required for %s driver", cfg.Storage.Driver)
		}
		if cfg.Storage.S3SecretKey == "" {
			return fmt.Errorf("STORAGE_S3_SECRET_KEY is required for %s driver", cfg.Storage.Driver)
		}
		if cfg.Storage.S3Bucket == "" {
			return fmt.Errorf("STORAGE_S3_BUCKET is required for %s driver", cfg.Storage.Driver)
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of: local, s3, minio (got %q)", cfg.Storage.Driver)
	}
	return nil
}
