package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EmailProviderSMTP    = "smtp"
	EmailProviderWebhook = "webhook"

	PacerInterval = "interval"
	PacerToken    = "token"
	PacerRedis    = "redis"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a default; SMTP_HOST and SMTP_FROM are required only when
// EMAIL_PROVIDER is smtp.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Entity store. Empty DatabaseURL selects the in-memory repository
	// seeded from SeedFile.
	DatabaseURL   string
	DBMaxConns    int32
	DBMinConns    int32
	MigrationsDir string
	SeedFile      string

	// Email channel
	EmailProvider string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPFrom      string
	SMTPTimeout   time.Duration

	ProviderBaseURL string
	ProviderTimeout time.Duration

	// Pacing between consecutive sends of a batch
	PacerBackend     string
	DispatchInterval time.Duration
	DispatchJitter   time.Duration
	DispatchBurst    int
	RedisAddr        string

	// Classification
	DueSoonHorizonDays int

	// Scheduled overdue notices. Zero interval disables the in-process sweep;
	// the cron endpoint stays available when CronSecret is set.
	CronSecret           string
	OverdueSweepInterval time.Duration
	DefaultSender        string

	// Audit stream; empty brokers disables publishing.
	KafkaBrokers    []string
	KafkaAuditTopic string
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Minute),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DBMaxConns:    int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:    int32(getInt("DB_MIN_CONNS", 2)),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),
		SeedFile:      os.Getenv("SEED_FILE"),

		EmailProvider: strings.ToLower(getEnv("EMAIL_PROVIDER", EmailProviderSMTP)),
		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      getInt("SMTP_PORT", 587),
		SMTPUsername:  os.Getenv("SMTP_USERNAME"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:      os.Getenv("SMTP_FROM"),
		SMTPTimeout:   getDuration("SMTP_TIMEOUT", 15*time.Second),

		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", "https://webhook.site/your-uuid-here"),
		ProviderTimeout: getDuration("PROVIDER_TIMEOUT", 10*time.Second),

		PacerBackend:     strings.ToLower(getEnv("PACER_BACKEND", PacerInterval)),
		DispatchInterval: getDuration("DISPATCH_INTERVAL", time.Second),
		DispatchJitter:   getDuration("DISPATCH_JITTER", 0),
		DispatchBurst:    getInt("DISPATCH_BURST", 1),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),

		DueSoonHorizonDays: getInt("DUE_SOON_HORIZON_DAYS", 7),

		CronSecret:           os.Getenv("CRON_SECRET"),
		OverdueSweepInterval: getDuration("OVERDUE_SWEEP_INTERVAL", 0),
		DefaultSender:        getEnv("DEFAULT_SENDER", "system"),

		KafkaBrokers:    getList("KAFKA_BROKERS"),
		KafkaAuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "email-audit"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.EmailProvider {
	case EmailProviderSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when EMAIL_PROVIDER=smtp")
		}
		if c.SMTPFrom == "" {
			return fmt.Errorf("SMTP_FROM is required when EMAIL_PROVIDER=smtp")
		}
	case EmailProviderWebhook:
	default:
		return fmt.Errorf("unknown EMAIL_PROVIDER %q", c.EmailProvider)
	}

	switch c.PacerBackend {
	case PacerInterval, PacerToken, PacerRedis:
	default:
		return fmt.Errorf("unknown PACER_BACKEND %q", c.PacerBackend)
	}
	if c.DispatchInterval < 0 || c.DispatchJitter < 0 {
		return fmt.Errorf("DISPATCH_INTERVAL and DISPATCH_JITTER must not be negative")
	}
	if c.DueSoonHorizonDays <= 0 {
		return fmt.Errorf("DUE_SOON_HORIZON_DAYS must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// getList splits a comma-separated variable, dropping empty items.
func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
