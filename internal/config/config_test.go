package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("EMAIL_PROVIDER", "webhook")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "", cfg.DatabaseURL)
	assert.Equal(t, PacerInterval, cfg.PacerBackend)
	assert.Equal(t, time.Second, cfg.DispatchInterval)
	assert.Equal(t, 7, cfg.DueSoonHorizonDays)
	assert.Equal(t, time.Duration(0), cfg.OverdueSweepInterval)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "email-audit", cfg.KafkaAuditTopic)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("EMAIL_PROVIDER", "SMTP")
	t.Setenv("SMTP_HOST", "mail.internal")
	t.Setenv("SMTP_FROM", "tracker@buyer.test")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("DISPATCH_INTERVAL", "250ms")
	t.Setenv("PACER_BACKEND", "redis")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("DUE_SOON_HORIZON_DAYS", "3")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EmailProviderSMTP, cfg.EmailProvider)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.Equal(t, 250*time.Millisecond, cfg.DispatchInterval)
	assert.Equal(t, PacerRedis, cfg.PacerBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3, cfg.DueSoonHorizonDays)
	assert.Equal(t, int32(10), cfg.DBMaxConns, "unparseable value falls back to default")
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"smtp without host", map[string]string{"EMAIL_PROVIDER": "smtp", "SMTP_FROM": "a@b.test"}, "SMTP_HOST"},
		{"smtp without from", map[string]string{"EMAIL_PROVIDER": "smtp", "SMTP_HOST": "h"}, "SMTP_FROM"},
		{"unknown provider", map[string]string{"EMAIL_PROVIDER": "carrier-pigeon"}, "EMAIL_PROVIDER"},
		{"unknown pacer", map[string]string{"EMAIL_PROVIDER": "webhook", "PACER_BACKEND": "sleep"}, "PACER_BACKEND"},
		{"zero horizon", map[string]string{"EMAIL_PROVIDER": "webhook", "DUE_SOON_HORIZON_DAYS": "0"}, "DUE_SOON_HORIZON_DAYS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
