package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "DB_DSN", "LOG_LEVEL", "LOG_FILE", "AUTO_MIGRATE", "SSN_KEY", "BODY_LIMIT", "RATE_LIMIT", "TEMPLATES_DIR"} {
		t.Setenv(k, "")
	}
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "file:mcacrm.db", cfg.DBDSN)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, 1<<20, cfg.BodyLimit)
	assert.Equal(t, DevSSNKey, cfg.SSNKey)
	assert.Equal(t, ":8081", cfg.Addr())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://u:p@localhost/crm?sslmode=disable")
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("SSN_KEY", "s3cret")
	t.Setenv("RATE_LIMIT", "10")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, "s3cret", cfg.SSNKey)
	assert.Equal(t, 10, cfg.RateLimit)
}

func TestFromEnvRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")
	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
}
