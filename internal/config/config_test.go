package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("CONFIG_ENV_PATH", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_DSN")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_EnvFileAndDefaults(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "test.env")
	content := "DATABASE_DSN=file:test.db\nDB_DRIVER=sqlite\nJWT_SECRET=file-secret\nJWT_TTL=2h\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0o600))

	t.Setenv("CONFIG_ENV_PATH", envPath)
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_TTL", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "file:test.db", cfg.DatabaseDSN)
	assert.Equal(t, "file-secret", cfg.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, ":8080", cfg.HTTPListenAddr)
	assert.True(t, cfg.PaymentAutoApprove)
	assert.False(t, cfg.AIEnabled())
	assert.False(t, cfg.S3Enabled())
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoad_UnsupportedDriver(t *testing.T) {
	t.Setenv("CONFIG_ENV_PATH", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("DATABASE_DSN", "dsn")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported DB_DRIVER")
}

func TestLoad_TelegramRequiresChat(t *testing.T) {
	t.Setenv("CONFIG_ENV_PATH", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("DATABASE_DSN", "dsn")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_ADMIN_CHAT_ID")
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "", normalizeBaseURL(""))
	assert.Equal(t, "https://proxy.example.com/", normalizeBaseURL("proxy.example.com"))
	assert.Equal(t, "http://localhost:9000/", normalizeBaseURL("http://localhost:9000/"))
}
