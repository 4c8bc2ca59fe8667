package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCodeKey = "0123456789abcdef0123456789abcdef"

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORAGE", "memory")
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("DELIVERY_CODE_KEY", testCodeKey)
	t.Setenv("PARCELHOP_CONFIG", "")
}

func TestLoadEnvDefaults(t *testing.T) {
	setValidEnv(t)

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", env.AppAddr)
	assert.Equal(t, "info", env.LogLevel)
	assert.Equal(t, StorageMemory, env.Storage)
	assert.Equal(t, 25, env.DBMaxOpenConns)
	assert.InDelta(t, 0.12, env.PlatformFeeRate, 1e-9)
	assert.Equal(t, 5, env.DeliveryMaxAttempts)
	assert.Equal(t, 24*time.Hour, env.PendingPaymentTTL)
	assert.Empty(t, env.CORSAllowedOrigins)
}

func TestLoadEnvOverrides(t *testing.T) {
	setValidEnv(t)
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("PLATFORM_FEE_RATE", "0.2")
	t.Setenv("PENDING_PAYMENT_TTL", "90m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", env.AppAddr)
	assert.InDelta(t, 0.2, env.PlatformFeeRate, 1e-9)
	assert.Equal(t, 90*time.Minute, env.PendingPaymentTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, env.CORSAllowedOrigins)
}

func TestLoadEnvListsEveryProblem(t *testing.T) {
	t.Setenv("PARCELHOP_CONFIG", "")
	t.Setenv("STORAGE", "mysql")
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DELIVERY_CODE_KEY", "short")
	t.Setenv("PLATFORM_FEE_RATE", "1.5")
	t.Setenv("DELIVERY_MAX_ATTEMPTS", "zero")

	_, err := LoadEnv()
	var cfgErr Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Len(t, cfgErr.Problems, 5)
	for _, name := range []string{"DB_DSN", "JWT_SECRET", "DELIVERY_CODE_KEY", "PLATFORM_FEE_RATE", "DELIVERY_MAX_ATTEMPTS"} {
		assert.Contains(t, err.Error(), name)
	}
}

func TestLoadEnvConfigFile(t *testing.T) {
	setValidEnv(t)
	path := filepath.Join(t.TempDir(), "parcelhop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app_addr: \":7070\"\ndelivery_max_attempts: 3\n"), 0o600))
	t.Setenv("PARCELHOP_CONFIG", path)
	t.Setenv("DELIVERY_MAX_ATTEMPTS", "")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, ":7070", env.AppAddr)
	assert.Equal(t, 3, env.DeliveryMaxAttempts)
}
