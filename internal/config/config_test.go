package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTP_PORT)
	assert.Equal(t, 30*time.Second, cfg.REQUEST_TIMEOUT)
	assert.Equal(t, 15*time.Minute, cfg.CACHE_TTL)
	assert.Equal(t, "INR", cfg.CURRENCY)
	assert.Equal(t, 7.0, cfg.PLATFORM_FEE)
	assert.Equal(t, "permissive", cfg.ORDER_STATUS_POLICY)
	assert.Equal(t, 587, cfg.SMTP_PORT)
	assert.True(t, cfg.SandboxPayments())
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "s3cret")
	t.Setenv("PLATFORM_FEE", "0")
	t.Setenv("ORDER_STATUS_POLICY", "STRICT")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_live_x")
	t.Setenv("RAZORPAY_KEY_SECRET", "y")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.PLATFORM_FEE)
	assert.Equal(t, "strict", cfg.ORDER_STATUS_POLICY)
	assert.Equal(t, 5*time.Second, cfg.REQUEST_TIMEOUT)
	assert.False(t, cfg.SandboxPayments())
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ADMIN_JWT_SECRET: from-file\nHTTP_PORT: \"9090\"\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_PORT", "7070")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.ADMIN_JWT_SECRET)
	assert.Equal(t, "7070", cfg.HTTP_PORT, "environment wins over the file")
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "ADMIN_JWT_SECRET")

	t.Setenv("ADMIN_JWT_SECRET", "s")
	t.Setenv("ORDER_STATUS_POLICY", "lenient")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "ORDER_STATUS_POLICY")

	t.Setenv("ORDER_STATUS_POLICY", "permissive")
	t.Setenv("PLATFORM_FEE", "-1")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "PLATFORM_FEE")
}
