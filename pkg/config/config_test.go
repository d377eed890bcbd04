package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the loader at an empty directory so no host config leaks in.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SAASGATE_CONFIG_PATH", dir)
	t.Setenv("SAASGATE_ENV_FILE", filepath.Join(dir, "missing.env"))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "razorpay", cfg.DefaultPaymentProvider)
	assert.Equal(t, "INR", cfg.DefaultCurrency)
	assert.Equal(t, 3600, cfg.AccessTokenTTL)
	assert.Equal(t, 1000, cfg.APIListLimitMax)
	assert.Equal(t, "default", cfg.Source("access_token_ttl"))
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	dir := isolate(t)
	yml := `
database_url: postgres://file/db
access_token_ttl: 120
log_format: json
backend_cors_origins:
  - https://a.example
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(yml), 0o600))
	t.Setenv("ACCESS_TOKEN_TTL", "60")
	t.Setenv("SECRET_KEY", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://file/db", cfg.DatabaseURL)
	assert.Equal(t, "file", cfg.Source("database_url"))
	assert.Equal(t, 60, cfg.AccessTokenTTL)
	assert.Equal(t, "environment", cfg.Source("access_token_ttl"))
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"https://a.example"}, cfg.CORSOrigins)
	assert.Equal(t, "s3cret", cfg.SecretKey)
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	dir := isolate(t)
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("RAZORPAY_KEY_ID=from-file\nFIRST_SUPERUSER_EMAIL=admin@example.com\n"), 0o600))
	t.Setenv("SAASGATE_ENV_FILE", envFile)
	t.Setenv("RAZORPAY_KEY_ID", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("FIRST_SUPERUSER_EMAIL") })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.RazorpayKeyID)
	assert.Equal(t, "admin@example.com", cfg.FirstSuperuserEmail)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("access_token_ttl: [oops"), 0o600))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := newDefault()
		c.SecretKey = "k"
		c.DatabaseURL = "postgres://localhost/db"
		return c
	}

	assert.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing secret", func(c *Config) { c.SecretKey = "" }, "SECRET_KEY"},
		{"missing database", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL"},
		{"half superuser", func(c *Config) { c.FirstSuperuserEmail = "a@b.c" }, "FIRST_SUPERUSER"},
		{"unknown provider", func(c *Config) { c.DefaultPaymentProvider = "paypal" }, "default_payment_provider"},
		{"bad currency", func(c *Config) { c.DefaultCurrency = "RUPEE" }, "default_currency"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"zero ttl", func(c *Config) { c.AccessTokenTTL = 0 }, "TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFormatText_MasksSecrets(t *testing.T) {
	c := newDefault()
	c.SecretKey = "super-secret"
	c.RazorpayKeySecret = "rzp-secret"
	c.RazorpayKeyID = "rzp_key"

	out := c.FormatText()

	assert.NotContains(t, out, "super-secret")
	assert.NotContains(t, out, "rzp-secret")
	assert.Contains(t, out, "rzp_key")
	assert.Contains(t, out, maskedValue)
	assert.True(t, strings.HasPrefix(out, "Config file:"))
}

func TestFormatJSON(t *testing.T) {
	c := newDefault()
	out, err := c.FormatJSON()
	require.NoError(t, err)
	assert.Contains(t, out, `"attributes"`)
	assert.Contains(t, out, `"default_payment_provider"`)
}
