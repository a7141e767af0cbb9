package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("ACCESS_TOKEN_TTL", "")
	t.Setenv("COOKIE_SECURE", "")
	t.Setenv("TRUST_PROXY", "")

	cfg := Load()
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 5, cfg.OTPMaxAttempts)
	assert.Equal(t, time.Hour, cfg.OTPWindow)
	assert.False(t, cfg.CookieSecure)
	assert.False(t, cfg.TrustProxy)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("OTP_MAX_ATTEMPTS", "3")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("TRUST_PROXY", "true")

	cfg := Load()
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 3, cfg.OTPMaxAttempts)
	assert.True(t, cfg.CookieSecure)
	assert.True(t, cfg.TrustProxy)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("OTP_TTL", "ten minutes")
	t.Setenv("OTP_MAX_ATTEMPTS", "many")
	t.Setenv("COOKIE_SECURE", "maybe")
	t.Setenv("APP_ENV", "production")

	cfg := Load()
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 5, cfg.OTPMaxAttempts)
	assert.True(t, cfg.CookieSecure)
}
