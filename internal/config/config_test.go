package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("CREDENTIAL_PROVIDER", "")

	cfg := Load()
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 24*time.Hour, cfg.VerificationTTL)
	assert.Equal(t, ProviderLocal, cfg.CredentialBackend)
	assert.Equal(t, "sid", cfg.SessionCookieName)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("VERIFICATION_TTL", "2h")
	t.Setenv("DEV_PLAINTEXT_LOGIN", "true")
	t.Setenv("CREDENTIAL_PROVIDER", "SUPABASE")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 2*time.Hour, cfg.VerificationTTL)
	assert.Equal(t, ProviderSupabase, cfg.CredentialBackend)
	assert.False(t, cfg.PlaintextLoginAllowed(), "plaintext bypass must stay off in production")
}

func TestPlaintextLoginAllowed_Development(t *testing.T) {
	cfg := &Config{Env: EnvDevelopment, DevPlaintextLogin: true}
	assert.True(t, cfg.PlaintextLoginAllowed())

	cfg.DevPlaintextLogin = false
	assert.False(t, cfg.PlaintextLoginAllowed())
}

func TestGetEnvHelpers_FallBackOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "abc")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_DUR", "soon")

	assert.Equal(t, 7, getEnvInt("X_INT", 7))
	assert.True(t, getEnvBool("X_BOOL", true))
	assert.Equal(t, time.Minute, getEnvDuration("X_DUR", time.Minute))
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-2")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoad_SweepIntervalFallsBackWhenNotPositive(t *testing.T) {
	for _, v := range []string{"0s", "-5m"} {
		t.Setenv("VERIFICATION_SWEEP_INTERVAL", v)
		assert.Equal(t, DefaultSweepInterval, Load().SweepInterval, v)
	}

	t.Setenv("VERIFICATION_SWEEP_INTERVAL", "30s")
	assert.Equal(t, 30*time.Second, Load().SweepInterval)
}
