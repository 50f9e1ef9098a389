package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8787", cfg.Port)
	assert.Equal(t, "cloakgate", cfg.ServiceName)
	assert.Equal(t, "http://proxycheck.io", cfg.ProxyCheckURL)
	assert.Empty(t, cfg.ProxyCheckAPIKey)
	assert.Equal(t, 2500*time.Millisecond, cfg.ProxyCheckTimeout)
	assert.Equal(t, 10*time.Minute, cfg.ReputationCacheTTL)
	assert.Equal(t, "https://google.com", cfg.FallbackURL)
	assert.Equal(t, 100, cfg.MinScreenWidth)
	assert.Equal(t, 1024, cfg.HitQueueSize)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("PROXYCHECK_API_KEY", "abc123")
	t.Setenv("PROXYCHECK_TIMEOUT", "1s")
	t.Setenv("MIN_SCREEN_WIDTH", "320")
	t.Setenv("FALLBACK_URL", "https://example.com")
	t.Setenv("TRACING_ENABLED", "true")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "abc123", cfg.ProxyCheckAPIKey)
	assert.Equal(t, time.Second, cfg.ProxyCheckTimeout)
	assert.Equal(t, 320, cfg.MinScreenWidth)
	assert.Equal(t, "https://example.com", cfg.FallbackURL)
	assert.True(t, cfg.TracingEnabled)
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("D_STRING", "1500ms")
	t.Setenv("D_SECONDS", "30")
	t.Setenv("D_INVALID", "soon")

	assert.Equal(t, 1500*time.Millisecond, envDuration("D_STRING", time.Second))
	assert.Equal(t, 30*time.Second, envDuration("D_SECONDS", time.Second))
	assert.Equal(t, time.Second, envDuration("D_INVALID", time.Second))
	assert.Equal(t, time.Second, envDuration("D_UNSET", time.Second))
}

func TestEnvIntAndBool(t *testing.T) {
	t.Setenv("I_VALID", "42")
	t.Setenv("I_INVALID", "many")
	t.Setenv("B_VALID", "1")
	t.Setenv("B_INVALID", "yep")

	assert.Equal(t, 42, envInt("I_VALID", 7))
	assert.Equal(t, 7, envInt("I_INVALID", 7))
	assert.Equal(t, 7, envInt("I_UNSET", 7))

	assert.True(t, envBool("B_VALID", false))
	assert.False(t, envBool("B_INVALID", false))
	assert.True(t, envBool("B_UNSET", true))
}
