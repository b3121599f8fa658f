package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"GEMINI_API_KEY", "GEMINI_BASE_URL", "GEMINI_API_VERSION", "GEMINI_MODEL", "GEMINI_BACKEND",
	"WEB_ADDR", "MAX_UPLOAD_MB", "BGM_DIR", "LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT",
	"PREFER_IPV4", "HTTP_TIMEOUT_SECONDS", "REQUEST_TIMEOUT_SECONDS", "GUIDANCE_PATH",
	"COMPLETION_GUARD", "REQUIRE_RELATIONSHIP", "TRACE_ENABLED", "TRACE_EXPORTER",
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_DEBUG", "MAX_CONCURRENT", "MEDIA_GROUP_DEBOUNCE_MS",
	"SESSION_TTL_MINUTES",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.GeminiAPIKey)
	assert.Equal(t, "v1", cfg.GeminiAPIVersion)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, BackendREST, cfg.GeminiBackend)
	assert.Equal(t, ":8080", cfg.WebAddr)
	assert.Equal(t, int64(25<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "bgm", cfg.BGMDir)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "prompts/relationships.md", cfg.GuidancePath)
	assert.True(t, cfg.CompletionGuard)
	assert.True(t, cfg.RequireRelationship)
	assert.False(t, cfg.TraceEnabled)
	assert.Equal(t, 4, cfg.MaxConcurrent)
	assert.Equal(t, 1200*time.Millisecond, cfg.MediaGroupDebounce)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)

	assert.Error(t, cfg.RequireTelegram())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", " key ")
	t.Setenv("GEMINI_BACKEND", "SDK")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("REQUIRE_RELATIONSHIP", "false")
	t.Setenv("MAX_CONCURRENT", "0")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "-3")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "key", cfg.GeminiAPIKey)
	assert.Equal(t, BackendSDK, cfg.GeminiBackend)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.False(t, cfg.RequireRelationship)
	assert.Equal(t, 1, cfg.MaxConcurrent)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.NoError(t, cfg.RequireTelegram())
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_BACKEND", "grpc")

	_, err := Load()
	assert.Error(t, err)
}

func TestMalformedNumbersUseFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_CONCURRENT", "lots")
	t.Setenv("COMPLETION_GUARD", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxConcurrent)
	assert.True(t, cfg.CompletionGuard)
}
