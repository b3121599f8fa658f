package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendREST = "rest"
	BackendSDK  = "sdk"
)

type Config struct {
	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiAPIVersion string
	GeminiModel      string
	GeminiBackend    string

	WebAddr        string
	MaxUploadBytes int64
	BGMDir         string

	LogLevel  string
	LogFormat string
	LogOutput string

	PreferIPv4     bool
	HTTPTimeout    time.Duration
	RequestTimeout time.Duration

	GuidancePath        string
	CompletionGuard     bool
	RequireRelationship bool

	TraceEnabled  bool
	TraceExporter string

	TelegramToken      string
	TelegramDebug      bool
	MaxConcurrent      int
	MediaGroupDebounce time.Duration
	SessionTTL         time.Duration
}

// Load reads the environment. A missing Gemini key is not an error here:
// generation requests report it instead.
func Load() (Config, error) {
	cfg := Config{
		GeminiAPIKey:        strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL:       getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiAPIVersion:    getEnv("GEMINI_API_VERSION", "v1"),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBackend:       strings.ToLower(getEnv("GEMINI_BACKEND", BackendREST)),
		WebAddr:             getEnv("WEB_ADDR", ":8080"),
		MaxUploadBytes:      int64(getEnvInt("MAX_UPLOAD_MB", 25)) << 20,
		BGMDir:              getEnv("BGM_DIR", "bgm"),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:           strings.ToLower(getEnv("LOG_FORMAT", "json")),
		LogOutput:           getEnv("LOG_OUTPUT", "stdout"),
		PreferIPv4:          getEnvBool("PREFER_IPV4", true),
		HTTPTimeout:         time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 90)) * time.Second,
		RequestTimeout:      time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,
		GuidancePath:        getEnv("GUIDANCE_PATH", "prompts/relationships.md"),
		CompletionGuard:     getEnvBool("COMPLETION_GUARD", true),
		RequireRelationship: getEnvBool("REQUIRE_RELATIONSHIP", true),
		TraceEnabled:        getEnvBool("TRACE_ENABLED", false),
		TraceExporter:       strings.ToLower(getEnv("TRACE_EXPORTER", "stdout")),
		TelegramToken:       strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		TelegramDebug:       getEnvBool("TELEGRAM_DEBUG", false),
		MaxConcurrent:       getEnvInt("MAX_CONCURRENT", 4),
		MediaGroupDebounce:  time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
		SessionTTL:          time.Duration(getEnvInt("SESSION_TTL_MINUTES", 120)) * time.Minute,
	}

	switch cfg.GeminiBackend {
	case BackendREST, BackendSDK:
	default:
		return Config{}, fmt.Errorf("GEMINI_BACKEND must be %q or %q, got %q", BackendREST, BackendSDK, cfg.GeminiBackend)
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 25 << 20
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 90 * time.Second
	}
	if cfg.MediaGroupDebounce <= 0 {
		cfg.MediaGroupDebounce = 1200 * time.Millisecond
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}

	return cfg, nil
}

// RequireTelegram checks the settings only the bot needs.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
