package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AuthMode string

const (
	AuthModeRequired AuthMode = "required"
	AuthModeOptional AuthMode = "optional"
	AuthModeDisabled AuthMode = "disabled"
)

type Config struct {
	Addr string

	// Auth defaults to disabled: the agent platform calls the chat bridge
	// without credentials.
	AuthMode AuthMode
	APIKeys  map[string]struct{}

	// RTC vendor credentials.
	AgoraAppID          string
	AgoraAppCertificate string
	AgoraCustomerID     string
	AgoraCustomerSecret string
	AgoraBaseURL        string

	// LLM vendor.
	GeminiAPIKey  string
	GeminiBaseURL string

	// Agent provisioning.
	TokenTTL         time.Duration
	AgentIdleTimeout int
	BridgeURL        string
	GreetingMessage  string
	FailureMessage   string
	ASRLanguage      string
	TTSVendor        string
	TTSKey           string
	TTSModelID       string
	TTSVoiceID       string

	// Optional Postgres session store. Empty means in-memory.
	DatabaseURL string

	MaxBodyBytes int64

	// Operational defaults
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	HandlerTimeout      time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:     envOr("VOICEGATE_ADDR", ":8080"),
		AuthMode: AuthMode(envOr("VOICEGATE_AUTH_MODE", string(AuthModeDisabled))),
		APIKeys:  make(map[string]struct{}),

		AgoraAppID:          strings.TrimSpace(os.Getenv("AGORA_APP_ID")),
		AgoraAppCertificate: strings.TrimSpace(os.Getenv("AGORA_APP_CERTIFICATE")),
		AgoraCustomerID:     strings.TrimSpace(os.Getenv("AGORA_CUSTOMER_ID")),
		AgoraCustomerSecret: strings.TrimSpace(os.Getenv("AGORA_CUSTOMER_SECRET")),
		AgoraBaseURL:        envOr("VOICEGATE_AGORA_BASE_URL", ""),

		GeminiAPIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL: envOr("VOICEGATE_GEMINI_BASE_URL", ""),

		TokenTTL:         envDurationOr("VOICEGATE_TOKEN_TTL", time.Hour),
		AgentIdleTimeout: envIntOr("VOICEGATE_AGENT_IDLE_TIMEOUT_SECONDS", 300),
		BridgeURL:        envOr("VOICEGATE_BRIDGE_URL", ""),
		GreetingMessage:  envOr("VOICEGATE_GREETING_MESSAGE", "Hi! I'm your study assistant. What are we working on today?"),
		FailureMessage:   envOr("VOICEGATE_FAILURE_MESSAGE", "Sorry, I didn't catch that. Could you say it again?"),
		ASRLanguage:      envOr("VOICEGATE_ASR_LANGUAGE", "en-US"),
		TTSVendor:        envOr("VOICEGATE_TTS_VENDOR", "elevenlabs"),
		TTSKey:           strings.TrimSpace(os.Getenv("VOICEGATE_TTS_KEY")),
		TTSModelID:       envOr("VOICEGATE_TTS_MODEL_ID", "eleven_flash_v2_5"),
		TTSVoiceID:       envOr("VOICEGATE_TTS_VOICE_ID", ""),

		DatabaseURL: strings.TrimSpace(os.Getenv("VOICEGATE_DATABASE_URL")),

		MaxBodyBytes: envInt64Or("VOICEGATE_MAX_BODY_BYTES", 1<<20), // 1 MiB

		ReadHeaderTimeout:   envDurationOr("VOICEGATE_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:         envDurationOr("VOICEGATE_READ_TIMEOUT", 30*time.Second),
		HandlerTimeout:      envDurationOr("VOICEGATE_TOTAL_REQUEST_TIMEOUT", 2*time.Minute),
		ShutdownGracePeriod: envDurationOr("VOICEGATE_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	switch cfg.AuthMode {
	case AuthModeRequired, AuthModeOptional, AuthModeDisabled:
	default:
		return Config{}, fmt.Errorf("VOICEGATE_AUTH_MODE must be one of required|optional|disabled")
	}

	for _, key := range splitCSV(os.Getenv("VOICEGATE_API_KEYS")) {
		cfg.APIKeys[key] = struct{}{}
	}

	if cfg.AgoraAppID == "" {
		return Config{}, fmt.Errorf("AGORA_APP_ID must be set")
	}
	if cfg.AgoraAppCertificate == "" {
		return Config{}, fmt.Errorf("AGORA_APP_CERTIFICATE must be set")
	}
	if cfg.AgoraCustomerID == "" {
		return Config{}, fmt.Errorf("AGORA_CUSTOMER_ID must be set")
	}
	if cfg.AgoraCustomerSecret == "" {
		return Config{}, fmt.Errorf("AGORA_CUSTOMER_SECRET must be set")
	}
	if cfg.GeminiAPIKey == "" {
		return Config{}, fmt.Errorf("GEMINI_API_KEY must be set")
	}

	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("VOICEGATE_TOKEN_TTL must be > 0")
	}
	if cfg.AgentIdleTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICEGATE_AGENT_IDLE_TIMEOUT_SECONDS must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("VOICEGATE_MAX_BODY_BYTES must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICEGATE_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICEGATE_READ_TIMEOUT must be > 0")
	}
	if cfg.HandlerTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICEGATE_TOTAL_REQUEST_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("VOICEGATE_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	if cfg.AuthMode == AuthModeRequired && len(cfg.APIKeys) == 0 {
		return Config{}, fmt.Errorf("VOICEGATE_API_KEYS must be set when VOICEGATE_AUTH_MODE=required")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
