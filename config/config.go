package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Session   SessionConfig
	LLM       LLMConfig
	Link      LinkConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Store     StoreConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 10

	// DefaultProxy is the default proxy URL for all requests.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// SessionConfig controls per-request browser session behavior.
type SessionConfig struct {
	// DefaultTimeout is the per-request browser-phase timeout.
	DefaultTimeout time.Duration // default: 30s

	// MaxTimeout is the maximum timeout a client may request.
	MaxTimeout time.Duration // default: 120s

	// SelectorTimeout is the fixed upper bound for waitForSelector.
	SelectorTimeout time.Duration // default: 10s

	// IdleDebounce is how long the network must stay mostly idle before
	// navigation is considered settled.
	IdleDebounce time.Duration // default: 500ms

	// MaxInflight is the number of in-flight requests still counted as
	// "mostly idle" (networkidle2-style heuristic).
	MaxInflight int // default: 2
}

// LLMConfig controls the hosted-model client and per-action defaults.
type LLMConfig struct {
	// BaseURL is the OpenAI-compatible API root, e.g. "https://api.openai.com/v1".
	BaseURL string

	// APIKey authenticates against the model service.
	APIKey string

	// ImageModel is the default model for analyze_image.
	ImageModel string // default: "gpt-4o"

	// TextModel is the default model for summarize_text / extract_structured
	// (and the reported default for extract_html).
	TextModel string // default: "gpt-4o-mini"

	// Timeout is the deadline for a single model invocation.
	Timeout time.Duration // default: 60s
}

// LinkConfig controls the link-analysis endpoint variant.
type LinkConfig struct {
	// Model is the fixed model for /analyze/link.
	Model string // default: "gpt-4o-mini"

	// TruncateAt is the variant's own input bound, in runes.
	TruncateAt int // default: 6000

	// HTTPTimeout is the deadline for the HTTP-first fetch path.
	HTTPTimeout time.Duration // default: 8s
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// StoreConfig controls feedback persistence.
type StoreConfig struct {
	// Path is the SQLite database file. default: "pagelens.db"
	Path string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PAGELENS_HOST", "0.0.0.0"),
			Port: envIntOr("PAGELENS_PORT", 8080),
			Mode: envOr("PAGELENS_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("PAGELENS_HEADLESS", true),
			MaxPages:     envIntOr("PAGELENS_MAX_PAGES", 10),
			DefaultProxy: os.Getenv("PAGELENS_PROXY"),
			NoSandbox:    envBoolOr("PAGELENS_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("PAGELENS_BROWSER_BIN"),
		},
		Session: SessionConfig{
			DefaultTimeout:  envDurationOr("PAGELENS_DEFAULT_TIMEOUT", 30*time.Second),
			MaxTimeout:      envDurationOr("PAGELENS_MAX_TIMEOUT", 120*time.Second),
			SelectorTimeout: envDurationOr("PAGELENS_SELECTOR_TIMEOUT", 10*time.Second),
			IdleDebounce:    envDurationOr("PAGELENS_IDLE_DEBOUNCE", 500*time.Millisecond),
			MaxInflight:     envIntOr("PAGELENS_IDLE_MAX_INFLIGHT", 2),
		},
		LLM: LLMConfig{
			BaseURL:    envOr("PAGELENS_LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:     os.Getenv("PAGELENS_LLM_API_KEY"),
			ImageModel: envOr("PAGELENS_IMAGE_MODEL", "gpt-4o"),
			TextModel:  envOr("PAGELENS_TEXT_MODEL", "gpt-4o-mini"),
			Timeout:    envDurationOr("PAGELENS_LLM_TIMEOUT", 60*time.Second),
		},
		Link: LinkConfig{
			Model:       envOr("PAGELENS_LINK_MODEL", "gpt-4o-mini"),
			TruncateAt:  envIntOr("PAGELENS_LINK_TRUNCATE", 6000),
			HTTPTimeout: envDurationOr("PAGELENS_LINK_HTTP_TIMEOUT", 8*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PAGELENS_AUTH_ENABLED", true),
			APIKeys: envSliceOr("PAGELENS_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PAGELENS_RATE_RPS", 5.0),
			Burst:             envIntOr("PAGELENS_RATE_BURST", 10),
		},
		Store: StoreConfig{
			Path: envOr("PAGELENS_DB_PATH", "pagelens.db"),
		},
		Log: LogConfig{
			Level:  envOr("PAGELENS_LOG_LEVEL", "info"),
			Format: envOr("PAGELENS_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
