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
	Renderer  RendererConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the underlying browser process.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// RendererConfig controls the render coordinator. All fields are fixed at
// construction time; there is no runtime reconfiguration.
type RendererConfig struct {
	// MaxWorkers bounds the number of simultaneous in-flight page loads.
	MaxWorkers int // default: 5

	// NavigationTimeout is the per-navigation deadline.
	NavigationTimeout time.Duration // default: 15s

	// SettleDelay is the grace period after navigation for late-binding
	// dynamic content.
	SettleDelay time.Duration // default: 1s

	// BlockResources toggles interception of heavy subresource requests.
	BlockResources bool // default: true

	// BlockedResourceTypes lists resource types to abort when
	// BlockResources is on.
	// default: ["Image", "Stylesheet", "Font", "Media", "Manifest"]
	BlockedResourceTypes []string

	// UserAgent is sent with every request.
	UserAgent string

	// Stealth injects anti-bot-detection JS before each navigation.
	Stealth bool // default: false
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

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

// CacheConfig controls the render response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 1000

	// MaxTTL is the hard upper bound on entry age, regardless of the
	// max_cache_age_ms a request asks for.
	MaxTTL time.Duration // default: 1h
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// DefaultUserAgent is a realistic desktop browser string used when no
// override is configured.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("RENDER_HOST", "0.0.0.0"),
			Port: envIntOr("RENDER_PORT", 8080),
			Mode: envOr("RENDER_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("RENDER_HEADLESS", true),
			NoSandbox:  envBoolOr("RENDER_NO_SANDBOX", true),
			BrowserBin: os.Getenv("RENDER_BROWSER_BIN"),
		},
		Renderer: RendererConfig{
			MaxWorkers:        envIntOr("RENDER_MAX_WORKERS", 5),
			NavigationTimeout: envDurationOr("RENDER_NAV_TIMEOUT", 15*time.Second),
			SettleDelay:       envDurationOr("RENDER_SETTLE_DELAY", time.Second),
			BlockResources:    envBoolOr("RENDER_BLOCK_RESOURCES", true),
			BlockedResourceTypes: envSliceOr("RENDER_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media", "Manifest",
			}),
			UserAgent: envOr("RENDER_USER_AGENT", DefaultUserAgent),
			Stealth:   envBoolOr("RENDER_STEALTH", false),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("RENDER_AUTH_ENABLED", false),
			APIKeys: envSliceOr("RENDER_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("RENDER_RATE_RPS", 5.0),
			Burst:             envIntOr("RENDER_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("RENDER_CACHE_MAX_ENTRIES", 1000),
			MaxTTL:     envDurationOr("RENDER_CACHE_MAX_TTL", time.Hour),
		},
		Log: LogConfig{
			Level:  envOr("RENDER_LOG_LEVEL", "info"),
			Format: envOr("RENDER_LOG_FORMAT", "json"),
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
