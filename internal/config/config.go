// Package config provides configuration types and helpers for loglore.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the application-wide configuration.
type Config struct {
	Format           string          `mapstructure:"format"`
	Verbose          bool            `mapstructure:"verbose"`
	Debug            bool            `mapstructure:"debug"`
	Color            string          `mapstructure:"color"` // auto, always or never
	TimestampFormats []string        `mapstructure:"timestamp_formats"`
	Log              LogConfig       `mapstructure:"log"`
	LLM              LLMConfig       `mapstructure:"llm"`
	Redaction        RedactionConfig `mapstructure:"redaction"`
	Server           ServerConfig    `mapstructure:"server"`
	Cache            CacheConfig     `mapstructure:"cache"`
}

// LogConfig controls the process's own diagnostic logging.
type LogConfig struct {
	// Format is "text" or "json".
	Format string `mapstructure:"format"`
}

// LLMConfig holds configuration for LLM providers.
type LLMConfig struct {
	// Provider selects which LLM to use: "auto", "ollama", "openai",
	// "anthropic", "gemini" or "mock".
	Provider string `mapstructure:"provider"`

	// Fallback lists providers tried in order after Provider fails.
	Fallback []string `mapstructure:"fallback"`

	// Global settings applied to all providers
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`

	// Provider-specific configuration
	Ollama    OllamaConfig    `mapstructure:"ollama"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
}

// OllamaConfig holds Ollama-specific settings.
type OllamaConfig struct {
	Host  string `mapstructure:"host"`  // API endpoint
	Model string `mapstructure:"model"` // Default model name
}

// OpenAIConfig holds OpenAI-specific settings.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`  // Optional: read from OPENAI_API_KEY if empty
	Model   string `mapstructure:"model"`    // e.g., "gpt-4o-mini"
	BaseURL string `mapstructure:"base_url"` // Optional: for compatible endpoints
	OrgID   string `mapstructure:"org_id"`   // Optional: organization ID
}

// AnthropicConfig holds Anthropic/Claude-specific settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"` // Optional: read from ANTHROPIC_API_KEY if empty
	Model  string `mapstructure:"model"`
}

// GeminiConfig holds Google Gemini settings.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"` // Optional: read from GEMINI_API_KEY if empty
	Model  string `mapstructure:"model"`   // e.g. "gemini-1.5-flash"
}

// RedactionConfig controls the redaction engine.
type RedactionConfig struct {
	// Rules restricts the built-in table to the named rules. Empty keeps all.
	Rules []string `mapstructure:"rules"`

	// CatchAll enables the generic opaque-token rule.
	CatchAll bool `mapstructure:"catch_all"`

	// MinTokenLength is the shortest run the catch-all redacts.
	MinTokenLength int `mapstructure:"min_token_length"`

	// MaxInputBytes rejects larger inputs. Zero means unlimited.
	MaxInputBytes int `mapstructure:"max_input_bytes"`

	// CustomRules are appended after the built-in table, before the catch-all.
	CustomRules []CustomRule `mapstructure:"custom_rules"`
}

// CustomRule is a user-supplied redaction rule.
type CustomRule struct {
	Name        string `mapstructure:"name"`
	Pattern     string `mapstructure:"pattern"`
	Replacement string `mapstructure:"replacement"` // defaults to a placeholder built from Kind or Name
	Kind        string `mapstructure:"kind"`
	IgnoreCase  bool   `mapstructure:"ignore_case"`
	Boundary    string `mapstructure:"boundary"` // "", "digit" or "alnum"
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RateLimit      float64  `mapstructure:"rate_limit"` // requests per second per client, 0 disables
	RateBurst      int      `mapstructure:"rate_burst"`
	// TrustProxyHeaders keys rate limits on X-Forwarded-For / X-Real-IP.
	TrustProxyHeaders bool          `mapstructure:"trust_proxy_headers"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// CacheConfig holds answer cache settings.
type CacheConfig struct {
	// Backend is "memory", "redis" or "none".
	Backend    string        `mapstructure:"backend"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
	RedisURL   string        `mapstructure:"redis_url"`
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

var (
	validProviders = []string{"auto", "ollama", "openai", "anthropic", "gemini", "mock"}
	validFormats   = []string{"text", "json", "yaml", "table"}
	validBackends  = []string{"memory", "redis", "none"}
	validColors    = []string{"auto", "always", "never"}
)

// Validate checks the configuration for values that would fail later at runtime.
func (c *Config) Validate() error {
	var errs []error

	if c.Format != "" && !oneOf(c.Format, validFormats) {
		errs = append(errs, fmt.Errorf("format %q: must be one of %s", c.Format, strings.Join(validFormats, ", ")))
	}
	if c.Color != "" && !oneOf(c.Color, validColors) {
		errs = append(errs, fmt.Errorf("color %q: must be one of %s", c.Color, strings.Join(validColors, ", ")))
	}
	if c.Log.Format != "" && !oneOf(c.Log.Format, []string{"text", "json"}) {
		errs = append(errs, fmt.Errorf("log.format %q: must be text or json", c.Log.Format))
	}

	if c.LLM.Provider != "" && !oneOf(c.LLM.Provider, validProviders) {
		errs = append(errs, fmt.Errorf("llm.provider %q: must be one of %s", c.LLM.Provider, strings.Join(validProviders, ", ")))
	}
	for _, p := range c.LLM.Fallback {
		if !oneOf(p, validProviders) || strings.EqualFold(p, "auto") {
			errs = append(errs, fmt.Errorf("llm.fallback %q: unknown provider", p))
		}
	}
	if c.LLM.Timeout < 0 {
		errs = append(errs, fmt.Errorf("llm.timeout: must not be negative"))
	}

	if c.Redaction.MinTokenLength < 1 {
		errs = append(errs, fmt.Errorf("redaction.min_token_length %d: must be at least 1", c.Redaction.MinTokenLength))
	}
	if c.Redaction.MaxInputBytes < 0 {
		errs = append(errs, fmt.Errorf("redaction.max_input_bytes: must not be negative"))
	}
	for i, r := range c.Redaction.CustomRules {
		if r.Name == "" || r.Pattern == "" {
			errs = append(errs, fmt.Errorf("redaction.custom_rules[%d]: name and pattern are required", i))
		}
		if r.Boundary != "" && !oneOf(r.Boundary, []string{"none", "digit", "alnum"}) {
			errs = append(errs, fmt.Errorf("redaction.custom_rules[%d].boundary %q: must be none, digit or alnum", i, r.Boundary))
		}
	}

	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit: must not be negative"))
	}
	if c.Server.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes: must not be negative"))
	}

	if c.Cache.Backend != "" && !oneOf(c.Cache.Backend, validBackends) {
		errs = append(errs, fmt.Errorf("cache.backend %q: must be one of %s", c.Cache.Backend, strings.Join(validBackends, ", ")))
	}
	if strings.EqualFold(c.Cache.Backend, "redis") && c.Cache.RedisURL == "" {
		errs = append(errs, fmt.Errorf("cache.redis_url: required for the redis backend"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func oneOf(v string, options []string) bool {
	for _, o := range options {
		if strings.EqualFold(v, o) {
			return true
		}
	}
	return false
}

// LogLevel represents a standard log severity level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
	LevelUnknown
)

// String returns the string representation of a LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON implements json.Marshaler for LogLevel.
func (l LogLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// MarshalYAML renders a LogLevel by name.
func (l LogLevel) MarshalYAML() (any, error) {
	return l.String(), nil
}

// UnmarshalJSON implements json.Unmarshaler for LogLevel.
func (l *LogLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = ParseLevel(s)
	return nil
}

// ParseLevel converts a string to a LogLevel.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug", "dbg":
		return LevelDebug
	case "info", "inf":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error", "err":
		return LevelError
	case "fatal", "critical", "crit":
		return LevelFatal
	default:
		return LevelUnknown
	}
}

// LogEntry represents a single parsed log line. Raw is always redacted
// text once it leaves the tail package.
type LogEntry struct {
	Raw       string            `json:"raw" yaml:"raw"`
	Timestamp time.Time         `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Level     LogLevel          `json:"level" yaml:"level"`
	Message   string            `json:"message" yaml:"message"`
	Source    string            `json:"source,omitempty" yaml:"source,omitempty"`
	Fields    map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
	Line      int               `json:"line" yaml:"line"`
}
