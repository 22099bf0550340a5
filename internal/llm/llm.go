package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bimmerbailey/loglore/internal/config"
)

// Provider defines the interface for LLM interactions.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Name identifies the provider in logs and health output.
	Name() string

	// Chat sends messages and returns a complete response.
	// The context can be used to cancel the request.
	Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error)

	// Heartbeat checks if the provider is reachable and healthy.
	// Returns nil if the provider is available, otherwise returns an error.
	Heartbeat(ctx context.Context) error

	// ModelAvailable checks if a specific model is available for use.
	ModelAvailable(ctx context.Context, model string) (bool, error)
}

// Message represents a single message in a conversation.
type Message struct {
	// Role identifies the message sender: "system", "user", or "assistant"
	Role string

	// Content is the message text
	Content string
}

// ChatOptions configures chat behavior.
// All fields are optional; nil opts uses provider defaults.
type ChatOptions struct {
	// Model overrides the provider's default model
	Model string

	// Temperature controls randomness (0.0 = deterministic)
	Temperature float32

	// MaxTokens limits the response length (0 = provider default)
	MaxTokens int

	// Timeout bounds each provider attempt in a Chain (0 = no limit)
	Timeout time.Duration
}

// Response represents a complete LLM response.
type Response struct {
	// Content is the generated text
	Content string

	// Model is the name of the model that generated the response
	Model string

	// TokensPrompt is the number of tokens in the prompt
	TokensPrompt int

	// TokensTotal is the total number of tokens (prompt + completion)
	TokensTotal int
}

// Common errors returned by LLM providers.
var (
	// ErrProviderUnavailable indicates the LLM provider is not reachable
	ErrProviderUnavailable = errors.New("llm provider is not reachable")

	// ErrNotConfigured indicates a provider is missing credentials
	ErrNotConfigured = errors.New("llm provider is not configured")

	// ErrInvalidResponse indicates the provider returned an invalid response
	ErrInvalidResponse = errors.New("provider returned invalid response")

	// ErrContextCanceled indicates the operation was canceled via context
	ErrContextCanceled = errors.New("operation was canceled")
)

// NewProvider creates an LLM provider based on the configuration.
//
// "auto" selects Gemini when a Gemini key is present, then OpenAI when an
// OpenAI key is present, and always ends with the mock provider so a
// troubleshooting request still gets an answer. Any other provider name is
// built directly and, when llm.fallback is set, wrapped in a chain with the
// listed fallbacks.
func NewProvider(cfg *config.Config, logger *slog.Logger) (Provider, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	providerType := strings.ToLower(cfg.LLM.Provider)
	logger.Debug("creating llm provider", "type", providerType)

	if providerType == "auto" {
		return newAutoProvider(cfg, logger), nil
	}

	primary, err := newNamedProvider(providerType, cfg, logger)
	if err != nil {
		return nil, err
	}
	if len(cfg.LLM.Fallback) == 0 {
		return primary, nil
	}

	providers := []Provider{primary}
	for _, name := range cfg.LLM.Fallback {
		p, err := newNamedProvider(strings.ToLower(name), cfg, logger)
		if err != nil {
			logger.Warn("skipping fallback provider", "provider", name, "error", err)
			continue
		}
		providers = append(providers, p)
	}
	return NewChain(logger, providers...), nil
}

func newNamedProvider(name string, cfg *config.Config, logger *slog.Logger) (Provider, error) {
	switch name {
	case "ollama":
		return newOllamaProvider(cfg, logger)
	case "openai":
		return newOpenAIProvider(cfg, logger)
	case "anthropic":
		return newAnthropicProvider(cfg, logger)
	case "gemini":
		return newGeminiProvider(cfg, logger)
	case "mock":
		return NewMock(), nil
	case "":
		return nil, errors.New("llm provider not specified in configuration")
	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: auto, ollama, openai, anthropic, gemini, mock)", name)
	}
}

func newAutoProvider(cfg *config.Config, logger *slog.Logger) Provider {
	var providers []Provider

	if resolveAPIKey(cfg.LLM.Gemini.APIKey, "GEMINI_API_KEY") != "" {
		if p, err := newGeminiProvider(cfg, logger); err == nil {
			providers = append(providers, p)
		} else {
			logger.Error("failed to configure gemini", "error", err)
		}
	}
	if resolveAPIKey(cfg.LLM.OpenAI.APIKey, "OPENAI_API_KEY") != "" {
		if p, err := newOpenAIProvider(cfg, logger); err == nil {
			providers = append(providers, p)
		} else {
			logger.Error("failed to configure openai", "error", err)
		}
	}
	providers = append(providers, NewMock())

	logger.Info("llm provider chain configured", "providers", providerNames(providers))
	return NewChain(logger, providers...)
}

func providerNames(providers []Provider) []string {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}
	return names
}
