package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/bimmerbailey/loglore/internal/config"
	"github.com/bimmerbailey/loglore/internal/llm/ollama"
)

// Default models used when the config leaves them empty.
const (
	DefaultGeminiModel    = "gemini-1.5-flash"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
)

// resolveAPIKey checks config first, then falls back to environment variable.
// Returns empty string if neither is set.
func resolveAPIKey(configKey, envVarName string) string {
	if configKey != "" {
		return configKey
	}
	return os.Getenv(envVarName)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// newOllamaProvider creates a local Ollama provider.
func newOllamaProvider(cfg *config.Config, logger *slog.Logger) (Provider, error) {
	p, err := ollama.New(ollama.Config{
		Host:  cfg.LLM.Ollama.Host,
		Model: cfg.LLM.Ollama.Model,
	}, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("initialized ollama provider", "host", cfg.LLM.Ollama.Host, "model", p.Model())
	return &ollamaProviderAdapter{provider: p}, nil
}

// newOpenAIProvider creates an OpenAI provider.
func newOpenAIProvider(cfg *config.Config, logger *slog.Logger) (Provider, error) {
	apiKey := resolveAPIKey(cfg.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf(
			"%w: openai api key missing: set OPENAI_API_KEY environment variable or llm.openai.api_key in config",
			ErrNotConfigured,
		)
	}

	modelName := orDefault(cfg.LLM.OpenAI.Model, DefaultOpenAIModel)
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(modelName),
	}
	if cfg.LLM.OpenAI.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.LLM.OpenAI.BaseURL))
	}
	if orgID := resolveAPIKey(cfg.LLM.OpenAI.OrgID, "OPENAI_ORG_ID"); orgID != "" {
		opts = append(opts, openai.WithOrganization(orgID))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai provider: %w", err)
	}

	logger.Info("initialized openai provider", "model", modelName, "base_url", cfg.LLM.OpenAI.BaseURL)

	return &langchainAdapter{
		model:        model,
		defaultModel: modelName,
		providerType: "openai",
		logger:       logger,
	}, nil
}

// newAnthropicProvider creates an Anthropic/Claude provider.
func newAnthropicProvider(cfg *config.Config, logger *slog.Logger) (Provider, error) {
	apiKey := resolveAPIKey(cfg.LLM.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf(
			"%w: anthropic api key missing: set ANTHROPIC_API_KEY environment variable or llm.anthropic.api_key in config",
			ErrNotConfigured,
		)
	}

	modelName := orDefault(cfg.LLM.Anthropic.Model, DefaultAnthropicModel)
	model, err := anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(modelName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic provider: %w", err)
	}

	logger.Info("initialized anthropic provider", "model", modelName)

	return &langchainAdapter{
		model:        model,
		defaultModel: modelName,
		providerType: "anthropic",
		logger:       logger,
	}, nil
}

// newGeminiProvider creates a Google Gemini provider.
func newGeminiProvider(cfg *config.Config, logger *slog.Logger) (Provider, error) {
	apiKey := resolveAPIKey(cfg.LLM.Gemini.APIKey, "GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf(
			"%w: gemini api key missing: set GEMINI_API_KEY environment variable or llm.gemini.api_key in config",
			ErrNotConfigured,
		)
	}

	modelName := orDefault(cfg.LLM.Gemini.Model, DefaultGeminiModel)
	model, err := googleai.New(context.Background(),
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(modelName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini provider: %w", err)
	}

	logger.Info("initialized gemini provider", "model", modelName)

	return &langchainAdapter{
		model:        model,
		defaultModel: modelName,
		providerType: "gemini",
		logger:       logger,
		foldSystem:   true,
	}, nil
}

// ollamaProviderAdapter adapts the ollama.Provider to the llm.Provider interface.
// This is needed to avoid import cycles between llm and ollama packages.
type ollamaProviderAdapter struct {
	provider *ollama.Provider
}

func (a *ollamaProviderAdapter) Name() string { return "ollama" }

func (a *ollamaProviderAdapter) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	ollamaMessages := make([]ollama.Message, len(messages))
	for i, msg := range messages {
		ollamaMessages[i] = ollama.Message{Role: msg.Role, Content: msg.Content}
	}

	var ollamaOpts *ollama.ChatOptions
	if opts != nil {
		ollamaOpts = &ollama.ChatOptions{
			Model:       opts.Model,
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
		}
	}

	resp, err := a.provider.Chat(ctx, ollamaMessages, ollamaOpts)
	if err != nil {
		return nil, mapOllamaError(err)
	}

	return &Response{
		Content:      resp.Content,
		Model:        resp.Model,
		TokensPrompt: resp.TokensPrompt,
		TokensTotal:  resp.TokensTotal,
	}, nil
}

func (a *ollamaProviderAdapter) Heartbeat(ctx context.Context) error {
	return mapOllamaError(a.provider.Heartbeat(ctx))
}

func (a *ollamaProviderAdapter) ModelAvailable(ctx context.Context, model string) (bool, error) {
	ok, err := a.provider.ModelAvailable(ctx, model)
	return ok, mapOllamaError(err)
}

// mapOllamaError rewraps the subpackage's sentinels as this package's.
func mapOllamaError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ollama.ErrContextCanceled):
		return fmt.Errorf("%w: %v", ErrContextCanceled, err)
	case errors.Is(err, ollama.ErrProviderUnavailable):
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	default:
		return err
	}
}
