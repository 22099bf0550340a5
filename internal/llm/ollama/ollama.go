// Package ollama talks to a local Ollama daemon for troubleshooting answers.
//
// The package keeps its own request and response types so the parent llm
// package can import it without a cycle.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "llama3.2"

// Provider sends chat requests to Ollama.
type Provider struct {
	client *api.Client
	model  string
	logger *slog.Logger
}

// Config holds Ollama-specific configuration.
type Config struct {
	// Host is the Ollama API endpoint (e.g., "http://localhost:11434").
	// Empty means OLLAMA_HOST or the library default.
	Host string

	// Model is the default model to use (e.g., "llama3.2")
	Model string
}

// Message is a single chat turn.
type Message struct {
	Role    string
	Content string
}

// ChatOptions configures one request.
type ChatOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Response is a complete, non-streamed answer.
type Response struct {
	Content      string
	Model        string
	TokensPrompt int
	TokensTotal  int
}

var (
	ErrProviderUnavailable = errors.New("llm provider is not reachable")
	ErrContextCanceled     = errors.New("operation was canceled")
)

// New creates an Ollama provider.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	var client *api.Client
	if cfg.Host != "" {
		parsedURL, err := url.Parse(cfg.Host)
		if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
			return nil, fmt.Errorf("invalid ollama host %q", cfg.Host)
		}
		client = api.NewClient(parsedURL, http.DefaultClient)
	} else {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		client = c
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Provider{client: client, model: model, logger: logger}, nil
}

// Model returns the default model name.
func (p *Provider) Model() string { return p.model }

// Chat sends messages to Ollama and waits for the full answer.
func (p *Provider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	if len(messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}

	model := p.model
	options := map[string]any{"temperature": float32(0)}
	if opts != nil {
		if opts.Model != "" {
			model = opts.Model
		}
		options["temperature"] = opts.Temperature
		if opts.MaxTokens > 0 {
			options["num_predict"] = opts.MaxTokens
		}
	}

	msgs := make([]api.Message, len(messages))
	for i, m := range messages {
		msgs[i] = api.Message{Role: m.Role, Content: m.Content}
	}

	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: msgs,
		Options:  options,
		Stream:   &stream,
	}

	p.logger.Debug("sending chat request", "model", model, "messages", len(messages))

	var response api.ChatResponse
	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrContextCanceled, err)
		}
		p.logger.Error("chat request failed", "error", err, "model", model)
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if strings.TrimSpace(response.Message.Content) == "" {
		return nil, fmt.Errorf("%w: empty completion from ollama", ErrProviderUnavailable)
	}

	return &Response{
		Content:      response.Message.Content,
		Model:        response.Model,
		TokensPrompt: response.PromptEvalCount,
		TokensTotal:  response.PromptEvalCount + response.EvalCount,
	}, nil
}

// Heartbeat checks if the Ollama service is reachable.
func (p *Provider) Heartbeat(ctx context.Context) error {
	if err := p.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return nil
}

// ModelAvailable checks if a model has been pulled.
func (p *Provider) ModelAvailable(ctx context.Context, model string) (bool, error) {
	listResp, err := p.client.List(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	for _, m := range listResp.Models {
		if m.Name == model || m.Model == model {
			return true, nil
		}
	}
	return false, nil
}
