package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// langchainAdapter implements the Provider interface using langchaingo.
// This adapter translates between our Provider interface and langchaingo's llms.Model.
type langchainAdapter struct {
	model        llms.Model
	defaultModel string
	providerType string
	logger       *slog.Logger

	// foldSystem merges system messages into the first user turn for
	// backends without a system role.
	foldSystem bool
}

func (a *langchainAdapter) Name() string { return a.providerType }

// Chat sends messages and returns a complete response.
func (a *langchainAdapter) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	if len(messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	if a.foldSystem {
		messages = foldSystemMessages(messages)
	}

	lcOpts := convertOptions(opts, a.defaultModel)
	a.logger.Debug("sending chat request", "provider", a.providerType, "messages", len(messages))

	resp, err := a.model.GenerateContent(ctx, convertMessages(messages), lcOpts...)
	if err != nil {
		return nil, wrapError(ctx, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return nil, fmt.Errorf("%w: empty completion from %s", ErrInvalidResponse, a.providerType)
	}

	return convertResponse(resp, modelOrDefault(opts, a.defaultModel)), nil
}

// Heartbeat checks that credentials were supplied. Cloud providers have no
// free health endpoint, so reachability is only proven by a real call.
func (a *langchainAdapter) Heartbeat(ctx context.Context) error {
	if a.model == nil {
		return fmt.Errorf("%w: %s", ErrNotConfigured, a.providerType)
	}
	return ctx.Err()
}

// ModelAvailable checks if model is available (cloud providers assume yes).
func (a *langchainAdapter) ModelAvailable(ctx context.Context, model string) (bool, error) {
	return true, nil
}

// --- Conversion Helpers ---

func convertMessages(messages []Message) []llms.MessageContent {
	result := make([]llms.MessageContent, len(messages))
	for i, msg := range messages {
		result[i] = llms.TextParts(convertRole(msg.Role), msg.Content)
	}
	return result
}

func convertRole(role string) llms.ChatMessageType {
	switch role {
	case "system":
		return llms.ChatMessageTypeSystem
	case "user":
		return llms.ChatMessageTypeHuman
	case "assistant":
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeGeneric
	}
}

// foldSystemMessages prepends system content to the first user message.
func foldSystemMessages(messages []Message) []Message {
	var system []string
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		out = append(out, m)
	}
	if len(system) == 0 {
		return messages
	}
	prefix := strings.Join(system, "\n\n")
	for i := range out {
		if out[i].Role == "user" {
			out[i].Content = prefix + "\n\n" + out[i].Content
			return out
		}
	}
	return append([]Message{{Role: "user", Content: prefix}}, out...)
}

func modelOrDefault(opts *ChatOptions, defaultModel string) string {
	if opts != nil && opts.Model != "" {
		return opts.Model
	}
	return defaultModel
}

func convertOptions(opts *ChatOptions, defaultModel string) []llms.CallOption {
	result := []llms.CallOption{llms.WithModel(modelOrDefault(opts, defaultModel))}

	if opts != nil {
		result = append(result, llms.WithTemperature(float64(opts.Temperature)))
		if opts.MaxTokens > 0 {
			result = append(result, llms.WithMaxTokens(opts.MaxTokens))
		}
	}

	return result
}

func convertResponse(lcResp *llms.ContentResponse, model string) *Response {
	choice := lcResp.Choices[0]

	return &Response{
		Content:      choice.Content,
		Model:        model,
		TokensPrompt: getIntFromInfo(choice.GenerationInfo, "PromptTokens", "input_tokens"),
		TokensTotal:  getIntFromInfo(choice.GenerationInfo, "TotalTokens", "total_tokens"),
	}
}

func getIntFromInfo(info map[string]any, keys ...string) int {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}

// wrapError converts langchaingo errors to our error types.
func wrapError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.Canceled) || ctx.Err() == context.Canceled:
		return fmt.Errorf("%w: %v", ErrContextCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: timed out: %v", ErrProviderUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
}
