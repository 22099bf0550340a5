// Package llm provides a unified interface for the language models that
// answer troubleshooting requests.
//
// # Providers
//
// Provider abstracts Ollama, OpenAI, Anthropic and Gemini behind one Chat
// call. Cloud providers are built on langchaingo; Ollama goes through the
// llm/ollama subpackage, which keeps its own types to avoid an import cycle
// and is bridged by an adapter here.
//
// The Mock provider never leaves the process. It answers with MockAnswer so
// the troubleshooting flow keeps working without credentials.
//
// # Fallback
//
// NewProvider with provider "auto" builds a Chain: Gemini when GEMINI_API_KEY
// (or llm.gemini.api_key) is set, then OpenAI when OPENAI_API_KEY is set, and
// always the mock last. Any other provider may list llm.fallback entries,
// which are chained after it. A Chain stops at the first success and stops
// immediately when the caller's context is canceled. ChatOptions.Timeout
// bounds each attempt separately, so a provider that times out still falls
// through to the mock.
//
// # Usage
//
//	cfg := &config.Config{LLM: config.LLMConfig{Provider: "auto"}}
//	provider, err := llm.NewProvider(cfg, slog.Default())
//	if err != nil {
//	    return err
//	}
//	resp, err := provider.Chat(ctx, []llm.Message{
//	    {Role: "system", Content: "You are an expert engineer."},
//	    {Role: "user", Content: redactedLog},
//	}, &llm.ChatOptions{Temperature: 0.2})
//
// Only redacted text should ever be passed to Chat.
//
// # Errors
//
// Providers wrap failures in ErrProviderUnavailable, ErrNotConfigured,
// ErrInvalidResponse or ErrContextCanceled so callers can use errors.Is.
package llm
