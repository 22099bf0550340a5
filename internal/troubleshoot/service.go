// Package troubleshoot turns a raw log excerpt into a redacted, LLM-written
// triage with a severity label.
//
// Every request is redacted before anything else happens. If redaction
// fails the request fails and no provider is contacted.
package troubleshoot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/bimmerbailey/loglore/internal/cache"
	"github.com/bimmerbailey/loglore/internal/llm"
	"github.com/bimmerbailey/loglore/internal/prompt"
)

// ErrorAnswer and ErrorModel are reported when every provider failed.
const (
	ErrorAnswer = "Error: unexpected failure while calling the LLM."
	ErrorModel  = "error"
)

var (
	// ErrEmptyLog is returned for a request without log text.
	ErrEmptyLog = errors.New("log text is required")

	// ErrRedaction wraps any failure of the redaction step.
	ErrRedaction = errors.New("redaction failed")

	// ErrLLM wraps a failure of the provider call. The accompanying Result
	// still carries the redacted text and severity.
	ErrLLM = errors.New("llm call failed")
)

// Redactor is the part of redact.Redactor the service needs.
type Redactor interface {
	RedactAndCount(text string) (string, int, error)
}

// Request is one troubleshooting question.
type Request struct {
	Text     string
	Mode     string
	Metadata map[string]string
}

// Result is the answer to a Request.
type Result struct {
	Answer        string   `json:"answer" yaml:"answer"`
	Redacted      string   `json:"redacted" yaml:"redacted"`
	ModelUsed     string   `json:"model_used" yaml:"model_used"`
	Severity      Severity `json:"severity" yaml:"severity"`
	Mode          string   `json:"mode" yaml:"mode"`
	RedactedCount int      `json:"redacted_count" yaml:"redacted_count"`
	Cached        bool     `json:"cached" yaml:"cached"`
}

// Options tune the provider call.
type Options struct {
	// Model overrides the provider default and is part of the cache key.
	Model       string
	Temperature float32
	MaxTokens   int

	// Timeout bounds each provider attempt. A chain gives every provider
	// its own budget. Zero means only the caller's context applies.
	Timeout time.Duration
}

// Service runs the redact, prompt, ask, classify pipeline.
type Service struct {
	redactor Redactor
	provider llm.Provider
	cache    cache.Cache
	logger   *slog.Logger
	opts     Options
}

// New wires a Service. A nil cache disables caching.
func New(redactor Redactor, provider llm.Provider, c cache.Cache, logger *slog.Logger, opts Options) (*Service, error) {
	if redactor == nil {
		return nil, errors.New("redactor cannot be nil")
	}
	if provider == nil {
		return nil, errors.New("provider cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{redactor: redactor, provider: provider, cache: c, logger: logger, opts: opts}, nil
}

// ProviderName reports the configured provider or chain.
func (s *Service) ProviderName() string { return s.provider.Name() }

type cachedAnswer struct {
	Answer    string `json:"answer"`
	ModelUsed string `json:"model_used"`
}

// Analyze redacts req.Text, asks the provider for a triage and classifies
// severity.
//
// On a redaction error it returns (nil, err wrapping ErrRedaction). On a
// provider error it returns a Result with ErrorAnswer and ErrorModel
// alongside an error wrapping ErrLLM.
func (s *Service) Analyze(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyLog
	}

	redacted, count, err := s.redactor.RedactAndCount(req.Text)
	if err != nil {
		s.logger.Error("redaction failed, request dropped", "input_bytes", len(req.Text), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrRedaction, err)
	}

	metadata, err := s.redactMetadata(req.Metadata)
	if err != nil {
		s.logger.Error("metadata redaction failed, request dropped", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrRedaction, err)
	}

	mode := prompt.ParseMode(req.Mode)
	res := &Result{
		Redacted:      redacted,
		Severity:      ClassifySeverity(redacted),
		Mode:          string(mode),
		RedactedCount: count,
	}

	key := cache.Key(s.provider.Name(), s.opts.Model, string(mode), formatMetadataKey(metadata), redacted)
	if hit, ok := s.lookup(ctx, key); ok {
		res.Answer, res.ModelUsed, res.Cached = hit.Answer, hit.ModelUsed, true
		s.logger.Debug("answer served from cache", "model", hit.ModelUsed)
		return res, nil
	}

	msgs, err := prompt.Build(mode, prompt.BuildOptions{Log: redacted, Metadata: metadata})
	if err != nil {
		return nil, err
	}

	callCtx := ctx
	if _, chained := s.provider.(*llm.Chain); !chained && s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.provider.Chat(callCtx, msgs, &llm.ChatOptions{
		Model:       s.opts.Model,
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
		Timeout:     s.opts.Timeout,
	})
	if err != nil {
		s.logger.Error("troubleshoot llm call failed", "provider", s.provider.Name(), "error", err)
		res.Answer, res.ModelUsed = ErrorAnswer, ErrorModel
		return res, fmt.Errorf("%w: %w", ErrLLM, err)
	}

	res.Answer, res.ModelUsed = resp.Content, resp.Model
	s.logger.Info("troubleshoot answered",
		"model", resp.Model,
		"mode", mode,
		"redacted_count", count,
		"severity", res.Severity,
		"duration", time.Since(start))

	// The mock answer stands in for a failed call and must not mask a
	// provider that recovers later.
	if resp.Model != llm.MockModel {
		s.store(ctx, key, cachedAnswer{Answer: resp.Content, ModelUsed: resp.Model})
	}
	return res, nil
}

// redactMetadata redacts every key and value. Keys that redact to the same
// text keep all their values, joined in sorted key order.
func (s *Service) redactMetadata(m map[string]string) (map[string]string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(m))
	for _, k := range keys {
		key, _, err := s.redactor.RedactAndCount(k)
		if err != nil {
			return nil, fmt.Errorf("metadata key: %w", err)
		}
		val, _, err := s.redactor.RedactAndCount(m[k])
		if err != nil {
			return nil, fmt.Errorf("metadata value: %w", err)
		}
		if prev, ok := out[key]; ok {
			val = prev + "; " + val
		}
		out[key] = val
	}
	return out, nil
}

func (s *Service) lookup(ctx context.Context, key string) (cachedAnswer, bool) {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("answer cache lookup failed", "error", err)
		}
		return cachedAnswer{}, false
	}
	var hit cachedAnswer
	if err := json.Unmarshal([]byte(raw), &hit); err != nil {
		s.logger.Warn("discarding corrupt cache entry", "error", err)
		return cachedAnswer{}, false
	}
	return hit, true
}

func (s *Service) store(ctx context.Context, key string, a cachedAnswer) {
	data, err := json.Marshal(a)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(data)); err != nil {
		s.logger.Warn("answer cache store failed", "error", err)
	}
}

// formatMetadataKey renders metadata deterministically for the cache key.
func formatMetadataKey(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	data, _ := json.Marshal(m) // map keys are sorted by encoding/json
	return string(data)
}
