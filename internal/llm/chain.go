package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Chain tries each provider in order and returns the first successful answer.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain builds a fallback chain. A chain of one behaves like its provider.
func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	return &Chain{providers: providers, logger: logger}
}

// Name lists the chained providers, e.g. "gemini>openai>mock".
func (c *Chain) Name() string {
	return strings.Join(providerNames(c.providers), ">")
}

// Chat returns the first successful response. Each attempt gets its own
// opts.Timeout, so a provider that times out falls through to the next one.
// Only the caller's context ending stops the chain early.
func (c *Chain) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	if len(c.providers) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", ErrNotConfigured)
	}

	var errs []error
	for _, p := range c.providers {
		resp, err := c.attempt(ctx, p, messages, opts)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrContextCanceled, ctx.Err())
		}
		c.logger.Error("llm call failed, trying next provider", "provider", p.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	return nil, errors.Join(errs...)
}

func (c *Chain) attempt(ctx context.Context, p Provider, messages []Message, opts *ChatOptions) (*Response, error) {
	if opts == nil || opts.Timeout <= 0 {
		return p.Chat(ctx, messages, opts)
	}
	callCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	return p.Chat(callCtx, messages, opts)
}

// Heartbeat succeeds when any provider in the chain is healthy.
func (c *Chain) Heartbeat(ctx context.Context) error {
	var errs []error
	for _, p := range c.providers {
		err := p.Heartbeat(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	if len(errs) == 0 {
		return fmt.Errorf("%w: no providers configured", ErrNotConfigured)
	}
	return errors.Join(errs...)
}

// ModelAvailable reports whether any provider in the chain serves model.
func (c *Chain) ModelAvailable(ctx context.Context, model string) (bool, error) {
	var lastErr error
	for _, p := range c.providers {
		ok, err := p.ModelAvailable(ctx, model)
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, lastErr
}

// Providers returns the chained providers in order.
func (c *Chain) Providers() []Provider {
	return append([]Provider(nil), c.providers...)
}
