// Package cache stores troubleshooting answers keyed by a hash of the
// redacted request, so repeated questions skip the LLM call.
//
// Only answers derived from redacted text may be stored. Keys are SHA-256
// digests and never contain log content.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bimmerbailey/loglore/internal/config"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a string key/value store with a backend-defined TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Defaults applied when the config leaves a field zero.
const (
	DefaultTTL        = time.Hour
	DefaultMaxEntries = 1000
)

// Key hashes parts into a stable cache key.
func Key(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{'|'})
		}
		h.Write([]byte(p))
	}
	return "loglore:answer:" + hex.EncodeToString(h.Sum(nil))
}

// New builds the backend named by cfg.Backend. An empty backend means memory.
func New(cfg config.CacheConfig, logger *slog.Logger) (Cache, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		maxEntries := cfg.MaxEntries
		if maxEntries <= 0 {
			maxEntries = DefaultMaxEntries
		}
		logger.Debug("using in-memory answer cache", "ttl", ttl, "max_entries", maxEntries)
		return NewMemory(ttl, maxEntries), nil
	case "redis":
		return NewRedis(cfg.RedisURL, ttl, logger)
	case "none":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (supported: memory, redis, none)", cfg.Backend)
	}
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (string, error) { return "", ErrMiss }
func (Noop) Set(context.Context, string, string) error   { return nil }
func (Noop) Close() error                                 { return nil }
