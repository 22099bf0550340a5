package cmd

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/bimmerbailey/loglore/internal/config"
	"github.com/bimmerbailey/loglore/internal/redact"
)

func TestLoadConfigDefaults(t *testing.T) {
	resetViper(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.Format != "text" {
		t.Errorf("Format = %q, want text", cfg.Format)
	}
	if cfg.LLM.Provider != "auto" {
		t.Errorf("LLM.Provider = %q, want auto", cfg.LLM.Provider)
	}
	if cfg.LLM.Timeout != 60*time.Second {
		t.Errorf("LLM.Timeout = %v, want 60s", cfg.LLM.Timeout)
	}
	if !cfg.Redaction.CatchAll || cfg.Redaction.MinTokenLength != redact.DefaultMinTokenLength {
		t.Errorf("Redaction = %+v", cfg.Redaction)
	}
	if cfg.Server.Addr != ":8000" || cfg.Server.RateLimit != 5 || cfg.Server.RateBurst != 10 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.TrustProxyHeaders {
		t.Error("proxy headers must not be trusted by default")
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		t.Error("expected default allowed origins")
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("Cache.Backend = %q, want memory", cfg.Cache.Backend)
	}
	if len(cfg.TimestampFormats) != 5 {
		t.Errorf("TimestampFormats = %v", cfg.TimestampFormats)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value any
	}{
		{"format", "xml"},
		{"llm.provider", "skynet"},
		{"redaction.min_token_length", 0},
		{"log.format", "logfmt"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			resetViper(t)
			viper.Set(tt.key, tt.value)
			if _, err := loadConfig(); err == nil {
				t.Errorf("loadConfig() with %s=%v expected error", tt.key, tt.value)
			}
		})
	}
}

func TestBuildRedactorCustomRules(t *testing.T) {
	resetViper(t)
	viper.Set("redaction.rules", []string{"email"})
	viper.Set("redaction.custom_rules", []map[string]any{
		{"name": "ticket", "pattern": `tkt-[0-9]+`, "ignore_case": true, "boundary": "alnum"},
	})

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	r, err := buildRedactor(cfg)
	if err != nil {
		t.Fatalf("buildRedactor() error = %v", err)
	}

	var names []string
	for _, rule := range r.Rules() {
		names = append(names, rule.Name)
	}
	want := []string{"email", "ticket", redact.CatchAllName}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("rules = %v, want %v", names, want)
	}
	if len(cfg.Redaction.Rules) != 1 {
		t.Errorf("config rule list was modified: %v", cfg.Redaction.Rules)
	}

	got, err := r.Redact("see TKT-42 from 10.0.0.1 or xtkt-7")
	if err != nil {
		t.Fatalf("Redact() error = %v", err)
	}
	if got != "see [REDACTED_TICKET] from 10.0.0.1 or xtkt-7" {
		t.Errorf("Redact() = %q", got)
	}
}

func TestBuildRedactorInvalidRule(t *testing.T) {
	resetViper(t)
	viper.Set("redaction.custom_rules", []map[string]any{
		{"name": "broken", "pattern": `(unclosed`},
	})

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	_, err = buildRedactor(cfg)
	var ruleErr *redact.RuleError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("buildRedactor() error = %v, want *redact.RuleError", err)
	}
	if ruleErr.Rule != "broken" {
		t.Errorf("RuleError.Rule = %q, want broken", ruleErr.Rule)
	}
}

func TestBuildRedactorUnknownRule(t *testing.T) {
	resetViper(t)
	viper.Set("redaction.rules", []string{"email", "no_such_rule"})

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if _, err := buildRedactor(cfg); err == nil {
		t.Fatal("expected error for unknown rule name")
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		enabled slog.Level
		muted   slog.Level
	}{
		{"default", config.Config{}, slog.LevelError, slog.LevelWarn},
		{"verbose", config.Config{Verbose: true}, slog.LevelInfo, slog.LevelDebug},
		{"debug", config.Config{Debug: true}, slog.LevelDebug, slog.LevelDebug - 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := newLogger(&tt.cfg, &bytes.Buffer{})
			ctx := context.Background()
			if !logger.Enabled(ctx, tt.enabled) {
				t.Errorf("level %v should be enabled", tt.enabled)
			}
			if logger.Enabled(ctx, tt.muted) {
				t.Errorf("level %v should be muted", tt.muted)
			}
		})
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{Log: config.LogConfig{Format: "json"}}
	newLogger(cfg, &buf).Error("boom", "count", 2)

	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"msg":"boom"`) {
		t.Errorf("expected JSON log line, got %q", buf.String())
	}
}
