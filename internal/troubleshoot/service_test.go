package troubleshoot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bimmerbailey/loglore/internal/cache"
	"github.com/bimmerbailey/loglore/internal/llm"
	"github.com/bimmerbailey/loglore/internal/redact"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRedactor(t *testing.T) *redact.Redactor {
	t.Helper()
	r, err := redact.New(redact.DefaultRules())
	if err != nil {
		t.Fatalf("redact.New() error: %v", err)
	}
	return r
}

// recordingProvider captures every message it is sent.
type recordingProvider struct {
	mu     sync.Mutex
	model  string
	err    error
	calls  int
	seen   []llm.Message
	answer string
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Chat(_ context.Context, msgs []llm.Message, _ *llm.ChatOptions) (*llm.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.seen = append(p.seen, msgs...)
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Content: p.answer, Model: p.model}, nil
}

func (p *recordingProvider) Heartbeat(context.Context) error { return nil }

func (p *recordingProvider) ModelAvailable(context.Context, string) (bool, error) { return true, nil }

type failingRedactor struct{}

func (failingRedactor) RedactAndCount(string) (string, int, error) {
	return "", 0, redact.ErrTransform
}

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		text string
		want Severity
	}{
		{"kernel panic - not syncing", SeverityCritical},
		{"FATAL: could not open file", SeverityCritical},
		{"possible Security Breach detected", SeverityCritical},
		{"ERROR connection refused", SeverityHigh},
		{"request timeout after 30s", SeverityHigh},
		{"permission denied", SeverityHigh},
		{"WARNING disk at 85%", SeverityMedium},
		{"retry 2/3", SeverityMedium},
		{"error and panic together", SeverityCritical},
		{"INFO service started", SeverityLow},
		{"", SeverityLow},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := ClassifySeverity(tt.text); got != tt.want {
				t.Errorf("ClassifySeverity(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestAnalyzeRedactsBeforeProvider(t *testing.T) {
	p := &recordingProvider{model: "gpt-4o-mini", answer: "Check the pool size."}
	svc, err := New(newRedactor(t), p, nil, testLogger(), Options{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	res, err := svc.Analyze(context.Background(), Request{
		Text:     "ERROR login failed for jane.doe@corp.io from 10.2.3.4",
		Mode:     "advanced",
		Metadata: map[string]string{"owner": "ops@corp.io", "service": "auth"},
	})
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	for _, m := range p.seen {
		for _, secret := range []string{"jane.doe@corp.io", "10.2.3.4", "ops@corp.io"} {
			if strings.Contains(m.Content, secret) {
				t.Errorf("%s message leaked %q", m.Role, secret)
			}
		}
	}
	user := p.seen[len(p.seen)-1].Content
	if !strings.Contains(user, "MODE: advanced") || !strings.Contains(user, "owner=[REDACTED_EMAIL], service=auth") {
		t.Errorf("user message = %q", user)
	}

	if res.Redacted != "ERROR login failed for [REDACTED_EMAIL] from [REDACTED_IP]" {
		t.Errorf("Redacted = %q", res.Redacted)
	}
	if res.RedactedCount != 2 {
		t.Errorf("RedactedCount = %d, want 2", res.RedactedCount)
	}
	if res.Answer != "Check the pool size." || res.ModelUsed != "gpt-4o-mini" {
		t.Errorf("Answer/ModelUsed = %q/%q", res.Answer, res.ModelUsed)
	}
	if res.Severity != SeverityHigh || res.Mode != "advanced" || res.Cached {
		t.Errorf("Severity/Mode/Cached = %s/%s/%v", res.Severity, res.Mode, res.Cached)
	}
}

func TestAnalyzeRedactsMetadataKeys(t *testing.T) {
	p := &recordingProvider{model: "m", answer: "a"}
	svc, _ := New(newRedactor(t), p, nil, testLogger(), Options{})

	_, err := svc.Analyze(context.Background(), Request{
		Text:     "ERROR upstream reset",
		Metadata: map[string]string{"jane.doe@example.com": "x", "10.0.0.5": "host"},
	})
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	for _, m := range p.seen {
		for _, secret := range []string{"jane.doe@example.com", "10.0.0.5"} {
			if strings.Contains(m.Content, secret) {
				t.Errorf("%s message leaked %q", m.Role, secret)
			}
		}
	}
	user := p.seen[len(p.seen)-1].Content
	if !strings.Contains(user, "METADATA: [REDACTED_EMAIL]=x, [REDACTED_IP]=host") {
		t.Errorf("user message = %q", user)
	}
}

func TestRedactMetadataMergesCollidingKeys(t *testing.T) {
	svc, _ := New(newRedactor(t), llm.NewMock(), nil, testLogger(), Options{})

	got, err := svc.redactMetadata(map[string]string{"10.0.0.1": "a", "10.0.0.2": "b", "env": "prod"})
	if err != nil {
		t.Fatalf("redactMetadata() error: %v", err)
	}
	if len(got) != 2 || got["[REDACTED_IP]"] != "a; b" || got["env"] != "prod" {
		t.Errorf("redactMetadata() = %v", got)
	}
}

func TestAnalyzeFailsClosed(t *testing.T) {
	p := &recordingProvider{model: "m", answer: "a"}
	svc, err := New(failingRedactor{}, p, nil, testLogger(), Options{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	res, err := svc.Analyze(context.Background(), Request{Text: "password=hunter2"})
	if !errors.Is(err, ErrRedaction) || !errors.Is(err, redact.ErrTransform) {
		t.Errorf("Analyze() error = %v, want ErrRedaction wrapping ErrTransform", err)
	}
	if res != nil {
		t.Errorf("Analyze() result = %+v, want nil", res)
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times after redaction failure", p.calls)
	}
}

func TestAnalyzeEmptyLog(t *testing.T) {
	svc, _ := New(newRedactor(t), llm.NewMock(), nil, testLogger(), Options{})
	for _, text := range []string{"", "  \n\t"} {
		if _, err := svc.Analyze(context.Background(), Request{Text: text}); !errors.Is(err, ErrEmptyLog) {
			t.Errorf("Analyze(%q) error = %v, want ErrEmptyLog", text, err)
		}
	}
}

func TestAnalyzeProviderError(t *testing.T) {
	p := &recordingProvider{err: llm.ErrProviderUnavailable}
	svc, _ := New(newRedactor(t), p, nil, testLogger(), Options{})

	res, err := svc.Analyze(context.Background(), Request{Text: "fatal: disk full"})
	if !errors.Is(err, ErrLLM) || !errors.Is(err, llm.ErrProviderUnavailable) {
		t.Fatalf("Analyze() error = %v, want ErrLLM", err)
	}
	if res == nil || res.Answer != ErrorAnswer || res.ModelUsed != ErrorModel {
		t.Fatalf("Analyze() result = %+v", res)
	}
	if res.Redacted != "fatal: disk full" || res.Severity != SeverityCritical {
		t.Errorf("Redacted/Severity = %q/%s", res.Redacted, res.Severity)
	}
}

func TestAnalyzeUsesCache(t *testing.T) {
	p := &recordingProvider{model: "gemini-1.5-flash", answer: "Restart the pod."}
	svc, _ := New(newRedactor(t), p, cache.NewMemory(time.Minute, 10), testLogger(), Options{})

	req := Request{Text: "ERROR OOMKilled pod api-7f9", Mode: "beginner"}
	first, err := svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("first Analyze() error: %v", err)
	}
	second, err := svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("second Analyze() error: %v", err)
	}

	if p.calls != 1 {
		t.Errorf("provider calls = %d, want 1", p.calls)
	}
	if first.Cached || !second.Cached {
		t.Errorf("Cached = %v/%v, want false/true", first.Cached, second.Cached)
	}
	if second.Answer != first.Answer || second.ModelUsed != first.ModelUsed {
		t.Errorf("cached result differs: %+v vs %+v", second, first)
	}

	// A different mode is a different question.
	if _, err := svc.Analyze(context.Background(), Request{Text: req.Text, Mode: "advanced"}); err != nil {
		t.Fatal(err)
	}
	if p.calls != 2 {
		t.Errorf("provider calls after mode change = %d, want 2", p.calls)
	}
}

func TestAnalyzeMockAnswersNotCached(t *testing.T) {
	c := cache.NewMemory(time.Minute, 10)
	svc, _ := New(newRedactor(t), llm.NewMock(), c, testLogger(), Options{})

	res, err := svc.Analyze(context.Background(), Request{Text: "warning: slow query"})
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if res.Answer != llm.MockAnswer || res.ModelUsed != llm.MockModel {
		t.Errorf("Answer/ModelUsed = %q/%q", res.Answer, res.ModelUsed)
	}
	if res.Severity != SeverityMedium {
		t.Errorf("Severity = %s, want MEDIUM", res.Severity)
	}
	if c.Len() != 0 {
		t.Errorf("mock answer cached, Len() = %d", c.Len())
	}
}

func TestAnalyzeHonoursTimeout(t *testing.T) {
	slow := &deadlineProvider{}
	svc, _ := New(newRedactor(t), slow, nil, testLogger(), Options{Timeout: 10 * time.Millisecond})

	_, err := svc.Analyze(context.Background(), Request{Text: "error"})
	if !errors.Is(err, ErrLLM) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Analyze() error = %v, want deadline exceeded", err)
	}
}

func TestAnalyzeFallsBackAfterProviderTimeout(t *testing.T) {
	chain := llm.NewChain(testLogger(), deadlineProvider{}, llm.NewMock())
	svc, _ := New(newRedactor(t), chain, nil, testLogger(), Options{Timeout: 50 * time.Millisecond})

	res, err := svc.Analyze(context.Background(), Request{Text: "ERROR upstream timeout"})
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if res.Answer != llm.MockAnswer || res.ModelUsed != llm.MockModel {
		t.Errorf("Answer/ModelUsed = %q/%q, want mock", res.Answer, res.ModelUsed)
	}
}

// deadlineProvider blocks until the context ends.
type deadlineProvider struct{}

func (deadlineProvider) Name() string { return "slow" }

func (deadlineProvider) Chat(ctx context.Context, _ []llm.Message, _ *llm.ChatOptions) (*llm.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (deadlineProvider) Heartbeat(context.Context) error { return nil }

func (deadlineProvider) ModelAvailable(context.Context, string) (bool, error) { return false, nil }

func TestNewRejectsNil(t *testing.T) {
	r := newRedactor(t)
	if _, err := New(nil, llm.NewMock(), nil, testLogger(), Options{}); err == nil {
		t.Error("New(nil redactor) should fail")
	}
	if _, err := New(r, nil, nil, testLogger(), Options{}); err == nil {
		t.Error("New(nil provider) should fail")
	}
	if _, err := New(r, llm.NewMock(), nil, nil, Options{}); err == nil {
		t.Error("New(nil logger) should fail")
	}
}

func TestAnalyzeWithHolder(t *testing.T) {
	h := redact.NewHolder(newRedactor(t))
	svc, _ := New(h, llm.NewMock(), nil, testLogger(), Options{})

	res, err := svc.Analyze(context.Background(), Request{Text: "user bob@example.com denied"})
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if res.Redacted != "user [REDACTED_EMAIL] denied" {
		t.Errorf("Redacted = %q", res.Redacted)
	}
}
