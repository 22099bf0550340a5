package prompt_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/bimmerbailey/loglore/internal/prompt"
)

const testLog = `2024-01-15 10:00:01 ERROR db connect failed host=[REDACTED_IP]
2024-01-15 10:00:02 WARN retry attempt 1 of 3`

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want prompt.Mode
	}{
		{"advanced", prompt.ModeAdvanced},
		{"ADVANCED", prompt.ModeAdvanced},
		{" Advanced ", prompt.ModeAdvanced},
		{"beginner", prompt.ModeBeginner},
		{"", prompt.ModeBeginner},
		{"expert", prompt.ModeBeginner},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := prompt.ParseMode(tt.in); got != tt.want {
				t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuild_RequiresLog(t *testing.T) {
	for _, log := range []string{"", "   \n"} {
		_, err := prompt.Build(prompt.ModeBeginner, prompt.BuildOptions{Log: log})
		if !errors.Is(err, prompt.ErrMissingField) {
			t.Errorf("Build(%q) error = %v, want ErrMissingField", log, err)
		}
	}
}

func TestBuild_Modes(t *testing.T) {
	tests := []struct {
		name       string
		mode       prompt.Mode
		wantMode   string
		wantSystem string
	}{
		{"beginner", prompt.ModeBeginner, "MODE: beginner", "explains simply"},
		{"advanced", prompt.ModeAdvanced, "MODE: advanced", "writing for professionals"},
		{"unknown falls back", prompt.Mode("wizard"), "MODE: beginner", "explains simply"},
		{"case insensitive", prompt.Mode("ADVANCED"), "MODE: advanced", "prioritized remediation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := prompt.Build(tt.mode, prompt.BuildOptions{Log: testLog})
			if err != nil {
				t.Fatalf("Build() error: %v", err)
			}
			if len(msgs) != 2 || msgs[0].Role != "system" || msgs[1].Role != "user" {
				t.Fatalf("Build() roles = %+v, want system,user", msgs)
			}
			if !strings.Contains(msgs[0].Content, tt.wantSystem) {
				t.Errorf("system prompt missing %q", tt.wantSystem)
			}
			if !strings.HasPrefix(msgs[1].Content, tt.wantMode+"\n") {
				t.Errorf("user message = %q, want prefix %q", msgs[1].Content, tt.wantMode)
			}
		})
	}
}

func TestBuild_SystemPromptRules(t *testing.T) {
	for _, mode := range []prompt.Mode{prompt.ModeBeginner, prompt.ModeAdvanced} {
		msgs, err := prompt.Build(mode, prompt.BuildOptions{Log: testLog})
		if err != nil {
			t.Fatalf("Build(%s) error: %v", mode, err)
		}
		for _, want := range []string{"plain text only", "3 ", "confidence level", "Avoid destructive commands."} {
			if !strings.Contains(msgs[0].Content, want) {
				t.Errorf("%s system prompt missing %q", mode, want)
			}
		}
	}
}

func TestBuild_UserMessageLayout(t *testing.T) {
	msgs, err := prompt.Build(prompt.ModeAdvanced, prompt.BuildOptions{
		Log:      testLog,
		Metadata: map[string]string{"service": "billing", "env": "prod"},
	})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	want := "MODE: advanced\nMETADATA: env=prod, service=billing\nLOG:\n" + testLog
	if msgs[1].Content != want {
		t.Errorf("user message =\n%q\nwant\n%q", msgs[1].Content, want)
	}
}

func TestBuild_NoMetadata(t *testing.T) {
	msgs, err := prompt.Build(prompt.ModeBeginner, prompt.BuildOptions{Log: "boom"})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !strings.Contains(msgs[1].Content, "METADATA: none\n") {
		t.Errorf("user message = %q, want METADATA: none", msgs[1].Content)
	}
}
