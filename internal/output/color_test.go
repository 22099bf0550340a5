package output

import (
	"bytes"
	"os"
	"testing"

	"github.com/bimmerbailey/loglore/internal/config"
)

func TestColorizeLine(t *testing.T) {
	tests := []struct {
		level config.LogLevel
		want  string
	}{
		{config.LevelDebug, "\033[90mmsg\033[0m"},
		{config.LevelInfo, "msg"},
		{config.LevelWarn, "\033[33mmsg\033[0m"},
		{config.LevelError, "\033[31mmsg\033[0m"},
		{config.LevelFatal, "\033[1m\033[31mmsg\033[0m"},
		{config.LevelUnknown, "msg"},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			if got := ColorizeLine(tt.level, "msg"); got != tt.want {
				t.Errorf("ColorizeLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestColorizeSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CRITICAL", ansiBoldRed + "CRITICAL" + ansiReset},
		{"HIGH", ansiRed + "HIGH" + ansiReset},
		{"medium", ansiYellow + "medium" + ansiReset},
		{"LOW", ansiGreen + "LOW" + ansiReset},
		{"UNSURE", "UNSURE"},
	}
	for _, tt := range tests {
		if got := ColorizeSeverity(tt.in); got != tt.want {
			t.Errorf("ColorizeSeverity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseColorMode(t *testing.T) {
	tests := map[string]ColorMode{
		"":        ColorAuto,
		"auto":    ColorAuto,
		"ALWAYS":  ColorAlways,
		" never ": ColorNever,
		"rainbow": ColorAuto,
	}
	for in, want := range tests {
		if got := ParseColorMode(in); got != want {
			t.Errorf("ParseColorMode(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestShouldColorize(t *testing.T) {
	var buf bytes.Buffer

	if !shouldColorize(ColorAlways, &buf) {
		t.Error("ColorAlways should colorize any writer")
	}
	if shouldColorize(ColorNever, os.Stdout) {
		t.Error("ColorNever should never colorize")
	}
	if shouldColorize(ColorAuto, &buf) {
		t.Error("ColorAuto should not colorize a buffer")
	}

	t.Setenv("NO_COLOR", "1")
	if shouldColorize(ColorAuto, os.Stdout) {
		t.Error("ColorAuto should honour NO_COLOR")
	}
	if !shouldColorize(ColorAlways, os.Stdout) {
		t.Error("ColorAlways overrides NO_COLOR")
	}
}

func TestWriteColoredEntry(t *testing.T) {
	entry := config.LogEntry{Raw: "ERROR login failed for [REDACTED_EMAIL]", Level: config.LevelError}

	tests := []struct {
		name string
		mode ColorMode
		want string
	}{
		{"always", ColorAlways, ansiRed + entry.Raw + ansiReset + "\n"},
		{"never", ColorNever, entry.Raw + "\n"},
		{"auto on buffer", ColorAuto, entry.Raw + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := New(&buf, FormatText).WriteColoredEntry(entry, tt.mode); err != nil {
				t.Fatalf("WriteColoredEntry() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("WriteColoredEntry() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}
