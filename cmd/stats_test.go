package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/loglore/internal/analyzer"
)

func newStatsTestCmd(out *bytes.Buffer) *cobra.Command {
	cmd := newTestCmd("stats", out, nil, "")
	cmd.Flags().Int("top", analyzer.DefaultTopN, "number of top messages and sources to show")
	cmd.Flags().String("since", "", "only include lines at or after this time")
	cmd.Flags().String("until", "", "only include lines at or before this time")
	cmd.Flags().Duration("window", 0, "bucket timestamped lines into windows of this size")
	return cmd
}

func TestStatsBasicText(t *testing.T) {
	resetViper(t)
	viper.Set("format", "text")

	dir := t.TempDir()
	file := writeTempFile(t, dir, "app.log", []string{
		`{"timestamp":"2025-01-26T10:00:00Z","level":"info","message":"first"}`,
		`{"timestamp":"2025-01-26T10:00:01Z","level":"error","message":"boom"}`,
		`{"timestamp":"2025-01-26T10:00:02Z","level":"info","message":"second"}`,
		`{"timestamp":"2025-01-26T10:00:03Z","level":"error","message":"boom"}`,
		`{"timestamp":"2025-01-26T10:00:04Z","level":"warn","message":"warning"}`,
	})

	var out bytes.Buffer
	cmd := newStatsTestCmd(&out)

	if err := runStats(cmd, []string{file}); err != nil {
		t.Fatalf("runStats() error = %v", err)
	}

	output := out.String()
	for _, want := range []string{
		"Total Lines: 5",
		"Time Range: 2025-01-26T10:00:00Z - 2025-01-26T10:00:04Z",
		"Error Rate: 40.00%",
		"Redacted: 0",
		"[2] ERROR",
		"[2] boom",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q, got:\n%s", want, output)
		}
	}
}

func TestStatsJSON(t *testing.T) {
	resetViper(t)
	viper.Set("format", "json")

	dir := t.TempDir()
	file := writeTempFile(t, dir, "app.log", []string{
		`{"timestamp":"2025-01-26T10:00:00Z","level":"info","message":"first"}`,
		`{"timestamp":"2025-01-26T10:00:01Z","level":"error","message":"error1"}`,
		`{"timestamp":"2025-01-26T10:00:02Z","level":"error","message":"error2"}`,
	})

	var out bytes.Buffer
	cmd := newStatsTestCmd(&out)

	if err := runStats(cmd, []string{file}); err != nil {
		t.Fatalf("runStats() error = %v", err)
	}

	var sum analyzer.Summary
	if err := json.Unmarshal(out.Bytes(), &sum); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v\noutput: %s", err, out.String())
	}

	if sum.TotalLines != 3 {
		t.Errorf("expected TotalLines=3, got %d", sum.TotalLines)
	}
	if sum.ErrorRate != 2.0/3.0 {
		t.Errorf("expected ErrorRate=0.67, got %f", sum.ErrorRate)
	}
	if len(sum.TopMessages) != 3 {
		t.Errorf("expected 3 top messages, got %d", len(sum.TopMessages))
	}
	if sum.LevelCounts["ERROR"] != 2 || sum.LevelCounts["INFO"] != 1 {
		t.Errorf("LevelCounts = %v", sum.LevelCounts)
	}
}

func TestStatsTable(t *testing.T) {
	resetViper(t)
	viper.Set("format", "table")

	dir := t.TempDir()
	file := writeTempFile(t, dir, "app.log", []string{
		`{"timestamp":"2025-01-26T10:00:00Z","level":"info","message":"first"}`,
		`{"timestamp":"2025-01-26T10:00:01Z","level":"error","message":"boom"}`,
	})

	var out bytes.Buffer
	cmd := newStatsTestCmd(&out)

	if err := runStats(cmd, []string{file}); err != nil {
		t.Fatalf("runStats() error = %v", err)
	}

	output := out.String()
	if !strings.Contains(output, "Total Lines: 2") {
		t.Errorf("expected Total Lines: 2 in output, got:\n%s", output)
	}
	if !strings.Contains(output, "COUNT") || !strings.Contains(output, "ERROR") {
		t.Errorf("expected level table, got:\n%s", output)
	}
}

func TestStatsCountsRedactions(t *testing.T) {
	resetViper(t)
	viper.Set("format", "json")

	var out bytes.Buffer
	cmd := newStatsTestCmd(&out)
	cmd.SetIn(strings.NewReader(joinLines([]string{
		"2025-01-26 10:00:00 ERROR login failed for alice@example.com",
		"2025-01-26 10:00:05 ERROR login failed for bob@example.com",
		"2025-01-26 10:00:09 INFO retry from 10.1.2.3",
	})))

	if err := runStats(cmd, nil); err != nil {
		t.Fatalf("runStats() error = %v", err)
	}
	if strings.Contains(out.String(), "example.com") {
		t.Fatalf("summary leaked an email:\n%s", out.String())
	}

	var sum analyzer.Summary
	if err := json.Unmarshal(out.Bytes(), &sum); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
	if sum.Redacted != 3 {
		t.Errorf("Redacted = %d, want 3", sum.Redacted)
	}
	if sum.RedactedByRule["email"] != 2 || sum.RedactedByRule["ipv4"] != 1 {
		t.Errorf("RedactedByRule = %v", sum.RedactedByRule)
	}
	if len(sum.TopMessages) == 0 || sum.TopMessages[0].Key != "login failed for [REDACTED_EMAIL]" || sum.TopMessages[0].Count != 2 {
		t.Errorf("TopMessages = %+v", sum.TopMessages)
	}
}

func TestStatsTimeFilterAndWindows(t *testing.T) {
	resetViper(t)
	viper.Set("format", "json")

	file := writeTempFile(t, t.TempDir(), "app.log", []string{
		`{"timestamp":"2025-01-26T09:59:00Z","level":"info","message":"early"}`,
		`{"timestamp":"2025-01-26T10:00:00Z","level":"info","message":"a"}`,
		`{"timestamp":"2025-01-26T10:00:30Z","level":"error","message":"b"}`,
		`{"timestamp":"2025-01-26T10:01:10Z","level":"info","message":"c"}`,
		`{"timestamp":"2025-01-26T10:05:00Z","level":"info","message":"late"}`,
	})

	var out bytes.Buffer
	cmd := newStatsTestCmd(&out)
	setFlag(t, cmd, "since", "2025-01-26T10:00:00Z")
	setFlag(t, cmd, "until", "2025-01-26T10:02:00Z")
	setFlag(t, cmd, "window", "1m")

	if err := runStats(cmd, []string{file}); err != nil {
		t.Fatalf("runStats() error = %v", err)
	}

	var sum analyzer.Summary
	if err := json.Unmarshal(out.Bytes(), &sum); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v\noutput: %s", err, out.String())
	}
	if sum.TotalLines != 3 {
		t.Fatalf("TotalLines = %d, want 3", sum.TotalLines)
	}
	if len(sum.Windows) != 2 {
		t.Fatalf("Windows = %+v, want 2", sum.Windows)
	}
	if sum.Windows[0].Count != 2 || sum.Windows[0].Errors != 1 || sum.Windows[0].ErrorPercent != 50 {
		t.Errorf("first window = %+v", sum.Windows[0])
	}
	if sum.Windows[1].Count != 1 {
		t.Errorf("second window = %+v", sum.Windows[1])
	}
}

func TestStatsInvalidTimeRange(t *testing.T) {
	resetViper(t)

	tests := []struct {
		name  string
		since string
		until string
	}{
		{"bad since", "banana", ""},
		{"bad until", "", "banana"},
		{"reversed", "2025-01-26T11:00:00Z", "2025-01-26T10:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := newStatsTestCmd(&out)
			if tt.since != "" {
				setFlag(t, cmd, "since", tt.since)
			}
			if tt.until != "" {
				setFlag(t, cmd, "until", tt.until)
			}
			if err := runStats(cmd, []string{"-"}); err == nil {
				t.Error("expected error")
			}
		})
	}
}
