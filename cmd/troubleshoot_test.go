package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/loglore/internal/llm"
	"github.com/bimmerbailey/loglore/internal/troubleshoot"
)

func newTroubleshootTestCmd(out *bytes.Buffer, stdin string) *cobra.Command {
	cmd := newTestCmd("troubleshoot", out, nil, stdin)
	cmd.Flags().StringP("mode", "m", "beginner", "answer style (beginner, advanced)")
	cmd.Flags().StringToString("meta", nil, "metadata sent with the log")
	cmd.Flags().Bool("show-redacted", false, "print the redacted log that was sent")
	cmd.Flags().Bool("no-color", false, "disable colored output")
	return cmd
}

const paymentLog = "ERROR payment failed for alice@example.com card 4111 1111 1111 1111"

func TestTroubleshootJSON(t *testing.T) {
	resetViper(t)
	viper.Set("llm.provider", "mock")
	viper.Set("format", "json")

	var out bytes.Buffer
	cmd := newTroubleshootTestCmd(&out, paymentLog)
	setFlag(t, cmd, "mode", "advanced")
	setFlag(t, cmd, "meta", "service=billing")

	if err := runTroubleshoot(cmd, nil); err != nil {
		t.Fatalf("runTroubleshoot() error = %v", err)
	}

	var res troubleshoot.Result
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v\noutput: %s", err, out.String())
	}
	if res.ModelUsed != llm.MockModel {
		t.Errorf("ModelUsed = %q, want %q", res.ModelUsed, llm.MockModel)
	}
	if res.Severity != troubleshoot.SeverityHigh {
		t.Errorf("Severity = %q, want HIGH", res.Severity)
	}
	if res.Mode != "advanced" {
		t.Errorf("Mode = %q, want advanced", res.Mode)
	}
	if res.Answer != llm.MockAnswer {
		t.Errorf("Answer = %q", res.Answer)
	}
	for _, secret := range []string{"alice@example.com", "4111 1111"} {
		if strings.Contains(out.String(), secret) {
			t.Errorf("output leaked %q:\n%s", secret, out.String())
		}
	}
	if res.RedactedCount != 2 {
		t.Errorf("RedactedCount = %d, want 2", res.RedactedCount)
	}
}

func TestTroubleshootText(t *testing.T) {
	resetViper(t)
	viper.Set("llm.provider", "mock")

	dir := t.TempDir()
	file := writeTempFile(t, dir, "app.log", []string{
		"INFO starting worker",
		"FATAL worker crashed, owner bob@example.com",
	})

	var out bytes.Buffer
	cmd := newTroubleshootTestCmd(&out, "")
	setFlag(t, cmd, "show-redacted", "true")

	if err := runTroubleshoot(cmd, []string{file}); err != nil {
		t.Fatalf("runTroubleshoot() error = %v", err)
	}

	output := out.String()
	for _, want := range []string{"SEVERITY", "CRITICAL", "beginner", "mock", "Redacted log:", "[REDACTED_EMAIL]", "Mock answer"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "bob@example.com") {
		t.Errorf("output leaked email:\n%s", output)
	}
	if strings.Contains(output, "\033[") {
		t.Errorf("unexpected ANSI codes for a non-terminal writer:\n%s", output)
	}
}

func TestTroubleshootEmptyInput(t *testing.T) {
	resetViper(t)
	viper.Set("llm.provider", "mock")

	var out bytes.Buffer
	cmd := newTroubleshootTestCmd(&out, "   \n")
	err := runTroubleshoot(cmd, nil)
	if !errors.Is(err, troubleshoot.ErrEmptyLog) {
		t.Fatalf("runTroubleshoot() error = %v, want ErrEmptyLog", err)
	}
	if out.Len() != 0 {
		t.Errorf("nothing should be printed, got %q", out.String())
	}
}

func TestTroubleshootRedactionFailure(t *testing.T) {
	resetViper(t)
	viper.Set("llm.provider", "mock")
	viper.Set("redaction.max_input_bytes", 8)

	var out bytes.Buffer
	cmd := newTroubleshootTestCmd(&out, paymentLog)
	err := runTroubleshoot(cmd, nil)
	if !errors.Is(err, troubleshoot.ErrRedaction) {
		t.Fatalf("runTroubleshoot() error = %v, want ErrRedaction", err)
	}
	if out.Len() != 0 {
		t.Errorf("nothing should be printed, got %q", out.String())
	}
}

func TestNewServiceRejectsBadProvider(t *testing.T) {
	resetViper(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	cfg.LLM.Provider = "skynet"

	r, err := buildRedactor(cfg)
	if err != nil {
		t.Fatalf("buildRedactor() error = %v", err)
	}
	if _, _, err := newService(cfg, r, newLogger(cfg, &bytes.Buffer{})); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
