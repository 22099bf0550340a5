package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/loglore/internal/cache"
	"github.com/bimmerbailey/loglore/internal/config"
	"github.com/bimmerbailey/loglore/internal/llm"
	"github.com/bimmerbailey/loglore/internal/output"
	"github.com/bimmerbailey/loglore/internal/troubleshoot"
)

var troubleshootCmd = &cobra.Command{
	Use:   "troubleshoot [flags] [file...]",
	Short: "Explain a log excerpt and suggest fixes using an LLM",
	Long: `Troubleshoot redacts the log text, classifies its severity and asks the
configured LLM for a diagnosis. Only the redacted text is sent. Reads
stdin when no file (or "-") is given.

Modes:
  beginner  plain-language explanation and three safe next steps (default)
  advanced  root-cause hypotheses, verification commands and a confidence level

Examples:
  loglore troubleshoot app.log
  journalctl -u api --since -10m | loglore troubleshoot --mode advanced
  loglore troubleshoot --meta service=billing --meta env=prod error.log`,
	RunE: runTroubleshoot,
}

func init() {
	troubleshootCmd.Flags().StringP("mode", "m", "beginner", "answer style (beginner, advanced)")
	troubleshootCmd.Flags().StringToString("meta", nil, "metadata sent with the log, as key=value (repeatable)")
	troubleshootCmd.Flags().Bool("show-redacted", false, "print the redacted log that was sent")
	troubleshootCmd.Flags().Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(troubleshootCmd)
}

func runTroubleshoot(cmd *cobra.Command, args []string) error {
	mode, _ := cmd.Flags().GetString("mode")
	meta, _ := cmd.Flags().GetStringToString("meta")
	showRedacted, _ := cmd.Flags().GetBool("show-redacted")
	noColor, _ := cmd.Flags().GetBool("no-color")
	format := output.ParseFormat(viper.GetString("format"))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	r, err := buildRedactor(cfg)
	if err != nil {
		return err
	}

	inputs, err := readInputs(cmd, args)
	if err != nil {
		return err
	}
	parts := make([]string, 0, len(inputs))
	for _, in := range inputs {
		parts = append(parts, strings.TrimRight(in.Text, "\n"))
	}

	svc, c, err := newService(cfg, r, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := svc.Analyze(ctx, troubleshoot.Request{
		Text:     strings.Join(parts, "\n"),
		Mode:     mode,
		Metadata: meta,
	})
	if err != nil && !errors.Is(err, troubleshoot.ErrLLM) {
		return err
	}

	w := output.New(cmd.OutOrStdout(), format)
	if w.Structured() {
		if werr := w.WriteValue(res); werr != nil {
			return werr
		}
		return err
	}

	colorMode := output.ParseColorMode(cfg.Color)
	if noColor {
		colorMode = output.ColorNever
	}
	writeTroubleshootText(cmd, w, res, showRedacted, w.Colorize(colorMode))
	return err
}

func writeTroubleshootText(cmd *cobra.Command, w *output.Writer, res *troubleshoot.Result, showRedacted, colorize bool) {
	out := cmd.OutOrStdout()

	severity := string(res.Severity)
	if colorize {
		severity = output.ColorizeSeverity(severity)
	}
	model := res.ModelUsed
	if res.Cached {
		model += " (cached)"
	}

	_ = w.WriteTable([]string{"SEVERITY", "MODE", "MODEL", "REDACTED"}, [][]string{
		{severity, string(res.Mode), model, fmt.Sprint(res.RedactedCount)},
	})
	fmt.Fprintln(out)

	if showRedacted {
		fmt.Fprintln(out, "Redacted log:")
		fmt.Fprintln(out, res.Redacted)
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, strings.TrimSpace(res.Answer))
}

// newService wires the provider, cache and redactor into a troubleshoot
// service. The caller closes the returned cache.
func newService(cfg *config.Config, r troubleshoot.Redactor, logger *slog.Logger) (*troubleshoot.Service, cache.Cache, error) {
	provider, err := llm.NewProvider(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	c, err := cache.New(cfg.Cache, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cache: %w", err)
	}

	svc, err := troubleshoot.New(r, provider, c, logger, troubleshoot.Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		c.Close()
		return nil, nil, err
	}
	return svc, c, nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
