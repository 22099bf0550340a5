package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/loglore/internal/config"
	"github.com/bimmerbailey/loglore/internal/output"
	"github.com/bimmerbailey/loglore/internal/tail"
)

var tailCmd = &cobra.Command{
	Use:   "tail [flags] <file>",
	Short: "Live-tail a log file with redaction and filtering",
	Long: `Watch a log file in real-time, similar to 'tail -f', redacting every
line before it is filtered or printed. Lines that cannot be redacted are
replaced with ` + tail.RedactionFailedLine + `.

Patterns match against the redacted line, so a pattern naming a secret
value never matches.

Examples:
  loglore tail /var/log/app.log
  loglore tail --level error /var/log/app.log
  loglore tail --pattern "request_id=abc" --level warn app.log
  loglore tail --follow-rotate -f json /var/log/app.log`,
	Args: cobra.ExactArgs(1),
	RunE: runTail,
}

func init() {
	tailCmd.Flags().StringP("pattern", "p", "", "only show lines matching regex pattern")
	tailCmd.Flags().StringP("level", "l", "", "minimum log level to display (debug, info, warn, error, fatal)")
	tailCmd.Flags().IntP("lines", "n", 10, "number of initial lines to show")
	tailCmd.Flags().Bool("no-follow", false, "print last N lines and exit (don't follow)")
	tailCmd.Flags().Bool("follow-rotate", false, "follow through log rotations (continue when file is renamed/removed)")
	tailCmd.Flags().Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	levelStr, _ := cmd.Flags().GetString("level")
	lines, _ := cmd.Flags().GetInt("lines")
	noFollow, _ := cmd.Flags().GetBool("no-follow")
	followRotate, _ := cmd.Flags().GetBool("follow-rotate")
	noColor, _ := cmd.Flags().GetBool("no-color")
	patternStr, _ := cmd.Flags().GetString("pattern")
	format := output.ParseFormat(viper.GetString("format"))

	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("file does not exist: %s", filePath)
	}

	var pattern *regexp.Regexp
	var err error
	if patternStr != "" {
		pattern, err = regexp.Compile(patternStr)
		if err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
	}

	levelFilter := config.LevelUnknown
	if levelStr != "" {
		levelFilter = config.ParseLevel(levelStr)
		if levelFilter == config.LevelUnknown {
			return fmt.Errorf("invalid level: %s", levelStr)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())
	r, err := buildRedactor(cfg)
	if err != nil {
		return err
	}

	colorMode := output.ParseColorMode(cfg.Color)
	if noColor {
		colorMode = output.ColorNever
	}

	w := output.New(cmd.OutOrStdout(), format)
	outputFunc := func(entry config.LogEntry) error {
		if w.Structured() {
			return w.WriteValue(entry)
		}
		return w.WriteColoredEntry(entry, colorMode)
	}

	tailer := tail.New(tail.Options{
		FilePath:     filePath,
		Lines:        lines,
		Follow:       !noFollow,
		FollowRotate: followRotate,
		Pattern:      pattern,
		LevelFilter:  levelFilter,
		OutputFunc:   outputFunc,
		Redactor:     r,
		Logger:       logger,
	})

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = tailer.Run(ctx)
	logger.Info("tail stopped", "file", filePath, "redacted", tailer.Redacted())
	if err != nil && !errors.Is(err, tail.ErrRotated) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
