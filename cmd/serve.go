package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/loglore/internal/redact"
	"github.com/bimmerbailey/loglore/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the redaction and troubleshooting HTTP API",
	Long: `Serve exposes the redactor and the troubleshooter over HTTP:

  GET  /                 service banner
  GET  /health           liveness and active provider
  POST /redact_log       {"text": "..."} -> redacted text and count
  POST /ai_troubleshoot  {"text": "...", "mode": "beginner"} -> diagnosis

With --watch, edits to the config file reload the redaction rules without
a restart. Other settings require a restart.

Examples:
  loglore serve
  loglore serve --addr 127.0.0.1:9000 --watch
  LOGLORE_LLM_PROVIDER=ollama loglore serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().Bool("watch", false, "reload redaction rules when the config file changes")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	watch, _ := cmd.Flags().GetBool("watch")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	// Request logs go out at info.
	if !cfg.Debug {
		cfg.Verbose = true
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	r, err := buildRedactor(cfg)
	if err != nil {
		return err
	}
	holder := redact.NewHolder(r)

	svc, c, err := newService(cfg, holder, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	srv, err := server.New(cfg.Server, holder, svc, logger)
	if err != nil {
		return err
	}

	if watch {
		if viper.ConfigFileUsed() == "" {
			logger.Warn("--watch ignored: no config file in use")
		} else {
			viper.OnConfigChange(func(e fsnotify.Event) {
				if err := reloadRedactor(holder, logger); err != nil {
					logger.Error("config reload rejected, keeping previous rules", "file", e.Name, "error", err)
					return
				}
				logger.Info("redaction rules reloaded", "file", e.Name)
			})
			viper.WatchConfig()
		}
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// reloadRedactor rebuilds the redactor from the current viper state and
// swaps it into holder. On error holder keeps serving the previous rules.
func reloadRedactor(holder *redact.Holder, logger *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	r, err := buildRedactor(cfg)
	if err != nil {
		return err
	}
	holder.Store(r)
	logger.Debug("redactor swapped", "rules", len(r.Rules()))
	return nil
}
