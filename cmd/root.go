package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/loglore/internal/cache"
	"github.com/bimmerbailey/loglore/internal/config"
	"github.com/bimmerbailey/loglore/internal/redact"
	"github.com/bimmerbailey/loglore/internal/server"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "loglore",
	Short: "Redact logs and troubleshoot them with an LLM",
	Long: `LogLore scrubs secrets and personal data from log text and explains
what went wrong using a local or hosted LLM. Only redacted text ever
leaves the process.

Examples:
  loglore redact /var/log/app.log
  kubectl logs pod/api | loglore redact --count
  loglore troubleshoot --mode advanced --meta service=billing app.log
  loglore tail --level warn /var/log/app.log
  loglore serve --addr :8000`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// Surface bad rule tables before any command runs.
		_, err = buildRedactor(cfg)
		return err
	},
}

// Execute is called by main.main(). It runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.loglore.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "output format (text, json, yaml, table)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".loglore")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("LOGLORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && cfgFile != "" {
			fmt.Fprintln(os.Stderr, "Error reading config file:", err)
		}
	}
}

// setDefaults registers every default so env overrides and Unmarshal see
// the full key set.
func setDefaults() {
	viper.SetDefault("format", "text")
	viper.SetDefault("verbose", false)
	viper.SetDefault("debug", false)
	viper.SetDefault("color", "auto")
	viper.SetDefault("timestamp_formats", []string{
		"2006-01-02T15:04:05Z07:00",  // RFC3339
		"2006-01-02T15:04:05",        // ISO without zone
		"2006-01-02 15:04:05",        // Common datetime
		"Jan _2 15:04:05",            // Syslog
		"02/Jan/2006:15:04:05 -0700", // Apache/Nginx
	})
	viper.SetDefault("log.format", "text")

	viper.SetDefault("llm.provider", "auto")
	viper.SetDefault("llm.fallback", []string{})
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.max_tokens", 800)
	viper.SetDefault("llm.timeout", 60*time.Second)
	viper.SetDefault("llm.ollama.host", "")
	viper.SetDefault("llm.ollama.model", "")
	viper.SetDefault("llm.openai.api_key", "")
	viper.SetDefault("llm.openai.model", "")
	viper.SetDefault("llm.openai.base_url", "")
	viper.SetDefault("llm.openai.org_id", "")
	viper.SetDefault("llm.anthropic.api_key", "")
	viper.SetDefault("llm.anthropic.model", "")
	viper.SetDefault("llm.gemini.api_key", "")
	viper.SetDefault("llm.gemini.model", "")

	viper.SetDefault("redaction.rules", []string{})
	viper.SetDefault("redaction.catch_all", true)
	viper.SetDefault("redaction.min_token_length", redact.DefaultMinTokenLength)
	viper.SetDefault("redaction.max_input_bytes", 0)

	viper.SetDefault("server.addr", ":8000")
	viper.SetDefault("server.allowed_origins", server.DefaultAllowedOrigins)
	viper.SetDefault("server.rate_limit", 5.0)
	viper.SetDefault("server.rate_burst", 10)
	viper.SetDefault("server.trust_proxy_headers", false)
	viper.SetDefault("server.max_body_bytes", 1<<20)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 2*time.Minute)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)

	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.ttl", cache.DefaultTTL)
	viper.SetDefault("cache.max_entries", cache.DefaultMaxEntries)
	viper.SetDefault("cache.redis_url", "")
}

// loadConfig unmarshals and validates the current viper state.
func loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the diagnostic logger: errors only by default, info
// with --verbose, debug with --debug.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelError
	switch {
	case cfg.Debug:
		level = slog.LevelDebug
	case cfg.Verbose:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// buildRedactor compiles the built-in table plus configured custom rules.
func buildRedactor(cfg *config.Config) (*redact.Redactor, error) {
	rules := redact.DefaultRules()
	only := append([]string(nil), cfg.Redaction.Rules...)

	for _, cr := range cfg.Redaction.CustomRules {
		replacement := cr.Replacement
		if replacement == "" {
			kind := cr.Kind
			if kind == "" {
				kind = cr.Name
			}
			replacement = redact.Placeholder(kind)
		}
		rules = append(rules, redact.Rule{
			Name:        cr.Name,
			Pattern:     cr.Pattern,
			Replacement: replacement,
			IgnoreCase:  cr.IgnoreCase,
			Boundary:    redact.ParseBoundary(cr.Boundary),
			Description: "custom rule",
		})
		if len(only) > 0 {
			only = append(only, cr.Name)
		}
	}

	opts := []redact.Option{
		redact.WithCatchAll(cfg.Redaction.CatchAll),
		redact.WithMinTokenLength(cfg.Redaction.MinTokenLength),
		redact.WithMaxInputBytes(cfg.Redaction.MaxInputBytes),
	}
	if len(only) > 0 {
		opts = append(opts, redact.WithRules(only...))
	}
	return redact.New(rules, opts...)
}
