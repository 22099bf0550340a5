package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/loglore/internal/config"
	"github.com/bimmerbailey/loglore/internal/output"
	"github.com/bimmerbailey/loglore/internal/parser"
	"github.com/bimmerbailey/loglore/internal/redact"
)

var redactCmd = &cobra.Command{
	Use:   "redact [flags] [file...]",
	Short: "Scrub secrets and personal data from log text",
	Long: `Redact replaces emails, IP addresses, API keys, tokens, passwords,
card numbers and other sensitive values with typed placeholders such as
[REDACTED_EMAIL]. Reads stdin when no file (or "-") is given.

Redaction fails closed: if any rule cannot be applied, nothing is printed
and the command exits non-zero.

Examples:
  loglore redact /var/log/app.log
  loglore redact "logs/*.log" --count
  kubectl logs pod/api | loglore redact -f json
  loglore redact --parse -f table app.log`,
	RunE: runRedact,
}

func init() {
	redactCmd.Flags().Bool("count", false, "report the number of redacted values on stderr")
	redactCmd.Flags().Bool("report", false, "with --count, break the number down per rule")
	redactCmd.Flags().Bool("parse", false, "parse the redacted lines and print structured entries")

	rootCmd.AddCommand(redactCmd)
}

// redactResult is the structured form of one redacted input.
type redactResult struct {
	File          string         `json:"file,omitempty" yaml:"file,omitempty"`
	Redacted      string         `json:"redacted" yaml:"redacted"`
	RedactedCount int            `json:"redacted_count" yaml:"redacted_count"`
	Rules         map[string]int `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// input is one named source of log text.
type input struct {
	Name string
	Text string
}

func runRedact(cmd *cobra.Command, args []string) error {
	count, _ := cmd.Flags().GetBool("count")
	report, _ := cmd.Flags().GetBool("report")
	parse, _ := cmd.Flags().GetBool("parse")
	format := output.ParseFormat(viper.GetString("format"))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	r, err := buildRedactor(cfg)
	if err != nil {
		return err
	}

	inputs, err := readInputs(cmd, args)
	if err != nil {
		return err
	}

	// Redact everything before printing anything.
	results := make([]redactResult, 0, len(inputs))
	for _, in := range inputs {
		out, rep, err := r.RedactReport(in.Text)
		if err != nil {
			return fmt.Errorf("%s: %w", displayName(in.Name), err)
		}
		res := redactResult{File: in.Name, Redacted: out, RedactedCount: rep.Total()}
		if report {
			res.Rules = rep
		}
		results = append(results, res)
	}

	w := output.New(cmd.OutOrStdout(), format)
	if parse {
		p := parser.New(cfg.TimestampFormats)
		var entries []config.LogEntry
		for _, res := range results {
			parsed, err := p.Parse(strings.NewReader(res.Redacted))
			if err != nil {
				return fmt.Errorf("%s: %w", displayName(res.File), err)
			}
			entries = append(entries, parsed...)
		}
		if err := w.WriteEntries(entries); err != nil {
			return err
		}
		return writeCount(cmd, r, results, count, report)
	}
	if w.Structured() {
		if len(results) == 1 {
			return w.WriteValue(results[0])
		}
		return w.WriteValue(results)
	}

	stdout := cmd.OutOrStdout()
	for _, res := range results {
		if len(results) > 1 {
			fmt.Fprintf(stdout, "==> %s <==\n", res.File)
		}
		fmt.Fprint(stdout, res.Redacted)
		if res.Redacted != "" && res.Redacted[len(res.Redacted)-1] != '\n' {
			fmt.Fprintln(stdout)
		}
	}
	return writeCount(cmd, r, results, count, report)
}

// writeCount prints the --count summary to stderr.
func writeCount(cmd *cobra.Command, r *redact.Redactor, results []redactResult, count, report bool) error {
	total := 0
	for _, res := range results {
		total += res.RedactedCount
	}
	if count {
		stderr := cmd.ErrOrStderr()
		fmt.Fprintf(stderr, "redacted %d value(s)\n", total)
		if report {
			merged := redact.Report{}
			for _, res := range results {
				for name, n := range res.Rules {
					merged[name] += n
				}
			}
			rows := reportRows(r, merged)
			if len(rows) > 0 {
				_ = output.New(stderr, output.FormatTable).WriteTable([]string{"RULE", "COUNT"}, rows)
			}
		}
	}
	return nil
}

// reportRows lists non-zero rule counts in table order.
func reportRows(r *redact.Redactor, rep redact.Report) [][]string {
	var rows [][]string
	for _, rule := range r.Rules() {
		if n := rep[rule.Name]; n > 0 {
			rows = append(rows, []string{rule.Name, fmt.Sprint(n)})
		}
	}
	return rows
}

// readInputs reads each file argument, or stdin when there are none or the
// argument is "-". Globs are expanded.
func readInputs(cmd *cobra.Command, args []string) ([]input, error) {
	if len(args) == 0 {
		args = []string{"-"}
	}

	var inputs []input
	var patterns []string
	for _, a := range args {
		if a == "-" {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return nil, fmt.Errorf("reading stdin: %w", err)
			}
			inputs = append(inputs, input{Text: string(b)})
			continue
		}
		patterns = append(patterns, a)
	}

	if len(patterns) > 0 {
		files, err := config.ResolveInputs(patterns)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			b, err := os.ReadFile(f)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, input{Name: f, Text: string(b)})
		}
	}
	return inputs, nil
}

func displayName(name string) string {
	if name == "" {
		return "stdin"
	}
	return name
}
