package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/loglore/internal/analyzer"
	"github.com/bimmerbailey/loglore/internal/config"
	"github.com/bimmerbailey/loglore/internal/output"
	"github.com/bimmerbailey/loglore/internal/parser"
)

var statsCmd = &cobra.Command{
	Use:   "stats [flags] [file...]",
	Short: "Show statistics for a redacted log",
	Long: `Display a statistical summary of log text after redaction: line
counts, level distribution, time range, error rate, top messages and how
many values each redaction rule replaced. Reads stdin when no file (or
"-") is given.

Examples:
  loglore stats /var/log/app.log
  loglore stats --format json --window 5m /var/log/app.log
  loglore stats --since 2h app.log
  kubectl logs pod/api | loglore stats --top 5`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().Int("top", analyzer.DefaultTopN, "number of top messages and sources to show")
	statsCmd.Flags().String("since", "", "only include lines at or after this time (RFC3339 or relative like '1h')")
	statsCmd.Flags().String("until", "", "only include lines at or before this time (RFC3339 or relative like '1h')")
	statsCmd.Flags().Duration("window", 0, "bucket timestamped lines into windows of this size (e.g. 5m)")

	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	topN, _ := cmd.Flags().GetInt("top")
	window, _ := cmd.Flags().GetDuration("window")
	format := output.ParseFormat(viper.GetString("format"))

	span, err := timeRangeFlags(cmd, time.Now())
	if err != nil {
		return err
	}

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

	p := parser.New(cfg.TimestampFormats)
	s := analyzer.New(analyzer.Options{TopN: topN, Window: window})
	for _, in := range inputs {
		redacted, rep, err := r.RedactReport(in.Text)
		if err != nil {
			return fmt.Errorf("%s: %w", displayName(in.Name), err)
		}
		s.AddRedactions(rep)
		err = p.ParseStream(strings.NewReader(redacted), func(e config.LogEntry) error {
			if span.Contains(e.Timestamp) {
				s.Add(e)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("%s: %w", displayName(in.Name), err)
		}
	}
	sum := s.Summary()

	w := output.New(cmd.OutOrStdout(), format)
	if w.Structured() {
		return w.WriteValue(sum)
	}
	return writeStatsText(cmd.OutOrStdout(), w, sum, format == output.FormatTable)
}

// timeRangeFlags reads --since and --until relative to now.
func timeRangeFlags(cmd *cobra.Command, now time.Time) (config.TimeRange, error) {
	var span config.TimeRange
	if v, _ := cmd.Flags().GetString("since"); v != "" {
		t, err := config.ParseTimeRef(v, now)
		if err != nil {
			return span, fmt.Errorf("invalid --since: %w", err)
		}
		span.Since = t
	}
	if v, _ := cmd.Flags().GetString("until"); v != "" {
		t, err := config.ParseTimeRef(v, now)
		if err != nil {
			return span, fmt.Errorf("invalid --until: %w", err)
		}
		span.Until = t
	}
	if !span.Since.IsZero() && !span.Until.IsZero() && span.Until.Before(span.Since) {
		return span, fmt.Errorf("--until is before --since")
	}
	return span, nil
}

var levelOrder = []config.LogLevel{
	config.LevelFatal,
	config.LevelError,
	config.LevelWarn,
	config.LevelInfo,
	config.LevelDebug,
	config.LevelUnknown,
}

func writeStatsText(out io.Writer, w *output.Writer, sum analyzer.Summary, table bool) error {
	fmt.Fprintf(out, "Total Lines: %d\n", sum.TotalLines)
	if sum.FirstEntry != nil {
		fmt.Fprintf(out, "Time Range: %s - %s\n", sum.FirstEntry.Format(time.RFC3339), sum.LastEntry.Format(time.RFC3339))
	}
	fmt.Fprintf(out, "Error Rate: %.2f%%\n", sum.ErrorRate*100)
	fmt.Fprintf(out, "Redacted: %d\n", sum.Redacted)

	var levelRows [][]string
	for _, level := range levelOrder {
		if n := sum.LevelCounts[level.String()]; n > 0 {
			levelRows = append(levelRows, []string{fmt.Sprint(n), level.String()})
		}
	}
	if err := writeSection(out, w, "Levels", []string{"COUNT", "LEVEL"}, levelRows, table); err != nil {
		return err
	}

	msgRows := make([][]string, 0, len(sum.TopMessages))
	for _, m := range sum.TopMessages {
		msgRows = append(msgRows, []string{fmt.Sprint(m.Count), m.Key})
	}
	if err := writeSection(out, w, "Top Messages", []string{"COUNT", "MESSAGE"}, msgRows, table); err != nil {
		return err
	}

	srcRows := make([][]string, 0, len(sum.TopSources))
	for _, src := range sum.TopSources {
		srcRows = append(srcRows, []string{fmt.Sprint(src.Count), src.Key})
	}
	if err := writeSection(out, w, "Top Sources", []string{"COUNT", "SOURCE"}, srcRows, table); err != nil {
		return err
	}

	winRows := make([][]string, 0, len(sum.Windows))
	for _, win := range sum.Windows {
		winRows = append(winRows, []string{
			win.Start.Format(time.RFC3339),
			fmt.Sprint(win.Count),
			fmt.Sprint(win.Errors),
			fmt.Sprintf("%.1f%%", win.ErrorPercent),
		})
	}
	if err := writeSection(out, w, "Windows", []string{"START", "LINES", "ERRORS", "ERROR%"}, winRows, table); err != nil {
		return err
	}

	var ruleRows [][]string
	for rule, n := range sum.RedactedByRule {
		ruleRows = append(ruleRows, []string{fmt.Sprint(n), rule})
	}
	sort.Slice(ruleRows, func(i, j int) bool { return ruleRows[i][1] < ruleRows[j][1] })
	return writeSection(out, w, "Redactions", []string{"COUNT", "RULE"}, ruleRows, table)
}

// writeSection prints rows as "[count] key" lines, or as a table.
func writeSection(out io.Writer, w *output.Writer, title string, headers []string, rows [][]string, table bool) error {
	if len(rows) == 0 {
		return nil
	}
	fmt.Fprintf(out, "\n%s:\n", title)
	if table {
		return w.WriteTable(headers, rows)
	}
	for _, row := range rows {
		fmt.Fprintf(out, "  [%s] %s\n", row[0], strings.Join(row[1:], "  "))
	}
	return nil
}
