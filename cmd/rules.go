package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/loglore/internal/output"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the active redaction rules in the order they run",
	Long: `Rules prints the compiled redaction table, including custom rules
from the config file. The catch-all rule, when enabled, is always last.

Examples:
  loglore rules
  loglore rules -f table
  loglore rules --patterns -f yaml`,
	Args: cobra.NoArgs,
	RunE: runRules,
}

func init() {
	rulesCmd.Flags().Bool("patterns", false, "include the regular expression of each rule")

	rootCmd.AddCommand(rulesCmd)
}

// ruleView is the printable form of a rule.
type ruleView struct {
	Name        string `json:"name" yaml:"name"`
	Replacement string `json:"replacement" yaml:"replacement"`
	Boundary    string `json:"boundary" yaml:"boundary"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Pattern     string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

func runRules(cmd *cobra.Command, args []string) error {
	showPatterns, _ := cmd.Flags().GetBool("patterns")
	format := output.ParseFormat(viper.GetString("format"))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	r, err := buildRedactor(cfg)
	if err != nil {
		return err
	}

	views := make([]ruleView, 0, len(r.Rules()))
	for _, rule := range r.Rules() {
		v := ruleView{
			Name:        rule.Name,
			Replacement: rule.Replacement,
			Boundary:    rule.Boundary.String(),
			Description: rule.Description,
		}
		if showPatterns {
			v.Pattern = rule.Pattern
		}
		views = append(views, v)
	}

	w := output.New(cmd.OutOrStdout(), format)
	switch format {
	case output.FormatJSON, output.FormatYAML:
		return w.WriteValue(views)
	case output.FormatTable:
		headers := []string{"NAME", "REPLACEMENT", "BOUNDARY", "DESCRIPTION"}
		if showPatterns {
			headers = append(headers, "PATTERN")
		}
		rows := make([][]string, 0, len(views))
		for _, v := range views {
			row := []string{v.Name, v.Replacement, v.Boundary, v.Description}
			if showPatterns {
				row = append(row, v.Pattern)
			}
			rows = append(rows, row)
		}
		return w.WriteTable(headers, rows)
	default:
		out := cmd.OutOrStdout()
		for _, v := range views {
			fmt.Fprintf(out, "%-20s %s\n", v.Name, v.Replacement)
			if showPatterns {
				fmt.Fprintf(out, "%-20s %s\n", "", v.Pattern)
			}
		}
		return nil
	}
}
