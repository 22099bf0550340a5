// Package output renders command results as text, JSON, YAML or tables.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/bimmerbailey/loglore/internal/config"
)

// Format represents an output format type.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// ParseFormat converts a string to a Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "yaml", "yml":
		return FormatYAML
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// Writer handles writing formatted output.
type Writer struct {
	w      io.Writer
	format Format
}

// New creates a new output Writer.
func New(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format}
}

// Format returns the configured format.
func (wr *Writer) Format() Format { return wr.format }

// Structured reports whether the format is JSON or YAML.
func (wr *Writer) Structured() bool {
	return wr.format == FormatJSON || wr.format == FormatYAML
}

// WriteValue outputs v as JSON or YAML. Text and table formats fall back
// to JSON; callers render their own text form.
func (wr *Writer) WriteValue(v any) error {
	if wr.format == FormatYAML {
		return wr.WriteYAML(v)
	}
	return wr.WriteJSON(v)
}

// WriteJSON outputs any value as indented JSON.
func (wr *Writer) WriteJSON(v any) error {
	enc := json.NewEncoder(wr.w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteYAML outputs any value as YAML.
func (wr *Writer) WriteYAML(v any) error {
	enc := yaml.NewEncoder(wr.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// WriteTable prints rows under headers, aligned with tabs.
func (wr *Writer) WriteTable(headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	rule := make([]string, len(headers))
	for i, h := range headers {
		rule[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(rule, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// WriteEntries outputs log entries in the configured format.
func (wr *Writer) WriteEntries(entries []config.LogEntry) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(entries)
	case FormatYAML:
		return wr.WriteYAML(entries)
	case FormatTable:
		return wr.writeEntryTable(entries)
	default:
		for _, e := range entries {
			fmt.Fprintln(wr.w, e.Raw)
		}
		return nil
	}
}

func (wr *Writer) writeEntryTable(entries []config.LogEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		ts := ""
		if !e.Timestamp.IsZero() {
			ts = e.Timestamp.Format("15:04:05")
		}
		msg := e.Message
		if len(msg) > 80 {
			msg = msg[:77] + "..."
		}
		rows = append(rows, []string{fmt.Sprint(e.Line), e.Level.String(), ts, msg})
	}
	return wr.WriteTable([]string{"LINE", "LEVEL", "TIMESTAMP", "MESSAGE"}, rows)
}
