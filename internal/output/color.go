package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/bimmerbailey/loglore/internal/config"
)

const (
	ansiReset   = "\033[0m"
	ansiRed     = "\033[31m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	ansiGray    = "\033[90m"
	ansiBoldRed = "\033[1m\033[31m"
)

// ColorMode determines when to use colored output.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // color when writing to a terminal and NO_COLOR is unset
	ColorAlways                  // always emit ANSI codes
	ColorNever                   // never emit ANSI codes
)

// ParseColorMode converts a config value ("auto", "always", "never") to a
// ColorMode. Unknown values mean auto.
func ParseColorMode(s string) ColorMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "always":
		return ColorAlways
	case "never":
		return ColorNever
	default:
		return ColorAuto
	}
}

var levelColors = map[config.LogLevel]string{
	config.LevelDebug: ansiGray,
	config.LevelWarn:  ansiYellow,
	config.LevelError: ansiRed,
	config.LevelFatal: ansiBoldRed,
}

var severityColors = map[string]string{
	"CRITICAL": ansiBoldRed,
	"HIGH":     ansiRed,
	"MEDIUM":   ansiYellow,
	"LOW":      ansiGreen,
}

func shouldColorize(mode ColorMode, w io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Colorize reports whether this writer should emit ANSI colors under mode.
func (wr *Writer) Colorize(mode ColorMode) bool {
	return shouldColorize(mode, wr.w)
}

func paint(code, s string) string {
	if code == "" {
		return s
	}
	return code + s + ansiReset
}

// ColorizeLine colors a whole log line by level. INFO and UNKNOWN lines
// are returned unchanged.
func ColorizeLine(level config.LogLevel, line string) string {
	return paint(levelColors[level], line)
}

// ColorizeSeverity colors a troubleshooting severity label.
func ColorizeSeverity(severity string) string {
	return paint(severityColors[strings.ToUpper(severity)], severity)
}

// WriteColoredEntry writes the entry's raw line, colored by level when mode
// allows it for this writer.
func (wr *Writer) WriteColoredEntry(entry config.LogEntry, mode ColorMode) error {
	line := entry.Raw
	if wr.Colorize(mode) {
		line = ColorizeLine(entry.Level, line)
	}
	_, err := fmt.Fprintln(wr.w, line)
	return err
}
