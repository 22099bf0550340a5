// Package parser turns log lines into structured entries.
//
// It detects common log formats (JSON, syslog, Apache, generic) and extracts
// level, timestamp, source and fields. Callers that handle untrusted logs
// parse redacted lines, so every extracted field is already scrubbed.
package parser

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bimmerbailey/loglore/internal/config"
)

// Format represents a detected log format.
type Format string

const (
	FormatJSON    Format = "json"
	FormatSyslog  Format = "syslog"
	FormatApache  Format = "apache"
	FormatGeneric Format = "generic"
)

// MaxLineBytes is the longest line the parser will scan.
const MaxLineBytes = 1024 * 1024

var (
	// <pri>Mon dd hh:mm:ss host process[pid]: message
	syslogPattern = regexp.MustCompile(`^(?:<(\d{1,3})>)?([A-Z][a-z]{2}\s+\d{1,2} \d{2}:\d{2}:\d{2}) (\S+) ([^\s:\[]+)(?:\[(\d+)\])?: ?(.*)$`)

	// host ident user [time] "method path proto" status bytes
	apachePattern = regexp.MustCompile(`^(\S+) \S+ (\S+) \[([^\]]+)\] "(\S+) (\S+)[^"]*" (\d{3}) (\S+)`)

	// levelPattern matches common log level strings.
	levelPattern = regexp.MustCompile(`(?i)\b(DEBUG|INFO|WARN(?:ING)?|ERROR|FATAL|CRITICAL)\b`)

	// levelPrefix strips a leading level token such as "[WARN]" or "ERROR:".
	levelPrefix = regexp.MustCompile(`(?i)^\[?(DEBUG|INFO|WARN(?:ING)?|ERROR|FATAL|CRITICAL)\]?:?\s*`)
)

// Parser reads and parses log files into structured entries.
type Parser struct {
	timestampFormats []string
}

// New creates a new Parser with the given timestamp format patterns.
func New(timestampFormats []string) *Parser {
	if len(timestampFormats) == 0 {
		timestampFormats = []string{
			"2006-01-02T15:04:05Z07:00",
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
			"Jan _2 15:04:05",
			"02/Jan/2006:15:04:05 -0700",
		}
	}
	return &Parser{timestampFormats: timestampFormats}
}

// DetectFormat guesses the format of a single line.
func DetectFormat(line string) Format {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)):
		return FormatJSON
	case syslogPattern.MatchString(trimmed):
		return FormatSyslog
	case apachePattern.MatchString(trimmed):
		return FormatApache
	default:
		return FormatGeneric
	}
}

// ParseFile opens a file and parses all log entries from it.
func (p *Parser) ParseFile(path string) ([]config.LogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return p.Parse(f)
}

// Parse reads all log entries from r.
func (p *Parser) Parse(r io.Reader) ([]config.LogEntry, error) {
	var entries []config.LogEntry
	err := p.ParseStream(r, func(e config.LogEntry) error {
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

// ParseStream calls fn for every non-blank line of r. Line numbers count
// blank lines. A non-nil error from fn stops the scan and is returned.
func (p *Parser) ParseStream(r io.Reader, fn func(config.LogEntry) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxLineBytes)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := fn(p.ParseLine(line, lineNum)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// ParseLine parses a single line.
func (p *Parser) ParseLine(line string, lineNum int) config.LogEntry {
	entry := config.LogEntry{
		Raw:    line,
		Line:   lineNum,
		Level:  config.LevelUnknown,
		Fields: make(map[string]string),
	}

	trimmed := strings.TrimSpace(line)
	switch {
	case p.parseJSON(trimmed, &entry):
	case p.parseSyslog(trimmed, &entry):
	case p.parseApache(trimmed, &entry):
	default:
		p.parseGeneric(trimmed, &entry)
	}
	return entry
}

func (p *Parser) parseJSON(line string, entry *config.LogEntry) bool {
	if !strings.HasPrefix(line, "{") {
		return false
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return false
	}

	for _, key := range []string{"msg", "message", "text"} {
		if v, ok := data[key].(string); ok {
			entry.Message = v
			break
		}
	}
	for _, key := range []string{"level", "severity", "lvl"} {
		if v, ok := data[key].(string); ok {
			entry.Level = config.ParseLevel(v)
			break
		}
	}
	for _, key := range []string{"time", "timestamp", "ts", "@timestamp"} {
		if v, ok := data[key]; ok {
			entry.Timestamp = p.jsonTimestamp(v)
			break
		}
	}
	if v, ok := data["source"].(string); ok {
		entry.Source = v
	}

	for k, v := range data {
		switch k {
		case "msg", "message", "text", "level", "severity", "lvl",
			"time", "timestamp", "ts", "@timestamp", "source":
			continue
		}
		switch val := v.(type) {
		case string:
			entry.Fields[k] = val
		case float64:
			entry.Fields[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			entry.Fields[k] = strconv.FormatBool(val)
		case nil:
		default:
			if b, err := json.Marshal(val); err == nil {
				entry.Fields[k] = string(b)
			}
		}
	}
	return true
}

// jsonTimestamp accepts formatted strings and epoch seconds or milliseconds.
func (p *Parser) jsonTimestamp(v any) time.Time {
	switch t := v.(type) {
	case string:
		return p.parseTimestamp(t)
	case float64:
		if t > 1e12 {
			return time.UnixMilli(int64(t)).UTC()
		}
		return time.Unix(int64(t), 0).UTC()
	}
	return time.Time{}
}

func (p *Parser) parseSyslog(line string, entry *config.LogEntry) bool {
	m := syslogPattern.FindStringSubmatch(line)
	if m == nil {
		return false
	}

	entry.Timestamp, _ = time.Parse("Jan _2 15:04:05", strings.Join(strings.Fields(m[2]), " "))
	entry.Source = m[3]
	entry.Fields["process"] = m[4]
	if m[5] != "" {
		entry.Fields["pid"] = m[5]
	}
	entry.Message = m[6]

	if m[1] != "" {
		pri, _ := strconv.Atoi(m[1])
		entry.Level = syslogSeverity(pri % 8)
	} else {
		entry.Level = extractLevel(entry.Message)
	}
	return true
}

// syslogSeverity maps RFC 5424 severities to levels.
func syslogSeverity(sev int) config.LogLevel {
	switch {
	case sev <= 2:
		return config.LevelFatal
	case sev == 3:
		return config.LevelError
	case sev == 4:
		return config.LevelWarn
	case sev <= 6:
		return config.LevelInfo
	default:
		return config.LevelDebug
	}
}

func (p *Parser) parseApache(line string, entry *config.LogEntry) bool {
	m := apachePattern.FindStringSubmatch(line)
	if m == nil {
		return false
	}

	entry.Source = m[1]
	if m[2] != "-" {
		entry.Fields["user"] = m[2]
	}
	entry.Timestamp, _ = time.Parse("02/Jan/2006:15:04:05 -0700", m[3])
	entry.Fields["method"] = m[4]
	entry.Fields["path"] = m[5]
	entry.Fields["status_code"] = m[6]
	if m[7] != "-" {
		entry.Fields["bytes"] = m[7]
	}
	entry.Message = fmt.Sprintf("%s %s %s", m[4], m[5], m[6])

	status, _ := strconv.Atoi(m[6])
	switch {
	case status >= 500:
		entry.Level = config.LevelError
	case status >= 400:
		entry.Level = config.LevelWarn
	default:
		entry.Level = config.LevelInfo
	}
	return true
}

func (p *Parser) parseGeneric(line string, entry *config.LogEntry) {
	rest := line
	if ts, n := p.leadingTimestamp(line); n > 0 {
		entry.Timestamp = ts
		rest = strings.TrimSpace(line[n:])
	}

	entry.Level = extractLevel(rest)
	entry.Message = strings.TrimSpace(levelPrefix.ReplaceAllString(rest, ""))
	if entry.Message == "" {
		entry.Message = rest
	}
}

// leadingTimestamp finds a timestamp at the start of line, optionally in
// brackets, and returns it with the number of bytes it spans.
func (p *Parser) leadingTimestamp(line string) (time.Time, int) {
	offset := 0
	if strings.HasPrefix(line, "[") {
		offset = 1
	}
	for _, format := range p.timestampFormats {
		n := len(format)
		if len(line) < offset+n {
			continue
		}
		candidate := line[offset : offset+n]
		// RFC 3339 "Z" is shorter than its layout's zone part.
		if t, err := time.Parse(format, candidate); err == nil {
			return t, consumeBracket(line, offset+n, offset == 1)
		}
		if strings.HasSuffix(format, "Z07:00") {
			if end := strings.IndexAny(line[offset:], " ]"); end > 0 {
				if t, err := time.Parse(format, line[offset:offset+end]); err == nil {
					return t, consumeBracket(line, offset+end, offset == 1)
				}
			}
		}
	}
	return time.Time{}, 0
}

func consumeBracket(line string, end int, bracketed bool) int {
	if bracketed && end < len(line) && line[end] == ']' {
		return end + 1
	}
	return end
}

// extractLevel finds the first level keyword in s.
func extractLevel(s string) config.LogLevel {
	match := levelPattern.FindString(s)
	if match == "" {
		return config.LevelUnknown
	}
	return config.ParseLevel(match)
}

// parseTimestamp parses a whole timestamp string.
func (p *Parser) parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	for _, format := range p.timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
