// Package analyzer summarises parsed log entries. Entries are expected to
// be redacted already; the summary repeats message text verbatim.
package analyzer

import (
	"sort"
	"time"

	"github.com/bimmerbailey/loglore/internal/config"
)

// DefaultTopN is the number of messages and sources kept when Options.TopN
// is zero.
const DefaultTopN = 10

// Summary holds aggregate statistics for a stream of log entries.
type Summary struct {
	TotalLines     int            `json:"total_lines" yaml:"total_lines"`
	LevelCounts    map[string]int `json:"level_counts" yaml:"level_counts"`
	FirstEntry     *time.Time     `json:"first_entry,omitempty" yaml:"first_entry,omitempty"`
	LastEntry      *time.Time     `json:"last_entry,omitempty" yaml:"last_entry,omitempty"`
	ErrorRate      float64        `json:"error_rate" yaml:"error_rate"`
	TopMessages    []Count        `json:"top_messages,omitempty" yaml:"top_messages,omitempty"`
	TopSources     []Count        `json:"top_sources,omitempty" yaml:"top_sources,omitempty"`
	Windows        []Window       `json:"windows,omitempty" yaml:"windows,omitempty"`
	Redacted       int            `json:"redacted" yaml:"redacted"`
	RedactedByRule map[string]int `json:"redacted_by_rule,omitempty" yaml:"redacted_by_rule,omitempty"`
}

// Count is one ranked value with its share of all lines.
type Count struct {
	Key     string  `json:"key" yaml:"key"`
	Count   int     `json:"count" yaml:"count"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// Window holds the line and error counts for one time bucket.
type Window struct {
	Start        time.Time `json:"start" yaml:"start"`
	Count        int       `json:"count" yaml:"count"`
	Errors       int       `json:"errors" yaml:"errors"`
	ErrorPercent float64   `json:"error_percent" yaml:"error_percent"`
}

// Options tune a Summarizer.
type Options struct {
	TopN int

	// Window buckets timestamped entries; zero disables bucketing.
	Window time.Duration
}

// Summarizer accumulates entries one at a time so large files never need to
// be held in memory.
type Summarizer struct {
	opts     Options
	total    int
	errors   int
	levels   map[config.LogLevel]int
	first    time.Time
	last     time.Time
	messages map[string]int
	sources  map[string]int
	windows  map[time.Time]*Window
	redacted map[string]int
}

// New creates an empty Summarizer.
func New(opts Options) *Summarizer {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	return &Summarizer{
		opts:     opts,
		levels:   make(map[config.LogLevel]int),
		messages: make(map[string]int),
		sources:  make(map[string]int),
		windows:  make(map[time.Time]*Window),
		redacted: make(map[string]int),
	}
}

// Add records one entry.
func (s *Summarizer) Add(e config.LogEntry) {
	s.total++
	s.levels[e.Level]++
	isError := e.Level == config.LevelError || e.Level == config.LevelFatal
	if isError {
		s.errors++
	}

	s.messages[e.Message]++
	if e.Source != "" {
		s.sources[e.Source]++
	}

	if e.Timestamp.IsZero() {
		return
	}
	if s.first.IsZero() || e.Timestamp.Before(s.first) {
		s.first = e.Timestamp
	}
	if s.last.IsZero() || e.Timestamp.After(s.last) {
		s.last = e.Timestamp
	}

	if s.opts.Window > 0 {
		start := e.Timestamp.Truncate(s.opts.Window)
		w, ok := s.windows[start]
		if !ok {
			w = &Window{Start: start}
			s.windows[start] = w
		}
		w.Count++
		if isError {
			w.Errors++
		}
	}
}

// AddRedactions merges per-rule redaction counts.
func (s *Summarizer) AddRedactions(byRule map[string]int) {
	for rule, n := range byRule {
		s.redacted[rule] += n
	}
}

// Summary returns the statistics gathered so far.
func (s *Summarizer) Summary() Summary {
	sum := Summary{
		TotalLines:  s.total,
		LevelCounts: make(map[string]int, len(s.levels)),
	}
	for level, n := range s.levels {
		sum.LevelCounts[level.String()] = n
	}
	if s.total == 0 {
		return sum
	}

	sum.ErrorRate = float64(s.errors) / float64(s.total)
	if !s.first.IsZero() {
		first, last := s.first, s.last
		sum.FirstEntry, sum.LastEntry = &first, &last
	}
	sum.TopMessages = top(s.messages, s.opts.TopN, s.total)
	sum.TopSources = top(s.sources, s.opts.TopN, s.total)

	if len(s.windows) > 0 {
		sum.Windows = make([]Window, 0, len(s.windows))
		for _, w := range s.windows {
			win := *w
			win.ErrorPercent = float64(win.Errors) * 100 / float64(win.Count)
			sum.Windows = append(sum.Windows, win)
		}
		sort.Slice(sum.Windows, func(i, j int) bool {
			return sum.Windows[i].Start.Before(sum.Windows[j].Start)
		})
	}

	for rule, n := range s.redacted {
		if n == 0 {
			continue
		}
		if sum.RedactedByRule == nil {
			sum.RedactedByRule = make(map[string]int)
		}
		sum.RedactedByRule[rule] = n
		sum.Redacted += n
	}
	return sum
}

// top returns the n most frequent keys, ties broken alphabetically.
func top(counts map[string]int, n, total int) []Count {
	if len(counts) == 0 {
		return nil
	}
	out := make([]Count, 0, len(counts))
	for key, c := range counts {
		out = append(out, Count{Key: key, Count: c, Percent: float64(c) * 100 / float64(total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
