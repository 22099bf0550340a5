package redact

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrTransform is returned when redaction could not complete safely.
	// The accompanying output is always empty.
	ErrTransform = errors.New("redaction failed")

	// ErrInputTooLarge is returned when the input exceeds the configured limit.
	ErrInputTooLarge = errors.New("input exceeds redaction size limit")

	// ErrInvalidRule is returned by New for a structurally invalid rule.
	ErrInvalidRule = errors.New("invalid redaction rule")
)

// RuleError reports a rule that could not be compiled or validated.
type RuleError struct {
	Rule string
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("redaction rule %q: %v", e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// Option configures a Redactor.
type Option func(*settings)

type settings struct {
	catchAll       bool
	minTokenLength int
	maxInputBytes  int
	only           []string
}

// WithCatchAll enables or disables the generic token catch-all. Enabled by default.
func WithCatchAll(enabled bool) Option {
	return func(s *settings) { s.catchAll = enabled }
}

// WithMinTokenLength sets the shortest run the catch-all redacts.
func WithMinTokenLength(n int) Option {
	return func(s *settings) { s.minTokenLength = n }
}

// WithMaxInputBytes rejects inputs longer than n bytes. Zero means unlimited.
func WithMaxInputBytes(n int) Option {
	return func(s *settings) { s.maxInputBytes = n }
}

// WithRules restricts the table to the named rules, keeping table order.
// An empty list keeps every rule.
func WithRules(names ...string) Option {
	return func(s *settings) { s.only = names }
}

// maxPasses bounds the fixed-point loop in RedactReport.
const maxPasses = 8

type compiledRule struct {
	Rule
	re       *regexp.Regexp
	template bool
}

// Redactor applies an ordered rule table to text. It is immutable and safe
// for concurrent use.
type Redactor struct {
	rules    []compiledRule
	catchAll *compiledRule
	maxInput int
}

// New compiles rules in order. Any malformed rule aborts construction with a
// *RuleError so a bad table is caught at startup rather than per request.
func New(rules []Rule, opts ...Option) (*Redactor, error) {
	s := settings{
		catchAll:       true,
		minTokenLength: DefaultMinTokenLength,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.minTokenLength < 1 {
		return nil, &RuleError{Rule: CatchAllName, Err: fmt.Errorf("%w: min token length %d", ErrInvalidRule, s.minTokenLength)}
	}
	if s.maxInputBytes < 0 {
		return nil, fmt.Errorf("%w: negative input limit %d", ErrInvalidRule, s.maxInputBytes)
	}

	selected, err := selectRules(rules, s.only)
	if err != nil {
		return nil, err
	}

	r := &Redactor{maxInput: s.maxInputBytes}
	seen := make(map[string]bool, len(selected))
	for _, rule := range selected {
		if seen[rule.Name] {
			return nil, &RuleError{Rule: rule.Name, Err: fmt.Errorf("%w: duplicate name", ErrInvalidRule)}
		}
		seen[rule.Name] = true

		cr, err := compile(rule)
		if err != nil {
			return nil, err
		}
		r.rules = append(r.rules, cr)
	}

	if s.catchAll {
		cr, err := compile(CatchAllRule(s.minTokenLength))
		if err != nil {
			return nil, err
		}
		r.catchAll = &cr
	}
	return r, nil
}

func selectRules(rules []Rule, only []string) ([]Rule, error) {
	if len(only) == 0 {
		return rules, nil
	}
	want := make(map[string]bool, len(only))
	for _, name := range only {
		want[name] = true
	}
	out := make([]Rule, 0, len(only))
	for _, rule := range rules {
		if want[rule.Name] {
			out = append(out, rule)
			delete(want, rule.Name)
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for name := range want {
			missing = append(missing, name)
		}
		sort.Strings(missing)
		return nil, &RuleError{Rule: missing[0], Err: fmt.Errorf("%w: unknown rule", ErrInvalidRule)}
	}
	return out, nil
}

func compile(rule Rule) (compiledRule, error) {
	switch {
	case strings.TrimSpace(rule.Name) == "":
		return compiledRule{}, &RuleError{Rule: rule.Pattern, Err: fmt.Errorf("%w: missing name", ErrInvalidRule)}
	case rule.Pattern == "":
		return compiledRule{}, &RuleError{Rule: rule.Name, Err: fmt.Errorf("%w: missing pattern", ErrInvalidRule)}
	case rule.Replacement == "":
		return compiledRule{}, &RuleError{Rule: rule.Name, Err: fmt.Errorf("%w: missing replacement", ErrInvalidRule)}
	}

	pattern := rule.Pattern
	if rule.IgnoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return compiledRule{}, &RuleError{Rule: rule.Name, Err: err}
	}
	if re.MatchString("") {
		return compiledRule{}, &RuleError{Rule: rule.Name, Err: fmt.Errorf("%w: pattern matches empty text", ErrInvalidRule)}
	}
	return compiledRule{
		Rule:     rule,
		re:       re,
		template: strings.Contains(rule.Replacement, "$"),
	}, nil
}

// Rules returns the effective table in application order, catch-all last.
func (r *Redactor) Rules() []Rule {
	out := make([]Rule, 0, len(r.rules)+1)
	for _, cr := range r.rules {
		out = append(out, cr.Rule)
	}
	if r.catchAll != nil {
		out = append(out, r.catchAll.Rule)
	}
	return out
}

// Report counts replacements per rule name.
type Report map[string]int

// Total returns the number of replacements across all rules.
func (r Report) Total() int {
	n := 0
	for _, c := range r {
		n += c
	}
	return n
}

// Redact returns text with every sensitive span replaced by a placeholder.
// On failure it returns an empty string, never the original text.
func (r *Redactor) Redact(text string) (string, error) {
	out, _, err := r.RedactReport(text)
	return out, err
}

// RedactAndCount is Redact that also reports how many spans were replaced.
func (r *Redactor) RedactAndCount(text string) (string, int, error) {
	out, report, err := r.RedactReport(text)
	return out, report.Total(), err
}

// RedactReport is Redact that also reports replacements per rule.
func (r *Redactor) RedactReport(text string) (out string, report Report, err error) {
	if r.maxInput > 0 && len(text) > r.maxInput {
		return "", nil, fmt.Errorf("%w: %d bytes, limit %d", ErrInputTooLarge, len(text), r.maxInput)
	}
	report = make(Report)
	if text == "" {
		return "", report, nil
	}

	stage := "protect"
	defer func() {
		if p := recover(); p != nil {
			out, report = "", nil
			err = fmt.Errorf("%w: rule %s: %v", ErrTransform, stage, p)
		}
	}()

	sp := newSpans()
	work := sp.protect(scrubReserved(text))

	// Each replacement can expose a boundary an earlier rule rejected, so
	// passes repeat until one changes nothing.
	for pass := 0; ; pass++ {
		if pass == maxPasses {
			return "", nil, fmt.Errorf("%w: no fixed point after %d passes", ErrTransform, maxPasses)
		}
		changed := false
		for i := range r.rules {
			stage = r.rules[i].Name
			var n int
			work, n = r.rules[i].apply(work, sp)
			if n > 0 {
				report[stage] += n
				changed = true
			}
		}
		if r.catchAll != nil {
			stage = r.catchAll.Name
			var n int
			work, n = r.catchAll.apply(work, sp)
			if n > 0 {
				report[stage] += n
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	stage = "restore"
	out = sp.restore(work)
	if hasMarker(out) {
		return "", nil, fmt.Errorf("%w: unresolved placeholder marker", ErrTransform)
	}
	return out, report, nil
}

// apply replaces every accepted match and protects each emitted placeholder.
// Rules only see the text between markers, so a protected placeholder is
// never matched or split.
func (c *compiledRule) apply(text string, sp *spans) (string, int) {
	if !hasMarker(text) {
		return c.applySegment(text, sp)
	}

	var b strings.Builder
	b.Grow(len(text))
	total := 0
	for rest := text; rest != ""; {
		cut := strings.IndexFunc(rest, isReserved)
		if cut < 0 {
			cut = len(rest)
		}
		seg, n := c.applySegment(rest[:cut], sp)
		b.WriteString(seg)
		total += n
		rest = rest[cut:]

		plain := strings.IndexFunc(rest, func(r rune) bool { return !isReserved(r) })
		if plain < 0 {
			plain = len(rest)
		}
		b.WriteString(rest[:plain])
		rest = rest[plain:]
	}
	if total == 0 {
		return text, 0
	}
	return b.String(), total
}

func (c *compiledRule) applySegment(text string, sp *spans) (string, int) {
	if text == "" {
		return text, 0
	}
	locs := c.find(text)
	if len(locs) == 0 {
		return text, 0
	}

	var b strings.Builder
	b.Grow(len(text))
	last, n := 0, 0
	for _, loc := range locs {
		if loc[0] == loc[1] {
			continue
		}
		n++
		b.WriteString(text[last:loc[0]])
		repl := c.Replacement
		if c.template {
			repl = string(c.re.ExpandString(nil, c.Replacement, text, loc))
		}
		b.WriteString(sp.protect(repl))
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String(), n
}

// find returns submatch index sets, relative to text, of every accepted match.
func (c *compiledRule) find(text string) [][]int {
	if c.Boundary == BoundaryNone {
		return c.re.FindAllStringSubmatchIndex(text, -1)
	}

	var out [][]int
	for pos := 0; pos < len(text); {
		loc := c.re.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		for i := range loc {
			if loc[i] >= 0 {
				loc[i] += pos
			}
		}
		start, end := loc[0], loc[1]
		if end == start {
			_, size := utf8.DecodeRuneInString(text[start:])
			pos = start + max(size, 1)
			continue
		}
		switch {
		case c.Boundary.allows(text, start, end):
			out = append(out, loc)
			pos = end
		case c.Boundary.blocksBefore(text, start):
			// A later match may start inside the candidate once it is clear
			// of the run that blocked this one.
			pos = c.Boundary.nextStart(text, start)
		default:
			// Only the right side blocked: a match starting inside the
			// candidate runs to the same blocked end.
			pos = end
		}
	}
	return out
}

func (b Boundary) blocksBefore(text string, start int) bool {
	if start == 0 {
		return false
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:start])
	return b.blocks(prev)
}

// nextStart returns the first offset after start whose preceding rune does
// not block.
func (b Boundary) nextStart(text string, start int) int {
	pos := start
	for pos < len(text) {
		r, size := utf8.DecodeRuneInString(text[pos:])
		pos += size
		if !b.blocks(r) {
			break
		}
	}
	return pos
}

func (b Boundary) allows(text string, start, end int) bool {
	if b.blocksBefore(text, start) {
		return false
	}
	if end < len(text) {
		next, _ := utf8.DecodeRuneInString(text[end:])
		return !b.blocks(next)
	}
	return true
}

func (b Boundary) blocks(r rune) bool {
	switch b {
	case BoundaryDigit:
		return unicode.IsDigit(r)
	case BoundaryAlnum:
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	default:
		return false
	}
}
