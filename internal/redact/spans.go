package redact

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Marker runes live in the private-use area. A marker is
// markerOpen, one hex-digit rune per nibble of its index, markerClose.
const (
	markerOpen  = '\uE000'
	markerClose = '\uE001'
	markerDigit = '\uE010'

	reservedLow  = '\uE000'
	reservedHigh = '\uE0FF'
)

// placeholderRe recognises placeholder text, both pre-existing and emitted.
var placeholderRe = regexp.MustCompile(`\[REDACTED[A-Z0-9_]*\]`)

// spans is the per-call map between markers and the placeholders they hide.
type spans struct {
	byMarker   map[string]string
	byOriginal map[string]string
}

func newSpans() *spans {
	return &spans{
		byMarker:   make(map[string]string),
		byOriginal: make(map[string]string),
	}
}

// protect replaces every placeholder in s with its marker.
func (s *spans) protect(text string) string {
	if !strings.Contains(text, "[REDACTED") {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, s.marker)
}

// marker returns the marker for a placeholder, allocating one on first use.
// Identical placeholders share a marker.
func (s *spans) marker(original string) string {
	if m, ok := s.byOriginal[original]; ok {
		return m
	}
	m := encodeMarker(len(s.byMarker))
	s.byOriginal[original] = m
	s.byMarker[m] = original
	return m
}

// restore swaps every marker in text back to its placeholder.
func (s *spans) restore(text string) string {
	if len(s.byMarker) == 0 {
		return text
	}
	pairs := make([]string, 0, 2*len(s.byMarker))
	for m, original := range s.byMarker {
		pairs = append(pairs, m, original)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func encodeMarker(i int) string {
	var b strings.Builder
	b.WriteRune(markerOpen)
	for _, c := range strconv.FormatInt(int64(i), 16) {
		var nibble rune
		if c >= 'a' {
			nibble = c - 'a' + 10
		} else {
			nibble = c - '0'
		}
		b.WriteRune(markerDigit + nibble)
	}
	b.WriteRune(markerClose)
	return b.String()
}

func isReserved(r rune) bool {
	return r >= reservedLow && r <= reservedHigh
}

// scrubReserved replaces reserved runes in untrusted input so that every
// marker in the working text is one this call created.
func scrubReserved(text string) string {
	if !strings.ContainsFunc(text, isReserved) {
		return text
	}
	return strings.Map(func(r rune) rune {
		if isReserved(r) {
			return utf8.RuneError
		}
		return r
	}, text)
}

// hasMarker reports whether text still contains marker runes.
func hasMarker(text string) bool {
	return strings.ContainsFunc(text, isReserved)
}
