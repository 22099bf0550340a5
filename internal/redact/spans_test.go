package redact

import (
	"strings"
	"testing"
)

func TestSpansRoundTrip(t *testing.T) {
	sp := newSpans()
	in := "a [REDACTED_EMAIL] b [REDACTED] c [REDACTED_EMAIL]"

	protected := sp.protect(in)
	if strings.Contains(protected, "[REDACTED") {
		t.Fatalf("protect() left placeholder text: %q", protected)
	}
	if !hasMarker(protected) {
		t.Fatalf("protect() produced no markers: %q", protected)
	}
	if len(sp.byMarker) != 2 {
		t.Errorf("distinct markers = %d, want 2", len(sp.byMarker))
	}
	if got := sp.restore(protected); got != in {
		t.Errorf("restore() = %q, want %q", got, in)
	}
}

func TestEncodeMarkerUnique(t *testing.T) {
	seen := make(map[string]int)
	for i := 0; i < 300; i++ {
		m := encodeMarker(i)
		if prev, ok := seen[m]; ok {
			t.Fatalf("encodeMarker(%d) == encodeMarker(%d)", i, prev)
		}
		seen[m] = i
		if strings.ContainsFunc(m, func(r rune) bool { return !isReserved(r) }) {
			t.Fatalf("encodeMarker(%d) contains a non-reserved rune", i)
		}
	}
}

func TestRulePatternsSkipMarkers(t *testing.T) {
	sp := newSpans()
	m := sp.marker("[REDACTED]")

	inputs := []string{
		`"password": "` + m + `"`,
		"password=" + m,
		"postgres://" + m + ":" + m + "@db",
		strings.Repeat(m, 10),
	}
	r, err := New(DefaultRules())
	if err != nil {
		t.Fatal(err)
	}
	for _, in := range inputs {
		for _, rule := range r.rules {
			if locs := rule.find(in); len(locs) > 0 {
				t.Errorf("rule %s matched protected text %q", rule.Name, in)
			}
		}
		if locs := r.catchAll.find(in); len(locs) > 0 {
			t.Errorf("catch-all matched protected text %q", in)
		}
	}
}
