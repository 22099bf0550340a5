package troubleshoot

import "strings"

// Severity is a coarse urgency label derived from log keywords.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

var severityKeywords = []struct {
	level    Severity
	keywords []string
}{
	{SeverityCritical, []string{"fatal", "critical", "emergency", "panic", "security breach"}},
	{SeverityHigh, []string{"error", "failed", "exception", "timeout", "denied"}},
	{SeverityMedium, []string{"warning", "deprecated", "retry", "slow"}},
}

// ClassifySeverity returns the highest level whose keywords appear anywhere
// in text, case-insensitively. Substrings count, so "errors" is HIGH.
func ClassifySeverity(text string) Severity {
	lower := strings.ToLower(text)
	for _, group := range severityKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.level
			}
		}
	}
	return SeverityLow
}
