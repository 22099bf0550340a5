package prompt

import (
	"sort"
	"strings"

	"github.com/bimmerbailey/loglore/internal/llm"
)

// Build constructs the system and user messages for a troubleshooting
// request. opts.Log must already be redacted; Build never inspects it.
//
// The user message has the form:
//
//	MODE: <mode>
//	METADATA: <k=v, k=v>
//	LOG:
//	<log>
//
// Returns ErrMissingField if Log is empty.
func Build(mode Mode, opts BuildOptions) ([]llm.Message, error) {
	if strings.TrimSpace(opts.Log) == "" {
		return nil, missingField("Log")
	}
	mode = ParseMode(string(mode))

	var sb strings.Builder
	sb.WriteString("MODE: ")
	sb.WriteString(string(mode))
	sb.WriteString("\nMETADATA: ")
	sb.WriteString(formatMetadata(opts.Metadata))
	sb.WriteString("\nLOG:\n")
	sb.WriteString(opts.Log)

	return []llm.Message{
		{Role: "system", Content: systemPrompt(mode)},
		{Role: "user", Content: sb.String()},
	}, nil
}

// formatMetadata renders m as "k=v, k=v" in key order, or "none".
func formatMetadata(m map[string]string) string {
	if len(m) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + m[k]
	}
	return strings.Join(parts, ", ")
}
