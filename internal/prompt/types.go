package prompt

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects the audience a troubleshooting answer is written for.
type Mode string

const (
	// ModeBeginner asks for simple, step-by-step explanations. It is the
	// default for empty or unrecognised modes.
	ModeBeginner Mode = "beginner"

	// ModeAdvanced asks for a terse answer aimed at professionals.
	ModeAdvanced Mode = "advanced"
)

// ParseMode maps s to a Mode case-insensitively. Anything other than
// "advanced" yields ModeBeginner.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeAdvanced)) {
		return ModeAdvanced
	}
	return ModeBeginner
}

// BuildOptions holds the context for one troubleshooting prompt.
type BuildOptions struct {
	// Log is the already-redacted log text. Required.
	Log string

	// Metadata is free-form context supplied by the caller (service name,
	// environment, ...). Rendered sorted by key.
	Metadata map[string]string
}

// ErrMissingField is returned by [Build] when a required field is absent.
var ErrMissingField = errors.New("prompt: missing required field")

func missingField(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}
