// Package redact removes credentials, PII, network identifiers and key
// material from free-form log text before it leaves the process.
//
// A Redactor applies an ordered rule table in three stages:
//
//  1. Protect - placeholders already present in the input (for example
//     "[REDACTED_EMAIL]" from an earlier pass) are swapped for private
//     markers so no rule can touch them.
//  2. Substitute - each rule runs in table order, most specific first, and
//     every placeholder it emits is protected the same way. The generic
//     catch-all for long opaque tokens runs last.
//  3. Restore - markers are swapped back to their placeholder text.
//
// Because placeholders are shielded at every stage, redacting an already
// redacted text is a no-op:
//
//	r, err := redact.New(redact.DefaultRules())
//	if err != nil {
//	    return err // malformed rule table, fail fast
//	}
//	out, err := r.Redact("Contact me at jane.doe@example.com please")
//	// out == "Contact me at [REDACTED_EMAIL] please"
//
// A Redactor is immutable once built and safe for concurrent use.
//
// Redaction is best-effort pattern matching. It reduces what reaches an
// external service; it is not a guarantee that no sensitive data remains.
package redact
