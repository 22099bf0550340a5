package redact

import (
	"fmt"
	"strings"
)

// Boundary constrains the characters allowed directly around a match.
// Guarded rules must not rely on \b or ^ since they are re-searched from
// an offset after a rejected candidate.
type Boundary int

const (
	// BoundaryNone accepts every match.
	BoundaryNone Boundary = iota

	// BoundaryDigit rejects a match that touches a digit on either side.
	BoundaryDigit

	// BoundaryAlnum rejects a match that touches a letter or digit on either side.
	BoundaryAlnum
)

// String returns the config name of the boundary.
func (b Boundary) String() string {
	switch b {
	case BoundaryDigit:
		return "digit"
	case BoundaryAlnum:
		return "alnum"
	default:
		return "none"
	}
}

// ParseBoundary converts a config name to a Boundary. Unknown names map to BoundaryNone.
func ParseBoundary(s string) Boundary {
	switch strings.ToLower(s) {
	case "digit":
		return BoundaryDigit
	case "alnum":
		return BoundaryAlnum
	default:
		return BoundaryNone
	}
}

// Rule is one entry of the ordered redaction table.
type Rule struct {
	// Name identifies the rule in config and in error messages.
	Name string `json:"name" yaml:"name"`

	// Pattern is an RE2 expression.
	Pattern string `json:"pattern" yaml:"pattern"`

	// Replacement is a fixed placeholder or a regexp template using ${n}
	// group references.
	Replacement string `json:"replacement" yaml:"replacement"`

	IgnoreCase bool     `json:"ignore_case,omitempty" yaml:"ignore_case,omitempty"`
	Boundary   Boundary `json:"-" yaml:"-"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Rule names that callers refer to directly.
const (
	CatchAllName = "catch_all"

	// DefaultMinTokenLength is the shortest run the catch-all treats as an opaque token.
	DefaultMinTokenLength = 24
)

// reservedClass is the marker rune range, excluded from every negated
// character class so rules cannot consume a protected placeholder.
const reservedClass = `\x{E000}-\x{E0FF}`

// Placeholder returns the placeholder text for a kind, e.g. "EMAIL" -> "[REDACTED_EMAIL]".
func Placeholder(kind string) string {
	kind = strings.ToUpper(strings.TrimSpace(kind))
	if kind == "" {
		return "[REDACTED]"
	}
	kind = strings.NewReplacer("-", "_", " ", "_", ".", "_").Replace(kind)
	return "[REDACTED_" + kind + "]"
}

// DefaultRules returns the built-in ordered rule table. Specific, well-known
// formats come first so their kind label survives; longer vendor prefixes
// precede shorter ones that could be substrings of them.
func DefaultRules() []Rule {
	return []Rule{
		// Key material. A block must be matched before other rules split it
		// with placeholders.
		{
			Name:        "private_key",
			Pattern:     `-----BEGIN(?:\s+[A-Z0-9]+)*\s+PRIVATE\s+KEY-----(?s:.*?)-----END(?:\s+[A-Z0-9]+)*\s+PRIVATE\s+KEY-----`,
			Replacement: "[REDACTED_PRIVATE_KEY]",
			Description: "PEM private key blocks",
		},

		// Vendor secrets
		{
			Name:        "stripe_live_key",
			Pattern:     `sk_live_[A-Za-z0-9_\-]{8,}`,
			Replacement: "[REDACTED_STRIPE_LIVE_KEY]",
			IgnoreCase:  true,
			Description: "Stripe live secret keys",
		},
		{
			Name:        "stripe_test_key",
			Pattern:     `sk_test_[A-Za-z0-9_\-]{8,}`,
			Replacement: "[REDACTED_STRIPE_TEST_KEY]",
			IgnoreCase:  true,
			Description: "Stripe test secret keys",
		},
		{
			Name:        "stripe_publishable_key",
			Pattern:     `pk_live_[A-Za-z0-9_\-]{8,}`,
			Replacement: "[REDACTED_STRIPE_PUBLIC_KEY]",
			IgnoreCase:  true,
			Description: "Stripe live publishable keys",
		},
		{
			Name:        "stripe_restricted_key",
			Pattern:     `rk_live_[A-Za-z0-9_\-]{8,}`,
			Replacement: "[REDACTED_STRIPE_RESTRICTED_KEY]",
			IgnoreCase:  true,
			Description: "Stripe restricted keys",
		},
		{
			Name:        "aws_access_key",
			Pattern:     `\bAKIA[0-9A-Z]{12,20}\b`,
			Replacement: "[REDACTED_AWS_ACCESS_KEY]",
			Description: "AWS access key IDs",
		},
		{
			Name:        "google_api_key",
			Pattern:     `\bAIza[0-9A-Za-z\-_]{10,}\b`,
			Replacement: "[REDACTED_GOOGLE_API_KEY]",
			Description: "Google API keys",
		},
		{
			Name:        "github_token",
			Pattern:     `\bghp_[A-Za-z0-9]{20,}\b`,
			Replacement: "[REDACTED_GITHUB_TOKEN]",
			Description: "GitHub personal access tokens",
		},
		{
			Name:        "slack_token",
			Pattern:     `\bxox[bporas]-[A-Za-z0-9\-]{10,}`,
			Replacement: "[REDACTED_SLACK_TOKEN]",
			Description: "Slack tokens",
		},
		{
			Name:        "anthropic_key",
			Pattern:     `\bsk-ant-[A-Za-z0-9_\-]{20,}`,
			Replacement: "[REDACTED_ANTHROPIC_KEY]",
			Description: "Anthropic API keys",
		},
		{
			Name:        "openai_project_key",
			Pattern:     `\bsk-proj-[A-Za-z0-9_\-]{20,}`,
			Replacement: "[REDACTED_OPENAI_KEY]",
			Description: "OpenAI project keys",
		},
		{
			Name:        "openai_key",
			Pattern:     `\bsk-[A-Za-z0-9]{20,}\b`,
			Replacement: "[REDACTED_OPENAI_KEY]",
			Description: "OpenAI secret keys",
		},

		// Structured tokens
		{
			Name:        "jwt",
			Pattern:     `eyJ[A-Za-z0-9_\-]+?\.[A-Za-z0-9_\-]+?\.[A-Za-z0-9_\-]+`,
			Replacement: "[REDACTED_JWT]",
			Description: "JSON Web Tokens",
		},
		{
			Name:        "uuid",
			Pattern:     `\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`,
			Replacement: "[REDACTED_UUID]",
			IgnoreCase:  true,
			Description: "UUIDs",
		},

		// Credentials embedded in URLs
		{
			Name:        "url_credentials",
			Pattern:     `([a-zA-Z][a-zA-Z0-9+.\-]*://)([^:@\s` + reservedClass + `]+):([^@\s` + reservedClass + `]+)@`,
			Replacement: "${1}[REDACTED_USER]:[REDACTED_PASSWORD]@",
			IgnoreCase:  true,
			Description: "user:password in connection strings",
		},

		// Key-value secrets
		{
			Name: "json_secret_field",
			Pattern: `"(key|secret|token|password|passwd|client[_-]?secret|access[_-]?key|private[_-]?key|api[_-]?key)"` +
				`\s*:\s*"([^"` + reservedClass + `]+)"`,
			Replacement: `"${1}": "[REDACTED]"`,
			IgnoreCase:  true,
			Description: "secret-named JSON string fields",
		},
		{
			Name: "assignment_secret",
			Pattern: `\b(client[_-]?secret|secret|token|password|passwd|access[_-]?key|private[_-]?key|api[_-]?key|key)\b` +
				`\s*[:=]\s*["']?([^"'\s;` + reservedClass + `]+)["']?`,
			Replacement: `${1}="[REDACTED]"`,
			IgnoreCase:  true,
			Description: "key=value and key: value secret assignments",
		},

		// Personal information
		{
			Name:        "email",
			Pattern:     `\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`,
			Replacement: "[REDACTED_EMAIL]",
			Description: "Email addresses",
		},
		{
			Name:        "ssn",
			Pattern:     `\b\d{3}-\d{2}-\d{4}\b`,
			Replacement: "[REDACTED_SSN]",
			Description: "US social security numbers",
		},
		{
			Name:        "credit_card",
			Pattern:     `\b(?:\d{4}[-\s]?){3}\d{1,7}\b`,
			Replacement: "[REDACTED_CARD]",
			Description: "Payment card numbers",
		},
		{
			Name:        "phone",
			Pattern:     `(?:\+?\d{1,2}\s?)?\(?\d{3}\)?[-\s]?\d{3}[-\s]?\d{4}`,
			Replacement: "[REDACTED_PHONE]",
			Boundary:    BoundaryDigit,
			Description: "Phone numbers",
		},

		// Network identifiers
		{
			Name:        "ipv4",
			Pattern:     `(?:\d{1,3}\.){3}\d{1,3}`,
			Replacement: "[REDACTED_IP]",
			Boundary:    BoundaryDigit,
			Description: "IPv4 addresses",
		},
		{
			Name:        "mac_address",
			Pattern:     `\b(?:[0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}\b`,
			Replacement: "[REDACTED_MAC]",
			Description: "MAC addresses",
		},
		{
			Name: "ipv6",
			// Full form needs all eight groups and compressed forms need "::",
			// so clock times like 10:23:45 are left alone.
			Pattern: `(?:[A-Fa-f0-9]{1,4}:){7}[A-Fa-f0-9]{1,4}` +
				`|(?:[A-Fa-f0-9]{1,4}:){1,7}:(?:[A-Fa-f0-9]{1,4}(?::[A-Fa-f0-9]{1,4}){0,6})?` +
				`|::(?:[A-Fa-f0-9]{1,4}:){0,6}[A-Fa-f0-9]{1,4}`,
			Replacement: "[REDACTED_IPV6]",
			IgnoreCase:  true,
			Boundary:    BoundaryAlnum,
			Description: "IPv6 addresses",
		},
	}
}

// CatchAllRule returns the generic high-entropy token rule for the given
// minimum run length. '=' is accepted only as trailing padding so that a
// key=value pair keeps its key.
func CatchAllRule(minLength int) Rule {
	return Rule{
		Name:        CatchAllName,
		Pattern:     fmt.Sprintf(`[A-Za-z0-9_\-+/]{%d,}={0,2}`, minLength),
		Replacement: "[REDACTED_TOKEN]",
		Boundary:    BoundaryAlnum,
		Description: fmt.Sprintf("standalone opaque tokens of %d+ characters", minLength),
	}
}

// RuleNames returns the names of rules in table order.
func RuleNames(rules []Rule) []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return names
}
