package audit

import "regexp"

// redactPlaceholder replaces redacted secret values.
const redactPlaceholder = "***REDACTED***"

// secretKeyPattern matches argument keys that likely hold secrets.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|password|passwd|api_key|apikey|credential)`)

// Redactor scrubs secret values from audit entries before they are written
// or streamed. Immutable after construction; safe for concurrent use.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor returns a redactor pre-loaded with patterns for common API
// key and token formats.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`sk-[A-Za-z0-9_-]{16,}`),             // OpenAI/Anthropic style
			regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{16,}`),        // GitHub tokens
			regexp.MustCompile(`AKIA[0-9A-Z]{16}`),                  // AWS access key IDs
			regexp.MustCompile(`xox[baprs]-[A-Za-z0-9-]{10,}`),      // Slack tokens
			regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/-]{16,}`), // Bearer tokens
		},
	}
}

// Redact replaces known secret patterns in s.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}
	for _, p := range r.patterns {
		s = p.ReplaceAllString(s, redactPlaceholder)
	}
	return s
}

// RedactArgs returns a copy of args with secret-named keys masked and
// string values pattern-scrubbed. The input map is never mutated.
func (r *Redactor) RedactArgs(args map[string]any) map[string]any {
	if len(args) == 0 {
		return args
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		if secretKeyPattern.MatchString(k) {
			out[k] = redactPlaceholder
			continue
		}
		if s, ok := v.(string); ok {
			out[k] = r.Redact(s)
			continue
		}
		out[k] = v
	}
	return out
}
