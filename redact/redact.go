// Package redact masks sensitive information in strings and structured
// log fields before they are logged or returned in error responses. It
// guards against accidental leakage of credentials, connection strings,
// tokens, and similar data that tends to ride along in error messages.
package redact

import (
	"regexp"
	"strings"
)

// Placeholders substituted for matched sensitive content.
const (
	Placeholder           = "[REDACTED]"
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	KeyPlaceholder        = "[REDACTED_KEY]"
	JWTPlaceholder        = "[REDACTED_JWT]"
	PathPlaceholder       = "[REDACTED_PATH]"
	EmailPlaceholder      = "[REDACTED_EMAIL]"
	SQLPlaceholder        = "[REDACTED_SQL]"
	HostPlaceholder       = "[REDACTED_HOST]"
)

// Pattern pairs a compiled expression with the placeholder that replaces
// every match.
type Pattern struct {
	Regexp      *regexp.Regexp
	Placeholder string
}

// builtinPatterns is the default catalog. Order matters: structured
// tokens (JWTs, connection strings) must be masked before the broader
// host and path patterns get a chance to shred them.
var builtinPatterns = []Pattern{
	{regexp.MustCompile(`(?i)(postgres|postgresql|mysql|mongodb|redis|amqp)://[^@\s]+@`), CredentialPlaceholder},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), JWTPlaceholder},
	{regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]['"]?|['"]?[=:])[^'"&\s]{3,}`), CredentialPlaceholder},
	{regexp.MustCompile(`(?i)(api[_-]?key|token|secret|access[_-]?key|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`), KeyPlaceholder},
	{regexp.MustCompile(`\bAKIA[A-Z0-9]{8,}\b`), KeyPlaceholder},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), EmailPlaceholder},
	{regexp.MustCompile(`(?i)(SELECT|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP|GRANT)[\s\w,*()]+(?:FROM|INTO|SET|TABLE|DATABASE|SCHEMA|VIEW)(?:[\s\w,*()='"]+)?`), SQLPlaceholder},
	{regexp.MustCompile(`(/[\w.-]+){2,}`), PathPlaceholder},
	{regexp.MustCompile(`[A-Za-z]:\\[^\\\s]+(\\[^\\\s]+)+`), PathPlaceholder},
	{regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}:\d{1,5}\b`), HostPlaceholder},
}

// builtinSensitiveKeys flags structured field names whose values are
// masked wholesale regardless of content.
var builtinSensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "token", "jwt",
	"api_key", "apikey", "access_key",
	"authorization", "auth", "credential",
	"private_key", "session",
}

// Masker applies a catalog of patterns and sensitive key names. The zero
// value is not usable; construct with NewMasker.
type Masker struct {
	patterns      []Pattern
	sensitiveKeys map[string]struct{}
}

// Option customizes a Masker under construction.
type Option func(*Masker)

// WithPattern appends a custom pattern to the built-in catalog. Custom
// patterns are applied after the built-ins.
func WithPattern(re *regexp.Regexp, placeholder string) Option {
	return func(m *Masker) {
		m.patterns = append(m.patterns, Pattern{Regexp: re, Placeholder: placeholder})
	}
}

// WithSensitiveKeys adds field names (case-insensitive) whose values are
// always masked by Field.
func WithSensitiveKeys(keys ...string) Option {
	return func(m *Masker) {
		for _, k := range keys {
			m.sensitiveKeys[strings.ToLower(k)] = struct{}{}
		}
	}
}

// NewMasker builds a Masker with the built-in catalog plus any options.
func NewMasker(opts ...Option) *Masker {
	m := &Masker{
		patterns:      append([]Pattern(nil), builtinPatterns...),
		sensitiveKeys: make(map[string]struct{}, len(builtinSensitiveKeys)),
	}
	for _, k := range builtinSensitiveKeys {
		m.sensitiveKeys[k] = struct{}{}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// String masks sensitive content in the input.
func (m *Masker) String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, p := range m.patterns {
		result = p.Regexp.ReplaceAllString(result, p.Placeholder)
	}
	return result
}

// Error masks sensitive content in an error's message. Returns the empty
// string for a nil error.
func (m *Masker) Error(err error) string {
	if err == nil {
		return ""
	}
	return m.String(err.Error())
}

// SensitiveKey reports whether values under the given field name should
// be masked wholesale. Matching is case-insensitive and ignores a
// leading namespace, so "request.password" counts as sensitive.
func (m *Masker) SensitiveKey(key string) bool {
	k := strings.ToLower(key)
	if i := strings.LastIndexByte(k, '.'); i >= 0 {
		k = k[i+1:]
	}
	_, ok := m.sensitiveKeys[k]
	return ok
}

// Field masks a structured key/value pair: values under sensitive keys
// are replaced entirely, and string values under other keys are run
// through the pattern catalog. Non-string values under non-sensitive
// keys pass through unchanged.
func (m *Masker) Field(key string, value any) any {
	if m.SensitiveKey(key) {
		return Placeholder
	}
	if s, ok := value.(string); ok {
		return m.String(s)
	}
	return value
}

// defaultMasker backs the package-level helpers.
var defaultMasker = NewMasker()

// String masks sensitive content using the default masker.
func String(input string) string {
	return defaultMasker.String(input)
}

// Error masks sensitive content in an error's message using the default
// masker.
func Error(err error) string {
	return defaultMasker.Error(err)
}

// Field masks a structured key/value pair using the default masker.
func Field(key string, value any) any {
	return defaultMasker.Field(key, value)
}
