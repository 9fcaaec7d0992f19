// Package redact provides utilities for redacting sensitive information from
// strings before they are logged or returned in error responses. This keeps
// credentials, connection strings and file paths out of error messages.
package redact

import (
	"regexp"
)

// Redaction placeholders.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
)

// Precompiled regex patterns for the secrets this service can plausibly
// leak: Postgres DSNs from the task store, the Gemini API key from the
// generator, and file paths from the data loaders.
var (
	dbConnRegex = regexp.MustCompile(`(?i)(postgres|postgresql|db|database|connection)://[^@\s]+@`)

	passwordRegex = regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`)
	apiKeyRegex   = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|key|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)

	unixPathRegex = regexp.MustCompile(`(/[\w.-]+){2,}`)
)

// String removes sensitive information from the given string.
func String(s string) string {
	if s == "" {
		return s
	}

	s = dbConnRegex.ReplaceAllString(s, "$1://"+RedactedCredentialPlaceholder+"@")
	s = passwordRegex.ReplaceAllString(s, "$1$2"+RedactedCredentialPlaceholder)
	s = apiKeyRegex.ReplaceAllString(s, "$1$2"+RedactedKeyPlaceholder)
	s = unixPathRegex.ReplaceAllString(s, RedactedPathPlaceholder)

	return s
}

// Error redacts an error's message for safe logging. Returns the empty
// string for a nil error.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
