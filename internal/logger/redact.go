package logger

import (
	"net/url"
	"strings"
)

// sensitivePatterns are substrings whose presence marks a log message as
// potentially carrying a credential or token. Matching is case-insensitive.
var sensitivePatterns = []string{
	"api-key",
	"authorization",
	"bearer",
	"token",
	"password",
	"secret",
	"key=",
	"auth=",
	"code=",
}

const redactedMessage = "[REDACTED] log message containing sensitive data"

// Redact replaces msg entirely when it appears to contain a credential.
// Whole-message replacement is deliberate: partial scrubbing is easy to get
// wrong, and the operator still sees that the event happened.
func Redact(msg string) string {
	lower := strings.ToLower(msg)
	for _, p := range sensitivePatterns {
		if strings.Contains(lower, p) {
			return redactedMessage
		}
	}
	return msg
}

// SanitizeDSN strips userinfo and query parameter values from a connection
// string so it can be logged. Falls back to a fixed placeholder when the
// DSN does not parse as a URL (e.g. keyword/value form, which may carry a
// password= pair).
func SanitizeDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "<connection string redacted>"
	}
	u.User = nil
	if u.RawQuery != "" {
		keys := make([]string, 0)
		for k := range u.Query() {
			keys = append(keys, k+"=...")
		}
		u.RawQuery = strings.Join(keys, "&")
	}
	return u.String()
}
