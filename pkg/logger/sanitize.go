package logger

import (
	"net/url"
	"strings"
)

// sensitiveParams are query parameters whose values never belong in logs.
// Tokens and session ids grant attendance claims while live; secrets speak
// for themselves.
var sensitiveParams = map[string]bool{
	"token":      true,
	"secret":     true,
	"session_id": true,
	"device_key": true,
}

// SanitizeQueryString reports whether a raw query string carries any
// sensitive parameter. Callers redact the whole query rather than rewriting
// it.
func SanitizeQueryString(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		// Unparseable query: treat as sensitive rather than risk logging it
		return true
	}

	for key := range values {
		if sensitiveParams[strings.ToLower(key)] {
			return true
		}
	}

	return false
}

// RedactToken keeps a short prefix of an opaque token for log correlation
func RedactToken(token string) string {
	if len(token) <= 8 {
		return "[redacted]"
	}
	return token[:8] + "..."
}
