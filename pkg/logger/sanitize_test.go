package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeQueryString(t *testing.T) {
	cases := []struct {
		name      string
		query     string
		sensitive bool
	}{
		{"empty", "", false},
		{"harmless", "page=2&sort=reg_no", false},
		{"token", "token=abc123", true},
		{"secret", "secret=hunter2", true},
		{"session id", "session_id=sess-1", true},
		{"device key", "device_key=key-1", true},
		{"mixed case key", "TOKEN=abc123", true},
		{"sensitive among harmless", "page=2&token=abc123", true},
		{"unparseable treated as sensitive", "a=%zz", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.sensitive, SanitizeQueryString(tc.query))
		})
	}
}

func TestRedactToken(t *testing.T) {
	assert.Equal(t, "[redacted]", RedactToken(""))
	assert.Equal(t, "[redacted]", RedactToken("short"))
	assert.Equal(t, "[redacted]", RedactToken("12345678"))
	assert.Equal(t, "abcdefgh...", RedactToken("abcdefghijklmnop"))
}
