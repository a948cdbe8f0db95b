package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVs(t *testing.T) {
	out := sanitizeKVs([]interface{}{"user_id", "u1", "access_token", "abc", "Email", "a@b.c", "dangling"})
	assert.Equal(t, []interface{}{"user_id", "u1", "access_token", "[REDACTED]", "Email", "[REDACTED]", "dangling"}, out)
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	l := Nop().With("component", "test")
	assert.NotPanics(t, func() {
		l.Debug("debug", "k", 1)
		l.Info("info")
		l.Warn("warn", "password", "x")
		l.Error("error", "err", nil)
	})
}
