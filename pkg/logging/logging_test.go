package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, test.level.String())
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{LogLevel(999), slog.LevelInfo},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, test.level.SlogLevel())
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, LevelError, ParseLevel("Error"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestInitForCLI(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)
	assert.NotNil(t, defaultLogger)

	Info("test-subsystem", "test message")

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "test-subsystem")
}

func TestCLILevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	Debug("test", "debug message")
	Info("test", "info message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.Contains(t, output, "info message")
}

func TestAudit(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	Audit(AuditEvent{
		Action:    "oauth_refresh",
		Outcome:   "success",
		SessionID: "0123456789abcdef",
		Target:    "upstream-a",
	})

	output := buf.String()
	assert.Contains(t, output, "[AUDIT]")
	assert.Contains(t, output, "action=oauth_refresh")
	assert.Contains(t, output, "session=01234567...")
	assert.NotContains(t, output, "0123456789abcdef")
}

func TestTruncateSessionID(t *testing.T) {
	assert.Equal(t, "short", TruncateSessionID("short"))
	assert.Equal(t, "abc12345...", TruncateSessionID("abc12345-full-session-id"))
}

func TestRedact(t *testing.T) {
	cases := []struct {
		in       string
		contains string
		excludes string
	}{
		{"GET /mcp?tag-filter=web&access_token=abc123secret", "[REDACTED]", "abc123secret"},
		{"Authorization: Bearer sk-verysecrettoken", "[REDACTED]", "sk-verysecrettoken"},
		{`password="hunter2"`, "[REDACTED]", "hunter2"},
	}
	for _, c := range cases {
		out := Redact(c.in)
		assert.Contains(t, out, c.contains)
		assert.NotContains(t, out, c.excludes)
	}
}

func TestErrorLogRedactsMetadata(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	Error("upstream", &redactingError{msg: "dial failed: token=abc123xyz"}, "connect failed")

	output := buf.String()
	assert.True(t, strings.Contains(output, "[REDACTED]"))
	assert.False(t, strings.Contains(output, "abc123xyz"))
}

type redactingError struct{ msg string }

func (e *redactingError) Error() string { return e.msg }
