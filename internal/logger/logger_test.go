// file: internal/logger/logger_test.go
// version: 1.0.0
// guid: 0d2460db-1f9d-4d12-b6dc-0bbfa54f3e52

package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"DEBUG":   DebugLevel,
		"info":    InfoLevel,
		"warn":    WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"":        InfoLevel,
		"verbose": InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(WarnLevel, &buf)

	l.Debugf("hidden %d", 1)
	l.Infof("hidden %d", 2)
	l.Warnf("shown %d", 3)
	l.Errorf("shown %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown 3")
	assert.Contains(t, out, "[ERROR] shown 4")
}

func TestLoggerWithRun(t *testing.T) {
	var buf bytes.Buffer
	base := New(InfoLevel, &buf)
	id := NewRunID()
	l := base.WithRun(id)

	l.Infof("hello")
	base.Infof("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[run: "+id+"]")
	assert.NotContains(t, lines[1], "[run:")
	assert.Equal(t, id, l.RunID())
	assert.Len(t, id, 26)
}

func TestStageLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(DebugLevel, &buf)

	s := l.Stage("search", "queen-a-night-at-the-opera")
	s.LogStart()
	s.LogSuccess("3 candidates")
	s.LogWarning("cover missing for %s", "x")
	s.LogError(errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "[START] search queen-a-night-at-the-opera")
	assert.Contains(t, out, "[SUCCESS] search queen-a-night-at-the-opera in")
	assert.Contains(t, out, ": 3 candidates")
	assert.Contains(t, out, "[WARN] search queen-a-night-at-the-opera: cover missing for x")
	assert.Contains(t, out, "[FAILED] search queen-a-night-at-the-opera in")
	assert.Contains(t, out, "boom")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Infof("nothing") })
}

func TestDiscard(t *testing.T) {
	l := Discard()
	assert.False(t, l.Enabled(ErrorLevel))
}
