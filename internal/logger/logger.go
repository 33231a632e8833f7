// file: internal/logger/logger.go
// version: 1.1.0
// guid: 4d49f03a-ef74-4487-ba4f-fced3bed75d4

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Level represents the severity of a log message
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelTags = map[Level]string{
	DebugLevel: "[DEBUG]",
	InfoLevel:  "[INFO]",
	WarnLevel:  "[WARN]",
	ErrorLevel: "[ERROR]",
}

// ParseLevel maps a config string to a Level. Unknown values fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Logger writes level-tagged lines, optionally stamped with a run id.
type Logger struct {
	minLevel Level
	runID    string
	out      *log.Logger
}

// New creates a logger writing to w.
func New(minLevel Level, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{minLevel: minLevel, out: log.New(w, "", log.LstdFlags)}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return New(ErrorLevel+1, io.Discard)
}

// NewRunID returns a sortable id for one tool invocation.
func NewRunID() string {
	return ulid.Make().String()
}

// WithRun returns a copy of l that tags every line with runID.
func (l *Logger) WithRun(runID string) *Logger {
	cp := *l
	cp.runID = runID
	return &cp
}

// RunID returns the run id attached to the logger, if any.
func (l *Logger) RunID() string { return l.runID }

// Enabled reports whether messages at level are written.
func (l *Logger) Enabled(level Level) bool { return level >= l.minLevel }

func (l *Logger) logf(level Level, format string, args ...any) {
	if l == nil || !l.Enabled(level) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.runID != "" {
		l.out.Printf("%s %s [run: %s]", levelTags[level], msg, l.runID)
		return
	}
	l.out.Printf("%s %s", levelTags[level], msg)
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(DebugLevel, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(InfoLevel, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(WarnLevel, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(ErrorLevel, format, args...) }

// StageLogger tracks the lifecycle of one pipeline stage
type StageLogger struct {
	log       *Logger
	stage     string
	subject   string
	startTime time.Time
}

// Stage starts tracking a named stage for subject (for example an entry id).
func (l *Logger) Stage(stage, subject string) *StageLogger {
	return &StageLogger{log: l, stage: stage, subject: subject, startTime: time.Now()}
}

// LogStart logs the start of the stage
func (s *StageLogger) LogStart() {
	s.log.Debugf("[START] %s %s", s.stage, s.subject)
}

// LogSuccess logs successful completion with the elapsed time
func (s *StageLogger) LogSuccess(detail string) {
	d := time.Since(s.startTime).Round(time.Millisecond)
	if detail == "" {
		s.log.Infof("[SUCCESS] %s %s in %v", s.stage, s.subject, d)
		return
	}
	s.log.Infof("[SUCCESS] %s %s in %v: %s", s.stage, s.subject, d, detail)
}

// LogError logs a terminal failure of the stage
func (s *StageLogger) LogError(err error) {
	d := time.Since(s.startTime).Round(time.Millisecond)
	s.log.Errorf("[FAILED] %s %s in %v: %v", s.stage, s.subject, d, err)
}

// LogWarning logs a degraded but non-fatal outcome
func (s *StageLogger) LogWarning(format string, args ...any) {
	s.log.Warnf("%s %s: %s", s.stage, s.subject, fmt.Sprintf(format, args...))
}
