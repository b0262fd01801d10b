// Package logging provides the leveled, optionally colored console logger
// used by every command, with an optional plain-text file sink.
//
// Loggers derived with [Logger.WithPrefix] share the parent's outputs, so
// stage workers can tag their lines without reopening the log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/backmassage/imgpipe/internal/config"
	"github.com/backmassage/imgpipe/internal/term"
)

// Level is the severity of a log line.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelSuccess
	LevelStage
	LevelWarn
	LevelOutlier
	LevelError
)

var levels = map[Level]struct {
	name  string
	color term.Color
}{
	LevelDebug:   {"DEBUG", term.Cyan},
	LevelInfo:    {"INFO", term.Blue},
	LevelSuccess: {"SUCCESS", term.Green},
	LevelStage:   {"STAGE", term.Magenta},
	LevelWarn:    {"WARN", term.Yellow},
	LevelOutlier: {"OUTLIER", term.Orange},
	LevelError:   {"ERROR", term.Red},
}

func (lv Level) String() string { return levels[lv].name }

const timeLayout = "2006-01-02 15:04:05"

// sink is the set of outputs shared by a logger and its prefixed children.
type sink struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	file   *os.File
	path   string
}

// Logger writes leveled lines to the console and, when configured, to a
// log file. It is safe for concurrent use by derivative workers.
type Logger struct {
	s      *sink
	prefix string
}

// NewLogger initializes colors from cfg and optionally opens cfg.LogFile
// for appending. Call Close() when done if LogFile was set.
func NewLogger(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)
	s := &sink{out: os.Stdout, errOut: os.Stderr}

	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, fmt.Errorf("log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		s.file, s.path = f, cfg.LogFile
	}
	return &Logger{s: s}, nil
}

// WithPrefix returns a logger that tags every line with "[prefix]" and
// shares l's outputs.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{s: l.s, prefix: prefix}
}

// SetOutput redirects console output. ERROR lines go to errOut.
func (l *Logger) SetOutput(out, errOut io.Writer) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.out, l.s.errOut = out, errOut
}

// FilePath returns the log file path, or "" when logging to console only.
func (l *Logger) FilePath() string { return l.s.path }

// Close closes the log file if one was opened. Prefixed children share
// the file, so only the root logger should be closed.
func (l *Logger) Close() error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if l.s.file == nil {
		return nil
	}
	err := l.s.file.Close()
	l.s.file = nil
	return err
}

// Log writes one line at level. The file copy is never colored.
func (l *Logger) Log(level Level, format string, args ...interface{}) {
	meta := levels[level]
	text := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		text = "[" + l.prefix + "] " + text
	}
	ts := time.Now().Format(timeLayout)
	tag := "[" + meta.name + "]"

	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	out := l.s.out
	if level == LevelError {
		out = l.s.errOut
	}
	_, _ = io.WriteString(out, ts+" "+term.Paint(meta.color, tag)+" "+text+"\n")
	if l.s.file != nil {
		_, _ = io.WriteString(l.s.file, ts+" "+tag+" "+text+"\n")
	}
}

func (l *Logger) Info(format string, args ...interface{}) { l.Log(LevelInfo, format, args...) }

func (l *Logger) Success(format string, args ...interface{}) { l.Log(LevelSuccess, format, args...) }

func (l *Logger) Warn(format string, args ...interface{}) { l.Log(LevelWarn, format, args...) }

// Error logs to the error output (stderr by default).
func (l *Logger) Error(format string, args ...interface{}) { l.Log(LevelError, format, args...) }

// Stage marks the start of a pipeline stage.
func (l *Logger) Stage(format string, args ...interface{}) { l.Log(LevelStage, format, args...) }

// Outlier flags an unusual measurement in the analysis report.
func (l *Logger) Outlier(format string, args ...interface{}) { l.Log(LevelOutlier, format, args...) }

// Debug logs only when verbose is set.
func (l *Logger) Debug(verbose bool, format string, args ...interface{}) {
	if verbose {
		l.Log(LevelDebug, format, args...)
	}
}
