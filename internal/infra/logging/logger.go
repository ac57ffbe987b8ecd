// Package logging writes deckhand's file logs. Every entry lands in the
// global log (logs/deckhand.log); entries carrying a task short id are
// mirrored into that task's own log (logs/tasks/<short-id>.log).
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/coreycrellin/deckhand/internal/domain"
)

var _ domain.Logger = (*Logger)(nil)

var levelNames = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// ParseLevel maps a config level string to a slog.Level. Unknown strings
// fall back to info.
func ParseLevel(name string) slog.Level {
	if lvl, ok := levelNames[name]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// Logger appends formatted entries to lazily opened log files. An empty
// data dir disables it entirely.
// Fields are ordered to minimize memory padding.
type Logger struct {
	files   map[string]*os.File // open log files keyed by path
	dataDir string
	mu      sync.Mutex
	level   slog.Level
}

// New creates a Logger rooted at dataDir. Files and directories are created
// on first write, not here.
func New(dataDir string, level slog.Level) *Logger {
	return &Logger{
		files:   make(map[string]*os.File),
		dataDir: dataDir,
		level:   level,
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(shortID, category, msg string) {
	l.log(slog.LevelDebug, shortID, category, msg)
}

// Info logs at info level.
func (l *Logger) Info(shortID, category, msg string) {
	l.log(slog.LevelInfo, shortID, category, msg)
}

// Warn logs at warn level.
func (l *Logger) Warn(shortID, category, msg string) {
	l.log(slog.LevelWarn, shortID, category, msg)
}

// Error logs at error level.
func (l *Logger) Error(shortID, category, msg string) {
	l.log(slog.LevelError, shortID, category, msg)
}

// Close closes every open log file, keeping the last error.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lastErr error
	for path, f := range l.files {
		if err := f.Close(); err != nil {
			lastErr = err
		}
		delete(l.files, path)
	}
	return lastErr
}

// log appends one entry to the global log and, when shortID is set, to the
// task's own log. Write failures are swallowed: logging never takes the
// operation down with it.
func (l *Logger) log(level slog.Level, shortID, category, msg string) {
	if l.dataDir == "" || level < l.level {
		return
	}

	scope := "global"
	if shortID != "" {
		scope = "task-" + shortID
	}
	entry := fmt.Sprintf("[%s] [%s] [%s] [%s] %s\n",
		time.Now().Format("2006-01-02 15:04:05"), level.String(), scope, category, msg)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.append(domain.GlobalLogPath(l.dataDir), entry)
	if shortID != "" {
		l.append(domain.TaskLogPath(l.dataDir, shortID), entry)
	}
}

// append writes entry to the file at path, opening the file and its
// directory on first use. Callers hold l.mu.
func (l *Logger) append(path, entry string) {
	f, ok := l.files[path]
	if !ok {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return
		}
		var err error
		// Group-readable so log shippers can pick entries up.
		f, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return
		}
		l.files[path] = f
	}
	_, _ = f.WriteString(entry)
}
