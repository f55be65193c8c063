// Package logger provides the process-wide structured logger.
package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

var (
	mu  sync.RWMutex
	log = hclog.New(&hclog.LoggerOptions{
		Name:   "tremors",
		Level:  hclog.Info,
		Output: os.Stderr,
	})
)

// Configure replaces the default logger with one at the given level.
// Unknown level strings fall back to info.
func Configure(level string) {
	mu.Lock()
	defer mu.Unlock()

	parsed := hclog.LevelFromString(strings.ToLower(level))
	if parsed == hclog.NoLevel {
		parsed = hclog.Info
	}
	log = hclog.New(&hclog.LoggerOptions{
		Name:   "tremors",
		Level:  parsed,
		Output: os.Stderr,
	})
}

// Named returns a sub-logger for a component.
func Named(name string) hclog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log.Named(name)
}

// Debug logs a debug message with optional key/value pairs.
func Debug(msg string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debug(msg, args...)
}

// Info logs an informational message with optional key/value pairs.
func Info(msg string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Info(msg, args...)
}

// Warn logs a warning message with optional key/value pairs.
func Warn(msg string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warn(msg, args...)
}

// Error logs an error message with optional key/value pairs.
func Error(msg string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Error(msg, args...)
}
