package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu            sync.RWMutex
	std           = newLogger(os.Stderr, zerolog.InfoLevel)
	level         = zerolog.InfoLevel
	logFile       *os.File
	isInitialized bool
)

func newLogger(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Init points the logger at the provided file path.
// It creates parent directories if needed and opens the file in append mode.
// Until Init is called, logs go to stderr.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()
	if isInitialized {
		return nil
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	logFile = f
	std = newLogger(f, level)
	isInitialized = true
	return nil
}

// SetLevel sets the minimum level by name (debug, info, warn, error).
// Unknown names select info.
func SetLevel(name string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	mu.Lock()
	defer mu.Unlock()
	level = lvl
	std = std.Level(lvl)
}

// Get returns the process logger for components that log structured fields.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// Close closes the underlying log file, if open, and reverts to stderr.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	isInitialized = false
	std = newLogger(os.Stderr, level)
	return err
}

// Debugf logs diagnostic messages.
func Debugf(format string, args ...any) { write(zerolog.DebugLevel, format, args...) }

// Infof logs informational messages.
func Infof(format string, args ...any) { write(zerolog.InfoLevel, format, args...) }

// Warnf logs warnings.
func Warnf(format string, args ...any) { write(zerolog.WarnLevel, format, args...) }

// Errorf logs errors.
func Errorf(format string, args ...any) { write(zerolog.ErrorLevel, format, args...) }

func write(lvl zerolog.Level, format string, args ...any) {
	l := Get()
	l.WithLevel(lvl).Msg(fmt.Sprintf(format, args...))
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
