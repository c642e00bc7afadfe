package logger

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Environment variables configuring the log file and its record format.
const (
	envLogPath   = "CACHESTORAGE_LOG"
	envLogFormat = "CACHESTORAGE_LOG_FORMAT"
)

var (
	mu      sync.Mutex
	std     *slog.Logger
	logFile *os.File
)

// InitFromEnv initializes the logger using CACHESTORAGE_LOG or a file named
// after the executable, next to it.
func InitFromEnv() error {
	path := os.Getenv(envLogPath)
	if path == "" {
		path = defaultPath()
	}
	return Init(path, os.Getenv(envLogFormat))
}

func defaultPath() string {
	exePath, err := os.Executable()
	if err != nil {
		return "./cachestorage.log"
	}
	name := strings.TrimSuffix(filepath.Base(exePath), filepath.Ext(exePath))
	return filepath.Join(filepath.Dir(exePath), name+".log")
}

// Init opens path in append mode, creating parent directories, and routes
// records to it. format "json" selects JSON records; anything else is text.
// Calling Init again while a file is open is a no-op.
func Init(path, format string) error {
	mu.Lock()
	defer mu.Unlock()
	if std != nil {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	var h slog.Handler = slog.NewTextHandler(f, opts)
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(f, opts)
	}
	logFile = f
	std = slog.New(h)
	return nil
}

// Close closes the underlying log file, if open. A later write re-initializes
// from the environment.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	std = nil
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// L returns the structured logger, initializing it from the environment if
// needed. It falls back to slog.Default when no file can be opened.
func L() *slog.Logger {
	mu.Lock()
	l := std
	mu.Unlock()
	if l != nil {
		return l
	}
	if err := InitFromEnv(); err != nil {
		return slog.Default()
	}
	mu.Lock()
	defer mu.Unlock()
	if std == nil {
		return slog.Default()
	}
	return std
}

func Debugf(format string, args ...any) { L().Debug(fmt.Sprintf(format, args...)) }

func Infof(format string, args ...any) { L().Info(fmt.Sprintf(format, args...)) }

func Warnf(format string, args ...any) { L().Warn(fmt.Sprintf(format, args...)) }

func Errorf(format string, args ...any) { L().Error(fmt.Sprintf(format, args...)) }
