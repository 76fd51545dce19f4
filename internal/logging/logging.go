// Package logging provides structured logging with slog for spotcursor.
//
// Features:
//   - JSON and text output formats
//   - Log levels (debug, info, warn, error)
//   - Per-component child loggers
//   - Size and daily log rotation with gzip of rotated files
//   - Panic containment with JSON crash reports
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// Level represents a logging level.
type Level = slog.Level

// Log levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format represents the output format for logs.
type Format int

const (
	// FormatText outputs human-readable text logs.
	FormatText Format = iota
	// FormatJSON outputs JSON-structured logs.
	FormatJSON
)

// Environment variables read by ConfigFromEnv.
const (
	EnvLevel  = "SPOTCURSOR_LOG_LEVEL"
	EnvFile   = "SPOTCURSOR_LOG_FILE"
	EnvFormat = "SPOTCURSOR_LOG_FORMAT"
)

// Config holds the logging configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level Level

	// Format is the output format (text or JSON).
	Format Format

	// Output specifies where logs are written.
	// Can be "stdout", "stderr", "file", or "both".
	Output string

	// FilePath is the path to the log file when Output includes "file".
	FilePath string

	// MaxSize is the maximum size of a log file in megabytes before rotation.
	MaxSize int64

	// MaxAge is the maximum age of log files in days before deletion.
	MaxAge int

	// MaxBackups is the maximum number of rotated log files to keep.
	MaxBackups int

	// Compress determines if rotated logs should be gzip compressed.
	Compress bool

	// AddSource adds source file and line to log entries.
	AddSource bool

	// Component is the name of the component using this logger.
	Component string
}

// DefaultConfig returns a default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		Format:     FormatText,
		Output:     "stderr",
		FilePath:   DefaultLogPath(),
		MaxSize:    10,
		MaxAge:     14,
		MaxBackups: 3,
		Compress:   true,
		Component:  "spotcursor",
	}
}

// ConfigFromEnv returns DefaultConfig adjusted by SPOTCURSOR_LOG_* variables.
// An unknown level is reported but the default level is kept.
func ConfigFromEnv() (*Config, error) {
	cfg := DefaultConfig()
	var err error

	if v := os.Getenv(EnvLevel); v != "" {
		level, perr := ParseLevel(v)
		if perr != nil {
			err = perr
		} else {
			cfg.Level = level
		}
	}
	if v := os.Getenv(EnvFormat); strings.EqualFold(v, "json") {
		cfg.Format = FormatJSON
	}
	if v := os.Getenv(EnvFile); v != "" {
		cfg.Output = "both"
		if v != "1" && !strings.EqualFold(v, "true") {
			cfg.FilePath = v
		}
	}
	return cfg, err
}

// DefaultLogPath returns the platform-specific default log path.
func DefaultLogPath() string {
	switch runtime.GOOS {
	case "darwin":
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "Library", "Logs", "spotcursor", "spotcursor.log")
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}
		return filepath.Join(appData, "spotcursor", "logs", "spotcursor.log")
	default:
		stateHome := os.Getenv("XDG_STATE_HOME")
		if stateHome == "" {
			homeDir, _ := os.UserHomeDir()
			stateHome = filepath.Join(homeDir, ".local", "state")
		}
		return filepath.Join(stateHome, "spotcursor", "spotcursor.log")
	}
}

// Logger is a slog.Logger that owns its output file, if any.
type Logger struct {
	*slog.Logger

	// root has the handler without a component attribute.
	root    *slog.Logger
	config  *Config
	rotator *FileRotator
	mu      sync.Mutex
}

var (
	defaultLogger *Logger
	loggerMu      sync.Mutex
)

// Default returns the process-wide logger, creating one from DefaultConfig
// on first use.
func Default() *Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if defaultLogger == nil {
		l, err := New(DefaultConfig())
		if err != nil {
			l = &Logger{Logger: slog.Default(), root: slog.Default(), config: DefaultConfig()}
		}
		defaultLogger = l
	}
	return defaultLogger
}

// SetDefault replaces the process-wide logger and slog's default.
func SetDefault(l *Logger) {
	loggerMu.Lock()
	defaultLogger = l
	loggerMu.Unlock()
	slog.SetDefault(l.Logger)
}

// New opens the outputs named by cfg.Output ("stdout", "stderr", "file" or
// "both") and returns a logger writing to them.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var (
		w       io.Writer = os.Stderr
		rotator *FileRotator
		err     error
	)
	switch out := strings.ToLower(cfg.Output); out {
	case "stdout":
		w = os.Stdout
	case "file", "both":
		if rotator, err = NewFileRotator(cfg); err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = rotator
		if out == "both" {
			w = io.MultiWriter(os.Stderr, rotator)
		}
	}
	return newLogger(cfg, w, rotator), nil
}

// NewWithWriter returns a logger writing to w regardless of cfg.Output.
func NewWithWriter(cfg *Config, w io.Writer) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return newLogger(cfg, w, nil)
}

func newLogger(cfg *Config, w io.Writer, rotator *FileRotator) *Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.Format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	}

	l := &Logger{root: slog.New(h), config: cfg, rotator: rotator}
	l.Logger = l.root
	if cfg.Component != "" {
		l.Logger = l.root.With("component", cfg.Component)
	}
	return l
}

// WithComponent returns a logger sharing l's outputs whose records carry
// component=name instead of l's component.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger:  l.root.With("component", name),
		root:    l.root,
		config:  l.config,
		rotator: l.rotator,
	}
}

// Close closes the log file. Child loggers share it; close only the root.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rotator == nil {
		return nil
	}
	return l.rotator.Close()
}

var levelNames = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
func ParseLevel(s string) (Level, error) {
	if level, ok := levelNames[strings.ToLower(s)]; ok {
		return level, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level: %s", s)
}

// LevelString is the inverse of ParseLevel; unknown levels read as "info".
func LevelString(level Level) string {
	switch level {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}
