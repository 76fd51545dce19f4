package logging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

// CrashReport is written as JSON when a callback panics.
type CrashReport struct {
	Timestamp    time.Time      `json:"timestamp"`
	Version      string         `json:"version,omitempty"`
	GOOS         string         `json:"goos"`
	GOARCH       string         `json:"goarch"`
	NumGoroutine int            `json:"num_goroutine"`
	PanicValue   string         `json:"panic_value"`
	StackTrace   string         `json:"stack_trace"`
	Component    string         `json:"component,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
}

// CrashHandler contains panics in OS callbacks and timer functions so a bad
// event cannot take the hook thread down with it.
type CrashHandler struct {
	mu        sync.Mutex
	crashDir  string
	version   string
	component string
	logger    *slog.Logger
	onCrash   func(CrashReport)
	count     int
}

// CrashHandlerConfig configures the crash handler.
type CrashHandlerConfig struct {
	// CrashDir is the directory to write crash dumps. Empty disables dumps.
	CrashDir string

	Version   string
	Component string

	// Logger receives one error record per recovered panic.
	Logger *slog.Logger

	// OnCrash is called after a crash is recorded.
	OnCrash func(CrashReport)
}

// DefaultCrashDir returns the platform-specific default crash directory.
func DefaultCrashDir() string {
	return filepath.Join(filepath.Dir(DefaultLogPath()), "crashes")
}

// NewCrashHandler creates a new CrashHandler.
func NewCrashHandler(cfg *CrashHandlerConfig) *CrashHandler {
	if cfg == nil {
		cfg = &CrashHandlerConfig{CrashDir: DefaultCrashDir()}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CrashHandler{
		crashDir:  cfg.CrashDir,
		version:   cfg.Version,
		component: cfg.Component,
		logger:    logger,
		onCrash:   cfg.OnCrash,
	}
}

// Recover runs fn and swallows any panic it raises.
func (h *CrashHandler) Recover(fn func()) {
	defer h.recover(nil)
	fn()
}

// RecoverWithContext is Recover with extra fields attached to the report.
func (h *CrashHandler) RecoverWithContext(contextInfo map[string]any, fn func()) {
	defer h.recover(contextInfo)
	fn()
}

// RecoverGoroutine is meant to be deferred at the top of a goroutine.
func (h *CrashHandler) RecoverGoroutine() {
	if r := recover(); r != nil {
		h.HandlePanic(r, map[string]any{"type": "goroutine"})
	}
}

func (h *CrashHandler) recover(contextInfo map[string]any) {
	if r := recover(); r != nil {
		h.HandlePanic(r, contextInfo)
	}
}

// HandlePanic records a recovered panic value.
func (h *CrashHandler) HandlePanic(panicValue any, contextInfo map[string]any) {
	report := CrashReport{
		Timestamp:    time.Now().UTC(),
		Version:      h.version,
		GOOS:         runtime.GOOS,
		GOARCH:       runtime.GOARCH,
		NumGoroutine: runtime.NumGoroutine(),
		PanicValue:   fmt.Sprintf("%v", panicValue),
		StackTrace:   string(debug.Stack()),
		Component:    h.component,
		Context:      contextInfo,
	}

	h.mu.Lock()
	h.count++
	path, err := h.writeCrashDump(report)
	h.mu.Unlock()

	attrs := []any{slog.String("panic", report.PanicValue)}
	if path != "" {
		attrs = append(attrs, slog.String("dump", path))
	}
	if err != nil {
		attrs = append(attrs, slog.Any("dump_error", err))
	}
	h.logger.Error("recovered panic", attrs...)

	if h.onCrash != nil {
		h.onCrash(report)
	}
}

// Count returns how many panics have been recovered.
func (h *CrashHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *CrashHandler) writeCrashDump(report CrashReport) (string, error) {
	if h.crashDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(h.crashDir, 0o750); err != nil {
		return "", fmt.Errorf("create crash dir: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash report: %w", err)
	}

	name := fmt.Sprintf("crash-%s-%d.json", report.Timestamp.Format("20060102-150405"), h.count)
	path := filepath.Join(h.crashDir, name)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write crash dump: %w", err)
	}
	return path, nil
}
