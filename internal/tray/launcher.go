package tray

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"spotcursor/internal/logging"
)

// OptionsBinary is the file name of the options window executable.
const OptionsBinary = "spotcursor-options"

// ErrAlreadyOpen is returned by Launch while the previous process is alive.
var ErrAlreadyOpen = errors.New("tray: options window already open")

// Launcher starts the options window as a child process, one at a time.
type Launcher struct {
	// Path of the executable and its arguments.
	Path string
	Args []string
	// Env is added to the inherited environment.
	Env []string
	// OnExit runs after the child exits, with its exit error.
	OnExit func(error)

	Logger *slog.Logger
	Crash  *logging.CrashHandler

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// OptionsPath returns where the options executable lives: next to exe.
func OptionsPath(exe string) string {
	name := OptionsBinary
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(exe), name)
}

// NewOptionsLauncher runs the options window for the settings file at
// configPath and calls onExit when it closes.
func NewOptionsLauncher(exe, configPath string, onExit func(error), logger *slog.Logger) *Launcher {
	return &Launcher{
		Path:   OptionsPath(exe),
		Args:   []string{"-config", configPath},
		OnExit: onExit,
		Logger: logger,
	}
}

// Launch starts the child unless one is already running.
func (l *Launcher) Launch() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return ErrAlreadyOpen
	}

	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cmd := exec.Command(l.Path, l.Args...)
	cmd.Env = append(os.Environ(), l.Env...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", filepath.Base(l.Path), err)
	}
	logger.Info("options window started", "pid", cmd.Process.Pid)

	l.running = true
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if l.Crash != nil {
			defer l.Crash.RecoverGoroutine()
		}

		err := cmd.Wait()
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()

		if err != nil {
			logger.Warn("options window exited", "error", err)
		} else {
			logger.Info("options window closed")
		}
		if l.OnExit != nil {
			l.OnExit(err)
		}
	}()
	return nil
}

// Running reports whether the child is alive.
func (l *Launcher) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Wait blocks until the current child, if any, has exited and OnExit ran.
func (l *Launcher) Wait() {
	l.wg.Wait()
}
