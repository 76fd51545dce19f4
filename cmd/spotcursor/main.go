// spotcursor is the resident process: it watches for a double tap of Ctrl
// and dims the screen around the mouse pointer.
//
// It takes no flags. Settings live next to the executable (spotcursor.json)
// and are reloaded whenever the file changes. Set SPOTCURSOR_LOG_LEVEL=debug
// for verbose logs.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"spotcursor/internal/config"
	"spotcursor/internal/input"
	"spotcursor/internal/logging"
	"spotcursor/internal/metrics"
	"spotcursor/internal/notify"
	"spotcursor/internal/spotlight"
	"spotcursor/internal/tray"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

const appName = "SpotCursor"

// metricsFile is written next to the log file at exit.
const metricsFile = "spotcursor-metrics.json"

func main() {
	os.Exit(run())
}

func run() int {
	logCfg, envErr := logging.ConfigFromEnv()
	// Each component tags its own records.
	logCfg.Component = ""
	root, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "spotcursor: %v\n", err)
		return 1
	}
	defer root.Close()
	logging.SetDefault(root)
	log := root.WithComponent("main")
	if envErr != nil {
		log.Warn("ignoring log level from environment", "error", envErr)
	}

	crash := logging.NewCrashHandler(&logging.CrashHandlerConfig{
		CrashDir:  logging.DefaultCrashDir(),
		Version:   Version,
		Component: "spotcursor",
		Logger:    root.Logger,
	})
	notifier := notify.New(appName, root.Logger)

	exe, err := os.Executable()
	if err != nil {
		log.Error("locate executable", "error", err)
		return 1
	}
	configPath, err := config.DefaultPath()
	if err != nil {
		log.Error("locate settings", "error", err)
		return 1
	}

	store := config.NewStore(configPath, root.WithComponent("config").Logger)
	if res, err := store.Migrate(); err != nil {
		log.Warn("settings migration failed", "path", store.Path(), "error", err)
	} else if res != nil {
		log.Info("settings migrated", "backup", res.Backup, "changes", len(res.Changes))
		for _, w := range res.Warnings {
			log.Warn("settings migration", "detail", w)
		}
	}
	settings := store.Load()
	log.Info("starting", append([]any{"version", Version, "settings", store.Path()}, settingsAttrs(settings)...)...)

	registry := metrics.NewRegistry("spotcursor", "")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, quit := context.WithCancel(ctx)
	defer quit()

	plat, err := newPlatform(root.Logger, crash)
	if err != nil {
		log.Error("platform setup", "error", err)
		_ = notifier.Notify(notify.Error, appName, "Could not create the overlay: "+err.Error())
		return 1
	}
	defer plat.Close()

	engine, err := spotlight.NewEngine(spotlight.Options{
		Settings: settings,
		Renderer: plat.renderer,
		Logger:   root.Logger,
		Crash:    crash,
		Metrics:  metrics.NewSpotlightMetrics(registry),
	})
	if err != nil {
		log.Error("create engine", "error", err)
		return 1
	}

	monitor := input.New(input.Options{
		Gate:   engine.Gate(),
		Logger: root.WithComponent("input").Logger,
		Crash:  crash,
	})
	if ok, reason := monitor.Available(); !ok {
		log.Warn("input monitor reports a problem", "reason", reason)
	}
	if err := monitor.Start(ctx, engine.Queue()); err != nil {
		log.Error("observe keyboard and mouse", "error", err)
		_ = notifier.Notify(notify.Error, appName,
			"Could not watch the keyboard and mouse, so double Ctrl cannot be detected.\n\n"+err.Error())
		return 1
	}
	defer func() {
		if err := monitor.Stop(); err != nil {
			log.Warn("stop input monitor", "error", err)
		}
		engine.Queue().Close()
	}()

	watcher := config.NewWatcher(store, settings)
	watcher.OnChange(func(s config.Settings) {
		if err := engine.UpdateSettings(s); err != nil && !errors.Is(err, spotlight.ErrStopped) {
			log.Warn("apply settings", "error", err)
			return
		}
		log.Info("settings applied", settingsAttrs(s)...)
	})
	if err := watcher.Start(); err != nil {
		log.Warn("settings file will not be watched", "error", err)
	}
	defer watcher.Close()
	go logWatchErrors(ctx, watcher, log.Logger)

	a := &app{
		logger: log.Logger,
		engine: engine,
		quit:   quit,
	}
	a.launcher = tray.NewOptionsLauncher(exe, store.Path(), func(error) {
		// The options window writes the file itself; pick it up at once
		// instead of waiting for the debounced watcher.
		watcher.Reload()
	}, root.WithComponent("options").Logger)
	a.launcher.Crash = crash
	a.reload = func() { watcher.Reload() }

	if err := plat.startShell(ctx, a); err != nil {
		log.Warn("shell integration unavailable", "error", err)
	}

	err = engine.Run(ctx)
	logSessionMetrics(log.Logger, registry)
	metricsPath := filepath.Join(filepath.Dir(logCfg.FilePath), metricsFile)
	if werr := writeMetrics(metricsPath, registry); werr != nil {
		log.Warn("write session metrics", "path", metricsPath, "error", werr)
	}
	if err != nil {
		log.Error("engine stopped", "error", err)
		return 1
	}
	log.Info("stopped", settingsAttrs(watcher.Current())...)
	return 0
}

// app holds what the shell (tray, signals) acts upon.
type app struct {
	logger   *slog.Logger
	engine   *spotlight.Engine
	launcher *tray.Launcher
	reload   func()
	quit     context.CancelFunc
}

func (a *app) openOptions() {
	err := a.launcher.Launch()
	switch {
	case errors.Is(err, tray.ErrAlreadyOpen):
		a.logger.Debug("options window already open")
	case err != nil:
		a.logger.Warn("open options", "error", err)
	}
}

func (a *app) reloadSettings() {
	a.reload()
}

func (a *app) shutdown() {
	a.logger.Info("quit requested")
	if err := a.engine.HideNow(); err != nil && !errors.Is(err, spotlight.ErrStopped) {
		a.logger.Warn("hide before quit", "error", err)
	}
	a.quit()
}

func settingsAttrs(s config.Settings) []any {
	return []any{
		"double_tap_ms", s.DoubleTapWindowMs,
		"opacity", s.BackdropOpacity,
		"radius_px", s.SpotlightRadiusPx,
		"auto_hide_ms", s.AutoHideDelayMs,
	}
}

func logWatchErrors(ctx context.Context, w *config.Watcher, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			logger.Warn("settings watcher", "error", err)
		}
	}
}

func logSessionMetrics(logger *slog.Logger, r *metrics.Registry) {
	snap := r.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		args = append(args, k, snap[k])
	}
	logger.Info("session metrics", args...)
}

// writeMetrics replaces path with the registry in JSON form.
func writeMetrics(path string, r *metrics.Registry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
