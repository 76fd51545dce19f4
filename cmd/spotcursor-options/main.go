// spotcursor-options edits the SpotCursor settings file. The resident
// process starts it from the tray menu and reloads the file when it exits.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gioui.org/app"
	"gioui.org/io/system"
	"gioui.org/op"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"spotcursor/cmd/spotcursor-options/internal/theme"
	"spotcursor/cmd/spotcursor-options/internal/ui"
	"spotcursor/internal/config"
	"spotcursor/internal/logging"
	"spotcursor/internal/options"
)

func main() {
	configPath := flag.String("config", "", "settings file (default: next to spotcursor)")
	flag.Parse()

	logCfg, _ := logging.ConfigFromEnv()
	log, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "spotcursor-options: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(log)
	logger := log.WithComponent("options").Logger

	path := *configPath
	if path == "" {
		if path, err = defaultPath(); err != nil {
			logger.Error("locate settings", "error", err)
			os.Exit(1)
		}
	}
	store := config.NewStore(path, logger)

	go func() {
		w := new(app.Window)
		w.Option(app.Title("SpotCursor Options"))
		w.Option(app.Size(unit.Dp(420), unit.Dp(440)))

		code := 0
		if err := loop(w, store, logger); err != nil {
			logger.Error("options window", "error", err)
			code = 1
		}
		log.Close()
		os.Exit(code)
	}()
	app.Main()
}

// defaultPath finds the file the resident process uses: it lives next to
// this executable under the resident's name.
func defaultPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return config.PathForExecutable(filepath.Join(filepath.Dir(exe), "spotcursor"))
}

func loop(w *app.Window, store *config.Store, logger *slog.Logger) error {
	t := theme.NewTheme(material.NewTheme())
	form := options.NewForm(store.Load())

	save := func(f *options.Form) error {
		if !f.Dirty() {
			return nil
		}
		if err := store.Save(f.Settings()); err != nil {
			return err
		}
		logger.Info("settings saved", "path", store.Path())
		return nil
	}
	editor := ui.NewEditor(t, form, save, func() {
		w.Perform(system.ActionClose)
	})

	var ops op.Ops
	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			editor.Layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}
