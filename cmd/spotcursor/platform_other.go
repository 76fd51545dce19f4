//go:build !windows

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"spotcursor/internal/logging"
	"spotcursor/internal/overlay"
)

// platform has no overlay and no tray here: activations are tracked and
// logged, and the process is controlled with signals.
type platform struct {
	logger   *slog.Logger
	renderer overlay.Renderer
}

func newPlatform(logger *slog.Logger, _ *logging.CrashHandler) (*platform, error) {
	renderer, err := overlay.New(overlay.Options{Logger: logger})
	if err != nil {
		return nil, err
	}
	logger.Warn("no overlay on this platform; activations are only logged")
	return &platform{logger: logger, renderer: renderer}, nil
}

// startShell reloads settings on SIGHUP.
func (p *platform) startShell(ctx context.Context, a *app) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				p.logger.Info("reloading settings")
				a.reloadSettings()
			}
		}
	}()
	p.logger.Info("running; SIGHUP reloads settings, Ctrl+C quits")
	return nil
}

func (p *platform) Close() {
	if err := p.renderer.Close(); err != nil {
		p.logger.Warn("close overlay", "error", err)
	}
}
