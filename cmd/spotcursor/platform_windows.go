//go:build windows

package main

import (
	"context"
	"log/slog"

	"spotcursor/internal/logging"
	"spotcursor/internal/overlay"
	"spotcursor/internal/tray"
	"spotcursor/internal/win32"
)

// platform owns the UI thread, the overlay window and the tray icon.
type platform struct {
	logger   *slog.Logger
	crash    *logging.CrashHandler
	thread   *win32.Thread
	renderer overlay.Renderer
	tray     *tray.Tray
}

func newPlatform(logger *slog.Logger, crash *logging.CrashHandler) (*platform, error) {
	thread, err := win32.NewThread(logger.With("component", "ui"), crash)
	if err != nil {
		return nil, err
	}
	renderer, err := overlay.New(overlay.Options{
		Dispatcher: thread,
		Logger:     logger,
	})
	if err != nil {
		thread.Close()
		return nil, err
	}
	return &platform{logger: logger, crash: crash, thread: thread, renderer: renderer}, nil
}

func (p *platform) startShell(_ context.Context, a *app) error {
	t, err := tray.New(tray.Options{
		Thread:    p.thread,
		OnOptions: a.openOptions,
		OnQuit:    a.shutdown,
		Logger:    p.logger,
		Crash:     p.crash,
	})
	if err != nil {
		return err
	}
	p.tray = t
	return nil
}

func (p *platform) Close() {
	if p.tray != nil {
		if err := p.tray.Close(); err != nil {
			p.logger.Warn("remove tray icon", "error", err)
		}
	}
	if err := p.renderer.Close(); err != nil {
		p.logger.Warn("close overlay", "error", err)
	}
	if err := p.thread.Close(); err != nil {
		p.logger.Warn("stop UI thread", "error", err)
	}
}
