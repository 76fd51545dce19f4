//go:build windows

package notify

import (
	"log/slog"

	"spotcursor/internal/win32"
)

type messageBox struct{}

func newPlatform(string, *slog.Logger) Notifier {
	return messageBox{}
}

// Notify shows a message box and blocks until it is dismissed.
func (messageBox) Notify(level Level, title, body string) error {
	flags := uint32(win32.MB_OK | win32.MB_SETFOREGROUND)
	switch level {
	case Error:
		flags |= win32.MB_ICONERROR
	case Warning:
		flags |= win32.MB_ICONWARNING
	}
	win32.MessageBox(title, body, flags)
	return nil
}
