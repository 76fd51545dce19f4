//go:build windows

package tray

import (
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/windows"

	"spotcursor/internal/logging"
	"spotcursor/internal/win32"
)

const (
	trayClass   = "SpotCursorTray"
	wmTrayIcon  = win32.WM_APP + 2
	iconSize    = 32
	callTimeout = 5 * time.Second
	idOptions   = 1001
	idQuit      = 1002
	trayIconID  = 1
)

// DefaultTooltip is shown when hovering the icon.
const DefaultTooltip = "SpotCursor - double Ctrl to activate"

// Options configures the tray icon.
type Options struct {
	// Thread owns the hidden window receiving tray messages.
	Thread *win32.Thread

	Tooltip string

	// OnOptions and OnQuit run on their own goroutine, never on Thread.
	OnOptions func()
	OnQuit    func()

	Logger *slog.Logger
	Crash  *logging.CrashHandler
}

// Tray is the notification-area icon and its menu.
type Tray struct {
	opts   Options
	logger *slog.Logger

	// Touched on the UI thread only.
	hwnd           windows.HWND
	icon           windows.Handle
	nid            win32.NotifyIconData
	taskbarCreated uint32
}

// New adds the icon to the notification area.
func New(opts Options) (*Tray, error) {
	if opts.Thread == nil {
		return nil, fmt.Errorf("tray: a UI thread is required")
	}
	if opts.Tooltip == "" {
		opts.Tooltip = DefaultTooltip
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Crash == nil {
		opts.Crash = logging.NewCrashHandler(&logging.CrashHandlerConfig{Logger: opts.Logger})
	}

	t := &Tray{opts: opts, logger: opts.Logger.With("component", "tray")}
	if err := opts.Thread.Call(t.create, callTimeout); err != nil {
		return nil, fmt.Errorf("tray: %w", err)
	}
	return t, nil
}

func (t *Tray) create() error {
	if err := win32.RegisterClass(trayClass, 0); err != nil {
		return err
	}
	// A hidden top-level window: message-only windows miss the
	// TaskbarCreated broadcast.
	hwnd, err := win32.CreateWindow(trayClass, "SpotCursor", 0, 0, 0, 0, 0, 0, 0, t.windowProc)
	if err != nil {
		return err
	}
	t.hwnd = hwnd
	t.taskbarCreated = win32.RegisterWindowMessage("TaskbarCreated")

	img := Icon(iconSize)
	icon, err := win32.CreateIconRGBA(iconSize, iconSize, img.Pix)
	if err != nil {
		win32.DestroyWindow(hwnd)
		return fmt.Errorf("create icon: %w", err)
	}
	t.icon = icon

	t.nid = win32.NotifyIconData{
		Wnd:             hwnd,
		ID:              trayIconID,
		Flags:           win32.NIF_ICON | win32.NIF_MESSAGE | win32.NIF_TIP,
		CallbackMessage: wmTrayIcon,
		Icon:            icon,
	}
	win32.SetTip(t.nid.Tip[:], t.opts.Tooltip)
	if err := win32.ShellNotifyIcon(win32.NIM_ADD, &t.nid); err != nil {
		win32.DestroyIcon(icon)
		win32.DestroyWindow(hwnd)
		return err
	}
	t.logger.Debug("tray icon added")
	return nil
}

func (t *Tray) windowProc(hwnd windows.HWND, msg uint32, wParam, lParam uintptr) (uintptr, bool) {
	switch {
	case msg == wmTrayIcon:
		switch uint32(lParam & 0xFFFF) {
		case win32.WM_RBUTTONUP:
			t.showMenu()
		case win32.WM_LBUTTONDBLCLK:
			t.fire(t.opts.OnOptions)
		}
		return 0, true

	case t.taskbarCreated != 0 && msg == t.taskbarCreated:
		// Explorer restarted; the icon has to be added again.
		if err := win32.ShellNotifyIcon(win32.NIM_ADD, &t.nid); err != nil {
			t.logger.Warn("re-add tray icon", "error", err)
		}
		return 0, true
	}
	return 0, false
}

func (t *Tray) showMenu() {
	id, err := win32.TrackPopupMenu(t.hwnd, []win32.PopupMenuItem{
		{ID: idOptions, Label: "Options…"},
		{},
		{ID: idQuit, Label: "Quit"},
	})
	if err != nil {
		t.logger.Warn("tray menu", "error", err)
		return
	}
	switch id {
	case idOptions:
		t.fire(t.opts.OnOptions)
	case idQuit:
		t.fire(t.opts.OnQuit)
	}
}

// fire runs fn off the UI thread: handlers call back into components
// that marshal onto this same thread.
func (t *Tray) fire(fn func()) {
	if fn == nil {
		return
	}
	go t.opts.Crash.Recover(fn)
}

// Close removes the icon.
func (t *Tray) Close() error {
	return t.opts.Thread.Call(func() error {
		if t.hwnd == 0 {
			return nil
		}
		err := win32.ShellNotifyIcon(win32.NIM_DELETE, &t.nid)
		win32.DestroyIcon(t.icon)
		win32.DestroyWindow(t.hwnd)
		t.hwnd, t.icon = 0, 0
		return err
	}, callTimeout)
}
