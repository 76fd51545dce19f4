//go:build windows

package overlay

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sys/windows"

	"spotcursor/internal/win32"
)

const overlayClass = "SpotCursorOverlay"

// windowsRenderer is a layered, click-through, topmost popup covering the
// virtual desktop. The spotlight is a region with an elliptic hole; the
// dim is the window's uniform alpha over a black background.
//
// The window itself is UI-thread state. Callers only hold mu while handing
// closures to the thread; a call that times out still runs later, so the
// closures never touch anything but ui.
type windowsRenderer struct {
	opts   Options
	thread Dispatcher
	owned  *win32.Thread
	logger *slog.Logger

	mu     sync.Mutex
	style  Style
	closed bool

	ui uiState
}

// uiState is only read or written on the UI thread.
type uiState struct {
	hwnd    windows.HWND
	screen  Rect
	style   Style
	center  Point
	visible bool
}

func newPlatformRenderer(opts Options) (Renderer, error) {
	r := &windowsRenderer{
		opts:   opts,
		thread: opts.Dispatcher,
		style:  opts.Style,
		ui:     uiState{style: opts.Style},
		logger: opts.Logger.With("component", "overlay"),
	}
	if r.thread == nil {
		t, err := win32.NewThread(opts.Logger, nil)
		if err != nil {
			return nil, fmt.Errorf("overlay: start ui thread: %w", err)
		}
		r.owned = t
		r.thread = t
	}
	return r, nil
}

// CursorPos returns the current cursor position.
func CursorPos() (Point, error) {
	pt, err := win32.CursorPos()
	if err != nil {
		return Point{}, err
	}
	return Point{X: int(pt.X), Y: int(pt.Y)}, nil
}

func (r *windowsRenderer) call(fn func() error) error {
	return r.thread.Call(fn, r.opts.CallTimeout)
}

func (r *windowsRenderer) Show(p Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	style := r.style

	return r.call(func() error {
		if err := r.ensureWindow(style); err != nil {
			return err
		}
		if err := r.applyStyle(style); err != nil {
			return err
		}
		if err := r.fitScreen(); err != nil {
			return err
		}
		if err := r.applyHole(p, !r.ui.visible); err != nil {
			return err
		}
		if !r.ui.visible {
			win32.ShowWindow(r.ui.hwnd, win32.SW_SHOWNOACTIVATE)
			r.ui.visible = true
			r.logger.Debug("overlay shown", "at", p, "screen", r.ui.screen)
		}
		return nil
	})
}

func (r *windowsRenderer) Reposition(p Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return r.call(func() error {
		if !r.ui.visible || p == r.ui.center {
			return nil
		}
		return r.applyHole(p, true)
	})
}

func (r *windowsRenderer) Hide() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	return r.call(func() error {
		if !r.ui.visible {
			return nil
		}
		win32.ShowWindow(r.ui.hwnd, win32.SW_HIDE)
		r.ui.visible = false
		r.logger.Debug("overlay hidden")
		return nil
	})
}

func (r *windowsRenderer) Configure(s Style) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if s == r.style {
		return nil
	}
	r.style = s
	return r.call(func() error {
		return r.applyStyle(s)
	})
}

func (r *windowsRenderer) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	err := r.call(func() error {
		if r.ui.hwnd != 0 {
			win32.DestroyWindow(r.ui.hwnd)
		}
		r.ui.hwnd = 0
		r.ui.visible = false
		return nil
	})
	if r.owned != nil {
		if cerr := r.owned.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// ensureWindow creates the popup on first use.
func (r *windowsRenderer) ensureWindow(style Style) error {
	if r.ui.hwnd != 0 {
		return nil
	}
	if err := win32.RegisterClass(overlayClass, win32.StockObject(win32.BLACK_BRUSH)); err != nil {
		return err
	}

	x, y, w, h := win32.VirtualScreen()
	hwnd, err := win32.CreateWindow(overlayClass, "",
		win32.WS_EX_LAYERED|win32.WS_EX_TRANSPARENT|win32.WS_EX_TOPMOST|win32.WS_EX_TOOLWINDOW|win32.WS_EX_NOACTIVATE,
		win32.WS_POPUP, x, y, w, h, 0, nil)
	if err != nil {
		return err
	}
	if err := win32.SetLayeredAlpha(hwnd, style.Opacity); err != nil {
		win32.DestroyWindow(hwnd)
		return err
	}
	r.ui.hwnd = hwnd
	r.ui.style = style
	r.ui.screen = Rect{Left: int(x), Top: int(y), Right: int(x + w), Bottom: int(y + h)}
	return nil
}

// applyStyle brings an existing window in line with s. Without a window
// there is nothing to do: ensureWindow applies the style at creation.
func (r *windowsRenderer) applyStyle(s Style) error {
	if r.ui.hwnd == 0 || s == r.ui.style {
		return nil
	}
	if s.Opacity != r.ui.style.Opacity {
		if err := win32.SetLayeredAlpha(r.ui.hwnd, s.Opacity); err != nil {
			return err
		}
	}
	r.ui.style = s
	if r.ui.visible {
		return r.applyHole(r.ui.center, true)
	}
	return nil
}

// fitScreen follows monitor layout changes between shows.
func (r *windowsRenderer) fitScreen() error {
	x, y, w, h := win32.VirtualScreen()
	screen := Rect{Left: int(x), Top: int(y), Right: int(x + w), Bottom: int(y + h)}
	if screen == r.ui.screen && r.ui.visible {
		return nil
	}
	if err := win32.SetWindowPos(r.ui.hwnd, x, y, w, h, 0); err != nil {
		return err
	}
	r.ui.screen = screen
	return nil
}

func (r *windowsRenderer) applyHole(p Point, redraw bool) error {
	screen := r.ui.screen
	hole := Hole(screen, p, r.ui.style.Radius)
	rgn, err := win32.RingRegion(int32(screen.Width()), int32(screen.Height()),
		int32(hole.Left), int32(hole.Top), int32(hole.Right), int32(hole.Bottom))
	if err != nil {
		return err
	}
	if err := win32.SetWindowRgn(r.ui.hwnd, rgn, redraw); err != nil {
		win32.DeleteObject(rgn)
		return err
	}
	r.ui.center = p
	return nil
}
