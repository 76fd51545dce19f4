//go:build windows

package input

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"spotcursor/internal/win32"
)

// hookCallTimeout bounds installing or removing hooks on the hook thread.
const hookCallTimeout = 5 * time.Second

// WindowsMonitor observes input through low-level keyboard and mouse hooks
// installed on a dedicated message-loop thread, so overlay work never
// delays a hook callback.
type WindowsMonitor struct {
	opts Options

	mu      sync.Mutex
	running bool
	thread  *win32.Thread
	kbd     windows.Handle
	mouse   windows.Handle
	stop    chan struct{}

	// Owned by the hook thread.
	sink  Sink
	edges EdgeTracker
	ticks *tickMapper
}

var (
	// Only one set of hooks exists per process; the callbacks find it here.
	activeHook atomic.Pointer[WindowsMonitor]

	keyboardCallback = windows.NewCallback(keyboardProc)
	mouseCallback    = windows.NewCallback(mouseProc)
)

func newPlatformMonitor(opts Options) Monitor {
	return &WindowsMonitor{opts: opts}
}

// Available reports whether hooks can be installed. They always can on a
// desktop session.
func (m *WindowsMonitor) Available() (bool, string) {
	return true, "low-level keyboard and mouse hooks"
}

// Start installs the hooks.
func (m *WindowsMonitor) Start(ctx context.Context, sink Sink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}
	if !activeHook.CompareAndSwap(nil, m) {
		return ErrAlreadyRunning
	}

	thread, err := win32.NewThread(m.opts.Logger, m.opts.Crash)
	if err != nil {
		activeHook.Store(nil)
		return fmt.Errorf("start hook thread: %w", err)
	}

	err = thread.Call(func() error {
		m.sink = sink
		m.edges.Reset()
		m.ticks = newTickMapper(time.Now, win32.TickCount)

		kbd, err := win32.SetWindowsHookEx(win32.WH_KEYBOARD_LL, keyboardCallback)
		if err != nil {
			return fmt.Errorf("keyboard hook: %w", err)
		}
		mouse, err := win32.SetWindowsHookEx(win32.WH_MOUSE_LL, mouseCallback)
		if err != nil {
			win32.UnhookWindowsHookEx(kbd)
			return fmt.Errorf("mouse hook: %w", err)
		}
		m.kbd, m.mouse = kbd, mouse
		return nil
	}, hookCallTimeout)
	if err != nil {
		thread.Close()
		activeHook.Store(nil)
		return fmt.Errorf("install input hooks: %w", err)
	}

	m.thread = thread
	m.running = true
	m.stop = make(chan struct{})
	go m.watch(ctx, m.stop)

	m.opts.Logger.Info("input hooks installed")
	return nil
}

func (m *WindowsMonitor) watch(ctx context.Context, stop <-chan struct{}) {
	select {
	case <-ctx.Done():
		m.Stop()
	case <-stop:
	}
}

// Stop removes the hooks and ends the hook thread.
func (m *WindowsMonitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false
	close(m.stop)

	err := m.thread.Call(func() error {
		var errs []error
		if m.kbd != 0 {
			errs = append(errs, win32.UnhookWindowsHookEx(m.kbd))
		}
		if m.mouse != 0 {
			errs = append(errs, win32.UnhookWindowsHookEx(m.mouse))
		}
		m.kbd, m.mouse = 0, 0
		m.sink = nil
		return errors.Join(errs...)
	}, hookCallTimeout)

	m.thread.Close()
	m.thread = nil
	activeHook.CompareAndSwap(m, nil)

	if err != nil {
		return fmt.Errorf("remove input hooks: %w", err)
	}
	return nil
}

func keyboardProc(code int, wParam, lParam uintptr) uintptr {
	if code == win32.HC_ACTION {
		if m := activeHook.Load(); m != nil && m.sink != nil {
			kb := (*win32.KbdLLHookStruct)(unsafe.Pointer(lParam))
			m.opts.Crash.Recover(func() { m.onKey(uint32(wParam), kb) })
		}
	}
	return win32.CallNextHookEx(code, wParam, lParam)
}

func (m *WindowsMonitor) onKey(msg uint32, kb *win32.KbdLLHookStruct) {
	side := SideForVirtualKey(kb.VkCode)
	switch msg {
	case win32.WM_KEYDOWN, win32.WM_SYSKEYDOWN:
		m.edges.KeyDown(side, m.ticks.At(kb.Time), m.sink)
	case win32.WM_KEYUP, win32.WM_SYSKEYUP:
		m.edges.KeyUp(side)
	}
}

func mouseProc(code int, wParam, lParam uintptr) uintptr {
	if code == win32.HC_ACTION {
		m := activeHook.Load()
		// Motion is by far the most frequent message; bail out early while
		// nobody is interested in it.
		if m != nil && m.sink != nil && (wParam != win32.WM_MOUSEMOVE || m.opts.Gate.IsOpen()) {
			ms := (*win32.MsLLHookStruct)(unsafe.Pointer(lParam))
			m.opts.Crash.Recover(func() { m.onMouse(uint32(wParam), ms) })
		}
	}
	return win32.CallNextHookEx(code, wParam, lParam)
}

func (m *WindowsMonitor) onMouse(msg uint32, ms *win32.MsLLHookStruct) {
	at := m.ticks.At(ms.Time)
	switch msg {
	case win32.WM_MOUSEMOVE:
		m.sink.Offer(NewMouseMoved(int(ms.Pt.X), int(ms.Pt.Y), at))
	case win32.WM_LBUTTONDOWN, win32.WM_RBUTTONDOWN, win32.WM_MBUTTONDOWN, win32.WM_XBUTTONDOWN:
		m.sink.Offer(NewMouseButtonDown(at))
	}
}
