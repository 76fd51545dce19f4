//go:build windows

package win32

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"spotcursor/internal/logging"
)

var (
	// ErrClosed is returned by Call and Post once the thread has stopped.
	ErrClosed = errors.New("win32: thread closed")
	// ErrTimeout is returned by Call when fn did not finish in time.
	ErrTimeout = errors.New("win32: call timed out")
)

// WindowProc handles messages for one window. Returning handled=false
// falls through to DefWindowProc.
type WindowProc func(hwnd windows.HWND, msg uint32, wParam, lParam uintptr) (result uintptr, handled bool)

var (
	windowsMu sync.Mutex
	procs     = map[windows.HWND]WindowProc{}
	// creating is bound to the first hwnd seen during CreateWindowEx, since
	// WM_CREATE and friends arrive before CreateWindowExW returns.
	creating WindowProc

	wndProcCallback = windows.NewCallback(dispatchWindowProc)
	classes         = map[string]bool{}
)

func dispatchWindowProc(hwnd windows.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	windowsMu.Lock()
	proc, ok := procs[hwnd]
	if !ok && creating != nil {
		proc = creating
		procs[hwnd] = proc
		creating = nil
	}
	windowsMu.Unlock()

	if proc != nil {
		if r, handled := proc(hwnd, msg, wParam, lParam); handled {
			return r
		}
	}
	if msg == WM_DESTROY {
		windowsMu.Lock()
		delete(procs, hwnd)
		windowsMu.Unlock()
	}
	r, _, _ := procDefWindowProcW.Call(uintptr(hwnd), uintptr(msg), wParam, lParam)
	return r
}

// RegisterClass registers a window class routed through WindowProc handlers.
// Registering the same name twice is a no-op.
func RegisterClass(name string, background windows.Handle) error {
	windowsMu.Lock()
	defer windowsMu.Unlock()
	if classes[name] {
		return nil
	}

	className, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return err
	}
	wc := WndClassEx{
		WndProc:    wndProcCallback,
		Instance:   ModuleHandle(),
		Background: background,
		ClassName:  className,
	}
	wc.Size = uint32(unsafe.Sizeof(wc))
	if r, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); r == 0 {
		return lastErr("RegisterClassExW", err)
	}
	classes[name] = true
	return nil
}

// CreateWindow creates a window of a class registered with RegisterClass.
// It must be called on the thread that will pump the window's messages.
func CreateWindow(class, title string, exStyle, style uint32, x, y, w, h int32, parent uintptr, proc WindowProc) (windows.HWND, error) {
	className, err := windows.UTF16PtrFromString(class)
	if err != nil {
		return 0, err
	}
	windowName, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return 0, err
	}

	windowsMu.Lock()
	creating = proc
	windowsMu.Unlock()

	hwnd, _, callErr := procCreateWindowExW.Call(
		uintptr(exStyle),
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(windowName)),
		uintptr(style),
		uintptr(x), uintptr(y), uintptr(w), uintptr(h),
		parent, 0, uintptr(ModuleHandle()), 0,
	)

	windowsMu.Lock()
	creating = nil
	if hwnd != 0 {
		procs[windows.HWND(hwnd)] = proc
	}
	windowsMu.Unlock()

	if hwnd == 0 {
		return 0, lastErr("CreateWindowExW", callErr)
	}
	return windows.HWND(hwnd), nil
}

// DestroyWindow destroys hwnd and forgets its handler.
func DestroyWindow(hwnd windows.HWND) {
	if hwnd == 0 {
		return
	}
	procDestroyWindow.Call(uintptr(hwnd))
	windowsMu.Lock()
	delete(procs, hwnd)
	windowsMu.Unlock()
}

const (
	dispatchClass = "SpotCursorDispatch"
	wmRunCalls    = WM_APP + 1
)

// Thread is a locked OS thread running a Win32 message loop. Functions
// handed to Call or Post run on it in order. Hooks and windows created from
// those functions belong to the thread.
type Thread struct {
	mu     sync.Mutex
	queue  []func()
	closed bool

	hwnd   windows.HWND
	done   chan struct{}
	logger *slog.Logger
	crash  *logging.CrashHandler
}

// NewThread starts the thread and waits for its message window to exist.
func NewThread(logger *slog.Logger, crash *logging.CrashHandler) (*Thread, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if crash == nil {
		crash = logging.NewCrashHandler(&logging.CrashHandlerConfig{Logger: logger})
	}
	t := &Thread{
		done:   make(chan struct{}),
		logger: logger,
		crash:  crash,
	}

	ready := make(chan error, 1)
	go t.loop(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Thread) loop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(t.done)

	if err := RegisterClass(dispatchClass, 0); err != nil {
		ready <- fmt.Errorf("register dispatch class: %w", err)
		return
	}
	// A message-only window keeps receiving posted calls while a modal
	// loop such as TrackPopupMenu is running, unlike thread messages.
	hwnd, err := CreateWindow(dispatchClass, "", 0, 0, 0, 0, 0, 0, HWND_MESSAGE, t.windowProc)
	if err != nil {
		ready <- fmt.Errorf("create dispatch window: %w", err)
		return
	}
	t.hwnd = hwnd
	ready <- nil

	var msg Msg
	for {
		r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		if int32(r) <= 0 {
			break
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}

	t.mu.Lock()
	t.closed = true
	t.queue = nil
	t.mu.Unlock()
	DestroyWindow(hwnd)
}

func (t *Thread) windowProc(hwnd windows.HWND, msg uint32, wParam, lParam uintptr) (uintptr, bool) {
	if msg != wmRunCalls {
		return 0, false
	}
	t.mu.Lock()
	calls := t.queue
	t.queue = nil
	t.mu.Unlock()

	for _, fn := range calls {
		t.crash.RecoverWithContext(map[string]any{"thread": "ui"}, fn)
	}
	return 0, true
}

// Post schedules fn on the thread without waiting.
func (t *Thread) Post(fn func()) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.queue = append(t.queue, fn)
	wake := len(t.queue) == 1
	t.mu.Unlock()

	if wake {
		return PostMessage(t.hwnd, wmRunCalls, 0, 0)
	}
	return nil
}

// Call runs fn on the thread and waits at most timeout for its result.
// A call that times out still runs later.
func (t *Thread) Call(fn func() error, timeout time.Duration) error {
	result := make(chan error, 1)
	err := t.Post(func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("win32: panic on ui thread: %v", r)
				panic(r)
			}
		}()
		result <- fn()
	})
	if err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-result:
		return err
	case <-timer.C:
		t.logger.Warn("ui thread call timed out", "timeout", timeout)
		return ErrTimeout
	case <-t.done:
		return ErrClosed
	}
}

// Close stops the message loop and waits for the thread to exit.
func (t *Thread) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		<-t.done
		return nil
	}
	t.queue = append(t.queue, func() { procPostQuitMessage.Call(0) })
	wake := len(t.queue) == 1
	t.mu.Unlock()

	if wake {
		if err := PostMessage(t.hwnd, wmRunCalls, 0, 0); err != nil {
			return err
		}
	}
	<-t.done
	return nil
}

// Done is closed when the message loop has exited.
func (t *Thread) Done() <-chan struct{} {
	return t.done
}
