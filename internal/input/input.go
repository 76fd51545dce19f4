// Package input observes global keyboard and mouse activity and turns it
// into the small event vocabulary the spotlight engine understands.
//
// It does NOT record which keys are typed. Only Ctrl is distinguished;
// every other key is reported as an anonymous key-down.
//
// Platform support:
//   - Windows: low-level keyboard and mouse hooks (WH_KEYBOARD_LL, WH_MOUSE_LL)
//   - Linux: /dev/input/event* (requires the input group or root)
//   - Others: not available
package input

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spotcursor/internal/logging"
)

// Kind identifies an input event.
type Kind int

const (
	// ModifierEdge is an up-to-down transition of a Ctrl key.
	ModifierEdge Kind = iota + 1
	// AnyKeyDown is any key press, Ctrl and auto-repeat included. Side
	// is set when the key is a Ctrl key.
	AnyKeyDown
	// MouseButtonDown is a press of any mouse button.
	MouseButtonDown
	// MouseMoved carries the new cursor position.
	MouseMoved
)

func (k Kind) String() string {
	switch k {
	case ModifierEdge:
		return "modifier_edge"
	case AnyKeyDown:
		return "any_key_down"
	case MouseButtonDown:
		return "mouse_button_down"
	case MouseMoved:
		return "mouse_moved"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Side tells left from right Ctrl.
type Side int

const (
	SideNone Side = iota
	SideLeft
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "none"
	}
}

// Event is one timestamped input observation.
type Event struct {
	Kind Kind
	Side Side
	X, Y int
	Time time.Time
}

// NewModifierEdge returns a ModifierEdge event.
func NewModifierEdge(side Side, t time.Time) Event {
	return Event{Kind: ModifierEdge, Side: side, Time: t}
}

// NewAnyKeyDown returns an AnyKeyDown event; side is SideNone for keys
// other than Ctrl.
func NewAnyKeyDown(side Side, t time.Time) Event {
	return Event{Kind: AnyKeyDown, Side: side, Time: t}
}

// NewMouseButtonDown returns a MouseButtonDown event.
func NewMouseButtonDown(t time.Time) Event {
	return Event{Kind: MouseButtonDown, Time: t}
}

// NewMouseMoved returns a MouseMoved event.
func NewMouseMoved(x, y int, t time.Time) Event {
	return Event{Kind: MouseMoved, X: x, Y: y, Time: t}
}

// Sink receives events from a Monitor. Offer must not block.
type Sink interface {
	Offer(Event) bool
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event) bool

// Offer calls f.
func (f SinkFunc) Offer(e Event) bool { return f(e) }

// Monitor delivers global input events to a Sink.
type Monitor interface {
	// Start subscribes to OS input. Failing to subscribe is fatal for the
	// caller; there is no degraded mode.
	Start(ctx context.Context, sink Sink) error

	// Stop unsubscribes. It is safe to call more than once.
	Stop() error

	// Available reports whether Start can be expected to succeed.
	Available() (bool, string)
}

var (
	// ErrNotAvailable is returned when global input cannot be observed.
	ErrNotAvailable = errors.New("input: global input monitoring not available")

	// ErrAlreadyRunning is returned when Start is called twice.
	ErrAlreadyRunning = errors.New("input: monitor already running")
)

// Options configures a platform Monitor.
type Options struct {
	// Gate limits mouse moves to when it is open; nil forwards all of them.
	Gate *Gate

	Logger *slog.Logger

	// Crash contains panics raised inside OS callbacks.
	Crash *logging.CrashHandler
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Crash == nil {
		o.Crash = logging.NewCrashHandler(&logging.CrashHandlerConfig{Logger: o.Logger})
	}
	return o
}

// New creates the Monitor for the current platform.
func New(opts Options) Monitor {
	return newPlatformMonitor(opts.withDefaults())
}
