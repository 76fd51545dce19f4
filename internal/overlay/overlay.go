// Package overlay draws the spotlight: a darkened layer over the whole
// virtual desktop with a clear circle around the cursor.
package overlay

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrUnsupported is returned by Show on platforms without an overlay.
	ErrUnsupported = errors.New("overlay: not supported on this platform")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("overlay: renderer closed")
)

// Point is a position in virtual-desktop coordinates.
type Point struct {
	X, Y int
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Rect is a rectangle with exclusive Right and Bottom edges.
type Rect struct {
	Left, Top, Right, Bottom int
}

// Width returns the horizontal extent.
func (r Rect) Width() int { return r.Right - r.Left }

// Height returns the vertical extent.
func (r Rect) Height() int { return r.Bottom - r.Top }

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Style is what the user can tune about the overlay.
type Style struct {
	Opacity uint8
	Radius  int
}

// Hole returns the bounding box of the clear circle centred on p, relative
// to the top-left corner of screen.
func Hole(screen Rect, p Point, radius int) Rect {
	cx, cy := p.X-screen.Left, p.Y-screen.Top
	return Rect{
		Left:   cx - radius,
		Top:    cy - radius,
		Right:  cx + radius,
		Bottom: cy + radius,
	}
}

// Renderer is the spotlight surface.
//
// Show while visible only repositions. Hide while hidden does nothing.
// Nothing a Renderer creates may take focus or intercept input.
type Renderer interface {
	Show(p Point) error
	Reposition(p Point) error
	Hide() error
	Configure(s Style) error
	Close() error
}

// Dispatcher runs fn on the thread that owns the overlay window.
type Dispatcher interface {
	Call(fn func() error, timeout time.Duration) error
}

// DefaultCallTimeout bounds each renderer call marshalled to the UI thread.
const DefaultCallTimeout = 2 * time.Second

// Options configures New.
type Options struct {
	// Dispatcher owns the window. When nil, the renderer starts its own
	// UI thread where one is needed.
	Dispatcher Dispatcher

	Style       Style
	CallTimeout time.Duration
	Logger      *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// New creates the renderer for the current platform. The window itself is
// created lazily on the first Show.
func New(opts Options) (Renderer, error) {
	return newPlatformRenderer(opts.withDefaults())
}

// unsupported is the Renderer for platforms without an overlay.
type unsupported struct{}

func (unsupported) Show(Point) error       { return ErrUnsupported }
func (unsupported) Reposition(Point) error { return nil }
func (unsupported) Hide() error            { return nil }
func (unsupported) Configure(Style) error  { return nil }
func (unsupported) Close() error           { return nil }
