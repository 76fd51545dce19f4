package spotlight

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"spotcursor/internal/config"
	"spotcursor/internal/input"
	"spotcursor/internal/logging"
	"spotcursor/internal/metrics"
	"spotcursor/internal/overlay"
)

var (
	// ErrAlreadyRunning is returned by a second concurrent Run.
	ErrAlreadyRunning = errors.New("spotlight: engine already running")
	// ErrStopped is returned by requests made after Run has returned.
	ErrStopped = errors.New("spotlight: engine stopped")
)

// controlBuffer holds requests until Run picks them up.
const controlBuffer = 32

// Options configures an Engine.
type Options struct {
	// Settings in force at start. Clamped to range.
	Settings config.Settings

	// Renderer is required.
	Renderer overlay.Renderer

	// Queue carries input events in. A queue of input.DefaultQueueSize
	// is created when nil.
	Queue *input.Queue

	// Gate is opened while the overlay is visible. Created when nil.
	Gate *input.Gate

	// Cursor reports the pointer position when the overlay is shown.
	// Defaults to overlay.CursorPos.
	Cursor func() (overlay.Point, error)

	// Clock supplies timers and the visible-duration clock. Defaults to
	// the wall clock.
	Clock   clockwork.Clock
	Logger  *slog.Logger
	Crash   *logging.CrashHandler
	Metrics *metrics.SpotlightMetrics
}

type requestKind int

const (
	reqSettings requestKind = iota
	reqHide
	reqSync
)

type request struct {
	kind     requestKind
	settings config.Settings
	done     chan struct{}
}

// Engine runs the activation state machine against real input, timers and
// the overlay. Only the goroutine inside Run touches the machine, the
// timers and the renderer.
type Engine struct {
	renderer overlay.Renderer
	queue    *input.Queue
	gate     *input.Gate
	cursor   func() (overlay.Point, error)
	clock    clockwork.Clock
	logger   *slog.Logger
	crash    *logging.CrashHandler
	metrics  *metrics.SpotlightMetrics

	control chan request
	done    chan struct{}
	running atomic.Bool
	state   atomic.Int32

	// Owned by the Run goroutine.
	machine      Machine
	settings     config.Settings
	timers       [numSlots]clockwork.Timer
	lastPoint    overlay.Point
	visibleSince time.Time
	dropped      uint64
	coalesced    uint64
	batch        []input.Event
}

// NewEngine validates opts and fills in defaults.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Renderer == nil {
		return nil, errors.New("spotlight: renderer is required")
	}
	if opts.Queue == nil {
		opts.Queue = input.NewQueue(input.DefaultQueueSize)
	}
	if opts.Gate == nil {
		opts.Gate = &input.Gate{}
	}
	if opts.Cursor == nil {
		opts.Cursor = overlay.CursorPos
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Crash == nil {
		opts.Crash = logging.NewCrashHandler(&logging.CrashHandlerConfig{Logger: opts.Logger})
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewSpotlightMetrics(nil)
	}

	e := &Engine{
		renderer: opts.Renderer,
		queue:    opts.Queue,
		gate:     opts.Gate,
		cursor:   opts.Cursor,
		clock:    opts.Clock,
		logger:   opts.Logger.With("component", "spotlight"),
		crash:    opts.Crash,
		metrics:  opts.Metrics,
		control:  make(chan request, controlBuffer),
		done:     make(chan struct{}),
		settings: opts.Settings.Clamp(),
	}
	e.gate.Set(false)
	return e, nil
}

// Queue returns the queue the input monitor should feed.
func (e *Engine) Queue() *input.Queue { return e.queue }

// Gate returns the gate that lets mouse moves through while visible.
func (e *Engine) Gate() *input.Gate { return e.gate }

// State returns a snapshot of the activation state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// UpdateSettings replaces the settings. Running timers keep their length;
// the next arm uses the new values. The overlay style changes at once.
func (e *Engine) UpdateSettings(s config.Settings) error {
	return e.do(request{kind: reqSettings, settings: s.Clamp()})
}

// HideNow dismisses the overlay and returns to Idle, waiting until done.
func (e *Engine) HideNow() error {
	return e.do(request{kind: reqHide})
}

// do hands req to Run and waits for it to be handled.
func (e *Engine) do(req request) error {
	req.done = make(chan struct{})
	select {
	case e.control <- req:
	case <-e.done:
		return ErrStopped
	}
	select {
	case <-req.done:
		return nil
	case <-e.done:
		return ErrStopped
	}
}

// Run dispatches input, timer expiries and requests until ctx is done.
// The overlay is hidden before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(e.done)
	defer e.shutdown()

	e.logger.Info("spotlight engine started",
		"double_tap_window_ms", e.settings.DoubleTapWindowMs,
		"auto_hide_delay_ms", e.settings.AutoHideDelayMs)
	if err := e.renderer.Configure(styleOf(e.settings)); err != nil {
		e.logger.Warn("apply overlay style", "error", err)
	}

	for {
		window, autoHide := e.expiry(SlotWindow), e.expiry(SlotAutoHide)
		select {
		case <-ctx.Done():
			return nil
		case <-e.queue.Ready():
			e.drainInput()
		case <-window:
			e.expire(SlotWindow, window)
		case <-autoHide:
			e.expire(SlotAutoHide, autoHide)
		case req := <-e.control:
			// Input and expiries already delivered come first, so a
			// request observes everything that happened before it.
			e.drainInput()
			e.pollExpiries()
			e.handleRequest(req)
		}
	}
}

// expiry returns the channel of slot's timer, or nil when it is not armed.
func (e *Engine) expiry(slot Slot) <-chan time.Time {
	if t := e.timers[slot]; t != nil {
		return t.Chan()
	}
	return nil
}

// expire handles a tick received from c. Input queued before the tick is
// applied first, so an expiry never overtakes an earlier key press; if that
// input re-armed or cancelled the slot, the tick is stale.
func (e *Engine) expire(slot Slot, c <-chan time.Time) {
	e.drainInput()
	if e.expiry(slot) != c {
		e.logger.Debug("ignoring stale timer", "slot", slot)
		return
	}
	e.timers[slot] = nil
	e.crash.RecoverWithContext(map[string]any{"timer": slot.String()}, func() {
		e.apply(e.machine.Expire(slot))
	})
}

func (e *Engine) pollExpiries() {
	for slot := Slot(0); slot < numSlots; slot++ {
		c := e.expiry(slot)
		if c == nil {
			continue
		}
		select {
		case <-c:
			e.expire(slot, c)
		default:
		}
	}
}

func (e *Engine) shutdown() {
	e.apply(e.machine.Reset(ReasonQuit))
	for slot := range e.timers {
		e.cancel(Slot(slot))
	}
	e.gate.Set(false)
	e.logger.Info("spotlight engine stopped")
}

func (e *Engine) drainInput() {
	e.batch = e.queue.Drain(e.batch[:0])
	for _, ev := range e.batch {
		e.apply(e.machine.Handle(ev, e.window()))
	}

	if d := e.queue.Dropped(); d > e.dropped {
		e.metrics.InputDroppedTotal.Add(d - e.dropped)
		e.logger.Warn("input events dropped", "count", d-e.dropped, "total", d)
		e.dropped = d
	}
	if c := e.queue.Coalesced(); c > e.coalesced {
		e.metrics.InputCoalescedTotal.Add(c - e.coalesced)
		e.coalesced = c
	}
}

func (e *Engine) handleRequest(req request) {
	switch req.kind {
	case reqSettings:
		e.settings = req.settings
		e.metrics.SettingsReloads.Inc()
		if err := e.renderer.Configure(styleOf(e.settings)); err != nil {
			e.logger.Warn("apply overlay style", "error", err)
		}
		e.logger.Info("settings updated",
			"double_tap_window_ms", e.settings.DoubleTapWindowMs,
			"backdrop_opacity", e.settings.BackdropOpacity,
			"spotlight_radius_px", e.settings.SpotlightRadiusPx,
			"auto_hide_delay_ms", e.settings.AutoHideDelayMs)

	case reqHide:
		e.apply(e.machine.Reset(ReasonQuit))

	case reqSync:
	}

	if req.done != nil {
		close(req.done)
	}
}

// apply carries out eff and publishes the resulting state.
func (e *Engine) apply(eff Effect) {
	defer e.publish()

	if eff.CancelWindow {
		e.cancel(SlotWindow)
	}
	if eff.CancelAutoHide {
		e.cancel(SlotAutoHide)
	}
	if eff.Hide {
		e.hide(eff.HideReason)
	}
	if eff.Show && !e.show() {
		e.apply(e.machine.ShowFailed())
		return
	}
	if eff.Reposition {
		e.lastPoint = eff.Point
		if err := e.renderer.Reposition(eff.Point); err != nil {
			e.logger.Debug("reposition overlay", "error", err)
		}
	}
	if eff.ArmWindow {
		e.arm(SlotWindow, e.window())
	}
	if eff.ArmAutoHide {
		e.arm(SlotAutoHide, time.Duration(e.settings.AutoHideDelayMs)*time.Millisecond)
	}
}

func (e *Engine) publish() {
	st := e.machine.State()
	e.state.Store(int32(st))
	e.gate.Set(st == Visible)
}

func (e *Engine) show() bool {
	p, err := e.cursor()
	if err != nil {
		p = e.lastPoint
	}
	if err := e.renderer.Show(p); err != nil {
		e.metrics.ShowFailuresTotal.Inc()
		e.logger.Warn("cannot show spotlight", "error", err)
		return false
	}
	e.lastPoint = p
	e.visibleSince = e.clock.Now()
	e.metrics.RecordShown()
	e.logger.Debug("spotlight shown", "at", p)
	return true
}

func (e *Engine) hide(reason Reason) {
	if err := e.renderer.Hide(); err != nil {
		e.logger.Warn("cannot hide spotlight", "error", err)
	}
	d := e.clock.Now().Sub(e.visibleSince)
	e.metrics.RecordDismissed(string(reason), d)
	e.logger.Debug("spotlight hidden", "reason", reason, "visible_for", d)
}

func (e *Engine) window() time.Duration {
	return time.Duration(e.settings.DoubleTapWindowMs) * time.Millisecond
}

// arm (re)starts slot with a fresh timer. A tick the previous timer has
// already delivered stays in its own channel, which Run no longer reads.
func (e *Engine) arm(slot Slot, d time.Duration) {
	e.cancel(slot)
	e.timers[slot] = e.clock.NewTimer(d)
}

func (e *Engine) cancel(slot Slot) {
	if t := e.timers[slot]; t != nil {
		t.Stop()
		e.timers[slot] = nil
	}
}

func styleOf(s config.Settings) overlay.Style {
	return overlay.Style{Opacity: s.Opacity(), Radius: s.SpotlightRadiusPx}
}
