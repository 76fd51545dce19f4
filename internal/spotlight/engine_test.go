package spotlight

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotcursor/internal/config"
	"spotcursor/internal/input"
	"spotcursor/internal/metrics"
	"spotcursor/internal/overlay"
)

type fakeRenderer struct {
	mu          sync.Mutex
	visible     bool
	center      overlay.Point
	style       overlay.Style
	shows       int
	hides       int
	repositions int
	showErr     error
}

func (r *fakeRenderer) Show(p overlay.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.showErr != nil {
		return r.showErr
	}
	r.shows++
	r.visible = true
	r.center = p
	return nil
}

func (r *fakeRenderer) Reposition(p overlay.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.visible {
		r.repositions++
		r.center = p
	}
	return nil
}

func (r *fakeRenderer) Hide() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.visible {
		r.hides++
		r.visible = false
	}
	return nil
}

func (r *fakeRenderer) Configure(s overlay.Style) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.style = s
	return nil
}

func (r *fakeRenderer) Close() error { return nil }

type rendererState struct {
	visible     bool
	center      overlay.Point
	style       overlay.Style
	shows       int
	hides       int
	repositions int
}

func (r *fakeRenderer) snapshot() rendererState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rendererState{
		visible:     r.visible,
		center:      r.center,
		style:       r.style,
		shows:       r.shows,
		hides:       r.hides,
		repositions: r.repositions,
	}
}

var cursorAt = overlay.Point{X: 100, Y: 200}

type harness struct {
	t        *testing.T
	clk      *clockwork.FakeClock
	sim      *input.Simulated
	renderer *fakeRenderer
	metrics  *metrics.SpotlightMetrics
	eng      *Engine

	cancel context.CancelFunc
	errc   chan error
	once   sync.Once
}

func newHarness(t *testing.T, configure ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		clk:      clockwork.NewFakeClockAt(t0),
		renderer: &fakeRenderer{},
		metrics:  metrics.NewSpotlightMetrics(metrics.NewRegistry("spotcursor", "")),
		errc:     make(chan error, 1),
	}
	opts := Options{
		Settings: config.Default(),
		Renderer: h.renderer,
		Clock:    h.clk,
		Cursor:   func() (overlay.Point, error) { return cursorAt, nil },
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:  h.metrics,
	}
	for _, fn := range configure {
		fn(&opts)
	}

	eng, err := NewEngine(opts)
	require.NoError(t, err)
	h.eng = eng

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	// Keys go through the same edge tracking as the real hooks.
	h.sim = input.NewSimulated(eng.Gate())
	require.NoError(t, h.sim.Start(ctx, eng.Queue()))
	go func() { h.errc <- eng.Run(ctx) }()
	t.Cleanup(h.stop)

	h.sync()
	return h
}

// sync returns once everything queued so far has been handled.
func (h *harness) sync() {
	h.t.Helper()
	require.NoError(h.t, h.eng.do(request{kind: reqSync}))
}

func (h *harness) stop() {
	h.once.Do(func() {
		h.cancel()
		select {
		case err := <-h.errc:
			assert.NoError(h.t, err)
		case <-time.After(5 * time.Second):
			h.t.Error("engine did not stop")
		}
	})
}

func (h *harness) send(events ...input.Event) {
	h.t.Helper()
	for _, ev := range events {
		h.eng.Queue().Offer(ev)
	}
	h.sync()
}

// tapCtrlOn presses and releases Ctrl on side now.
func (h *harness) tapCtrlOn(side input.Side) {
	h.t.Helper()
	h.sim.TapCtrl(side, h.clk.Now())
	h.sync()
}

func (h *harness) tapCtrl() {
	h.t.Helper()
	h.tapCtrlOn(input.SideLeft)
}

func (h *harness) advance(d time.Duration) {
	h.t.Helper()
	h.clk.Advance(d)
	h.sync()
}

// armed counts running timers. Only valid after sync.
func (h *harness) armed() int {
	n := 0
	for _, t := range h.eng.timers {
		if t != nil {
			n++
		}
	}
	return n
}

func (h *harness) activate() {
	h.t.Helper()
	h.tapCtrlOn(input.SideLeft)
	h.advance(100 * time.Millisecond)
	h.tapCtrlOn(input.SideRight)
	require.Equal(h.t, Visible, h.eng.State())
}

func TestEngineDoubleTapShows(t *testing.T) {
	h := newHarness(t)

	h.tapCtrl()
	assert.Equal(t, Armed, h.eng.State())
	assert.False(t, h.eng.Gate().IsOpen())

	h.advance(300 * time.Millisecond)
	h.tapCtrlOn(input.SideRight)

	// The key-down of the completing press must not dismiss.
	assert.Equal(t, Visible, h.eng.State())
	assert.True(t, h.eng.Gate().IsOpen())
	r := h.renderer.snapshot()
	assert.Equal(t, 1, r.shows)
	assert.Equal(t, cursorAt, r.center)
	assert.Equal(t, uint64(1), h.metrics.ActivationsTotal.Value())
	// Only the auto-hide timer is left.
	assert.Equal(t, 1, h.armed())
}

func TestEngineCtrlHeldWhileVisible(t *testing.T) {
	h := newHarness(t)

	h.tapCtrl()
	h.advance(200 * time.Millisecond)
	// Second press is held and auto-repeats.
	h.sim.PressCtrl(input.SideLeft, h.clk.Now())
	h.sync()
	for i := 0; i < 10; i++ {
		h.advance(40 * time.Millisecond)
		h.sim.PressCtrl(input.SideLeft, h.clk.Now())
		h.sync()
	}
	assert.Equal(t, Visible, h.eng.State())
	assert.Equal(t, 0, h.renderer.snapshot().hides)

	h.sim.ReleaseCtrl(input.SideLeft)
	h.sim.PressKey(h.clk.Now())
	h.sync()
	assert.Equal(t, Idle, h.eng.State())
	assert.Equal(t, uint64(1), h.metrics.Dismissals(metrics.ReasonKey))
}

func TestEngineSlowTapStaysArmed(t *testing.T) {
	h := newHarness(t)

	h.tapCtrl()
	h.advance(500 * time.Millisecond)
	assert.Equal(t, Idle, h.eng.State())

	h.tapCtrl()
	assert.Equal(t, Armed, h.eng.State())
	assert.Equal(t, 0, h.renderer.snapshot().shows)
}

func TestEngineAutoHide(t *testing.T) {
	h := newHarness(t)
	h.activate()

	h.advance(1999 * time.Millisecond)
	assert.Equal(t, Visible, h.eng.State())

	h.advance(time.Millisecond)
	assert.Equal(t, Idle, h.eng.State())
	assert.False(t, h.eng.Gate().IsOpen())
	assert.Equal(t, 1, h.renderer.snapshot().hides)
	assert.Equal(t, uint64(1), h.metrics.Dismissals(metrics.ReasonTimeout))
	assert.Equal(t, uint64(1), h.metrics.VisibleSeconds.Count())
	assert.InDelta(t, 2.0, h.metrics.VisibleSeconds.Sum(), 1e-9)
}

func TestEngineMoveExtendsAutoHide(t *testing.T) {
	h := newHarness(t)
	h.activate()

	h.advance(1500 * time.Millisecond)
	h.send(input.NewMouseMoved(640, 360, h.clk.Now()))

	r := h.renderer.snapshot()
	assert.Equal(t, overlay.Point{X: 640, Y: 360}, r.center)
	assert.Equal(t, 1, r.repositions)

	// The original deadline passes without effect.
	h.advance(1999 * time.Millisecond)
	assert.Equal(t, Visible, h.eng.State())

	h.advance(time.Millisecond)
	assert.Equal(t, Idle, h.eng.State())
}

func TestEngineDismissals(t *testing.T) {
	tests := []struct {
		name   string
		press  func(*input.Simulated, time.Time)
		reason string
	}{
		{"key", (*input.Simulated).PressKey, metrics.ReasonKey},
		{"click", (*input.Simulated).Click, metrics.ReasonClick},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.activate()

			h.advance(50 * time.Millisecond)
			tt.press(h.sim, h.clk.Now())
			h.sync()

			assert.Equal(t, Idle, h.eng.State())
			assert.False(t, h.renderer.snapshot().visible)
			assert.Equal(t, uint64(1), h.metrics.Dismissals(tt.reason))
			assert.Equal(t, 0, h.armed())
		})
	}
}

func TestEngineDoubleTapDismisses(t *testing.T) {
	h := newHarness(t)
	h.activate()

	h.advance(time.Second)
	h.tapCtrl()
	assert.Equal(t, CoolingDown, h.eng.State())
	assert.False(t, h.renderer.snapshot().visible)

	h.advance(150 * time.Millisecond)
	h.tapCtrl()
	assert.Equal(t, Idle, h.eng.State())
	assert.Equal(t, 0, h.armed())

	h.advance(5 * time.Second)
	r := h.renderer.snapshot()
	assert.Equal(t, 1, r.shows)
	assert.Equal(t, 1, r.hides)
	assert.Equal(t, uint64(1), h.metrics.Dismissals(metrics.ReasonDoubleTap))
}

func TestEngineCoolingDownExpires(t *testing.T) {
	h := newHarness(t)
	h.activate()

	h.tapCtrl()
	h.advance(400 * time.Millisecond)
	assert.Equal(t, Idle, h.eng.State())

	h.tapCtrl()
	assert.Equal(t, Armed, h.eng.State())
}

func TestEngineShowFailure(t *testing.T) {
	h := newHarness(t)
	h.renderer.mu.Lock()
	h.renderer.showErr = errors.New("no desktop")
	h.renderer.mu.Unlock()

	h.tapCtrl()
	h.advance(100 * time.Millisecond)
	h.tapCtrl()

	assert.Equal(t, Idle, h.eng.State())
	assert.False(t, h.eng.Gate().IsOpen())
	assert.Equal(t, uint64(1), h.metrics.ShowFailuresTotal.Value())
	assert.Equal(t, uint64(0), h.metrics.ActivationsTotal.Value())
	assert.Equal(t, 0, h.armed())
}

func TestEngineSettingsApplyAtNextArm(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, overlay.Style{Opacity: 180, Radius: 100}, h.renderer.snapshot().style)

	h.tapCtrl()
	s := config.Default()
	s.DoubleTapWindowMs = 100
	s.SpotlightRadiusPx = 250
	s.AutoHideDelayMs = 500
	require.NoError(t, h.eng.UpdateSettings(s))
	assert.Equal(t, 250, h.renderer.snapshot().style.Radius)
	assert.Equal(t, uint64(1), h.metrics.SettingsReloads.Value())

	// The window armed before the update is still 400ms long.
	h.advance(300 * time.Millisecond)
	h.tapCtrl()
	assert.Equal(t, Visible, h.eng.State())

	// The auto-hide armed after the update uses the new delay.
	h.advance(500 * time.Millisecond)
	assert.Equal(t, Idle, h.eng.State())

	// So does the next window.
	h.tapCtrl()
	h.advance(200 * time.Millisecond)
	h.tapCtrl()
	assert.Equal(t, Armed, h.eng.State())
}

func TestEngineSettingsClamped(t *testing.T) {
	h := newHarness(t)
	s := config.Default()
	s.SpotlightRadiusPx = 5000
	s.BackdropOpacity = -3
	require.NoError(t, h.eng.UpdateSettings(s))
	assert.Equal(t, overlay.Style{Opacity: 0, Radius: 500}, h.renderer.snapshot().style)
}

func TestEngineIgnoresStaleExpiry(t *testing.T) {
	h := newHarness(t)
	h.activate()
	h.advance(1500 * time.Millisecond)

	// The move re-arms auto-hide. Whether the engine sees it before or
	// after the old timer fires, the old expiry must not hide.
	h.eng.Queue().Offer(input.NewMouseMoved(10, 10, h.clk.Now()))
	h.advance(500 * time.Millisecond)
	assert.Equal(t, Visible, h.eng.State())
	assert.Equal(t, 0, h.renderer.snapshot().hides)
	assert.Equal(t, 1, h.armed())

	h.advance(2 * time.Second)
	assert.Equal(t, Idle, h.eng.State())
	assert.Equal(t, uint64(1), h.metrics.Dismissals(metrics.ReasonTimeout))
}

func TestEngineCountsDroppedInput(t *testing.T) {
	q := input.NewQueue(2)
	for i := 0; i < 5; i++ {
		q.Offer(input.NewMouseButtonDown(t0))
	}

	h := newHarness(t, func(o *Options) { o.Queue = q })
	assert.Equal(t, uint64(3), h.metrics.InputDroppedTotal.Value())
	assert.Equal(t, Idle, h.eng.State())
}

func TestEngineCountsCoalescedMoves(t *testing.T) {
	q := input.NewQueue(2)
	for i := 0; i < 4; i++ {
		q.Offer(input.NewMouseMoved(i, i, t0))
	}

	h := newHarness(t, func(o *Options) { o.Queue = q })
	assert.Equal(t, uint64(2), h.metrics.InputCoalescedTotal.Value())
	assert.Equal(t, uint64(0), h.metrics.InputDroppedTotal.Value())
}

func TestEngineHideNowAndShutdown(t *testing.T) {
	h := newHarness(t)
	h.activate()

	require.NoError(t, h.eng.HideNow())
	assert.Equal(t, Idle, h.eng.State())
	assert.False(t, h.renderer.snapshot().visible)
	assert.Equal(t, uint64(1), h.metrics.Dismissals(metrics.ReasonQuit))

	h.activate()
	h.stop()
	assert.False(t, h.renderer.snapshot().visible)
	assert.False(t, h.eng.Gate().IsOpen())
	assert.Equal(t, uint64(2), h.metrics.Dismissals(metrics.ReasonQuit))
	assert.Equal(t, 0, h.armed())

	assert.ErrorIs(t, h.eng.HideNow(), ErrStopped)
	assert.ErrorIs(t, h.eng.UpdateSettings(config.Default()), ErrStopped)
}

func TestEngineRunOnce(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.eng.Run(context.Background()), ErrAlreadyRunning)
}

func TestNewEngineRequiresRenderer(t *testing.T) {
	_, err := NewEngine(Options{})
	assert.Error(t, err)
}

func TestEngineCursorFallback(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Cursor = func() (overlay.Point, error) { return overlay.Point{}, overlay.ErrUnsupported }
	})
	h.activate()
	h.send(input.NewMouseMoved(30, 40, h.clk.Now()))
	require.NoError(t, h.eng.HideNow())

	h.activate()
	assert.Equal(t, overlay.Point{X: 30, Y: 40}, h.renderer.snapshot().center)
}
