package spotlight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotcursor/internal/input"
	"spotcursor/internal/overlay"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

const window = 400 * time.Millisecond

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func edge(ms int) input.Event { return input.NewModifierEdge(input.SideLeft, at(ms)) }
func key(ms int) input.Event  { return input.NewAnyKeyDown(input.SideNone, at(ms)) }
func ctrlKey(ms int) input.Event {
	return input.NewAnyKeyDown(input.SideLeft, at(ms))
}
func click(ms int) input.Event {
	return input.NewMouseButtonDown(at(ms))
}
func move(ms, x, y int) input.Event { return input.NewMouseMoved(x, y, at(ms)) }

// keyboard feeds a Machine through an EdgeTracker, so every Ctrl press
// arrives as the edge followed by its key-down.
type keyboard struct {
	m       *Machine
	tracker input.EdgeTracker
	effects []Effect
}

func (k *keyboard) Offer(ev input.Event) bool {
	if eff := k.m.Handle(ev, window); !eff.None() {
		k.effects = append(k.effects, eff)
	}
	return true
}

func (k *keyboard) press(side input.Side, ms int) {
	k.tracker.KeyDown(side, at(ms), k)
}

func (k *keyboard) tap(side input.Side, ms int) {
	k.press(side, ms)
	k.tracker.KeyUp(side)
}

// machineIn drives a fresh machine into want with Ctrl taps at 0 and
// 100ms, and at 1000ms for CoolingDown.
func machineIn(t *testing.T, want State) *Machine {
	t.Helper()
	kb := &keyboard{m: &Machine{}}
	switch want {
	case Idle:
	case Armed:
		kb.tap(input.SideLeft, 0)
	case Visible:
		kb.tap(input.SideLeft, 0)
		kb.tap(input.SideLeft, 100)
	case CoolingDown:
		kb.tap(input.SideLeft, 0)
		kb.tap(input.SideLeft, 100)
		kb.tap(input.SideLeft, 1000)
	}
	if kb.m.State() != want {
		t.Fatalf("setup: state = %v, want %v", kb.m.State(), want)
	}
	return kb.m
}

func TestMachineTransitions(t *testing.T) {
	tests := []struct {
		name   string
		from   State
		event  input.Event
		want   State
		effect Effect
	}{
		{"idle edge arms", Idle, edge(5000), Armed, Effect{ArmWindow: true}},
		{"idle key ignored", Idle, key(5000), Idle, Effect{}},
		{"idle click ignored", Idle, click(5000), Idle, Effect{}},
		{"idle move ignored", Idle, move(5000, 1, 1), Idle, Effect{}},

		{"armed second edge in window shows", Armed, edge(300), Visible,
			Effect{CancelWindow: true, Show: true, ArmAutoHide: true}},
		{"armed second edge on the boundary shows", Armed, edge(400), Visible,
			Effect{CancelWindow: true, Show: true, ArmAutoHide: true}},
		{"armed late edge re-arms", Armed, edge(401), Armed, Effect{ArmWindow: true}},
		{"armed right ctrl counts", Armed, input.NewModifierEdge(input.SideRight, at(200)), Visible,
			Effect{CancelWindow: true, Show: true, ArmAutoHide: true}},
		{"armed key ignored", Armed, key(100), Armed, Effect{}},
		{"armed ctrl key-down ignored", Armed, ctrlKey(100), Armed, Effect{}},
		{"armed click ignored", Armed, click(100), Armed, Effect{}},

		{"visible edge starts dismissal", Visible, edge(1000), CoolingDown,
			Effect{CancelAutoHide: true, Hide: true, HideReason: ReasonDoubleTap, ArmWindow: true}},
		{"visible key hides", Visible, key(1000), Idle,
			Effect{CancelAutoHide: true, Hide: true, HideReason: ReasonKey}},
		{"visible ctrl key-down ignored", Visible, ctrlKey(1000), Visible, Effect{}},
		{"visible click hides", Visible, click(1000), Idle,
			Effect{CancelAutoHide: true, Hide: true, HideReason: ReasonClick}},
		{"visible move repositions", Visible, move(1000, 640, 480), Visible,
			Effect{Reposition: true, Point: overlay.Point{X: 640, Y: 480}, ArmAutoHide: true}},

		{"cooling second edge completes", CoolingDown, edge(1200), Idle, Effect{CancelWindow: true}},
		{"cooling late edge re-arms", CoolingDown, edge(1401), Armed, Effect{ArmWindow: true}},
		{"cooling key ignored", CoolingDown, key(1100), CoolingDown, Effect{}},
		{"cooling click ignored", CoolingDown, click(1100), CoolingDown, Effect{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := machineIn(t, tt.from)
			got := m.Handle(tt.event, window)
			assert.Equal(t, tt.effect, got)
			assert.Equal(t, tt.want, m.State())
		})
	}
}

func TestMachineExpire(t *testing.T) {
	tests := []struct {
		name   string
		from   State
		slot   Slot
		want   State
		effect Effect
	}{
		{"armed window", Armed, SlotWindow, Idle, Effect{}},
		{"cooling window", CoolingDown, SlotWindow, Idle, Effect{}},
		{"visible auto-hide", Visible, SlotAutoHide, Idle, Effect{Hide: true, HideReason: ReasonTimeout}},
		{"visible window is stale", Visible, SlotWindow, Visible, Effect{}},
		{"armed auto-hide is stale", Armed, SlotAutoHide, Armed, Effect{}},
		{"idle window is stale", Idle, SlotWindow, Idle, Effect{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := machineIn(t, tt.from)
			assert.Equal(t, tt.effect, m.Expire(tt.slot))
			assert.Equal(t, tt.want, m.State())
		})
	}
}

func TestMachineWindowFixedAtArm(t *testing.T) {
	m := &Machine{}
	m.Handle(edge(0), 100*time.Millisecond)
	// A longer window passed later does not stretch the armed one.
	m.Handle(edge(300), time.Second)
	assert.Equal(t, Armed, m.State())

	// The re-arm at 300 picked up the new length.
	m.Handle(edge(1200), time.Second)
	assert.Equal(t, Visible, m.State())
}

func TestMachineCtrlKeyOrdering(t *testing.T) {
	// Pressing Ctrl delivers ModifierEdge then AnyKeyDown. While visible
	// the edge must win so the press enters CoolingDown, not Idle.
	m := machineIn(t, Visible)
	eff := m.Handle(edge(1000), window)
	assert.Equal(t, ReasonDoubleTap, eff.HideReason)
	assert.True(t, m.Handle(ctrlKey(1000), window).None())
	assert.Equal(t, CoolingDown, m.State())
}

func TestMachineThroughEdgeTracker(t *testing.T) {
	t.Run("left then right shows and stays", func(t *testing.T) {
		kb := &keyboard{m: &Machine{}}
		kb.tap(input.SideLeft, 0)
		kb.tap(input.SideRight, 300)

		assert.Equal(t, Visible, kb.m.State())
		assert.Equal(t, []Effect{
			{ArmWindow: true},
			{CancelWindow: true, Show: true, ArmAutoHide: true},
		}, kb.effects)
	})

	t.Run("held ctrl auto-repeat keeps the spotlight", func(t *testing.T) {
		kb := &keyboard{m: &Machine{}}
		kb.tap(input.SideLeft, 0)
		kb.press(input.SideLeft, 200)
		for ms := 700; ms < 1500; ms += 33 {
			kb.press(input.SideLeft, ms)
		}
		assert.Equal(t, Visible, kb.m.State())
		assert.Len(t, kb.effects, 2)
	})

	t.Run("other key dismisses", func(t *testing.T) {
		kb := &keyboard{m: &Machine{}}
		kb.tap(input.SideLeft, 0)
		kb.tap(input.SideLeft, 100)
		kb.tap(input.SideNone, 900)

		assert.Equal(t, Idle, kb.m.State())
		require.Len(t, kb.effects, 3)
		assert.Equal(t, ReasonKey, kb.effects[2].HideReason)
	})

	t.Run("double tap while visible dismisses", func(t *testing.T) {
		kb := &keyboard{m: &Machine{}}
		kb.tap(input.SideLeft, 0)
		kb.tap(input.SideLeft, 100)
		kb.tap(input.SideRight, 1000)
		assert.Equal(t, CoolingDown, kb.m.State())
		kb.tap(input.SideLeft, 1200)

		assert.Equal(t, Idle, kb.m.State())
		require.Len(t, kb.effects, 4)
		assert.Equal(t, ReasonDoubleTap, kb.effects[2].HideReason)
		assert.Equal(t, Effect{CancelWindow: true}, kb.effects[3])
	})
}

func TestMachineEdgeBeforeT0(t *testing.T) {
	m := machineIn(t, Armed)
	m.Handle(edge(-20), window)
	assert.Equal(t, Visible, m.State())
}

func TestMachineShowFailed(t *testing.T) {
	m := machineIn(t, Visible)
	assert.Equal(t, Effect{CancelAutoHide: true}, m.ShowFailed())
	assert.Equal(t, Idle, m.State())
	assert.True(t, m.ShowFailed().None())
}

func TestMachineReset(t *testing.T) {
	m := machineIn(t, Visible)
	assert.Equal(t, Effect{CancelAutoHide: true, Hide: true, HideReason: ReasonQuit}, m.Reset(ReasonQuit))
	assert.Equal(t, Idle, m.State())

	m = machineIn(t, Armed)
	assert.Equal(t, Effect{CancelWindow: true}, m.Reset(ReasonQuit))

	m = machineIn(t, Idle)
	assert.True(t, m.Reset(ReasonQuit).None())
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "cooling_down", CoolingDown.String())
	assert.Equal(t, "state(9)", State(9).String())
	assert.Equal(t, "auto_hide", SlotAutoHide.String())
}
