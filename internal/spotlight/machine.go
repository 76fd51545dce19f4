package spotlight

import (
	"time"

	"spotcursor/internal/input"
	"spotcursor/internal/overlay"
)

// Effect is what the caller must do after a transition. Fields are applied
// in declaration order: cancellations, hide, show, reposition, arms.
type Effect struct {
	CancelWindow   bool
	CancelAutoHide bool

	Hide       bool
	HideReason Reason

	Show bool

	Reposition bool
	Point      overlay.Point

	ArmWindow   bool
	ArmAutoHide bool
}

// None reports whether e asks for nothing.
func (e Effect) None() bool {
	return e == Effect{}
}

// Machine is the activation state machine. It has no clock of its own:
// elapsed time comes from event timestamps and expiries are reported by
// the caller. The zero value is Idle.
type Machine struct {
	state State
	t0    time.Time
	// window is the double-tap window in force since the last arm.
	window time.Duration
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// withinWindow reports whether at is close enough to the last first-press.
// A timestamp before t0 counts as inside.
func (m *Machine) withinWindow(at time.Time) bool {
	return at.Sub(m.t0) <= m.window
}

func (m *Machine) arm(at time.Time, window time.Duration) {
	m.t0 = at
	m.window = window
}

// Handle applies ev. window is the double-tap window to use if this event
// arms the window timer; an already armed window keeps its own length.
func (m *Machine) Handle(ev input.Event, window time.Duration) Effect {
	switch m.state {
	case Idle:
		if ev.Kind == input.ModifierEdge {
			m.arm(ev.Time, window)
			m.state = Armed
			return Effect{ArmWindow: true}
		}

	case Armed:
		if ev.Kind != input.ModifierEdge {
			break
		}
		if m.withinWindow(ev.Time) {
			m.state = Visible
			return Effect{CancelWindow: true, Show: true, ArmAutoHide: true}
		}
		m.arm(ev.Time, window)
		return Effect{ArmWindow: true}

	case Visible:
		switch ev.Kind {
		case input.ModifierEdge:
			m.arm(ev.Time, window)
			m.state = CoolingDown
			return Effect{CancelAutoHide: true, Hide: true, HideReason: ReasonDoubleTap, ArmWindow: true}
		case input.AnyKeyDown:
			// A Ctrl key-down follows its own edge: it is either the press
			// that just showed the overlay or auto-repeat of a held Ctrl.
			if ev.Side != input.SideNone {
				break
			}
			m.state = Idle
			return Effect{CancelAutoHide: true, Hide: true, HideReason: ReasonKey}
		case input.MouseButtonDown:
			m.state = Idle
			return Effect{CancelAutoHide: true, Hide: true, HideReason: ReasonClick}
		case input.MouseMoved:
			return Effect{Reposition: true, Point: overlay.Point{X: ev.X, Y: ev.Y}, ArmAutoHide: true}
		}

	case CoolingDown:
		if ev.Kind != input.ModifierEdge {
			break
		}
		if m.withinWindow(ev.Time) {
			m.state = Idle
			return Effect{CancelWindow: true}
		}
		m.arm(ev.Time, window)
		m.state = Armed
		return Effect{ArmWindow: true}
	}
	return Effect{}
}

// Expire applies the expiry of slot. The caller has already discarded
// expiries from superseded arms.
func (m *Machine) Expire(slot Slot) Effect {
	switch {
	case slot == SlotWindow && (m.state == Armed || m.state == CoolingDown):
		m.state = Idle
	case slot == SlotAutoHide && m.state == Visible:
		m.state = Idle
		return Effect{Hide: true, HideReason: ReasonTimeout}
	}
	return Effect{}
}

// ShowFailed returns to Idle after the overlay could not be shown.
func (m *Machine) ShowFailed() Effect {
	if m.state != Visible {
		return Effect{}
	}
	m.state = Idle
	return Effect{CancelAutoHide: true}
}

// Reset returns to Idle from any state, hiding the overlay if it is up.
func (m *Machine) Reset(reason Reason) Effect {
	prev := m.state
	m.state = Idle
	switch prev {
	case Visible:
		return Effect{CancelAutoHide: true, Hide: true, HideReason: reason}
	case Armed, CoolingDown:
		return Effect{CancelWindow: true}
	}
	return Effect{}
}
