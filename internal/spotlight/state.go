// Package spotlight decides when the spotlight is shown.
//
// Machine is the pure activation state machine. Engine owns a Machine,
// its two timers and the overlay, and feeds them from a single goroutine.
package spotlight

import (
	"fmt"

	"spotcursor/internal/metrics"
)

// State is the activation state.
type State int32

const (
	// Idle waits for a first Ctrl press.
	Idle State = iota
	// Armed has seen one Ctrl press and waits for the second.
	Armed
	// Visible shows the overlay.
	Visible
	// CoolingDown has just hidden the overlay on a Ctrl press; a second
	// press inside the window completes the gesture without re-arming.
	CoolingDown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Visible:
		return "visible"
	case CoolingDown:
		return "cooling_down"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Slot names one of the two timers.
type Slot int

const (
	// SlotWindow is the double-tap window.
	SlotWindow Slot = iota
	// SlotAutoHide is the idle countdown while visible.
	SlotAutoHide

	numSlots
)

func (s Slot) String() string {
	switch s {
	case SlotWindow:
		return "window"
	case SlotAutoHide:
		return "auto_hide"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// Reason says why the overlay was hidden.
type Reason string

const (
	ReasonKey       Reason = metrics.ReasonKey
	ReasonClick     Reason = metrics.ReasonClick
	ReasonTimeout   Reason = metrics.ReasonTimeout
	ReasonDoubleTap Reason = metrics.ReasonDoubleTap
	ReasonQuit      Reason = metrics.ReasonQuit
)
