package input

import (
	"sync/atomic"
	"time"
)

// staleHold is how long a Ctrl key may be reported held without any
// auto-repeat before its release is assumed lost. Keyboards repeat every
// few tens of milliseconds once the initial delay (at most about 1s) is over.
const staleHold = 1500 * time.Millisecond

// EdgeTracker turns raw key transitions into events. It remembers whether
// each Ctrl key is held so auto-repeat never produces a second edge.
//
// KeyDown and KeyUp may be called from several reader goroutines.
type EdgeTracker struct {
	pressed  [3]atomic.Bool
	lastDown [3]atomic.Int64
}

// KeyDown reports a key press. side is SideNone for anything but Ctrl.
// For Ctrl, the ModifierEdge (if any) is offered before the AnyKeyDown.
//
// A press on a side that has been silent for longer than staleHold is an
// edge even without a release in between: the hook can miss key-ups, e.g.
// while the secure desktop has the keyboard.
func (t *EdgeTracker) KeyDown(side Side, at time.Time, sink Sink) {
	if side != SideNone {
		prev := t.lastDown[side].Swap(at.UnixNano())
		held := t.pressed[side].Swap(true)
		if !held || time.Duration(at.UnixNano()-prev) > staleHold {
			sink.Offer(NewModifierEdge(side, at))
		}
	}
	sink.Offer(NewAnyKeyDown(side, at))
}

// KeyUp reports a key release.
func (t *EdgeTracker) KeyUp(side Side) {
	if side != SideNone {
		t.pressed[side].Store(false)
	}
}

// Pressed reports whether the Ctrl key on side is held.
func (t *EdgeTracker) Pressed(side Side) bool {
	return side != SideNone && t.pressed[side].Load()
}

// Reset forgets held keys, e.g. after the hook was reinstalled and
// releases may have been missed.
func (t *EdgeTracker) Reset() {
	for i := range t.pressed {
		t.pressed[i].Store(false)
	}
}
