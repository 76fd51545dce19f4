package input

import "time"

// Windows virtual-key codes for Ctrl. The low-level hook reports the
// sided codes; the generic one shows up from some injected input.
const (
	vkControl  = 0x11
	vkLControl = 0xA2
	vkRControl = 0xA3
)

// SideForVirtualKey maps a Windows virtual-key code to a Ctrl side.
func SideForVirtualKey(vk uint32) Side {
	switch vk {
	case vkLControl, vkControl:
		return SideLeft
	case vkRControl:
		return SideRight
	default:
		return SideNone
	}
}

// Linux input event codes (linux/input-event-codes.h).
const (
	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02
	evAbs = 0x03

	synReport = 0

	relX = 0x00
	relY = 0x01
	absX = 0x00
	absY = 0x01

	keyLeftCtrl  = 29
	keyRightCtrl = 97

	btnMouseFirst = 0x110 // BTN_LEFT
	btnMouseLast  = 0x117 // BTN_TASK

	keyRelease = 0
	keyPress   = 1
	keyRepeat  = 2
)

// SideForEvdevCode maps a Linux key code to a Ctrl side.
func SideForEvdevCode(code uint16) Side {
	switch code {
	case keyLeftCtrl:
		return SideLeft
	case keyRightCtrl:
		return SideRight
	default:
		return SideNone
	}
}

func isMouseButton(code uint16) bool {
	return code >= btnMouseFirst && code <= btnMouseLast
}

// tickRebase bounds how far a tick stamp may drift from the base before
// the mapping is refreshed, keeping 32-bit wraparound out of reach.
const tickRebase = time.Hour

// tickMapper converts 32-bit millisecond tick stamps, as found on hook
// events, into time.Time values carrying a monotonic reading.
type tickMapper struct {
	baseTick uint32
	base     time.Time

	now     func() time.Time
	nowTick func() uint32
}

func newTickMapper(now func() time.Time, nowTick func() uint32) *tickMapper {
	m := &tickMapper{now: now, nowTick: nowTick}
	m.rebase()
	return m
}

func (m *tickMapper) rebase() {
	m.baseTick = m.nowTick()
	m.base = m.now()
}

// At maps tick onto the monotonic clock. Not safe for concurrent use.
func (m *tickMapper) At(tick uint32) time.Time {
	d := time.Duration(int32(tick-m.baseTick)) * time.Millisecond
	if d > tickRebase || d < -tickRebase {
		m.rebase()
		d = time.Duration(int32(tick-m.baseTick)) * time.Millisecond
	}
	return m.base.Add(d)
}
