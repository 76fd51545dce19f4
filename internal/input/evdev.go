package input

import (
	"bufio"
	"encoding/binary"
	"io"
	"math/bits"
	"strconv"
	"strings"
	"sync"
	"time"
)

// deviceInfo is one block of /proc/bus/input/devices.
type deviceInfo struct {
	Name     string
	Handlers []string
	ev       []uint64
	key      []uint64
	rel      []uint64
	abs      []uint64
}

// EventNode returns the /dev/input path of the device, or "".
func (d deviceInfo) EventNode() string {
	for _, h := range d.Handlers {
		if strings.HasPrefix(h, "event") {
			return "/dev/input/" + h
		}
	}
	return ""
}

// IsKeyboard reports whether the device can produce Ctrl.
func (d deviceInfo) IsKeyboard() bool {
	return hasBit(d.ev, evKey) && (hasBit(d.key, keyLeftCtrl) || hasBit(d.key, keyRightCtrl))
}

// IsPointer reports whether the device moves the cursor or has mouse buttons.
func (d deviceInfo) IsPointer() bool {
	moves := (hasBit(d.ev, evRel) && hasBit(d.rel, relX)) || (hasBit(d.ev, evAbs) && hasBit(d.abs, absX))
	return moves && hasBit(d.key, btnMouseFirst)
}

// parseDevices reads the /proc/bus/input/devices format.
func parseDevices(r io.Reader) ([]deviceInfo, error) {
	var (
		devices []deviceInfo
		cur     deviceInfo
		started bool
	)
	flush := func() {
		if started {
			devices = append(devices, cur)
		}
		cur = deviceInfo{}
		started = false
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		started = true

		switch {
		case strings.HasPrefix(line, "N: Name="):
			cur.Name = strings.Trim(strings.TrimPrefix(line, "N: Name="), `"`)
		case strings.HasPrefix(line, "H: Handlers="):
			cur.Handlers = strings.Fields(strings.TrimPrefix(line, "H: Handlers="))
		case strings.HasPrefix(line, "B: EV="):
			cur.ev = parseBitmap(strings.TrimPrefix(line, "B: EV="))
		case strings.HasPrefix(line, "B: KEY="):
			cur.key = parseBitmap(strings.TrimPrefix(line, "B: KEY="))
		case strings.HasPrefix(line, "B: REL="):
			cur.rel = parseBitmap(strings.TrimPrefix(line, "B: REL="))
		case strings.HasPrefix(line, "B: ABS="):
			cur.abs = parseBitmap(strings.TrimPrefix(line, "B: ABS="))
		}
	}
	flush()
	return devices, scanner.Err()
}

// parseBitmap decodes a capability bitmap: hex words of the kernel's long
// size, most significant word first. The result is least significant first.
func parseBitmap(s string) []uint64 {
	fields := strings.Fields(s)
	words := make([]uint64, 0, len(fields))
	for i := len(fields) - 1; i >= 0; i-- {
		v, err := strconv.ParseUint(fields[i], 16, 64)
		if err != nil {
			v = 0
		}
		words = append(words, v)
	}
	return words
}

func hasBit(words []uint64, bit int) bool {
	size := bits.UintSize
	i := bit / size
	if i >= len(words) {
		return false
	}
	return words[i]&(1<<(uint(bit)%uint(size))) != 0
}

// rawEvent is a decoded struct input_event.
type rawEvent struct {
	Time  time.Time
	Type  uint16
	Code  uint16
	Value int32
}

// decodeEvent decodes one struct input_event of size 16 (32-bit timeval)
// or 24 (64-bit timeval), little endian.
func decodeEvent(buf []byte) (rawEvent, bool) {
	var sec, usec int64
	var rest []byte
	switch len(buf) {
	case 24:
		sec = int64(binary.LittleEndian.Uint64(buf[0:8]))
		usec = int64(binary.LittleEndian.Uint64(buf[8:16]))
		rest = buf[16:]
	case 16:
		sec = int64(int32(binary.LittleEndian.Uint32(buf[0:4])))
		usec = int64(int32(binary.LittleEndian.Uint32(buf[4:8])))
		rest = buf[8:]
	default:
		return rawEvent{}, false
	}
	return rawEvent{
		Time:  time.Unix(sec, usec*int64(time.Microsecond)),
		Type:  binary.LittleEndian.Uint16(rest[0:2]),
		Code:  binary.LittleEndian.Uint16(rest[2:4]),
		Value: int32(binary.LittleEndian.Uint32(rest[4:8])),
	}, true
}

// pointerState accumulates motion from one device between SYN_REPORTs.
type pointerState struct {
	dx, dy int
	absX   int
	absY   int
	hasAbs bool
	moved  bool
}

// translate applies one raw event, offering key and button events at once
// and motion on SYN_REPORT.
func (p *pointerState) translate(ev rawEvent, edges *EdgeTracker, pos *position, gate *Gate, sink Sink) {
	switch ev.Type {
	case evKey:
		if isMouseButton(ev.Code) {
			if ev.Value == keyPress {
				sink.Offer(NewMouseButtonDown(ev.Time))
			}
			return
		}
		if ev.Code >= btnMouseFirst {
			// Joystick, tablet and other non-keyboard buttons.
			return
		}
		side := SideForEvdevCode(ev.Code)
		switch ev.Value {
		case keyPress, keyRepeat:
			edges.KeyDown(side, ev.Time, sink)
		case keyRelease:
			edges.KeyUp(side)
		}
	case evRel:
		switch ev.Code {
		case relX:
			p.dx += int(ev.Value)
			p.moved = true
		case relY:
			p.dy += int(ev.Value)
			p.moved = true
		}
	case evAbs:
		switch ev.Code {
		case absX:
			p.absX, p.hasAbs, p.moved = int(ev.Value), true, true
		case absY:
			p.absY, p.hasAbs, p.moved = int(ev.Value), true, true
		}
	case evSyn:
		if ev.Code != synReport || !p.moved {
			return
		}
		var x, y int
		if p.hasAbs {
			x, y = pos.set(p.absX, p.absY)
		} else {
			x, y = pos.add(p.dx, p.dy)
		}
		p.dx, p.dy, p.moved = 0, 0, false
		if gate.IsOpen() {
			sink.Offer(NewMouseMoved(x, y, ev.Time))
		}
	}
}

// position is the cursor estimate shared by every pointer device. Relative
// motion is accumulated as-is; there is no screen to clamp against.
type position struct {
	mu   sync.Mutex
	x, y int
}

func (p *position) add(dx, dy int) (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.x += dx
	p.y += dy
	return p.x, p.y
}

func (p *position) set(x, y int) (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.x, p.y = x, y
	return p.x, p.y
}
