package input

import (
	"context"
	"sync"
	"time"
)

// Simulated is a Monitor driven by method calls instead of the OS. It goes
// through the same EdgeTracker and Gate as the real hooks.
type Simulated struct {
	mu      sync.Mutex
	sink    Sink
	running bool
	edges   EdgeTracker
	gate    *Gate
}

// NewSimulated creates a simulated monitor.
func NewSimulated(gate *Gate) *Simulated {
	return &Simulated{gate: gate}
}

// Start begins delivering simulated events to sink.
func (s *Simulated) Start(ctx context.Context, sink Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	s.sink = sink
	s.running = true
	return nil
}

// Stop stops delivery.
func (s *Simulated) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.sink = nil
	return nil
}

// Available always returns true.
func (s *Simulated) Available() (bool, string) {
	return true, "simulated monitor"
}

func (s *Simulated) target() Sink {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	return s.sink
}

// PressCtrl simulates pressing (or auto-repeating) a Ctrl key.
func (s *Simulated) PressCtrl(side Side, at time.Time) {
	if sink := s.target(); sink != nil {
		s.edges.KeyDown(side, at, sink)
	}
}

// ReleaseCtrl simulates releasing a Ctrl key.
func (s *Simulated) ReleaseCtrl(side Side) {
	s.edges.KeyUp(side)
}

// TapCtrl presses and releases a Ctrl key.
func (s *Simulated) TapCtrl(side Side, at time.Time) {
	s.PressCtrl(side, at)
	s.ReleaseCtrl(side)
}

// PressKey simulates any non-Ctrl key press.
func (s *Simulated) PressKey(at time.Time) {
	if sink := s.target(); sink != nil {
		s.edges.KeyDown(SideNone, at, sink)
	}
}

// Click simulates a mouse button press.
func (s *Simulated) Click(at time.Time) {
	if sink := s.target(); sink != nil {
		sink.Offer(NewMouseButtonDown(at))
	}
}

// Move simulates cursor motion; it is dropped while the gate is closed.
func (s *Simulated) Move(x, y int, at time.Time) {
	if sink := s.target(); sink != nil && s.gate.IsOpen() {
		sink.Offer(NewMouseMoved(x, y, at))
	}
}
