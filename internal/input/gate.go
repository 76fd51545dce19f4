package input

import "sync/atomic"

// Gate decides whether mouse moves are worth forwarding. The engine opens
// it while the overlay is visible; hook callbacks read it without locking.
type Gate struct {
	open atomic.Bool
}

// Set opens or closes the gate.
func (g *Gate) Set(open bool) {
	g.open.Store(open)
}

// IsOpen reports whether moves should be forwarded. A nil gate is always open.
func (g *Gate) IsOpen() bool {
	return g == nil || g.open.Load()
}
