package input

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Sink that keeps everything.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Offer(e Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return true
}

func (r *recorder) kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestEdgeTrackerCtrlOrdering(t *testing.T) {
	var tr EdgeTracker
	rec := &recorder{}

	tr.KeyDown(SideLeft, t0, rec)
	require.Len(t, rec.events, 2)
	assert.Equal(t, NewModifierEdge(SideLeft, t0), rec.events[0])
	assert.Equal(t, NewAnyKeyDown(SideLeft, t0), rec.events[1])
	assert.True(t, tr.Pressed(SideLeft))
}

func TestEdgeTrackerFiltersAutoRepeat(t *testing.T) {
	var tr EdgeTracker
	rec := &recorder{}

	tr.KeyDown(SideRight, t0, rec)
	tr.KeyDown(SideRight, t0.Add(30*time.Millisecond), rec)
	tr.KeyDown(SideRight, t0.Add(60*time.Millisecond), rec)
	assert.Equal(t, []Kind{ModifierEdge, AnyKeyDown, AnyKeyDown, AnyKeyDown}, rec.kinds())

	tr.KeyUp(SideRight)
	assert.False(t, tr.Pressed(SideRight))
	tr.KeyDown(SideRight, t0.Add(90*time.Millisecond), rec)
	assert.Equal(t, ModifierEdge, rec.events[4].Kind)
}

func TestEdgeTrackerLostRelease(t *testing.T) {
	var tr EdgeTracker
	rec := &recorder{}

	// The release of this press never arrives.
	tr.KeyDown(SideLeft, t0, rec)

	later := t0.Add(time.Minute)
	tr.KeyDown(SideLeft, later, rec)
	tr.KeyUp(SideLeft)
	tr.KeyDown(SideLeft, later.Add(300*time.Millisecond), rec)
	tr.KeyUp(SideLeft)

	edges := 0
	for _, k := range rec.kinds() {
		if k == ModifierEdge {
			edges++
		}
	}
	assert.Equal(t, 3, edges)
}

func TestEdgeTrackerLongHoldWithRepeat(t *testing.T) {
	var tr EdgeTracker
	rec := &recorder{}

	// Held for five seconds, repeating every 40ms after a 500ms delay.
	tr.KeyDown(SideRight, t0, rec)
	for at := 500 * time.Millisecond; at <= 5*time.Second; at += 40 * time.Millisecond {
		tr.KeyDown(SideRight, t0.Add(at), rec)
	}

	kinds := rec.kinds()
	assert.Equal(t, ModifierEdge, kinds[0])
	assert.NotContains(t, kinds[1:], ModifierEdge)
	for _, e := range rec.events[1:] {
		assert.Equal(t, SideRight, e.Side)
	}
}

func TestEdgeTrackerSidesIndependent(t *testing.T) {
	var tr EdgeTracker
	rec := &recorder{}

	tr.KeyDown(SideLeft, t0, rec)
	tr.KeyDown(SideRight, t0, rec)
	assert.Equal(t, []Kind{ModifierEdge, AnyKeyDown, ModifierEdge, AnyKeyDown}, rec.kinds())
	assert.Equal(t, SideRight, rec.events[2].Side)

	tr.Reset()
	assert.False(t, tr.Pressed(SideLeft))
	assert.False(t, tr.Pressed(SideNone))
}

func TestEdgeTrackerOtherKeys(t *testing.T) {
	var tr EdgeTracker
	rec := &recorder{}

	tr.KeyDown(SideNone, t0, rec)
	tr.KeyUp(SideNone)
	tr.KeyDown(SideNone, t0, rec)
	assert.Equal(t, []Kind{AnyKeyDown, AnyKeyDown}, rec.kinds())
}

func TestQueueOrderAndDrain(t *testing.T) {
	q := NewQueue(8)
	assert.True(t, q.Offer(NewModifierEdge(SideLeft, t0)))
	assert.True(t, q.Offer(NewAnyKeyDown(SideNone, t0)))
	assert.True(t, q.Offer(NewMouseButtonDown(t0)))

	select {
	case <-q.Ready():
	default:
		t.Fatal("queue did not signal readiness")
	}

	got := q.Drain(nil)
	require.Len(t, got, 3)
	assert.Equal(t, ModifierEdge, got[0].Kind)
	assert.Equal(t, AnyKeyDown, got[1].Kind)
	assert.Equal(t, MouseButtonDown, got[2].Kind)
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Drain(nil))
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(2)
	assert.True(t, q.Offer(NewAnyKeyDown(SideNone, t0)))
	assert.True(t, q.Offer(NewMouseButtonDown(t0)))
	assert.False(t, q.Offer(NewAnyKeyDown(SideNone, t0)))
	assert.False(t, q.Offer(NewModifierEdge(SideLeft, t0)))
	assert.Equal(t, uint64(2), q.Dropped())

	q.Drain(nil)
	assert.True(t, q.Offer(NewAnyKeyDown(SideNone, t0)))
}

func TestQueueCoalescesMovesWhenFull(t *testing.T) {
	q := NewQueue(2)
	q.Offer(NewMouseMoved(1, 1, t0))
	q.Offer(NewMouseMoved(2, 2, t0.Add(time.Millisecond)))
	// Room left: every move is kept.
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, uint64(0), q.Coalesced())

	assert.True(t, q.Offer(NewMouseMoved(3, 3, t0.Add(2*time.Millisecond))))
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, uint64(1), q.Coalesced())

	got := q.Drain(nil)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].X)
	assert.Equal(t, 3, got[1].X)

	q.Offer(NewMouseMoved(5, 5, t0))
	q.Offer(NewMouseButtonDown(t0))
	// Full, but the newest event is not a move.
	assert.False(t, q.Offer(NewMouseMoved(4, 4, t0)))
	assert.Equal(t, uint64(1), q.Dropped())
	assert.Equal(t, uint64(1), q.Coalesced())
}

func TestQueueWrapsAround(t *testing.T) {
	q := NewQueue(3)
	for round := 0; round < 5; round++ {
		q.Offer(NewAnyKeyDown(SideNone, t0))
		q.Offer(NewMouseButtonDown(t0))
		got := q.Drain(nil)
		require.Len(t, got, 2)
		assert.Equal(t, AnyKeyDown, got[0].Kind)
	}
}

func TestQueueClose(t *testing.T) {
	q := NewQueue(0)
	q.Offer(NewAnyKeyDown(SideNone, t0))
	q.Close()
	assert.False(t, q.Offer(NewAnyKeyDown(SideNone, t0)))
	assert.Len(t, q.Drain(nil), 1)
	assert.Equal(t, uint64(0), q.Dropped())
}

func TestQueueConcurrentOffers(t *testing.T) {
	q := NewQueue(DefaultQueueSize)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Offer(NewAnyKeyDown(SideNone, t0))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(800), uint64(q.Len())+q.Dropped())
}

func TestGate(t *testing.T) {
	var nilGate *Gate
	assert.True(t, nilGate.IsOpen())

	g := &Gate{}
	assert.False(t, g.IsOpen())
	g.Set(true)
	assert.True(t, g.IsOpen())
}

func TestSimulatedMonitor(t *testing.T) {
	gate := &Gate{}
	sim := NewSimulated(gate)
	rec := &recorder{}

	// Nothing is delivered before Start.
	sim.PressKey(t0)

	require.NoError(t, sim.Start(context.Background(), rec))
	assert.ErrorIs(t, sim.Start(context.Background(), rec), ErrAlreadyRunning)

	sim.TapCtrl(SideLeft, t0)
	sim.Move(5, 5, t0)
	gate.Set(true)
	sim.Move(10, 20, t0)
	sim.Click(t0)
	sim.PressKey(t0)

	assert.Equal(t, []Kind{ModifierEdge, AnyKeyDown, MouseMoved, MouseButtonDown, AnyKeyDown}, rec.kinds())
	assert.Equal(t, 10, rec.events[2].X)
	assert.Equal(t, 20, rec.events[2].Y)

	ok, _ := sim.Available()
	assert.True(t, ok)

	require.NoError(t, sim.Stop())
	sim.Click(t0)
	assert.Len(t, rec.events, 5)
}

func TestSideForVirtualKey(t *testing.T) {
	assert.Equal(t, SideLeft, SideForVirtualKey(0xA2))
	assert.Equal(t, SideRight, SideForVirtualKey(0xA3))
	assert.Equal(t, SideLeft, SideForVirtualKey(0x11))
	assert.Equal(t, SideNone, SideForVirtualKey('A'))
}

func TestTickMapper(t *testing.T) {
	base := time.Now()
	now := base
	tick := uint32(0xFFFFFF00) // about to wrap
	m := newTickMapper(func() time.Time { return now }, func() uint32 { return tick })

	assert.Equal(t, base.Add(100*time.Millisecond), m.At(tick+100))
	assert.Equal(t, base.Add(-5*time.Millisecond), m.At(tick-5))
	// Across the 32-bit wrap.
	assert.Equal(t, base.Add(0x200*time.Millisecond), m.At(tick+0x200))

	// Far from the base: the mapping is refreshed from the current clocks.
	now = base.Add(3 * time.Hour)
	tick += uint32((3 * time.Hour).Milliseconds())
	assert.Equal(t, now.Add(10*time.Millisecond), m.At(tick+10))
}

func TestKindAndSideStrings(t *testing.T) {
	assert.Equal(t, "modifier_edge", ModifierEdge.String())
	assert.Equal(t, "mouse_moved", MouseMoved.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
	assert.Equal(t, "left", SideLeft.String())
	assert.Equal(t, "none", SideNone.String())
}
