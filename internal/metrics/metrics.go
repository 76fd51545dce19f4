// Package metrics keeps Prometheus-style counters, gauges and histograms in
// process for spotcursor. They are written out as text or JSON, or logged as
// a snapshot at shutdown; there is no scrape endpoint.
package metrics

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MetricType is the kind of a series.
type MetricType int

const (
	TypeCounter MetricType = iota
	TypeGauge
	TypeHistogram
)

var typeNames = [...]string{"counter", "gauge", "histogram"}

func (t MetricType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// Labels qualify a series, e.g. {reason="key"}.
type Labels map[string]string

// String renders labels in exposition order: sorted by key, braces included.
func (l Labels) String() string {
	if len(l) == 0 {
		return ""
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(l[k]))
	}
	b.WriteByte('}')
	return b.String()
}

// desc is what every series carries besides its value.
type desc struct {
	name   string
	help   string
	labels Labels
}

func (d desc) Name() string { return d.name }
func (d desc) Help() string { return d.help }

// Counter only goes up.
type Counter struct {
	desc
	value atomic.Uint64
}

func NewCounter(name, help string, labels Labels) *Counter {
	return &Counter{desc: desc{name, help, labels}}
}

func (c *Counter) Inc() { c.value.Add(1) }
func (c *Counter) Add(v uint64) { c.value.Add(v) }
func (c *Counter) Value() uint64 { return c.value.Load() }
func (c *Counter) Type() MetricType { return TypeCounter }

// Gauge holds the latest value.
type Gauge struct {
	desc
	value atomic.Int64
}

func NewGauge(name, help string, labels Labels) *Gauge {
	return &Gauge{desc: desc{name, help, labels}}
}

func (g *Gauge) Set(v int64) { g.value.Store(v) }
func (g *Gauge) Add(v int64) { g.value.Add(v) }
func (g *Gauge) Inc() { g.value.Add(1) }
func (g *Gauge) Dec() { g.value.Add(-1) }
func (g *Gauge) Value() int64 { return g.value.Load() }
func (g *Gauge) Type() MetricType { return TypeGauge }

// DefaultBuckets are used when a histogram is registered without buckets.
var DefaultBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// VisibleBuckets suit how long a spotlight stays up, in seconds.
var VisibleBuckets = []float64{
	0.25, 0.5, 1, 2, 3, 5, 10, 30, 60,
}

// Histogram counts observations into buckets with inclusive upper bounds.
type Histogram struct {
	desc
	buckets []float64

	mu sync.Mutex
	// counts has one slot per bucket plus +Inf, not cumulative.
	counts []uint64
	sum    float64
	count  uint64
}

func NewHistogram(name, help string, labels Labels, buckets []float64) *Histogram {
	if buckets == nil {
		buckets = DefaultBuckets
	}
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)

	return &Histogram{
		desc:    desc{name, help, labels},
		buckets: sorted,
		counts:  make([]uint64, len(sorted)+1),
	}
}

// Observe records v.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	h.sum += v
	h.count++
	h.counts[sort.SearchFloat64s(h.buckets, v)]++
	h.mu.Unlock()
}

// ObserveDuration records d in seconds.
func (h *Histogram) ObserveDuration(d time.Duration) {
	h.Observe(d.Seconds())
}

func (h *Histogram) Type() MetricType { return TypeHistogram }

func (h *Histogram) Sum() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sum
}

func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Mean is zero before the first observation.
func (h *Histogram) Mean() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return 0
	}
	return h.sum / float64(h.count)
}
