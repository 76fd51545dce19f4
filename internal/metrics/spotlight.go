package metrics

import "time"

// Dismissal reasons used as the "reason" label.
const (
	ReasonKey       = "key"
	ReasonClick     = "click"
	ReasonTimeout   = "timeout"
	ReasonDoubleTap = "double_tap"
	ReasonQuit      = "quit"
)

// SpotlightMetrics holds the series the activation engine reports.
type SpotlightMetrics struct {
	registry *Registry

	ActivationsTotal    *Counter
	ShowFailuresTotal   *Counter
	InputDroppedTotal   *Counter
	InputCoalescedTotal *Counter
	SettingsReloads     *Counter
	VisibleSeconds      *Histogram
	Visible             *Gauge
	dismissalsByReason  map[string]*Counter
}

// NewSpotlightMetrics registers the spotlight series in registry, or in
// Default() when registry is nil.
func NewSpotlightMetrics(registry *Registry) *SpotlightMetrics {
	if registry == nil {
		registry = Default()
	}

	m := &SpotlightMetrics{
		registry: registry,
		ActivationsTotal: registry.RegisterCounter(
			"activations_total",
			"Number of times the spotlight was shown",
			nil,
		),
		ShowFailuresTotal: registry.RegisterCounter(
			"show_failures_total",
			"Number of activations skipped because the overlay could not be shown",
			nil,
		),
		InputDroppedTotal: registry.RegisterCounter(
			"input_dropped_total",
			"Input events dropped because the dispatch queue was full",
			nil,
		),
		InputCoalescedTotal: registry.RegisterCounter(
			"input_coalesced_total",
			"Mouse moves merged into the previous one because the dispatch queue was full",
			nil,
		),
		SettingsReloads: registry.RegisterCounter(
			"settings_reloads_total",
			"Number of settings changes applied while running",
			nil,
		),
		VisibleSeconds: registry.RegisterHistogram(
			"visible_seconds",
			"How long the spotlight stayed visible",
			nil,
			VisibleBuckets,
		),
		Visible: registry.RegisterGauge(
			"visible",
			"1 while the spotlight is shown",
			nil,
		),
		dismissalsByReason: make(map[string]*Counter),
	}

	for _, reason := range []string{ReasonKey, ReasonClick, ReasonTimeout, ReasonDoubleTap, ReasonQuit} {
		m.dismissalsByReason[reason] = registry.RegisterCounter(
			"dismissals_total",
			"Number of times the spotlight was hidden, by reason",
			Labels{"reason": reason},
		)
	}

	return m
}

// Registry returns the registry the metrics live in.
func (m *SpotlightMetrics) Registry() *Registry {
	return m.registry
}

// RecordShown marks the spotlight as visible.
func (m *SpotlightMetrics) RecordShown() {
	m.ActivationsTotal.Inc()
	m.Visible.Set(1)
}

// RecordDismissed marks the spotlight hidden after being visible for d.
func (m *SpotlightMetrics) RecordDismissed(reason string, d time.Duration) {
	c, ok := m.dismissalsByReason[reason]
	if !ok {
		c = m.registry.RegisterCounter(
			"dismissals_total",
			"Number of times the spotlight was hidden, by reason",
			Labels{"reason": reason},
		)
	}
	c.Inc()
	m.Visible.Set(0)
	if d > 0 {
		m.VisibleSeconds.ObserveDuration(d)
	}
}

// Dismissals returns the dismissal count for reason.
func (m *SpotlightMetrics) Dismissals(reason string) uint64 {
	if c := m.registry.GetCounter("dismissals_total", Labels{"reason": reason}); c != nil {
		return c.Value()
	}
	return 0
}
