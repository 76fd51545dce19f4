// Package options holds the state behind the options window: one bounded
// field per setting, independent of the UI toolkit that draws it.
package options

import (
	"fmt"
	"math"

	"spotcursor/internal/config"
)

// Field is one slider.
type Field struct {
	Bound config.Bound
	Label string
	Unit  string
	// Step is the slider granularity; values snap to Min + k*Step.
	Step int

	value int
}

// Value returns the current value, always within the bound.
func (f *Field) Value() int { return f.value }

// SetValue clamps and snaps v.
func (f *Field) SetValue(v int) {
	v = f.Bound.Clamp(v)
	if f.Step > 1 {
		k := int(math.Round(float64(v-f.Bound.Min) / float64(f.Step)))
		v = f.Bound.Clamp(f.Bound.Min + k*f.Step)
	}
	f.value = v
}

// Fraction is the slider position in [0, 1].
func (f *Field) Fraction() float32 {
	span := f.Bound.Max - f.Bound.Min
	if span <= 0 {
		return 0
	}
	return float32(f.value-f.Bound.Min) / float32(span)
}

// SetFraction moves the slider to fr, clamped to [0, 1].
func (f *Field) SetFraction(fr float32) {
	fr = min(max(fr, 0), 1)
	span := f.Bound.Max - f.Bound.Min
	f.SetValue(f.Bound.Min + int(math.Round(float64(fr)*float64(span))))
}

// Text is the value label shown next to the slider.
func (f *Field) Text() string {
	if f.Unit == "" {
		return fmt.Sprintf("%d", f.value)
	}
	return fmt.Sprintf("%d %s", f.value, f.Unit)
}

// Form is the editable copy of the settings.
type Form struct {
	Fields []*Field

	initial config.Settings
}

// NewForm returns a form showing s.
func NewForm(s config.Settings) *Form {
	f := &Form{
		Fields: []*Field{
			{Bound: config.DoubleTapWindow, Label: "Double-tap time", Unit: "ms", Step: 10},
			{Bound: config.BackdropOpacity, Label: "Backdrop opacity", Step: 1},
			{Bound: config.SpotlightRadius, Label: "Spotlight radius", Unit: "px", Step: 5},
			{Bound: config.AutoHideDelay, Label: "Auto-hide delay", Unit: "ms", Step: 100},
		},
	}
	f.Reset(s)
	return f
}

// Reset shows s and makes it the baseline for Dirty.
func (f *Form) Reset(s config.Settings) {
	s = s.Clamp()
	f.initial = s
	for _, fd := range f.Fields {
		// Loaded values are shown as they are, not snapped.
		fd.value = fd.Bound.Get(s)
	}
}

// Field returns the field for a settings key, or nil.
func (f *Form) Field(key string) *Field {
	for _, fd := range f.Fields {
		if fd.Bound.Key == key {
			return fd
		}
	}
	return nil
}

// Settings returns the edited values.
func (f *Form) Settings() config.Settings {
	s := f.initial
	for _, fd := range f.Fields {
		fd.Bound.Set(&s, fd.value)
	}
	return s
}

// Dirty reports whether anything differs from the last Reset.
func (f *Form) Dirty() bool {
	return f.Settings() != f.initial
}
