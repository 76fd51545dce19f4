// Package config handles the spotlight settings: their bounds, defaults,
// persistence next to the executable, and hot-reloading when the file changes.
package config

import (
	"encoding/json"
	"fmt"
	"math"
)

// Settings holds the four user-tunable spotlight parameters.
//
// A Settings value obtained from this package is always within bounds.
type Settings struct {
	// DoubleTapWindowMs is the maximum delay between two Ctrl presses.
	DoubleTapWindowMs int `json:"doubleTapWindowMs" toml:"doubleTapWindowMs" yaml:"doubleTapWindowMs"`

	// BackdropOpacity is the alpha of the darkened backdrop (0 transparent, 255 opaque).
	BackdropOpacity int `json:"backdropOpacity" toml:"backdropOpacity" yaml:"backdropOpacity"`

	// SpotlightRadiusPx is the radius of the clear circle around the cursor.
	SpotlightRadiusPx int `json:"spotlightRadiusPx" toml:"spotlightRadiusPx" yaml:"spotlightRadiusPx"`

	// AutoHideDelayMs is how long the overlay stays up without mouse movement.
	AutoHideDelayMs int `json:"autoHideDelayMs" toml:"autoHideDelayMs" yaml:"autoHideDelayMs"`
}

// Bound describes the persisted key, legacy alias and valid range of one setting.
type Bound struct {
	Key     string
	Legacy  string
	Min     int
	Max     int
	Default int

	get func(Settings) int
	set func(*Settings, int)
}

// Contains reports whether v is within the bound.
func (b Bound) Contains(v int) bool {
	return v >= b.Min && v <= b.Max
}

// Clamp limits v to the bound.
func (b Bound) Clamp(v int) int {
	return min(max(v, b.Min), b.Max)
}

// Get returns the value of this setting in s.
func (b Bound) Get(s Settings) int {
	return b.get(s)
}

// Set stores v into the matching field of s without range checks.
func (b Bound) Set(s *Settings, v int) {
	b.set(s, v)
}

var (
	DoubleTapWindow = Bound{
		Key: "doubleTapWindowMs", Legacy: "double_tap_time_ms",
		Min: 50, Max: 1000, Default: 400,
		get: func(s Settings) int { return s.DoubleTapWindowMs },
		set: func(s *Settings, v int) { s.DoubleTapWindowMs = v },
	}
	BackdropOpacity = Bound{
		Key: "backdropOpacity", Legacy: "backdrop_opacity",
		Min: 0, Max: 255, Default: 180,
		get: func(s Settings) int { return s.BackdropOpacity },
		set: func(s *Settings, v int) { s.BackdropOpacity = v },
	}
	SpotlightRadius = Bound{
		Key: "spotlightRadiusPx", Legacy: "spotlight_radius",
		Min: 50, Max: 500, Default: 100,
		get: func(s Settings) int { return s.SpotlightRadiusPx },
		set: func(s *Settings, v int) { s.SpotlightRadiusPx = v },
	}
	AutoHideDelay = Bound{
		Key: "autoHideDelayMs", Legacy: "auto_hide_delay_ms",
		Min: 100, Max: 10000, Default: 2000,
		get: func(s Settings) int { return s.AutoHideDelayMs },
		set: func(s *Settings, v int) { s.AutoHideDelayMs = v },
	}
)

// Bounds lists every setting in file order.
func Bounds() []Bound {
	return []Bound{DoubleTapWindow, BackdropOpacity, SpotlightRadius, AutoHideDelay}
}

// Default returns the built-in settings.
func Default() Settings {
	var s Settings
	for _, b := range Bounds() {
		b.set(&s, b.Default)
	}
	return s
}

// Clamp returns s with every field limited to its range.
func (s Settings) Clamp() Settings {
	out := s
	for _, b := range Bounds() {
		b.set(&out, b.Clamp(b.get(s)))
	}
	return out
}

// Normalize returns s with every out-of-range field replaced by its default.
func (s Settings) Normalize() Settings {
	out := s
	for _, b := range Bounds() {
		if !b.Contains(b.get(s)) {
			b.set(&out, b.Default)
		}
	}
	return out
}

// Validate reports every field that is out of range.
func (s Settings) Validate() error {
	var errs ValidationErrors
	for _, b := range Bounds() {
		if v := b.get(s); !b.Contains(v) {
			errs = append(errs, ValidationError{
				Field:   b.Key,
				Message: fmt.Sprintf("%d out of range [%d, %d]", v, b.Min, b.Max),
			})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Opacity returns the backdrop alpha as a byte.
func (s Settings) Opacity() uint8 {
	return uint8(BackdropOpacity.Clamp(s.BackdropOpacity))
}

// fromMap builds Settings from a decoded document. Fields that are missing,
// non-integral or out of range fall back to their default and are reported
// as problems. Canonical keys take precedence over legacy aliases.
func fromMap(doc map[string]any) (Settings, ValidationErrors) {
	s := Default()
	var problems ValidationErrors
	for _, b := range Bounds() {
		raw, ok := doc[b.Key]
		if !ok && b.Legacy != "" {
			raw, ok = doc[b.Legacy]
		}
		if !ok {
			continue
		}
		v, ok := asInt(raw)
		if !ok {
			problems = append(problems, ValidationError{Field: b.Key, Message: fmt.Sprintf("not an integer: %v", raw)})
			continue
		}
		if !b.Contains(v) {
			problems = append(problems, ValidationError{
				Field:   b.Key,
				Message: fmt.Sprintf("%d out of range [%d, %d], using %d", v, b.Min, b.Max, b.Default),
			})
			continue
		}
		b.set(&s, v)
	}
	return s, problems
}

// asInt accepts the integer shapes produced by the JSON, TOML and YAML decoders.
func asInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return 0, false
		}
		return int(v), true
	case uint64:
		if v > math.MaxInt32 {
			return 0, false
		}
		return int(v), true
	case float64:
		if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
			return 0, false
		}
		return int(v), true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return asInt(n)
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return asInt(f)
	default:
		return 0, false
	}
}
