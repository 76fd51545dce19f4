package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotcursor/internal/config"
)

func TestNewFormShowsSettings(t *testing.T) {
	s := config.Settings{DoubleTapWindowMs: 333, BackdropOpacity: 7, SpotlightRadiusPx: 123, AutoHideDelayMs: 4321}
	f := NewForm(s)

	require.Len(t, f.Fields, len(config.Bounds()))
	assert.Equal(t, 333, f.Field("doubleTapWindowMs").Value())
	assert.Equal(t, s, f.Settings())
	assert.False(t, f.Dirty())
	assert.Nil(t, f.Field("nope"))
}

func TestNewFormClampsInput(t *testing.T) {
	f := NewForm(config.Settings{DoubleTapWindowMs: 1, BackdropOpacity: 999, SpotlightRadiusPx: 100, AutoHideDelayMs: 2000})
	assert.Equal(t, 50, f.Field("doubleTapWindowMs").Value())
	assert.Equal(t, 255, f.Field("backdropOpacity").Value())
}

func TestFieldSetValue(t *testing.T) {
	tests := []struct {
		name string
		key  string
		in   int
		want int
	}{
		{"snaps to step", "doubleTapWindowMs", 404, 400},
		{"rounds up", "doubleTapWindowMs", 406, 410},
		{"clamps low", "doubleTapWindowMs", -5, 50},
		{"clamps high", "autoHideDelayMs", 50000, 10000},
		{"step one", "backdropOpacity", 77, 77},
		{"radius step", "spotlightRadiusPx", 103, 105},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fd := NewForm(config.Default()).Field(tt.key)
			fd.SetValue(tt.in)
			assert.Equal(t, tt.want, fd.Value())
		})
	}
}

func TestFieldFraction(t *testing.T) {
	f := NewForm(config.Default())
	fd := f.Field("backdropOpacity")

	fd.SetFraction(0)
	assert.Equal(t, 0, fd.Value())
	assert.Equal(t, float32(0), fd.Fraction())

	fd.SetFraction(1.5)
	assert.Equal(t, 255, fd.Value())
	assert.Equal(t, float32(1), fd.Fraction())

	radius := f.Field("spotlightRadiusPx")
	radius.SetFraction(0.5)
	assert.Equal(t, 275, radius.Value())
	assert.InDelta(t, 0.5, radius.Fraction(), 1e-6)

	assert.True(t, f.Dirty())
}

func TestFieldText(t *testing.T) {
	f := NewForm(config.Default())
	assert.Equal(t, "400 ms", f.Field("doubleTapWindowMs").Text())
	assert.Equal(t, "180", f.Field("backdropOpacity").Text())
	assert.Equal(t, "100 px", f.Field("spotlightRadiusPx").Text())
}

func TestFormReset(t *testing.T) {
	f := NewForm(config.Default())
	f.Field("autoHideDelayMs").SetValue(5000)
	require.True(t, f.Dirty())

	saved := f.Settings()
	f.Reset(saved)
	assert.False(t, f.Dirty())
	assert.Equal(t, 5000, f.Settings().AutoHideDelayMs)
}
