package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()
	assert.Equal(t, 400, s.DoubleTapWindowMs)
	assert.Equal(t, 180, s.BackdropOpacity)
	assert.Equal(t, 100, s.SpotlightRadiusPx)
	assert.Equal(t, 2000, s.AutoHideDelayMs)
	assert.NoError(t, s.Validate())
}

func TestPathForExecutable(t *testing.T) {
	dir := filepath.Join("opt", "tools")
	tests := []struct {
		exe      string
		expected string
	}{
		{filepath.Join(dir, "spot-cursor.exe"), filepath.Join(dir, "spot-cursor.json")},
		{filepath.Join(dir, "spotcursor"), filepath.Join(dir, "spotcursor.json")},
		{filepath.Join(dir, "spot.cursor.bin"), filepath.Join(dir, "spot.cursor.json")},
	}
	for _, tt := range tests {
		t.Run(filepath.Base(tt.exe), func(t *testing.T) {
			got, err := PathForExecutable(tt.exe)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := PathForExecutable("")
	assert.Error(t, err)
}

func TestDefaultPathUsesExecutable(t *testing.T) {
	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, ".json", filepath.Ext(path))

	exe, err := os.Executable()
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(exe), filepath.Dir(path))
}

func TestClampAndNormalize(t *testing.T) {
	s := Settings{DoubleTapWindowMs: 10, BackdropOpacity: 999, SpotlightRadiusPx: 250, AutoHideDelayMs: 20000}

	clamped := s.Clamp()
	assert.Equal(t, Settings{DoubleTapWindowMs: 50, BackdropOpacity: 255, SpotlightRadiusPx: 250, AutoHideDelayMs: 10000}, clamped)

	normalized := s.Normalize()
	assert.Equal(t, Settings{DoubleTapWindowMs: 400, BackdropOpacity: 180, SpotlightRadiusPx: 250, AutoHideDelayMs: 2000}, normalized)
}

func TestValidate(t *testing.T) {
	s := Default()
	s.BackdropOpacity = -1
	s.AutoHideDelayMs = 99

	err := s.Validate()
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, []string{"backdropOpacity", "autoHideDelayMs"}, verrs.Fields())
	assert.Contains(t, err.Error(), "config: backdropOpacity")
}

func TestBoundsEdges(t *testing.T) {
	for _, b := range Bounds() {
		t.Run(b.Key, func(t *testing.T) {
			assert.True(t, b.Contains(b.Min))
			assert.True(t, b.Contains(b.Max))
			assert.True(t, b.Contains(b.Default))
			assert.False(t, b.Contains(b.Min-1))
			assert.False(t, b.Contains(b.Max+1))
			assert.Equal(t, b.Min, b.Clamp(b.Min-100))
			assert.Equal(t, b.Max, b.Clamp(b.Max+100))

			var s Settings
			b.Set(&s, b.Max)
			assert.Equal(t, b.Max, b.Get(s))
		})
	}
}

func TestOpacity(t *testing.T) {
	s := Default()
	s.BackdropOpacity = 300
	assert.Equal(t, uint8(255), s.Opacity())
	s.BackdropOpacity = 0
	assert.Equal(t, uint8(0), s.Opacity())
}
