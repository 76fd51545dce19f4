package theme

import (
	"image/color"
	"runtime"

	"gioui.org/unit"
	"gioui.org/widget/material"
)

// Palette defines the window colors.
type Palette struct {
	Background color.NRGBA
	Surface    color.NRGBA
	Primary    color.NRGBA
	Text       color.NRGBA
	TextMuted  color.NRGBA
	Border     color.NRGBA
	Error      color.NRGBA
}

// Config defines spacing and type sizes.
type Config struct {
	CornerRadius unit.Dp
	Spacing      unit.Dp
	Padding      unit.Dp
	FontTitle    unit.Sp
	FontBody     unit.Sp
	FontCaption  unit.Sp
}

// Theme wraps the material theme with the options window styling.
type Theme struct {
	*material.Theme
	Palette Palette
	Config  Config
}

// spotPurple matches the tray icon.
var spotPurple = color.NRGBA{R: 0x7B, G: 0x2F, B: 0xBE, A: 0xFF}

// NewTheme creates a theme for the current OS.
func NewTheme(mtheme *material.Theme) *Theme {
	t := &Theme{Theme: mtheme}

	switch runtime.GOOS {
	case "darwin":
		setupMacOSTheme(t)
	default:
		setupWindowsTheme(t)
	}

	t.Theme.Palette.Bg = t.Palette.Background
	t.Theme.Palette.Fg = t.Palette.Text
	t.Theme.Palette.ContrastBg = t.Palette.Primary
	t.Theme.Palette.ContrastFg = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	t.Theme.TextSize = t.Config.FontBody
	return t
}

func setupWindowsTheme(t *Theme) {
	// Windows 11 light dialog
	t.Palette = Palette{
		Background: color.NRGBA{R: 0xF3, G: 0xF3, B: 0xF3, A: 0xFF},
		Surface:    color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},
		Primary:    spotPurple,
		Text:       color.NRGBA{R: 0x1B, G: 0x1B, B: 0x1B, A: 0xFF},
		TextMuted:  color.NRGBA{R: 0x60, G: 0x60, B: 0x60, A: 0xFF},
		Border:     color.NRGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF},
		Error:      color.NRGBA{R: 0xC4, G: 0x2B, B: 0x1C, A: 0xFF},
	}

	t.Config = Config{
		CornerRadius: unit.Dp(4),
		Spacing:      unit.Dp(8),
		Padding:      unit.Dp(16),
		FontTitle:    unit.Sp(18),
		FontBody:     unit.Sp(14),
		FontCaption:  unit.Sp(12),
	}
}

func setupMacOSTheme(t *Theme) {
	t.Palette = Palette{
		Background: color.NRGBA{R: 0xEC, G: 0xEC, B: 0xEC, A: 0xFF},
		Surface:    color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},
		Primary:    spotPurple,
		Text:       color.NRGBA{R: 0x1D, G: 0x1D, B: 0x1F, A: 0xFF},
		TextMuted:  color.NRGBA{R: 0x86, G: 0x86, B: 0x8B, A: 0xFF},
		Border:     color.NRGBA{R: 0xD2, G: 0xD2, B: 0xD7, A: 0xFF},
		Error:      color.NRGBA{R: 0xFF, G: 0x3B, B: 0x30, A: 0xFF},
	}

	t.Config = Config{
		CornerRadius: unit.Dp(10), // macOS corners are rounder
		Spacing:      unit.Dp(10),
		Padding:      unit.Dp(20),
		FontTitle:    unit.Sp(20),
		FontBody:     unit.Sp(13),
		FontCaption:  unit.Sp(11),
	}
}
