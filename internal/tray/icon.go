// Package tray is the resident process's notification-area presence: the
// icon, its menu, and the launcher for the options window.
package tray

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/vector"
)

var (
	iconPurple = color.NRGBA{R: 0x7B, G: 0x2F, B: 0xBE, A: 0xFF}
	iconWhite  = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

// centreRatio is the white centre's radius relative to the icon size.
const centreRatio = 0.18

// Icon renders the tray icon: a purple disc with a white centre, the
// spotlight in miniature. Pixels are straight (non-premultiplied) RGBA.
func Icon(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	if size <= 0 {
		return img
	}

	c := float32(size) / 2
	fill(img, c, c, c-0.5, iconPurple)
	fill(img, c, c, float32(size)*centreRatio, iconWhite)
	return img
}

func fill(dst draw.Image, cx, cy, r float32, col color.Color) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	circle(z, cx, cy, r)
	z.Draw(dst, b, image.NewUniform(col), image.Point{})
}

// circle adds a closed circle path built from four cubic Béziers.
func circle(z *vector.Rasterizer, cx, cy, r float32) {
	const k = 0.5522847 // 4/3 * (sqrt(2) - 1)
	kr := k * r
	z.MoveTo(cx+r, cy)
	z.CubeTo(cx+r, cy+kr, cx+kr, cy+r, cx, cy+r)
	z.CubeTo(cx-kr, cy+r, cx-r, cy+kr, cx-r, cy)
	z.CubeTo(cx-r, cy-kr, cx-kr, cy-r, cx, cy-r)
	z.CubeTo(cx+kr, cy-r, cx+r, cy-kr, cx+r, cy)
	z.ClosePath()
}
