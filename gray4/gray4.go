// Package gray4 is the 4-bit grayscale frame format used by the board.
//
// Pixels are packed two per byte along each row, the left pixel in the high
// nibble, which is the order SSD1322 controllers expect in their RAM:
//
//	Pixels: 0  1  2  3
//	Values: 5  10 3  12
//	Bytes:  0x5A  0x3C
//
// Image implements draw.Image, so text can be drawn on it with a font.Drawer
// and it can be handed to any periph.io display.Drawer.
package gray4

import (
	"bytes"
	"image"
	"image/color"
)

// Gray is a gray level from 0 (off) to 15 (full intensity). Higher bits are
// ignored.
type Gray uint8

const (
	Black Gray = 0  // Pixel off
	White Gray = 15 // Full intensity
)

// RGBA implements color.Color. Level n maps to n*0x1111 on every channel.
func (g Gray) RGBA() (r, gg, b, a uint32) {
	y := uint32(g&0x0F) * 0x1111
	return y, y, y, 0xFFFF
}

// Model converts any color to Gray using the ITU-R BT.601 luma weights.
var Model = color.ModelFunc(convert)

func convert(c color.Color) color.Color {
	if g, ok := c.(Gray); ok {
		return g & 0x0F
	}
	r, g, b, _ := c.RGBA()
	y := (299*r + 587*g + 114*b + 500) / 1000
	return Gray(y >> 12)
}

// Image is an in-memory Gray image.
type Image struct {
	Pix    []byte          // Two pixels per byte, left pixel in the high nibble
	Stride int             // Bytes per row
	Rect   image.Rectangle // Bounds
}

// NewImage returns a black image with bounds r. An odd width leaves the low
// nibble of the last byte of every row unused.
func NewImage(r image.Rectangle) *Image {
	if r.Empty() {
		return &Image{Rect: r}
	}
	stride := (r.Dx() + 1) / 2
	return &Image{
		Pix:    make([]byte, stride*r.Dy()),
		Stride: stride,
		Rect:   r,
	}
}

// ColorModel returns the color model of the image.
func (p *Image) ColorModel() color.Model { return Model }

// Bounds returns the bounds of the image.
func (p *Image) Bounds() image.Rectangle { return p.Rect }

// Opaque reports true; Gray has no alpha.
func (p *Image) Opaque() bool { return true }

// At returns the color at (x, y) as a Gray.
func (p *Image) At(x, y int) color.Color { return p.GrayAt(x, y) }

// GrayAt returns the level at (x, y), or Black outside the bounds.
func (p *Image) GrayAt(x, y int) Gray {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return Black
	}
	i, shift := p.offset(x, y)
	return Gray(p.Pix[i]>>shift) & 0x0F
}

// Set converts c to Gray and sets it at (x, y).
func (p *Image) Set(x, y int, c color.Color) {
	p.SetGray(x, y, Model.Convert(c).(Gray))
}

// SetGray sets the level at (x, y). Points outside the bounds are ignored.
func (p *Image) SetGray(x, y int, g Gray) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	i, shift := p.offset(x, y)
	p.Pix[i] = p.Pix[i]&^(0x0F<<shift) | byte(g&0x0F)<<shift
}

// Fill sets every pixel to g.
func (p *Image) Fill(g Gray) {
	v := byte(g&0x0F) * 0x11
	for i := range p.Pix {
		p.Pix[i] = v
	}
}

// Clear sets every pixel to Black.
func (p *Image) Clear() {
	clear(p.Pix)
}

// Equal reports whether p and q have the same bounds and pixels.
func (p *Image) Equal(q *Image) bool {
	return p.Rect == q.Rect && bytes.Equal(p.Pix, q.Pix)
}

// offset returns the byte index and the bit shift of the pixel at (x, y).
func (p *Image) offset(x, y int) (int, uint) {
	dx := x - p.Rect.Min.X
	i := (y-p.Rect.Min.Y)*p.Stride + dx/2
	if dx&1 == 0 {
		return i, 4
	}
	return i, 0
}
