// Package render draws laid out text into an image.
//
// A Renderer executes quoteboard.DrawCommand values: X is the left edge of a
// line, Y its vertical middle and BoxWidth the right clipping edge. Glyphs are
// antialiased, so on a gray4.Image they use the whole 16 level range.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/flavioheleno/quoteboard"
	"github.com/flavioheleno/quoteboard/gray4"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// FaceSource returns the font face to use at a given scale.
//
// It must be the same font the layout was measured with.
type FaceSource interface {
	FaceAt(scale float64) (font.Face, error)
}

// FaceSourceFunc adapts a plain function to a FaceSource.
type FaceSourceFunc func(scale float64) (font.Face, error)

// FaceAt calls f(scale).
func (f FaceSourceFunc) FaceAt(scale float64) (font.Face, error) {
	return f(scale)
}

// Opts is the configuration of a Renderer.
type Opts struct {
	Foreground color.Color // Text color (default: gray4.White)
	Background color.Color // Clear color (default: gray4.Black)
}

// Renderer draws DrawCommand values with fonts from a FaceSource.
type Renderer struct {
	faces FaceSource
	fg    image.Image
	bg    image.Image
}

// New creates a Renderer. opts can be nil to draw white text on black, which
// is what an OLED panel shows best.
func New(faces FaceSource, opts *Opts) (*Renderer, error) {
	if faces == nil {
		return nil, errors.New("render: face source is required")
	}
	var fg, bg color.Color = gray4.White, gray4.Black
	if opts != nil {
		if opts.Foreground != nil {
			fg = opts.Foreground
		}
		if opts.Background != nil {
			bg = opts.Background
		}
	}
	return &Renderer{
		faces: faces,
		fg:    image.NewUniform(fg),
		bg:    image.NewUniform(bg),
	}, nil
}

// Render clears dst and draws cmds on it, in order.
func (r *Renderer) Render(dst draw.Image, cmds []quoteboard.DrawCommand) error {
	r.Clear(dst)
	for i, cmd := range cmds {
		if err := r.Draw(dst, cmd); err != nil {
			return fmt.Errorf("render: line %d: %w", i, err)
		}
	}
	return nil
}

// Clear fills dst with the background color.
func (r *Renderer) Clear(dst draw.Image) {
	draw.Draw(dst, dst.Bounds(), r.bg, image.Point{}, draw.Src)
}

// Draw draws a single command over the current content of dst.
func (r *Renderer) Draw(dst draw.Image, cmd quoteboard.DrawCommand) error {
	if cmd.Text == "" {
		return nil
	}
	face, err := r.faces.FaceAt(cmd.Scale)
	if err != nil {
		return err
	}

	b := dst.Bounds()
	clip := image.Rectangle{Min: b.Min, Max: image.Pt(int(math.Floor(cmd.BoxWidth)), b.Max.Y)}.Intersect(b)
	if clip.Empty() {
		return nil
	}

	// Center the ascent to descent span on Y.
	m := face.Metrics()
	baseline := toFixed(cmd.Y) + (m.Ascent-m.Descent)/2

	d := font.Drawer{
		Dst:  clipped{Image: dst, r: clip},
		Src:  r.fg,
		Face: face,
		Dot:  fixed.Point26_6{X: toFixed(cmd.X), Y: baseline},
	}
	d.DrawString(cmd.Text)
	return nil
}

// clipped restricts drawing on an image to r.
type clipped struct {
	draw.Image
	r image.Rectangle
}

func (c clipped) Bounds() image.Rectangle { return c.r }

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
