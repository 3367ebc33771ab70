// Package fontmeasure measures text with OpenType fonts at arbitrary scales.
//
// A Face is built from a font and a base size. Every scale gets its own
// font.Face of size base*scale, created on first use and cached, so layout
// passes that retry at shrinking scales only pay for face creation once per
// scale.
//
// Face implements quoteboard.Measurer and render.FaceSource.
package fontmeasure

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Opts is the configuration of a Face.
type Opts struct {
	Size    float64      // Font size in points at scale 1 (default: 24)
	DPI     float64      // Resolution (default: 72, one point per pixel)
	Hinting font.Hinting // Glyph hinting (default: none)
}

// Face measures and draws text with one font at any scale.
type Face struct {
	font *opentype.Font
	opts Opts

	mu    sync.Mutex
	faces map[float64]font.Face
}

// New creates a Face for f. opts can be nil to use defaults.
func New(f *opentype.Font, opts *Opts) (*Face, error) {
	if f == nil {
		return nil, errors.New("fontmeasure: font is required")
	}
	o := Opts{Size: 24, DPI: 72}
	if opts != nil {
		o.Hinting = opts.Hinting
		if opts.Size != 0 {
			o.Size = opts.Size
		}
		if opts.DPI != 0 {
			o.DPI = opts.DPI
		}
	}
	if o.Size <= 0 || o.DPI <= 0 {
		return nil, errors.New("fontmeasure: size and DPI must be positive")
	}
	return &Face{font: f, opts: o, faces: map[float64]font.Face{}}, nil
}

// Parse creates a Face from TrueType or OpenType data.
func Parse(data []byte, opts *Opts) (*Face, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fontmeasure: failed to parse font: %w", err)
	}
	return New(f, opts)
}

// Default creates a Face using Go Italic at size points.
func Default(size float64) (*Face, error) {
	return Parse(goitalic.TTF, &Opts{Size: size})
}

// FaceAt returns the face for scale, creating it on first use.
func (f *Face) FaceAt(scale float64) (font.Face, error) {
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return nil, fmt.Errorf("fontmeasure: invalid scale %v", scale)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.faces == nil {
		return nil, errors.New("fontmeasure: face closed")
	}
	if face, ok := f.faces[scale]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f.font, &opentype.FaceOptions{
		Size:    f.opts.Size * scale,
		DPI:     f.opts.DPI,
		Hinting: f.opts.Hinting,
	})
	if err != nil {
		return nil, fmt.Errorf("fontmeasure: failed to create face at scale %v: %w", scale, err)
	}
	f.faces[scale] = face
	return face, nil
}

// Measure returns the advance width of text at scale, in pixels.
func (f *Face) Measure(text string, scale float64) (float64, error) {
	face, err := f.FaceAt(scale)
	if err != nil {
		return 0, err
	}
	return toFloat(font.MeasureString(face, text)), nil
}

// LineHeight returns the recommended distance between baselines at scale 1, in
// pixels. Use it to derive quoteboard.Config.LineHeight for this face.
func (f *Face) LineHeight() (float64, error) {
	face, err := f.FaceAt(1)
	if err != nil {
		return 0, err
	}
	return toFloat(face.Metrics().Height), nil
}

// Size returns the base size in points.
func (f *Face) Size() float64 {
	return f.opts.Size
}

// Close releases every cached face. The Face cannot be used afterwards.
func (f *Face) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for _, face := range f.faces {
		errs = append(errs, face.Close())
	}
	f.faces = nil
	return errors.Join(errs...)
}

// String returns a string representation of the face.
func (f *Face) String() string {
	return fmt.Sprintf("fontmeasure.Face{%gpt@%gdpi}", f.opts.Size, f.opts.DPI)
}

func toFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
