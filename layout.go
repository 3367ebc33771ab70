package quoteboard

import (
	"fmt"
	"math"
	"strings"
)

// ContentBox is the drawable area of a display, in pixels.
type ContentBox struct {
	Width   float64 // Total width, passed through as DrawCommand.BoxWidth
	Height  float64 // Total height
	Padding float64 // Applied on every side
}

// InnerWidth returns the width available to a line of text.
func (b ContentBox) InnerWidth() float64 {
	return b.Width - 2*b.Padding
}

// Validate reports whether the box leaves a usable area once padding is removed.
func (b ContentBox) Validate() error {
	if b.Padding < 0 || isBad(b.Padding) {
		return fmt.Errorf("%w: padding must be a non-negative number", ErrInvalidBox)
	}
	if isBad(b.Width) || b.Width <= 2*b.Padding {
		return fmt.Errorf("%w: width must be greater than twice the padding", ErrInvalidBox)
	}
	if isBad(b.Height) || b.Height <= 2*b.Padding {
		return fmt.Errorf("%w: height must be greater than twice the padding", ErrInvalidBox)
	}
	return nil
}

// DrawCommand is one positioned line of text, ready for a renderer.
//
// X is the left edge of the line and Y its vertical middle. BoxWidth is the
// width the renderer may clip to.
type DrawCommand struct {
	Text     string
	X        float64
	Y        float64
	BoxWidth float64
	Scale    float64
}

// Measurer returns the pixel width of text rendered at scale in the active font.
//
// Implementations must be deterministic. Returning an error, NaN or an infinite
// width aborts the layout with ErrMeasurementUnavailable.
type Measurer interface {
	Measure(text string, scale float64) (float64, error)
}

// MeasureFunc adapts a plain function to a Measurer.
type MeasureFunc func(text string, scale float64) (float64, error)

// Measure calls f(text, scale).
func (f MeasureFunc) Measure(text string, scale float64) (float64, error) {
	return f(text, scale)
}

// Config holds the constants of the wrapping and shrinking schedule.
type Config struct {
	// Row height in pixels at scale 1. Scale it with the base font size.
	LineHeight float64
	// Factor applied to the scale after an overflowing attempt, in (0, 1).
	ShrinkFactor float64
	// Smallest scale that will be attempted.
	MinScale float64
	// Maximum number of attempts, the first one included.
	MaxAttempts int
	// Place words wider than the box on their own row instead of forcing a
	// retry at a smaller scale.
	PlaceOversizeWords bool
}

// DefaultConfig returns the schedule tuned for a 296x128 e-paper badge: 30px
// rows, 10% reduction per retry.
func DefaultConfig() Config {
	return Config{
		LineHeight:   30,
		ShrinkFactor: 0.9,
		MinScale:     0.1,
		MaxAttempts:  32,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.LineHeight == 0 {
		c.LineHeight = def.LineHeight
	}
	if c.ShrinkFactor == 0 {
		c.ShrinkFactor = def.ShrinkFactor
	}
	if c.MinScale == 0 {
		c.MinScale = def.MinScale
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	return c
}

// Validate checks every field of the configuration.
func (c Config) Validate() error {
	if isBad(c.LineHeight) || c.LineHeight <= 0 {
		return fmt.Errorf("%w: line height must be positive", ErrInvalidConfig)
	}
	if isBad(c.ShrinkFactor) || c.ShrinkFactor <= 0 || c.ShrinkFactor >= 1 {
		return fmt.Errorf("%w: shrink factor must be between 0 and 1", ErrInvalidConfig)
	}
	if isBad(c.MinScale) || c.MinScale <= 0 {
		return fmt.Errorf("%w: minimum scale must be positive", ErrInvalidConfig)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: at least one attempt is required", ErrInvalidConfig)
	}
	return nil
}

// Engine lays out text in a fixed content box.
//
// An Engine holds no mutable state; it is safe for concurrent use when its
// Measurer is.
type Engine struct {
	box     ContentBox
	cfg     Config
	measure Measurer
}

// NewEngine creates an engine for box. Zero fields of cfg take their value from
// DefaultConfig.
func NewEngine(box ContentBox, cfg Config, m Measurer) (*Engine, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: measurer is required", ErrInvalidConfig)
	}
	if err := box.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{box: box, cfg: cfg, measure: m}, nil
}

// Layout is a shorthand for NewEngine(box, DefaultConfig(), m) followed by
// Engine.Layout.
func Layout(text string, box ContentBox, scale float64, m Measurer) ([]DrawCommand, error) {
	e, err := NewEngine(box, DefaultConfig(), m)
	if err != nil {
		return nil, err
	}
	return e.Layout(text, scale)
}

// Box returns the content box of the engine.
func (e *Engine) Box() ContentBox {
	return e.box
}

// Config returns the effective configuration of the engine.
func (e *Engine) Config() Config {
	return e.cfg
}

// attemptState is the outcome of packing the text at one scale.
type attemptState int

const (
	statePacking attemptState = iota
	stateOverflowed
	stateFit
	stateFailed
)

// Layout wraps text at the largest scale, starting from scale and shrinking by
// Config.ShrinkFactor, for which all lines fit in the box.
//
// The returned commands are ordered top to bottom and all carry the same scale.
// A *LayoutError wrapping ErrOverflowRetryExhausted is returned when no attempted
// scale fits, and one wrapping ErrMeasurementUnavailable when the measurer fails.
// A starting scale below Config.MinScale is rejected with ErrInvalidScale.
func (e *Engine) Layout(text string, scale float64) ([]DrawCommand, error) {
	if isBad(scale) || scale <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScale, scale)
	}
	if scale < e.cfg.MinScale {
		return nil, fmt.Errorf("%w: %v is below the minimum scale %v", ErrInvalidScale, scale, e.cfg.MinScale)
	}

	words := tokenize(text)
	attempts := 0
	state := statePacking
	var cmds []DrawCommand
	var err error

	for state == statePacking {
		if attempts >= e.cfg.MaxAttempts || scale < e.cfg.MinScale || rowHeight(e.cfg.LineHeight, scale) == 0 {
			return nil, &LayoutError{Kind: ErrOverflowRetryExhausted, Scale: scale, Attempts: attempts}
		}
		attempts++

		cmds, state, err = e.pack(words, scale)
		switch state {
		case stateFailed:
			return nil, &LayoutError{Kind: ErrMeasurementUnavailable, Scale: scale, Attempts: attempts, Cause: err}
		case stateOverflowed:
			scale *= e.cfg.ShrinkFactor
			state = statePacking
		}
	}

	return cmds, nil
}

// pack runs one greedy attempt at scale.
func (e *Engine) pack(words []string, scale float64) ([]DrawCommand, attemptState, error) {
	rh := rowHeight(e.cfg.LineHeight, scale)
	limit := e.box.InnerWidth()

	var cmds []DrawCommand
	row := 0
	line := ""

	for _, word := range words {
		candidate := line
		if line != "" && word != "" {
			candidate += " "
		}
		candidate += word

		width, err := e.width(candidate, scale)
		if err != nil {
			return nil, stateFailed, err
		}
		if width < limit {
			line = candidate
			continue
		}

		if !e.cfg.PlaceOversizeWords {
			alone := width
			if candidate != word {
				if alone, err = e.width(word, scale); err != nil {
					return nil, stateFailed, err
				}
			}
			// The word does not fit even on an empty row at this scale.
			if alone >= limit {
				return nil, stateOverflowed, nil
			}
		}

		cmds = append(cmds, e.command(line, row, rh, scale))
		row++
		if float64(row*rh+rh) >= e.box.Height {
			return nil, stateOverflowed, nil
		}
		line = word
	}

	cmds = append(cmds, e.command(line, row, rh, scale))
	return cmds, stateFit, nil
}

// command positions line on row.
func (e *Engine) command(line string, row, rh int, scale float64) DrawCommand {
	return DrawCommand{
		Text:     line,
		X:        e.box.Padding,
		Y:        float64(row*rh+rh/2) + e.box.Padding,
		BoxWidth: e.box.Width,
		Scale:    scale,
	}
}

// width measures text and rejects non-finite results.
func (e *Engine) width(text string, scale float64) (float64, error) {
	w, err := e.measure.Measure(text, scale)
	if err != nil {
		return 0, err
	}
	if isBad(w) {
		return 0, fmt.Errorf("non-finite width %v for %q", w, text)
	}
	return w, nil
}

// rowHeight returns the height of one row of text at scale, in whole pixels.
func rowHeight(lineHeight, scale float64) int {
	return int(math.Round(lineHeight * scale))
}

// tokenize splits text on single spaces and trims every word.
func tokenize(text string) []string {
	words := strings.Split(text, " ")
	for i, w := range words {
		words[i] = strings.TrimSpace(w)
	}
	return words
}

func isBad(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}
