// Package board runs a quote board: it shows one quote at a time on a panel,
// dims the panel while nobody interacts with it and moves through the quotes
// on button presses.
package board

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/flavioheleno/quoteboard"
	"github.com/flavioheleno/quoteboard/gray4"
	"github.com/flavioheleno/quoteboard/quotes"
	"github.com/flavioheleno/quoteboard/render"
)

// ErrNothingFits is returned by Show when no quote of the deck fits the panel.
var ErrNothingFits = errors.New("board: no quote fits the display")

// Panel is the display a Board draws on. *panel.Dev implements it.
type Panel interface {
	Bounds() image.Rectangle
	Draw(dst image.Rectangle, src image.Image, sp image.Point) error
	SetContrast(level byte) error
	Halt() error
}

// Action is a navigation request, usually coming from a button.
type Action int

const (
	ActionNext Action = iota + 1
	ActionPrev
	ActionRandom
)

func (a Action) String() string {
	switch a {
	case ActionNext:
		return "next"
	case ActionPrev:
		return "prev"
	case ActionRandom:
		return "random"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Opts is the configuration of a Board.
type Opts struct {
	StartScale  float64       // Scale of the first layout attempt (default: 1)
	Cooldown    time.Duration // Time to fade from full to minimum contrast (default: 30s)
	FadeSteps   int           // Contrast steps of the fade (default: 15)
	MaxContrast byte          // Contrast while active (default: 255)
	MinContrast byte          // Contrast at the end of the fade
	Logger      *slog.Logger  // Default: slog.Default()
}

// Board shows the quotes of a deck on a panel.
//
// A Board is not safe for concurrent use; Run owns it until it returns.
type Board struct {
	panel    Panel
	engine   *quoteboard.Engine
	renderer *render.Renderer
	deck     *quotes.Deck
	frame    *gray4.Image
	opts     Opts
	log      *slog.Logger
}

// New creates a Board. opts can be nil to use the defaults.
func New(p Panel, e *quoteboard.Engine, r *render.Renderer, d *quotes.Deck, opts *Opts) (*Board, error) {
	if p == nil || e == nil || r == nil || d == nil {
		return nil, errors.New("board: panel, engine, renderer and deck are required")
	}
	o := Opts{}
	if opts != nil {
		o = *opts
	}
	if o.StartScale == 0 {
		o.StartScale = 1
	}
	if o.Cooldown == 0 {
		o.Cooldown = 30 * time.Second
	}
	if o.FadeSteps == 0 {
		o.FadeSteps = 15
	}
	if o.MaxContrast == 0 {
		o.MaxContrast = 255
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.StartScale < 0 || o.Cooldown < 0 || o.FadeSteps < 0 {
		return nil, errors.New("board: start scale, cooldown and fade steps must not be negative")
	}
	if o.MinContrast > o.MaxContrast {
		return nil, fmt.Errorf("board: minimum contrast %d above maximum %d", o.MinContrast, o.MaxContrast)
	}
	return &Board{
		panel:    p,
		engine:   e,
		renderer: r,
		deck:     d,
		frame:    gray4.NewImage(p.Bounds()),
		opts:     o,
		log:      o.Logger,
	}, nil
}

// Frame returns the last frame sent to the panel.
func (b *Board) Frame() *gray4.Image {
	return b.frame
}

// Show draws the current quote. A quote that does not fit at any scale is
// skipped in favor of the next one.
func (b *Board) Show() error {
	return b.show(b.deck.Next)
}

// Apply moves through the deck according to a and draws the new quote.
func (b *Board) Apply(a Action) error {
	switch a {
	case ActionNext:
		b.deck.Next()
		return b.show(b.deck.Next)
	case ActionPrev:
		b.deck.Prev()
		return b.show(b.deck.Prev)
	case ActionRandom:
		b.deck.Random()
		return b.show(b.deck.Next)
	}
	return fmt.Errorf("board: unknown action %v", a)
}

// show draws the current quote, calling skip to move away from quotes that
// overflow. skip must step through the deck one quote at a time so that every
// quote is tried once before giving up.
func (b *Board) show(skip func() string) error {
	for range b.deck.Len() {
		q := b.deck.Current()
		cmds, err := b.engine.Layout(decorate(q), b.opts.StartScale)
		if errors.Is(err, quoteboard.ErrOverflowRetryExhausted) {
			b.log.Warn("quote does not fit, skipping", "index", b.deck.Index(), "error", err)
			skip()
			continue
		}
		if err != nil {
			return fmt.Errorf("board: quote %d: %w", b.deck.Index(), err)
		}

		if err := b.renderer.Render(b.frame, cmds); err != nil {
			return fmt.Errorf("board: %w", err)
		}
		if err := b.panel.Draw(b.frame.Bounds(), b.frame, b.frame.Bounds().Min); err != nil {
			return fmt.Errorf("board: %w", err)
		}
		b.log.Info("showing quote", "index", b.deck.Index(), "lines", len(cmds), "scale", cmds[0].Scale)
		return nil
	}
	return ErrNothingFits
}

// decorate wraps a quote in double quotes.
func decorate(q string) string {
	return `"` + q + `"`
}

// fadeLevel returns the contrast after step of the fade.
func (b *Board) fadeLevel(step int) byte {
	hi, lo := int(b.opts.MaxContrast), int(b.opts.MinContrast)
	if step >= b.opts.FadeSteps {
		return byte(lo)
	}
	return byte(hi - (hi-lo)*step/b.opts.FadeSteps)
}

// Run shows the current quote and then serves actions until ctx is done or
// actions is closed. The panel fades to MinContrast over Cooldown after the
// last action and goes back to MaxContrast on the next one.
func (b *Board) Run(ctx context.Context, actions <-chan Action) error {
	if err := b.panel.SetContrast(b.opts.MaxContrast); err != nil {
		return fmt.Errorf("board: %w", err)
	}
	if err := b.Show(); err != nil {
		return err
	}

	interval := time.Duration(0)
	if b.opts.FadeSteps > 0 {
		interval = b.opts.Cooldown / time.Duration(b.opts.FadeSteps)
	}
	var (
		fade <-chan time.Time
		t    *time.Ticker
	)
	if interval > 0 {
		t = time.NewTicker(interval)
		defer t.Stop()
		fade = t.C
	}
	step := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case a, ok := <-actions:
			if !ok {
				return nil
			}
			b.log.Debug("action", "action", a)
			if step > 0 {
				if err := b.panel.SetContrast(b.opts.MaxContrast); err != nil {
					return fmt.Errorf("board: %w", err)
				}
			}
			step = 0
			if t != nil {
				t.Reset(interval)
				fade = t.C
			}
			if err := b.Apply(a); err != nil {
				return err
			}

		case <-fade:
			step++
			if err := b.panel.SetContrast(b.fadeLevel(step)); err != nil {
				return fmt.Errorf("board: %w", err)
			}
			if step >= b.opts.FadeSteps {
				b.log.Debug("cooldown done", "contrast", b.opts.MinContrast)
				fade = nil
			}
		}
	}
}

// Close halts the panel.
func (b *Board) Close() error {
	return b.panel.Halt()
}
