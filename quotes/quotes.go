// Package quotes holds the list of quotes shown by the board and the cursor
// used to move through it.
package quotes

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
)

// ErrEmpty is returned when a source holds no quote.
var ErrEmpty = errors.New("quotes: no quotes")

// Deck is an ordered list of quotes with a current position. Moving past
// either end wraps around.
type Deck struct {
	quotes []string
	index  int
	rnd    *rand.Rand
}

// New creates a deck from quotes. seed drives Shuffle and Random.
func New(quotes []string, seed uint64) (*Deck, error) {
	if len(quotes) == 0 {
		return nil, ErrEmpty
	}
	return &Deck{
		quotes: quotes,
		rnd:    rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
	}, nil
}

// Load reads one quote per line from r. Surrounding whitespace is trimmed and
// blank lines are skipped.
func Load(r io.Reader, seed uint64) (*Deck, error) {
	var quotes []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		if q := strings.TrimSpace(s.Text()); q != "" {
			quotes = append(quotes, q)
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("quotes: failed to read: %w", err)
	}
	return New(quotes, seed)
}

// LoadFile reads quotes from the file at path, see Load.
func LoadFile(path string, seed uint64) (*Deck, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("quotes: %w", err)
	}
	defer f.Close()

	d, err := Load(f, seed)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return d, nil
}

// Shuffle reorders the quotes with a Fisher-Yates shuffle and moves back to
// the first one.
func (d *Deck) Shuffle() {
	for i := len(d.quotes) - 1; i > 0; i-- {
		j := d.rnd.IntN(i + 1)
		d.quotes[i], d.quotes[j] = d.quotes[j], d.quotes[i]
	}
	d.index = 0
}

// Len returns the number of quotes.
func (d *Deck) Len() int { return len(d.quotes) }

// Index returns the current position.
func (d *Deck) Index() int { return d.index }

// Current returns the quote at the current position.
func (d *Deck) Current() string { return d.quotes[d.index] }

// Next moves to the following quote and returns it.
func (d *Deck) Next() string {
	d.index = (d.index + 1) % len(d.quotes)
	return d.Current()
}

// Prev moves to the preceding quote and returns it.
func (d *Deck) Prev() string {
	d.index = (d.index - 1 + len(d.quotes)) % len(d.quotes)
	return d.Current()
}

// Random moves to a uniformly chosen quote, possibly the current one, and
// returns it.
func (d *Deck) Random() string {
	d.index = d.rnd.IntN(len(d.quotes))
	return d.Current()
}
