package panel

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/flavioheleno/quoteboard/gray4"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// SSD1322 command bytes.
const (
	cmdColumnAddr    = 0x15
	cmdWriteRAM      = 0x5C
	cmdRowAddr       = 0x75
	cmdRemap         = 0xA0
	cmdStartLine     = 0xA1
	cmdOffset        = 0xA2
	cmdNormal        = 0xA6
	cmdInverse       = 0xA7
	cmdExitPartial   = 0xA9
	cmdFunction      = 0xAB
	cmdDisplayOff    = 0xAE
	cmdDisplayOn     = 0xAF
	cmdPhaseLength   = 0xB1
	cmdClockDivider  = 0xB3
	cmdVSL           = 0xB4
	cmdSecondPeriod  = 0xB6
	cmdDefaultGray   = 0xB9
	cmdPrecharge     = 0xBB
	cmdVCOMH         = 0xBE
	cmdContrast      = 0xC1
	cmdMasterCurrent = 0xC7
	cmdMuxRatio      = 0xCA
	cmdEnhancement   = 0xD1
	cmdLock          = 0xFD
)

const (
	ramColumns = 480 // Pixels per RAM row
	colPixels  = 4   // Pixels per column address
	maxRows    = 128
)

var errHalted = errors.New("ssd1322: halted")

// Opts is the configuration of the display.
type Opts struct {
	W int // Width in pixels (default: 256, multiple of 4, at most 480)
	H int // Height in pixels (default: 64, at most 128)

	Hz physic.Frequency // SPI clock (default: 10MHz, the controller accepts up to 20MHz)

	Rotated       bool // 180° rotation
	Sequential    bool // Sequential COM pin configuration
	SwapTopBottom bool // Swap top and bottom halves

	RST gpio.PinIO // Optional reset pin
}

// Dev is an SSD1322 display connected over 4-wire SPI.
type Dev struct {
	c   spi.Conn
	dc  gpio.PinOut
	rst gpio.PinIO

	rect      image.Rectangle
	colOffset int // First RAM column address of the visible area

	shown *gray4.Image // What the panel currently displays
	next  *gray4.Image // Scratch frame for Draw

	halted bool
}

var _ display.Drawer = (*Dev)(nil)

// NewSPI opens an SSD1322 on p. dc is the Data/Command pin. opts can be nil
// to use defaults (256x64 panel).
func NewSPI(p spi.Port, dc gpio.PinOut, opts *Opts) (*Dev, error) {
	o, err := opts.resolve()
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, errors.New("ssd1322: dc pin is required")
	}

	c, err := p.Connect(o.Hz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("ssd1322: failed to connect: %w", err)
	}

	d := newDev(c, dc, o)
	if err := d.init(o); err != nil {
		return nil, err
	}
	return d, nil
}

// resolve applies defaults and validates the options.
func (o *Opts) resolve() (Opts, error) {
	r := Opts{W: 256, H: 64, Hz: 10 * physic.MegaHertz}
	if o != nil {
		r = *o
		if r.W == 0 && r.H == 0 {
			r.W, r.H = 256, 64
		}
		if r.Hz == 0 {
			r.Hz = 10 * physic.MegaHertz
		}
	}
	if r.W <= 0 || r.W%colPixels != 0 || r.W > ramColumns {
		return r, errors.New("ssd1322: width must be a multiple of 4 between 4 and 480")
	}
	if r.H <= 0 || r.H > maxRows {
		return r, errors.New("ssd1322: height must be between 1 and 128")
	}
	return r, nil
}

func newDev(c spi.Conn, dc gpio.PinOut, o Opts) *Dev {
	rect := image.Rect(0, 0, o.W, o.H)
	return &Dev{
		c:         c,
		dc:        dc,
		rst:       o.RST,
		rect:      rect,
		colOffset: (ramColumns - o.W) / 2 / colPixels,
		shown:     gray4.NewImage(rect),
		next:      gray4.NewImage(rect),
	}
}

// init resets the controller and sends the power-on sequence.
func (d *Dev) init(o Opts) error {
	if d.rst != nil {
		if err := d.rst.Out(gpio.Low); err != nil {
			return fmt.Errorf("ssd1322: failed to pull RST low: %w", err)
		}
		time.Sleep(200 * time.Millisecond)
		if err := d.rst.Out(gpio.High); err != nil {
			return fmt.Errorf("ssd1322: failed to pull RST high: %w", err)
		}
		time.Sleep(200 * time.Millisecond)
	}

	remapA, remapB := byte(0x14), byte(0x11)
	if o.Rotated {
		remapA = 0x06
	}
	if o.Sequential {
		remapB |= 0x01
	}
	if o.SwapTopBottom {
		remapB |= 0x02
	}

	seq := []byte{
		cmdLock, 0x12,
		cmdDisplayOff,
		cmdClockDivider, 0xF2,
		cmdMuxRatio, byte(o.H - 1),
		cmdOffset, 0x00,
		cmdStartLine, 0x00,
		cmdRemap, remapA, remapB,
		cmdFunction, 0x01, // Internal VDD
		cmdVSL, 0xA0, 0xFD,
		cmdContrast, 0xFF,
		cmdMasterCurrent, 0x0F,
		cmdDefaultGray,
		cmdPhaseLength, 0xE2,
		cmdEnhancement, 0x82, 0x20,
		cmdPrecharge, 0x1F,
		cmdSecondPeriod, 0x08,
		cmdVCOMH, 0x07,
		cmdNormal,
		cmdExitPartial,
	}
	if err := d.command(seq...); err != nil {
		return err
	}
	// RAM content is undefined after reset.
	if err := d.writeRect(d.rect, d.shown.Pix); err != nil {
		return err
	}
	return d.command(cmdDisplayOn)
}

func (d *Dev) command(b ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	return d.c.Tx(b, nil)
}

func (d *Dev) data(b []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	return d.c.Tx(b, nil)
}

// writeRect streams pix, packed row by row, into the RAM window r. r must be
// aligned on 4 pixel columns.
func (d *Dev) writeRect(r image.Rectangle, pix []byte) error {
	err := d.command(
		cmdColumnAddr, byte(d.colOffset+r.Min.X/colPixels), byte(d.colOffset+(r.Max.X-1)/colPixels),
		cmdRowAddr, byte(r.Min.Y), byte(r.Max.Y-1),
		cmdWriteRAM,
	)
	if err != nil {
		return err
	}
	return d.data(pix)
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return gray4.Model
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Write sends a full frame of packed pixels, two per byte, to the display.
func (d *Dev) Write(pix []byte) (int, error) {
	if d.halted {
		return 0, errHalted
	}
	if len(pix) != len(d.shown.Pix) {
		return 0, errors.New("ssd1322: invalid buffer size")
	}
	if err := d.writeRect(d.rect, pix); err != nil {
		return 0, err
	}
	copy(d.shown.Pix, pix)
	return len(pix), nil
}

// Draw implements display.Drawer. Only the smallest 4-pixel aligned rectangle
// containing changed pixels is sent to the controller.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted {
		return errHalted
	}
	dst = dst.Intersect(d.rect)
	if dst.Empty() {
		return nil
	}

	if img, ok := src.(*gray4.Image); ok && dst == d.rect && img.Rect == d.rect && sp == d.rect.Min {
		copy(d.next.Pix, img.Pix)
	} else {
		copy(d.next.Pix, d.shown.Pix)
		draw.Draw(d.next, dst, src, sp, draw.Src)
	}

	r := dirtyRect(d.shown, d.next)
	if r.Empty() {
		return nil
	}
	if err := d.writeRect(r, region(d.next, r)); err != nil {
		return err
	}
	d.shown, d.next = d.next, d.shown
	return nil
}

// dirtyRect returns the rectangle, widened to whole column addresses, that
// holds every pixel differing between a and b.
func dirtyRect(a, b *gray4.Image) image.Rectangle {
	var r image.Rectangle
	for y := a.Rect.Min.Y; y < a.Rect.Max.Y; y++ {
		row := (y - a.Rect.Min.Y) * a.Stride
		for i := 0; i < a.Stride; i++ {
			if a.Pix[row+i] == b.Pix[row+i] {
				continue
			}
			x := a.Rect.Min.X + i*2
			r = r.Union(image.Rect(x, y, x+2, y+1))
		}
	}
	if r.Empty() {
		return r
	}
	r.Min.X -= r.Min.X % colPixels
	if rem := r.Max.X % colPixels; rem != 0 {
		r.Max.X += colPixels - rem
	}
	return r.Intersect(a.Rect)
}

// region copies the packed pixels of r out of img.
func region(img *gray4.Image, r image.Rectangle) []byte {
	w := r.Dx() / 2
	out := make([]byte, 0, w*r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		start := (y-img.Rect.Min.Y)*img.Stride + (r.Min.X-img.Rect.Min.X)/2
		out = append(out, img.Pix[start:start+w]...)
	}
	return out
}

// SetContrast sets the segment output current, 0 to 255.
func (d *Dev) SetContrast(level byte) error {
	if d.halted {
		return errHalted
	}
	return d.command(cmdContrast, level)
}

// Invert swaps dark and bright pixels.
func (d *Dev) Invert(invert bool) error {
	if d.halted {
		return errHalted
	}
	if invert {
		return d.command(cmdInverse)
	}
	return d.command(cmdNormal)
}

// Halt turns the display off. The device must be opened again to be used.
func (d *Dev) Halt() error {
	d.halted = true
	return d.command(cmdDisplayOff)
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("ssd1322.Dev{%dx%d}", d.rect.Dx(), d.rect.Dy())
}
