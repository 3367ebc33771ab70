package panel

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"github.com/flavioheleno/quoteboard/gray4"
	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// op is one SPI transaction, tagged with the level of the DC pin.
type op struct {
	Data bool
	B    []byte
}

type fakeConn struct {
	dc  *gpiotest.Pin
	ops []op
	hz  physic.Frequency
}

func (c *fakeConn) String() string { return "fakeConn" }

func (c *fakeConn) Tx(w, r []byte) error {
	c.ops = append(c.ops, op{Data: c.dc.Read() == gpio.High, B: append([]byte(nil), w...)})
	return nil
}

func (c *fakeConn) Duplex() conn.Duplex { return conn.Half }

func (c *fakeConn) TxPackets(p []spi.Packet) error { return errors.New("not supported") }

type fakePort struct {
	c   *fakeConn
	err error
}

func (p *fakePort) String() string { return "fakePort" }

func (p *fakePort) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.c.hz = f
	return p.c, nil
}

func (p *fakePort) LimitSpeed(f physic.Frequency) error { return nil }

// newTestDev returns a 256x64 device that records its SPI traffic.
func newTestDev() (*Dev, *fakeConn) {
	dc := &gpiotest.Pin{N: "DC"}
	c := &fakeConn{dc: dc}
	o, _ := (*Opts)(nil).resolve()
	return newDev(c, dc, o), c
}

func TestOptsValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    *Opts
		wantW   int
		wantH   int
		wantErr bool
	}{
		{"nil options (uses defaults)", nil, 256, 64, false},
		{"zero options (uses defaults)", &Opts{}, 256, 64, false},
		{"valid 128x64", &Opts{W: 128, H: 64}, 128, 64, false},
		{"valid 480x128", &Opts{W: 480, H: 128}, 480, 128, false},
		{"valid 4x1 (minimum)", &Opts{W: 4, H: 1}, 4, 1, false},
		{"odd width", &Opts{W: 255, H: 64}, 0, 0, true},
		{"width not on a column", &Opts{W: 258, H: 64}, 0, 0, true},
		{"width zero", &Opts{W: 0, H: 64}, 0, 0, true},
		{"width > 480", &Opts{W: 512, H: 64}, 0, 0, true},
		{"height zero", &Opts{W: 256, H: 0}, 0, 0, true},
		{"height > 128", &Opts{W: 256, H: 200}, 0, 0, true},
		{"rotated", &Opts{W: 256, H: 64, Rotated: true}, 256, 64, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := tt.opts.resolve()
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolve() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if o.W != tt.wantW || o.H != tt.wantH {
				t.Errorf("resolve() = %dx%d, want %dx%d", o.W, o.H, tt.wantW, tt.wantH)
			}
			if o.Hz != 10*physic.MegaHertz {
				t.Errorf("resolve().Hz = %v, want 10MHz", o.Hz)
			}
		})
	}
}

func TestNewSPI(t *testing.T) {
	dc := &gpiotest.Pin{N: "DC"}
	c := &fakeConn{dc: dc}

	dev, err := NewSPI(&fakePort{c: c}, dc, nil)
	if err != nil {
		t.Fatalf("NewSPI() error = %v", err)
	}
	if c.hz != 10*physic.MegaHertz {
		t.Errorf("SPI clock = %v, want 10MHz", c.hz)
	}
	if len(c.ops) < 4 {
		t.Fatalf("got %d transactions, want at least 4", len(c.ops))
	}

	first := c.ops[0]
	if first.Data || !bytes.HasPrefix(first.B, []byte{cmdLock, 0x12, cmdDisplayOff}) {
		t.Errorf("first transaction = %+v, want the unlock command", first)
	}
	clearing := c.ops[len(c.ops)-2]
	if !clearing.Data || len(clearing.B) != 256*64/2 {
		t.Errorf("RAM clear = %d bytes (data %v), want %d data bytes", len(clearing.B), clearing.Data, 256*64/2)
	}
	last := c.ops[len(c.ops)-1]
	if diff := cmp.Diff(op{B: []byte{cmdDisplayOn}}, last); diff != "" {
		t.Errorf("last transaction mismatch (-want +got):\n%s", diff)
	}
	if got := dev.String(); got != "ssd1322.Dev{256x64}" {
		t.Errorf("String() = %q", got)
	}
}

func TestNewSPIMuxRatio(t *testing.T) {
	dc := &gpiotest.Pin{N: "DC"}
	c := &fakeConn{dc: dc}
	if _, err := NewSPI(&fakePort{c: c}, dc, &Opts{W: 128, H: 32}); err != nil {
		t.Fatalf("NewSPI() error = %v", err)
	}
	i := bytes.IndexByte(c.ops[0].B, cmdMuxRatio)
	if i < 0 || c.ops[0].B[i+1] != 31 {
		t.Errorf("init sequence % X does not set a mux ratio of 31", c.ops[0].B)
	}
}

func TestNewSPIErrors(t *testing.T) {
	dc := &gpiotest.Pin{N: "DC"}
	boom := errors.New("bus busy")

	if _, err := NewSPI(&fakePort{c: &fakeConn{dc: dc}}, nil, nil); err == nil {
		t.Error("NewSPI() should fail without a DC pin")
	}
	if _, err := NewSPI(&fakePort{c: &fakeConn{dc: dc}, err: boom}, dc, nil); !errors.Is(err, boom) {
		t.Errorf("NewSPI() error = %v, want %v", err, boom)
	}
	if _, err := NewSPI(&fakePort{c: &fakeConn{dc: dc}}, dc, &Opts{W: 6, H: 8}); err == nil {
		t.Error("NewSPI() should fail with an invalid width")
	}
}

func TestDevBounds(t *testing.T) {
	dev, _ := newTestDev()
	if got, want := dev.Bounds(), image.Rect(0, 0, 256, 64); got != want {
		t.Errorf("Bounds() = %v, want %v", got, want)
	}
	if dev.ColorModel() != gray4.Model {
		t.Error("ColorModel() did not return gray4.Model")
	}
}

func TestDevColumnOffset(t *testing.T) {
	tests := []struct {
		width      int
		wantOffset int
	}{
		{256, 28},
		{128, 44},
		{480, 0},
		{64, 52},
	}

	for _, tt := range tests {
		dev := newDev(nil, nil, Opts{W: tt.width, H: 64})
		if dev.colOffset != tt.wantOffset {
			t.Errorf("column offset for width %d = %d, want %d", tt.width, dev.colOffset, tt.wantOffset)
		}
	}
}

func TestDrawSendsChangedRect(t *testing.T) {
	dev, c := newTestDev()
	img := gray4.NewImage(dev.Bounds())
	img.SetGray(5, 3, gray4.White)

	if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}

	want := []op{
		{B: []byte{cmdColumnAddr, 29, 29, cmdRowAddr, 3, 3, cmdWriteRAM}},
		{Data: true, B: []byte{0x0F, 0x00}},
	}
	if diff := cmp.Diff(want, c.ops); diff != "" {
		t.Errorf("Draw() traffic mismatch (-want +got):\n%s", diff)
	}
	if dev.shown.GrayAt(5, 3) != gray4.White {
		t.Error("Draw() did not record the displayed frame")
	}
}

func TestDrawNoChanges(t *testing.T) {
	dev, c := newTestDev()
	img := gray4.NewImage(dev.Bounds())

	if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(c.ops) != 0 {
		t.Errorf("Draw() of an unchanged frame sent %d transactions", len(c.ops))
	}
}

func TestDrawTwiceSendsOnlyDifference(t *testing.T) {
	dev, c := newTestDev()
	img := gray4.NewImage(dev.Bounds())
	img.Fill(gray4.White)
	if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if got := len(c.ops[1].B); got != 256*64/2 {
		t.Fatalf("first Draw() sent %d bytes, want a full frame", got)
	}

	c.ops = nil
	img.SetGray(200, 60, gray4.Black)
	if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	want := []op{
		{B: []byte{cmdColumnAddr, 78, 78, cmdRowAddr, 60, 60, cmdWriteRAM}},
		{Data: true, B: []byte{0x0F, 0xFF}},
	}
	if diff := cmp.Diff(want, c.ops); diff != "" {
		t.Errorf("Draw() traffic mismatch (-want +got):\n%s", diff)
	}
}

func TestDrawPartialSource(t *testing.T) {
	dev, c := newTestDev()
	src := image.NewUniform(gray4.Gray(8))

	if err := dev.Draw(image.Rect(8, 8, 16, 10), src, image.Point{}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(c.ops) != 2 {
		t.Fatalf("Draw() sent %d transactions, want 2", len(c.ops))
	}
	if diff := cmp.Diff([]byte{cmdColumnAddr, 30, 31, cmdRowAddr, 8, 9, cmdWriteRAM}, c.ops[0].B); diff != "" {
		t.Errorf("address window mismatch (-want +got):\n%s", diff)
	}
	if !bytes.Equal(c.ops[1].B, bytes.Repeat([]byte{0x88}, 8)) {
		t.Errorf("data = % X, want 8 bytes of 0x88", c.ops[1].B)
	}
}

func TestDirtyRect(t *testing.T) {
	rect := image.Rect(0, 0, 16, 4)
	tests := []struct {
		name   string
		points []image.Point
		want   image.Rectangle
	}{
		{"no change", nil, image.Rectangle{}},
		{"first pixel", []image.Point{{0, 0}}, image.Rect(0, 0, 4, 1)},
		{"pixel in second column", []image.Point{{6, 2}}, image.Rect(4, 2, 8, 3)},
		{"spread", []image.Point{{3, 0}, {12, 3}}, image.Rect(0, 0, 16, 4)},
		{"last pixel", []image.Point{{15, 3}}, image.Rect(12, 3, 16, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := gray4.NewImage(rect), gray4.NewImage(rect)
			for _, p := range tt.points {
				b.SetGray(p.X, p.Y, 3)
			}
			if got := dirtyRect(a, b); got != tt.want {
				t.Errorf("dirtyRect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegion(t *testing.T) {
	img := gray4.NewImage(image.Rect(0, 0, 8, 2))
	copy(img.Pix, []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77})

	got := region(img, image.Rect(4, 0, 8, 2))
	if want := []byte{0x22, 0x33, 0x66, 0x77}; !bytes.Equal(got, want) {
		t.Errorf("region() = % X, want % X", got, want)
	}
}

func TestWriteInvalidBufferSize(t *testing.T) {
	dev, _ := newTestDev()
	for _, n := range []int{0, 100, 256*64/2 - 1, 256*64/2 + 1} {
		_, err := dev.Write(make([]byte, n))
		if err == nil || err.Error() != "ssd1322: invalid buffer size" {
			t.Errorf("Write(%d bytes) error = %v, want 'ssd1322: invalid buffer size'", n, err)
		}
	}
}

func TestWriteFullFrame(t *testing.T) {
	dev, c := newTestDev()
	pix := bytes.Repeat([]byte{0xAA}, 256*64/2)

	n, err := dev.Write(pix)
	if err != nil || n != len(pix) {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if diff := cmp.Diff([]byte{cmdColumnAddr, 28, 91, cmdRowAddr, 0, 63, cmdWriteRAM}, c.ops[0].B); diff != "" {
		t.Errorf("address window mismatch (-want +got):\n%s", diff)
	}
	if dev.shown.GrayAt(0, 0) != 0x0A {
		t.Error("Write() did not record the displayed frame")
	}
}

func TestContrastAndInvert(t *testing.T) {
	dev, c := newTestDev()
	if err := dev.SetContrast(0x40); err != nil {
		t.Fatalf("SetContrast() error = %v", err)
	}
	if err := dev.Invert(true); err != nil {
		t.Fatalf("Invert() error = %v", err)
	}
	if err := dev.Invert(false); err != nil {
		t.Fatalf("Invert() error = %v", err)
	}

	want := []op{
		{B: []byte{cmdContrast, 0x40}},
		{B: []byte{cmdInverse}},
		{B: []byte{cmdNormal}},
	}
	if diff := cmp.Diff(want, c.ops); diff != "" {
		t.Errorf("traffic mismatch (-want +got):\n%s", diff)
	}
}

func TestDevHalt(t *testing.T) {
	dev, c := newTestDev()
	if err := dev.Halt(); err != nil {
		t.Fatalf("Halt() error = %v", err)
	}
	if diff := cmp.Diff([]op{{B: []byte{cmdDisplayOff}}}, c.ops); diff != "" {
		t.Errorf("Halt() traffic mismatch (-want +got):\n%s", diff)
	}

	if err := dev.SetContrast(100); !errors.Is(err, errHalted) {
		t.Errorf("SetContrast() error = %v, want halted", err)
	}
	if err := dev.Invert(true); !errors.Is(err, errHalted) {
		t.Errorf("Invert() error = %v, want halted", err)
	}
	if _, err := dev.Write(make([]byte, 256*64/2)); !errors.Is(err, errHalted) {
		t.Errorf("Write() error = %v, want halted", err)
	}
	if err := dev.Draw(dev.Bounds(), image.NewRGBA(dev.Bounds()), image.Point{}); !errors.Is(err, errHalted) {
		t.Errorf("Draw() error = %v, want halted", err)
	}
}
