// Package panel drives the SSD1322 OLED controller over SPI.
//
// The SSD1322 is a 4-bit grayscale controller with a 480x128 pixel RAM; common
// modules expose 256x64 or 128x64 of it. The visible area is centered in RAM
// and addressed in groups of 4 pixels.
//
// Dev implements display.Drawer from periph.io, and Draw only transfers the
// smallest rectangle of changed pixels, so redrawing a quote that shares lines
// with the previous one costs a fraction of a full frame.
//
// # Hardware Connection
//
//	Display Pin → System Pin
//	GND         → GND
//	VCC         → 3.3V
//	SCL/CLK     → SPI Clock (SCLK)
//	SDA/MOSI    → SPI Data (MOSI)
//	DC          → any GPIO
//	CS          → SPI Chip Select (or GND)
//	RES         → optional GPIO
//
// # Basic Usage
//
//	if _, err := host.Init(); err != nil {
//		log.Fatal(err)
//	}
//	p, _ := spireg.Open("")
//	defer p.Close()
//
//	dev, _ := panel.NewSPI(p, gpioreg.ByName("GPIO25"), &panel.Opts{W: 256, H: 64})
//	defer dev.Halt()
//
//	frame := gray4.NewImage(dev.Bounds())
//	frame.Fill(gray4.White)
//	dev.Draw(dev.Bounds(), frame, image.Point{})
//
// When a reset pin is given in Opts.RST, NewSPI pulls it low for 200ms before
// initialization. Otherwise the controller relies on its power-on reset.
//
// # Datasheet
//
// https://www.displayfuture.com/Display/datasheet/controller/SSD1322.pdf
package panel
