// Package quoteboard lays out free text on a small fixed-size pixel display.
//
// The engine wraps words greedily into lines and, when the lines overflow the
// display, retries at a smaller font scale until the text fits. It never draws
// anything itself: it measures text through a Measurer and returns a list of
// DrawCommand values for a renderer to execute.
//
// # Algorithm
//
// Every attempt at scale s works on the text split at single spaces:
//
//   - the row height is round(Config.LineHeight * s);
//   - words are appended to the current line while the line stays narrower
//     than the inner width of the box (Width - 2*Padding);
//   - the word that would overflow the line starts the next row;
//   - when the next row would reach the bottom of the box, the attempt is
//     abandoned and the whole text is laid out again at s * Config.ShrinkFactor.
//
// Lines are never broken inside a word. A word that is wider than the box on
// its own forces a smaller scale, unless Config.PlaceOversizeWords is set, in
// which case it is placed on its own row and left for the renderer to clip.
//
// The retry loop is bounded by Config.MaxAttempts and Config.MinScale. When
// neither bound allows another attempt, Layout returns a *LayoutError wrapping
// ErrOverflowRetryExhausted.
//
// # Basic Usage
//
//	face, _ := fontmeasure.Default(24)
//	defer face.Close()
//
//	box := quoteboard.ContentBox{Width: 256, Height: 64, Padding: 4}
//	engine, _ := quoteboard.NewEngine(box, quoteboard.Config{LineHeight: 26}, face)
//
//	cmds, err := engine.Layout("Simplicity is prerequisite for reliability.", 1)
//	if errors.Is(err, quoteboard.ErrOverflowRetryExhausted) {
//		// Truncate the text, use a bigger display or show an error glyph.
//	}
//	for _, cmd := range cmds {
//		fmt.Printf("%q at (%v, %v) scale %.2f\n", cmd.Text, cmd.X, cmd.Y, cmd.Scale)
//	}
//
// # Positions
//
// DrawCommand.X is the left edge of the line, DrawCommand.Y its vertical middle:
//
//	y = row*rowHeight + rowHeight/2 + Padding
//
// where rowHeight/2 is an integer division. DrawCommand.BoxWidth is the full box
// width, which renderers use as the clipping edge.
//
// # Related Packages
//
// The sub-packages turn the engine into a working quote board on an SSD1322
// OLED panel:
//
//   - fontmeasure measures text with OpenType fonts from golang.org/x/image;
//   - gray4 is the 4-bit grayscale frame buffer format of the panel;
//   - render draws DrawCommand values into a frame;
//   - panel drives the SSD1322 controller over SPI with periph.io;
//   - quotes loads and navigates a list of quotes;
//   - board ties everything together in a cooldown and button loop.
package quoteboard
