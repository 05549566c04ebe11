// Package display drives the 128x32 SSD1306 OLED on the shared I2C bus.
package display

import (
	"fmt"
	"image/color"

	"tinygo.org/x/drivers"
)

// DefaultAddress is the 7-bit I2C address of the OLED.
const DefaultAddress = 0x3C

const (
	Width  = 128
	Height = 32

	controlCommand = 0x00
	controlData    = 0x40
)

var initSequence = []byte{
	0xAE,       // display off
	0xD5, 0x80, // clock divide
	0xA8, Height - 1, // multiplex
	0xD3, 0x00, // display offset
	0x40,       // start line 0
	0x8D, 0x14, // charge pump on
	0x20, 0x00, // horizontal addressing
	0xA1,       // segment remap
	0xC8,       // COM scan descending
	0xDA, 0x02, // COM pins for 32 rows
	0x81, 0x8F, // contrast
	0xD9, 0xF1, // precharge
	0xDB, 0x40, // VCOM detect
	0xA4,       // resume from RAM
	0xA6,       // normal, not inverted
	0xAF,       // display on
}

// SSD1306 is a framebuffered OLED controller. It implements drivers.Displayer.
type SSD1306 struct {
	bus  drivers.I2C
	addr uint16
	buf  [Width * Height / 8]byte
}

var _ drivers.Displayer = (*SSD1306)(nil)

// NewSSD1306 creates a driver for the controller at addr. Call Configure
// before drawing.
func NewSSD1306(bus drivers.I2C, addr uint16) *SSD1306 {
	return &SSD1306{bus: bus, addr: addr}
}

// Configure sends the power-on sequence.
func (d *SSD1306) Configure() error {
	if err := d.command(initSequence...); err != nil {
		return fmt.Errorf("init display: %w", err)
	}
	return nil
}

// Size returns the panel dimensions.
func (d *SSD1306) Size() (x, y int16) {
	return Width, Height
}

// SetPixel sets or clears one pixel in the framebuffer. Any non-black color lights it.
func (d *SSD1306) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}
	i := int(x) + int(y/8)*Width
	bit := byte(1) << uint(y%8)
	if c.R != 0 || c.G != 0 || c.B != 0 {
		d.buf[i] |= bit
	} else {
		d.buf[i] &^= bit
	}
}

// Pixel reports whether a pixel is lit in the framebuffer.
func (d *SSD1306) Pixel(x, y int16) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}
	return d.buf[int(x)+int(y/8)*Width]&(1<<uint(y%8)) != 0
}

// ClearBuffer blanks the framebuffer without touching the panel.
func (d *SSD1306) ClearBuffer() {
	d.buf = [Width * Height / 8]byte{}
}

// Display writes the whole framebuffer to the panel.
func (d *SSD1306) Display() error {
	if err := d.command(0x21, 0, Width-1, 0x22, 0, Height/8-1); err != nil {
		return fmt.Errorf("set window: %w", err)
	}
	frame := make([]byte, 1+len(d.buf))
	frame[0] = controlData
	copy(frame[1:], d.buf[:])
	if err := d.bus.Tx(d.addr, frame, nil); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Off turns the panel off. The framebuffer is kept.
func (d *SSD1306) Off() error {
	return d.command(0xAE)
}

func (d *SSD1306) command(cmds ...byte) error {
	for _, c := range cmds {
		if err := d.bus.Tx(d.addr, []byte{controlCommand, c}, nil); err != nil {
			return fmt.Errorf("command %#02x: %w", c, err)
		}
	}
	return nil
}
