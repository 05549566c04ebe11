// Package panel reads the rotary encoder and button behind the I/O expander.
// The real implementation drives an MCP23017 over I2C.
// The fake implementation allows testing without hardware.
package panel

import "fmt"

// Sample is one raw snapshot of the panel lines. Lines are active-low with
// pull-ups, so true means released or at rest.
type Sample struct {
	A      bool
	Dir    bool
	Button bool
}

// Reader reads panel samples.
type Reader interface {
	// Read returns the current line levels. An error means the bus link failed.
	Read() (Sample, error)

	// Close releases panel resources.
	Close() error
}

// Pins maps panel lines to expander pins (0-7 port A, 8-15 port B).
// Ground pins are driven low to act as the switch commons.
type Pins struct {
	RotaryA      int `yaml:"rotary_a"`
	RotaryGround int `yaml:"rotary_ground"`
	RotaryDir    int `yaml:"rotary_dir"`
	Button       int `yaml:"button"`
	ButtonGround int `yaml:"button_ground"`
}

// DefaultPins is the wiring of the stock panel board.
var DefaultPins = Pins{
	RotaryA:      8,
	RotaryGround: 9,
	RotaryDir:    10,
	Button:       11,
	ButtonGround: 12,
}

// DefaultAddress is the expander address with A0-A2 tied low.
const DefaultAddress = 0x20

// Validate checks that every pin exists and none is shared.
func (p Pins) Validate() error {
	seen := map[int]string{}
	for _, pin := range []struct {
		name string
		n    int
	}{
		{"rotary_a", p.RotaryA},
		{"rotary_ground", p.RotaryGround},
		{"rotary_dir", p.RotaryDir},
		{"button", p.Button},
		{"button_ground", p.ButtonGround},
	} {
		if pin.n < 0 || pin.n > 15 {
			return fmt.Errorf("panel pin %s: %d out of range 0-15", pin.name, pin.n)
		}
		if other, ok := seen[pin.n]; ok {
			return fmt.Errorf("panel pin %s: %d already used by %s", pin.name, pin.n, other)
		}
		seen[pin.n] = pin.name
	}
	return nil
}

func (p Pins) signals() []int {
	return []int{p.RotaryA, p.RotaryDir, p.Button}
}

func (p Pins) grounds() []int {
	return []int{p.RotaryGround, p.ButtonGround}
}
