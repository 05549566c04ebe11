package panel

import (
	"fmt"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/mcp23017"
)

// MCP23017 registers written directly (IOCON.BANK = 0 layout).
const (
	regGPINTEN = 0x04
	regINTCON  = 0x08
	regIOCON   = 0x0A

	ioconMirror = 0x40
	ioconODR    = 0x04
)

// Expander reads the panel through an MCP23017.
type Expander struct {
	bus  drivers.I2C
	addr uint8
	dev  *mcp23017.Device
	pins Pins
}

// NewExpander configures the expander: signal pins become pulled-up inputs,
// ground pins become outputs driven low. With interrupt set, any change on a
// signal pin asserts the (mirrored, open-drain) INT line until the port is read.
func NewExpander(bus drivers.I2C, addr uint8, pins Pins, interrupt bool) (*Expander, error) {
	if err := pins.Validate(); err != nil {
		return nil, err
	}
	dev, err := mcp23017.NewI2C(bus, addr)
	if err != nil {
		return nil, fmt.Errorf("init expander: %w", err)
	}
	e := &Expander{bus: bus, addr: addr, dev: dev, pins: pins}

	var grounds mcp23017.Pins
	for _, p := range pins.grounds() {
		grounds.High(p)
	}
	// Latch the commons low before they become outputs.
	if err := dev.SetPins(0, grounds); err != nil {
		return nil, fmt.Errorf("drive ground pins: %w", err)
	}

	modes := make([]mcp23017.PinMode, mcp23017.PinCount)
	for i := range modes {
		modes[i] = mcp23017.Input | mcp23017.Pullup
	}
	for _, p := range pins.grounds() {
		modes[p] = mcp23017.Output
	}
	if err := dev.SetModes(modes); err != nil {
		return nil, fmt.Errorf("set pin modes: %w", err)
	}

	if interrupt {
		if err := e.enableInterrupt(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Expander) enableInterrupt() error {
	var enable mcp23017.Pins
	for _, p := range e.pins.signals() {
		enable.High(p)
	}
	writes := [][]byte{
		{regIOCON, ioconMirror | ioconODR},
		// Compare against the previous value, not DEFVAL.
		{regINTCON, 0x00},
		{regINTCON | 1, 0x00},
		{regGPINTEN, uint8(enable)},
		{regGPINTEN | 1, uint8(enable >> 8)},
	}
	for _, w := range writes {
		if err := e.bus.Tx(uint16(e.addr), w, nil); err != nil {
			return fmt.Errorf("configure interrupt register 0x%02x: %w", w[0], err)
		}
	}
	return nil
}

// Read returns the panel lines from a single 16-bit port read.
// Reading GPIO also clears a pending expander interrupt.
func (e *Expander) Read() (Sample, error) {
	pins, err := e.dev.GetPins()
	if err != nil {
		return Sample{}, fmt.Errorf("read expander port: %w", err)
	}
	return Sample{
		A:      pins.Get(e.pins.RotaryA),
		Dir:    pins.Get(e.pins.RotaryDir),
		Button: pins.Get(e.pins.Button),
	}, nil
}

// Close returns every pin to a pulled-up input and disables interrupts.
func (e *Expander) Close() error {
	var errs []error
	if err := e.bus.Tx(uint16(e.addr), []byte{regGPINTEN, 0, 0}, nil); err != nil {
		errs = append(errs, fmt.Errorf("disable interrupts: %w", err))
	}
	if err := e.dev.SetModes([]mcp23017.PinMode{mcp23017.Input | mcp23017.Pullup}); err != nil {
		errs = append(errs, fmt.Errorf("reset pin modes: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
