//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealActuator drives the relay line on actual hardware.
type RealActuator struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealActuator requests the relay line as an output that starts high,
// so the motor is off from the moment the line is claimed.
func NewRealActuator(chipName string, pin int) (*RealActuator, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(level(false)))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request actuator pin %d: %w", pin, err)
	}

	return &RealActuator{chip: chip, line: line}, nil
}

// Set drives the relay line low when enabled.
func (a *RealActuator) Set(enabled bool) error {
	if err := a.line.SetValue(level(enabled)); err != nil {
		return fmt.Errorf("set actuator pin: %w", err)
	}
	return nil
}

// Close drives the line high before releasing it.
func (a *RealActuator) Close() error {
	var errs []error

	if a.line != nil {
		if err := a.line.SetValue(level(false)); err != nil {
			errs = append(errs, fmt.Errorf("disable actuator: %w", err))
		}
		if err := a.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close actuator pin: %w", err))
		}
	}
	if a.chip != nil {
		if err := a.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// InterruptLine watches the expander INT output for falling edges.
type InterruptLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// WatchInterrupt requests pin as a pulled-up input and calls handler on each
// falling edge. handler runs on the gpiocdev event goroutine.
func WatchInterrupt(chipName string, pin int, handler func()) (*InterruptLine, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { handler() }),
	)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request interrupt pin %d: %w", pin, err)
	}

	return &InterruptLine{chip: chip, line: line}, nil
}

// Close stops edge detection and releases the line.
func (l *InterruptLine) Close() error {
	var errs []error
	if l.line != nil {
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close interrupt pin: %w", err))
		}
	}
	if l.chip != nil {
		if err := l.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
