// Package diag writes the human readable diagnostic stream: a boot banner and
// one line per state change. It goes to a serial port when one is configured.
package diag

import (
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"

	"github.com/sweeney/grinder/internal/logic"
)

// DefaultBaud matches the console of the bench harness.
const DefaultBaud = 9600

// Console is a line oriented diagnostic sink.
type Console struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

// NewConsole writes to w. If w is also an io.Closer it is closed by Close.
func NewConsole(w io.Writer) *Console {
	c, _ := w.(io.Closer)
	return &Console{w: w, c: c}
}

// OpenSerial opens the serial device at name.
func OpenSerial(name string, baud int) (*Console, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", name, err)
	}
	return NewConsole(port), nil
}

func (c *Console) line(format string, args ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, format+"\r\n", args...)
	return err
}

// Banner writes the boot line.
func (c *Console) Banner(version string) error {
	return c.line("[grinder (%s)]", version)
}

// StateChange writes the entered state.
func (c *Console) StateChange(s logic.State) error {
	return c.line("State Change: %s", s)
}

// Transition writes a state change line, plus the cause for anything other
// than a plain step.
func (c *Console) Transition(t logic.Transition) error {
	if t.Reason == logic.ReasonUnexpected {
		if err := c.line("Unexpected state: %d", uint8(t.From)); err != nil {
			return err
		}
	}
	return c.StateChange(t.To)
}

// Close closes the underlying writer if it is closable.
func (c *Console) Close() error {
	if c.c == nil {
		return nil
	}
	return c.c.Close()
}
