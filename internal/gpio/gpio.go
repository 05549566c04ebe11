// Package gpio drives the grinder relay and watches the expander interrupt
// line through the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Actuator switches the grinder motor.
type Actuator interface {
	// Set drives the relay. The line is active-low: enabled drives it low.
	Set(enabled bool) error

	// Close de-energizes the relay and releases the line.
	Close() error
}

// Defaults (BCM numbering).
const (
	DefaultChip         = "gpiochip0"
	DefaultActuatorPin  = 17
	DefaultInterruptPin = 27
)

const consumer = "grinder"

// level returns the raw line value for an active-low output.
func level(enabled bool) int {
	if enabled {
		return 0
	}
	return 1
}
