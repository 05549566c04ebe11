//go:build !linux

package gpio

import "errors"

// RealActuator is not available on non-Linux platforms.
type RealActuator struct{}

// NewRealActuator returns an error on non-Linux platforms.
func NewRealActuator(chipName string, pin int) (*RealActuator, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (a *RealActuator) Set(enabled bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (a *RealActuator) Close() error {
	return nil
}

// InterruptLine is not available on non-Linux platforms.
type InterruptLine struct{}

// WatchInterrupt returns an error on non-Linux platforms.
func WatchInterrupt(chipName string, pin int, handler func()) (*InterruptLine, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Close is not implemented on non-Linux platforms.
func (l *InterruptLine) Close() error {
	return nil
}
