//go:build !linux

package scale

import "errors"

// GPIOSource is not available on non-Linux platforms.
type GPIOSource struct{}

// OpenGPIO returns an error on non-Linux platforms.
func OpenGPIO(chipName string, clockPin, dataPin int) (*GPIOSource, error) {
	return nil, errors.New("scale: not supported on this platform (requires Linux)")
}

// ReadRaw is not implemented on non-Linux platforms.
func (s *GPIOSource) ReadRaw() (int32, error) {
	return 0, errors.New("scale: not supported")
}

// Close is not implemented on non-Linux platforms.
func (s *GPIOSource) Close() error {
	return nil
}
