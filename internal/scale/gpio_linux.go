//go:build linux

package scale

import (
	"errors"
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// ErrNotReady is returned when the converter does not pull DOUT low in time.
var ErrNotReady = errors.New("hx711: conversion not ready")

// GPIOSource bit-bangs the HX711 serial interface on two GPIO lines.
// Each read clocks 25 pulses: 24 data bits plus one selecting channel A, gain 128.
type GPIOSource struct {
	chip    *gpiocdev.Chip
	clock   *gpiocdev.Line
	data    *gpiocdev.Line
	timeout time.Duration
}

// OpenGPIO requests the clock line as a low output and the data line as input.
func OpenGPIO(chipName string, clockPin, dataPin int) (*GPIOSource, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("grinder-scale"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	clock, err := chip.RequestLine(clockPin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request clock pin %d: %w", clockPin, err)
	}
	data, err := chip.RequestLine(dataPin, gpiocdev.AsInput)
	if err != nil {
		clock.Close()
		chip.Close()
		return nil, fmt.Errorf("request data pin %d: %w", dataPin, err)
	}
	return &GPIOSource{chip: chip, clock: clock, data: data, timeout: 200 * time.Millisecond}, nil
}

// ReadRaw waits for a conversion and shifts it out.
func (s *GPIOSource) ReadRaw() (int32, error) {
	deadline := time.Now().Add(s.timeout)
	for {
		v, err := s.data.Value()
		if err != nil {
			return 0, fmt.Errorf("read data pin: %w", err)
		}
		if v == 0 {
			break
		}
		if time.Now().After(deadline) {
			return 0, ErrNotReady
		}
		time.Sleep(time.Millisecond)
	}

	var raw uint32
	for i := 0; i < 25; i++ {
		if err := s.clock.SetValue(1); err != nil {
			return 0, fmt.Errorf("clock high: %w", err)
		}
		bit, err := s.data.Value()
		if err != nil {
			return 0, fmt.Errorf("read data pin: %w", err)
		}
		if err := s.clock.SetValue(0); err != nil {
			return 0, fmt.Errorf("clock low: %w", err)
		}
		if i < 24 {
			raw = raw<<1 | uint32(bit&1)
		}
	}
	return signExtend24(raw), nil
}

// Close powers the converter down and releases the lines.
func (s *GPIOSource) Close() error {
	var errs []error
	if s.clock != nil {
		// Holding the clock high for over 60us powers the HX711 down.
		if err := s.clock.SetValue(1); err != nil {
			errs = append(errs, fmt.Errorf("power down: %w", err))
		}
		if err := s.clock.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close clock pin: %w", err))
		}
	}
	if s.data != nil {
		if err := s.data.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close data pin: %w", err))
		}
	}
	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
