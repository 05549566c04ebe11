// Package scale reads the load cell used by the weight variant.
package scale

import (
	"errors"
	"fmt"
)

const (
	// DefaultReferenceGrams is the calibration weight shipped with the grinder.
	DefaultReferenceGrams = 171
	// DefaultFactor is a typical counts-per-gram for the 1 kg load cell.
	DefaultFactor = 420.0
)

// Scale is the load cell as seen by the control loop.
type Scale interface {
	// Tare records the current reading as zero.
	Tare(samples int) error
	// CalibrateAgainstKnownWeight derives the counts-per-gram factor from a
	// reference weight placed on the tared scale.
	CalibrateAgainstKnownWeight(grams float64, samples int) error
	// ReadGrams returns the averaged weight.
	ReadGrams(samples int) (float64, error)
}

// RawSource produces raw signed converter readings.
type RawSource interface {
	ReadRaw() (int32, error)
	Close() error
}

// HX711 averages raw readings and applies tare offset and scale factor.
type HX711 struct {
	src    RawSource
	offset float64
	factor float64
}

// New creates an HX711 with the given counts-per-gram factor.
// A factor of zero is replaced by 1 until calibrated.
func New(src RawSource, factor float64) *HX711 {
	if factor == 0 {
		factor = 1
	}
	return &HX711{src: src, factor: factor}
}

func (h *HX711) average(samples int) (float64, error) {
	if samples <= 0 {
		samples = 1
	}
	var sum float64
	for i := 0; i < samples; i++ {
		v, err := h.src.ReadRaw()
		if err != nil {
			return 0, fmt.Errorf("read sample %d: %w", i, err)
		}
		sum += float64(v)
	}
	return sum / float64(samples), nil
}

// Tare sets the offset to the averaged current reading.
func (h *HX711) Tare(samples int) error {
	avg, err := h.average(samples)
	if err != nil {
		return fmt.Errorf("tare: %w", err)
	}
	h.offset = avg
	return nil
}

// CalibrateAgainstKnownWeight sets the factor so the current reading equals grams.
func (h *HX711) CalibrateAgainstKnownWeight(grams float64, samples int) error {
	if grams <= 0 {
		return fmt.Errorf("calibrate: reference weight must be positive, got %v", grams)
	}
	avg, err := h.average(samples)
	if err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}
	diff := avg - h.offset
	if diff == 0 {
		return errors.New("calibrate: no load detected")
	}
	h.factor = diff / grams
	return nil
}

// ReadGrams returns the averaged, tared and scaled reading.
func (h *HX711) ReadGrams(samples int) (float64, error) {
	avg, err := h.average(samples)
	if err != nil {
		return 0, err
	}
	return (avg - h.offset) / h.factor, nil
}

// Factor returns the counts-per-gram factor.
func (h *HX711) Factor() float64 { return h.factor }

// Offset returns the tare offset in raw counts.
func (h *HX711) Offset() float64 { return h.offset }

// Close releases the raw source.
func (h *HX711) Close() error {
	return h.src.Close()
}
