// Package settings persists the last selected amount in a single durable byte.
package settings

import (
	"errors"
	"fmt"
)

// Sentinel marks a byte that was never written (erased EEPROM).
const Sentinel = 0xFF

// DefaultOffset is the byte offset of the amount in the medium.
const DefaultOffset = 20

// ErrOutOfRange is returned by Save for values outside the store bounds.
var ErrOutOfRange = errors.New("settings: value out of range")

// Medium is byte-addressable durable storage.
type Medium interface {
	Get(off int) (byte, error)
	Put(off int, v byte) error
}

// Bounds is the valid range and default of the stored value.
type Bounds struct {
	Default uint8
	Min     uint8
	Max     uint8
}

// Store reads and writes one byte of a Medium.
type Store struct {
	medium Medium
	offset int
	bounds Bounds
}

// New creates a Store for the byte at offset.
func New(medium Medium, offset int, bounds Bounds) *Store {
	return &Store{medium: medium, offset: offset, bounds: bounds}
}

// Load returns the stored value. A sentinel or out-of-range byte is replaced
// by the default, which is written back once and returned. If the write
// back fails the default is still returned alongside the error.
func (s *Store) Load() (uint8, error) {
	v, err := s.medium.Get(s.offset)
	if err != nil {
		return 0, fmt.Errorf("read setting at %d: %w", s.offset, err)
	}
	if v != Sentinel && v >= s.bounds.Min && v <= s.bounds.Max {
		return v, nil
	}
	if err := s.medium.Put(s.offset, s.bounds.Default); err != nil {
		return s.bounds.Default, fmt.Errorf("write default setting at %d: %w", s.offset, err)
	}
	return s.bounds.Default, nil
}

// Save stores v. Nothing is written when the medium already holds v.
func (s *Store) Save(v uint8) error {
	if v == Sentinel || v < s.bounds.Min || v > s.bounds.Max {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrOutOfRange, v, s.bounds.Min, s.bounds.Max)
	}
	cur, err := s.medium.Get(s.offset)
	if err != nil {
		return fmt.Errorf("read setting at %d: %w", s.offset, err)
	}
	if cur == v {
		return nil
	}
	if err := s.medium.Put(s.offset, v); err != nil {
		return fmt.Errorf("write setting at %d: %w", s.offset, err)
	}
	return nil
}
