package settings

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// DefaultEEPROMSize matches the smallest AVR EEPROM the layout came from.
const DefaultEEPROMSize = 512

// EEPROM is a file-backed byte image mapped into memory. A new image is
// erased to Sentinel so unwritten cells read as never written.
type EEPROM struct {
	mu   sync.Mutex
	f    *os.File
	data mmap.MMap
}

// OpenEEPROM opens or creates the image at path with at least size bytes.
func OpenEEPROM(path string, size int) (*EEPROM, error) {
	if size <= 0 {
		size = DefaultEEPROMSize
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open eeprom image: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat eeprom image: %w", err)
	}
	if cur := fi.Size(); cur < int64(size) {
		pad := bytes.Repeat([]byte{Sentinel}, size-int(cur))
		if _, err := f.WriteAt(pad, cur); err != nil {
			f.Close()
			return nil, fmt.Errorf("erase eeprom image: %w", err)
		}
	}
	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap eeprom image: %w", err)
	}
	return &EEPROM{f: f, data: data}, nil
}

// Get returns the byte at off.
func (e *EEPROM) Get(off int) (byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if off < 0 || off >= len(e.data) {
		return 0, fmt.Errorf("eeprom offset %d out of bounds (size %d)", off, len(e.data))
	}
	return e.data[off], nil
}

// Put writes the byte at off and flushes it to the file.
func (e *EEPROM) Put(off int, v byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if off < 0 || off >= len(e.data) {
		return fmt.Errorf("eeprom offset %d out of bounds (size %d)", off, len(e.data))
	}
	e.data[off] = v
	if err := e.data.Flush(); err != nil {
		return fmt.Errorf("flush eeprom image: %w", err)
	}
	return nil
}

// Close unmaps and closes the image.
func (e *EEPROM) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var errs []error
	if e.data != nil {
		if err := e.data.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("unmap: %w", err))
		}
		e.data = nil
	}
	if e.f != nil {
		if err := e.f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close: %w", err))
		}
		e.f = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
