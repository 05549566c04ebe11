package settings

import "fmt"

// MemoryMedium is an in-memory Medium that counts writes.
type MemoryMedium struct {
	Data   []byte
	Writes int

	// GetError and PutError, if set, are returned by Get and Put.
	GetError error
	PutError error
}

// NewMemoryMedium creates an erased medium of the given size.
func NewMemoryMedium(size int) *MemoryMedium {
	data := make([]byte, size)
	for i := range data {
		data[i] = Sentinel
	}
	return &MemoryMedium{Data: data}
}

// Get returns the byte at off.
func (m *MemoryMedium) Get(off int) (byte, error) {
	if m.GetError != nil {
		return 0, m.GetError
	}
	if off < 0 || off >= len(m.Data) {
		return 0, fmt.Errorf("offset %d out of bounds", off)
	}
	return m.Data[off], nil
}

// Put writes the byte at off.
func (m *MemoryMedium) Put(off int, v byte) error {
	if m.PutError != nil {
		return m.PutError
	}
	if off < 0 || off >= len(m.Data) {
		return fmt.Errorf("offset %d out of bounds", off)
	}
	m.Data[off] = v
	m.Writes++
	return nil
}
