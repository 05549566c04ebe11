//go:build linux

package i2c

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// i2cSlave is the I2C_SLAVE ioctl from linux/i2c-dev.h.
const i2cSlave = 0x0703

// Bus is an open i2c-dev character device. Tx is safe for concurrent use.
type Bus struct {
	mu   sync.Mutex
	path string
	fd   int
	addr int
}

// Open opens the i2c-dev node at path.
func Open(path string) (*Bus, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Bus{path: path, fd: fd, addr: -1}, nil
}

// Tx writes w then reads len(r) bytes from the device at addr.
// The write and the read are separate bus transactions.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fd < 0 {
		return fmt.Errorf("i2c %s: bus closed", b.path)
	}
	if b.addr != int(addr) {
		if err := unix.IoctlSetInt(b.fd, i2cSlave, int(addr)); err != nil {
			return fmt.Errorf("i2c %s: select 0x%02x: %w", b.path, addr, err)
		}
		b.addr = int(addr)
	}
	if len(w) > 0 {
		n, err := unix.Write(b.fd, w)
		if err != nil {
			return fmt.Errorf("i2c %s: write 0x%02x: %w", b.path, addr, err)
		}
		if n != len(w) {
			return fmt.Errorf("i2c %s: short write to 0x%02x: %d of %d bytes", b.path, addr, n, len(w))
		}
	}
	if len(r) > 0 {
		n, err := unix.Read(b.fd, r)
		if err != nil {
			return fmt.Errorf("i2c %s: read 0x%02x: %w", b.path, addr, err)
		}
		if n != len(r) {
			return fmt.Errorf("i2c %s: short read from 0x%02x: %d of %d bytes", b.path, addr, n, len(r))
		}
	}
	return nil
}

// Close releases the device node.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return nil
	}
	err := unix.Close(b.fd)
	b.fd = -1
	if err != nil {
		return fmt.Errorf("close %s: %w", b.path, err)
	}
	return nil
}
