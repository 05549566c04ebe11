//go:build linux

package watchdog

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Device is the Linux /dev/watchdog interface.
type Device struct {
	fd int
}

// Open arms the watchdog at path with the given timeout, rounded up to whole
// seconds. The system resets if Kick is not called within the timeout.
func Open(path string, timeout time.Duration) (*Device, error) {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	secs := int((timeout + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	if err := unix.IoctlSetPointerInt(fd, unix.WDIOC_SETTIMEOUT, secs); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set watchdog timeout %ds: %w", secs, err)
	}
	return &Device{fd: fd}, nil
}

// Kick resets the watchdog countdown.
func (d *Device) Kick() error {
	if err := unix.IoctlWatchdogKeepalive(d.fd); err != nil {
		return fmt.Errorf("watchdog keepalive: %w", err)
	}
	return nil
}

// Close disarms the watchdog with the magic close character.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	if _, err := unix.Write(d.fd, []byte{'V'}); err != nil {
		unix.Close(d.fd)
		d.fd = -1
		return fmt.Errorf("disarm watchdog: %w", err)
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}
