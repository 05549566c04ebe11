// Package watchdog keeps the hardware watchdog fed while the control loop runs.
package watchdog

import "time"

const (
	DefaultDevice  = "/dev/watchdog"
	DefaultTimeout = 2 * time.Second
)

// Kicker is a watchdog that must be kicked at least once per timeout.
type Kicker interface {
	Kick() error
	Close() error
}

// Nop is a Kicker for hosts without a watchdog.
type Nop struct{}

func (Nop) Kick() error  { return nil }
func (Nop) Close() error { return nil }
