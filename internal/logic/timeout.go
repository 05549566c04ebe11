package logic

import "time"

// Default timeout settings.
const (
	DefaultSleepGrace  = 15 * time.Second
	DefaultGrindLimit  = 30 * time.Second
	DefaultResetWindow = 20 * time.Hour
)

// Timeouts tracks the sleep, grind safety and reset deadlines.
// A zero deadline means unset.
type Timeouts struct {
	boot        time.Time
	sleep       time.Time
	grindSafety time.Time
}

// NewTimeouts creates Timeouts with the reset window anchored at boot.
// The sleep deadline starts unset, so an idle appliance only sleeps after
// its first interaction arms it.
func NewTimeouts(boot time.Time) *Timeouts {
	return &Timeouts{boot: boot}
}

// ArmSleep pushes the sleep deadline to now+grace.
func (t *Timeouts) ArmSleep(now time.Time, grace time.Duration) {
	if grace <= 0 {
		grace = DefaultSleepGrace
	}
	t.sleep = now.Add(grace)
}

// SleepExpired reports whether now is past an armed sleep deadline.
func (t *Timeouts) SleepExpired(now time.Time) bool {
	return !t.sleep.IsZero() && now.After(t.sleep)
}

// ArmGrindSafety sets the grind cutoff to now+limit.
func (t *Timeouts) ArmGrindSafety(now time.Time, limit time.Duration) {
	if limit <= 0 {
		limit = DefaultGrindLimit
	}
	t.grindSafety = now.Add(limit)
}

// GrindSafetyExpired reports whether now is past an armed grind cutoff.
func (t *Timeouts) GrindSafetyExpired(now time.Time) bool {
	return !t.grindSafety.IsZero() && now.After(t.grindSafety)
}

// DisarmGrindSafety clears the grind cutoff.
func (t *Timeouts) DisarmGrindSafety() {
	t.grindSafety = time.Time{}
}

// ResetWindowExpired reports whether now is past boot+window.
// The window is fixed at boot and is not extended by activity.
func (t *Timeouts) ResetWindowExpired(now time.Time, window time.Duration) bool {
	if window <= 0 {
		window = DefaultResetWindow
	}
	return now.After(t.boot.Add(window))
}
