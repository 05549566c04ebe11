package logic

import "time"

// DefaultDebounce is the lockout interval used when none is configured.
const DefaultDebounce = 10 * time.Millisecond

// Debouncer classifies a raw boolean signal into a stable value with edge
// detection. It is lockout-style: after an accepted flip, raw samples are
// ignored until the interval has elapsed.
type Debouncer struct {
	interval   time.Duration
	stable     bool
	changed    bool
	lastChange time.Time
}

// NewDebouncer creates a Debouncer whose stable value starts false.
func NewDebouncer(interval time.Duration) *Debouncer {
	if interval <= 0 {
		interval = DefaultDebounce
	}
	return &Debouncer{interval: interval}
}

// Update feeds a raw sample and reports whether the stable value flipped.
func (d *Debouncer) Update(raw bool, now time.Time) bool {
	d.changed = false
	if now.Sub(d.lastChange) < d.interval {
		return false
	}
	if raw != d.stable {
		d.stable = raw
		d.lastChange = now
		d.changed = true
	}
	return d.changed
}

// Read returns the stable value.
func (d *Debouncer) Read() bool {
	return d.stable
}

// Rose reports a false to true flip in the last Update.
func (d *Debouncer) Rose() bool {
	return d.changed && d.stable
}

// Fell reports a true to false flip in the last Update.
func (d *Debouncer) Fell() bool {
	return d.changed && !d.stable
}
