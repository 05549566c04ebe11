// Package status provides a thread-safe status tracker for the grinder daemon.
// It is read by the HTTP handlers, the websocket hub and the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/grinder/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Variant      string
	Lockout      bool
	PollMs       int64
	DebounceMs   int64
	SleepMs      int64
	GrindLimitMs int64
	HeartbeatMs  int64
	Broker       string
	HTTPAddr     string
	BootID       string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State      logic.State
	Amount     uint8
	Unit       byte
	Actuator   bool
	Display    string
	Counts     logic.Counts
	LastReason string
	LastChange time.Time

	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Unit:      's',
		},
		now: time.Now,
	}
}

// SetClock replaces the clock used to stamp snapshots.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Update records the machine state after a cycle.
// Called from runLoop on every cycle.
func (t *Tracker) Update(m *logic.Machine, out logic.Output) {
	t.mu.Lock()
	t.snap.State = m.State()
	t.snap.Amount = m.Amount()
	t.snap.Unit = m.Variant().Unit()
	t.snap.Actuator = out.Actuator
	if out.Redraw {
		t.snap.Display = out.Message.Text()
	}
	t.snap.Counts = m.Counts()
	t.mu.Unlock()
}

// Record notes the most recent transition.
func (t *Tracker) Record(tr logic.Transition) {
	t.mu.Lock()
	t.snap.LastReason = tr.Reason
	t.snap.LastChange = tr.Timestamp
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set from the tracker clock at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	now := t.now
	t.mu.RUnlock()
	s.Now = now()
	return s
}

// Heartbeat decides when a periodic status message is due.
type Heartbeat struct {
	interval time.Duration
	last     time.Time
}

// NewHeartbeat counts the first interval from start. An interval <= 0
// disables it.
func NewHeartbeat(interval time.Duration, start time.Time) *Heartbeat {
	return &Heartbeat{interval: interval, last: start}
}

// Due reports whether a heartbeat should be sent at now, and if so restarts
// the interval.
func (h *Heartbeat) Due(now time.Time) bool {
	if h.interval <= 0 {
		return false
	}
	if now.Sub(h.last) < h.interval {
		return false
	}
	h.last = now
	return true
}
