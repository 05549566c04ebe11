package panel

import "sync"

// Wakeup is the single-slot signal between the expander interrupt handler
// and the control loop. Signal is disarmed after it fires and only re-armed
// by Drain, so an interrupt storm produces at most one pending wakeup.
type Wakeup struct {
	mu    sync.Mutex
	armed bool
	ch    chan struct{}
}

// NewWakeup creates an armed Wakeup.
func NewWakeup() *Wakeup {
	return &Wakeup{armed: true, ch: make(chan struct{}, 1)}
}

// Signal is called from interrupt context.
func (w *Wakeup) Signal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.armed {
		return
	}
	w.armed = false
	w.ch <- struct{}{}
}

// Drain takes a pending wakeup and runs read before re-arming, all with
// Signal held off. It reports whether a wakeup was pending; read only runs
// when one was.
func (w *Wakeup) Drain(read func()) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.ch:
	default:
		return false
	}
	if read != nil {
		read()
	}
	w.armed = true
	return true
}
