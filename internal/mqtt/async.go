package mqtt

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sweeney/grinder/internal/logic"
)

// DefaultQueueSize is the number of publishes Async holds for its worker.
const DefaultQueueSize = 32

// drainTimeout bounds how long Close waits for queued messages.
const drainTimeout = 2 * time.Second

// job is one queued call: a transition or a system event.
type job struct {
	transition *logic.Transition
	system     *SystemEvent
}

// Async hands publishes to a worker goroutine so the caller never waits on
// the broker. When the queue is full new messages are dropped and counted.
type Async struct {
	next   Publisher
	logger *slog.Logger

	queue chan job
	done  chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewAsync starts a worker publishing through next.
func NewAsync(next Publisher, size int, logger *slog.Logger) *Async {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Async{
		next:   next,
		logger: logger,
		queue:  make(chan job, size),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for j := range a.queue {
		var err error
		if j.transition != nil {
			err = a.next.Publish(*j.transition)
		} else {
			err = a.next.PublishSystem(*j.system)
		}
		if err != nil {
			a.logger.Warn("publish error", "err", err)
		}
	}
}

func (a *Async) push(j job) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- j:
	default:
		if a.dropped == 0 {
			a.logger.Warn("mqtt publish queue full, dropping", "capacity", cap(a.queue))
		}
		a.dropped++
	}
}

// Publish queues a state change and returns immediately.
func (a *Async) Publish(t logic.Transition) error {
	a.push(job{transition: &t})
	return nil
}

// PublishSystem queues a system event and returns immediately.
func (a *Async) PublishSystem(event SystemEvent) error {
	a.push(job{system: &event})
	return nil
}

// Dropped returns the number of messages lost to a full queue.
func (a *Async) Dropped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// IsConnected reports the wrapped publisher's link state, false when it
// does not expose one.
func (a *Async) IsConnected() bool {
	if cs, ok := a.next.(ConnectionStatus); ok {
		return cs.IsConnected()
	}
	return false
}

// Close stops accepting messages, waits briefly for the queue to drain,
// then closes the wrapped publisher.
func (a *Async) Close() error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-time.After(drainTimeout):
		a.logger.Warn("mqtt queue not drained before close", "pending", len(a.queue))
	}
	return a.next.Close()
}
