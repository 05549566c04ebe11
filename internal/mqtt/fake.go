package mqtt

import (
	"github.com/sweeney/grinder/internal/logic"
)

// FakePublisher keeps everything it is asked to publish, along with the
// payload bytes the real publisher would have sent.
type FakePublisher struct {
	Transitions []logic.Transition
	Payloads    [][]byte

	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	// PublishError and PublishSystemError fail the matching call and
	// record nothing.
	PublishError       error
	PublishSystemError error

	// Connected is reported by IsConnected.
	Connected bool
	Closed    bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(t logic.Transition) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	b, err := FormatPayload(t)
	if err != nil {
		return err
	}
	f.Transitions = append(f.Transitions, t)
	f.Payloads = append(f.Payloads, b)
	return nil
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	b, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, b)
	return nil
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset returns the fake to its zero state.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{}
}
