package gpio

// FakeActuator is a test double that records relay commands.
type FakeActuator struct {
	// Enabled is the last commanded state.
	Enabled bool

	// History contains every commanded state in order.
	History []bool

	// Level is the raw line value the command maps to.
	Level int

	// SetError, if set, will be returned by Set.
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeActuator creates a FakeActuator with the relay off.
func NewFakeActuator() *FakeActuator {
	return &FakeActuator{Level: level(false)}
}

// Set records the command.
func (f *FakeActuator) Set(enabled bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Enabled = enabled
	f.Level = level(enabled)
	f.History = append(f.History, enabled)
	return nil
}

// Close de-energizes and marks the actuator closed.
func (f *FakeActuator) Close() error {
	f.Enabled = false
	f.Level = level(false)
	f.Closed = true
	return nil
}
