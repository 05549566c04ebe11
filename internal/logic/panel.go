package logic

import "time"

// Panel turns raw panel line levels into discrete Events.
// Lines are active-low: a pressed button reads false.
type Panel struct {
	button *Debouncer
	rotary RotaryDecoder
}

// NewPanel creates a Panel whose button uses the given debounce interval.
func NewPanel(debounce time.Duration) *Panel {
	return &Panel{button: NewDebouncer(debounce)}
}

// Process consumes one raw sample.
func (p *Panel) Process(a, dir, button bool, now time.Time) Events {
	p.button.Update(button, now)
	var ev Events
	ev.ButtonFell = p.button.Fell()
	switch p.rotary.Process(a, dir) {
	case RotationClockwise:
		ev.Clockwise = true
	case RotationCounterClockwise:
		ev.CounterClockwise = true
	}
	return ev
}
