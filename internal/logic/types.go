// Package logic contains the pure control logic for the grinder.
// This package has NO external dependencies (no GPIO, I2C, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State is the appliance state. Exactly one is active at a time.
type State uint8

const (
	StateSleep State = iota
	StateSelect
	StatePreCalibrate
	StateCalibrate
	StateGrinding
	StateDone
	StateLockout
)

func (s State) String() string {
	switch s {
	case StateSleep:
		return "SLEEP"
	case StateSelect:
		return "SELECT"
	case StatePreCalibrate:
		return "PRE_CALIBRATE"
	case StateCalibrate:
		return "CALIBRATE"
	case StateGrinding:
		return "GRINDING"
	case StateDone:
		return "DONE"
	case StateLockout:
		return "LOCKOUT"
	default:
		return "UNKNOWN"
	}
}

// Mode selects what the selected amount measures.
type Mode string

const (
	ModeTime   Mode = "time"
	ModeWeight Mode = "weight"
)

// Bounds of the selected amount per mode.
const (
	MinSeconds     = 1
	MaxSeconds     = 60
	DefaultSeconds = 10

	MinGrams     = 1
	MaxGrams     = 100
	DefaultGrams = 18
)

// Variant describes a product revision.
type Variant struct {
	Mode Mode
	// Lockout enables the link-health probe.
	Lockout bool
}

// Bounds returns the closed range and default for the variant's amount.
func (v Variant) Bounds() (lo, hi, def uint8) {
	if v.Mode == ModeWeight {
		return MinGrams, MaxGrams, DefaultGrams
	}
	return MinSeconds, MaxSeconds, DefaultSeconds
}

// Unit is the display suffix for the variant's amount.
func (v Variant) Unit() byte {
	if v.Mode == ModeWeight {
		return 'g'
	}
	return 's'
}

// Events is the set of discrete panel events observed in one cycle.
type Events struct {
	ButtonFell       bool
	Clockwise        bool
	CounterClockwise bool
}

// Any reports whether any user interaction happened.
func (e Events) Any() bool {
	return e.ButtonFell || e.Clockwise || e.CounterClockwise
}

// Input is everything the state machine consumes in one cycle.
type Input struct {
	Now    time.Time
	Events Events
	// LinkDown is set when the panel bus failed this cycle.
	LinkDown bool
	// Grams is the latest scale reading (weight variant, Grinding only).
	Grams float64
	// ScaleFault is set when the scale could not be tared or read.
	ScaleFault bool
}

// Transition reasons.
const (
	ReasonWake         = "WAKE"
	ReasonIdle         = "IDLE"
	ReasonSelected     = "SELECTED"
	ReasonCalibrated   = "CALIBRATED"
	ReasonStopped      = "STOPPED"
	ReasonComplete     = "COMPLETE"
	ReasonOverrun      = "GRIND_OVERRUN"
	ReasonLinkFailure  = "LINK_FAILURE"
	ReasonScaleFault   = "SCALE_FAULT"
	ReasonReady        = "READY"
	ReasonUnexpected   = "UNEXPECTED_STATE"
	ReasonPreCalibrate = "PRE_CALIBRATE"
)

// Transition records a state change for reporting.
type Transition struct {
	Timestamp time.Time
	From      State
	To        State
	Reason    string
	Amount    uint8
}

// CalibrateRequest asks the scale collaborator to tare and calibrate.
type CalibrateRequest struct {
	ReferenceGrams float64
	Samples        int
}

// Output is the set of effects produced by one cycle.
// The runner executes them in field order.
type Output struct {
	Calibrate *CalibrateRequest
	// Actuator is true only while Grinding.
	Actuator bool
	Message  Message
	// Redraw is true when Message differs from the previous cycle.
	Redraw  bool
	Persist *uint8
	// Restart asks the run loop to re-exec the process.
	Restart     bool
	Transitions []Transition
}

// Counts tracks activity since startup.
type Counts struct {
	GrindsStarted   int
	GrindsCompleted int
	GrindsStopped   int
	Lockouts        int
	Sleeps          int
}
