package logic

import "time"

// AmountSource provides the persisted amount on first use.
type AmountSource interface {
	Load() (uint8, error)
}

// MachineConfig holds the resolved timing and variant settings.
type MachineConfig struct {
	Variant     Variant
	SleepGrace  time.Duration
	GrindLimit  time.Duration
	ResetWindow time.Duration

	// ReferenceGrams and CalibrationSamples are passed to the scale in the
	// weight variant. A zero reference means tare only.
	ReferenceGrams     float64
	CalibrationSamples int
}

// Machine is the controller context. All mutable control state lives here
// and is only changed by Step.
type Machine struct {
	cfg      MachineConfig
	store    AmountSource
	timeouts *Timeouts

	state      State
	amount     uint8
	grindStart time.Time
	counts     Counts

	lastMsg Message
	drawn   bool
}

// NewMachine creates a Machine in Sleep with the amount unset.
// store may be nil, in which case the variant default is used.
func NewMachine(cfg MachineConfig, store AmountSource, boot time.Time) *Machine {
	if cfg.CalibrationSamples <= 0 {
		cfg.CalibrationSamples = 10
	}
	return &Machine{
		cfg:      cfg,
		store:    store,
		timeouts: NewTimeouts(boot),
		state:    StateSleep,
	}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Amount returns the selected amount, 0 when not yet loaded.
func (m *Machine) Amount() uint8 { return m.amount }

// Counts returns activity counters since startup.
func (m *Machine) Counts() Counts { return m.counts }

// Variant returns the configured product variant.
func (m *Machine) Variant() Variant { return m.cfg.Variant }

// Step runs one control cycle.
func (m *Machine) Step(in Input) Output {
	var out Output

	switch {
	case m.state == StateLockout:
	case m.cfg.Variant.Lockout && in.LinkDown:
		m.enter(StateLockout, ReasonLinkFailure, in.Now, &out)
	default:
		if in.Events.Any() {
			m.timeouts.ArmSleep(in.Now, m.cfg.SleepGrace)
		}
		// Grinding re-arms sleep every cycle and ends through its own exits.
		if m.state != StateSleep && m.state != StateGrinding && m.timeouts.SleepExpired(in.Now) {
			m.enter(StateSleep, ReasonIdle, in.Now, &out)
		}
		m.dispatch(in, &out)
	}

	out.Actuator = m.state == StateGrinding
	out.Message = m.message(in)
	out.Redraw = !m.drawn || out.Message != m.lastMsg
	m.lastMsg = out.Message
	m.drawn = true
	return out
}

func (m *Machine) dispatch(in Input, out *Output) {
	ev := in.Events
	switch m.state {
	case StateSleep:
		if ev.Any() {
			m.enter(StateSelect, ReasonWake, in.Now, out)
			return
		}
		if m.timeouts.ResetWindowExpired(in.Now, m.cfg.ResetWindow) {
			out.Restart = true
		}

	case StateSelect:
		m.ensureAmount()
		lo, hi, _ := m.cfg.Variant.Bounds()
		amount := int(m.amount)
		if ev.Clockwise {
			amount++
		}
		if ev.CounterClockwise {
			amount--
		}
		m.amount = clamp(amount, lo, hi)
		if ev.ButtonFell {
			v := m.amount
			out.Persist = &v
			if m.cfg.Variant.Mode == ModeWeight {
				m.enter(StatePreCalibrate, ReasonSelected, in.Now, out)
			} else {
				m.enter(StateGrinding, ReasonSelected, in.Now, out)
			}
		}

	case StatePreCalibrate:
		m.enter(StateCalibrate, ReasonPreCalibrate, in.Now, out)

	case StateCalibrate:
		out.Calibrate = &CalibrateRequest{
			ReferenceGrams: m.cfg.ReferenceGrams,
			Samples:        m.cfg.CalibrationSamples,
		}
		m.enter(StateGrinding, ReasonCalibrated, in.Now, out)

	case StateGrinding:
		m.timeouts.ArmSleep(in.Now, m.cfg.SleepGrace)
		switch {
		case m.timeouts.GrindSafetyExpired(in.Now):
			m.enter(StateLockout, ReasonOverrun, in.Now, out)
		case in.ScaleFault:
			m.enter(StateLockout, ReasonScaleFault, in.Now, out)
		case ev.ButtonFell:
			m.enter(StateDone, ReasonStopped, in.Now, out)
		case m.grindComplete(in):
			m.enter(StateDone, ReasonComplete, in.Now, out)
		}

	case StateDone:
		if ev.Any() {
			m.enter(StateSelect, ReasonReady, in.Now, out)
		}

	default:
		m.enter(StateSelect, ReasonUnexpected, in.Now, out)
	}
}

// enter records the transition and runs the entry actions of to.
func (m *Machine) enter(to State, reason string, now time.Time, out *Output) {
	out.Transitions = append(out.Transitions, Transition{
		Timestamp: now,
		From:      m.state,
		To:        to,
		Reason:    reason,
		Amount:    m.amount,
	})
	from := m.state
	m.state = to

	switch to {
	case StateSleep:
		m.counts.Sleeps++
		m.timeouts.DisarmGrindSafety()
	case StateSelect:
		m.ensureAmount()
		m.timeouts.ArmSleep(now, m.cfg.SleepGrace)
	case StatePreCalibrate, StateCalibrate:
		m.timeouts.ArmSleep(now, m.cfg.SleepGrace)
	case StateGrinding:
		m.counts.GrindsStarted++
		m.grindStart = now
		m.timeouts.ArmGrindSafety(now, m.cfg.GrindLimit)
		m.timeouts.ArmSleep(now, m.cfg.SleepGrace)
	case StateDone:
		if from == StateGrinding {
			if reason == ReasonStopped {
				m.counts.GrindsStopped++
			} else {
				m.counts.GrindsCompleted++
			}
		}
		m.grindStart = time.Time{}
		m.timeouts.DisarmGrindSafety()
		m.timeouts.ArmSleep(now, m.cfg.SleepGrace)
	case StateLockout:
		m.counts.Lockouts++
		m.grindStart = time.Time{}
		m.timeouts.DisarmGrindSafety()
	}
}

func (m *Machine) grindComplete(in Input) bool {
	if m.cfg.Variant.Mode == ModeWeight {
		return in.Grams >= float64(m.amount)
	}
	return in.Now.Sub(m.grindStart) >= time.Duration(m.amount)*time.Second
}

// ensureAmount loads the persisted amount when unset and clamps it.
func (m *Machine) ensureAmount() {
	lo, hi, def := m.cfg.Variant.Bounds()
	if m.amount == 0 {
		m.amount = def
		if m.store != nil {
			if v, err := m.store.Load(); err == nil {
				m.amount = v
			}
		}
	}
	m.amount = clamp(int(m.amount), lo, hi)
}

func (m *Machine) message(in Input) Message {
	unit := m.cfg.Variant.Unit()
	switch m.state {
	case StateSelect:
		return Message{Kind: MessageSelect, Unit: unit, Amount: m.amount}
	case StatePreCalibrate, StateCalibrate:
		return Message{Kind: MessageCalibrating}
	case StateGrinding:
		msg := Message{Kind: MessageGrinding, Unit: unit, Amount: m.amount}
		if m.cfg.Variant.Mode == ModeWeight {
			msg.Value = int32(in.Grams * 10)
		} else {
			remaining := time.Duration(m.amount)*time.Second - in.Now.Sub(m.grindStart)
			msg.Value = int32(remaining / time.Second)
		}
		if msg.Value < 0 {
			msg.Value = 0
		}
		return msg
	case StateDone:
		return Message{Kind: MessageReady}
	case StateLockout:
		return Message{Kind: MessageError}
	default:
		return Message{Kind: MessageBlank}
	}
}

func clamp(v int, lo, hi uint8) uint8 {
	if v < int(lo) {
		return lo
	}
	if v > int(hi) {
		return hi
	}
	return uint8(v)
}
