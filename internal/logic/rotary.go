package logic

// Rotation is a discrete rotation step.
type Rotation uint8

const (
	RotationNone Rotation = iota
	RotationClockwise
	RotationCounterClockwise
)

func (r Rotation) String() string {
	switch r {
	case RotationClockwise:
		return "CW"
	case RotationCounterClockwise:
		return "CCW"
	default:
		return "NONE"
	}
}

// Decoder states. The low nibble is the state register; the emit flags
// live in the high nibble of a table entry.
const (
	rStart     = 0x0
	rCWFinal   = 0x1
	rCWBegin   = 0x2
	rCWNext    = 0x3
	rCCWBegin  = 0x4
	rCCWFinal  = 0x5
	rCCWNext   = 0x6
	emitCW     = 0x10
	emitCCW    = 0x20
	emitMask   = 0x30
	stateMask  = 0x0f
	pinStates  = 4
	stateCount = 7
)

// fullStep is indexed by [state][dir<<1|a]. Both lines rest high at a detent.
var fullStep = [stateCount][pinStates]uint8{
	rStart:    {rStart, rCWBegin, rCCWBegin, rStart},
	rCWFinal:  {rCWNext, rStart, rCWFinal, rStart | emitCW},
	rCWBegin:  {rCWNext, rCWBegin, rStart, rStart},
	rCWNext:   {rCWNext, rCWBegin, rCWFinal, rStart},
	rCCWBegin: {rCCWNext, rStart, rCCWBegin, rStart},
	rCCWFinal: {rCCWNext, rCCWFinal, rStart, rStart | emitCCW},
	rCCWNext:  {rCCWNext, rCCWFinal, rCCWBegin, rStart},
}

// RotaryDecoder turns quadrature samples into full detent steps.
// Only a complete rest-to-rest sequence emits a direction; bounce and
// reversed half-steps fall back toward the start state and emit nothing.
type RotaryDecoder struct {
	state uint8
}

// Process feeds one sample of the A and direction lines.
func (r *RotaryDecoder) Process(a, dir bool) Rotation {
	var pins uint8
	if dir {
		pins |= 2
	}
	if a {
		pins |= 1
	}
	r.state = fullStep[r.state&stateMask][pins]
	switch r.state & emitMask {
	case emitCW:
		return RotationClockwise
	case emitCCW:
		return RotationCounterClockwise
	default:
		return RotationNone
	}
}
