package logic

import "strconv"

// MessageKind selects the display layout for a Message.
type MessageKind uint8

const (
	MessageBlank MessageKind = iota
	MessageSelect
	MessageCalibrating
	MessageGrinding
	MessageReady
	MessageError
)

// Font is the display font hint for a Message.
type Font uint8

const (
	FontLarge Font = iota
	FontSmall
)

// Message is a tagged display message. It is comparable so the runner can
// skip redraws when nothing changed.
//
// For MessageSelect, Amount is the selection. For MessageGrinding, Amount is
// the target and Value is the remaining whole seconds (time) or the current
// weight in tenths of a gram (weight).
type Message struct {
	Kind   MessageKind
	Unit   byte
	Amount uint8
	Value  int32
}

// AppendText appends the display text for m to dst.
func AppendText(dst []byte, m Message) []byte {
	switch m.Kind {
	case MessageBlank:
		return dst
	case MessageSelect:
		dst = strconv.AppendUint(dst, uint64(m.Amount), 10)
		return append(dst, m.Unit)
	case MessageCalibrating:
		return append(dst, "Calibrating"...)
	case MessageGrinding:
		if m.Unit == 'g' {
			dst = appendTenths(dst, m.Value)
		} else {
			dst = strconv.AppendInt(dst, int64(m.Value), 10)
		}
		dst = append(dst, '/')
		dst = strconv.AppendUint(dst, uint64(m.Amount), 10)
		return append(dst, m.Unit)
	case MessageReady:
		return append(dst, "Ready"...)
	case MessageError:
		return append(dst, "Error"...)
	}
	return dst
}

func appendTenths(dst []byte, v int32) []byte {
	if v < 0 {
		dst = append(dst, '-')
		v = -v
	}
	dst = strconv.AppendInt(dst, int64(v/10), 10)
	dst = append(dst, '.')
	return strconv.AppendInt(dst, int64(v%10), 10)
}

// Text returns the display text for m.
func (m Message) Text() string {
	var buf [16]byte
	return string(AppendText(buf[:0], m))
}

// Font returns the font the message should be drawn with.
func (m Message) Font() Font {
	if m.Kind == MessageCalibrating {
		return FontSmall
	}
	return FontLarge
}
