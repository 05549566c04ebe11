// Package journal keeps an append-only CBOR record of state changes and
// faults on local storage, so a lockout can be diagnosed after a restart.
package journal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/sweeney/grinder/internal/logic"
)

// Kind classifies an entry.
type Kind uint8

const (
	KindBoot Kind = iota + 1
	KindTransition
	KindFault
	KindShutdown
)

func (k Kind) String() string {
	switch k {
	case KindBoot:
		return "BOOT"
	case KindTransition:
		return "TRANSITION"
	case KindFault:
		return "FAULT"
	case KindShutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

// Entry is one journal record. Integer keys keep records small.
type Entry struct {
	Boot      string      `cbor:"1,keyasint"`
	Timestamp time.Time   `cbor:"2,keyasint"`
	Kind      Kind        `cbor:"3,keyasint"`
	From      logic.State `cbor:"4,keyasint,omitempty"`
	To        logic.State `cbor:"5,keyasint,omitempty"`
	Reason    string      `cbor:"6,keyasint,omitempty"`
	Amount    uint8       `cbor:"7,keyasint,omitempty"`
	Detail    string      `cbor:"8,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("journal: cbor encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyQuiet,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("journal: cbor decoder mode: %v", err))
	}
}

// Journal appends entries for one boot. It is safe for concurrent use.
type Journal struct {
	mu     sync.Mutex
	f      *os.File
	enc    *cbor.Encoder
	boot   string
	closed bool
}

// Open appends to the journal at path, creating it if needed.
func Open(path string, boot uuid.UUID) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{f: f, enc: encMode.NewEncoder(f), boot: boot.String()}, nil
}

func (j *Journal) write(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return errors.New("journal closed")
	}
	e.Boot = j.boot
	if err := j.enc.Encode(e); err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}

// Boot records process start.
func (j *Journal) Boot(now time.Time, version string) error {
	return j.write(Entry{Timestamp: now, Kind: KindBoot, Detail: version})
}

// Transition records a state change.
func (j *Journal) Transition(t logic.Transition) error {
	return j.write(Entry{
		Timestamp: t.Timestamp,
		Kind:      KindTransition,
		From:      t.From,
		To:        t.To,
		Reason:    t.Reason,
		Amount:    t.Amount,
	})
}

// Fault records an actuator, bus or storage failure.
func (j *Journal) Fault(now time.Time, detail string) error {
	return j.write(Entry{Timestamp: now, Kind: KindFault, Detail: detail})
}

// Shutdown records a clean exit and its reason.
func (j *Journal) Shutdown(now time.Time, reason string) error {
	return j.write(Entry{Timestamp: now, Kind: KindShutdown, Detail: reason})
}

// Close syncs and closes the file. It is safe to call more than once.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	if err := j.f.Sync(); err != nil {
		j.f.Close()
		return fmt.Errorf("sync journal: %w", err)
	}
	return j.f.Close()
}

// reader streams entries from a journal file.
type reader struct {
	f   *os.File
	dec *cbor.Decoder
}

func newReader(path string) (*reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &reader{f: f, dec: decMode.NewDecoder(f)}, nil
}

// next returns the next entry, or io.EOF at the end. A record cut short by
// power loss is reported as io.ErrUnexpectedEOF.
func (r *reader) next() (Entry, error) {
	var e Entry
	if err := r.dec.Decode(&e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (r *reader) close() error {
	return r.f.Close()
}

// ReadAll returns every complete entry in the journal at path. A truncated
// final record is dropped.
func ReadAll(path string) ([]Entry, error) {
	r, err := newReader(path)
	if err != nil {
		return nil, err
	}
	defer r.close()

	var out []Entry
	for {
		e, err := r.next()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("decode journal entry %d: %w", len(out), err)
		}
		out = append(out, e)
	}
}
