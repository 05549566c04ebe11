package panel

import "errors"

// Idle is the resting panel: all lines pulled high.
var Idle = Sample{A: true, Dir: true, Button: true}

// FakeReader replays scripted samples. Once the script runs out the last
// sample is held, like a panel nobody touches.
type FakeReader struct {
	Samples []Sample
	next    int

	// Reads counts Read calls, failed ones included.
	Reads int

	// ReadError, if set, fails every Read without consuming a sample.
	ReadError error

	Closed bool
}

func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples}
}

func (f *FakeReader) Read() (Sample, error) {
	f.Reads++
	switch {
	case f.ReadError != nil:
		return Sample{}, f.ReadError
	case len(f.Samples) == 0:
		return Sample{}, errors.New("fake panel: no samples")
	}
	s := f.Samples[f.next]
	if f.next+1 < len(f.Samples) {
		f.next++
	}
	return s, nil
}

func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the script and clears the counters.
func (f *FakeReader) Reset() {
	f.next = 0
	f.Reads = 0
	f.Closed = false
}
