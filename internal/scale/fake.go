package scale

// FakeSource is a RawSource returning scripted readings.
type FakeSource struct {
	// Values is consumed in order; the last value repeats.
	Values []int32
	index  int

	// Reads counts ReadRaw calls.
	Reads int

	// Err, if set, is returned by ReadRaw.
	Err error

	Closed bool
}

// ReadRaw returns the next scripted reading.
func (f *FakeSource) ReadRaw() (int32, error) {
	f.Reads++
	if f.Err != nil {
		return 0, f.Err
	}
	if len(f.Values) == 0 {
		return 0, nil
	}
	v := f.Values[f.index]
	if f.index < len(f.Values)-1 {
		f.index++
	}
	return v, nil
}

// Set replaces the scripted readings with a constant.
func (f *FakeSource) Set(v int32) {
	f.Values = []int32{v}
	f.index = 0
}

// Close marks the source closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}
