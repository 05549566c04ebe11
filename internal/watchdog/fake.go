package watchdog

// FakeKicker counts kicks.
type FakeKicker struct {
	Kicks  int
	Closed bool

	// KickError, if set, is returned by Kick.
	KickError error
}

func (f *FakeKicker) Kick() error {
	if f.KickError != nil {
		return f.KickError
	}
	f.Kicks++
	return nil
}

func (f *FakeKicker) Close() error {
	f.Closed = true
	return nil
}
