package watchdog

import (
	"errors"
	"testing"
)

func TestKickerImplementations(t *testing.T) {
	var _ Kicker = Nop{}
	var _ Kicker = &FakeKicker{}
	var _ Kicker = &Device{}
}

func TestFakeKicker(t *testing.T) {
	f := &FakeKicker{}
	for i := 0; i < 3; i++ {
		if err := f.Kick(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if f.Kicks != 3 {
		t.Errorf("expected 3 kicks, got %d", f.Kicks)
	}
	f.KickError = errors.New("gone")
	if err := f.Kick(); err == nil {
		t.Error("expected error")
	}
	if f.Kicks != 3 {
		t.Errorf("expected failed kick not counted, got %d", f.Kicks)
	}
	f.Close()
	if !f.Closed {
		t.Error("expected closed")
	}
}

func TestOpenMissingDevice(t *testing.T) {
	if _, err := Open("/nonexistent/watchdog", DefaultTimeout); err == nil {
		t.Error("expected error opening missing device")
	}
}
