package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/grinder/internal/logic"
)

var t0 = time.Date(2026, 3, 1, 7, 30, 0, 0, time.UTC)

func TestJournalRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.cbor")
	boot := uuid.New()

	j, err := Open(path, boot)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	j.Boot(t0, "v1.0.0")
	j.Transition(logic.Transition{
		Timestamp: t0.Add(time.Second),
		From:      logic.StateSelect,
		To:        logic.StateGrinding,
		Reason:    logic.ReasonSelected,
		Amount:    14,
	})
	j.Fault(t0.Add(2*time.Second), "panel read: nack")
	j.Shutdown(t0.Add(3*time.Second), "SIGTERM")
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := ReadAll(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	wantKinds := []Kind{KindBoot, KindTransition, KindFault, KindShutdown}
	for i, e := range entries {
		if e.Kind != wantKinds[i] {
			t.Errorf("entry %d: expected %s, got %s", i, wantKinds[i], e.Kind)
		}
		if e.Boot != boot.String() {
			t.Errorf("entry %d: expected boot %s, got %s", i, boot, e.Boot)
		}
	}

	tr := entries[1]
	if tr.From != logic.StateSelect || tr.To != logic.StateGrinding || tr.Reason != "SELECTED" || tr.Amount != 14 {
		t.Errorf("unexpected transition entry %+v", tr)
	}
	if !tr.Timestamp.Equal(t0.Add(time.Second)) {
		t.Errorf("expected timestamp %v, got %v", t0.Add(time.Second), tr.Timestamp)
	}
	if entries[2].Detail != "panel read: nack" {
		t.Errorf("unexpected fault detail %q", entries[2].Detail)
	}
}

func TestJournalAppendsAcrossBoots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.cbor")

	for i := 0; i < 2; i++ {
		j, err := Open(path, uuid.New())
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		j.Boot(t0.Add(time.Duration(i)*time.Hour), "v1")
		j.Close()
	}

	entries, err := ReadAll(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Boot == entries[1].Boot {
		t.Error("expected distinct boot ids")
	}
}

func TestJournalTruncatedTailIsDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.cbor")
	j, err := Open(path, uuid.New())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	j.Boot(t0, "v1")
	j.Fault(t0, "watchdog")
	j.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if err := os.WriteFile(path, data[:len(data)-3], 0o644); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	entries, err := ReadAll(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != KindBoot {
		t.Errorf("expected only the boot entry, got %+v", entries)
	}
}

func TestJournalWriteAfterClose(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal.cbor"), uuid.New())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	j.Close()
	if err := j.Fault(t0, "late"); err == nil {
		t.Error("expected error after close")
	}
	if err := j.Close(); err != nil {
		t.Errorf("expected second close to be a no-op, got %v", err)
	}
}

func TestKindString(t *testing.T) {
	if KindFault.String() != "FAULT" || Kind(0).String() != "UNKNOWN" {
		t.Error("unexpected kind names")
	}
}
