package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/roach88/rtsvc/internal/canon"
	"github.com/roach88/rtsvc/internal/monitor"
	"github.com/roach88/rtsvc/internal/rtsvc"
	"github.com/roach88/rtsvc/internal/smc"
)

func okHandler(smc.FunctionID, uint64, uint64, uint64, uint64, any, smc.Context, smc.Flags) smc.Result {
	return smc.OK
}

// testIndex builds Scenario C next to a healthy descriptor.
func testIndex(t *testing.T) *rtsvc.Index {
	t.Helper()
	c := rtsvc.NewCatalog(
		&rtsvc.Descriptor{Name: "std", StartOEN: 4, EndOEN: 4, CallType: smc.Fast, Handle: okHandler},
		&rtsvc.Descriptor{
			Name: "broken", StartOEN: 0, EndOEN: 0, CallType: smc.Fast,
			Init:   func() error { return errors.New("no firmware") },
			Handle: okHandler,
		},
	)
	ix, err := rtsvc.Build(c, rtsvc.WithReporter(rtsvc.ReporterFunc(func(int, string, error) {})))
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	return ix
}

func TestWriteBoot(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ix := testIndex(t)

	if err := s.WriteBoot(ctx, "boot-1", "catalogs/test.toml", ix); err != nil {
		t.Fatalf("WriteBoot() failed: %v", err)
	}

	b, err := s.ReadBoot(ctx, "boot-1")
	if err != nil {
		t.Fatalf("ReadBoot() failed: %v", err)
	}
	want := Boot{
		ID:          "boot-1",
		Source:      "catalogs/test.toml",
		Fingerprint: canon.TableFingerprint(ix),
		Descriptors: 2,
		Slots:       1,
	}
	if b != want {
		t.Errorf("ReadBoot() = %+v, want %+v", b, want)
	}

	regs, err := s.ReadRegistrations(ctx, "boot-1")
	if err != nil {
		t.Fatalf("ReadRegistrations() failed: %v", err)
	}
	if len(regs) != 2 {
		t.Fatalf("got %d registrations, want 2", len(regs))
	}
	if regs[0].Status != StatusRegistered || regs[0].Name != "std" || regs[0].StartOEN != 4 || regs[0].HasInit {
		t.Errorf("regs[0] = %+v", regs[0])
	}
	if regs[1].Status != StatusInitFailed || regs[1].Detail != "no firmware" || !regs[1].HasInit || !regs[1].HasHandle {
		t.Errorf("regs[1] = %+v", regs[1])
	}
	if regs[1].CallType != "fast" {
		t.Errorf("regs[1].CallType = %q, want fast", regs[1].CallType)
	}
}

func TestWriteBoot_DuplicateID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ix := testIndex(t)

	if err := s.WriteBoot(ctx, "boot-1", "a", ix); err != nil {
		t.Fatalf("first WriteBoot() failed: %v", err)
	}
	err := s.WriteBoot(ctx, "boot-1", "b", ix)
	if err == nil {
		t.Fatal("second WriteBoot() with the same ID should fail")
	}

	// The failed transaction leaves nothing behind.
	regs, err := s.ReadRegistrations(ctx, "boot-1")
	if err != nil {
		t.Fatalf("ReadRegistrations() failed: %v", err)
	}
	if len(regs) != 2 {
		t.Errorf("got %d registrations, want 2", len(regs))
	}
}

func TestRecordCall_RoundTripsRegisterWidth(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.WriteBoot(ctx, "boot-1", "test", testIndex(t)); err != nil {
		t.Fatalf("WriteBoot() failed: %v", err)
	}

	rec := monitor.CallRecord{
		BootID: "boot-1",
		Seq:    1,
		Unit:   2,
		FID:    0xC4000001,
		Args:   [4]uint64{1, 0xFFFFFFFFFFFFFFFF, 1 << 63, 4},
		Flags:  smc.FromNonSecure,
		Result: smc.Unknown,
		Regs:   [4]uint64{uint64(smc.Unknown), 0xFFFFFFFFFFFFFFFF, 1 << 63, 0},
	}
	if err := s.RecordCall(ctx, rec); err != nil {
		t.Fatalf("RecordCall() failed: %v", err)
	}

	calls, err := s.ReadCalls(ctx, "boot-1")
	if err != nil {
		t.Fatalf("ReadCalls() failed: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	if calls[0].CallRecord != rec {
		t.Errorf("ReadCalls()[0] = %+v, want %+v", calls[0].CallRecord, rec)
	}
	if len(calls[0].CallID) != 64 {
		t.Errorf("CallID = %q, want 64 hex chars", calls[0].CallID)
	}
}

func TestRecordCall_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.WriteBoot(ctx, "boot-1", "test", testIndex(t)); err != nil {
		t.Fatalf("WriteBoot() failed: %v", err)
	}

	rec := monitor.CallRecord{BootID: "boot-1", Seq: 1, FID: 0x84000000, Resolved: true, Descriptor: "std"}
	for i := 0; i < 3; i++ {
		if err := s.RecordCall(ctx, rec); err != nil {
			t.Fatalf("RecordCall() #%d failed: %v", i+1, err)
		}
	}

	calls, err := s.ReadCalls(ctx, "boot-1")
	if err != nil {
		t.Fatalf("ReadCalls() failed: %v", err)
	}
	if len(calls) != 1 {
		t.Errorf("got %d calls, want 1", len(calls))
	}
}

func TestRecordCall_UnknownBoot(t *testing.T) {
	s := createTestStore(t)
	err := s.RecordCall(context.Background(), monitor.CallRecord{BootID: "ghost", Seq: 1})
	if err == nil || !strings.Contains(err.Error(), "record call") {
		t.Errorf("RecordCall() for unknown boot = %v, want foreign key error", err)
	}
}
