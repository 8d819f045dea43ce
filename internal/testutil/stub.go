package testutil

import (
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/rtsvc/internal/rtsvc"
	"github.com/roach88/rtsvc/internal/smc"
)

// Init behaviors for stub services.
const (
	InitNone = "none"
	InitOK   = "ok"
	InitFail = "fail"
)

// ErrStubInit is returned by a stub whose init is set to fail.
var ErrStubInit = errors.New("stub init failed")

// Event is one observation made by a stub or by whoever shares its
// journal. Stubs record "init" and "call" events.
type Event struct {
	Kind   string
	Name   string
	FID    smc.FunctionID
	Detail string
}

// Journal records what stubs observed, in order. Safe for concurrent use.
type Journal struct {
	mu     sync.Mutex
	events []Event
}

// NewJournal returns an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Record appends e. Harnesses use it to interleave their own events with
// what the stubs observe.
func (j *Journal) Record(e Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
}

// Events returns a copy of the recorded events.
func (j *Journal) Events() []Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Event, len(j.events))
	copy(out, j.events)
	return out
}

// Calls returns how many calls the named stub handled.
func (j *Journal) Calls(name string) int {
	n := 0
	for _, e := range j.Events() {
		if e.Kind == "call" && e.Name == name {
			n++
		}
	}
	return n
}

// Stub describes a descriptor whose entry points only record into a
// Journal.
type Stub struct {
	Name     string
	StartOEN smc.OEN
	EndOEN   smc.OEN
	CallType smc.CallType

	// Init is one of InitNone, InitOK or InitFail. Empty means InitNone.
	Init string

	// NoHandle leaves the descriptor without a handler.
	NoHandle bool

	// Result is what the handler returns. Zero means smc.OK.
	Result smc.Result
}

// Descriptor builds the descriptor for s, reporting into j.
func (s Stub) Descriptor(j *Journal) (*rtsvc.Descriptor, error) {
	d := &rtsvc.Descriptor{
		Name:     s.Name,
		StartOEN: s.StartOEN,
		EndOEN:   s.EndOEN,
		CallType: s.CallType,
	}

	switch s.Init {
	case "", InitNone:
	case InitOK:
		d.Init = func() error {
			j.Record(Event{Kind: "init", Name: s.Name})
			return nil
		}
	case InitFail:
		d.Init = func() error {
			j.Record(Event{Kind: "init", Name: s.Name})
			return fmt.Errorf("%s: %w", s.Name, ErrStubInit)
		}
	default:
		return nil, fmt.Errorf("stub %q: unknown init behavior %q", s.Name, s.Init)
	}

	if !s.NoHandle {
		result := s.Result
		d.Handle = func(fid smc.FunctionID, _, _, _, _ uint64, _ any, _ smc.Context, _ smc.Flags) smc.Result {
			j.Record(Event{Kind: "call", Name: s.Name, FID: fid})
			return result
		}
	}
	return d, nil
}

// StubCatalog builds a catalog from stubs in order.
func StubCatalog(j *Journal, stubs ...Stub) (rtsvc.Catalog, error) {
	descs := make([]*rtsvc.Descriptor, 0, len(stubs))
	for _, s := range stubs {
		d, err := s.Descriptor(j)
		if err != nil {
			return rtsvc.Catalog{}, err
		}
		descs = append(descs, d)
	}
	return rtsvc.NewCatalog(descs...), nil
}
