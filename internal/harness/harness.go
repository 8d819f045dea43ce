package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/rtsvc/internal/canon"
	"github.com/roach88/rtsvc/internal/catalog"
	"github.com/roach88/rtsvc/internal/monitor"
	"github.com/roach88/rtsvc/internal/rtsvc"
	"github.com/roach88/rtsvc/internal/services"
	"github.com/roach88/rtsvc/internal/smc"
	"github.com/roach88/rtsvc/internal/testutil"
)

// invalidCallType stands in for call type strings the stubs cannot parse,
// so the validator sees them and halts.
const invalidCallType smc.CallType = 0xff

// Harness is the scenario execution engine.
// It runs one scenario with a deterministic clock and boot ID.
type Harness struct {
	journal *testutil.Journal
	clock   *testutil.DeterministicClock
	bootIDs *testutil.FixedBootIDGenerator
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Assemble the catalog from stubs or from the catalog file
//  2. Boot it; a halt is recovered and recorded instead of exiting
//  3. Issue every call through a monitor on a single execution unit
//  4. Check halt and call expectations
//
// Run returns an error only when the scenario cannot be set up. Failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	h := &Harness{
		journal: testutil.NewJournal(),
		clock:   testutil.NewDeterministicClock(),
		bootIDs: testutil.NewFixedBootIDGenerator(scenario.BootID),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	c, err := h.catalog(scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	ix, halt := h.boot(c)
	h.traceBoot(result)
	h.checkHalt(scenario, halt, result)
	if halt != nil {
		result.Halted = true
		result.HaltCode = rtsvc.CodeOf(halt)
		return result, nil
	}
	result.Fingerprint = canon.TableFingerprint(ix)

	m := monitor.New(rtsvc.NewRouter(ix),
		monitor.WithUnits(1),
		monitor.WithClock(h.clock),
		monitor.WithBootIDGenerator(h.bootIDs),
		monitor.WithLogger(h.logger),
	)
	ctx := context.Background()
	stubbed := scenario.CatalogFile == ""
	for i, step := range scenario.Calls {
		if err := h.call(ctx, m, i, step, stubbed, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (h *Harness) catalog(s *Scenario) (rtsvc.Catalog, error) {
	if s.CatalogFile != "" {
		specs, err := catalog.Load(s.CatalogFile)
		if err != nil {
			return rtsvc.Catalog{}, fmt.Errorf("failed to load catalog: %w", err)
		}
		c, errs := catalog.Assemble(specs, services.NewRegistry())
		if len(errs) > 0 {
			return rtsvc.Catalog{}, fmt.Errorf("failed to assemble catalog: %w", errors.Join(errs...))
		}
		return c, nil
	}

	stubs := make([]testutil.Stub, len(s.Catalog))
	for i, svc := range s.Catalog {
		ct, err := smc.ParseCallType(svc.CallType)
		if err != nil {
			ct = invalidCallType
		}
		stubs[i] = testutil.Stub{
			Name:     svc.Name,
			StartOEN: smc.OEN(svc.StartOEN),
			EndOEN:   smc.OEN(svc.EndOEN),
			CallType: ct,
			Init:     svc.Init,
			NoHandle: svc.Handle != nil && !*svc.Handle,
			Result:   smc.Result(svc.Result),
		}
	}
	return testutil.StubCatalog(h.journal, stubs...)
}

// haltSignal carries a halt out of Boot. Halt must not return, so the
// harness unwinds with a panic and recovers it in boot.
type haltSignal struct {
	err error
}

// diagnostics records boot reports into the shared journal so they
// interleave with stub init events.
type diagnostics struct {
	journal *testutil.Journal
}

func (d diagnostics) InitFailed(_ int, name string, err error) {
	d.journal.Record(testutil.Event{Kind: EventInitFailed, Name: name, Detail: err.Error()})
}

func (d diagnostics) Halt(err error) {
	var name string
	var de *rtsvc.InvalidDescriptorError
	if errors.As(err, &de) {
		name = de.Name
	}
	d.journal.Record(testutil.Event{Kind: EventHalt, Name: name, Detail: rtsvc.CodeOf(err)})
	panic(haltSignal{err: err})
}

func (h *Harness) boot(c rtsvc.Catalog) (ix *rtsvc.Index, halt error) {
	defer func() {
		if r := recover(); r != nil {
			sig, ok := r.(haltSignal)
			if !ok {
				panic(r)
			}
			ix, halt = nil, sig.err
		}
	}()
	return rtsvc.Boot(c, diagnostics{journal: h.journal}), nil
}

func (h *Harness) traceBoot(result *Result) {
	for _, e := range h.journal.Events() {
		switch e.Kind {
		case EventInit, EventInitFailed, EventHalt:
			result.add(TraceEvent{Type: e.Kind, Name: e.Name, Detail: e.Detail})
		}
	}
}

func (h *Harness) checkHalt(s *Scenario, halt error, result *Result) {
	switch {
	case halt != nil && s.ExpectHalt == "":
		result.AddError(fmt.Sprintf("unexpected halt: %v", halt))
	case halt == nil && s.ExpectHalt != "":
		result.AddError(fmt.Sprintf("expected halt with %s, boot succeeded", s.ExpectHalt))
	case halt != nil && rtsvc.CodeOf(halt) != s.ExpectHalt:
		result.AddError(fmt.Sprintf("expected halt with %s, got %s: %v", s.ExpectHalt, rtsvc.CodeOf(halt), halt))
	}
}

func (h *Harness) call(ctx context.Context, m *monitor.Monitor, i int, step CallStep, stubbed bool, result *Result) error {
	fid, err := step.FunctionID()
	if err != nil {
		return fmt.Errorf("calls[%d]: %w", i, err)
	}

	mark := len(h.journal.Events())
	rec := m.Execute(ctx, 0, monitor.Call{FID: fid, Args: step.Args, Flags: step.flags()})

	var handler string
	for _, e := range h.journal.Events()[mark:] {
		if e.Kind == EventCall {
			handler = e.Name
		}
	}

	result.add(TraceEvent{
		Type:       EventCall,
		Seq:        rec.Seq,
		FID:        fid.String(),
		Descriptor: rec.Descriptor,
		Handler:    handler,
		Result:     formatResult(rec.Result),
	})

	where := fmt.Sprintf("calls[%d] %s", i, fid)
	if step.Expect == ExpectUnknown {
		if rec.Result != smc.Unknown {
			result.AddError(fmt.Sprintf("%s: expected unknown, got %s", where, formatResult(rec.Result)))
		}
		if handler != "" {
			result.AddError(fmt.Sprintf("%s: expected no handler, %s ran", where, handler))
		}
	} else {
		if rec.Descriptor != step.Expect {
			result.AddError(fmt.Sprintf("%s: expected descriptor %q, got %q", where, step.Expect, rec.Descriptor))
		}
		if stubbed && handler != step.Expect {
			result.AddError(fmt.Sprintf("%s: expected handler %q to run, got %q", where, step.Expect, handler))
		}
	}
	if step.ExpectResult != nil && uint64(rec.Result) != *step.ExpectResult {
		result.AddError(fmt.Sprintf("%s: expected result %#x, got %s", where, *step.ExpectResult, formatResult(rec.Result)))
	}
	return nil
}

func formatResult(r smc.Result) string {
	return fmt.Sprintf("%#x", uint64(r))
}
