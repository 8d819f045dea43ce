package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/rtsvc/internal/rtsvc"
	"github.com/roach88/rtsvc/internal/smc"
)

// DefaultUnits is the number of execution units when WithUnits is not
// given.
const DefaultUnits = 4

type request struct {
	ctx   context.Context
	call  Call
	reply chan CallRecord
}

// Monitor owns the execution units dispatching through one Router.
//
// Thread-safety model:
//   - Submit, SubmitAll: safe from any goroutine
//   - Run: one active call at a time
type Monitor struct {
	router   *rtsvc.Router
	units    int
	clock    Sequencer
	bootID   string
	recorder Recorder
	logger   *slog.Logger

	requests chan request
	running  atomic.Bool
	stopOnce sync.Once
	stopped  chan struct{}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithUnits sets the number of execution units. Values below 1 are
// ignored.
func WithUnits(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.units = n
		}
	}
}

// WithClock sets the clock calls are stamped from.
func WithClock(c Sequencer) Option {
	return func(m *Monitor) {
		m.clock = c
	}
}

// WithBootID fixes the boot ID instead of generating one.
func WithBootID(id string) Option {
	return func(m *Monitor) {
		m.bootID = id
	}
}

// WithBootIDGenerator sets how the boot ID is generated.
// Default: UUIDv7Generator.
func WithBootIDGenerator(g BootIDGenerator) Option {
	return func(m *Monitor) {
		m.bootID = g.Generate()
	}
}

// WithRecorder sets where call records go.
func WithRecorder(r Recorder) Option {
	return func(m *Monitor) {
		m.recorder = r
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// New creates a monitor over router. The router's index must already be
// built.
func New(router *rtsvc.Router, opts ...Option) *Monitor {
	m := &Monitor{
		router:   router,
		units:    DefaultUnits,
		recorder: nopRecorder{},
		requests: make(chan request),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.clock == nil {
		m.clock = NewClock()
	}
	if m.bootID == "" {
		m.bootID = UUIDv7Generator{}.Generate()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// BootID returns the identifier stamped on every record of this monitor.
func (m *Monitor) BootID() string {
	return m.bootID
}

// Units returns the number of execution units.
func (m *Monitor) Units() int {
	return m.units
}

// Clock returns the monitor's clock.
func (m *Monitor) Clock() Sequencer {
	return m.clock
}

// Run starts the execution units and blocks until ctx is cancelled. After
// Run returns the monitor is stopped and Submit fails with ErrStopped.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	m.logger.Info("monitor starting", "boot_id", m.bootID, "units", m.units)

	var wg sync.WaitGroup
	for unit := 0; unit < m.units; unit++ {
		wg.Add(1)
		go func(unit int) {
			defer wg.Done()
			m.unitLoop(ctx, unit)
		}(unit)
	}
	wg.Wait()

	m.stopOnce.Do(func() { close(m.stopped) })
	m.logger.Info("monitor stopping: context cancelled", "boot_id", m.bootID, "calls", m.clock.Current())
	return ctx.Err()
}

func (m *Monitor) unitLoop(ctx context.Context, unit int) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-m.requests:
			req.reply <- m.Execute(req.ctx, unit, req.call)
		}
	}
}

// Execute dispatches call on the calling goroutine as execution unit unit.
// Run uses it for every submitted call; it is exported for hosts that
// drive their own units.
func (m *Monitor) Execute(ctx context.Context, unit int, call Call) CallRecord {
	regs := smc.NewCPUContext(call.FID, call.Args...)
	x1, x2, x3, x4 := regs.Args()

	rec := CallRecord{
		BootID: m.bootID,
		Unit:   unit,
		FID:    call.FID,
		Args:   [4]uint64{x1, x2, x3, x4},
		Flags:  call.Flags,
	}
	result, owner := m.router.Invoke(call.FID, call.Cookie, regs, call.Flags)
	if owner != nil {
		rec.Resolved = true
		rec.Descriptor = owner.Name
	}
	regs.Regs[0] = uint64(result)

	rec.Seq = m.clock.Next()
	rec.Result = result
	rec.Regs = regs.Results()

	if err := m.recorder.RecordCall(ctx, rec); err != nil {
		m.logger.Error("failed to record call",
			"boot_id", rec.BootID,
			"seq", rec.Seq,
			"fid", rec.FID.String(),
			"error", err,
		)
	}
	return rec
}

// Submit hands call to the next free execution unit and waits for its
// record. It blocks until a unit is free, ctx is done, or the monitor
// stops.
func (m *Monitor) Submit(ctx context.Context, call Call) (CallRecord, error) {
	req := request{ctx: ctx, call: call, reply: make(chan CallRecord, 1)}
	select {
	case m.requests <- req:
	case <-ctx.Done():
		return CallRecord{}, ctx.Err()
	case <-m.stopped:
		return CallRecord{}, ErrStopped
	}
	// A unit that accepted the request always replies.
	return <-req.reply, nil
}

// SubmitAll submits every call concurrently and returns the records in the
// order of calls. The first error cancels the remaining submissions.
func (m *Monitor) SubmitAll(ctx context.Context, calls []Call) ([]CallRecord, error) {
	records := make([]CallRecord, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.units)
	for i, call := range calls {
		g.Go(func() error {
			rec, err := m.Submit(gctx, call)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}
