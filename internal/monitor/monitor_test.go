package monitor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rtsvc/internal/rtsvc"
	"github.com/roach88/rtsvc/internal/smc"
	"github.com/roach88/rtsvc/internal/testutil"
)

func testRouter(t *testing.T) *rtsvc.Router {
	t.Helper()
	c := rtsvc.NewCatalog(
		&rtsvc.Descriptor{
			Name: "echo", StartOEN: smc.OENSiP, EndOEN: smc.OENSiP, CallType: smc.Fast,
			Handle: func(_ smc.FunctionID, x1, x2, x3, x4 uint64, _ any, ctx smc.Context, _ smc.Flags) smc.Result {
				return ctx.(*smc.CPUContext).Ret4(x1, x2, x3, x4)
			},
		},
		&rtsvc.Descriptor{
			Name: "origin", StartOEN: smc.OENStd, EndOEN: smc.OENStd, CallType: smc.Fast,
			Handle: func(_ smc.FunctionID, _, _, _, _ uint64, _ any, _ smc.Context, flags smc.Flags) smc.Result {
				return smc.Result(flags)
			},
		},
	)
	ix, err := rtsvc.Build(c)
	require.NoError(t, err)
	return rtsvc.NewRouter(ix)
}

type memRecorder struct {
	mu   sync.Mutex
	recs []CallRecord
}

func (r *memRecorder) RecordCall(_ context.Context, rec CallRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return nil
}

func startMonitor(t *testing.T, m *Monitor) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Error("monitor did not stop")
		}
	})
}

var echoFID = smc.NewFunctionID(smc.Fast, false, smc.OENSiP, 0)

func TestExecute_ConduitReturn(t *testing.T) {
	rec := &memRecorder{}
	m := New(testRouter(t), WithBootID("boot-1"), WithRecorder(rec))

	got := m.Execute(context.Background(), 3, Call{FID: echoFID, Args: []uint64{7, 8, 9, 10}, Flags: smc.FromNonSecure})

	assert.Equal(t, "boot-1", got.BootID)
	assert.Equal(t, int64(1), got.Seq)
	assert.Equal(t, 3, got.Unit)
	assert.True(t, got.Resolved)
	assert.Equal(t, "echo", got.Descriptor)
	assert.Equal(t, smc.Result(7), got.Result)
	assert.Equal(t, [4]uint64{7, 8, 9, 10}, got.Regs)
	assert.Equal(t, [4]uint64{7, 8, 9, 10}, got.Args)

	require.Len(t, rec.recs, 1)
	assert.Equal(t, got, rec.recs[0])
}

func TestExecute_UnknownCall(t *testing.T) {
	m := New(testRouter(t), WithBootID("b"))
	got := m.Execute(context.Background(), 0, Call{FID: 0x02000000, Args: []uint64{5}})

	assert.False(t, got.Resolved)
	assert.Empty(t, got.Descriptor)
	assert.Equal(t, smc.Unknown, got.Result)
	assert.Equal(t, uint64(smc.Unknown), got.Regs[0])
	assert.Equal(t, uint64(5), got.Regs[1], "registers beyond x0 are untouched")
}

func TestExecute_InitOnlyOwnerNotResolved(t *testing.T) {
	decomposed := 0
	c := rtsvc.NewCatalog(&rtsvc.Descriptor{
		Name: "setup", StartOEN: smc.OENStd, EndOEN: smc.OENStd, CallType: smc.Fast,
		Init: func() error { return nil },
	})
	ix, err := rtsvc.Build(c)
	require.NoError(t, err)
	router := rtsvc.NewRouter(ix, rtsvc.WithDecomposer(func(fid smc.FunctionID) (smc.OEN, smc.CallType) {
		decomposed++
		return smc.Decompose(fid)
	}))

	got := New(router, WithBootID("b")).Execute(context.Background(), 0, Call{FID: 0x84000000})
	assert.False(t, got.Resolved)
	assert.Empty(t, got.Descriptor)
	assert.Equal(t, smc.Unknown, got.Result)
	assert.Equal(t, 1, decomposed)
}

func TestExecute_RecorderFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	var attempts int
	rec := RecorderFunc(func(_ context.Context, got CallRecord) error {
		attempts++
		assert.Equal(t, "b", got.BootID)
		return errors.New("disk full")
	})
	m := New(testRouter(t),
		WithBootID("b"),
		WithRecorder(rec),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)

	got := m.Execute(context.Background(), 0, Call{FID: echoFID, Args: []uint64{1}})
	assert.Equal(t, smc.Result(1), got.Result)
	assert.Contains(t, buf.String(), "failed to record call")
	assert.Contains(t, buf.String(), "disk full")
	assert.Equal(t, 1, attempts)
}

func TestSubmit(t *testing.T) {
	m := New(testRouter(t), WithUnits(2), WithBootIDGenerator(testutil.NewFixedBootIDGenerator("fixed")))
	assert.Equal(t, "fixed", m.BootID())
	assert.Equal(t, 2, m.Units())
	startMonitor(t, m)

	got, err := m.Submit(context.Background(), Call{FID: 0x84000000, Flags: smc.FromNonSecure})
	require.NoError(t, err)
	assert.Equal(t, smc.Result(smc.FromNonSecure), got.Result)
	assert.Equal(t, "origin", got.Descriptor)
	assert.GreaterOrEqual(t, got.Unit, 0)
	assert.Less(t, got.Unit, 2)
}

func TestSubmit_ContextCancelledBeforeRun(t *testing.T) {
	m := New(testRouter(t))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.Submit(ctx, Call{FID: echoFID})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmit_AfterStop(t *testing.T) {
	m := New(testRouter(t), WithUnits(1))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	_, err := m.Submit(context.Background(), Call{FID: echoFID})
	require.NoError(t, err)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	_, err = m.Submit(context.Background(), Call{FID: echoFID})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestRun_Twice(t *testing.T) {
	m := New(testRouter(t))
	startMonitor(t, m)

	// Wait for the first Run to be active.
	_, err := m.Submit(context.Background(), Call{FID: echoFID})
	require.NoError(t, err)

	assert.ErrorIs(t, m.Run(context.Background()), ErrAlreadyRunning)
}

func TestSubmitAll_OrderedRecordsUniqueSeq(t *testing.T) {
	rec := &memRecorder{}
	m := New(testRouter(t), WithUnits(4), WithRecorder(rec), WithClock(NewClockAt(100)))
	startMonitor(t, m)

	calls := make([]Call, 50)
	for i := range calls {
		calls[i] = Call{FID: echoFID, Args: []uint64{uint64(i)}}
	}
	recs, err := m.SubmitAll(context.Background(), calls)
	require.NoError(t, err)
	require.Len(t, recs, 50)

	seqs := make([]int64, 0, len(recs))
	for i, r := range recs {
		assert.Equal(t, smc.Result(i), r.Result, "records follow call order")
		seqs = append(seqs, r.Seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	for i, s := range seqs {
		assert.Equal(t, int64(101+i), s)
	}
	assert.Len(t, rec.recs, 50)
}

func TestSubmitAll_StopsOnError(t *testing.T) {
	m := New(testRouter(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.SubmitAll(ctx, []Call{{FID: echoFID}, {FID: echoFID}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithUnits_IgnoresNonPositive(t *testing.T) {
	m := New(testRouter(t), WithUnits(0))
	assert.Equal(t, DefaultUnits, m.Units())
}
