package monitor

import (
	"context"

	"github.com/roach88/rtsvc/internal/smc"
)

// Call is one monitor call as issued by a caller.
type Call struct {
	FID smc.FunctionID

	// Args holds x1 onward. At most smc.NumGPRegs-1 values are used.
	Args []uint64

	Flags  smc.Flags
	Cookie any
}

// CallRecord is the outcome of one dispatched call.
type CallRecord struct {
	BootID string
	Seq    int64
	Unit   int

	FID   smc.FunctionID
	Args  [4]uint64
	Flags smc.Flags

	// Resolved reports whether a registered handler ran. Descriptor names
	// its owner when it did. Calls into a range whose owner has no handler
	// are not resolved.
	Resolved   bool
	Descriptor string

	// Result is the handler's return value, or smc.Unknown.
	Result smc.Result

	// Regs is x0-x3 as the caller sees them after the conduit return.
	Regs [4]uint64
}

// Recorder persists call records. It must be safe for concurrent use;
// every execution unit records through it.
type Recorder interface {
	RecordCall(ctx context.Context, rec CallRecord) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, rec CallRecord) error

// RecordCall implements Recorder.
func (f RecorderFunc) RecordCall(ctx context.Context, rec CallRecord) error {
	return f(ctx, rec)
}

type nopRecorder struct{}

func (nopRecorder) RecordCall(context.Context, CallRecord) error { return nil }
