package services

import (
	"errors"
	"sync/atomic"

	"github.com/roach88/rtsvc/internal/smc"
)

// Trusted OS function numbers.
const (
	// TOSCount returns the number of trusted OS calls handled so far,
	// including this one.
	TOSCount uint16 = 0

	// TOSWork is a yielding call. It reports smc.Preempted when x1 is 1 and
	// smc.OK otherwise.
	TOSWork uint16 = 1
)

// TrustedOS is a stand-in trusted OS dispatcher. One instance backs both
// the fast and the yielding descriptors of a catalog, only one of which
// carries Init.
type TrustedOS struct {
	ready atomic.Bool
	calls atomic.Uint64
}

// NewTrustedOS returns an uninitialized trusted OS.
func NewTrustedOS() *TrustedOS {
	return &TrustedOS{}
}

// Init marks the trusted OS ready. Running it twice is an error.
func (t *TrustedOS) Init() error {
	if !t.ready.CompareAndSwap(false, true) {
		return errors.New("trusted_os: already initialized")
	}
	return nil
}

// Calls returns the number of calls handled.
func (t *TrustedOS) Calls() uint64 {
	return t.calls.Load()
}

// Handle serves both call types. Handlers run concurrently on every
// execution unit, so state is atomic.
func (t *TrustedOS) Handle(fid smc.FunctionID, x1, _, _, _ uint64, _ any, _ smc.Context, _ smc.Flags) smc.Result {
	if !t.ready.Load() {
		return smc.NotSupported
	}
	n := t.calls.Add(1)

	switch fid.Number() {
	case TOSCount:
		return smc.Result(n)
	case TOSWork:
		if fid.CallType() != smc.Yield {
			return smc.NotSupported
		}
		if x1 == 1 {
			return smc.Preempted
		}
		return smc.OK
	default:
		return smc.Unknown
	}
}
