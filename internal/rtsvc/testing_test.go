package rtsvc

import (
	"errors"
	"sync"

	"github.com/roach88/rtsvc/internal/smc"
)

// tagHandler returns a handler whose result identifies it.
func tagHandler(tag smc.Result) Handler {
	return func(smc.FunctionID, uint64, uint64, uint64, uint64, any, smc.Context, smc.Flags) smc.Result {
		return tag
	}
}

func fast(name string, start, end smc.OEN, h Handler) *Descriptor {
	return &Descriptor{Name: name, StartOEN: start, EndOEN: end, CallType: smc.Fast, Handle: h}
}

func yielding(name string, start, end smc.OEN, h Handler) *Descriptor {
	return &Descriptor{Name: name, StartOEN: start, EndOEN: end, CallType: smc.Yield, Handle: h}
}

func fid(t smc.CallType, oen smc.OEN) smc.FunctionID {
	return smc.NewFunctionID(t, false, oen, 0)
}

var errInit = errors.New("init failed")

type initFailure struct {
	Index int
	Name  string
	Err   error
}

// recordingDiag captures every report and turns Halt into a panic the test
// can recover.
type recordingDiag struct {
	mu       sync.Mutex
	failures []initFailure
	halted   error
}

type haltSignal struct{ err error }

func (d *recordingDiag) InitFailed(index int, name string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = append(d.failures, initFailure{index, name, err})
}

func (d *recordingDiag) Halt(err error) {
	d.halted = err
	panic(haltSignal{err})
}

// boot runs Boot and reports whether it halted.
func boot(c Catalog, d *recordingDiag) (ix *Index, halted bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(haltSignal); !ok {
				panic(r)
			}
			halted = true
		}
	}()
	return Boot(c, d), false
}
