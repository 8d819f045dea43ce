package services

import (
	"github.com/roach88/rtsvc/internal/smc"
)

// SiP echo function numbers.
const (
	// SiPEchoArgs returns x1-x4 in x0-x3.
	SiPEchoArgs uint16 = 0
	// SiPEchoSum returns x1+x2+x3+x4 in x0.
	SiPEchoSum uint16 = 1
)

func sipEchoHandler(fid smc.FunctionID, x1, x2, x3, x4 uint64, _ any, ctx smc.Context, _ smc.Flags) smc.Result {
	switch fid.Number() {
	case SiPEchoArgs:
		return ret4(ctx, x1, x2, x3, x4)
	case SiPEchoSum:
		return smc.Result(x1 + x2 + x3 + x4)
	default:
		return smc.Unknown
	}
}
