package services

import (
	"github.com/roach88/rtsvc/internal/smc"
)

// Arm architecture service calls.
const (
	SMCCCVersion      smc.FunctionID = 0x80000000
	SMCCCArchFeatures smc.FunctionID = 0x80000001

	// SMCCCVersionValue is v1.2 encoded as major<<16 | minor.
	SMCCCVersionValue = 0x10002
)

func armArchHandler(fid smc.FunctionID, x1, _, _, _ uint64, _ any, _ smc.Context, _ smc.Flags) smc.Result {
	switch fid.Number() {
	case SMCCCVersion.Number():
		return SMCCCVersionValue
	case SMCCCArchFeatures.Number():
		switch smc.FunctionID(uint32(x1)) {
		case SMCCCVersion, SMCCCArchFeatures:
			return smc.OK
		default:
			return smc.NotSupported
		}
	default:
		return smc.Unknown
	}
}
