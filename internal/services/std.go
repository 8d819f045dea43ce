package services

import (
	"github.com/roach88/rtsvc/internal/smc"
)

// PSCI calls implemented by the standard service.
const (
	PSCIVersion  smc.FunctionID = 0x84000000
	PSCIFeatures smc.FunctionID = 0x8400000A

	// PSCIVersionValue is PSCI 1.1.
	PSCIVersionValue = 0x10001
)

func stdSvcHandler(fid smc.FunctionID, x1, _, _, _ uint64, _ any, _ smc.Context, _ smc.Flags) smc.Result {
	switch fid.Number() {
	case PSCIVersion.Number():
		return PSCIVersionValue
	case PSCIFeatures.Number():
		switch smc.FunctionID(uint32(x1)) {
		case PSCIVersion, PSCIFeatures:
			return smc.OK
		default:
			return smc.NotSupported
		}
	default:
		return smc.Unknown
	}
}
