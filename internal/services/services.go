// Package services provides the runtime services built into the rtsvc
// binary. They exist so catalogs have something real to route to.
package services

import (
	"errors"

	"github.com/roach88/rtsvc/internal/catalog"
	"github.com/roach88/rtsvc/internal/smc"
)

// Registry names.
const (
	ArmArch       = "arm_arch"
	StdSvc        = "std_svc"
	SiPEcho       = "sip_echo"
	TrustedOSName = "trusted_os"
	Faulty        = "faulty"
)

// ErrFaultyInit is returned by the faulty service's Init.
var ErrFaultyInit = errors.New("faulty: simulated initialization failure")

// Register adds every built-in service to reg. Each call creates fresh
// service state.
func Register(reg *catalog.Registry) {
	reg.Register(ArmArch, catalog.Service{Handle: armArchHandler})
	reg.Register(StdSvc, catalog.Service{Handle: stdSvcHandler})
	reg.Register(SiPEcho, catalog.Service{Handle: sipEchoHandler})

	tos := NewTrustedOS()
	reg.Register(TrustedOSName, catalog.Service{Init: tos.Init, Handle: tos.Handle})

	reg.Register(Faulty, catalog.Service{
		Init:   func() error { return ErrFaultyInit },
		Handle: func(smc.FunctionID, uint64, uint64, uint64, uint64, any, smc.Context, smc.Flags) smc.Result { return smc.OK },
	})
}

// NewRegistry returns a registry holding the built-in services.
func NewRegistry() *catalog.Registry {
	reg := catalog.NewRegistry()
	Register(reg)
	return reg
}

// ret4 writes results through the caller's context when it is a saved
// register file, and returns a0 either way.
func ret4(ctx smc.Context, a0, a1, a2, a3 uint64) smc.Result {
	if c, ok := ctx.(*smc.CPUContext); ok {
		return c.Ret4(a0, a1, a2, a3)
	}
	return smc.Result(a0)
}
