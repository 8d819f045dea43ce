package rtsvc

import (
	"github.com/roach88/rtsvc/internal/smc"
)

// Handler services one call. It receives the function identifier, the first
// four call arguments, the cookie passed to Dispatch, the caller's saved
// context and the origin flags. The returned value is handed back to the
// caller unchanged.
type Handler func(fid smc.FunctionID, x1, x2, x3, x4 uint64, cookie any, ctx smc.Context, flags smc.Flags) smc.Result

// Descriptor declares a runtime service's ownership of the inclusive OEN
// range [StartOEN, EndOEN] under one call type.
//
// At least one of Init and Handle must be set. A descriptor with only Init
// is run at boot but never receives calls.
type Descriptor struct {
	// Name is a diagnostic label.
	Name string

	StartOEN smc.OEN
	EndOEN   smc.OEN
	CallType smc.CallType

	// Init is run at most once, during Build. A non-nil error excludes the
	// descriptor from the index.
	Init func() error

	// Handle is invoked for every call routed to this descriptor.
	Handle Handler
}

// Catalog is the ordered, immutable sequence of descriptors supplied at boot.
//
// The zero value is an empty catalog.
type Catalog struct {
	descs []*Descriptor
}

// NewCatalog copies descs into a Catalog. Later changes to the slice do not
// affect the catalog. Nil entries are kept so Build can reject them.
func NewCatalog(descs ...*Descriptor) Catalog {
	if len(descs) == 0 {
		return Catalog{}
	}
	cp := make([]*Descriptor, len(descs))
	copy(cp, descs)
	return Catalog{descs: cp}
}

// Len returns the number of descriptors.
func (c Catalog) Len() int {
	return len(c.descs)
}

// At returns the descriptor at catalog position i.
func (c Catalog) At(i int) *Descriptor {
	return c.descs[i]
}

// All returns a copy of the descriptors in catalog order.
func (c Catalog) All() []*Descriptor {
	out := make([]*Descriptor, len(c.descs))
	copy(out, c.descs)
	return out
}
