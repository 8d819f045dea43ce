package rtsvc

import (
	"github.com/roach88/rtsvc/internal/smc"
)

// Decomposer splits a function identifier into the fields the index is keyed
// on.
type Decomposer func(fid smc.FunctionID) (smc.OEN, smc.CallType)

// Router dispatches calls through a built Index. It holds no mutable state
// and is safe for concurrent use.
type Router struct {
	index     *Index
	decompose Decomposer
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithDecomposer replaces smc.Decompose.
func WithDecomposer(fn Decomposer) RouterOption {
	return func(r *Router) {
		r.decompose = fn
	}
}

// NewRouter returns a Router over ix.
func NewRouter(ix *Index, opts ...RouterOption) *Router {
	r := &Router{
		index:     ix,
		decompose: smc.Decompose,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Index returns the table the router reads.
func (r *Router) Index() *Index {
	return r.index
}

// Route resolves fid to the catalog position of its owning descriptor.
func (r *Router) Route(fid smc.FunctionID) (index int, ok bool) {
	oen, typ := r.decompose(fid)
	if oen >= smc.OENLimit || !typ.Valid() {
		return 0, false
	}
	return r.index.Lookup(UniqueKey(oen, typ))
}

// Dispatch invokes the handler owning fid with the first four arguments
// read from ctx and returns its result unchanged. Unowned identifiers, and
// identifiers owned by a descriptor without a Handle, return smc.Unknown.
//
// ctx must not be nil.
func (r *Router) Dispatch(fid smc.FunctionID, cookie any, ctx smc.Context, flags smc.Flags) smc.Result {
	res, _ := r.Invoke(fid, cookie, ctx, flags)
	return res
}

// Invoke is Dispatch that also returns the descriptor whose handler ran.
// The descriptor is nil whenever the result is the unknown-call code
// produced by the router itself.
func (r *Router) Invoke(fid smc.FunctionID, cookie any, ctx smc.Context, flags smc.Flags) (smc.Result, *Descriptor) {
	if ctx == nil {
		panic("rtsvc: Dispatch called with nil context")
	}

	i, ok := r.Route(fid)
	if !ok {
		return smc.Unknown, nil
	}

	d := r.index.catalog.At(i)
	if d.Handle == nil {
		return smc.Unknown, nil
	}

	x1, x2, x3, x4 := ctx.Args()
	return d.Handle(fid, x1, x2, x3, x4, cookie, ctx, flags), d
}
