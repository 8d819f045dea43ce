// Package rtsvc routes secure monitor calls to runtime services.
//
// A hosting environment hands the package an ordered, immutable Catalog of
// service Descriptors at boot. Build validates every descriptor, runs each
// service's one-time Init and fills a fixed-size Index mapping every
// (OEN, call type) key to the descriptor that owns it. A Router then
// resolves each incoming function identifier against the Index in constant
// time and invokes the owning handler.
//
// Lifecycle:
//   - Uninitialized: only a Catalog exists.
//   - Built: Build (or Boot) returned an *Index. This happens once, on one
//     goroutine, before any call is dispatched.
//   - Read-only: the Index is never mutated again. Routers share it across
//     any number of goroutines without locking.
//
// Failure modes:
//   - Structural errors (catalog too large, any invalid descriptor) abort the
//     build. Boot hands them to Diagnostics.Halt so no partial system runs.
//   - A failing Init excludes only that descriptor. It is reported and the
//     remaining descriptors register normally.
//   - An unregistered key is not an error: Dispatch returns smc.Unknown.
//
// Overlapping ranges are not rejected. A later descriptor in catalog order
// overwrites the keys it shares with an earlier one.
package rtsvc
