// Package monitor is the dispatch loop around an rtsvc.Router.
//
// A Monitor runs a fixed number of execution units. Each unit is a
// goroutine standing in for one hardware core: it takes a call, loads the
// caller's registers into a fresh smc.CPUContext, dispatches through the
// shared Router, performs the conduit return (x0 receives the result) and
// hands the outcome back to the submitter.
//
// Units share only the read-only routing table, the logical clock and the
// recorder. Every dispatched call is stamped with the next clock value, so
// seq gives a total order over calls from all units.
package monitor
