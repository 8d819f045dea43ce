// Package harness runs conformance scenarios against the runtime service
// registry.
//
// A scenario boots a catalog, either stub services declared inline or a
// catalog file resolved against the built-in services, then issues calls
// through a monitor and checks which descriptor handled each one. Boot
// halts are recovered and recorded, so invalid catalogs are scenarios too.
//
// # Scenario Format
//
// Scenarios are YAML files decoded strictly; unknown fields are errors.
//
//	name: overlap_last_wins
//	description: "A later range replaces an earlier one on shared slots"
//	catalog:
//	  - name: h1
//	    start_oen: 0
//	    end_oen: 3
//	    call_type: fast
//	  - name: h2
//	    start_oen: 2
//	    end_oen: 5
//	    call_type: fast
//	calls:
//	  - oen: 2
//	    call_type: fast
//	    expect: h2
//	  - fid: 0x86000000
//	    expect: unknown
//
// A scenario that sets expect_halt must not list calls:
//
//	expect_halt: E202
//
// # Traces
//
// Every run produces a trace of init, init_failed, halt and call events in
// the order they happened. Traces are compared against golden files in
// canonical JSON, so a clock, boot ID or map-order change shows up as a
// diff rather than a flaky result.
package harness
