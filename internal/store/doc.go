// Package store provides SQLite-backed durable storage for boots and
// dispatched calls.
//
// The store is an append-only log with:
//   - Boots: one row per built index, with its table fingerprint
//   - Registrations: the outcome of every catalog descriptor in a boot
//   - Calls: every dispatched call, keyed by (boot_id, seq)
//
// Register values are 64-bit unsigned but SQLite integers are signed, so
// they are stored as the int64 with the same bit pattern and converted
// back on read.
//
// Calls are always read ORDER BY seq ASC, the monitor's logical clock, so
// reads are deterministic regardless of which execution unit wrote first.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
