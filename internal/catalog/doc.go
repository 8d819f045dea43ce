// Package catalog assembles the boot-time descriptor catalog.
//
// Service implementations register their entry points by name in a
// Registry. A catalog file (CUE or TOML) lists descriptors that reference
// registered services and declare their OEN ranges and call types.
// Assemble binds the two into an rtsvc.Catalog.
//
// Loading checks only shape and types. Range and call type checks are left
// to rtsvc.Build, so a malformed descriptor in a catalog file halts the
// boot exactly like one compiled into the binary.
package catalog
