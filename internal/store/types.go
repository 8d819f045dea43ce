package store

import (
	"github.com/roach88/rtsvc/internal/monitor"
)

// Registration statuses.
const (
	StatusRegistered = "registered"
	StatusInitFailed = "init_failed"
)

// Boot is one recorded index build.
type Boot struct {
	ID          string
	Source      string
	Fingerprint string
	Descriptors int
	Slots       int
}

// Registration is the recorded outcome of one catalog descriptor.
type Registration struct {
	Index     int
	Name      string
	StartOEN  uint8
	EndOEN    uint8
	CallType  string
	HasInit   bool
	HasHandle bool
	Status    string
	Detail    string
}

// Call is a recorded call, as read back from the log.
type Call struct {
	monitor.CallRecord

	// CallID is the content-addressed ID of the call.
	CallID string
}
