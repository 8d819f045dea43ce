package smc

import (
	"fmt"
	"strings"
)

// CallType selects the calling convention of a call.
type CallType uint8

const (
	// Yield is an interruptible call that may be preempted and resumed.
	Yield CallType = 0

	// Fast is an atomic call that completes before returning.
	Fast CallType = 1
)

// Valid reports whether t is one of the defined call types.
func (t CallType) Valid() bool {
	return t == Fast || t == Yield
}

func (t CallType) String() string {
	switch t {
	case Fast:
		return "fast"
	case Yield:
		return "yielding"
	default:
		return fmt.Sprintf("calltype(%d)", uint8(t))
	}
}

// ParseCallType accepts "fast", "yielding" or "yield" (case-insensitive).
func ParseCallType(s string) (CallType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fast":
		return Fast, nil
	case "yielding", "yield":
		return Yield, nil
	default:
		return 0, fmt.Errorf("unknown call type %q: must be fast or yielding", s)
	}
}

// OEN is an owning entity number.
type OEN uint8

// Owning entity numbers assigned by the SMC Calling Convention.
const (
	OENArm       OEN = 0
	OENCPU       OEN = 1
	OENSiP       OEN = 2
	OENOEM       OEN = 3
	OENStd       OEN = 4
	OENStdHyp    OEN = 5
	OENVendorHyp OEN = 6

	OENTAPStart OEN = 48
	OENTAPEnd   OEN = 49
	OENTOSStart OEN = 50
	OENTOSEnd   OEN = 63
)

// Result is the value returned to the caller in x0.
type Result uint64

// Standard return values. Negative codes are sign-extended to the register
// width.
const (
	OK           Result = 0
	Unknown      Result = ^Result(0)
	NotSupported Result = ^Result(0)
	Preempted    Result = ^Result(1)
)

// Flags describes the originating security context of a call.
type Flags uint32

const (
	// FromSecure marks a call issued from the secure world.
	FromSecure Flags = 0

	// FromNonSecure marks a call issued from the normal world.
	FromNonSecure Flags = 1 << 0
)

// IsNonSecure reports whether the call came from the non-secure world.
func (f Flags) IsNonSecure() bool {
	return f&FromNonSecure != 0
}

func (f Flags) String() string {
	if f.IsNonSecure() {
		return "non-secure"
	}
	return "secure"
}
