package smc

import (
	"fmt"
	"strconv"
	"strings"
)

// Function identifier field layout.
const (
	TypeShift = 31
	TypeMask  = 0x1
	CCShift   = 30
	CCMask    = 0x1
	OENShift  = 24
	OENMask   = 0x3f
	NumMask   = 0xffff

	// OENLimit is one past the largest representable owning entity number.
	OENLimit = 64
)

// FunctionID is the 32-bit call identifier a caller places in w0.
type FunctionID uint32

// NewFunctionID assembles a function identifier from its fields.
// Out-of-range OEN bits are masked off.
func NewFunctionID(t CallType, smc64 bool, oen OEN, number uint16) FunctionID {
	fid := FunctionID(uint32(t)&TypeMask) << TypeShift
	if smc64 {
		fid |= FunctionID(1) << CCShift
	}
	fid |= FunctionID(uint32(oen)&OENMask) << OENShift
	fid |= FunctionID(number)
	return fid
}

// ParseFunctionID parses a function identifier written in hex ("0x84000000")
// or decimal.
func ParseFunctionID(s string) (FunctionID, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid function id %q: %w", s, err)
	}
	return FunctionID(v), nil
}

// CallType returns the call type encoded in bit 31.
func (f FunctionID) CallType() CallType {
	return CallType((uint32(f) >> TypeShift) & TypeMask)
}

// Is64 reports whether the SMC64 calling convention bit is set.
func (f FunctionID) Is64() bool {
	return (uint32(f)>>CCShift)&CCMask == 1
}

// OEN returns the owning entity number field.
func (f FunctionID) OEN() OEN {
	return OEN((uint32(f) >> OENShift) & OENMask)
}

// Number returns the function number field.
func (f FunctionID) Number() uint16 {
	return uint16(uint32(f) & NumMask)
}

// String formats the identifier as fixed-width hex.
func (f FunctionID) String() string {
	return fmt.Sprintf("0x%08x", uint32(f))
}

// Decompose splits a function identifier into the fields the router indexes
// on.
func Decompose(f FunctionID) (OEN, CallType) {
	return f.OEN(), f.CallType()
}
