package rtsvc

import (
	"github.com/roach88/rtsvc/internal/smc"
)

// keyTypeShift places the call type bit directly above the OEN field, so
// fast and yielding keys occupy disjoint halves of the table.
const keyTypeShift = 6

// Capacity is the number of slots in an Index: one per OEN for each call type.
const Capacity = 2 * smc.OENLimit

// UniqueKey maps (oen, callType) to a table slot in [0, Capacity).
//
// Only the low bit of callType and the low six bits of oen contribute.
func UniqueKey(oen smc.OEN, callType smc.CallType) int {
	return int(uint8(callType)&smc.TypeMask)<<keyTypeShift | int(uint8(oen)&smc.OENMask)
}
