// Package smc describes the Arm SMC Calling Convention as seen by the
// runtime-service router.
//
// This package contains the calling-convention types only: function
// identifiers, call types, owning entity numbers, security-state flags and the
// saved caller context. All other internal packages may import smc; smc
// imports nothing internal.
//
// Function identifier layout (AArch64, SMCCC v1.x):
//
//	bit  31     call type (1 = fast, 0 = yielding)
//	bit  30     calling convention (1 = SMC64, 0 = SMC32)
//	bits 29:24  owning entity number (OEN)
//	bits 23:16  must be zero for fast calls
//	bits 15:0   function number
package smc
