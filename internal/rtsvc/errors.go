package rtsvc

import (
	"errors"
	"fmt"
)

// Error codes for descriptor validation and index construction.
const (
	ErrCodeNilDescriptor   = "E201"
	ErrCodeRangeInverted   = "E202"
	ErrCodeRangeOutOfLimit = "E203"
	ErrCodeInvalidCallType = "E204"
	ErrCodeNoEntryPoint    = "E205"

	ErrCodeCatalogTooLarge = "E210"
)

// InvalidDescriptorError reports the first failed check on one descriptor.
type InvalidDescriptorError struct {
	// Code identifies the failed check (E201-E205).
	Code string

	// Name is the descriptor's label, empty for a nil descriptor.
	Name string

	Message string
}

// Error implements the error interface.
func (e *InvalidDescriptorError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: service %q: %s", e.Code, e.Name, e.Message)
}

// StructuralError is a fatal defect in the boot catalog. No index is built
// when one is returned.
type StructuralError struct {
	Code string

	// Index is the catalog position of the offending descriptor, or -1 for
	// catalog-wide violations.
	Index int

	Message string

	// Err is the underlying validation failure, if any.
	Err error
}

// Error implements the error interface.
func (e *StructuralError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("structural error at descriptor %d: %s", e.Index, e.Message)
	}
	return fmt.Sprintf("structural error: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying validation error.
func (e *StructuralError) Unwrap() error {
	return e.Err
}

// IsStructural reports whether err is, or wraps, a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// IsInvalidDescriptor reports whether err is, or wraps, an
// InvalidDescriptorError.
func IsInvalidDescriptor(err error) bool {
	var de *InvalidDescriptorError
	return errors.As(err, &de)
}

// CodeOf returns the code carried by a StructuralError or
// InvalidDescriptorError in err's chain. The innermost validation code wins
// so callers see which check failed.
func CodeOf(err error) string {
	var de *InvalidDescriptorError
	if errors.As(err, &de) {
		return de.Code
	}
	var se *StructuralError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func newCatalogTooLarge(n int) *StructuralError {
	return &StructuralError{
		Code:    ErrCodeCatalogTooLarge,
		Index:   -1,
		Message: fmt.Sprintf("catalog has %d descriptors, must be fewer than %d", n, Capacity),
	}
}

func newInvalidAt(i int, err *InvalidDescriptorError) *StructuralError {
	return &StructuralError{
		Code:    err.Code,
		Index:   i,
		Message: err.Error(),
		Err:     err,
	}
}
