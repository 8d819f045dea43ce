package rtsvc

import (
	"fmt"

	"github.com/roach88/rtsvc/internal/smc"
)

// Validate checks one descriptor's structural invariants, in order:
//   - the descriptor is non-nil
//   - StartOEN <= EndOEN
//   - EndOEN < smc.OENLimit
//   - CallType is Fast or Yield
//   - Init or Handle is set
//
// It returns nil or an *InvalidDescriptorError for the first failed check.
func Validate(d *Descriptor) error {
	if d == nil {
		return &InvalidDescriptorError{
			Code:    ErrCodeNilDescriptor,
			Message: "descriptor is nil",
		}
	}

	if d.StartOEN > d.EndOEN {
		return &InvalidDescriptorError{
			Code:    ErrCodeRangeInverted,
			Name:    d.Name,
			Message: fmt.Sprintf("start_oen %d is greater than end_oen %d", d.StartOEN, d.EndOEN),
		}
	}

	if d.EndOEN >= smc.OENLimit {
		return &InvalidDescriptorError{
			Code:    ErrCodeRangeOutOfLimit,
			Name:    d.Name,
			Message: fmt.Sprintf("end_oen %d must be less than %d", d.EndOEN, smc.OENLimit),
		}
	}

	if !d.CallType.Valid() {
		return &InvalidDescriptorError{
			Code:    ErrCodeInvalidCallType,
			Name:    d.Name,
			Message: fmt.Sprintf("invalid call type %d", uint8(d.CallType)),
		}
	}

	if d.Init == nil && d.Handle == nil {
		return &InvalidDescriptorError{
			Code:    ErrCodeNoEntryPoint,
			Name:    d.Name,
			Message: "neither init nor handle is set",
		}
	}

	return nil
}

// ValidateCatalog runs Validate on every descriptor and returns all failures
// keyed by catalog position as StructuralErrors. It runs no Init and checks
// the catalog size first.
func ValidateCatalog(c Catalog) []error {
	var errs []error
	if c.Len() >= Capacity {
		errs = append(errs, newCatalogTooLarge(c.Len()))
	}
	for i := 0; i < c.Len(); i++ {
		if err := Validate(c.At(i)); err != nil {
			errs = append(errs, newInvalidAt(i, err.(*InvalidDescriptorError)))
		}
	}
	return errs
}
