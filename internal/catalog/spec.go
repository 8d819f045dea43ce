package catalog

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/rtsvc/internal/rtsvc"
	"github.com/roach88/rtsvc/internal/smc"
)

// Spec is one descriptor as written in a catalog file.
type Spec struct {
	// Name labels the descriptor in diagnostics.
	Name string `json:"name" toml:"name" yaml:"name"`

	// Service is the registry key. Defaults to Name.
	Service string `json:"service,omitempty" toml:"service,omitempty" yaml:"service,omitempty"`

	StartOEN int    `json:"start_oen" toml:"start_oen" yaml:"start_oen"`
	EndOEN   int    `json:"end_oen" toml:"end_oen" yaml:"end_oen"`
	CallType string `json:"call_type" toml:"call_type" yaml:"call_type"`

	// Init and Handle select which of the service's entry points this
	// descriptor carries. Unset means "if the service has one". A service
	// with fast and yielding descriptors sets init on only one of them.
	Init   *bool `json:"init,omitempty" toml:"init,omitempty" yaml:"init,omitempty"`
	Handle *bool `json:"handle,omitempty" toml:"handle,omitempty" yaml:"handle,omitempty"`

	// File and Line record where the spec was read from.
	File string `json:"-" toml:"-" yaml:"-"`
	Line int    `json:"-" toml:"-" yaml:"-"`
}

// ServiceName returns the registry key the spec refers to.
func (s Spec) ServiceName() string {
	if s.Service != "" {
		return s.Service
	}
	return s.Name
}

// invalidCallType is carried for call type strings that name neither
// convention, so rtsvc.Validate rejects the descriptor at boot.
const invalidCallType smc.CallType = 0xff

// Descriptor binds the spec to svc.
func (s Spec) Descriptor(svc Service) (*rtsvc.Descriptor, error) {
	start, err := s.oen("start_oen", s.StartOEN)
	if err != nil {
		return nil, err
	}
	end, err := s.oen("end_oen", s.EndOEN)
	if err != nil {
		return nil, err
	}

	ct, err := smc.ParseCallType(s.CallType)
	if err != nil {
		ct = invalidCallType
	}

	d := &rtsvc.Descriptor{
		Name:     s.Name,
		StartOEN: start,
		EndOEN:   end,
		CallType: ct,
	}
	if s.Init == nil || *s.Init {
		d.Init = svc.Init
	}
	if s.Handle == nil || *s.Handle {
		d.Handle = svc.Handle
	}
	return d, nil
}

func (s Spec) oen(field string, v int) (smc.OEN, error) {
	if v < 0 || v > math.MaxUint8 {
		return 0, s.errorf(ErrCodeOutOfRange, "%s %d is not a valid owning entity number", field, v)
	}
	return smc.OEN(v), nil
}

func (s Spec) errorf(code, format string, args ...any) *LoadError {
	msg := fmt.Sprintf(format, args...)
	if s.Name != "" {
		msg = fmt.Sprintf("service %q: %s", s.Name, msg)
	}
	return &LoadError{Code: code, Message: msg, File: s.File, Line: s.Line}
}

// Assemble resolves every spec against reg and returns the catalog in file
// order. All unresolvable specs are reported.
func Assemble(specs []Spec, reg *Registry) (rtsvc.Catalog, []error) {
	var errs []error
	descs := make([]*rtsvc.Descriptor, 0, len(specs))
	for _, s := range specs {
		svc, ok := reg.Lookup(s.ServiceName())
		if !ok {
			errs = append(errs, s.errorf(ErrCodeUnknownService,
				"unknown service %q (registered: %s)", s.ServiceName(), strings.Join(reg.Names(), ", ")))
			continue
		}
		d, err := s.Descriptor(svc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		descs = append(descs, d)
	}
	if len(errs) > 0 {
		return rtsvc.Catalog{}, errs
	}
	return rtsvc.NewCatalog(descs...), nil
}
