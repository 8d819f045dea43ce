package rtsvc

// Reporter receives non-fatal per-service initialization failures.
type Reporter interface {
	InitFailed(index int, name string, err error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(index int, name string, err error)

// InitFailed implements Reporter.
func (f ReporterFunc) InitFailed(index int, name string, err error) {
	f(index, name, err)
}

type buildConfig struct {
	reporter Reporter
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

// WithReporter sets the sink for init failures. The default logs them with
// slog.Default().
func WithReporter(r Reporter) BuildOption {
	return func(c *buildConfig) {
		c.reporter = r
	}
}

// Build validates c, runs each descriptor's Init and returns the routing
// index.
//
// Descriptors are processed in catalog order. Each is validated before its
// Init runs; the first invalid descriptor aborts the build with a
// *StructuralError and no index. A failing Init is reported and its
// descriptor is skipped. Overlapping ranges are resolved in favor of the
// later descriptor.
//
// Build must run once, before any call is dispatched through the result.
func Build(c Catalog, opts ...BuildOption) (*Index, error) {
	cfg := buildConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.reporter == nil {
		cfg.reporter = LogReporter(nil)
	}

	if c.Len() >= Capacity {
		return nil, newCatalogTooLarge(c.Len())
	}

	ix := newIndex(c)
	if c.Len() == 0 {
		return ix, nil
	}

	for i := 0; i < c.Len(); i++ {
		d := c.At(i)
		if err := Validate(d); err != nil {
			return nil, newInvalidAt(i, err.(*InvalidDescriptorError))
		}

		if d.Init != nil {
			if err := d.Init(); err != nil {
				ix.initErrs[i] = err
				cfg.reporter.InitFailed(i, d.Name, err)
				continue
			}
		}

		start := UniqueKey(d.StartOEN, d.CallType)
		end := UniqueKey(d.EndOEN, d.CallType)
		for key := start; key <= end; key++ {
			ix.table[key] = uint8(i)
		}
		ix.registered[i] = true
	}

	return ix, nil
}
