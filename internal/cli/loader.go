package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/rtsvc/internal/catalog"
	"github.com/roach88/rtsvc/internal/rtsvc"
	"github.com/roach88/rtsvc/internal/services"
	"github.com/roach88/rtsvc/internal/store"
)

// loadedCatalog is a catalog file resolved against the built-in services.
type loadedCatalog struct {
	Path    string
	Specs   []catalog.Spec
	Catalog rtsvc.Catalog
}

// loadCatalog loads path and assembles it. Assembly problems are returned
// together; a file that cannot be loaded returns its single LoadError.
func loadCatalog(path string) (*loadedCatalog, []error) {
	specs, err := catalog.Load(path)
	if err != nil {
		return nil, []error{err}
	}
	c, errs := catalog.Assemble(specs, services.NewRegistry())
	if len(errs) > 0 {
		return nil, errs
	}
	return &loadedCatalog{Path: path, Specs: specs, Catalog: c}, nil
}

// loadFailure reports load errors and returns the exit error for them. A
// missing or unreadable path is a command error; anything wrong with the
// file's content is a validation failure.
func loadFailure(formatter *OutputFormatter, errs []error) error {
	code, message := catalog.ErrCodeGeneric, errs[0].Error()
	var le *catalog.LoadError
	if errors.As(errs[0], &le) {
		code = le.Code
	}

	var details any
	if len(errs) > 1 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		details = msgs
	}
	_ = formatter.Error(code, message, details)

	switch code {
	case catalog.ErrCodeNotFound, catalog.ErrCodeScanError, catalog.ErrCodeNoFiles, catalog.ErrCodeUnknownFormat:
		return WrapExitError(ExitCommandError, "failed to load catalog", errs[0])
	default:
		return WrapExitError(ExitFailure, "invalid catalog", errors.Join(errs...))
	}
}

// haltedBoot carries a halt out of rtsvc.Boot so a command can report it
// instead of exiting the process.
type haltedBoot struct {
	err error
}

// bootDiagnostics logs like rtsvc.LogDiagnostics but unwinds on halt.
type bootDiagnostics struct {
	rtsvc.LogDiagnostics
}

func (d bootDiagnostics) Halt(err error) {
	d.Exit = func(int) { panic(haltedBoot{err: err}) }
	d.LogDiagnostics.Halt(err)
}

// bootCatalog builds the index for c. Init failures are logged; a halt is
// logged and returned as an error.
func bootCatalog(c rtsvc.Catalog, logger *slog.Logger) (ix *rtsvc.Index, err error) {
	defer func() {
		if r := recover(); r != nil {
			h, ok := r.(haltedBoot)
			if !ok {
				panic(r)
			}
			ix, err = nil, h.err
		}
	}()
	return rtsvc.Boot(c, bootDiagnostics{rtsvc.LogDiagnostics{Logger: logger}}), nil
}

// bootFailure reports a halted boot.
func bootFailure(formatter *OutputFormatter, err error) error {
	_ = formatter.Error(rtsvc.CodeOf(err), err.Error(), nil)
	return WrapExitError(ExitFailure, "boot halted", err)
}

// openLog opens the SQLite log at path and records the boot. The caller
// closes the store.
func openLog(ctx context.Context, path, bootID, source string, ix *rtsvc.Index, logger *slog.Logger) (*store.Store, error) {
	logger.Debug("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	if err := st.WriteBoot(ctx, bootID, source, ix); err != nil {
		_ = st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to record boot", err)
	}
	logger.Info("boot recorded", "boot_id", bootID, "db", path)
	return st, nil
}

// closeLog closes st, logging any error.
func closeLog(st *store.Store, logger *slog.Logger) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		logger.Error("error closing database", "error", err)
	}
}
