package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/rtsvc/internal/monitor"
	"github.com/roach88/rtsvc/internal/rtsvc"
	"github.com/roach88/rtsvc/internal/smc"
	"github.com/roach88/rtsvc/internal/store"
)

// CallOptions holds flags for the call command.
type CallOptions struct {
	*RootOptions
	Database string
	Secure   bool
	BootID   string
}

// CallResult is one dispatched call as the caller sees it.
type CallResult struct {
	BootID     string    `json:"boot_id"`
	Seq        int64     `json:"seq"`
	FID        string    `json:"fid"`
	Flags      string    `json:"flags"`
	Resolved   bool      `json:"resolved"`
	Descriptor string    `json:"descriptor,omitempty"`
	Regs       [4]string `json:"regs"`
}

func newCallResult(rec monitor.CallRecord) CallResult {
	r := CallResult{
		BootID:     rec.BootID,
		Seq:        rec.Seq,
		FID:        rec.FID.String(),
		Flags:      rec.Flags.String(),
		Resolved:   rec.Resolved,
		Descriptor: rec.Descriptor,
	}
	for i, v := range rec.Regs {
		r.Regs[i] = fmt.Sprintf("%#x", v)
	}
	return r
}

// NewCallCommand creates the call command.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "call <catalog> <fid> [x1 [x2 [x3 [x4]]]]",
		Short: "Boot a catalog and dispatch one call",
		Long: `Boot a runtime service catalog and dispatch a single call through it.

The function identifier and arguments accept decimal or 0x-prefixed hex.
Calls are issued from the normal world unless --secure is set. The
registers x0-x3 are printed as the caller would see them on return.

Examples:
  rtsvc call catalogs/monitor.cue 0x80000000
  rtsvc call catalogs/monitor.cue 0x82000001 1 2 3 4 --db ./rtsvc.db`,
		Args:          cobra.RangeArgs(2, 6),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(opts, args[0], args[1], args[2:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the boot and call to this SQLite database")
	cmd.Flags().BoolVar(&opts.Secure, "secure", false, "issue the call from the secure world")
	cmd.Flags().StringVar(&opts.BootID, "boot-id", "", "boot ID to record under (default: new UUIDv7)")

	return cmd
}

func runCall(opts *CallOptions, path, fidArg string, argv []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	fid, err := smc.ParseFunctionID(fidArg)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad function id", err)
	}
	args, err := parseArgs(argv)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad argument", err)
	}

	lc, errs := loadCatalog(path)
	if len(errs) > 0 {
		return loadFailure(formatter, errs)
	}
	ix, err := bootCatalog(lc.Catalog, logger)
	if err != nil {
		return bootFailure(formatter, err)
	}

	bootID := opts.BootID
	if bootID == "" {
		bootID = monitor.UUIDv7Generator{}.Generate()
	}
	m, st, err := newMonitor(cmd, ix, monitorConfig{
		bootID:   bootID,
		source:   path,
		database: opts.Database,
		units:    1,
	}, logger)
	if err != nil {
		return err
	}
	defer closeLog(st, logger)

	flags := smc.FromNonSecure
	if opts.Secure {
		flags = smc.FromSecure
	}
	rec := m.Execute(commandContext(cmd), 0, monitor.Call{FID: fid, Args: args, Flags: flags})
	logger.Debug("call dispatched", "fid", rec.FID.String(), "descriptor", rec.Descriptor, "seq", rec.Seq)

	result := newCallResult(rec)
	return formatter.Render(result, func(w io.Writer) {
		owner := result.Descriptor
		if !result.Resolved {
			owner = "unknown"
		}
		fmt.Fprintf(w, "%s -> %s\n", result.FID, owner)
		for i, v := range result.Regs {
			fmt.Fprintf(w, "  x%d = %s\n", i, v)
		}
	})
}

func parseArgs(argv []string) ([]uint64, error) {
	args := make([]uint64, len(argv))
	for i, s := range argv {
		v, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("x%d: %w", i+1, err)
		}
		args[i] = v
	}
	return args, nil
}

type monitorConfig struct {
	bootID   string
	source   string
	database string
	units    int
}

// newMonitor creates a monitor over ix. With a database configured, the
// boot is recorded first and every call is recorded through the store.
func newMonitor(cmd *cobra.Command, ix *rtsvc.Index, cfg monitorConfig, logger *slog.Logger) (*monitor.Monitor, *store.Store, error) {
	mopts := []monitor.Option{
		monitor.WithBootID(cfg.bootID),
		monitor.WithUnits(cfg.units),
		monitor.WithLogger(logger),
	}

	var st *store.Store
	if cfg.database != "" {
		var err error
		st, err = openLog(commandContext(cmd), cfg.database, cfg.bootID, cfg.source, ix, logger)
		if err != nil {
			return nil, nil, err
		}
		mopts = append(mopts, monitor.WithRecorder(st))
	}
	return monitor.New(rtsvc.NewRouter(ix), mopts...), st, nil
}
