package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/rtsvc/internal/monitor"
	"github.com/roach88/rtsvc/internal/smc"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Units    int
	BootID   string
}

// BatchFile is the calls file read by the run command.
type BatchFile struct {
	Calls []BatchCall `yaml:"calls"`
}

// BatchCall is one entry of a calls file, issued Repeat times.
type BatchCall struct {
	FID    uint32   `yaml:"fid"`
	Args   []uint64 `yaml:"args,omitempty"`
	Secure bool     `yaml:"secure,omitempty"`
	Repeat int      `yaml:"repeat,omitempty"`
}

// RunResult summarizes a batch.
type RunResult struct {
	BootID       string         `json:"boot_id"`
	Units        int            `json:"units"`
	Calls        int            `json:"calls"`
	Unknown      int            `json:"unknown"`
	ByDescriptor map[string]int `json:"by_descriptor"`
	Records      []CallResult   `json:"records,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <catalog> <calls.yaml>",
		Short: "Boot a catalog and dispatch a batch of calls concurrently",
		Long: `Boot a runtime service catalog and dispatch every call in a calls file
across the monitor's execution units.

The calls file lists identifiers with optional arguments. Calls come from
the normal world unless marked secure:

  calls:
    - fid: 0x80000000
    - fid: 0x82000001
      args: [1, 2, 3, 4]
      repeat: 100

With --db the boot and every call are recorded. Ctrl-C stops the batch.

Examples:
  rtsvc run catalogs/monitor.cue calls.yaml --units 8
  rtsvc run catalogs/monitor.cue calls.yaml --db ./rtsvc.db --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the boot and calls to this SQLite database")
	cmd.Flags().IntVar(&opts.Units, "units", monitor.DefaultUnits, "number of execution units")
	cmd.Flags().StringVar(&opts.BootID, "boot-id", "", "boot ID to record under (default: new UUIDv7)")

	return cmd
}

func runBatch(opts *RunOptions, path, callsPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if opts.Units < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--units must be at least 1, got %d", opts.Units))
	}
	calls, err := loadBatch(callsPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load calls", err)
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
		units:    opts.Units,
	}, logger)
	if err != nil {
		return err
	}
	defer closeLog(st, logger)

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- m.Run(ctx) }()

	records, err := m.SubmitAll(ctx, calls)
	cancel()
	if rerr := <-runErr; rerr != nil && !errors.Is(rerr, context.Canceled) {
		return WrapExitError(ExitFailure, "monitor error", rerr)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "batch interrupted", err)
	}

	result := summarize(m, records, opts.Verbose)
	return formatter.Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "Dispatched %d call(s) on %d unit(s), boot %s\n", result.Calls, result.Units, result.BootID)
		names := make([]string, 0, len(result.ByDescriptor))
		for name := range result.ByDescriptor {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %-16s %d\n", name, result.ByDescriptor[name])
		}
		if result.Unknown > 0 {
			fmt.Fprintf(w, "  %-16s %d\n", "(unknown)", result.Unknown)
		}
	})
}

// loadBatch reads a calls file strictly and expands repeats.
func loadBatch(path string) ([]monitor.Call, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file BatchFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(file.Calls) == 0 {
		return nil, fmt.Errorf("%s: calls list is required and must be non-empty", path)
	}

	var calls []monitor.Call
	for i, c := range file.Calls {
		if len(c.Args) > smc.NumGPRegs-1 {
			return nil, fmt.Errorf("calls[%d]: at most %d args", i, smc.NumGPRegs-1)
		}
		if c.Repeat < 0 {
			return nil, fmt.Errorf("calls[%d]: repeat must not be negative", i)
		}
		flags := smc.FromNonSecure
		if c.Secure {
			flags = smc.FromSecure
		}
		n := max(c.Repeat, 1)
		for range n {
			calls = append(calls, monitor.Call{FID: smc.FunctionID(c.FID), Args: c.Args, Flags: flags})
		}
	}
	return calls, nil
}

func summarize(m *monitor.Monitor, records []monitor.CallRecord, withRecords bool) RunResult {
	result := RunResult{
		BootID:       m.BootID(),
		Units:        m.Units(),
		Calls:        len(records),
		ByDescriptor: map[string]int{},
	}
	for _, rec := range records {
		if rec.Resolved {
			result.ByDescriptor[rec.Descriptor]++
		} else {
			result.Unknown++
		}
		if withRecords {
			result.Records = append(result.Records, newCallResult(rec))
		}
	}
	return result
}
