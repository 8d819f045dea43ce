package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/rtsvc/internal/catalog"
	"github.com/roach88/rtsvc/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	BootID   string
	List     bool
}

// BootEntry is a recorded boot.
type BootEntry struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Fingerprint string `json:"fingerprint"`
	Descriptors int    `json:"descriptors"`
	Slots       int    `json:"slots"`
}

// RegistrationEntry is the recorded outcome of one descriptor.
type RegistrationEntry struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	StartOEN uint8  `json:"start_oen"`
	EndOEN   uint8  `json:"end_oen"`
	CallType string `json:"call_type"`
	Status   string `json:"status"`
	Detail   string `json:"detail,omitempty"`
}

// TraceCall is one recorded call.
type TraceCall struct {
	CallID string `json:"call_id"`
	Unit   int    `json:"unit"`
	CallResult
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Boot          BootEntry           `json:"boot"`
	Registrations []RegistrationEntry `json:"registrations"`
	Calls         []TraceCall         `json:"calls"`
	Stats         TraceStats          `json:"stats"`
}

// TraceStats holds summary statistics for a boot.
type TraceStats struct {
	Calls        int            `json:"calls"`
	Unknown      int            `json:"unknown"`
	ByDescriptor map[string]int `json:"by_descriptor"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show a recorded boot and its calls",
		Long: `Show a boot recorded by call or run --db.

The output includes:
- Boot: catalog source and table fingerprint
- Registrations: which descriptors registered and which failed init
- Calls: every dispatched call in sequence order
- Stats: calls per descriptor

Without --boot the most recent boot is shown.

Examples:
  rtsvc trace --db ./rtsvc.db
  rtsvc trace --db ./rtsvc.db --list
  rtsvc trace --db ./rtsvc.db --boot 0192f0c4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.BootID, "boot", "", "boot ID to show (default: latest)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list recorded boots instead")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.List {
		boots, err := st.ListBoots(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list boots", err)
		}
		entries := make([]BootEntry, len(boots))
		for i, b := range boots {
			entries[i] = bootEntry(b)
		}
		return formatter.Render(entries, func(w io.Writer) {
			if len(entries) == 0 {
				fmt.Fprintln(w, "No boots recorded.")
				return
			}
			for _, b := range entries {
				fmt.Fprintf(w, "%s  %s  %d slots  %s\n", b.ID, b.Fingerprint, b.Slots, b.Source)
			}
		})
	}

	var boot store.Boot
	if opts.BootID != "" {
		boot, err = st.ReadBoot(ctx, opts.BootID)
	} else {
		boot, err = st.LatestBoot(ctx)
	}
	if errors.Is(err, store.ErrNotFound) {
		if opts.BootID != "" {
			_ = formatter.Error(catalog.ErrCodeNotFound, fmt.Sprintf("boot not found: %s", opts.BootID), nil)
			return NewExitError(ExitCommandError, "boot not found")
		}
		return formatter.Render(map[string]any{"boots": 0}, func(w io.Writer) {
			fmt.Fprintln(w, "No boots recorded.")
		})
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read boot", err)
	}

	regs, err := st.ReadRegistrations(ctx, boot.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read registrations", err)
	}
	calls, err := st.ReadCalls(ctx, boot.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read calls", err)
	}
	counts, err := st.CountCallsByDescriptor(ctx, boot.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count calls", err)
	}

	result := TraceResult{
		Boot:          bootEntry(boot),
		Registrations: make([]RegistrationEntry, len(regs)),
		Calls:         make([]TraceCall, len(calls)),
		Stats:         TraceStats{Calls: len(calls), ByDescriptor: map[string]int{}},
	}
	for i, r := range regs {
		result.Registrations[i] = RegistrationEntry{
			Index:    r.Index,
			Name:     r.Name,
			StartOEN: r.StartOEN,
			EndOEN:   r.EndOEN,
			CallType: r.CallType,
			Status:   r.Status,
			Detail:   r.Detail,
		}
	}
	for i, c := range calls {
		result.Calls[i] = TraceCall{CallID: c.CallID, Unit: c.Unit, CallResult: newCallResult(c.CallRecord)}
	}
	for name, n := range counts {
		if name == "" {
			result.Stats.Unknown = n
			continue
		}
		result.Stats.ByDescriptor[name] = n
	}

	return formatter.Render(result, func(w io.Writer) {
		printTrace(w, result)
	})
}

func bootEntry(b store.Boot) BootEntry {
	return BootEntry{
		ID:          b.ID,
		Source:      b.Source,
		Fingerprint: b.Fingerprint,
		Descriptors: b.Descriptors,
		Slots:       b.Slots,
	}
}

func printTrace(w io.Writer, result TraceResult) {
	fmt.Fprintf(w, "Boot %s\n", result.Boot.ID)
	fmt.Fprintf(w, "  source:      %s\n", result.Boot.Source)
	fmt.Fprintf(w, "  fingerprint: %s\n", result.Boot.Fingerprint)
	fmt.Fprintf(w, "  slots:       %d\n", result.Boot.Slots)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Registrations:")
	for _, r := range result.Registrations {
		line := fmt.Sprintf("  [%d] %s oen %d-%d %s: %s", r.Index, r.Name, r.StartOEN, r.EndOEN, r.CallType, r.Status)
		if r.Detail != "" {
			line += " (" + r.Detail + ")"
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	if len(result.Calls) == 0 {
		fmt.Fprintln(w, "No calls recorded.")
		return
	}
	fmt.Fprintln(w, "Calls:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  SEQ\tUNIT\tFID\tSERVICE\tX0")
	for _, c := range result.Calls {
		owner := c.Descriptor
		if !c.Resolved {
			owner = "unknown"
		}
		fmt.Fprintf(tw, "  %d\t%d\t%s\t%s\t%s\n", c.Seq, c.Unit, c.FID, owner, c.Regs[0])
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d call(s), %d unknown\n", result.Stats.Calls, result.Stats.Unknown)
}
