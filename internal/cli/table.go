package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/rtsvc/internal/canon"
	"github.com/roach88/rtsvc/internal/rtsvc"
)

// SlotEntry is one occupied table slot.
type SlotEntry struct {
	Key      int    `json:"key"`
	OEN      uint8  `json:"oen"`
	CallType string `json:"call_type"`
	Index    int    `json:"index"`
	Name     string `json:"name"`
}

// TableResult describes a built index.
type TableResult struct {
	Source      string      `json:"source"`
	Fingerprint string      `json:"fingerprint"`
	Descriptors int         `json:"descriptors"`
	InitFailed  []string    `json:"init_failed,omitempty"`
	Slots       []SlotEntry `json:"slots"`
}

// NewTableCommand creates the table command.
func NewTableCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table <catalog>",
		Short: "Boot a catalog and print its index table",
		Long: `Boot a runtime service catalog and print the resulting index table.

Each occupied slot shows its unique key, owning entity number, call type
and owning descriptor. The fingerprint identifies the table layout and
changes whenever any slot changes owner.

Examples:
  rtsvc table catalogs/monitor.cue
  rtsvc table catalogs/monitor.toml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTable(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runTable(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	logger := newLogger(opts, cmd.ErrOrStderr())

	lc, errs := loadCatalog(path)
	if len(errs) > 0 {
		return loadFailure(formatter, errs)
	}
	ix, err := bootCatalog(lc.Catalog, logger)
	if err != nil {
		return bootFailure(formatter, err)
	}

	result := tableResult(path, ix)
	return formatter.Render(result, func(w io.Writer) {
		printTable(w, result)
	})
}

func tableResult(source string, ix *rtsvc.Index) TableResult {
	result := TableResult{
		Source:      source,
		Fingerprint: canon.TableFingerprint(ix),
		Descriptors: ix.Catalog().Len(),
		Slots:       []SlotEntry{},
	}
	for i := 0; i < ix.Catalog().Len(); i++ {
		if ix.InitErr(i) != nil {
			result.InitFailed = append(result.InitFailed, ix.Catalog().At(i).Name)
		}
	}
	for _, s := range ix.Slots() {
		result.Slots = append(result.Slots, SlotEntry{
			Key:      s.Key,
			OEN:      uint8(s.OEN),
			CallType: s.CallType.String(),
			Index:    s.Index,
			Name:     s.Name,
		})
	}
	return result
}

func printTable(w io.Writer, result TableResult) {
	fmt.Fprintf(w, "Index table for %s\n", result.Source)
	fmt.Fprintf(w, "Fingerprint: %s\n", result.Fingerprint)
	fmt.Fprintf(w, "Descriptors: %d, slots: %d\n", result.Descriptors, len(result.Slots))
	for _, name := range result.InitFailed {
		fmt.Fprintf(w, "  ! %s: init failed, not registered\n", name)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tOEN\tTYPE\tINDEX\tSERVICE")
	for _, s := range result.Slots {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%s\n", s.Key, s.OEN, s.CallType, s.Index, s.Name)
	}
	_ = tw.Flush()
}
