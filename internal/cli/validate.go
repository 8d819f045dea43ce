package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/rtsvc/internal/rtsvc"
)

// ValidationIssue is one descriptor that would halt boot.
type ValidationIssue struct {
	Code    string `json:"code"`
	Index   int    `json:"index"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Services int               `json:"services"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <catalog>",
		Short: "Validate a catalog without booting it",
		Long: `Validate a runtime service catalog without running any init.

Loads the catalog, resolves every entry against the built-in services and
runs the descriptor checks boot would run. Unlike boot, every invalid
descriptor is reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	lc, errs := loadCatalog(path)
	if len(errs) > 0 {
		return loadFailure(formatter, errs)
	}
	formatter.VerboseLog("Loaded %d service(s) from %s", lc.Catalog.Len(), path)

	issues := validationIssues(lc, rtsvc.ValidateCatalog(lc.Catalog))
	result := ValidationResult{
		Valid:    len(issues) == 0,
		Services: lc.Catalog.Len(),
		Errors:   issues,
	}

	if result.Valid {
		return formatter.Render(result, func(w io.Writer) {
			fmt.Fprintf(w, "✓ Catalog valid (%d services)\n", result.Services)
		})
	}

	if formatter.Format == "json" {
		_ = encodeIndented(formatter.Writer, CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		})
	} else {
		w := formatter.Writer
		fmt.Fprintln(w, "✗ Validation failed")
		fmt.Fprintln(w)
		for _, issue := range issues {
			if issue.Line > 0 {
				fmt.Fprintf(w, "%s:%d\n", issue.File, issue.Line)
			}
			fmt.Fprintf(w, "  %s: %s\n\n", issue.Code, issue.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}

// validationIssues locates each structural error in the catalog file.
func validationIssues(lc *loadedCatalog, errs []error) []ValidationIssue {
	issues := make([]ValidationIssue, 0, len(errs))
	for _, err := range errs {
		issue := ValidationIssue{Code: rtsvc.CodeOf(err), Index: -1, Message: err.Error()}

		var se *rtsvc.StructuralError
		if errors.As(err, &se) {
			issue.Index = se.Index
		}
		var de *rtsvc.InvalidDescriptorError
		if errors.As(err, &de) {
			issue.Name = de.Name
			issue.Message = de.Error()
		}
		if issue.Index >= 0 && issue.Index < len(lc.Specs) {
			issue.File = lc.Specs[issue.Index].File
			issue.Line = lc.Specs[issue.Index].Line
		}
		issues = append(issues, issue)
	}
	return issues
}
