package cli

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ffgraph/internal/docfile"
	"github.com/roach88/ffgraph/internal/gateway"
)

// DocumentReport is the validation outcome of one document.
type DocumentReport struct {
	Path       string              `json:"path"`
	Valid      bool                `json:"valid"`
	Nodes      int                 `json:"nodes"`
	Edges      int                 `json:"edges"`
	Identifier string              `json:"identifier,omitempty"`
	Violations []docfile.Violation `json:"violations,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// ValidationResult holds the reports of every checked document.
type ValidationResult struct {
	Valid     bool             `json:"valid"`
	Documents []DocumentReport `json:"documents"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <document>...",
		Short: "Check .ffgraph documents against the file format",
		Long: `Check .ffgraph documents without opening them in a session.

Reports undecodable JSON, duplicate or empty node and edge IDs, unregistered
node types and edges referencing missing nodes. Exits non-zero when any
document is invalid.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	files := gateway.NewFiles(nil)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := ValidationResult{Valid: true}
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		report := validateDocument(ctx, files, path)
		if !report.Valid {
			result.Valid = false
		}
		result.Documents = append(result.Documents, report)
	}

	if result.Valid {
		return formatter.SuccessText(result, validationText(result))
	}

	if opts.Format == "json" {
		return formatter.Fail(ExitFailure, ErrCodeMalformed, "validation failed", result, nil)
	}
	fmt.Fprint(formatter.Writer, validationText(result))
	return WrapExitError(ExitFailure, ErrCodeMalformed+": validation failed", nil)
}

func validateDocument(ctx context.Context, files *gateway.Files, path string) DocumentReport {
	report := DocumentReport{Path: path}

	doc, identifier, err := files.ReadDocument(ctx, path)
	var malformed *docfile.MalformedError
	switch {
	case err == nil:
		report.Valid = true
		report.Nodes = len(doc.Nodes)
		report.Edges = len(doc.Edges)
		report.Identifier = identifier
	case errors.As(err, &malformed):
		report.Violations = malformed.Violations
	case errors.Is(err, iofs.ErrNotExist):
		report.Error = "not found"
	default:
		report.Error = err.Error()
	}
	return report
}

func validationText(result ValidationResult) string {
	var buf strings.Builder
	for _, d := range result.Documents {
		if d.Valid {
			identifier := d.Identifier
			if identifier == "" {
				identifier = "none"
			}
			fmt.Fprintf(&buf, "✓ %s (%d nodes, %d edges, identifier %s)\n", d.Path, d.Nodes, d.Edges, identifier)
			continue
		}
		fmt.Fprintf(&buf, "✗ %s\n", d.Path)
		if d.Error != "" {
			fmt.Fprintf(&buf, "  %s\n", d.Error)
		}
		for _, v := range d.Violations {
			fmt.Fprintf(&buf, "  %s\n", v)
		}
	}
	return buf.String()
}
