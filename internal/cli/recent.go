package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/ffgraph/internal/store"
)

// RecentOptions holds flags for the recent command.
type RecentOptions struct {
	*RootOptions
	Database string
	Limit    int
	Prune    bool
}

// NewRecentCommand creates the recent command.
func NewRecentCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecentOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently opened or saved documents",
		Long: `List the documents recorded by sessions run with the same --db,
most recent first.

With --prune, documents beyond --limit are deleted from the database
before listing.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecent(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite session database (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "maximum number of documents (0 for all)")
	cmd.Flags().BoolVar(&opts.Prune, "prune", false, "forget documents beyond --limit")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRecent(opts *RecentOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Limit < 0 {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("invalid limit %d", opts.Limit), nil, nil)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", nil, err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Prune && opts.Limit > 0 {
		if err := st.PruneRecent(ctx, opts.Limit); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to prune recent documents", nil, err)
		}
	}

	docs, err := st.RecentDocuments(ctx, opts.Limit)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to read recent documents", nil, err)
	}
	if docs == nil {
		docs = []store.RecentDocument{}
	}
	return formatter.SuccessText(docs, recentText(docs))
}

func recentText(docs []store.RecentDocument) string {
	if len(docs) == 0 {
		return "no recent documents"
	}
	var buf strings.Builder
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	for _, d := range docs {
		identifier := d.Identifier
		if identifier == "" {
			identifier = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\n", d.Path, identifier)
	}
	_ = tw.Flush()
	return buf.String()
}
