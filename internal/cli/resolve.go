package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ffgraph/internal/bus"
	"github.com/roach88/ffgraph/internal/gateway"
	"github.com/roach88/ffgraph/internal/options"
	"github.com/roach88/ffgraph/internal/session"
	"github.com/roach88/ffgraph/internal/store"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Database  string
	Workspace string
}

// ResolveReport is the outcome of a resolve command.
type ResolveReport struct {
	Requested string      `json:"requested"`
	Resolved  string      `json:"resolved"`
	Workspace string      `json:"workspace,omitempty"`
	Cached    bool        `json:"cached"`
	Stages    []bus.Stage `json:"stages"`
	Options   int         `json:"options"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve [identifier]",
		Short: "Resolve a resource identifier and print its stages",
		Long: `Resolve a resource identifier the way a session does.

"head" resolves the built-in option catalogue. Any other identifier is a
path or URL of a directory of .cue catalogue files, cloned into the
workspace and compiled. With --db, results are cached and reused.

Example:
  ffgraph resolve
  ffgraph resolve ./catalogues/ffmpeg7 --db ./session.db`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			identifier := session.DefaultIdentifier
			if len(args) == 1 {
				identifier = args[0]
			}
			return runResolve(opts, identifier, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite session database (optional)")
	cmd.Flags().StringVar(&opts.Workspace, "workspace", defaultWorkspace(), "directory receiving cloned catalogues")

	return cmd
}

func runResolve(opts *ResolveOptions, identifier string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, closeStore, err := openOptionalStore(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", nil, err)
	}
	defer closeStore()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	report := ResolveReport{Requested: identifier, Stages: []bus.Stage{}}
	res, err := resolveCatalogue(ctx, opts.RootOptions, cmd, opts.Workspace, st, identifier, func(p bus.Progress) {
		report.Stages = append(report.Stages, p.Stage)
		formatter.VerboseLog("stage %s", p.Stage)
	})
	if err != nil {
		return failResolve(formatter, identifier, err)
	}

	report.Resolved = res.Resolved
	report.Workspace = res.Workspace
	report.Cached = res.Cached
	report.Options = len(res.Options)
	return formatter.SuccessText(report, resolveText(report))
}

// resolveCatalogue runs one resolution with a resolver configured from the
// command flags.
func resolveCatalogue(ctx context.Context, opts *RootOptions, cmd *cobra.Command, workspace string, st *store.Store, identifier string, report func(bus.Progress)) (gateway.Result, error) {
	logger := newLogger(opts, cmd.ErrOrStderr())
	resolverOpts := []gateway.ResolverOption{gateway.WithResolverLogger(logger)}
	if st != nil {
		resolverOpts = append(resolverOpts, gateway.WithCache(st))
	}
	resolver := gateway.NewResolver(nil, workspace, resolverOpts...)
	return resolver.Resolve(ctx, identifier, report)
}

func failResolve(formatter *OutputFormatter, identifier string, err error) error {
	message := fmt.Sprintf("failed to resolve %q", identifier)
	var compileErr *options.CompileError
	if errors.As(err, &compileErr) {
		return formatter.Fail(ExitFailure, ErrCodeCatalogue, message, compileErr.Error(), err)
	}
	return formatter.Fail(ExitFailure, ErrCodeResolve, message, err.Error(), err)
}

func resolveText(r ResolveReport) string {
	var buf strings.Builder
	for _, stage := range r.Stages {
		if stage == bus.StageCompleted {
			fmt.Fprintf(&buf, "%s %s\n", stage, r.Resolved)
			continue
		}
		fmt.Fprintln(&buf, stage)
	}
	fmt.Fprintf(&buf, "%d options", r.Options)
	if r.Cached {
		buf.WriteString(" (cached)")
	}
	buf.WriteString("\n")
	return buf.String()
}

// openOptionalStore opens the database at path, or returns a nil store when
// path is empty. The returned func closes the store.
func openOptionalStore(path string) (*store.Store, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { _ = st.Close() }, nil
}
