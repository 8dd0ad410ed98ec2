package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/viant/afs"

	"github.com/roach88/ffgraph/internal/gateway"
	"github.com/roach88/ffgraph/internal/session"
	"github.com/roach88/ffgraph/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database  string
	Workspace string
	Default   string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Host a headless editing session on stdin/stdout",
		Long: `Host a graph editing session speaking JSON lines.

Each stdin line is one message (new-graph, open-graph, nodes-change,
connect, dialog-result, ...). Each stdout line is one event (title-changed,
load-stage, dialog-request, error-message). Logs go to stderr.

The session ends on interrupt, or at end of input once pending opens,
resolutions and saves have finished.

Example:
  ffgraph run --db ~/.ffgraph/session.db
  echo '{"type":"new-graph"}' | ffgraph run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite session database (optional)")
	cmd.Flags().StringVar(&opts.Workspace, "workspace", defaultWorkspace(), "directory receiving cloned catalogues")
	cmd.Flags().StringVar(&opts.Default, "default-identifier", session.DefaultIdentifier, "identifier resolved for new documents")

	return cmd
}

func defaultWorkspace() string {
	return filepath.Join(os.TempDir(), "ffgraph")
}

func runSession(opts *RunOptions, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	var st *store.Store
	if opts.Database != "" {
		var err error
		logger.Info("opening database", "path", opts.Database)
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}

	gw := newGateway(opts.Workspace, st, logger)
	shell := newStdioShell(cmd.OutOrStdout(), logger)

	sessionOpts := []session.Option{
		session.WithLogger(logger),
		session.WithDefaultIdentifier(opts.Default),
	}
	if st != nil {
		sessionOpts = append(sessionOpts, session.WithRecents(st))
	}
	controller := session.New(gw, shell, sessionOpts...)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
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

	go func() {
		if err := shell.pump(cmd.InOrStdin(), controller.SubmitMessage); err != nil {
			logger.Error("reading input failed", "error", err)
		}
		logger.Debug("input closed")
		shell.closeInput()
		controller.StopWhenIdle()
	}()

	logger.Info("session started", "workspace", opts.Workspace, "default_identifier", opts.Default)
	err := controller.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "session error", err)
	}

	logger.Info("session stopped")
	return nil
}

// newGateway wires document storage and identifier resolution, caching
// resolutions in st when it is set.
func newGateway(workspace string, st *store.Store, logger *slog.Logger) *gateway.Gateway {
	fs := afs.New()
	resolverOpts := []gateway.ResolverOption{gateway.WithResolverLogger(logger)}
	if st != nil {
		resolverOpts = append(resolverOpts, gateway.WithCache(st))
	}
	return gateway.New(gateway.NewFiles(fs), gateway.NewResolver(fs, workspace, resolverOpts...))
}
