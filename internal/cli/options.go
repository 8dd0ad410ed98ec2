package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ffgraph/internal/bus"
	"github.com/roach88/ffgraph/internal/options"
	"github.com/roach88/ffgraph/internal/session"
)

// OptionsCommandOptions holds flags for the options command.
type OptionsCommandOptions struct {
	*RootOptions
	Workspace string
	Database  string
}

// Catalogue is the output of the options command.
type Catalogue struct {
	Identifier string                 `json:"identifier" yaml:"identifier"`
	Digest     string                 `json:"digest" yaml:"digest"`
	Options    []options.GlobalOption `json:"options" yaml:"options"`
}

// NewOptionsCommand creates the options command.
func NewOptionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OptionsCommandOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "options [identifier]",
		Short: "List the global options of a catalogue",
		Long: `List the ffmpeg global options offered by a catalogue.

Without an identifier the built-in catalogue is listed. Text output is YAML.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			identifier := session.DefaultIdentifier
			if len(args) == 1 {
				identifier = args[0]
			}
			return runOptions(opts, identifier, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite session database (optional)")
	cmd.Flags().StringVar(&opts.Workspace, "workspace", defaultWorkspace(), "directory receiving cloned catalogues")

	return cmd
}

func runOptions(opts *OptionsCommandOptions, identifier string, cmd *cobra.Command) error {
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

	res, err := resolveCatalogue(ctx, opts.RootOptions, cmd, opts.Workspace, st, identifier, func(p bus.Progress) {
		formatter.VerboseLog("stage %s", p.Stage)
	})
	if err != nil {
		return failResolve(formatter, identifier, err)
	}

	for _, o := range res.Options {
		formatter.VerboseLog("%s", describeOption(o))
	}

	catalogue := Catalogue{Identifier: identifier, Digest: res.Resolved, Options: res.Options}
	if opts.Format == "json" {
		return formatter.Success(catalogue)
	}

	out, err := yaml.Marshal(catalogue)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to render catalogue", nil, err)
	}
	return formatter.SuccessText(catalogue, string(out))
}

// describeOption renders one option as a single summary line.
func describeOption(o options.GlobalOption) string {
	line := fmt.Sprintf("%s (%s, %s)", o.Name, o.Flag, o.Type)
	if o.Description != "" {
		line += ": " + o.Description
	}
	return line
}
