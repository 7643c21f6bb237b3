package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/musehq/muse/internal/history"
	"github.com/musehq/muse/internal/score"
	"github.com/musehq/muse/internal/store"
)

// BaseOptions holds flags for the base command.
type BaseOptions struct {
	*RootOptions
	Database string
}

// NewBaseCommand creates the base command.
func NewBaseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BaseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "base <left> <right>",
		Short: "Find the merge base of two variations",
		Long: `Find the merge base of two variations.

The base is the most recent commit both lineages share. Two variations
of the same project always share at least the root; disjoint lineages
indicate corrupted history and fail.

Examples:
  muse base 0198f2f1-... 0198f2f2-... --db ./muse.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBase(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runBase(opts *BaseOptions, left, right string, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	engine := history.New(st)
	base, err := engine.FindMergeBase(ctx, left, right)
	if err != nil {
		if score.IsIntegrityViolation(err) {
			return WrapExitError(ExitFailure, "history is corrupted", err)
		}
		return WrapExitError(ExitCommandError, "failed to find merge base", err)
	}
	if base == "" {
		return NewExitError(ExitFailure, "variation not found")
	}

	if opts.Format == "json" {
		return outputJSON(cmd.OutOrStdout(), map[string]any{
			"left":  left,
			"right": right,
			"base":  base,
		})
	}

	fmt.Fprintln(cmd.OutOrStdout(), base)
	return nil
}
