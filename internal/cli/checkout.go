package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/musehq/muse/internal/checkout"
	"github.com/musehq/muse/internal/history"
	"github.com/musehq/muse/internal/score"
	"github.com/musehq/muse/internal/store"
)

// CheckoutOptions holds flags for the checkout command.
type CheckoutOptions struct {
	*RootOptions
	Database string
	Project  string
	DryRun   bool
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckoutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "checkout <commit-id>",
		Short: "Build the plan moving the head to a variation",
		Long: `Build the plan moving the head to a variation.

Diffs the target snapshot against the current head snapshot and emits
the ordered list of primitive mutations (add, remove, update) an
executor must apply, plus the plan's content hash. The head moves to
the target unless --dry-run is set.

Checking out the current head yields an empty plan.

Examples:
  muse checkout 0198f2f1-... --db ./muse.db --project song-1
  muse checkout 0198f2f1-... --db ./muse.db --project song-1 --dry-run`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckout(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Project, "project", "", "project id (required)")
	_ = cmd.MarkFlagRequired("project")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "build the plan without moving the head")

	return cmd
}

func runCheckout(opts *CheckoutOptions, target string, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	engine := history.New(st)
	targetSnap, err := engine.ReconstructSnapshot(ctx, target)
	if err != nil {
		if score.IsIntegrityViolation(err) {
			return WrapExitError(ExitFailure, "history is corrupted", err)
		}
		return WrapExitError(ExitCommandError, "failed to reconstruct target", err)
	}
	if targetSnap == nil {
		return NewExitError(ExitFailure, fmt.Sprintf("variation not found: %s", target))
	}

	head, err := st.GetHead(ctx, opts.Project)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read head", err)
	}
	working := score.NewHeadSnapshot()
	if head != "" {
		working, err = engine.ReconstructSnapshot(ctx, head)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to reconstruct head", err)
		}
		if working == nil {
			return NewExitError(ExitFailure, fmt.Sprintf("head points at unknown variation: %s", head))
		}
	}

	plan, err := checkout.BuildPlan(targetSnap, working, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build plan", err)
	}
	slog.Debug("checkout plan built", "target", target, "ops", len(plan.Ops), "hash", plan.PlanHash)

	headMoved := false
	if !opts.DryRun && head != target {
		headMoved, err = st.SetHead(ctx, opts.Project, head, target)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to move head", err)
		}
		if !headMoved {
			return NewExitError(ExitFailure, "head moved concurrently; checkout aborted")
		}
	}

	if opts.Format == "json" {
		ops := make([]map[string]any, len(plan.Ops))
		for i, op := range plan.Ops {
			ops[i] = opSummary(op)
		}
		return outputJSON(cmd.OutOrStdout(), map[string]any{
			"target":     target,
			"from":       head,
			"plan_hash":  plan.PlanHash,
			"op_count":   len(plan.Ops),
			"ops":        ops,
			"head_moved": headMoved,
			"dry_run":    opts.DryRun,
		})
	}

	w := cmd.OutOrStdout()
	if plan.IsEmpty() {
		fmt.Fprintf(w, "Already at %s (empty plan)\n", target)
	} else {
		fmt.Fprintf(w, "Checkout %s: %d op(s)\n", target, len(plan.Ops))
		for _, op := range plan.Ops {
			fmt.Fprintf(w, "  %s\n", formatOp(op))
		}
	}
	fmt.Fprintf(w, "Plan hash: %s\n", plan.PlanHash)
	if headMoved {
		fmt.Fprintln(w, "Head moved")
	} else if opts.DryRun {
		fmt.Fprintln(w, "Dry run: head unchanged")
	}
	return nil
}

func opSummary(op checkout.Op) map[string]any {
	m := map[string]any{
		"op":        string(op.Type),
		"region_id": op.RegionID,
		"dimension": string(op.Dimension),
	}
	if op.TrackID != "" {
		m["track_id"] = op.TrackID
	}
	if op.NoteBefore != nil {
		m["before"] = *op.NoteBefore
	}
	if op.NoteAfter != nil {
		m["after"] = *op.NoteAfter
	}
	if op.ControlBefore != nil {
		m["before"] = *op.ControlBefore
	}
	if op.ControlAfter != nil {
		m["after"] = *op.ControlAfter
	}
	return m
}

func formatOp(op checkout.Op) string {
	switch {
	case op.NoteAfter != nil:
		return fmt.Sprintf("%s %s pitch=%d start=%g dur=%g vel=%d",
			op.Type, op.RegionID, op.NoteAfter.Pitch, op.NoteAfter.StartBeat,
			op.NoteAfter.Duration, op.NoteAfter.Velocity)
	case op.NoteBefore != nil:
		return fmt.Sprintf("%s %s pitch=%d start=%g",
			op.Type, op.RegionID, op.NoteBefore.Pitch, op.NoteBefore.StartBeat)
	case op.ControlAfter != nil:
		return fmt.Sprintf("%s %s/%s beat=%g value=%g",
			op.Type, op.RegionID, op.Dimension, op.ControlAfter.Beat, op.ControlAfter.Value)
	case op.ControlBefore != nil:
		return fmt.Sprintf("%s %s/%s beat=%g",
			op.Type, op.RegionID, op.Dimension, op.ControlBefore.Beat)
	default:
		return fmt.Sprintf("%s %s/%s", op.Type, op.RegionID, op.Dimension)
	}
}
