package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/musehq/muse/internal/history"
	"github.com/musehq/muse/internal/merge"
	"github.com/musehq/muse/internal/score"
	"github.com/musehq/muse/internal/store"
)

// MergeOptions holds flags for the merge command.
type MergeOptions struct {
	*RootOptions
	Database   string
	Project    string
	Attributes string
	Intent     string
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MergeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "merge <left> <right>",
		Short: "Merge two variations into a new commit",
		Long: `Merge two variations into a new commit.

Finds the merge base, reconstructs all three snapshots, and runs a
three-way merge per region and dimension. An attributes file can force
"ours" or "theirs" per track and dimension; everything else uses full
three-way semantics. Conflicts abort the merge: nothing is recorded and
each conflict is listed.

On success a merge commit with both parents is recorded, and the head
advances when it pointed at either parent.

Examples:
  muse merge 0198f2f1-... 0198f2f2-... --db ./muse.db --project song-1
  muse merge 0198f2f1-... 0198f2f2-... --db ./muse.db --project song-1 --attributes .museattributes`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Project, "project", "", "project id (required)")
	_ = cmd.MarkFlagRequired("project")
	cmd.Flags().StringVar(&opts.Attributes, "attributes", "", "merge attributes file (per-track strategy overrides)")
	cmd.Flags().StringVar(&opts.Intent, "intent", "", "intent message for the merge commit")

	return cmd
}

func runMerge(opts *MergeOptions, left, right string, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	resolver := merge.Resolver(merge.DefaultResolver())
	if opts.Attributes != "" {
		attrs, err := merge.LoadAttributesFile(opts.Attributes)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load attributes", err)
		}
		resolver = attrs
	}

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
	slog.Debug("merge base found", "base", base, "left", left, "right", right)

	baseSnap, err := engine.ReconstructSnapshot(ctx, base)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to reconstruct base", err)
	}
	leftSnap, err := engine.ReconstructSnapshot(ctx, left)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to reconstruct left", err)
	}
	rightSnap, err := engine.ReconstructSnapshot(ctx, right)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to reconstruct right", err)
	}

	result := merge.Merge(baseSnap, leftSnap, rightSnap, resolver)
	if result.HasConflicts {
		return reportConflicts(opts, base, left, right, result.Conflicts, cmd)
	}

	id := score.UUIDv7Generator{}.Generate()
	phrases := merge.DiffPhrases(id, leftSnap, result.Merged)

	intent := opts.Intent
	if intent == "" {
		intent = fmt.Sprintf("Merge %s into %s", truncateID(right), truncateID(left))
	}
	commit := score.Commit{
		ID:        id,
		ProjectID: opts.Project,
		Intent:    intent,
		ParentID:  left,
		Parent2ID: right,
		Status:    score.StatusActive,
		CreatedAt: time.Now().UnixMilli(),
	}
	applyPhraseMeta(&commit, phrases)

	if err := st.WriteCommit(ctx, &commit, phrases); err != nil {
		return WrapExitError(ExitCommandError, "failed to write merge commit", err)
	}

	head, err := st.GetHead(ctx, opts.Project)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read head", err)
	}
	headMoved := false
	if head == left || head == right {
		headMoved, err = st.SetHead(ctx, opts.Project, head, id)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to advance head", err)
		}
	}

	mergedHash, err := score.SnapshotHash(result.Merged)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash merged snapshot", err)
	}

	if opts.Format == "json" {
		return outputJSON(cmd.OutOrStdout(), map[string]any{
			"id":          id,
			"base":        base,
			"parent":      left,
			"parent2":     right,
			"phrases":     len(phrases),
			"merged_hash": mergedHash,
			"head_moved":  headMoved,
		})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Merged %s\n", id)
	fmt.Fprintf(w, "  Base: %s\n", truncateID(base))
	fmt.Fprintf(w, "  Parents: %s, %s\n", truncateID(left), truncateID(right))
	fmt.Fprintf(w, "  Phrases: %d\n", len(phrases))
	fmt.Fprintf(w, "  Merged hash: %s\n", mergedHash)
	if headMoved {
		fmt.Fprintln(w, "  Head advanced")
	}
	return nil
}

// reportConflicts lists every conflict and fails; nothing was recorded.
func reportConflicts(opts *MergeOptions, base, left, right string, conflicts []score.MergeConflict, cmd *cobra.Command) error {
	if opts.Format == "json" {
		details := make([]map[string]any, len(conflicts))
		for i, c := range conflicts {
			details[i] = map[string]any{
				"region_id":   c.RegionID,
				"dimension":   string(c.Dimension),
				"description": c.Description,
			}
		}
		if err := outputJSONError(cmd.OutOrStdout(), "MERGE_CONFLICT", "merge has conflicts", details); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Merge of %s and %s has %d conflict(s) (base %s):\n",
			truncateID(left), truncateID(right), len(conflicts), truncateID(base))
		for _, c := range conflicts {
			fmt.Fprintf(w, "  %s\n", c.String())
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("merge failed with %d conflict(s)", len(conflicts)))
}
