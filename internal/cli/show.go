package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/musehq/muse/internal/history"
	"github.com/musehq/muse/internal/score"
	"github.com/musehq/muse/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <commit-id>",
		Short: "Reconstruct and display the state at a variation",
		Long: `Reconstruct and display the state at a variation.

Replays the variation's lineage from the root, folding each commit's
change streams into a full snapshot of every touched region. The
snapshot hash is stable: the same variation always shows the same hash.

Examples:
  muse show 0198f2f1-... --db ./muse.db
  muse show 0198f2f1-... --db ./muse.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(opts *ShowOptions, commitID string, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	engine := history.New(st)
	snapshot, err := engine.ReconstructSnapshot(ctx, commitID)
	if err != nil {
		if score.IsIntegrityViolation(err) {
			return WrapExitError(ExitFailure, "history is corrupted", err)
		}
		return WrapExitError(ExitCommandError, "failed to reconstruct snapshot", err)
	}
	if snapshot == nil {
		return NewExitError(ExitFailure, fmt.Sprintf("variation not found: %s", commitID))
	}

	hash, err := score.SnapshotHash(snapshot)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash snapshot", err)
	}

	if opts.Format == "json" {
		return outputJSON(cmd.OutOrStdout(), map[string]any{
			"commit":        commitID,
			"snapshot":      snapshot.CanonicalMap(),
			"snapshot_hash": hash,
		})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Variation: %s\n", commitID)
	fmt.Fprintf(w, "Snapshot hash: %s\n", hash)
	fmt.Fprintln(w)

	regionIDs := snapshot.RegionIDs()
	if len(regionIDs) == 0 {
		fmt.Fprintln(w, "(empty snapshot)")
		return nil
	}
	for _, regionID := range regionIDs {
		rs := snapshot.Regions[regionID]
		fmt.Fprintf(w, "Region %s", regionID)
		if track := snapshot.RegionTrack[regionID]; track != "" {
			fmt.Fprintf(w, " (track %s)", track)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Notes: %d  CC: %d  Pitch bend: %d  Aftertouch: %d\n",
			len(rs.Notes), len(rs.CC), len(rs.PitchBends), len(rs.Aftertouch))
		if opts.Verbose {
			for _, n := range rs.Notes {
				fmt.Fprintf(w, "    note pitch=%d start=%g dur=%g vel=%d\n",
					n.Pitch, n.StartBeat, n.Duration, n.Velocity)
			}
			for _, e := range rs.CC {
				fmt.Fprintf(w, "    cc beat=%g value=%g\n", e.Beat, e.Value)
			}
			for _, e := range rs.PitchBends {
				fmt.Fprintf(w, "    pitch_bend beat=%g value=%g\n", e.Beat, e.Value)
			}
			for _, e := range rs.Aftertouch {
				fmt.Fprintf(w, "    aftertouch beat=%g value=%g\n", e.Beat, e.Value)
			}
		}
	}
	return nil
}
