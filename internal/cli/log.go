package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/musehq/muse/internal/graph"
	"github.com/musehq/muse/internal/score"
	"github.com/musehq/muse/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Database string
	Project  string
}

// LogEntry is one commit in the listing.
type LogEntry struct {
	ID        string   `json:"id"`
	Intent    string   `json:"intent,omitempty"`
	Parent    string   `json:"parent,omitempty"`
	Parent2   string   `json:"parent2,omitempty"`
	CreatedAt int64    `json:"created_at"`
	Status    string   `json:"status"`
	Tracks    []string `json:"tracks,omitempty"`
	Regions   []string `json:"regions,omitempty"`
	IsHead    bool     `json:"is_head,omitempty"`
}

// LogResult is the complete listing.
type LogResult struct {
	Project string     `json:"project"`
	Head    string     `json:"head,omitempty"`
	Commits []LogEntry `json:"commits"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List a project's variations in topological order",
		Long: `List a project's variations in topological order.

Every parent appears before its children; ties resolve by creation time
and then id, so the same history always lists in the same order.

Examples:
  muse log --db ./muse.db --project song-1
  muse log --db ./muse.db --project song-1 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Project, "project", "", "project id (required)")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	commits, err := st.GetAllCommits(ctx, opts.Project)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list commits", err)
	}
	head, err := st.GetHead(ctx, opts.Project)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read head", err)
	}

	g, err := graph.Build(commits)
	if err != nil {
		if score.IsIntegrityViolation(err) {
			return WrapExitError(ExitFailure, "history is corrupted", err)
		}
		return WrapExitError(ExitCommandError, "failed to build graph", err)
	}

	result := LogResult{Project: opts.Project, Head: head, Commits: []LogEntry{}}
	for _, c := range g.Ordered {
		result.Commits = append(result.Commits, LogEntry{
			ID:        c.ID,
			Intent:    c.Intent,
			Parent:    c.ParentID,
			Parent2:   c.Parent2ID,
			CreatedAt: c.CreatedAt,
			Status:    string(c.Status),
			Tracks:    c.AffectedTrackIDs,
			Regions:   c.AffectedRegionIDs,
			IsHead:    c.ID == head,
		})
	}

	if opts.Format == "json" {
		return outputJSON(cmd.OutOrStdout(), result)
	}

	w := cmd.OutOrStdout()
	if len(result.Commits) == 0 {
		fmt.Fprintf(w, "No variations in project: %s\n", opts.Project)
		return nil
	}
	for _, entry := range result.Commits {
		marker := " "
		if entry.IsHead {
			marker = "*"
		}
		kind := ""
		if entry.Parent2 != "" {
			kind = " (merge)"
		} else if entry.Parent == "" {
			kind = " (root)"
		}
		fmt.Fprintf(w, "%s %s%s\n", marker, entry.ID, kind)
		if entry.Intent != "" {
			fmt.Fprintf(w, "    Intent: %s\n", entry.Intent)
		}
		fmt.Fprintf(w, "    Created: %s\n", time.UnixMilli(entry.CreatedAt).UTC().Format(time.RFC3339))
		if opts.Verbose {
			if entry.Parent != "" {
				fmt.Fprintf(w, "    Parent: %s\n", truncateID(entry.Parent))
			}
			if entry.Parent2 != "" {
				fmt.Fprintf(w, "    Parent2: %s\n", truncateID(entry.Parent2))
			}
			if len(entry.Regions) > 0 {
				fmt.Fprintf(w, "    Regions: %v\n", entry.Regions)
			}
		}
	}
	return nil
}
