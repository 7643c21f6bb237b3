package cli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/musehq/muse/internal/harness"
	"github.com/musehq/muse/internal/score"
	"github.com/musehq/muse/internal/store"
)

// CommitOptions holds flags for the commit command.
type CommitOptions struct {
	*RootOptions
	Database string
	Project  string
	File     string
	Intent   string
	Parent   string
}

// CommitFile is the YAML document the commit command records. It reuses
// the phrase vocabulary of the scenario files.
type CommitFile struct {
	Intent  string               `yaml:"intent,omitempty"`
	Phrases []harness.PhraseStep `yaml:"phrases"`
}

// NewCommitCommand creates the commit command.
func NewCommitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CommitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record a new variation from a phrase file",
		Long: `Record a new variation from a phrase file.

The phrase file is a YAML document listing the change streams of the
commit, one phrase per (track, region) pair. The parent defaults to the
project head; pass --parent to branch from an older variation. The head
advances only when the new commit extends it.

Examples:
  muse commit --db ./muse.db --project song-1 --file take2.yaml --intent "tighten hats"
  muse commit --db ./muse.db --project song-1 --file alt.yaml --parent 0198f2f1-...`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Project, "project", "", "project id (required)")
	_ = cmd.MarkFlagRequired("project")
	cmd.Flags().StringVar(&opts.File, "file", "", "phrase file to record (required)")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().StringVar(&opts.Intent, "intent", "", "intent message (overrides the file's intent)")
	cmd.Flags().StringVar(&opts.Parent, "parent", "", "parent commit id (defaults to the project head)")

	return cmd
}

func runCommit(opts *CommitOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	doc, err := loadCommitFile(opts.File)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load phrase file", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	head, err := st.GetHead(ctx, opts.Project)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read head", err)
	}

	parent := opts.Parent
	if parent == "" {
		parent = head
	}
	if parent != "" {
		parentCommit, err := st.GetCommit(ctx, parent)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read parent commit", err)
		}
		if parentCommit == nil {
			return NewExitError(ExitFailure, fmt.Sprintf("parent commit not found: %s", parent))
		}
	}

	intent := doc.Intent
	if opts.Intent != "" {
		intent = opts.Intent
	}

	id := score.UUIDv7Generator{}.Generate()
	phrases := make([]score.Phrase, 0, len(doc.Phrases))
	for i := range doc.Phrases {
		p, err := doc.Phrases[i].ToPhrase(id)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("phrases[%d]", i), err)
		}
		phrases = append(phrases, p)
	}

	commit := score.Commit{
		ID:        id,
		ProjectID: opts.Project,
		Intent:    intent,
		ParentID:  parent,
		Status:    score.StatusActive,
		CreatedAt: time.Now().UnixMilli(),
	}
	applyPhraseMeta(&commit, phrases)

	if err := st.WriteCommit(ctx, &commit, phrases); err != nil {
		return WrapExitError(ExitCommandError, "failed to write commit", err)
	}

	// Only a commit extending the head moves it; branching from an
	// older parent leaves the head where it was.
	headMoved := false
	if parent == head {
		headMoved, err = st.SetHead(ctx, opts.Project, head, id)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to advance head", err)
		}
		if !headMoved {
			return NewExitError(ExitFailure, "head moved concurrently; commit recorded but head unchanged")
		}
	}
	slog.Debug("commit recorded", "id", id, "project", opts.Project, "phrases", len(phrases), "head_moved", headMoved)

	if opts.Format == "json" {
		return outputJSON(cmd.OutOrStdout(), map[string]any{
			"id":         id,
			"parent":     parent,
			"phrases":    len(phrases),
			"head_moved": headMoved,
		})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Recorded %s\n", id)
	if commit.Intent != "" {
		fmt.Fprintf(w, "  Intent: %s\n", commit.Intent)
	}
	if parent != "" {
		fmt.Fprintf(w, "  Parent: %s\n", truncateID(parent))
	}
	fmt.Fprintf(w, "  Phrases: %d\n", len(phrases))
	if headMoved {
		fmt.Fprintln(w, "  Head advanced")
	} else if parent != head {
		fmt.Fprintln(w, "  Branched (head unchanged)")
	}
	return nil
}

// loadCommitFile reads and decodes a phrase file.
func loadCommitFile(path string) (*CommitFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc CommitFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(doc.Phrases) == 0 {
		return nil, fmt.Errorf("%s contains no phrases", path)
	}
	return &doc, nil
}

// applyPhraseMeta derives the affected tracks, regions, and beat range of
// a commit from its phrases.
func applyPhraseMeta(commit *score.Commit, phrases []score.Phrase) {
	tracks := map[string]bool{}
	regions := map[string]bool{}
	var br score.BeatRange
	for i := range phrases {
		p := &phrases[i]
		if p.TrackID != "" {
			tracks[p.TrackID] = true
		}
		regions[p.RegionID] = true
		if i == 0 {
			br = score.BeatRange{Start: p.StartBeat, End: p.EndBeat}
			continue
		}
		if p.StartBeat < br.Start {
			br.Start = p.StartBeat
		}
		if p.EndBeat > br.End {
			br.End = p.EndBeat
		}
	}
	commit.AffectedTrackIDs = sortedKeys(tracks)
	commit.AffectedRegionIDs = sortedKeys(regions)
	commit.BeatRange = br
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
