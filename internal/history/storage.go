package history

import (
	"context"

	"github.com/musehq/muse/internal/score"
)

// Storage is the port the history core consumes. The core issues no
// storage-engine-specific calls, only these data-shape contracts.
// internal/store implements it on SQLite; tests use an in-memory fake.
//
// Lookup methods return (nil, nil) / ("", nil) for unknown ids rather
// than an error: callers translate absence into their own NotFound.
type Storage interface {
	// GetCommit returns the commit with the given id, or nil if unknown.
	GetCommit(ctx context.Context, id string) (*score.Commit, error)

	// GetChildren returns every commit whose parent or parent2 is id,
	// ordered by (created_at, id).
	GetChildren(ctx context.Context, id string) ([]score.Commit, error)

	// GetPhrases returns a commit's phrases in persisted order, with all
	// note/cc/pitch-bend/aftertouch change streams populated.
	GetPhrases(ctx context.Context, commitID string) ([]score.Phrase, error)

	// GetAllCommits returns every commit of a project, ordered by
	// (created_at, id). Bulk read for the graph builder.
	GetAllCommits(ctx context.Context, projectID string) ([]score.Commit, error)

	// GetHead returns the project's HEAD commit id, or "" when unset.
	GetHead(ctx context.Context, projectID string) (string, error)

	// SetHead atomically moves HEAD from expectedOld to newID and
	// reports whether the swap applied. expectedOld "" means "no HEAD
	// set yet". The compare-and-swap contract is what keeps concurrent
	// checkout/merge calls from leaving a project with zero or two
	// HEADs.
	SetHead(ctx context.Context, projectID, expectedOld, newID string) (bool, error)
}
