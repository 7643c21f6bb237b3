// Package history implements lineage traversal, deterministic state
// reconstruction, and merge-base discovery over the commit DAG.
//
// All operations are pure reads against the Storage port: no locks, no
// shared mutable state, safe to run in parallel across unrelated
// projects. Walks follow parent_id only (the primary lineage); parent2
// links matter to the graph builder and merge, not to replay.
package history

import (
	"context"

	"github.com/musehq/muse/internal/score"
)

// Engine walks commit lineage through a Storage port.
type Engine struct {
	storage Storage
}

// New creates a history engine over the given storage port.
func New(storage Storage) *Engine {
	return &Engine{storage: storage}
}

// Lineage returns the primary-parent chain of a commit, root first.
// Each element's parent precedes it in the result.
//
// Returns (nil, nil) when id is unknown; callers translate to NotFound.
// A dangling parent reference or a parent cycle mid-walk is corruption
// and returns an IntegrityError.
func (e *Engine) Lineage(ctx context.Context, id string) ([]score.HistoryNode, error) {
	var chain []score.HistoryNode
	seen := map[string]bool{}

	cur := id
	for cur != "" {
		if seen[cur] {
			return nil, score.NewCycleError(cur)
		}
		seen[cur] = true

		commit, err := e.storage.GetCommit(ctx, cur)
		if err != nil {
			return nil, err
		}
		if commit == nil {
			if cur == id {
				// Unknown starting point: absent, not corrupt.
				return nil, nil
			}
			return nil, score.NewMissingParentError(chain[len(chain)-1].VariationID, cur)
		}

		chain = append(chain, score.HistoryNode{
			VariationID: commit.ID,
			ParentID:    commit.ParentID,
			Parent2ID:   commit.Parent2ID,
			CreatedAt:   commit.CreatedAt,
		})
		cur = commit.ParentID
	}

	// The walk collected tip-first; the contract is root-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
