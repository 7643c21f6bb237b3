package history

import (
	"context"

	"github.com/musehq/muse/internal/score"
)

// FindMergeBase returns the lowest common ancestor of two commits along
// the primary lineage: the most recent id in b's tip-first walk that also
// appears in a's lineage set. Deterministic for fixed inputs.
//
// Returns ("", nil) when either id is unknown: absent, for callers to
// translate to NotFound. Two known commits that share no history is a
// hard IntegrityError: in a single-rooted project that means corrupted
// history, not a routine outcome.
func (e *Engine) FindMergeBase(ctx context.Context, a, b string) (string, error) {
	lineageA, err := e.Lineage(ctx, a)
	if err != nil {
		return "", err
	}
	if lineageA == nil {
		return "", nil
	}

	lineageB, err := e.Lineage(ctx, b)
	if err != nil {
		return "", err
	}
	if lineageB == nil {
		return "", nil
	}

	inA := make(map[string]bool, len(lineageA))
	for _, node := range lineageA {
		inA[node.VariationID] = true
	}

	// Lineage is root-first; walk b from the tip for the most recent
	// shared ancestor.
	for i := len(lineageB) - 1; i >= 0; i-- {
		if inA[lineageB[i].VariationID] {
			return lineageB[i].VariationID, nil
		}
	}

	return "", score.NewNoCommonAncestorError(a, b)
}
