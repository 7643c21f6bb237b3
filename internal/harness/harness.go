// Package harness provides a conformance harness for the Muse history
// core: YAML scenarios describing a commit history plus one operation,
// executed against the in-memory storage port, with the resulting trace
// compared against golden files.
//
// Traces are canonical JSON, so a golden mismatch is always a real
// behavioral change, never map iteration noise.
package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/musehq/muse/internal/checkout"
	"github.com/musehq/muse/internal/history"
	"github.com/musehq/muse/internal/merge"
	"github.com/musehq/muse/internal/score"
	"github.com/musehq/muse/internal/testutil"
)

const defaultProject = "test-project"

// Result is the executed scenario's trace in canonical-map form.
type Result struct {
	Trace map[string]any
}

// Run builds the scenario's history in memory and executes its operation.
func Run(scenario *Scenario) (*Result, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	project := scenario.Project
	if project == "" {
		project = defaultProject
	}

	storage := testutil.NewMemoryStorage()
	for i := range scenario.Commits {
		commit, phrases, err := scenario.Commits[i].toCommit(project)
		if err != nil {
			return nil, err
		}
		storage.AddCommit(commit, phrases...)
	}

	ctx := context.Background()
	engine := history.New(storage)

	switch scenario.Operation.Type {
	case OpReplay:
		return runReplay(ctx, engine, scenario)
	case OpBase:
		return runBase(ctx, engine, scenario)
	case OpMerge:
		return runMerge(ctx, engine, scenario)
	case OpCheckout:
		return runCheckout(ctx, engine, scenario)
	default:
		return nil, fmt.Errorf("unknown operation type %q", scenario.Operation.Type)
	}
}

func runReplay(ctx context.Context, engine *history.Engine, scenario *Scenario) (*Result, error) {
	snapshot, err := engine.ReconstructSnapshot(ctx, scenario.Operation.Target)
	if err != nil {
		return nil, err
	}
	trace := map[string]any{
		"scenario":  scenario.Name,
		"operation": OpReplay,
		"target":    scenario.Operation.Target,
	}
	if snapshot == nil {
		trace["found"] = false
	} else {
		hash, err := score.SnapshotHash(snapshot)
		if err != nil {
			return nil, fmt.Errorf("hash snapshot for %s: %w", scenario.Operation.Target, err)
		}
		trace["found"] = true
		trace["snapshot"] = snapshot.CanonicalMap()
		trace["snapshot_hash"] = hash
	}
	return &Result{Trace: trace}, nil
}

func runBase(ctx context.Context, engine *history.Engine, scenario *Scenario) (*Result, error) {
	base, err := engine.FindMergeBase(ctx, scenario.Operation.Left, scenario.Operation.Right)
	trace := map[string]any{
		"scenario":  scenario.Name,
		"operation": OpBase,
		"left":      scenario.Operation.Left,
		"right":     scenario.Operation.Right,
	}
	if err != nil {
		if !score.IsIntegrityViolation(err) {
			return nil, err
		}
		trace["error"] = err.Error()
		return &Result{Trace: trace}, nil
	}
	trace["base"] = base
	return &Result{Trace: trace}, nil
}

func runMerge(ctx context.Context, engine *history.Engine, scenario *Scenario) (*Result, error) {
	op := scenario.Operation
	trace := map[string]any{
		"scenario":  scenario.Name,
		"operation": OpMerge,
		"left":      op.Left,
		"right":     op.Right,
	}

	base, err := engine.FindMergeBase(ctx, op.Left, op.Right)
	if err != nil {
		if !score.IsIntegrityViolation(err) {
			return nil, err
		}
		trace["error"] = err.Error()
		return &Result{Trace: trace}, nil
	}
	trace["base"] = base

	baseSnap, err := engine.ReconstructSnapshot(ctx, base)
	if err != nil {
		return nil, err
	}
	leftSnap, err := engine.ReconstructSnapshot(ctx, op.Left)
	if err != nil {
		return nil, err
	}
	rightSnap, err := engine.ReconstructSnapshot(ctx, op.Right)
	if err != nil {
		return nil, err
	}

	resolver := merge.Resolver(merge.DefaultResolver())
	if op.Attributes != "" {
		attrs, err := merge.LoadAttributes(strings.NewReader(op.Attributes))
		if err != nil {
			return nil, err
		}
		resolver = attrs
	}

	result := merge.Merge(baseSnap, leftSnap, rightSnap, resolver)
	trace["has_conflicts"] = result.HasConflicts
	if result.HasConflicts {
		conflicts := make([]any, len(result.Conflicts))
		for i, c := range result.Conflicts {
			conflicts[i] = map[string]any{
				"region_id":   c.RegionID,
				"dimension":   string(c.Dimension),
				"description": c.Description,
			}
		}
		trace["conflicts"] = conflicts
		return &Result{Trace: trace}, nil
	}

	resultID := op.ResultID
	if resultID == "" {
		resultID = "merge-result"
	}
	trace["commit"] = map[string]any{
		"id":      resultID,
		"parent":  op.Left,
		"parent2": op.Right,
	}
	mergedHash, err := score.SnapshotHash(result.Merged)
	if err != nil {
		return nil, fmt.Errorf("hash merged snapshot: %w", err)
	}
	trace["merged"] = result.Merged.CanonicalMap()
	trace["merged_hash"] = mergedHash
	return &Result{Trace: trace}, nil
}

func runCheckout(ctx context.Context, engine *history.Engine, scenario *Scenario) (*Result, error) {
	op := scenario.Operation
	target, err := engine.ReconstructSnapshot(ctx, op.Target)
	if err != nil {
		return nil, err
	}
	working, err := engine.ReconstructSnapshot(ctx, op.Working)
	if err != nil {
		return nil, err
	}
	trace := map[string]any{
		"scenario":  scenario.Name,
		"operation": OpCheckout,
		"target":    op.Target,
		"working":   op.Working,
	}
	if target == nil || working == nil {
		trace["found"] = false
		return &Result{Trace: trace}, nil
	}
	trace["found"] = true

	plan, err := checkout.BuildPlan(target, working, nil)
	if err != nil {
		return nil, err
	}
	planJSON, err := checkout.PlanCanonical(plan.Ops)
	if err != nil {
		return nil, err
	}
	trace["plan_hash"] = plan.PlanHash
	trace["op_count"] = len(plan.Ops)
	trace["plan_json"] = string(planJSON)
	return &Result{Trace: trace}, nil
}
