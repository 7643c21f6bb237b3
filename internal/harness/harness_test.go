package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

// Golden scenarios cover the traces whose shape is fully hand-checkable:
// merge-base discovery, integrity failures, conflicting merges, and
// absent targets. Snapshot-producing traces carry content hashes and are
// asserted structurally below instead.
func TestGoldenScenarios(t *testing.T) {
	for _, name := range []string{
		"base-forked",
		"base-disjoint",
		"merge-conflict",
		"merge-add-add-velocity",
		"replay-missing",
	} {
		t.Run(name, func(t *testing.T) {
			scenario := loadFixture(t, name)
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestRunReplayTrace(t *testing.T) {
	scenario := &Scenario{
		Name: "replay-inline",
		Commits: []CommitStep{
			{
				ID:        "root",
				CreatedAt: 1000,
				Phrases: []PhraseStep{{
					Track: "t1", Region: "r1", StartBeat: 0, EndBeat: 4,
					Notes: []NoteStep{{Add: &NoteSpec{Pitch: 60, StartBeat: 0, Duration: 1, Velocity: 100}}},
				}},
			},
			{
				ID:        "tip",
				Parent:    "root",
				CreatedAt: 2000,
				Phrases: []PhraseStep{{
					Track: "t1", Region: "r1", StartBeat: 0, EndBeat: 4,
					Notes: []NoteStep{{Add: &NoteSpec{Pitch: 64, StartBeat: 1, Duration: 1, Velocity: 90}}},
				}},
			},
		},
		Operation: Operation{Type: OpReplay, Target: "tip"},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, true, result.Trace["found"])
	hash, ok := result.Trace["snapshot_hash"].(string)
	require.True(t, ok)
	assert.Len(t, hash, 64)

	snapshot, ok := result.Trace["snapshot"].(map[string]any)
	require.True(t, ok)
	regions, ok := snapshot["regions"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, regions, "r1")
}

func TestRunMergeAttributesResolveConflict(t *testing.T) {
	conflict := loadFixture(t, "merge-conflict")

	// With "ours" every track-level disagreement resolves to the left
	// side, so the merged snapshot is exactly the left replay.
	resolved := *conflict
	resolved.Name = "merge-conflict-ours"
	resolved.Operation.Attributes = "default: ours\n"

	result, err := Run(&resolved)
	require.NoError(t, err)
	assert.Equal(t, false, result.Trace["has_conflicts"])
	mergedHash, ok := result.Trace["merged_hash"].(string)
	require.True(t, ok)

	left := *conflict
	left.Name = "replay-left"
	left.Operation = Operation{Type: OpReplay, Target: "left"}
	leftResult, err := Run(&left)
	require.NoError(t, err)

	assert.Equal(t, leftResult.Trace["snapshot_hash"], mergedHash)
}

func TestRunMergeDisjointRegions(t *testing.T) {
	scenario := loadFixture(t, "merge-disjoint-regions")

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, "root", result.Trace["base"])
	assert.Equal(t, false, result.Trace["has_conflicts"])

	merged, ok := result.Trace["merged"].(map[string]any)
	require.True(t, ok)
	regions, ok := merged["regions"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, regions, "r1")
	assert.Contains(t, regions, "r2", "the union keeps each side's untouched regions")
}

func TestRunMergeCommitMetadata(t *testing.T) {
	scenario := loadFixture(t, "base-forked")
	merge := *scenario
	merge.Name = "merge-forked"
	merge.Operation = Operation{Type: OpMerge, Left: "a2", Right: "b1"}

	result, err := Run(&merge)
	require.NoError(t, err)
	assert.Equal(t, "shared", result.Trace["base"])
	assert.Equal(t, false, result.Trace["has_conflicts"])

	commit, ok := result.Trace["commit"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "merge-result", commit["id"], "result id defaults when the scenario omits it")
	assert.Equal(t, "a2", commit["parent"])
	assert.Equal(t, "b1", commit["parent2"])
}

func TestRunCheckoutTrace(t *testing.T) {
	scenario := &Scenario{
		Name: "checkout-inline",
		Commits: []CommitStep{
			{ID: "root", CreatedAt: 1000},
			{
				ID:        "tip",
				Parent:    "root",
				CreatedAt: 2000,
				Phrases: []PhraseStep{{
					Track: "t1", Region: "r1", StartBeat: 0, EndBeat: 4,
					Notes: []NoteStep{{Add: &NoteSpec{Pitch: 60, StartBeat: 0, Duration: 1, Velocity: 100}}},
				}},
			},
		},
		Operation: Operation{Type: OpCheckout, Target: "tip", Working: "root"},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, true, result.Trace["found"])
	assert.Equal(t, 1, result.Trace["op_count"])
	planHash, ok := result.Trace["plan_hash"].(string)
	require.True(t, ok)
	assert.Len(t, planHash, 64)
	planJSON, ok := result.Trace["plan_json"].(string)
	require.True(t, ok)
	assert.Contains(t, planJSON, `"add_note"`)
	assert.Contains(t, planJSON, `"r1"`)
}

func TestRunCheckoutMissingTarget(t *testing.T) {
	scenario := &Scenario{
		Name:      "checkout-missing",
		Commits:   []CommitStep{{ID: "root", CreatedAt: 1000}},
		Operation: Operation{Type: OpCheckout, Target: "ghost", Working: "root"},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, false, result.Trace["found"])
}

func TestRunRejectsNonFiniteBeats(t *testing.T) {
	// yaml.v3 parses .nan and .inf into float64, and NaN beats can never
	// reach canonical serialization. The run must fail, not panic.
	path := writeScenarioFile(t, `name: nan-beat
commits:
  - id: root
    created_at: 1000
    phrases:
      - track: t1
        region: r1
        start_beat: 0
        end_beat: 4
        notes:
          - add: {pitch: 60, start_beat: .nan, duration: 1, velocity: 100}
operation:
  type: replay
  target: root
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	var result *Result
	require.NotPanics(t, func() {
		result, err = Run(scenario)
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "must be finite")
	assert.Nil(t, result)
}

func TestRunRejectsInfinitePhraseBounds(t *testing.T) {
	path := writeScenarioFile(t, `name: inf-bound
commits:
  - id: root
    created_at: 1000
    phrases:
      - track: t1
        region: r1
        start_beat: 0
        end_beat: .inf
        notes:
          - add: {pitch: 60, start_beat: 0, duration: 1, velocity: 100}
operation:
  type: replay
  target: root
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.ErrorContains(t, err, "end_beat must be finite")
}

func TestRunIsDeterministic(t *testing.T) {
	scenario := loadFixture(t, "merge-conflict")

	first, err := Run(scenario)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Run(scenario)
		require.NoError(t, err)
		assert.Equal(t, first.Trace, again.Trace)
	}
}
