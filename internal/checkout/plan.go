// Package checkout reconciles a reconstructed target snapshot against the
// live working-tree snapshot into an ordered, content-hashed list of
// primitive mutations.
//
// The builder never executes anything: the plan is handed to an external
// tool-call executor, which attaches execution stats and an event trace
// back onto the plan for reporting. Identical (target, working) pairs
// always produce the identical plan hash, which is what makes re-execution
// detection idempotent.
package checkout

import (
	"fmt"
	"sort"

	"github.com/musehq/muse/internal/match"
	"github.com/musehq/muse/internal/score"
)

// OpType names a primitive working-tree mutation.
type OpType string

const (
	OpAddNote       OpType = "add_note"
	OpRemoveNote    OpType = "remove_note"
	OpUpdateNote    OpType = "update_note"
	OpAddControl    OpType = "add_control"
	OpRemoveControl OpType = "remove_control"
	OpUpdateControl OpType = "update_control"
)

// Op is one primitive mutation. Note ops carry note payloads, control ops
// carry control payloads; Before identifies the existing event, After the
// desired one.
type Op struct {
	Type          OpType
	RegionID      string
	TrackID       string
	Dimension     score.Dimension
	NoteBefore    *score.NoteEvent
	NoteAfter     *score.NoteEvent
	ControlBefore *score.ControlEvent
	ControlAfter  *score.ControlEvent
}

// ExecutionEvent is one entry of the trace the external executor attaches
// after applying the plan.
type ExecutionEvent struct {
	OpIndex int
	Status  string
	Detail  string
}

// Plan is an ordered mutation list plus its content hash. Executed and
// Failed stay zero until AttachStats is called by whoever ran the plan.
type Plan struct {
	Ops      []Op
	PlanHash string

	Executed int
	Failed   int
	Trace    []ExecutionEvent
}

// IsEmpty reports whether the plan contains no mutations.
func (p *Plan) IsEmpty() bool { return len(p.Ops) == 0 }

// AttachStats records execution results supplied by the external executor.
func (p *Plan) AttachStats(executed, failed int, trace []ExecutionEvent) {
	p.Executed = executed
	p.Failed = failed
	p.Trace = trace
}

// BuildPlan diffs target against working (working as the matcher base,
// target as the candidate) per region and dimension, translating each
// classification into a primitive op.
//
// trackRegions maps track id → region ids and overrides the snapshots'
// own region→track maps where present.
func BuildPlan(target, working *score.HeadSnapshot, trackRegions map[string][]string) (*Plan, error) {
	regionTrack := map[string]string{}
	for track, regions := range trackRegions {
		for _, regionID := range regions {
			regionTrack[regionID] = track
		}
	}
	resolveTrack := func(regionID string) string {
		if track, ok := regionTrack[regionID]; ok {
			return track
		}
		for _, s := range []*score.HeadSnapshot{target, working} {
			if s == nil {
				continue
			}
			if track, ok := s.RegionTrack[regionID]; ok {
				return track
			}
		}
		return ""
	}

	plan := &Plan{}
	for _, regionID := range unionRegionIDs(target, working) {
		workingRS := regionOrEmpty(working, regionID)
		targetRS := regionOrEmpty(target, regionID)
		trackID := resolveTrack(regionID)

		for _, m := range match.Notes(workingRS.Notes, targetRS.Notes) {
			op, ok := noteOp(m, regionID, trackID)
			if ok {
				plan.Ops = append(plan.Ops, op)
			}
		}

		for _, dim := range []score.Dimension{score.DimensionCC, score.DimensionPitchBend, score.DimensionAftertouch} {
			for _, m := range match.Controls(workingRS.Events(dim), targetRS.Events(dim)) {
				op, ok := controlOp(m, regionID, trackID, dim)
				if ok {
					plan.Ops = append(plan.Ops, op)
				}
			}
		}
	}

	hash, err := planHash(plan.Ops)
	if err != nil {
		return nil, err
	}
	plan.PlanHash = hash
	return plan, nil
}

func noteOp(m match.NoteMatch, regionID, trackID string) (Op, bool) {
	op := Op{RegionID: regionID, TrackID: trackID, Dimension: score.DimensionNote}
	switch m.Kind {
	case match.Added:
		op.Type = OpAddNote
		op.NoteAfter = m.Proposed
	case match.Removed:
		op.Type = OpRemoveNote
		op.NoteBefore = m.Base
	case match.Modified:
		op.Type = OpUpdateNote
		op.NoteBefore = m.Base
		op.NoteAfter = m.Proposed
	default:
		return Op{}, false
	}
	return op, true
}

func controlOp(m match.ControlMatch, regionID, trackID string, dim score.Dimension) (Op, bool) {
	op := Op{RegionID: regionID, TrackID: trackID, Dimension: dim}
	switch m.Kind {
	case match.Added:
		op.Type = OpAddControl
		op.ControlAfter = m.Proposed
	case match.Removed:
		op.Type = OpRemoveControl
		op.ControlBefore = m.Base
	case match.Modified:
		op.Type = OpUpdateControl
		op.ControlBefore = m.Base
		op.ControlAfter = m.Proposed
	default:
		return Op{}, false
	}
	return op, true
}

// planHash computes the SHA-256 content hash over the plan's canonical
// serialization. The stable key ordering of MarshalCanonical is what
// makes the hash independent of construction details.
func planHash(ops []Op) (string, error) {
	canonical, err := PlanCanonical(ops)
	if err != nil {
		return "", err
	}
	return score.HashWithDomain(score.DomainPlan, canonical), nil
}

// PlanCanonical returns the canonical JSON bytes of an op list.
// Golden tests compare these directly.
func PlanCanonical(ops []Op) ([]byte, error) {
	list := make([]any, len(ops))
	for i, op := range ops {
		list[i] = opCanonical(op)
	}
	canonical, err := score.MarshalCanonical(map[string]any{"ops": list})
	if err != nil {
		return nil, fmt.Errorf("plan canonical: %w", err)
	}
	return canonical, nil
}

func opCanonical(op Op) map[string]any {
	m := map[string]any{
		"op":        string(op.Type),
		"region_id": op.RegionID,
		"dimension": string(op.Dimension),
	}
	if op.TrackID != "" {
		m["track_id"] = op.TrackID
	}
	if op.NoteBefore != nil {
		m["before"] = score.NoteCanonical(*op.NoteBefore)
	}
	if op.NoteAfter != nil {
		m["after"] = score.NoteCanonical(*op.NoteAfter)
	}
	if op.ControlBefore != nil {
		m["before"] = score.ControlCanonical(*op.ControlBefore)
	}
	if op.ControlAfter != nil {
		m["after"] = score.ControlCanonical(*op.ControlAfter)
	}
	return m
}

func unionRegionIDs(snapshots ...*score.HeadSnapshot) []string {
	seen := map[string]bool{}
	for _, s := range snapshots {
		if s == nil {
			continue
		}
		for id := range s.Regions {
			seen[id] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func regionOrEmpty(s *score.HeadSnapshot, regionID string) *score.RegionState {
	if s != nil {
		if rs, ok := s.Regions[regionID]; ok {
			return rs
		}
	}
	return &score.RegionState{}
}
