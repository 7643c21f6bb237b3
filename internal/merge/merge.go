// Package merge implements the three-way merge engine: region-by-region,
// dimension-by-dimension combination of a base snapshot with two diverging
// descendants.
//
// The engine is pure. Identical inputs always produce byte-identical
// conflicts and merged snapshots: regions iterate in lexical order,
// dimensions in their fixed order, and every event list is normalized
// before it lands in the result. Any conflict anywhere suppresses the
// merged snapshot entirely; partial merges are never silently applied.
package merge

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/musehq/muse/internal/match"
	"github.com/musehq/muse/internal/score"
)

// Result is the outcome of a three-way merge. Merged is nil whenever
// HasConflicts is true.
type Result struct {
	HasConflicts bool
	Conflicts    []score.MergeConflict
	Merged       *score.HeadSnapshot
}

// Merge combines base with two diverging snapshots. The resolver supplies
// per-track, per-dimension strategy overrides; pass DefaultResolver() for
// plain three-way semantics everywhere.
func Merge(base, left, right *score.HeadSnapshot, resolver Resolver) Result {
	if resolver == nil {
		resolver = DefaultResolver()
	}

	merged := score.NewHeadSnapshot()
	var conflicts []score.MergeConflict

	for _, regionID := range unionRegionIDs(base, left, right) {
		baseRS := regionOrEmpty(base, regionID)
		leftRS := regionOrEmpty(left, regionID)
		rightRS := regionOrEmpty(right, regionID)

		trackID := regionTrack(regionID, left, right, base)
		out := merged.Region(regionID)

		// Notes.
		switch resolver.Resolve(trackID, score.DimensionNote) {
		case StrategyOurs:
			out.Notes = append([]score.NoteEvent(nil), leftRS.Notes...)
		case StrategyTheirs:
			out.Notes = append([]score.NoteEvent(nil), rightRS.Notes...)
		default:
			notes, cs := mergeNotes(regionID, baseRS.Notes, leftRS.Notes, rightRS.Notes)
			out.Notes = notes
			conflicts = append(conflicts, cs...)
		}

		// Controller dimensions.
		for _, dim := range []score.Dimension{score.DimensionCC, score.DimensionPitchBend, score.DimensionAftertouch} {
			switch resolver.Resolve(trackID, dim) {
			case StrategyOurs:
				out.SetEvents(dim, append([]score.ControlEvent(nil), leftRS.Events(dim)...))
			case StrategyTheirs:
				out.SetEvents(dim, append([]score.ControlEvent(nil), rightRS.Events(dim)...))
			default:
				events, cs := mergeControls(regionID, dim, baseRS.Events(dim), leftRS.Events(dim), rightRS.Events(dim))
				out.SetEvents(dim, events)
				conflicts = append(conflicts, cs...)
			}
		}

		copyRegionMeta(merged, regionID, left, right, base)
	}

	if len(conflicts) > 0 {
		return Result{HasConflicts: true, Conflicts: conflicts}
	}

	merged.Normalize()
	return Result{Merged: merged}
}

// mergeNotes runs the matcher base→left and base→right and combines per
// base element, then reconciles pure additions.
func mergeNotes(regionID string, base, left, right []score.NoteEvent) ([]score.NoteEvent, []score.MergeConflict) {
	bl := match.Notes(base, left)
	br := match.Notes(base, right)

	var out []score.NoteEvent
	var conflicts []score.MergeConflict

	// Matcher output lists base elements first, in base order, so bl[i]
	// and br[i] describe the same base note for i < len(base).
	for i := range base {
		l, r := bl[i], br[i]
		switch {
		case l.Kind == match.Unchanged && r.Kind == match.Unchanged:
			out = append(out, base[i])
		case l.Kind == match.Modified && r.Kind == match.Unchanged:
			out = append(out, *l.Proposed)
		case l.Kind == match.Unchanged && r.Kind == match.Modified:
			out = append(out, *r.Proposed)
		case l.Kind == match.Removed && r.Kind == match.Unchanged:
			// dropped
		case l.Kind == match.Unchanged && r.Kind == match.Removed:
			// dropped
		case l.Kind == match.Removed && r.Kind == match.Removed:
			// dropped on both sides: agreement
		case l.Kind == match.Modified && r.Kind == match.Modified:
			if match.SameNotePayload(l.Proposed, r.Proposed) && match.SameNoteKey(l.Proposed, r.Proposed) {
				out = append(out, *l.Proposed)
			} else {
				conflicts = append(conflicts, noteConflict(regionID, "modified on both sides", base[i]))
			}
		default:
			// One side removed, the other modified.
			conflicts = append(conflicts, noteConflict(regionID, "removed on one side and modified on the other", base[i]))
		}
	}

	leftAdds := addedNotes(bl)
	rightAdds := addedNotes(br)
	usedRight := make([]bool, len(rightAdds))

	for _, l := range leftAdds {
		matched := false
		for j, r := range rightAdds {
			if usedRight[j] || !match.SameNoteKey(&l, &r) {
				continue
			}
			usedRight[j] = true
			matched = true
			if match.SameNotePayload(&l, &r) {
				// Identical addition on both sides: append once.
				out = append(out, l)
			} else {
				conflicts = append(conflicts, noteConflict(regionID, "added on both sides with different payload", l))
			}
			break
		}
		if !matched {
			out = append(out, l)
		}
	}
	for j, r := range rightAdds {
		if !usedRight[j] {
			out = append(out, r)
		}
	}

	return out, conflicts
}

func mergeControls(regionID string, dim score.Dimension, base, left, right []score.ControlEvent) ([]score.ControlEvent, []score.MergeConflict) {
	bl := match.Controls(base, left)
	br := match.Controls(base, right)

	var out []score.ControlEvent
	var conflicts []score.MergeConflict

	for i := range base {
		l, r := bl[i], br[i]
		switch {
		case l.Kind == match.Unchanged && r.Kind == match.Unchanged:
			out = append(out, base[i])
		case l.Kind == match.Modified && r.Kind == match.Unchanged:
			out = append(out, *l.Proposed)
		case l.Kind == match.Unchanged && r.Kind == match.Modified:
			out = append(out, *r.Proposed)
		case l.Kind == match.Removed && r.Kind == match.Unchanged:
		case l.Kind == match.Unchanged && r.Kind == match.Removed:
		case l.Kind == match.Removed && r.Kind == match.Removed:
		case l.Kind == match.Modified && r.Kind == match.Modified:
			if match.FloatsEqual(l.Proposed.Value, r.Proposed.Value) && match.SameControlKey(l.Proposed, r.Proposed) {
				out = append(out, *l.Proposed)
			} else {
				conflicts = append(conflicts, controlConflict(regionID, dim, "modified on both sides", base[i]))
			}
		default:
			conflicts = append(conflicts, controlConflict(regionID, dim, "removed on one side and modified on the other", base[i]))
		}
	}

	leftAdds := addedControls(bl)
	rightAdds := addedControls(br)
	usedRight := make([]bool, len(rightAdds))

	for _, l := range leftAdds {
		matched := false
		for j, r := range rightAdds {
			if usedRight[j] || !match.SameControlKey(&l, &r) {
				continue
			}
			usedRight[j] = true
			matched = true
			if match.FloatsEqual(l.Value, r.Value) {
				out = append(out, l)
			} else {
				conflicts = append(conflicts, controlConflict(regionID, dim, "added on both sides with different value", l))
			}
			break
		}
		if !matched {
			out = append(out, l)
		}
	}
	for j, r := range rightAdds {
		if !usedRight[j] {
			out = append(out, r)
		}
	}

	return out, conflicts
}

func addedNotes(matches []match.NoteMatch) []score.NoteEvent {
	var adds []score.NoteEvent
	for _, m := range matches {
		if m.Kind == match.Added {
			adds = append(adds, *m.Proposed)
		}
	}
	return adds
}

func addedControls(matches []match.ControlMatch) []score.ControlEvent {
	var adds []score.ControlEvent
	for _, m := range matches {
		if m.Kind == match.Added {
			adds = append(adds, *m.Proposed)
		}
	}
	return adds
}

// Conflict descriptions name the identity key, never a side: swapping
// left and right must report the same conflict set.
func noteConflict(regionID, what string, n score.NoteEvent) score.MergeConflict {
	return score.MergeConflict{
		RegionID:    regionID,
		Dimension:   score.DimensionNote,
		Description: fmt.Sprintf("note %s (pitch=%d beat=%s)", what, n.Pitch, formatBeat(n.StartBeat)),
	}
}

func controlConflict(regionID string, dim score.Dimension, what string, e score.ControlEvent) score.MergeConflict {
	return score.MergeConflict{
		RegionID:    regionID,
		Dimension:   dim,
		Description: fmt.Sprintf("%s event %s (beat=%s)", dim, what, formatBeat(e.Beat)),
	}
}

func formatBeat(beat float64) string {
	return strconv.FormatFloat(beat, 'g', -1, 64)
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

// regionTrack resolves the track a region belongs to, preferring the
// sides over the base so renames on either branch win.
func regionTrack(regionID string, candidates ...*score.HeadSnapshot) string {
	for _, s := range candidates {
		if s == nil {
			continue
		}
		if track, ok := s.RegionTrack[regionID]; ok {
			return track
		}
	}
	return ""
}

func copyRegionMeta(dst *score.HeadSnapshot, regionID string, candidates ...*score.HeadSnapshot) {
	for _, s := range candidates {
		if s == nil {
			continue
		}
		if track, ok := s.RegionTrack[regionID]; ok {
			if _, done := dst.RegionTrack[regionID]; !done {
				dst.RegionTrack[regionID] = track
			}
		}
		if start, ok := s.RegionStart[regionID]; ok {
			if _, done := dst.RegionStart[regionID]; !done {
				dst.RegionStart[regionID] = start
			}
		}
	}
}
