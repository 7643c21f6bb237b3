package history

import (
	"context"
	"math"

	"github.com/musehq/muse/internal/match"
	"github.com/musehq/muse/internal/score"
)

// ReconstructSnapshot rebuilds the cumulative musical state at a commit
// by folding every phrase from the lineage root to the target.
//
// Fold rule per change element: added and modified include the After
// event, removed excludes the Before event. Commits after the first
// accumulate on top of prior state for the same region; they never
// replace it wholesale.
//
// Returns (nil, nil) when id is unknown. The result is a pure function
// of persisted history: repeated calls return identical snapshots, and
// nothing is cached between calls.
func (e *Engine) ReconstructSnapshot(ctx context.Context, id string) (*score.HeadSnapshot, error) {
	chain, err := e.Lineage(ctx, id)
	if err != nil {
		return nil, err
	}
	if chain == nil {
		return nil, nil
	}

	snapshot := score.NewHeadSnapshot()
	for _, node := range chain {
		phrases, err := e.storage.GetPhrases(ctx, node.VariationID)
		if err != nil {
			return nil, err
		}
		for i := range phrases {
			foldPhrase(snapshot, &phrases[i])
		}
	}

	snapshot.Normalize()
	return snapshot, nil
}

// foldPhrase applies one phrase's change streams onto cumulative state.
func foldPhrase(snapshot *score.HeadSnapshot, p *score.Phrase) {
	rs := snapshot.Region(p.RegionID)
	// The latest phrase owns the track: a later commit may move a region
	// to another track, and the move wins on replay just as side edits
	// win over the base in a merge.
	snapshot.RegionTrack[p.RegionID] = p.TrackID
	// The first commit touching a region establishes its start beat.
	if _, ok := snapshot.RegionStart[p.RegionID]; !ok {
		snapshot.RegionStart[p.RegionID] = p.StartBeat
	}

	for _, nc := range p.NoteChanges {
		rs.Notes = applyNoteChange(rs.Notes, nc)
	}
	for _, dim := range []score.Dimension{score.DimensionCC, score.DimensionPitchBend, score.DimensionAftertouch} {
		stream := p.ControlStream(dim)
		if len(stream) == 0 {
			continue
		}
		events := rs.Events(dim)
		for _, cc := range stream {
			events = applyControlChange(events, cc)
		}
		rs.SetEvents(dim, events)
	}
}

func applyNoteChange(notes []score.NoteEvent, nc score.NoteChange) []score.NoteEvent {
	switch nc.Type {
	case score.ChangeAdded:
		return append(notes, *nc.After)
	case score.ChangeModified:
		if idx := findNote(notes, nc.Before); idx >= 0 {
			notes[idx] = *nc.After
			return notes
		}
		// Target never materialized (partial history); the edit still
		// contributes its resulting note.
		return append(notes, *nc.After)
	case score.ChangeRemoved:
		if idx := findNote(notes, nc.Before); idx >= 0 {
			return append(notes[:idx], notes[idx+1:]...)
		}
		return notes
	default:
		return notes
	}
}

func applyControlChange(events []score.ControlEvent, cc score.ControlChange) []score.ControlEvent {
	switch cc.Type {
	case score.ChangeAdded:
		return append(events, *cc.After)
	case score.ChangeModified:
		if idx := findControl(events, cc.Before); idx >= 0 {
			events[idx] = *cc.After
			return events
		}
		return append(events, *cc.After)
	case score.ChangeRemoved:
		if idx := findControl(events, cc.Before); idx >= 0 {
			return append(events[:idx], events[idx+1:]...)
		}
		return events
	default:
		return events
	}
}

// findNote locates the note matching target's identity key: closest
// position inside the timing tolerance, earliest index on ties.
func findNote(notes []score.NoteEvent, target *score.NoteEvent) int {
	best := -1
	bestDist := math.Inf(1)
	for i := range notes {
		if notes[i].Pitch != target.Pitch {
			continue
		}
		dist := math.Abs(notes[i].StartBeat - target.StartBeat)
		if dist > match.TimingEpsilon {
			continue
		}
		if dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	return best
}

func findControl(events []score.ControlEvent, target *score.ControlEvent) int {
	best := -1
	bestDist := math.Inf(1)
	for i := range events {
		dist := math.Abs(events[i].Beat - target.Beat)
		if dist > match.TimingEpsilon {
			continue
		}
		if dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	return best
}
