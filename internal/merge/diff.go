package merge

import (
	"github.com/musehq/muse/internal/match"
	"github.com/musehq/muse/internal/score"
)

// DiffPhrases expresses the delta from one snapshot to another as phrase
// change streams, one phrase per touched region in lexical region order.
//
// A merge commit records exactly this: replay reaches the left parent's
// state through the primary lineage, and the merge commit's own phrases
// carry it the rest of the way to the merged result.
func DiffPhrases(commitID string, from, to *score.HeadSnapshot) []score.Phrase {
	var phrases []score.Phrase
	for _, regionID := range unionRegionIDs(from, to) {
		fromRS := regionOrEmpty(from, regionID)
		toRS := regionOrEmpty(to, regionID)

		phrase := score.Phrase{
			CommitID: commitID,
			RegionID: regionID,
			TrackID:  regionTrack(regionID, to, from),
		}
		if start, ok := startBeat(regionID, to, from); ok {
			phrase.StartBeat = start
		}
		phrase.EndBeat = regionEnd(toRS)

		for _, m := range match.Notes(fromRS.Notes, toRS.Notes) {
			if change, ok := noteChange(m); ok {
				phrase.NoteChanges = append(phrase.NoteChanges, change)
			}
		}
		for _, dim := range []score.Dimension{score.DimensionCC, score.DimensionPitchBend, score.DimensionAftertouch} {
			var changes []score.ControlChange
			for _, m := range match.Controls(fromRS.Events(dim), toRS.Events(dim)) {
				if change, ok := controlChange(m); ok {
					changes = append(changes, change)
				}
			}
			switch dim {
			case score.DimensionCC:
				phrase.CCEvents = changes
			case score.DimensionPitchBend:
				phrase.PitchBends = changes
			case score.DimensionAftertouch:
				phrase.Aftertouch = changes
			}
		}

		if len(phrase.NoteChanges) == 0 && len(phrase.CCEvents) == 0 &&
			len(phrase.PitchBends) == 0 && len(phrase.Aftertouch) == 0 {
			continue
		}
		phrases = append(phrases, phrase)
	}
	return phrases
}

func noteChange(m match.NoteMatch) (score.NoteChange, bool) {
	switch m.Kind {
	case match.Added:
		return score.NoteChange{Type: score.ChangeAdded, After: m.Proposed}, true
	case match.Removed:
		return score.NoteChange{Type: score.ChangeRemoved, Before: m.Base}, true
	case match.Modified:
		return score.NoteChange{Type: score.ChangeModified, Before: m.Base, After: m.Proposed}, true
	default:
		return score.NoteChange{}, false
	}
}

func controlChange(m match.ControlMatch) (score.ControlChange, bool) {
	switch m.Kind {
	case match.Added:
		return score.ControlChange{Type: score.ChangeAdded, After: m.Proposed}, true
	case match.Removed:
		return score.ControlChange{Type: score.ChangeRemoved, Before: m.Base}, true
	case match.Modified:
		return score.ControlChange{Type: score.ChangeModified, Before: m.Base, After: m.Proposed}, true
	default:
		return score.ControlChange{}, false
	}
}

func startBeat(regionID string, candidates ...*score.HeadSnapshot) (float64, bool) {
	for _, s := range candidates {
		if s == nil {
			continue
		}
		if start, ok := s.RegionStart[regionID]; ok {
			return start, true
		}
	}
	return 0, false
}

// regionEnd estimates the phrase end from the last event in the target
// region.
func regionEnd(rs *score.RegionState) float64 {
	end := 0.0
	for _, n := range rs.Notes {
		if v := n.StartBeat + n.Duration; v > end {
			end = v
		}
	}
	for _, events := range [][]score.ControlEvent{rs.CC, rs.PitchBends, rs.Aftertouch} {
		for _, e := range events {
			if e.Beat > end {
				end = e.Beat
			}
		}
	}
	return end
}
