package testutil

import "github.com/musehq/muse/internal/score"

// Note constructs a note event.
func Note(pitch int, startBeat, duration float64, velocity int) score.NoteEvent {
	return score.NoteEvent{Pitch: pitch, StartBeat: startBeat, Duration: duration, Velocity: velocity}
}

// NoteAdd constructs an added-note change.
func NoteAdd(n score.NoteEvent) score.NoteChange {
	return score.NoteChange{Type: score.ChangeAdded, After: &n}
}

// NoteRemove constructs a removed-note change.
func NoteRemove(n score.NoteEvent) score.NoteChange {
	return score.NoteChange{Type: score.ChangeRemoved, Before: &n}
}

// NoteModify constructs a modified-note change.
func NoteModify(before, after score.NoteEvent) score.NoteChange {
	return score.NoteChange{Type: score.ChangeModified, Before: &before, After: &after}
}

// Control constructs a controller event.
func Control(beat, value float64) score.ControlEvent {
	return score.ControlEvent{Beat: beat, Value: value}
}

// ControlAdd constructs an added controller change.
func ControlAdd(e score.ControlEvent) score.ControlChange {
	return score.ControlChange{Type: score.ChangeAdded, After: &e}
}

// ControlRemove constructs a removed controller change.
func ControlRemove(e score.ControlEvent) score.ControlChange {
	return score.ControlChange{Type: score.ChangeRemoved, Before: &e}
}

// ControlModify constructs a modified controller change.
func ControlModify(before, after score.ControlEvent) score.ControlChange {
	return score.ControlChange{Type: score.ChangeModified, Before: &before, After: &after}
}

// Commit constructs a commit with the given id, parents, and timestamp.
// Parents may be "", (id, ""), or (id, id2).
func Commit(id, projectID, parentID, parent2ID string, createdAt int64) score.Commit {
	return score.Commit{
		ID:        id,
		ProjectID: projectID,
		ParentID:  parentID,
		Parent2ID: parent2ID,
		Status:    score.StatusActive,
		CreatedAt: createdAt,
	}
}

// Phrase constructs a phrase touching one (track, region) pair.
func Phrase(commitID, trackID, regionID string, startBeat, endBeat float64) score.Phrase {
	return score.Phrase{
		CommitID:  commitID,
		TrackID:   trackID,
		RegionID:  regionID,
		StartBeat: startBeat,
		EndBeat:   endBeat,
	}
}
