package score

import (
	"slices"
	"sort"
)

// RegionState is the cumulative musical content of one region at some
// commit: full event lists, not changes.
type RegionState struct {
	Notes      []NoteEvent
	CC         []ControlEvent
	PitchBends []ControlEvent
	Aftertouch []ControlEvent
}

// Events returns the controller event list for a dimension.
// Returns nil for the note dimension; notes have their own typed list.
func (rs *RegionState) Events(dim Dimension) []ControlEvent {
	switch dim {
	case DimensionCC:
		return rs.CC
	case DimensionPitchBend:
		return rs.PitchBends
	case DimensionAftertouch:
		return rs.Aftertouch
	default:
		return nil
	}
}

// SetEvents replaces the controller event list for a dimension.
func (rs *RegionState) SetEvents(dim Dimension, events []ControlEvent) {
	switch dim {
	case DimensionCC:
		rs.CC = events
	case DimensionPitchBend:
		rs.PitchBends = events
	case DimensionAftertouch:
		rs.Aftertouch = events
	}
}

// IsEmpty reports whether the region carries no events in any dimension.
func (rs *RegionState) IsEmpty() bool {
	return len(rs.Notes) == 0 && len(rs.CC) == 0 &&
		len(rs.PitchBends) == 0 && len(rs.Aftertouch) == 0
}

// Clone returns a deep copy.
func (rs *RegionState) Clone() *RegionState {
	return &RegionState{
		Notes:      slices.Clone(rs.Notes),
		CC:         slices.Clone(rs.CC),
		PitchBends: slices.Clone(rs.PitchBends),
		Aftertouch: slices.Clone(rs.Aftertouch),
	}
}

// Normalize sorts every event list into canonical order. Replay and merge
// call this before handing a snapshot to anything that hashes or diffs it.
func (rs *RegionState) Normalize() {
	SortNotes(rs.Notes)
	SortControlEvents(rs.CC)
	SortControlEvents(rs.PitchBends)
	SortControlEvents(rs.Aftertouch)
}

// SortNotes orders notes by (start_beat, pitch, duration, velocity).
func SortNotes(notes []NoteEvent) {
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if a.StartBeat != b.StartBeat {
			return a.StartBeat < b.StartBeat
		}
		if a.Pitch != b.Pitch {
			return a.Pitch < b.Pitch
		}
		if a.Duration != b.Duration {
			return a.Duration < b.Duration
		}
		return a.Velocity < b.Velocity
	})
}

// SortControlEvents orders controller events by (beat, value).
func SortControlEvents(events []ControlEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Beat != b.Beat {
			return a.Beat < b.Beat
		}
		return a.Value < b.Value
	})
}

// HeadSnapshot is derived per-region cumulative state at a commit.
// Computed on demand by folding history, never persisted, never cached
// across requests.
type HeadSnapshot struct {
	Regions     map[string]*RegionState
	RegionTrack map[string]string
	RegionStart map[string]float64
}

// NewHeadSnapshot returns an empty snapshot with all maps allocated.
func NewHeadSnapshot() *HeadSnapshot {
	return &HeadSnapshot{
		Regions:     map[string]*RegionState{},
		RegionTrack: map[string]string{},
		RegionStart: map[string]float64{},
	}
}

// Region returns the state for a region id, allocating it on first use.
func (s *HeadSnapshot) Region(regionID string) *RegionState {
	rs, ok := s.Regions[regionID]
	if !ok {
		rs = &RegionState{}
		s.Regions[regionID] = rs
	}
	return rs
}

// RegionIDs returns all region ids in lexical order.
func (s *HeadSnapshot) RegionIDs() []string {
	ids := make([]string, 0, len(s.Regions))
	for id := range s.Regions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy.
func (s *HeadSnapshot) Clone() *HeadSnapshot {
	out := NewHeadSnapshot()
	for id, rs := range s.Regions {
		out.Regions[id] = rs.Clone()
	}
	for id, track := range s.RegionTrack {
		out.RegionTrack[id] = track
	}
	for id, start := range s.RegionStart {
		out.RegionStart[id] = start
	}
	return out
}

// Normalize sorts every region's event lists into canonical order.
func (s *HeadSnapshot) Normalize() {
	for _, rs := range s.Regions {
		rs.Normalize()
	}
}

// CanonicalMap converts the snapshot to the map form accepted by
// MarshalCanonical. Regions appear under sorted keys; map iteration
// order never leaks into the output.
func (s *HeadSnapshot) CanonicalMap() map[string]any {
	regions := map[string]any{}
	for id, rs := range s.Regions {
		region := map[string]any{
			"notes":       notesCanonical(rs.Notes),
			"cc":          controlsCanonical(rs.CC),
			"pitch_bends": controlsCanonical(rs.PitchBends),
			"aftertouch":  controlsCanonical(rs.Aftertouch),
		}
		if track, ok := s.RegionTrack[id]; ok {
			region["track_id"] = track
		}
		if start, ok := s.RegionStart[id]; ok {
			region["start_beat"] = start
		}
		regions[id] = region
	}
	return map[string]any{"regions": regions}
}

func notesCanonical(notes []NoteEvent) []any {
	out := make([]any, len(notes))
	for i, n := range notes {
		out[i] = noteCanonical(n)
	}
	return out
}

func noteCanonical(n NoteEvent) map[string]any {
	return map[string]any{
		"pitch":      n.Pitch,
		"start_beat": n.StartBeat,
		"duration":   n.Duration,
		"velocity":   n.Velocity,
	}
}

func controlsCanonical(events []ControlEvent) []any {
	out := make([]any, len(events))
	for i, e := range events {
		out[i] = controlCanonical(e)
	}
	return out
}

func controlCanonical(e ControlEvent) map[string]any {
	return map[string]any{
		"beat":  e.Beat,
		"value": e.Value,
	}
}

// NoteCanonical exposes the canonical map form of a note for callers that
// embed notes in their own hashed structures (checkout plans).
func NoteCanonical(n NoteEvent) map[string]any {
	return noteCanonical(n)
}

// ControlCanonical exposes the canonical map form of a controller event.
func ControlCanonical(e ControlEvent) map[string]any {
	return controlCanonical(e)
}
