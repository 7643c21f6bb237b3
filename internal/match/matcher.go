// Package match implements the tolerance-based diff primitive over ordered
// event lists. It is the shared engine under three-way merge and checkout
// planning.
//
// Identity keys:
//   - notes: (pitch, start_beat within TimingEpsilon)
//   - controller events: beat within TimingEpsilon
//
// Unmatched base elements classify as removed, unmatched candidates as
// added, and matched pairs with differing payload (duration, velocity,
// value) as modified. Ties (multiple candidates inside the tolerance
// window) resolve by closest position, then first-occurrence order.
// No randomness anywhere; identical inputs always produce the identical
// match list.
package match

import (
	"math"

	"github.com/musehq/muse/internal/score"
)

// Tolerance constants are fixed configuration, not knobs.
const (
	// TimingEpsilon is the identity window for beat positions: one tick
	// at 960 PPQ. Two events closer than this are the same event.
	TimingEpsilon = 1.0 / 960.0

	// ValueEpsilon bounds payload comparison for continuous values
	// (durations, controller values). Differences below it are noise
	// from serialization round trips, not edits.
	ValueEpsilon = 1e-9
)

// Kind classifies one element of a match result.
type Kind string

const (
	Unchanged Kind = "unchanged"
	Modified  Kind = "modified"
	Added     Kind = "added"
	Removed   Kind = "removed"
)

// NoteMatch pairs a base note with its candidate counterpart.
// Base is nil for added, Proposed is nil for removed; modified carries
// the candidate as Proposed.
type NoteMatch struct {
	Kind     Kind
	Base     *score.NoteEvent
	Proposed *score.NoteEvent
}

// ControlMatch is the controller-event analogue of NoteMatch.
type ControlMatch struct {
	Kind     Kind
	Base     *score.ControlEvent
	Proposed *score.ControlEvent
}

// Notes diffs a candidate note list against a base note list.
//
// Result order: base elements in base order (unchanged/modified/removed),
// then unmatched candidates in candidate order (added).
func Notes(base, candidate []score.NoteEvent) []NoteMatch {
	used := make([]bool, len(candidate))
	matches := make([]NoteMatch, 0, len(base)+len(candidate))

	for i := range base {
		b := &base[i]
		best := -1
		bestDist := math.Inf(1)
		for j := range candidate {
			if used[j] {
				continue
			}
			c := &candidate[j]
			if c.Pitch != b.Pitch {
				continue
			}
			dist := math.Abs(c.StartBeat - b.StartBeat)
			if dist > TimingEpsilon {
				continue
			}
			// Closest position wins; on exact ties the earliest
			// candidate keeps the match.
			if dist < bestDist {
				best = j
				bestDist = dist
			}
		}
		if best < 0 {
			matches = append(matches, NoteMatch{Kind: Removed, Base: b})
			continue
		}
		used[best] = true
		c := &candidate[best]
		if sameNotePayload(b, c) {
			matches = append(matches, NoteMatch{Kind: Unchanged, Base: b, Proposed: c})
		} else {
			matches = append(matches, NoteMatch{Kind: Modified, Base: b, Proposed: c})
		}
	}

	for j := range candidate {
		if !used[j] {
			matches = append(matches, NoteMatch{Kind: Added, Proposed: &candidate[j]})
		}
	}

	return matches
}

// Controls diffs a candidate controller-event list against a base list.
// Same contract as Notes, keyed by beat alone.
func Controls(base, candidate []score.ControlEvent) []ControlMatch {
	used := make([]bool, len(candidate))
	matches := make([]ControlMatch, 0, len(base)+len(candidate))

	for i := range base {
		b := &base[i]
		best := -1
		bestDist := math.Inf(1)
		for j := range candidate {
			if used[j] {
				continue
			}
			dist := math.Abs(candidate[j].Beat - b.Beat)
			if dist > TimingEpsilon {
				continue
			}
			if dist < bestDist {
				best = j
				bestDist = dist
			}
		}
		if best < 0 {
			matches = append(matches, ControlMatch{Kind: Removed, Base: b})
			continue
		}
		used[best] = true
		c := &candidate[best]
		if FloatsEqual(b.Value, c.Value) {
			matches = append(matches, ControlMatch{Kind: Unchanged, Base: b, Proposed: c})
		} else {
			matches = append(matches, ControlMatch{Kind: Modified, Base: b, Proposed: c})
		}
	}

	for j := range candidate {
		if !used[j] {
			matches = append(matches, ControlMatch{Kind: Added, Proposed: &candidate[j]})
		}
	}

	return matches
}

// SameNoteKey reports whether two notes share an identity key.
func SameNoteKey(a, b *score.NoteEvent) bool {
	return a.Pitch == b.Pitch && math.Abs(a.StartBeat-b.StartBeat) <= TimingEpsilon
}

// SameControlKey reports whether two controller events share an identity key.
func SameControlKey(a, b *score.ControlEvent) bool {
	return math.Abs(a.Beat-b.Beat) <= TimingEpsilon
}

// SameNotePayload reports whether two notes agree on their non-identity
// fields.
func SameNotePayload(a, b *score.NoteEvent) bool {
	return sameNotePayload(a, b)
}

func sameNotePayload(a, b *score.NoteEvent) bool {
	return a.Velocity == b.Velocity && FloatsEqual(a.Duration, b.Duration)
}

// FloatsEqual compares continuous payload values under ValueEpsilon.
func FloatsEqual(a, b float64) bool {
	return math.Abs(a-b) <= ValueEpsilon
}
