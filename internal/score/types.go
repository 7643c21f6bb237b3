package score

import "fmt"

// ChangeType classifies a single element of a change stream.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// ValidChangeTypes defines allowed change types.
var ValidChangeTypes = map[ChangeType]bool{
	ChangeAdded:    true,
	ChangeRemoved:  true,
	ChangeModified: true,
}

// Dimension identifies one of the independent musical data streams that
// can carry its own merge-strategy override.
type Dimension string

const (
	DimensionNote       Dimension = "note"
	DimensionCC         Dimension = "cc"
	DimensionPitchBend  Dimension = "pitch_bend"
	DimensionAftertouch Dimension = "aftertouch"
)

// Dimensions lists all dimensions in fixed evaluation order.
// Merge and checkout iterate this slice, never a map, so output order
// is stable across runs.
var Dimensions = []Dimension{
	DimensionNote,
	DimensionCC,
	DimensionPitchBend,
	DimensionAftertouch,
}

// ValidDimensions defines allowed dimension names.
var ValidDimensions = map[Dimension]bool{
	DimensionNote:       true,
	DimensionCC:         true,
	DimensionPitchBend:  true,
	DimensionAftertouch: true,
}

// CommitStatus tracks the lifecycle of a commit record.
type CommitStatus string

const (
	StatusActive    CommitStatus = "active"
	StatusAbandoned CommitStatus = "abandoned"
)

// BeatRange is a half-open [Start, End) span in beats.
type BeatRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Commit is an immutable node in a project's history DAG ("variation").
//
// ParentID is empty only for the lineage root. Parent2ID is non-empty only
// for merge commits. CreatedAt is unix milliseconds; together with ID it
// forms the deterministic ordering key used by the graph builder.
type Commit struct {
	ID                string
	ProjectID         string
	Intent            string
	ParentID          string
	Parent2ID         string
	AffectedTrackIDs  []string
	AffectedRegionIDs []string
	BeatRange         BeatRange
	Status            CommitStatus
	CreatedAt         int64
}

// IsRoot reports whether the commit is the lineage root.
func (c *Commit) IsRoot() bool {
	return c.ParentID == ""
}

// IsMerge reports whether the commit has two parents.
func (c *Commit) IsMerge() bool {
	return c.Parent2ID != ""
}

// Validate checks the parent invariant: 0, 1, or exactly 2 parents, and
// a second parent never appears without a first.
func (c *Commit) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("commit has empty id")
	}
	if c.Parent2ID != "" && c.ParentID == "" {
		return fmt.Errorf("commit %s has parent2 without parent", c.ID)
	}
	if c.ParentID == c.ID || (c.Parent2ID != "" && c.Parent2ID == c.ID) {
		return fmt.Errorf("commit %s is its own parent", c.ID)
	}
	return nil
}

// NoteEvent is a single note in a region.
//
// Pitch and StartBeat (within timing tolerance) form the identity key for
// matching; Duration and Velocity are the mutable payload.
type NoteEvent struct {
	Pitch     int     `json:"pitch"`
	StartBeat float64 `json:"start_beat"`
	Duration  float64 `json:"duration"`
	Velocity  int     `json:"velocity"`
}

// ControlEvent is a single controller point (CC value, pitch bend, or
// channel aftertouch). Beat within tolerance is the identity key; Value
// is the payload.
type ControlEvent struct {
	Beat  float64 `json:"beat"`
	Value float64 `json:"value"`
}

// NoteChange is one element of a commit's note change stream.
//
// Before/After occupancy follows the change type: added carries only After,
// removed carries only Before, modified carries both. Both absent is
// invalid.
type NoteChange struct {
	Type   ChangeType `json:"change_type"`
	Before *NoteEvent `json:"before,omitempty"`
	After  *NoteEvent `json:"after,omitempty"`
}

// Validate checks the before/after occupancy invariant.
func (nc *NoteChange) Validate() error {
	return validateChange(nc.Type, nc.Before != nil, nc.After != nil)
}

// ControlChange is one element of a commit's cc / pitch-bend / aftertouch
// change stream. Same occupancy rules as NoteChange.
type ControlChange struct {
	Type   ChangeType    `json:"change_type"`
	Before *ControlEvent `json:"before,omitempty"`
	After  *ControlEvent `json:"after,omitempty"`
}

// Validate checks the before/after occupancy invariant.
func (cc *ControlChange) Validate() error {
	return validateChange(cc.Type, cc.Before != nil, cc.After != nil)
}

func validateChange(t ChangeType, hasBefore, hasAfter bool) error {
	switch t {
	case ChangeAdded:
		if hasBefore || !hasAfter {
			return fmt.Errorf("added change must carry only after")
		}
	case ChangeRemoved:
		if !hasBefore || hasAfter {
			return fmt.Errorf("removed change must carry only before")
		}
	case ChangeModified:
		if !hasBefore || !hasAfter {
			return fmt.Errorf("modified change must carry both before and after")
		}
	default:
		return fmt.Errorf("unknown change type %q", t)
	}
	return nil
}

// Phrase is a commit's contribution to one (track, region) pair.
// A commit owns 0..N phrases; phrases are never shared between commits.
//
// The four change streams are independent: a phrase may touch notes
// without touching controllers and vice versa.
type Phrase struct {
	CommitID    string
	TrackID     string
	RegionID    string
	StartBeat   float64
	EndBeat     float64
	NoteChanges []NoteChange
	CCEvents    []ControlChange
	PitchBends  []ControlChange
	Aftertouch  []ControlChange
}

// Validate checks every change element of the phrase.
func (p *Phrase) Validate() error {
	if p.RegionID == "" {
		return fmt.Errorf("phrase has empty region id")
	}
	for i := range p.NoteChanges {
		if err := p.NoteChanges[i].Validate(); err != nil {
			return fmt.Errorf("note_changes[%d]: %w", i, err)
		}
	}
	streams := []struct {
		name    string
		changes []ControlChange
	}{
		{"cc_events", p.CCEvents},
		{"pitch_bends", p.PitchBends},
		{"aftertouch", p.Aftertouch},
	}
	for _, s := range streams {
		for i := range s.changes {
			if err := s.changes[i].Validate(); err != nil {
				return fmt.Errorf("%s[%d]: %w", s.name, i, err)
			}
		}
	}
	return nil
}

// ControlStream returns the phrase's change stream for a controller
// dimension. The note dimension has its own typed stream.
func (p *Phrase) ControlStream(dim Dimension) []ControlChange {
	switch dim {
	case DimensionCC:
		return p.CCEvents
	case DimensionPitchBend:
		return p.PitchBends
	case DimensionAftertouch:
		return p.Aftertouch
	default:
		return nil
	}
}

// HistoryNode is the lineage-walk unit: just enough of a commit to
// traverse and order the graph.
type HistoryNode struct {
	VariationID string
	ParentID    string
	Parent2ID   string
	CreatedAt   int64
}

// MergeConflict describes one overlapping edit found by the three-way
// merge. Conflicts are reported, never persisted.
type MergeConflict struct {
	RegionID    string    `json:"region_id"`
	Dimension   Dimension `json:"dimension"`
	Description string    `json:"description"`
}

func (mc MergeConflict) String() string {
	return fmt.Sprintf("%s/%s: %s", mc.RegionID, mc.Dimension, mc.Description)
}
