package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortNotesOrdering(t *testing.T) {
	notes := []NoteEvent{
		{Pitch: 64, StartBeat: 1, Duration: 1, Velocity: 100},
		{Pitch: 60, StartBeat: 1, Duration: 1, Velocity: 100},
		{Pitch: 60, StartBeat: 0, Duration: 2, Velocity: 100},
		{Pitch: 60, StartBeat: 0, Duration: 1, Velocity: 100},
		{Pitch: 60, StartBeat: 0, Duration: 1, Velocity: 50},
	}
	SortNotes(notes)

	assert.Equal(t, []NoteEvent{
		{Pitch: 60, StartBeat: 0, Duration: 1, Velocity: 50},
		{Pitch: 60, StartBeat: 0, Duration: 1, Velocity: 100},
		{Pitch: 60, StartBeat: 0, Duration: 2, Velocity: 100},
		{Pitch: 60, StartBeat: 1, Duration: 1, Velocity: 100},
		{Pitch: 64, StartBeat: 1, Duration: 1, Velocity: 100},
	}, notes)
}

func TestSortControlEventsOrdering(t *testing.T) {
	events := []ControlEvent{
		{Beat: 2, Value: 0.5},
		{Beat: 1, Value: 0.9},
		{Beat: 1, Value: 0.1},
	}
	SortControlEvents(events)

	assert.Equal(t, []ControlEvent{
		{Beat: 1, Value: 0.1},
		{Beat: 1, Value: 0.9},
		{Beat: 2, Value: 0.5},
	}, events)
}

func TestRegionStateEventsByDimension(t *testing.T) {
	rs := &RegionState{}
	rs.SetEvents(DimensionCC, []ControlEvent{{Beat: 1, Value: 0.5}})
	rs.SetEvents(DimensionPitchBend, []ControlEvent{{Beat: 2, Value: -0.5}})
	rs.SetEvents(DimensionAftertouch, []ControlEvent{{Beat: 3, Value: 0.25}})

	assert.Len(t, rs.Events(DimensionCC), 1)
	assert.Len(t, rs.Events(DimensionPitchBend), 1)
	assert.Len(t, rs.Events(DimensionAftertouch), 1)
	assert.Nil(t, rs.Events(DimensionNote))
	assert.False(t, rs.IsEmpty())
}

func TestRegionStateCloneIsDeep(t *testing.T) {
	rs := &RegionState{
		Notes: []NoteEvent{{Pitch: 60, StartBeat: 0, Duration: 1, Velocity: 100}},
		CC:    []ControlEvent{{Beat: 1, Value: 0.5}},
	}
	clone := rs.Clone()
	clone.Notes[0].Velocity = 1
	clone.CC[0].Value = 0

	assert.Equal(t, 100, rs.Notes[0].Velocity)
	assert.InDelta(t, 0.5, rs.CC[0].Value, 0)
}

func TestHeadSnapshotRegionAllocatesOnFirstUse(t *testing.T) {
	s := NewHeadSnapshot()
	require.Empty(t, s.Regions)

	rs := s.Region("r1")
	require.NotNil(t, rs)
	assert.Same(t, rs, s.Region("r1"), "second lookup returns the same state")
	assert.Len(t, s.Regions, 1)
}

func TestHeadSnapshotRegionIDsSorted(t *testing.T) {
	s := NewHeadSnapshot()
	s.Region("zeta")
	s.Region("alpha")
	s.Region("mid")

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, s.RegionIDs())
}

func TestHeadSnapshotCloneIsDeep(t *testing.T) {
	s := NewHeadSnapshot()
	s.Region("r1").Notes = []NoteEvent{{Pitch: 60, StartBeat: 0, Duration: 1, Velocity: 100}}
	s.RegionTrack["r1"] = "t1"
	s.RegionStart["r1"] = 2.5

	clone := s.Clone()
	clone.Region("r1").Notes[0].Pitch = 72
	clone.RegionTrack["r1"] = "t2"
	clone.RegionStart["r1"] = 0

	assert.Equal(t, 60, s.Region("r1").Notes[0].Pitch)
	assert.Equal(t, "t1", s.RegionTrack["r1"])
	assert.InDelta(t, 2.5, s.RegionStart["r1"], 0)
}
