package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)

	h1 := HashWithDomain(DomainPlan, data)
	h2 := HashWithDomain(DomainSnapshot, data)

	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
	assert.NotEqual(t, h1, h2, "same bytes under different domains hash differently")
}

func TestHashWithDomainBoundary(t *testing.T) {
	// The null separator makes ("ab", "c") and ("a", "bc") distinct.
	h1 := HashWithDomain("ab", []byte("c"))
	h2 := HashWithDomain("a", []byte("bc"))
	assert.NotEqual(t, h1, h2)
}

func TestSnapshotHashDeterminism(t *testing.T) {
	s := NewHeadSnapshot()
	rs := s.Region("r1")
	rs.Notes = []NoteEvent{
		{Pitch: 60, StartBeat: 0, Duration: 1, Velocity: 100},
		{Pitch: 64, StartBeat: 1, Duration: 0.5, Velocity: 90},
	}
	rs.CC = []ControlEvent{{Beat: 0.5, Value: 0.25}}
	s.RegionTrack["r1"] = "t1"
	s.RegionStart["r1"] = 0

	h1, err := SnapshotHash(s)
	require.NoError(t, err)
	h2, err := SnapshotHash(s)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestSnapshotHashIgnoresConstructionOrder(t *testing.T) {
	// Two snapshots built in different orders hash identically once
	// normalized.
	a := NewHeadSnapshot()
	a.Region("r1").Notes = []NoteEvent{
		{Pitch: 64, StartBeat: 1, Duration: 1, Velocity: 90},
		{Pitch: 60, StartBeat: 0, Duration: 1, Velocity: 100},
	}
	a.Region("r2").CC = []ControlEvent{{Beat: 2, Value: 0.5}, {Beat: 1, Value: 0.5}}
	a.Normalize()

	b := NewHeadSnapshot()
	b.Region("r2").CC = []ControlEvent{{Beat: 1, Value: 0.5}, {Beat: 2, Value: 0.5}}
	b.Region("r1").Notes = []NoteEvent{
		{Pitch: 60, StartBeat: 0, Duration: 1, Velocity: 100},
		{Pitch: 64, StartBeat: 1, Duration: 1, Velocity: 90},
	}
	b.Normalize()

	assert.Equal(t, MustSnapshotHash(a), MustSnapshotHash(b))
}

func TestSnapshotHashSensitivity(t *testing.T) {
	base := func() *HeadSnapshot {
		s := NewHeadSnapshot()
		s.Region("r1").Notes = []NoteEvent{{Pitch: 60, StartBeat: 0, Duration: 1, Velocity: 100}}
		return s
	}

	reference := MustSnapshotHash(base())

	changed := base()
	changed.Region("r1").Notes[0].Velocity = 99
	assert.NotEqual(t, reference, MustSnapshotHash(changed), "velocity change alters the hash")

	moved := base()
	moved.Region("r1").Notes[0].StartBeat = 0.5
	assert.NotEqual(t, reference, MustSnapshotHash(moved), "position change alters the hash")

	renamed := NewHeadSnapshot()
	renamed.Region("r2").Notes = []NoteEvent{{Pitch: 60, StartBeat: 0, Duration: 1, Velocity: 100}}
	assert.NotEqual(t, reference, MustSnapshotHash(renamed), "region id participates in identity")
}

func TestSnapshotHashWholeBeatsCollapse(t *testing.T) {
	// A beat written as 4.0 and a beat computed as 8.0/2.0 are the same
	// beat and must hash the same.
	a := NewHeadSnapshot()
	a.Region("r1").Notes = []NoteEvent{{Pitch: 60, StartBeat: 4.0, Duration: 1, Velocity: 100}}

	b := NewHeadSnapshot()
	b.Region("r1").Notes = []NoteEvent{{Pitch: 60, StartBeat: 8.0 / 2.0, Duration: 1, Velocity: 100}}

	assert.Equal(t, MustSnapshotHash(a), MustSnapshotHash(b))
}

func TestSnapshotCanonicalEmpty(t *testing.T) {
	canonical, err := SnapshotCanonical(NewHeadSnapshot())
	require.NoError(t, err)
	assert.Equal(t, `{"regions":{}}`, string(canonical))
}

func TestSnapshotCanonicalShape(t *testing.T) {
	s := NewHeadSnapshot()
	s.Region("r1").Notes = []NoteEvent{{Pitch: 60, StartBeat: 0, Duration: 1, Velocity: 100}}
	s.RegionTrack["r1"] = "t1"
	s.RegionStart["r1"] = 0

	canonical, err := SnapshotCanonical(s)
	require.NoError(t, err)
	assert.Equal(t,
		`{"regions":{"r1":{"aftertouch":[],"cc":[],"notes":[{"duration":1,"pitch":60,"start_beat":0,"velocity":100}],"pitch_bends":[],"start_beat":0,"track_id":"t1"}}}`,
		string(canonical))
}
