package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitValidate(t *testing.T) {
	tests := []struct {
		name    string
		commit  Commit
		wantErr bool
	}{
		{"root", Commit{ID: "a"}, false},
		{"single parent", Commit{ID: "b", ParentID: "a"}, false},
		{"merge", Commit{ID: "c", ParentID: "a", Parent2ID: "b"}, false},
		{"empty id", Commit{}, true},
		{"parent2 without parent", Commit{ID: "c", Parent2ID: "b"}, true},
		{"self parent", Commit{ID: "a", ParentID: "a"}, true},
		{"self parent2", Commit{ID: "a", ParentID: "b", Parent2ID: "a"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.commit.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCommitKind(t *testing.T) {
	root := Commit{ID: "a"}
	child := Commit{ID: "b", ParentID: "a"}
	merged := Commit{ID: "c", ParentID: "a", Parent2ID: "b"}

	assert.True(t, root.IsRoot())
	assert.False(t, root.IsMerge())
	assert.False(t, child.IsRoot())
	assert.False(t, child.IsMerge())
	assert.True(t, merged.IsMerge())
}

func TestNoteChangeValidate(t *testing.T) {
	n := NoteEvent{Pitch: 60, StartBeat: 0, Duration: 1, Velocity: 100}
	m := NoteEvent{Pitch: 60, StartBeat: 0, Duration: 2, Velocity: 100}

	valid := []NoteChange{
		{Type: ChangeAdded, After: &n},
		{Type: ChangeRemoved, Before: &n},
		{Type: ChangeModified, Before: &n, After: &m},
	}
	for _, nc := range valid {
		assert.NoError(t, nc.Validate(), "%s", nc.Type)
	}

	invalid := []NoteChange{
		{Type: ChangeAdded, Before: &n, After: &m},
		{Type: ChangeAdded},
		{Type: ChangeRemoved, After: &n},
		{Type: ChangeModified, Before: &n},
		{Type: ChangeModified, After: &n},
		{Type: "mystery", Before: &n, After: &m},
	}
	for i, nc := range invalid {
		assert.Error(t, nc.Validate(), "invalid[%d]", i)
	}
}

func TestControlChangeValidate(t *testing.T) {
	e := ControlEvent{Beat: 1, Value: 0.5}
	f := ControlEvent{Beat: 1, Value: 0.75}

	assert.NoError(t, (&ControlChange{Type: ChangeAdded, After: &e}).Validate())
	assert.NoError(t, (&ControlChange{Type: ChangeRemoved, Before: &e}).Validate())
	assert.NoError(t, (&ControlChange{Type: ChangeModified, Before: &e, After: &f}).Validate())
	assert.Error(t, (&ControlChange{Type: ChangeAdded, Before: &e}).Validate())
	assert.Error(t, (&ControlChange{Type: ChangeRemoved}).Validate())
}

func TestPhraseValidate(t *testing.T) {
	n := NoteEvent{Pitch: 60, StartBeat: 0, Duration: 1, Velocity: 100}

	p := Phrase{
		CommitID: "c1", TrackID: "t1", RegionID: "r1",
		NoteChanges: []NoteChange{{Type: ChangeAdded, After: &n}},
	}
	require.NoError(t, p.Validate())

	p.NoteChanges = append(p.NoteChanges, NoteChange{Type: ChangeAdded, Before: &n})
	assert.Error(t, p.Validate())

	empty := Phrase{CommitID: "c1", TrackID: "t1"}
	assert.Error(t, empty.Validate(), "region id is required")
}

func TestPhraseControlStream(t *testing.T) {
	e := ControlEvent{Beat: 1, Value: 0.5}
	p := Phrase{
		RegionID:   "r1",
		CCEvents:   []ControlChange{{Type: ChangeAdded, After: &e}},
		PitchBends: []ControlChange{},
	}

	assert.Len(t, p.ControlStream(DimensionCC), 1)
	assert.Empty(t, p.ControlStream(DimensionPitchBend))
	assert.Empty(t, p.ControlStream(DimensionAftertouch))
	assert.Nil(t, p.ControlStream(DimensionNote))
}

func TestDimensionsOrderIsFixed(t *testing.T) {
	assert.Equal(t, []Dimension{DimensionNote, DimensionCC, DimensionPitchBend, DimensionAftertouch}, Dimensions)
}
