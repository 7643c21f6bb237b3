package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musehq/muse/internal/score"
	"github.com/musehq/muse/internal/testutil"
)

const project = "test-project"

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "muse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "muse.db")

	st1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st1.Close())

	st2, err := Open(path)
	require.NoError(t, err)
	defer st2.Close()

	var version int
	require.NoError(t, st2.DB().QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpenAppliesPragmas(t *testing.T) {
	st := openTestStore(t)

	assert.NoError(t, st.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, st.verifyPragma("foreign_keys", "1"))
}

func TestWriteCommitRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	commit := testutil.Commit("c1", project, "", "", 1000)
	commit.Intent = "first take"
	commit.AffectedTrackIDs = []string{"t1"}
	commit.AffectedRegionIDs = []string{"r1"}
	commit.BeatRange = score.BeatRange{Start: 0, End: 4}

	phrase := testutil.Phrase("c1", "t1", "r1", 0, 4)
	phrase.NoteChanges = []score.NoteChange{
		testutil.NoteAdd(testutil.Note(60, 0, 1, 100)),
	}
	phrase.CCEvents = []score.ControlChange{
		testutil.ControlAdd(testutil.Control(0.5, 0.25)),
	}

	require.NoError(t, st.WriteCommit(ctx, &commit, []score.Phrase{phrase}))

	got, err := st.GetCommit(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, commit.Intent, got.Intent)
	assert.Equal(t, commit.AffectedTrackIDs, got.AffectedTrackIDs)
	assert.Equal(t, commit.AffectedRegionIDs, got.AffectedRegionIDs)
	assert.Equal(t, commit.BeatRange, got.BeatRange)
	assert.Equal(t, score.StatusActive, got.Status)
	assert.Empty(t, got.ParentID)

	phrases, err := st.GetPhrases(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, phrases, 1)
	assert.Equal(t, "r1", phrases[0].RegionID)
	require.Len(t, phrases[0].NoteChanges, 1)
	assert.Equal(t, score.ChangeAdded, phrases[0].NoteChanges[0].Type)
	assert.Equal(t, 60, phrases[0].NoteChanges[0].After.Pitch)
	require.Len(t, phrases[0].CCEvents, 1)
	assert.InDelta(t, 0.25, phrases[0].CCEvents[0].After.Value, 1e-12)
	assert.Empty(t, phrases[0].PitchBends)
}

func TestWriteCommitDuplicateIgnored(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	commit := testutil.Commit("c1", project, "", "", 1000)
	commit.Intent = "original"
	phrase := testutil.Phrase("c1", "t1", "r1", 0, 4)
	phrase.NoteChanges = []score.NoteChange{testutil.NoteAdd(testutil.Note(60, 0, 1, 100))}
	require.NoError(t, st.WriteCommit(ctx, &commit, []score.Phrase{phrase}))

	// Re-recording the same id changes nothing, including phrases.
	rewrite := testutil.Commit("c1", project, "", "", 9000)
	rewrite.Intent = "overwrite attempt"
	other := testutil.Phrase("c1", "t1", "r1", 0, 4)
	other.NoteChanges = []score.NoteChange{testutil.NoteAdd(testutil.Note(72, 0, 1, 50))}
	require.NoError(t, st.WriteCommit(ctx, &rewrite, []score.Phrase{other}))

	got, err := st.GetCommit(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "original", got.Intent)

	phrases, err := st.GetPhrases(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, phrases, 1)
	assert.Equal(t, 60, phrases[0].NoteChanges[0].After.Pitch)
}

func TestWriteCommitRejectsInvalid(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	bad := testutil.Commit("", project, "", "", 1000)
	assert.Error(t, st.WriteCommit(ctx, &bad, nil))

	commit := testutil.Commit("c1", project, "", "", 1000)
	n := testutil.Note(60, 0, 1, 100)
	phrase := testutil.Phrase("c1", "t1", "r1", 0, 4)
	phrase.NoteChanges = []score.NoteChange{{Type: score.ChangeAdded, Before: &n}}
	assert.Error(t, st.WriteCommit(ctx, &commit, []score.Phrase{phrase}), "malformed change streams never persist")
}

func TestGetCommitUnknownIsAbsent(t *testing.T) {
	st := openTestStore(t)

	got, err := st.GetCommit(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetCommitMergeParents(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	root := testutil.Commit("root", project, "", "", 1000)
	a := testutil.Commit("a", project, "root", "", 2000)
	b := testutil.Commit("b", project, "root", "", 3000)
	m := testutil.Commit("m", project, "a", "b", 4000)
	for _, c := range []score.Commit{root, a, b, m} {
		c := c
		require.NoError(t, st.WriteCommit(ctx, &c, nil))
	}

	got, err := st.GetCommit(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ParentID)
	assert.Equal(t, "b", got.Parent2ID)
	assert.True(t, got.IsMerge())
}

func TestGetChildrenOrdering(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	root := testutil.Commit("root", project, "", "", 1000)
	require.NoError(t, st.WriteCommit(ctx, &root, nil))
	// Insert out of order; reads sort by (created_at, id).
	z := testutil.Commit("z", project, "root", "", 2000)
	a := testutil.Commit("a", project, "root", "", 2000)
	late := testutil.Commit("late", project, "root", "", 5000)
	for _, c := range []score.Commit{z, late, a} {
		c := c
		require.NoError(t, st.WriteCommit(ctx, &c, nil))
	}

	children, err := st.GetChildren(ctx, "root")
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, "a", children[0].ID)
	assert.Equal(t, "z", children[1].ID)
	assert.Equal(t, "late", children[2].ID)
}

func TestGetChildrenIncludesMergeChildren(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for _, c := range []score.Commit{
		testutil.Commit("root", project, "", "", 1000),
		testutil.Commit("a", project, "root", "", 2000),
		testutil.Commit("b", project, "root", "", 3000),
		testutil.Commit("m", project, "a", "b", 4000),
	} {
		c := c
		require.NoError(t, st.WriteCommit(ctx, &c, nil))
	}

	children, err := st.GetChildren(ctx, "b")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "m", children[0].ID, "a commit listing b as parent2 is b's child")
}

func TestGetAllCommitsFiltersByProject(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	mine := testutil.Commit("mine", project, "", "", 1000)
	other := testutil.Commit("other", "other-project", "", "", 500)
	require.NoError(t, st.WriteCommit(ctx, &mine, nil))
	require.NoError(t, st.WriteCommit(ctx, &other, nil))

	commits, err := st.GetAllCommits(ctx, project)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "mine", commits[0].ID)
}

func TestGetPhrasesPreservesPosition(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	commit := testutil.Commit("c1", project, "", "", 1000)
	first := testutil.Phrase("c1", "t1", "r1", 0, 4)
	first.NoteChanges = []score.NoteChange{testutil.NoteAdd(testutil.Note(60, 0, 1, 100))}
	second := testutil.Phrase("c1", "t2", "r2", 4, 8)
	second.NoteChanges = []score.NoteChange{testutil.NoteAdd(testutil.Note(48, 4, 1, 100))}
	require.NoError(t, st.WriteCommit(ctx, &commit, []score.Phrase{first, second}))

	phrases, err := st.GetPhrases(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, phrases, 2)
	assert.Equal(t, "r1", phrases[0].RegionID)
	assert.Equal(t, "r2", phrases[1].RegionID)
}

func TestHeadCompareAndSwap(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for _, c := range []score.Commit{
		testutil.Commit("c1", project, "", "", 1000),
		testutil.Commit("c2", project, "c1", "", 2000),
	} {
		c := c
		require.NoError(t, st.WriteCommit(ctx, &c, nil))
	}

	head, err := st.GetHead(ctx, project)
	require.NoError(t, err)
	assert.Empty(t, head, "no head until one is set")

	// Initial set asserts absence.
	ok, err := st.SetHead(ctx, project, "", "c1")
	require.NoError(t, err)
	assert.True(t, ok)

	// A second initial set loses.
	ok, err = st.SetHead(ctx, project, "", "c2")
	require.NoError(t, err)
	assert.False(t, ok)

	// Swap with the right expectation wins.
	ok, err = st.SetHead(ctx, project, "c1", "c2")
	require.NoError(t, err)
	assert.True(t, ok)

	// Stale expectation loses and changes nothing.
	ok, err = st.SetHead(ctx, project, "c1", "c1")
	require.NoError(t, err)
	assert.False(t, ok)

	head, err = st.GetHead(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, "c2", head)
}

func TestHeadsAreIndependentPerProject(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	a := testutil.Commit("a", "project-a", "", "", 1000)
	b := testutil.Commit("b", "project-b", "", "", 1000)
	require.NoError(t, st.WriteCommit(ctx, &a, nil))
	require.NoError(t, st.WriteCommit(ctx, &b, nil))

	ok, err := st.SetHead(ctx, "project-a", "", "a")
	require.NoError(t, err)
	require.True(t, ok)

	head, err := st.GetHead(ctx, "project-b")
	require.NoError(t, err)
	assert.Empty(t, head)
}
