package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musehq/muse/internal/score"
	"github.com/musehq/muse/internal/testutil"
)

// forkedHistory builds root -> shared -> {a1 -> a2, b1}.
func forkedHistory() *testutil.MemoryStorage {
	storage := testutil.NewMemoryStorage()
	clock := testutil.NewClock(0, 1000)
	storage.AddCommit(testutil.Commit("root", project, "", "", clock.Next()))
	storage.AddCommit(testutil.Commit("shared", project, "root", "", clock.Next()))
	storage.AddCommit(testutil.Commit("a1", project, "shared", "", clock.Next()))
	storage.AddCommit(testutil.Commit("b1", project, "shared", "", clock.Next()))
	storage.AddCommit(testutil.Commit("a2", project, "a1", "", clock.Next()))
	return storage
}

func TestFindMergeBaseForkedLineages(t *testing.T) {
	engine := New(forkedHistory())

	base, err := engine.FindMergeBase(context.Background(), "a2", "b1")
	require.NoError(t, err)
	assert.Equal(t, "shared", base, "most recent common ancestor, not the root")
}

func TestFindMergeBaseIsSymmetric(t *testing.T) {
	engine := New(forkedHistory())
	ctx := context.Background()

	ab, err := engine.FindMergeBase(ctx, "a2", "b1")
	require.NoError(t, err)
	ba, err := engine.FindMergeBase(ctx, "b1", "a2")
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestFindMergeBaseAncestorOfOther(t *testing.T) {
	engine := New(forkedHistory())
	ctx := context.Background()

	base, err := engine.FindMergeBase(ctx, "shared", "a2")
	require.NoError(t, err)
	assert.Equal(t, "shared", base, "an ancestor is its own merge base")

	base, err = engine.FindMergeBase(ctx, "a2", "a2")
	require.NoError(t, err)
	assert.Equal(t, "a2", base, "a commit is its own base")
}

func TestFindMergeBaseUnknownIDIsAbsent(t *testing.T) {
	engine := New(forkedHistory())
	ctx := context.Background()

	base, err := engine.FindMergeBase(ctx, "a2", "nope")
	require.NoError(t, err)
	assert.Empty(t, base)

	base, err = engine.FindMergeBase(ctx, "nope", "a2")
	require.NoError(t, err)
	assert.Empty(t, base)
}

func TestFindMergeBaseDisjointHistoriesFail(t *testing.T) {
	storage := testutil.NewMemoryStorage()
	storage.AddCommit(testutil.Commit("left-root", project, "", "", 1000))
	storage.AddCommit(testutil.Commit("right-root", project, "", "", 2000))

	engine := New(storage)
	_, err := engine.FindMergeBase(context.Background(), "left-root", "right-root")
	require.Error(t, err, "two roots in one project is corruption")

	var ie *score.IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, score.ErrCodeNoCommonAncestor, ie.Code)
}
