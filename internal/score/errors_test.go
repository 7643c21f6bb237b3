package score

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntegrityErrorMessage(t *testing.T) {
	err := NewMissingParentError("c2", "c1")
	assert.Equal(t, ErrCodeMissingParent, err.Code)
	assert.Contains(t, err.Error(), "MISSING_PARENT")
	assert.Contains(t, err.Error(), "commit=c2")

	disjoint := NewNoCommonAncestorError("a", "b")
	assert.Equal(t, ErrCodeNoCommonAncestor, disjoint.Code)
	assert.NotContains(t, disjoint.Error(), "commit=", "no offending commit to name")
}

func TestIsIntegrityViolation(t *testing.T) {
	assert.True(t, IsIntegrityViolation(NewCycleError("c1")))
	assert.True(t, IsIntegrityViolation(fmt.Errorf("lineage: %w", NewCycleError("c1"))), "wrapped errors are detected")
	assert.False(t, IsIntegrityViolation(fmt.Errorf("plain error")))
	assert.False(t, IsIntegrityViolation(nil))
}
