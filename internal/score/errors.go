package score

import (
	"errors"
	"fmt"
)

// IntegrityError reports a broken graph invariant: corrupted history
// rather than routine business flow. Callers treat it as a hard error,
// never as a merge conflict.
type IntegrityError struct {
	// Code identifies the error category.
	Code IntegrityErrorCode

	// Message is a human-readable description.
	Message string

	// CommitID identifies the offending commit where known.
	CommitID string
}

// IntegrityErrorCode categorizes integrity violations.
type IntegrityErrorCode string

const (
	// ErrCodeNoCommonAncestor indicates two commits of one project share
	// no history. Every commit should descend from the project root, so
	// this signals corruption, not a legitimate merge outcome.
	ErrCodeNoCommonAncestor IntegrityErrorCode = "NO_COMMON_ANCESTOR"

	// ErrCodeMissingParent indicates a commit references a parent id
	// that does not resolve.
	ErrCodeMissingParent IntegrityErrorCode = "MISSING_PARENT"

	// ErrCodeCycleDetected indicates the commit graph is not a DAG.
	ErrCodeCycleDetected IntegrityErrorCode = "CYCLE_DETECTED"

	// ErrCodeDuplicateCommit indicates one commit id appears more than
	// once in a project's history.
	ErrCodeDuplicateCommit IntegrityErrorCode = "DUPLICATE_COMMIT"
)

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	if e.CommitID != "" {
		return fmt.Sprintf("%s: %s (commit=%s)", e.Code, e.Message, e.CommitID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsIntegrityViolation reports whether err is any IntegrityError.
// Uses errors.As to handle wrapped errors.
func IsIntegrityViolation(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

// NewNoCommonAncestorError creates an IntegrityError for disjoint histories.
func NewNoCommonAncestorError(a, b string) *IntegrityError {
	return &IntegrityError{
		Code:    ErrCodeNoCommonAncestor,
		Message: fmt.Sprintf("commits %s and %s share no history", a, b),
	}
}

// NewMissingParentError creates an IntegrityError for a dangling parent ref.
func NewMissingParentError(commitID, parentID string) *IntegrityError {
	return &IntegrityError{
		Code:     ErrCodeMissingParent,
		Message:  fmt.Sprintf("parent %s does not resolve", parentID),
		CommitID: commitID,
	}
}

// NewCycleError creates an IntegrityError for a cyclic parent chain.
func NewCycleError(commitID string) *IntegrityError {
	return &IntegrityError{
		Code:     ErrCodeCycleDetected,
		Message:  "commit graph contains a cycle",
		CommitID: commitID,
	}
}

// NewDuplicateCommitError creates an IntegrityError for a repeated commit id.
func NewDuplicateCommitError(commitID string) *IntegrityError {
	return &IntegrityError{
		Code:     ErrCodeDuplicateCommit,
		Message:  "duplicate commit id",
		CommitID: commitID,
	}
}
