package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetHead returns the project's HEAD commit id, or "" when no HEAD has
// been set. Reads never block on writers (WAL) and may observe a HEAD
// that a concurrent swap is about to replace.
func (s *Store) GetHead(ctx context.Context, projectID string) (string, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT commit_id FROM heads WHERE project_id = ?
	`, projectID)

	var commitID string
	err := row.Scan(&commitID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get head: %w", err)
	}
	return commitID, nil
}

// SetHead atomically moves HEAD from expectedOld to newID and reports
// whether the swap applied.
//
// The move is a single conditional statement, never a clear-then-set
// pair: two concurrent callers against the same project race, but
// exactly one wins and no interleaving can leave the project with zero
// or two HEADs. expectedOld "" asserts that no HEAD exists yet.
func (s *Store) SetHead(ctx context.Context, projectID, expectedOld, newID string) (bool, error) {
	var res sql.Result
	var err error
	if expectedOld == "" {
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO heads (project_id, commit_id) VALUES (?, ?)
			ON CONFLICT(project_id) DO NOTHING
		`, projectID, newID)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE heads SET commit_id = ?
			WHERE project_id = ? AND commit_id = ?
		`, newID, projectID, expectedOld)
	}
	if err != nil {
		return false, fmt.Errorf("set head: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set head: rows affected: %w", err)
	}
	return affected == 1, nil
}
