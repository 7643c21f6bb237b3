package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/musehq/muse/internal/score"
)

const commitColumns = `id, project_id, intent, parent_id, parent2_id,
	affected_track_ids, affected_region_ids, beat_start, beat_end, status, created_at`

// GetCommit retrieves a single commit by id.
// Returns (nil, nil) when the id is unknown.
func (s *Store) GetCommit(ctx context.Context, id string) (*score.Commit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+commitColumns+`
		FROM commits
		WHERE id = ?
	`, id)

	commit, err := scanCommit(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get commit: %w", err)
	}
	return commit, nil
}

// GetChildren returns every commit whose parent or parent2 is id, with
// deterministic ordering: created_at ASC, id COLLATE BINARY ASC.
func (s *Store) GetChildren(ctx context.Context, id string) ([]score.Commit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commitColumns+`
		FROM commits
		WHERE parent_id = ? OR parent2_id = ?
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, id, id)
	if err != nil {
		return nil, fmt.Errorf("query children: %w", err)
	}
	defer rows.Close()

	return collectCommits(rows)
}

// GetAllCommits returns every commit of a project with deterministic
// ordering. Bulk read for the graph builder.
func (s *Store) GetAllCommits(ctx context.Context, projectID string) ([]score.Commit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commitColumns+`
		FROM commits
		WHERE project_id = ?
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	defer rows.Close()

	return collectCommits(rows)
}

// GetPhrases returns a commit's phrases in persisted order.
// Returns an empty slice (not nil) when the commit has no phrases.
func (s *Store) GetPhrases(ctx context.Context, commitID string) ([]score.Phrase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT commit_id, track_id, region_id, start_beat, end_beat,
		       note_changes, cc_events, pitch_bends, aftertouch
		FROM phrases
		WHERE commit_id = ?
		ORDER BY position ASC
	`, commitID)
	if err != nil {
		return nil, fmt.Errorf("query phrases: %w", err)
	}
	defer rows.Close()

	phrases := []score.Phrase{}
	for rows.Next() {
		var p score.Phrase
		var noteChanges, ccEvents, pitchBends, aftertouch string
		err := rows.Scan(&p.CommitID, &p.TrackID, &p.RegionID, &p.StartBeat, &p.EndBeat,
			&noteChanges, &ccEvents, &pitchBends, &aftertouch)
		if err != nil {
			return nil, fmt.Errorf("scan phrase: %w", err)
		}
		if p.NoteChanges, err = unmarshalNoteChanges(noteChanges); err != nil {
			return nil, err
		}
		if p.CCEvents, err = unmarshalControlChanges(ccEvents); err != nil {
			return nil, err
		}
		if p.PitchBends, err = unmarshalControlChanges(pitchBends); err != nil {
			return nil, err
		}
		if p.Aftertouch, err = unmarshalControlChanges(aftertouch); err != nil {
			return nil, err
		}
		phrases = append(phrases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate phrases: %w", err)
	}

	return phrases, nil
}

func collectCommits(rows *sql.Rows) ([]score.Commit, error) {
	commits := []score.Commit{}
	for rows.Next() {
		commit, err := scanCommit(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		commits = append(commits, *commit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}
	return commits, nil
}

func scanCommit(scan func(...any) error) (*score.Commit, error) {
	var c score.Commit
	var parentID, parent2ID sql.NullString
	var trackIDs, regionIDs, status string
	err := scan(&c.ID, &c.ProjectID, &c.Intent, &parentID, &parent2ID,
		&trackIDs, &regionIDs, &c.BeatRange.Start, &c.BeatRange.End, &status, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.ParentID = parentID.String
	c.Parent2ID = parent2ID.String
	c.Status = score.CommitStatus(status)
	if c.AffectedTrackIDs, err = unmarshalStringList(trackIDs); err != nil {
		return nil, err
	}
	if c.AffectedRegionIDs, err = unmarshalStringList(regionIDs); err != nil {
		return nil, err
	}
	return &c, nil
}
