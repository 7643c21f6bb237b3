package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/musehq/muse/internal/score"
)

// WriteCommit inserts a commit and its phrases in a single transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - re-recording an
// existing commit (and its phrases) is silently ignored. Either the
// commit and all of its phrases persist, or none do.
func (s *Store) WriteCommit(ctx context.Context, commit *score.Commit, phrases []score.Phrase) error {
	if err := commit.Validate(); err != nil {
		return fmt.Errorf("write commit: %w", err)
	}
	for i := range phrases {
		if err := phrases[i].Validate(); err != nil {
			return fmt.Errorf("write commit %s: phrase[%d]: %w", commit.ID, i, err)
		}
	}

	trackIDs, err := marshalStringList(commit.AffectedTrackIDs)
	if err != nil {
		return fmt.Errorf("write commit: %w", err)
	}
	regionIDs, err := marshalStringList(commit.AffectedRegionIDs)
	if err != nil {
		return fmt.Errorf("write commit: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write commit: begin: %w", err)
	}
	defer tx.Rollback()

	status := commit.Status
	if status == "" {
		status = score.StatusActive
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO commits
		(id, project_id, intent, parent_id, parent2_id,
		 affected_track_ids, affected_region_ids, beat_start, beat_end, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		commit.ID,
		commit.ProjectID,
		commit.Intent,
		nullable(commit.ParentID),
		nullable(commit.Parent2ID),
		trackIDs,
		regionIDs,
		commit.BeatRange.Start,
		commit.BeatRange.End,
		string(status),
		commit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("write commit: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write commit: rows affected: %w", err)
	}
	if inserted == 0 {
		// Commit already recorded; its phrases are immutable, so there
		// is nothing left to do.
		return tx.Commit()
	}

	for i := range phrases {
		if err := writePhrase(ctx, tx, commit.ID, i, &phrases[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func writePhrase(ctx context.Context, tx *sql.Tx, commitID string, position int, p *score.Phrase) error {
	noteChanges, err := marshalNoteChanges(p.NoteChanges)
	if err != nil {
		return fmt.Errorf("write phrase: %w", err)
	}
	ccEvents, err := marshalControlChanges(p.CCEvents)
	if err != nil {
		return fmt.Errorf("write phrase: %w", err)
	}
	pitchBends, err := marshalControlChanges(p.PitchBends)
	if err != nil {
		return fmt.Errorf("write phrase: %w", err)
	}
	aftertouch, err := marshalControlChanges(p.Aftertouch)
	if err != nil {
		return fmt.Errorf("write phrase: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO phrases
		(commit_id, position, track_id, region_id, start_beat, end_beat,
		 note_changes, cc_events, pitch_bends, aftertouch)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		commitID,
		position,
		p.TrackID,
		p.RegionID,
		p.StartBeat,
		p.EndBeat,
		noteChanges,
		ccEvents,
		pitchBends,
		aftertouch,
	)
	if err != nil {
		return fmt.Errorf("write phrase: %w", err)
	}
	return nil
}

// nullable maps "" to NULL for the parent columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
