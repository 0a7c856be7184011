package ledger

import (
	"context"
	"fmt"
	"strings"
)

// InsertSession records the start of a pipeline run. Called exactly once
// per run; the row is never updated afterwards.
func (l *Ledger) InsertSession(ctx context.Context, s Session) error {
	if !l.active {
		l.log.Debug("ledger inactive, session not recorded", "session_id", s.SessionID)
		return nil
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, time_unix, status)
		VALUES (?, ?, ?)
	`, s.SessionID, s.TimeUnix, s.Status)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// InsertBackup records an intended write before it is attempted. The entry
// is stored with post_successful=false regardless of what the caller set;
// success is only ever recorded through MarkPostSuccessful.
func (l *Ledger) InsertBackup(ctx context.Context, e Entry) error {
	if !validActions[e.Action] {
		return &ValidationError{
			Field:   "action",
			Value:   e.Action,
			Message: fmt.Sprintf("allowed actions: %s", strings.Join([]string{ActionInsert, ActionUpdate, ActionRemove}, ", ")),
		}
	}

	if !l.active {
		l.log.Debug("ledger inactive, backup not recorded",
			"backup_id", e.BackupID, "action", e.Action)
		return nil
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO backup (session_id, backup_id, action, old, new, post_successful)
		VALUES (?, ?, ?, ?, ?, 0)
	`, e.SessionID, e.BackupID, e.Action, e.Old, e.New)
	if err != nil {
		return fmt.Errorf("insert backup: %w", err)
	}
	return nil
}

// MarkPostSuccessful flips post_successful on the entry with the given
// backup id. Returns the number of rows changed: zero is not an error, but
// callers should log it since it means the confirmation has no matching
// record of intent.
func (l *Ledger) MarkPostSuccessful(ctx context.Context, backupID string) (int64, error) {
	if !l.active {
		l.log.Debug("ledger inactive, confirmation not recorded", "backup_id", backupID)
		return 1, nil
	}

	result, err := l.db.ExecContext(ctx, `
		UPDATE backup SET post_successful = 1 WHERE backup_id = ?
	`, backupID)
	if err != nil {
		return 0, fmt.Errorf("mark post successful: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark post successful: %w", err)
	}
	return rows, nil
}
