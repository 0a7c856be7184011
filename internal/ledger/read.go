package ledger

import (
	"context"
	"fmt"
)

// Info summarizes the ledger contents for the CLI.
type Info struct {
	Active   bool
	Sessions int64
	Backups  int64
}

// Info returns row counts for both tables. An inactive ledger reports
// Active=false with zero counts.
func (l *Ledger) Info(ctx context.Context) (Info, error) {
	if !l.active {
		return Info{}, nil
	}

	info := Info{Active: true}
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&info.Sessions); err != nil {
		return Info{}, fmt.Errorf("count sessions: %w", err)
	}
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM backup`).Scan(&info.Backups); err != nil {
		return Info{}, fmt.Errorf("count backups: %w", err)
	}
	return info, nil
}

// RecentSessions returns the latest sessions, newest first.
func (l *Ledger) RecentSessions(ctx context.Context, limit int) ([]Session, error) {
	if !l.active {
		return nil, nil
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT session_id, time_unix, status,
		       COALESCE(clients_synced, 0), COALESCE(sites_synced, 0), COALESCE(assets_synced, 0)
		FROM sessions
		ORDER BY time_unix DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.SessionID, &s.TimeUnix, &s.Status,
			&s.ClientsSynced, &s.SitesSynced, &s.AssetsSynced); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ListBackups returns every backup entry of a session in insertion order.
func (l *Ledger) ListBackups(ctx context.Context, sessionID string) ([]Entry, error) {
	if !l.active {
		return nil, nil
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT session_id, backup_id, action, old, new, post_successful
		FROM backup
		WHERE session_id = ?
		ORDER BY rowid ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query backups: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.SessionID, &e.BackupID, &e.Action, &e.Old, &e.New, &e.PostSuccessful); err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backups: %w", err)
	}
	return entries, nil
}
