package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/curatord/curator/internal/types"
)

// CreateSession inserts a new scan session
func (s *Store) CreateSession(ctx context.Context, session *types.ScanSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, roots, status, files_seen, files_failed, bytes_seen, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID, strings.Join(session.Roots, "\x00"), string(session.Status),
		session.FilesSeen, session.FilesFailed, session.BytesSeen, session.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession returns a session by ID, or nil when not found
func (s *Store) GetSession(ctx context.Context, id string) (*types.ScanSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, roots, status, files_seen, files_failed, bytes_seen, started_at, completed_at
		FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return session, nil
}

// ListSessions returns all sessions, newest first
func (s *Store) ListSessions(ctx context.Context) ([]*types.ScanSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, roots, status, files_seen, files_failed, bytes_seen, started_at, completed_at
		FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*types.ScanSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// FinishSession records the terminal status and final counters
func (s *Store) FinishSession(ctx context.Context, id string, status types.SessionStatus, seen, failed int, bytes int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = ?, files_seen = ?, files_failed = ?, bytes_seen = ?, completed_at = ?
		WHERE id = ?`,
		string(status), seen, failed, bytes, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to finish session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check session update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// PurgeSession removes a session and all dependent rows. This is the only
// way file records are ever deleted.
func (s *Store) PurgeSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to purge session %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*types.ScanSession, error) {
	var session types.ScanSession
	var roots, status string
	var completedAt sql.NullTime
	err := row.Scan(&session.ID, &roots, &status, &session.FilesSeen,
		&session.FilesFailed, &session.BytesSeen, &session.StartedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if roots != "" {
		session.Roots = strings.Split(roots, "\x00")
	}
	session.Status = types.SessionStatus(status)
	if completedAt.Valid {
		session.CompletedAt = &completedAt.Time
	}
	return &session, nil
}
