package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/curatord/curator/internal/types"
)

// ApplyAction atomically records a committed action: the rollback log
// entry, the action's committed status, and the file row update
// (canonical_path, move_count) all land in one transaction so a crash can
// never leave a moved file without its rollback entry.
func (s *Store) ApplyAction(ctx context.Context, entry *types.RollbackLogEntry, fileID, newPath string) error {
	appliedAt := entry.AppliedAt
	if appliedAt.IsZero() {
		appliedAt = time.Now().UTC()
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO rollback_log (plan_id, action_id, before_path, after_path, hash, applied_at, rolled_back)
			VALUES (?, ?, ?, ?, ?, ?, 0)`,
			entry.PlanID, entry.ActionID, entry.BeforePath, entry.AfterPath,
			entry.Hash, appliedAt)
		if err != nil {
			return fmt.Errorf("failed to append rollback entry: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read rollback entry id: %w", err)
		}
		entry.ID = id
		entry.AppliedAt = appliedAt

		_, err = tx.ExecContext(ctx,
			"UPDATE migration_actions SET status = 'committed' WHERE id = ?", entry.ActionID)
		if err != nil {
			return fmt.Errorf("failed to mark action committed: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE files SET canonical_path = ?, move_count = move_count + 1
			WHERE id = ?`, newPath, fileID)
		if err != nil {
			return fmt.Errorf("failed to update file %s: %w", fileID, err)
		}
		return nil
	})
}

// ListRollbackEntries returns a plan's rollback log in application order
func (s *Store) ListRollbackEntries(ctx context.Context, planID string) ([]*types.RollbackLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plan_id, action_id, before_path, after_path, hash, applied_at, rolled_back
		FROM rollback_log WHERE plan_id = ? ORDER BY id ASC`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rollback entries: %w", err)
	}
	defer rows.Close()

	var entries []*types.RollbackLogEntry
	for rows.Next() {
		var e types.RollbackLogEntry
		if err := rows.Scan(&e.ID, &e.PlanID, &e.ActionID, &e.BeforePath,
			&e.AfterPath, &e.Hash, &e.AppliedAt, &e.RolledBack); err != nil {
			return nil, fmt.Errorf("failed to scan rollback row: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// MarkRolledBack flips the rolled_back flag and restores the file row in
// one transaction. The flag is the only mutable part of the log.
func (s *Store) MarkRolledBack(ctx context.Context, entryID int64, fileID, restoredPath string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE rollback_log SET rolled_back = 1 WHERE id = ? AND rolled_back = 0", entryID)
		if err != nil {
			return fmt.Errorf("failed to mark entry %d rolled back: %w", entryID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rollback flag update: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("rollback entry %d not found or already rolled back", entryID)
		}
		if fileID != "" {
			_, err = tx.ExecContext(ctx, `
				UPDATE files SET canonical_path = ?, move_count = move_count + 1
				WHERE id = ?`, restoredPath, fileID)
			if err != nil {
				return fmt.Errorf("failed to restore file row %s: %w", fileID, err)
			}
		}
		return nil
	})
}
