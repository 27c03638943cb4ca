package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/curatord/curator/internal/types"
)

// InsertStagingActions writes a batch of staging entries in one transaction
func (s *Store) InsertStagingActions(ctx context.Context, actions []*types.StagingAction) error {
	if len(actions) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO staging_actions (id, plan_id, action_id, staged_path, method, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare staging insert: %w", err)
		}
		defer stmt.Close()

		for _, sa := range actions {
			if !sa.Method.IsValid() {
				return fmt.Errorf("invalid stage method %q for action %s", sa.Method, sa.ActionID)
			}
			createdAt := sa.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now().UTC()
			}
			_, err := stmt.ExecContext(ctx, sa.ID, sa.PlanID, sa.ActionID,
				sa.StagedPath, string(sa.Method), createdAt)
			if err != nil {
				return fmt.Errorf("failed to insert staging action %s: %w", sa.ActionID, err)
			}
		}
		return nil
	})
}

// ListStagingActions returns staging entries for a plan
func (s *Store) ListStagingActions(ctx context.Context, planID string) ([]*types.StagingAction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plan_id, action_id, staged_path, method, created_at
		FROM staging_actions WHERE plan_id = ? ORDER BY id`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list staging actions: %w", err)
	}
	defer rows.Close()

	var actions []*types.StagingAction
	for rows.Next() {
		var sa types.StagingAction
		var method string
		if err := rows.Scan(&sa.ID, &sa.PlanID, &sa.ActionID, &sa.StagedPath, &method, &sa.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan staging row: %w", err)
		}
		sa.Method = types.StageMethod(method)
		actions = append(actions, &sa)
	}
	return actions, rows.Err()
}

// ClearStagingActions removes a plan's staging entries (re-staging)
func (s *Store) ClearStagingActions(ctx context.Context, planID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM staging_actions WHERE plan_id = ?", planID)
	if err != nil {
		return fmt.Errorf("failed to clear staging actions: %w", err)
	}
	return nil
}
