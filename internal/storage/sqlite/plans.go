package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/curatord/curator/internal/types"
)

const actionColumns = `id, plan_id, file_id, source_path, target_path,
	action_type, status, confidence, requires_review, failure_reason`

// CreatePlan writes the plan and all its actions in one transaction
func (s *Store) CreatePlan(ctx context.Context, plan *types.MigrationPlan, actions []*types.MigrationAction) error {
	if !plan.Status.IsValid() {
		return fmt.Errorf("invalid plan status: %s", plan.Status)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO migration_plans (id, session_id, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			plan.ID, plan.SessionID, string(plan.Status), plan.CreatedAt, plan.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert plan: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO migration_actions (id, plan_id, file_id, source_path, target_path,
				action_type, status, confidence, requires_review, failure_reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare action insert: %w", err)
		}
		defer stmt.Close()

		for _, a := range actions {
			if err := a.Validate(); err != nil {
				return fmt.Errorf("invalid action for %s: %w", a.SourcePath, err)
			}
			_, err := stmt.ExecContext(ctx, a.ID, a.PlanID, a.FileID, a.SourcePath,
				a.TargetPath, string(a.Type), string(a.Status), a.Confidence,
				a.RequiresReview, a.FailureReason)
			if err != nil {
				return fmt.Errorf("failed to insert action for %s: %w", a.SourcePath, err)
			}
		}
		return nil
	})
}

// GetPlan returns a plan by ID, or nil when not found
func (s *Store) GetPlan(ctx context.Context, id string) (*types.MigrationPlan, error) {
	var plan types.MigrationPlan
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, status, created_at, updated_at
		FROM migration_plans WHERE id = ?`, id).
		Scan(&plan.ID, &plan.SessionID, &status, &plan.CreatedAt, &plan.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan %s: %w", id, err)
	}
	plan.Status = types.PlanStatus(status)
	return &plan, nil
}

// ListPlans returns plans for a session, newest first
func (s *Store) ListPlans(ctx context.Context, sessionID string) ([]*types.MigrationPlan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, status, created_at, updated_at
		FROM migration_plans WHERE session_id = ? ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*types.MigrationPlan
	for rows.Next() {
		var plan types.MigrationPlan
		var status string
		if err := rows.Scan(&plan.ID, &plan.SessionID, &status, &plan.CreatedAt, &plan.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan row: %w", err)
		}
		plan.Status = types.PlanStatus(status)
		plans = append(plans, &plan)
	}
	return plans, rows.Err()
}

// UpdatePlanStatus performs a compare-and-set status transition. The
// transition must be legal per the plan state machine and the stored
// status must still be `from`.
func (s *Store) UpdatePlanStatus(ctx context.Context, id string, from, to types.PlanStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("illegal plan transition %s -> %s", from, to)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE migration_plans SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(to), time.Now().UTC(), id, string(from))
	if err != nil {
		return fmt.Errorf("failed to update plan %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check plan update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("plan %s is not in status %s", id, from)
	}
	return nil
}

// ListActions returns a plan's actions ordered by ID. The executor relies
// on this ordering for deterministic commits.
func (s *Store) ListActions(ctx context.Context, planID string) ([]*types.MigrationAction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+actionColumns+" FROM migration_actions WHERE plan_id = ? ORDER BY id", planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer rows.Close()

	var actions []*types.MigrationAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action row: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// GetAction returns one action by ID, or nil when not found
func (s *Store) GetAction(ctx context.Context, id string) (*types.MigrationAction, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+actionColumns+" FROM migration_actions WHERE id = ?", id)
	a, err := scanAction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get action %s: %w", id, err)
	}
	return a, nil
}

// UpdateActionStatus sets an action's status and failure reason
func (s *Store) UpdateActionStatus(ctx context.Context, id string, status types.ActionStatus, failureReason string) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid action status: %s", status)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE migration_actions SET status = ?, failure_reason = ? WHERE id = ?",
		string(status), failureReason, id)
	if err != nil {
		return fmt.Errorf("failed to update action %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check action update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("action %s not found", id)
	}
	return nil
}

// UpdateActionTarget rewrites an action's target path (conflict resolution)
func (s *Store) UpdateActionTarget(ctx context.Context, id, targetPath string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE migration_actions SET target_path = ? WHERE id = ?", targetPath, id)
	if err != nil {
		return fmt.Errorf("failed to update action target %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check target update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("action %s not found", id)
	}
	return nil
}

// SetActionReview flags or clears the requires_review bit
func (s *Store) SetActionReview(ctx context.Context, id string, requiresReview bool) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE migration_actions SET requires_review = ? WHERE id = ?", requiresReview, id)
	if err != nil {
		return fmt.Errorf("failed to set review flag on %s: %w", id, err)
	}
	return nil
}

func scanAction(row rowScanner) (*types.MigrationAction, error) {
	var a types.MigrationAction
	var actionType, status string
	err := row.Scan(&a.ID, &a.PlanID, &a.FileID, &a.SourcePath, &a.TargetPath,
		&actionType, &status, &a.Confidence, &a.RequiresReview, &a.FailureReason)
	if err != nil {
		return nil, err
	}
	a.Type = types.ActionType(actionType)
	a.Status = types.ActionStatus(status)
	return &a, nil
}
