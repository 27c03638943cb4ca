package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/curatord/curator/internal/types"
)

// SaveResolution upserts a conflict resolution. One resolution exists per
// (action, conflict type) so re-validation re-applies it deterministically.
func (s *Store) SaveResolution(ctx context.Context, res *types.ConflictResolution) error {
	if !res.ConflictType.IsValid() {
		return fmt.Errorf("invalid conflict type: %s", res.ConflictType)
	}
	if !res.Strategy.IsValid() {
		return fmt.Errorf("invalid conflict strategy: %s", res.Strategy)
	}
	createdAt := res.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conflict_resolutions (id, action_id, conflict_type, strategy, resolved_path, confirmed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(action_id, conflict_type) DO UPDATE SET
			strategy = excluded.strategy,
			resolved_path = excluded.resolved_path,
			confirmed = excluded.confirmed`,
		res.ID, res.ActionID, string(res.ConflictType), string(res.Strategy),
		res.ResolvedPath, res.Confirmed, createdAt)
	if err != nil {
		return fmt.Errorf("failed to save resolution for action %s: %w", res.ActionID, err)
	}
	return nil
}

// ListResolutions returns all resolutions recorded for a plan's actions
func (s *Store) ListResolutions(ctx context.Context, planID string) ([]*types.ConflictResolution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.action_id, r.conflict_type, r.strategy, r.resolved_path, r.confirmed, r.created_at
		FROM conflict_resolutions r
		JOIN migration_actions a ON a.id = r.action_id
		WHERE a.plan_id = ?
		ORDER BY r.action_id`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolutions: %w", err)
	}
	defer rows.Close()

	var resolutions []*types.ConflictResolution
	for rows.Next() {
		var r types.ConflictResolution
		var conflictType, strategy string
		if err := rows.Scan(&r.ID, &r.ActionID, &conflictType, &strategy,
			&r.ResolvedPath, &r.Confirmed, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resolution row: %w", err)
		}
		r.ConflictType = types.ConflictType(conflictType)
		r.Strategy = types.ConflictStrategy(strategy)
		resolutions = append(resolutions, &r)
	}
	return resolutions, rows.Err()
}
