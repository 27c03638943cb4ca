package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/curatord/curator/internal/types"
)

// CreateSnapshot records a snapshot row. The manifest and data live on
// disk under the snapshot's store root; the row is the index entry.
func (s *Store) CreateSnapshot(ctx context.Context, snap *types.Snapshot) error {
	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, plan_id, store_root, file_count, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.PlanID, snap.StoreRoot, snap.FileCount, createdAt)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns a snapshot by ID, or nil when not found
func (s *Store) GetSnapshot(ctx context.Context, id string) (*types.Snapshot, error) {
	var snap types.Snapshot
	err := s.db.QueryRowContext(ctx, `
		SELECT id, plan_id, store_root, file_count, created_at
		FROM snapshots WHERE id = ?`, id).
		Scan(&snap.ID, &snap.PlanID, &snap.StoreRoot, &snap.FileCount, &snap.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// ListSnapshots returns all snapshots, oldest first (pruning order)
func (s *Store) ListSnapshots(ctx context.Context) ([]*types.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plan_id, store_root, file_count, created_at
		FROM snapshots ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*types.Snapshot
	for rows.Next() {
		var snap types.Snapshot
		if err := rows.Scan(&snap.ID, &snap.PlanID, &snap.StoreRoot,
			&snap.FileCount, &snap.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		snaps = append(snaps, &snap)
	}
	return snaps, rows.Err()
}

// DeleteSnapshot removes a snapshot row (retention pruning)
func (s *Store) DeleteSnapshot(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", id, err)
	}
	return nil
}
