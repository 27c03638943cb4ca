// Package rollback reverses committed migration actions at single-action
// or whole-plan granularity by replaying the rollback log in reverse. A
// restore target occupied by an unrelated file aborts that entry loudly
// and the rest continue; nothing is ever silently overwritten.
package rollback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/curatord/curator/internal/hashing"
	"github.com/curatord/curator/internal/storage"
	"github.com/curatord/curator/internal/types"
)

// Manager reverses committed plans
type Manager struct {
	store  storage.Storage
	hasher *hashing.Service
	log    zerolog.Logger
}

// New creates a rollback manager
func New(store storage.Storage, hasher *hashing.Service, log zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		hasher: hasher,
		log:    log.With().Str("component", "rollback").Logger(),
	}
}

// Result reports a (possibly partial) rollback
type Result struct {
	PlanID   string
	Restored []int64 // entry IDs successfully rolled back
	Skipped  []int64 // entries already rolled back
	Failed   []*types.RollbackIntegrityError
	DryRun   bool
}

// RollbackPlan replays a plan's rollback log in reverse, moving every
// file back to its before_state path. Integrity failures abort their
// entry and are reported; the remaining entries still run.
func (m *Manager) RollbackPlan(ctx context.Context, planID string, dryRun bool) (*Result, error) {
	entries, err := m.store.ListRollbackEntries(ctx, planID)
	if err != nil {
		return nil, types.PersistenceErr("list rollback entries", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("plan %s has no rollback log", planID)
	}

	result := &Result{PlanID: planID, DryRun: dryRun}
	// Reverse order: the last applied action is the first undone
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if entry.RolledBack {
			result.Skipped = append(result.Skipped, entry.ID)
			continue
		}
		if err := m.rollbackEntry(ctx, entry, dryRun); err != nil {
			var integrity *types.RollbackIntegrityError
			if errors.As(err, &integrity) {
				m.log.Error().
					Int64("entry", entry.ID).
					Str("path", integrity.Path).
					Str("reason", integrity.Reason).
					Msg("rollback entry aborted")
				result.Failed = append(result.Failed, integrity)
				continue
			}
			return result, err
		}
		result.Restored = append(result.Restored, entry.ID)
	}

	m.log.Info().
		Str("plan", planID).
		Int("restored", len(result.Restored)).
		Int("failed", len(result.Failed)).
		Bool("dry_run", dryRun).
		Msg("rollback complete")
	return result, nil
}

// RollbackAction reverses one rollback log entry
func (m *Manager) RollbackAction(ctx context.Context, planID string, entryID int64, dryRun bool) error {
	entries, err := m.store.ListRollbackEntries(ctx, planID)
	if err != nil {
		return types.PersistenceErr("list rollback entries", err)
	}
	for _, entry := range entries {
		if entry.ID != entryID {
			continue
		}
		if entry.RolledBack {
			return fmt.Errorf("entry %d is already rolled back", entryID)
		}
		return m.rollbackEntry(ctx, entry, dryRun)
	}
	return fmt.Errorf("rollback entry %d not found in plan %s", entryID, planID)
}

// rollbackEntry moves after_path back to before_path after checking that
// neither endpoint has been disturbed since the commit
func (m *Manager) rollbackEntry(ctx context.Context, entry *types.RollbackLogEntry, dryRun bool) error {
	// The moved file must still be where the commit put it, with the
	// content the commit verified
	currentHash, err := m.hasher.FullHashPath(entry.AfterPath)
	if err != nil {
		return &types.RollbackIntegrityError{
			EntryID: entry.ID,
			Path:    entry.AfterPath,
			Reason:  fmt.Sprintf("moved file unreadable: %v", err),
		}
	}
	if entry.Hash != "" && currentHash != entry.Hash {
		return &types.RollbackIntegrityError{
			EntryID: entry.ID,
			Path:    entry.AfterPath,
			Reason:  "moved file content changed since commit",
		}
	}

	// The restore target must be free: an unrelated occupant is never
	// overwritten
	if _, err := os.Lstat(entry.BeforePath); err == nil {
		occupantHash, hashErr := m.hasher.FullHashPath(entry.BeforePath)
		if hashErr != nil || occupantHash != entry.Hash {
			return &types.RollbackIntegrityError{
				EntryID: entry.ID,
				Path:    entry.BeforePath,
				Reason:  "target occupied by an unrelated file",
			}
		}
		// Identical content already in place: treat as converged
	}

	if dryRun {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(entry.BeforePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", entry.BeforePath, err)
	}
	if err := os.Rename(entry.AfterPath, entry.BeforePath); err != nil {
		return fmt.Errorf("failed to move %s back to %s: %w", entry.AfterPath, entry.BeforePath, err)
	}

	action, err := m.store.GetAction(ctx, entry.ActionID)
	if err != nil {
		return types.PersistenceErr("get action", err)
	}
	fileID := ""
	if action != nil {
		fileID = action.FileID
	}
	if err := m.store.MarkRolledBack(ctx, entry.ID, fileID, entry.BeforePath); err != nil {
		return types.PersistenceErr("mark rolled back", err)
	}
	return nil
}
