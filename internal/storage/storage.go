// Package storage defines the persistence interface for the repository
// store. One relational store exists per repository; it is the only shared
// resource between pipeline stages.
package storage

import (
	"context"

	"github.com/curatord/curator/internal/types"
)

// Storage is the interface all backends implement
type Storage interface {
	// Scan sessions
	CreateSession(ctx context.Context, session *types.ScanSession) error
	GetSession(ctx context.Context, id string) (*types.ScanSession, error)
	ListSessions(ctx context.Context) ([]*types.ScanSession, error)
	FinishSession(ctx context.Context, id string, status types.SessionStatus, seen, failed int, bytes int64) error
	PurgeSession(ctx context.Context, id string) error

	// File records
	InsertFileBatch(ctx context.Context, records []*types.FileRecord) error
	GetFile(ctx context.Context, id string) (*types.FileRecord, error)
	GetFileByPath(ctx context.Context, sessionID, path string) (*types.FileRecord, error)
	ListFiles(ctx context.Context, sessionID string) ([]*types.FileRecord, error)
	SetFullHash(ctx context.Context, fileID, fullHash string) error

	// Duplicate groups. CreateDuplicateGroup writes the group, its member
	// rows, and the members' is_duplicate/duplicate_of flags in one
	// transaction.
	CreateDuplicateGroup(ctx context.Context, group *types.DuplicateGroup) error
	ListDuplicateGroups(ctx context.Context, sessionID string) ([]*types.DuplicateGroup, error)
	ClearDuplicateGroups(ctx context.Context, sessionID string) error

	// Migration plans. CreatePlan writes the plan and all its actions in
	// one transaction.
	CreatePlan(ctx context.Context, plan *types.MigrationPlan, actions []*types.MigrationAction) error
	GetPlan(ctx context.Context, id string) (*types.MigrationPlan, error)
	ListPlans(ctx context.Context, sessionID string) ([]*types.MigrationPlan, error)
	// UpdatePlanStatus performs a compare-and-set transition; it fails when
	// the stored status is not `from`.
	UpdatePlanStatus(ctx context.Context, id string, from, to types.PlanStatus) error
	ListActions(ctx context.Context, planID string) ([]*types.MigrationAction, error)
	GetAction(ctx context.Context, id string) (*types.MigrationAction, error)
	UpdateActionStatus(ctx context.Context, id string, status types.ActionStatus, failureReason string) error
	UpdateActionTarget(ctx context.Context, id, targetPath string) error
	SetActionReview(ctx context.Context, id string, requiresReview bool) error

	// Staging actions
	InsertStagingActions(ctx context.Context, actions []*types.StagingAction) error
	ListStagingActions(ctx context.Context, planID string) ([]*types.StagingAction, error)
	ClearStagingActions(ctx context.Context, planID string) error

	// Conflict resolutions
	SaveResolution(ctx context.Context, res *types.ConflictResolution) error
	ListResolutions(ctx context.Context, planID string) ([]*types.ConflictResolution, error)

	// Snapshots
	CreateSnapshot(ctx context.Context, snap *types.Snapshot) error
	GetSnapshot(ctx context.Context, id string) (*types.Snapshot, error)
	ListSnapshots(ctx context.Context) ([]*types.Snapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error

	// Rollback log. ApplyAction atomically appends the rollback entry,
	// marks the action committed, and updates the file row
	// (canonical_path, move_count) in one transaction.
	ApplyAction(ctx context.Context, entry *types.RollbackLogEntry, fileID, newPath string) error
	ListRollbackEntries(ctx context.Context, planID string) ([]*types.RollbackLogEntry, error)
	MarkRolledBack(ctx context.Context, entryID int64, fileID, restoredPath string) error

	// Config key/value
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error

	// Lifecycle
	Close() error
}

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path.
	// Special value ":memory:" creates an in-memory database (useful for tests)
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path: ".curator/curator.db",
	}
}
