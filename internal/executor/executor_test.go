package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatord/curator/internal/config"
	"github.com/curatord/curator/internal/hashing"
	"github.com/curatord/curator/internal/snapshot"
	"github.com/curatord/curator/internal/storage"
	"github.com/curatord/curator/internal/storage/sqlite"
	"github.com/curatord/curator/internal/types"
)

type fixture struct {
	store        storage.Storage
	exec         *Executor
	hasher       *hashing.Service
	srcDir       string
	dstDir       string
	pendingFiles []*types.FileRecord
}

// flushFiles inserts the file rows accumulated by newAction. Call after
// seedPlan so the session exists.
func (f *fixture) flushFiles(t *testing.T) {
	t.Helper()
	require.NoError(t, f.store.InsertFileBatch(context.Background(), f.pendingFiles))
	f.pendingFiles = nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	hasher := hashing.New(config.Default().Hash)
	snapCfg := config.SnapshotConfig{Root: filepath.Join(t.TempDir(), "snapshots"), Retain: 2}
	snaps := snapshot.New(store, hasher, snapCfg, zerolog.Nop())
	dbPath := filepath.Join(t.TempDir(), "curator.db")

	return &fixture{
		store:  store,
		exec:   New(store, snaps, hasher, dbPath, zerolog.Nop()),
		hasher: hasher,
		srcDir: t.TempDir(),
		dstDir: t.TempDir(),
	}
}

// seedPlan creates a validated plan. Each entry maps an action ID prefix
// to file content; actions move srcDir/<id>.txt to dstDir/<id>.txt and
// commit in ID order.
func (f *fixture) seedPlan(t *testing.T, status types.PlanStatus, specs []*types.MigrationAction) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.CreateSession(ctx, &types.ScanSession{
		ID: "s1", Roots: []string{f.srcDir}, Status: types.SessionComplete, StartedAt: time.Now().UTC(),
	}))
	now := time.Now().UTC()
	plan := &types.MigrationPlan{ID: "p1", SessionID: "s1", Status: status, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.store.CreatePlan(ctx, plan, specs))
}

func (f *fixture) newAction(t *testing.T, id, content string) *types.MigrationAction {
	t.Helper()
	src := filepath.Join(f.srcDir, id+".txt")
	require.NoError(t, os.WriteFile(src, []byte(content), 0644))

	rec := &types.FileRecord{
		ID: "file-" + id, SessionID: "s1", Path: src,
		Size: int64(len(content)), ModTime: time.Now().UTC(), QuickHash: "q",
	}
	f.pendingFiles = append(f.pendingFiles, rec)

	return &types.MigrationAction{
		ID: id, PlanID: "p1", FileID: rec.ID,
		SourcePath: src, TargetPath: filepath.Join(f.dstDir, id+".txt"),
		Type: types.ActionMove, Status: types.ActionValidated, Confidence: 0.9,
	}
}

func TestCommitAppliesPlan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a1 := f.newAction(t, "a1", "first")
	a2 := f.newAction(t, "a2", "second")
	f.seedPlan(t, types.PlanValidated, []*types.MigrationAction{a1, a2})
	f.flushFiles(t)

	result, err := f.exec.Commit(ctx, "p1", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, result.Applied)
	assert.Empty(t, result.Unapplied)

	// Files moved
	for _, a := range []*types.MigrationAction{a1, a2} {
		_, err := os.Stat(a.TargetPath)
		assert.NoError(t, err)
		_, err = os.Stat(a.SourcePath)
		assert.True(t, os.IsNotExist(err), "source must be gone after a move")
	}

	// Rollback log written in application order
	entries, err := f.store.ListRollbackEntries(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, a1.SourcePath, entries[0].BeforePath)
	assert.Equal(t, a1.TargetPath, entries[0].AfterPath)
	assert.NotEmpty(t, entries[0].Hash)

	// Plan and file rows advanced
	plan, err := f.store.GetPlan(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, types.PlanCommitted, plan.Status)

	rec, err := f.store.GetFile(ctx, "file-a1")
	require.NoError(t, err)
	assert.Equal(t, a1.TargetPath, rec.CanonicalPath)
	assert.Equal(t, 1, rec.MoveCount)
}

func TestCommitRequiresValidatedPlan(t *testing.T) {
	f := newFixture(t)
	a1 := f.newAction(t, "a1", "data")
	f.seedPlan(t, types.PlanDraft, []*types.MigrationAction{a1})
	f.flushFiles(t)

	_, err := f.exec.Commit(context.Background(), "p1", Options{})
	assert.Error(t, err)
}

func TestCommitBlockedByUnresolvedConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a1 := f.newAction(t, "a1", "data")
	f.seedPlan(t, types.PlanValidated, []*types.MigrationAction{a1})
	f.flushFiles(t)

	require.NoError(t, f.store.SaveResolution(ctx, &types.ConflictResolution{
		ID: uuid.NewString(), ActionID: "a1",
		ConflictType: types.ConflictTargetExists, Strategy: types.StrategyAsk,
	}))

	_, err := f.exec.Commit(ctx, "p1", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConflictUnresolved))

	// Nothing moved
	_, statErr := os.Stat(a1.SourcePath)
	assert.NoError(t, statErr)
}

func TestCommitBlockedByUnconfirmedReplace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a1 := f.newAction(t, "a1", "data")
	f.seedPlan(t, types.PlanValidated, []*types.MigrationAction{a1})
	f.flushFiles(t)

	require.NoError(t, f.store.SaveResolution(ctx, &types.ConflictResolution{
		ID: uuid.NewString(), ActionID: "a1",
		ConflictType: types.ConflictTargetExists, Strategy: types.StrategyReplace, Confirmed: false,
	}))

	_, err := f.exec.Commit(ctx, "p1", Options{})
	assert.True(t, errors.Is(err, types.ErrConflictUnresolved))
}

func TestCommitHaltsOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a1 := f.newAction(t, "a1", "fine")
	a2 := f.newAction(t, "a2", "doomed")
	a3 := f.newAction(t, "a3", "never reached")
	f.seedPlan(t, types.PlanValidated, []*types.MigrationAction{a1, a2, a3})
	f.flushFiles(t)

	// Sabotage the second action's source after planning
	require.NoError(t, os.Remove(a2.SourcePath))

	result, err := f.exec.Commit(ctx, "p1", Options{})
	require.Error(t, err)
	assert.Equal(t, "a2", result.FailedID)
	assert.Equal(t, []string{"a1"}, result.Applied)
	assert.Equal(t, []string{"a3"}, result.Unapplied)

	// Applied actions stay applied: no implicit rollback
	_, statErr := os.Stat(a1.TargetPath)
	assert.NoError(t, statErr)
	_, statErr = os.Stat(a3.SourcePath)
	assert.NoError(t, statErr, "actions after the halt must be untouched")

	// The failure is recorded on the action
	failed, err := f.store.GetAction(ctx, "a2")
	require.NoError(t, err)
	assert.Equal(t, types.ActionFailed, failed.Status)
	assert.NotEmpty(t, failed.FailureReason)

	// Plan stays validated for a resumed commit
	plan, err := f.store.GetPlan(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, types.PlanValidated, plan.Status)
}

func TestCommitResumesAfterHalt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a1 := f.newAction(t, "a1", "fine")
	a2 := f.newAction(t, "a2", "doomed")
	f.seedPlan(t, types.PlanValidated, []*types.MigrationAction{a1, a2})
	f.flushFiles(t)

	require.NoError(t, os.Remove(a2.SourcePath))
	_, err := f.exec.Commit(ctx, "p1", Options{})
	require.Error(t, err)

	// Repair and retry: the committed action is skipped, not re-applied
	require.NoError(t, os.WriteFile(a2.SourcePath, []byte("doomed"), 0644))
	require.NoError(t, f.store.UpdateActionStatus(ctx, "a2", types.ActionValidated, ""))

	result, err := f.exec.Commit(ctx, "p1", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, result.Applied)
	assert.Contains(t, result.Skipped, "a1")

	entries, err := f.store.ListRollbackEntries(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no duplicate rollback entries on resume")
}

func TestCommitDryRunTouchesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a1 := f.newAction(t, "a1", "data")
	f.seedPlan(t, types.PlanValidated, []*types.MigrationAction{a1})
	f.flushFiles(t)

	result, err := f.exec.Commit(ctx, "p1", Options{DryRun: true})
	require.NoError(t, err)
	assert.True(t, result.DryRun)

	_, statErr := os.Stat(a1.SourcePath)
	assert.NoError(t, statErr)
	plan, err := f.store.GetPlan(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, types.PlanValidated, plan.Status)
}

func TestCommitExcludesReviewActionsByDefault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a1 := f.newAction(t, "a1", "reviewed")
	a1.RequiresReview = true
	f.seedPlan(t, types.PlanValidated, []*types.MigrationAction{a1})
	f.flushFiles(t)

	result, err := f.exec.Commit(ctx, "p1", Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Applied)
	assert.Equal(t, []string{"a1"}, result.Skipped)
	_, statErr := os.Stat(a1.SourcePath)
	assert.NoError(t, statErr)

	// The plan still completes; excluded actions are simply not applied
	plan, err := f.store.GetPlan(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, types.PlanCommitted, plan.Status)
}

func TestCommitIncludeReview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a1 := f.newAction(t, "a1", "reviewed")
	a1.RequiresReview = true
	f.seedPlan(t, types.PlanValidated, []*types.MigrationAction{a1})
	f.flushFiles(t)

	result, err := f.exec.Commit(ctx, "p1", Options{IncludeReview: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, result.Applied)
}

func TestCommitWithSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a1 := f.newAction(t, "a1", "snapshot me")
	f.seedPlan(t, types.PlanValidated, []*types.MigrationAction{a1})
	f.flushFiles(t)

	result, err := f.exec.Commit(ctx, "p1", Options{Snapshot: true})
	require.NoError(t, err)
	require.NotEmpty(t, result.SnapshotID)

	snap, err := f.store.GetSnapshot(ctx, result.SnapshotID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 1, snap.FileCount)
}
