package conflict

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatord/curator/internal/storage"
	"github.com/curatord/curator/internal/storage/sqlite"
	"github.com/curatord/curator/internal/types"
)

func newTestStore(t *testing.T) storage.Storage {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedAction creates a plan with one MOVE action from source to target
func seedAction(t *testing.T, store storage.Storage, source, target string) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, &types.ScanSession{
		ID: "s1", Roots: []string{"/data"}, Status: types.SessionComplete, StartedAt: time.Now().UTC(),
	}))
	now := time.Now().UTC()
	plan := &types.MigrationPlan{ID: "p1", SessionID: "s1", Status: types.PlanStaged, CreatedAt: now, UpdatedAt: now}
	action := &types.MigrationAction{
		ID: "a1", PlanID: "p1", SourcePath: source, TargetPath: target,
		Type: types.ActionMove, Status: types.ActionStaged, Confidence: 0.9,
	}
	require.NoError(t, store.CreatePlan(ctx, plan, []*types.MigrationAction{action}))
	return action.ID
}

func TestResolveRename(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(target, []byte("existing"), 0644))
	actionID := seedAction(t, store, filepath.Join(dir, "src.pdf"), target)

	r := New(store)
	res, err := r.Resolve(ctx, Request{
		ActionID: actionID, ConflictType: types.ConflictTargetExists, Strategy: types.StrategyRename,
	})
	require.NoError(t, err)

	// The smallest free " (n)" suffix, deterministically
	want := filepath.Join(dir, "report (1).pdf")
	assert.Equal(t, want, res.ResolvedPath)

	action, err := store.GetAction(ctx, actionID)
	require.NoError(t, err)
	assert.Equal(t, want, action.TargetPath)
}

func TestResolveRenameSkipsTakenSuffixes(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(base, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report (1).pdf"), []byte("x"), 0644))

	got, err := UniquePath(base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report (2).pdf"), got)
}

func TestResolveReplaceRequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	dir := t.TempDir()
	actionID := seedAction(t, store, filepath.Join(dir, "src.pdf"), filepath.Join(dir, "dst.pdf"))

	r := New(store)
	_, err := r.Resolve(ctx, Request{
		ActionID: actionID, ConflictType: types.ConflictTargetExists, Strategy: types.StrategyReplace,
	})
	require.Error(t, err, "overwriting is never implicit")

	res, err := r.Resolve(ctx, Request{
		ActionID: actionID, ConflictType: types.ConflictTargetExists,
		Strategy: types.StrategyReplace, Confirmed: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Confirmed)
}

func TestResolveSkipRepointsTarget(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	dir := t.TempDir()
	source := filepath.Join(dir, "src.pdf")
	actionID := seedAction(t, store, source, filepath.Join(dir, "dst.pdf"))

	r := New(store)
	res, err := r.Resolve(ctx, Request{
		ActionID: actionID, ConflictType: types.ConflictTargetExists, Strategy: types.StrategySkip,
	})
	require.NoError(t, err)
	assert.Equal(t, source, res.ResolvedPath)

	// source == target turns the action into a commit-time no-op
	action, err := store.GetAction(ctx, actionID)
	require.NoError(t, err)
	assert.Equal(t, action.SourcePath, action.TargetPath)
}

func TestResolveKeepNewest(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	dir := t.TempDir()
	source := filepath.Join(dir, "src.pdf")
	target := filepath.Join(dir, "dst.pdf")
	require.NoError(t, os.WriteFile(source, []byte("newer"), 0644))
	require.NoError(t, os.WriteFile(target, []byte("older"), 0644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(target, old, old))

	actionID := seedAction(t, store, source, target)
	r := New(store)
	res, err := r.Resolve(ctx, Request{
		ActionID: actionID, ConflictType: types.ConflictTargetExists, Strategy: types.StrategyKeepNewest,
	})
	require.NoError(t, err)

	// Source wins: proceed as a confirmed replace
	assert.Equal(t, target, res.ResolvedPath)
	assert.True(t, res.Confirmed)
}

func TestResolveKeepLargestExistingWins(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	dir := t.TempDir()
	source := filepath.Join(dir, "src.pdf")
	target := filepath.Join(dir, "dst.pdf")
	require.NoError(t, os.WriteFile(source, []byte("tiny"), 0644))
	require.NoError(t, os.WriteFile(target, []byte("much larger content"), 0644))

	actionID := seedAction(t, store, source, target)
	r := New(store)
	res, err := r.Resolve(ctx, Request{
		ActionID: actionID, ConflictType: types.ConflictTargetExists, Strategy: types.StrategyKeepLargest,
	})
	require.NoError(t, err)

	// Existing target wins: the source is diverted to a unique name
	assert.Equal(t, filepath.Join(dir, "dst (1).pdf"), res.ResolvedPath)
	assert.False(t, res.Confirmed)

	action, err := store.GetAction(ctx, actionID)
	require.NoError(t, err)
	assert.Equal(t, res.ResolvedPath, action.TargetPath)
}

func TestResolveAskStaysUndecided(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	dir := t.TempDir()
	actionID := seedAction(t, store, filepath.Join(dir, "src.pdf"), filepath.Join(dir, "dst.pdf"))

	r := New(store)
	res, err := r.Resolve(ctx, Request{
		ActionID: actionID, ConflictType: types.ConflictTargetExists, Strategy: types.StrategyAsk,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StrategyAsk, res.Strategy)

	// A later decisive strategy replaces the recorded ASK
	_, err = r.Resolve(ctx, Request{
		ActionID: actionID, ConflictType: types.ConflictTargetExists, Strategy: types.StrategySkip,
	})
	require.NoError(t, err)

	resolutions, err := store.ListResolutions(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, resolutions, 1, "resolutions upsert per (action, conflict type)")
	assert.Equal(t, types.StrategySkip, resolutions[0].Strategy)
}

func TestResolveRejectsInvalidInput(t *testing.T) {
	store := newTestStore(t)
	r := New(store)

	_, err := r.Resolve(context.Background(), Request{
		ActionID: "a1", ConflictType: types.ConflictTargetExists, Strategy: "GUESS",
	})
	assert.Error(t, err)

	_, err = r.Resolve(context.Background(), Request{
		ActionID: "missing", ConflictType: types.ConflictTargetExists, Strategy: types.StrategySkip,
	})
	assert.Error(t, err)
}
