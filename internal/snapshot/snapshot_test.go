package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatord/curator/internal/config"
	"github.com/curatord/curator/internal/hashing"
	"github.com/curatord/curator/internal/storage"
	"github.com/curatord/curator/internal/storage/sqlite"
	"github.com/curatord/curator/internal/types"
)

type fixture struct {
	store   storage.Storage
	manager *Manager
	root    string
	dir     string
}

func newFixture(t *testing.T, retain int) *fixture {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	root := filepath.Join(t.TempDir(), "snapshots")
	cfg := config.SnapshotConfig{Root: root, Retain: retain}
	return &fixture{
		store:   store,
		manager: New(store, hashing.New(config.Default().Hash), cfg, zerolog.Nop()),
		root:    root,
		dir:     t.TempDir(),
	}
}

func (f *fixture) seedPlan(t *testing.T, planID string, actions []*types.MigrationAction) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.CreateSession(ctx, &types.ScanSession{
		ID: "s1", Roots: []string{f.dir}, Status: types.SessionComplete, StartedAt: time.Now().UTC(),
	}))
	now := time.Now().UTC()
	plan := &types.MigrationPlan{ID: planID, SessionID: "s1", Status: types.PlanValidated, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.store.CreatePlan(ctx, plan, actions))
}

func (f *fixture) writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func moveAction(id, planID, source, target string) *types.MigrationAction {
	return &types.MigrationAction{
		ID: id, PlanID: planID, SourcePath: source, TargetPath: target,
		Type: types.ActionMove, Status: types.ActionValidated, Confidence: 1,
	}
}

func TestCapturePlanDeduplicatesContent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)

	a := f.writeSource(t, "a.txt", "shared bytes")
	b := f.writeSource(t, "b.txt", "shared bytes")
	c := f.writeSource(t, "c.txt", "unique bytes")
	f.seedPlan(t, "p1", []*types.MigrationAction{
		moveAction("a1", "p1", a, filepath.Join(f.dir, "out/a.txt")),
		moveAction("a2", "p1", b, filepath.Join(f.dir, "out/b.txt")),
		moveAction("a3", "p1", c, filepath.Join(f.dir, "out/c.txt")),
		{ID: "a4", PlanID: "p1", SourcePath: c, TargetPath: c, Type: types.ActionSkip, Status: types.ActionValidated, Confidence: 1},
	})

	snap, err := f.manager.CapturePlan(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.FileCount, "skips are not captured")

	// Identical content is stored once
	dataDir := filepath.Join(snap.StoreRoot, "data")
	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	manifest, err := f.manager.LoadManifest(ctx, snap.ID)
	require.NoError(t, err)
	assert.Len(t, manifest.Entries, 3)
}

func TestRestoreReconcilesTree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)

	missing := f.writeSource(t, "missing.txt", "will vanish")
	drifted := f.writeSource(t, "drifted.txt", "original")
	intact := f.writeSource(t, "intact.txt", "unchanged")
	f.seedPlan(t, "p1", []*types.MigrationAction{
		moveAction("a1", "p1", missing, filepath.Join(f.dir, "out/m.txt")),
		moveAction("a2", "p1", drifted, filepath.Join(f.dir, "out/d.txt")),
		moveAction("a3", "p1", intact, filepath.Join(f.dir, "out/i.txt")),
	})

	snap, err := f.manager.CapturePlan(ctx, "p1")
	require.NoError(t, err)

	require.NoError(t, os.Remove(missing))
	require.NoError(t, os.WriteFile(drifted, []byte("mutated!"), 0644))

	result, err := f.manager.Restore(ctx, snap.ID, false)
	require.NoError(t, err)
	assert.Equal(t, []string{missing}, result.Recreated)
	assert.Equal(t, []string{drifted}, result.Overwrote)
	assert.Equal(t, []string{intact}, result.Unchanged)

	data, err := os.ReadFile(missing)
	require.NoError(t, err)
	assert.Equal(t, "will vanish", string(data))
	data, err = os.ReadFile(drifted)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	// Restoring again is a no-op
	again, err := f.manager.Restore(ctx, snap.ID, false)
	require.NoError(t, err)
	assert.Empty(t, again.Recreated)
	assert.Empty(t, again.Overwrote)
	assert.Len(t, again.Unchanged, 3)
}

func TestRestoreDryRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)

	src := f.writeSource(t, "a.txt", "original")
	f.seedPlan(t, "p1", []*types.MigrationAction{
		moveAction("a1", "p1", src, filepath.Join(f.dir, "out/a.txt")),
	})
	snap, err := f.manager.CapturePlan(ctx, "p1")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(src, []byte("mutated!"), 0644))

	result, err := f.manager.Restore(ctx, snap.ID, true)
	require.NoError(t, err)
	assert.Equal(t, []string{src}, result.Overwrote)

	data, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "mutated!", string(data), "dry run must not write")
}

func TestRetentionPrunesOldest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	src := f.writeSource(t, "a.txt", "content")
	f.seedPlan(t, "p1", []*types.MigrationAction{
		moveAction("a1", "p1", src, filepath.Join(f.dir, "out/a.txt")),
	})

	first, err := f.manager.CapturePlan(ctx, "p1")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond) // pruning order is by created_at
	second, err := f.manager.CapturePlan(ctx, "p1")
	require.NoError(t, err)

	snaps, err := f.store.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, second.ID, snaps[0].ID)

	// The pruned snapshot's data is gone from disk too
	_, err = os.Stat(first.StoreRoot)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(second.StoreRoot)
	assert.NoError(t, err)
}

func TestRestoreUnknownSnapshot(t *testing.T) {
	f := newFixture(t, 2)
	_, err := f.manager.Restore(context.Background(), "missing", false)
	assert.Error(t, err)
}
