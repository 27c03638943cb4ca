package planner

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatord/curator/internal/classify"
	"github.com/curatord/curator/internal/config"
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

func seedSession(t *testing.T, store storage.Storage, id string, files []*types.FileRecord) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, &types.ScanSession{
		ID:        id,
		Roots:     []string{"/data"},
		Status:    types.SessionComplete,
		StartedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.InsertFileBatch(ctx, files))
}

func testPlanConfig(dest string) config.PlanConfig {
	return config.PlanConfig{
		DestinationRoot: dest,
		QuarantineRoot:  filepath.Join(dest, "quarantine"),
		Templates: map[string]string{
			"default": "{domain}/{doc_type}/{YYYY}/{MM}/{filename}",
		},
		Domain: "general",
	}
}

func actionByFile(t *testing.T, actions []*types.MigrationAction, fileID string) *types.MigrationAction {
	t.Helper()
	for _, a := range actions {
		if a.FileID == fileID {
			return a
		}
	}
	t.Fatalf("no action for file %s", fileID)
	return nil
}

func TestBuildPlanActionTypes(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	dest := t.TempDir()
	mtime := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	inPlace := filepath.Join(dest, "general", "document", "2024", "03", "done.txt")
	files := []*types.FileRecord{
		{ID: "f-move", SessionID: "s1", Path: "/data/report.pdf", Size: 10, ModTime: mtime},
		{ID: "f-dup", SessionID: "s1", Path: "/data/report copy.pdf", Size: 10, ModTime: mtime,
			IsDuplicate: true, DuplicateOf: "f-move"},
		{ID: "f-skip", SessionID: "s1", Path: inPlace, Size: 5, ModTime: mtime},
		{ID: "f-err", SessionID: "s1", Path: "/data/broken.bin", Size: 1, ModTime: mtime, ErrorFlag: true},
	}
	seedSession(t, store, "s1", files)

	p := New(store, classify.NewStatic("general"), testPlanConfig(dest), 0.7, zerolog.Nop())
	plan, err := p.BuildPlan(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, types.PlanDraft, plan.Status)

	actions, err := store.ListActions(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, actions, 3, "error-flagged files get no action")

	move := actionByFile(t, actions, "f-move")
	assert.Equal(t, types.ActionMove, move.Type)
	assert.Equal(t, filepath.Join(dest, "general", "document", "2024", "03", "report.pdf"), move.TargetPath)
	assert.False(t, move.RequiresReview)

	// Duplicates are quarantined under a dated directory, never deleted
	dup := actionByFile(t, actions, "f-dup")
	assert.Equal(t, types.ActionQuarantine, dup.Type)
	assert.Equal(t, filepath.Join(dest, "quarantine"), filepath.Dir(filepath.Dir(dup.TargetPath)))
	assert.Equal(t, "report copy.pdf", filepath.Base(dup.TargetPath))

	// Already in place: SKIP keeps re-planning idempotent
	skip := actionByFile(t, actions, "f-skip")
	assert.Equal(t, types.ActionSkip, skip.Type)
	assert.Equal(t, skip.SourcePath, skip.TargetPath)
}

func TestBuildPlanLowConfidenceRequiresReview(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	mtime := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	seedSession(t, store, "s1", []*types.FileRecord{
		{ID: "f-odd", SessionID: "s1", Path: "/data/mystery.xyz", Size: 3, ModTime: mtime},
	})

	p := New(store, classify.NewStatic("general"), testPlanConfig(t.TempDir()), 0.7, zerolog.Nop())
	plan, err := p.BuildPlan(ctx, "s1")
	require.NoError(t, err)

	actions, err := store.ListActions(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.True(t, actions[0].RequiresReview)
	assert.InDelta(t, 0.3, actions[0].Confidence, 0.001)
	assert.Contains(t, actions[0].TargetPath, filepath.Join("general", "other"))
}

func TestBuildPlanArchivesOldFiles(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	dest := t.TempDir()
	old := time.Now().Add(-3 * 365 * 24 * time.Hour).UTC()
	seedSession(t, store, "s1", []*types.FileRecord{
		{ID: "f-old", SessionID: "s1", Path: "/data/ancient.txt", Size: 2, ModTime: old},
	})

	cfg := testPlanConfig(dest)
	cfg.ArchiveRoot = filepath.Join(dest, "archive")
	cfg.ArchiveMinAge = 2 * 365 * 24 * time.Hour

	p := New(store, classify.NewStatic("general"), cfg, 0.7, zerolog.Nop())
	plan, err := p.BuildPlan(ctx, "s1")
	require.NoError(t, err)

	actions, err := store.ListActions(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, types.ActionArchive, actions[0].Type)
	assert.True(t, strings.HasPrefix(actions[0].TargetPath, cfg.ArchiveRoot+string(filepath.Separator)),
		"archive target %s must live under %s", actions[0].TargetPath, cfg.ArchiveRoot)
}

func TestBuildPlanUnknownSession(t *testing.T) {
	store := newTestStore(t)
	p := New(store, classify.NewStatic("general"), testPlanConfig(t.TempDir()), 0.7, zerolog.Nop())
	_, err := p.BuildPlan(context.Background(), "missing")
	assert.Error(t, err)
}
