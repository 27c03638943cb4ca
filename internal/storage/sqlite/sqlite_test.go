package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatord/curator/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedSession(t *testing.T, s *Store, id string) {
	t.Helper()
	require.NoError(t, s.CreateSession(context.Background(), &types.ScanSession{
		ID: id, Roots: []string{"/data", "/archive"},
		Status: types.SessionRunning, StartedAt: time.Now().UTC(),
	}))
}

func fileRecord(id, sessionID, path string) *types.FileRecord {
	return &types.FileRecord{
		ID: id, SessionID: sessionID, Path: path,
		Size: 10, ModTime: time.Now().UTC(), QuickHash: "q-" + id,
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedSession(t, s, "s1")

	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"/data", "/archive"}, got.Roots)
	assert.Equal(t, types.SessionRunning, got.Status)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, s.FinishSession(ctx, "s1", types.SessionComplete, 42, 3, 1024))
	got, err = s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, types.SessionComplete, got.Status)
	assert.Equal(t, 42, got.FilesSeen)
	assert.Equal(t, 3, got.FilesFailed)
	assert.Equal(t, int64(1024), got.BytesSeen)
	require.NotNil(t, got.CompletedAt)

	assert.Error(t, s.FinishSession(ctx, "missing", types.SessionComplete, 0, 0, 0))

	missing, err := s.GetSession(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPurgeSessionCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedSession(t, s, "s1")
	require.NoError(t, s.InsertFileBatch(ctx, []*types.FileRecord{
		fileRecord("f1", "s1", "/data/a.txt"),
		fileRecord("f2", "s1", "/data/b.txt"),
	}))
	now := time.Now().UTC()
	plan := &types.MigrationPlan{ID: "p1", SessionID: "s1", Status: types.PlanDraft, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreatePlan(ctx, plan, []*types.MigrationAction{{
		ID: "a1", PlanID: "p1", FileID: "f1",
		SourcePath: "/data/a.txt", TargetPath: "/sorted/a.txt",
		Type: types.ActionMove, Status: types.ActionPending, Confidence: 1,
	}}))

	require.NoError(t, s.PurgeSession(ctx, "s1"))

	files, err := s.ListFiles(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, files)

	gotPlan, err := s.GetPlan(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, gotPlan, "plans are removed with their session")
	gotAction, err := s.GetAction(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, gotAction)
}

func TestFileRecords(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedSession(t, s, "s1")
	require.NoError(t, s.InsertFileBatch(ctx, []*types.FileRecord{
		fileRecord("f1", "s1", "/data/b.txt"),
		fileRecord("f2", "s1", "/data/a.txt"),
	}))

	// Listed by path, not insertion order
	files, err := s.ListFiles(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "/data/a.txt", files[0].Path)

	byPath, err := s.GetFileByPath(ctx, "s1", "/data/b.txt")
	require.NoError(t, err)
	require.NotNil(t, byPath)
	assert.Equal(t, "f1", byPath.ID)

	require.NoError(t, s.SetFullHash(ctx, "f1", "full-1"))
	got, err := s.GetFile(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "full-1", got.FullHash)

	assert.Error(t, s.SetFullHash(ctx, "missing", "x"))

	// (session_id, path) is unique
	err = s.InsertFileBatch(ctx, []*types.FileRecord{fileRecord("f3", "s1", "/data/a.txt")})
	assert.Error(t, err)
}

func TestDuplicateGroupRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedSession(t, s, "s1")
	require.NoError(t, s.InsertFileBatch(ctx, []*types.FileRecord{
		fileRecord("f1", "s1", "/data/a.txt"),
		fileRecord("f2", "s1", "/data/copy of a.txt"),
	}))

	require.NoError(t, s.CreateDuplicateGroup(ctx, &types.DuplicateGroup{
		ID: "g1", SessionID: "s1", Hash: "h1",
		CanonicalFileID: "f1", MemberIDs: []string{"f1", "f2"},
	}))

	groups, err := s.ListDuplicateGroups(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "f1", groups[0].CanonicalFileID)
	assert.ElementsMatch(t, []string{"f1", "f2"}, groups[0].MemberIDs)

	// The loser is flagged, the canonical member is not
	loser, err := s.GetFile(ctx, "f2")
	require.NoError(t, err)
	assert.True(t, loser.IsDuplicate)
	assert.Equal(t, "f1", loser.DuplicateOf)
	winner, err := s.GetFile(ctx, "f1")
	require.NoError(t, err)
	assert.False(t, winner.IsDuplicate)

	require.NoError(t, s.ClearDuplicateGroups(ctx, "s1"))
	groups, err = s.ListDuplicateGroups(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, groups)
	loser, err = s.GetFile(ctx, "f2")
	require.NoError(t, err)
	assert.False(t, loser.IsDuplicate, "clearing groups resets member flags")
	assert.Empty(t, loser.DuplicateOf)
}

func TestUpdatePlanStatusCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedSession(t, s, "s1")
	now := time.Now().UTC()
	plan := &types.MigrationPlan{ID: "p1", SessionID: "s1", Status: types.PlanDraft, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreatePlan(ctx, plan, nil))

	// Illegal transitions are rejected before touching the database
	err := s.UpdatePlanStatus(ctx, "p1", types.PlanDraft, types.PlanCommitted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal plan transition")

	require.NoError(t, s.UpdatePlanStatus(ctx, "p1", types.PlanDraft, types.PlanStaged))

	// The stored status moved on, so the stale CAS loses
	err = s.UpdatePlanStatus(ctx, "p1", types.PlanDraft, types.PlanStaged)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in status")

	got, err := s.GetPlan(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, types.PlanStaged, got.Status)
}

func TestApplyActionIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedSession(t, s, "s1")
	require.NoError(t, s.InsertFileBatch(ctx, []*types.FileRecord{
		fileRecord("f1", "s1", "/data/a.txt"),
	}))
	now := time.Now().UTC()
	plan := &types.MigrationPlan{ID: "p1", SessionID: "s1", Status: types.PlanValidated, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreatePlan(ctx, plan, []*types.MigrationAction{{
		ID: "a1", PlanID: "p1", FileID: "f1",
		SourcePath: "/data/a.txt", TargetPath: "/sorted/a.txt",
		Type: types.ActionMove, Status: types.ActionValidated, Confidence: 1,
	}}))

	entry := &types.RollbackLogEntry{
		PlanID: "p1", ActionID: "a1",
		BeforePath: "/data/a.txt", AfterPath: "/sorted/a.txt", Hash: "h1",
	}
	require.NoError(t, s.ApplyAction(ctx, entry, "f1", "/sorted/a.txt"))
	assert.NotZero(t, entry.ID, "the assigned log id is written back")
	assert.False(t, entry.AppliedAt.IsZero())

	action, err := s.GetAction(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, types.ActionCommitted, action.Status)

	file, err := s.GetFile(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "/sorted/a.txt", file.CanonicalPath)
	assert.Equal(t, 1, file.MoveCount)

	entries, err := s.ListRollbackEntries(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
	assert.False(t, entries[0].RolledBack)
}

func TestMarkRolledBackIsOneShot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedSession(t, s, "s1")
	require.NoError(t, s.InsertFileBatch(ctx, []*types.FileRecord{
		fileRecord("f1", "s1", "/data/a.txt"),
	}))
	now := time.Now().UTC()
	plan := &types.MigrationPlan{ID: "p1", SessionID: "s1", Status: types.PlanCommitted, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreatePlan(ctx, plan, []*types.MigrationAction{{
		ID: "a1", PlanID: "p1", FileID: "f1",
		SourcePath: "/data/a.txt", TargetPath: "/sorted/a.txt",
		Type: types.ActionMove, Status: types.ActionCommitted, Confidence: 1,
	}}))
	entry := &types.RollbackLogEntry{
		PlanID: "p1", ActionID: "a1",
		BeforePath: "/data/a.txt", AfterPath: "/sorted/a.txt", Hash: "h1",
	}
	require.NoError(t, s.ApplyAction(ctx, entry, "f1", "/sorted/a.txt"))

	require.NoError(t, s.MarkRolledBack(ctx, entry.ID, "f1", "/data/a.txt"))

	file, err := s.GetFile(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "/data/a.txt", file.CanonicalPath)
	assert.Equal(t, 2, file.MoveCount, "a restore is itself a move")

	err = s.MarkRolledBack(ctx, entry.ID, "f1", "/data/a.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already rolled back")
}

func TestConfigKeyValue(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	val, err := s.GetConfig(ctx, "schema_version")
	require.NoError(t, err)
	assert.Empty(t, val, "unset keys read as empty, not as an error")

	require.NoError(t, s.SetConfig(ctx, "schema_version", "1"))
	require.NoError(t, s.SetConfig(ctx, "schema_version", "2"))

	val, err = s.GetConfig(ctx, "schema_version")
	require.NoError(t, err)
	assert.Equal(t, "2", val)
}
