// Package executor commits validated migration plans to the live tree.
// Every applied action writes its rollback log entry and file-row update
// in the same store transaction; on mid-batch failure execution halts and
// already-applied actions stay applied — rollback is always a separate,
// explicit operation.
package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/curatord/curator/internal/hashing"
	"github.com/curatord/curator/internal/snapshot"
	"github.com/curatord/curator/internal/storage"
	"github.com/curatord/curator/internal/types"
)

// Options controls one commit invocation
type Options struct {
	// DryRun lists what would happen without touching anything
	DryRun bool
	// IncludeReview also commits actions flagged requires_review
	IncludeReview bool
	// Snapshot captures pre-state before the first mutation
	Snapshot bool
}

// CommitResult reports what one commit invocation did
type CommitResult struct {
	PlanID     string
	Applied    []string // action IDs applied in order
	Skipped    []string // SKIP and excluded-for-review action IDs
	Unapplied  []string // action IDs left pending after a halt
	FailedID   string   // the action that halted execution, if any
	SnapshotID string
	DryRun     bool
}

// Executor applies validated plans
type Executor struct {
	store     storage.Storage
	snapshots *snapshot.Manager
	hasher    *hashing.Service
	dbPath    string
	log       zerolog.Logger
}

// New creates an executor. dbPath anchors the plan lock file.
func New(store storage.Storage, snapshots *snapshot.Manager, hasher *hashing.Service, dbPath string, log zerolog.Logger) *Executor {
	return &Executor{
		store:     store,
		snapshots: snapshots,
		hasher:    hasher,
		dbPath:    dbPath,
		log:       log.With().Str("component", "executor").Logger(),
	}
}

// Commit applies a validated plan's actions in ID order. The plan-level
// lock guarantees a single committing executor per plan.
func (e *Executor) Commit(ctx context.Context, planID string, opts Options) (*CommitResult, error) {
	plan, err := e.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, types.PersistenceErr("get plan", err)
	}
	if plan == nil {
		return nil, fmt.Errorf("plan %s not found", planID)
	}
	if plan.Status != types.PlanValidated {
		return nil, fmt.Errorf("plan %s must be validated before commit (status %s)", planID, plan.Status)
	}

	// Unresolved conflicts block commit outright
	if err := e.checkConflicts(ctx, planID); err != nil {
		return nil, err
	}

	actions, err := e.store.ListActions(ctx, planID)
	if err != nil {
		return nil, types.PersistenceErr("list actions", err)
	}

	result := &CommitResult{PlanID: planID, DryRun: opts.DryRun}
	if opts.DryRun {
		for _, a := range actions {
			if e.skippable(a, opts) {
				result.Skipped = append(result.Skipped, a.ID)
			} else {
				result.Unapplied = append(result.Unapplied, a.ID)
			}
		}
		return result, nil
	}

	lockPath, err := storage.AcquirePlanLock(e.dbPath, planID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := storage.ReleasePlanLock(lockPath); err != nil {
			e.log.Warn().Err(err).Msg("failed to release plan lock")
		}
	}()

	if opts.Snapshot {
		snap, err := e.snapshots.CapturePlan(ctx, planID)
		if err != nil {
			return nil, fmt.Errorf("pre-commit snapshot failed: %w", err)
		}
		result.SnapshotID = snap.ID
	}

	for i, a := range actions {
		if e.skippable(a, opts) {
			result.Skipped = append(result.Skipped, a.ID)
			continue
		}
		if a.Status == types.ActionCommitted {
			// Re-running a halted commit resumes where it stopped
			result.Skipped = append(result.Skipped, a.ID)
			continue
		}

		if err := e.applyOne(ctx, a); err != nil {
			// Halt: applied actions stay applied, the remainder is
			// reported for the operator
			result.FailedID = a.ID
			for _, rest := range actions[i+1:] {
				if !e.skippable(rest, opts) && rest.Status != types.ActionCommitted {
					result.Unapplied = append(result.Unapplied, rest.ID)
				}
			}
			if statusErr := e.store.UpdateActionStatus(context.WithoutCancel(ctx), a.ID, types.ActionFailed, err.Error()); statusErr != nil {
				e.log.Error().Err(statusErr).Str("action", a.ID).Msg("failed to record action failure")
			}
			e.log.Error().
				Str("plan", planID).
				Str("action", a.ID).
				Int("applied", len(result.Applied)).
				Int("unapplied", len(result.Unapplied)).
				Err(err).
				Msg("commit halted")
			return result, err
		}
		result.Applied = append(result.Applied, a.ID)

		// Cancellation is honored between actions only
		if ctx.Err() != nil {
			for _, rest := range actions[i+1:] {
				if !e.skippable(rest, opts) && rest.Status != types.ActionCommitted {
					result.Unapplied = append(result.Unapplied, rest.ID)
				}
			}
			return result, ctx.Err()
		}
	}

	if len(result.Unapplied) == 0 {
		if err := e.store.UpdatePlanStatus(ctx, planID, types.PlanValidated, types.PlanCommitted); err != nil {
			return result, types.PersistenceErr("update plan status", err)
		}
	}

	e.log.Info().
		Str("plan", planID).
		Int("applied", len(result.Applied)).
		Int("skipped", len(result.Skipped)).
		Msg("commit complete")
	return result, nil
}

func (e *Executor) skippable(a *types.MigrationAction, opts Options) bool {
	if a.Type == types.ActionSkip || a.SourcePath == a.TargetPath {
		return true
	}
	if a.RequiresReview && !opts.IncludeReview {
		return true
	}
	return false
}

func (e *Executor) checkConflicts(ctx context.Context, planID string) error {
	resolutions, err := e.store.ListResolutions(ctx, planID)
	if err != nil {
		return types.PersistenceErr("list resolutions", err)
	}
	for _, r := range resolutions {
		if r.Strategy == types.StrategyAsk {
			return fmt.Errorf("%w: action %s still has strategy ASK", types.ErrConflictUnresolved, r.ActionID)
		}
		if r.Strategy == types.StrategyReplace && !r.Confirmed {
			return fmt.Errorf("%w: REPLACE on action %s is unconfirmed", types.ErrConflictUnresolved, r.ActionID)
		}
	}
	return nil
}

// applyOne moves a file and records the rollback entry atomically with
// the file-row update
func (e *Executor) applyOne(ctx context.Context, a *types.MigrationAction) error {
	if err := os.MkdirAll(filepath.Dir(a.TargetPath), 0755); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}

	hash, err := e.moveFile(a.SourcePath, a.TargetPath)
	if err != nil {
		return err
	}

	entry := &types.RollbackLogEntry{
		PlanID:     a.PlanID,
		ActionID:   a.ID,
		BeforePath: a.SourcePath,
		AfterPath:  a.TargetPath,
		Hash:       hash,
		AppliedAt:  time.Now().UTC(),
	}
	if err := e.store.ApplyAction(ctx, entry, a.FileID, a.TargetPath); err != nil {
		return types.PersistenceErr("record applied action", err)
	}
	return nil
}

// moveFile renames when source and target share a volume, otherwise
// copy+verify+delete. Returns the content hash used for verification.
func (e *Executor) moveFile(source, target string) (string, error) {
	hash, err := e.hasher.FullHashPath(source)
	if err != nil {
		return "", err
	}

	if err := os.Rename(source, target); err == nil {
		return hash, nil
	}
	// Cross-volume: copy, verify, then delete the source
	if err := copyFile(source, target); err != nil {
		return "", err
	}
	copied, err := e.hasher.FullHashPath(target)
	if err != nil {
		return "", err
	}
	if copied != hash {
		// Bad copy: remove it and leave the source untouched
		os.Remove(target)
		return "", fmt.Errorf("copy verification failed for %s: hash mismatch", target)
	}
	if err := os.Remove(source); err != nil {
		return "", types.NewIOError("remove", source, err)
	}
	return hash, nil
}

func copyFile(source, target string) error {
	in, err := os.Open(source)
	if err != nil {
		return types.NewIOError("open", source, err)
	}
	defer in.Close()
	out, err := os.Create(target)
	if err != nil {
		return types.NewIOError("create", target, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return types.NewIOError("copy", target, err)
	}
	return out.Close()
}
