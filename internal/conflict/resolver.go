// Package conflict resolves target-path collisions found during plan
// validation. Resolutions are persisted per (action, conflict type) so
// re-validating the same plan re-applies them deterministically.
package conflict

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/curatord/curator/internal/storage"
	"github.com/curatord/curator/internal/types"
)

// Resolver applies conflict strategies to plan actions
type Resolver struct {
	store storage.Storage
}

// New creates a resolver
func New(store storage.Storage) *Resolver {
	return &Resolver{store: store}
}

// Request describes one resolution to apply
type Request struct {
	ActionID     string
	ConflictType types.ConflictType
	Strategy     types.ConflictStrategy
	// Confirmed must be set for REPLACE: overwriting an existing file is
	// never implicit
	Confirmed bool
}

// Resolve applies a strategy to one conflicted action and records the
// resolution. ASK is recorded as-is and keeps the commit blocked until a
// decisive strategy replaces it.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*types.ConflictResolution, error) {
	if !req.Strategy.IsValid() {
		return nil, fmt.Errorf("invalid strategy: %s", req.Strategy)
	}
	if !req.ConflictType.IsValid() {
		return nil, fmt.Errorf("invalid conflict type: %s", req.ConflictType)
	}

	action, err := r.store.GetAction(ctx, req.ActionID)
	if err != nil {
		return nil, types.PersistenceErr("get action", err)
	}
	if action == nil {
		return nil, fmt.Errorf("action %s not found", req.ActionID)
	}

	res := &types.ConflictResolution{
		ID:           uuid.NewString(),
		ActionID:     req.ActionID,
		ConflictType: req.ConflictType,
		Strategy:     req.Strategy,
		Confirmed:    req.Confirmed,
		CreatedAt:    time.Now().UTC(),
	}

	switch req.Strategy {
	case types.StrategyAsk:
		// Recorded but undecided: commit stays blocked

	case types.StrategySkip:
		// Pointing the target back at the source turns the action into a
		// no-op at commit time (source == target is always a skip)
		if err := r.store.UpdateActionTarget(ctx, action.ID, action.SourcePath); err != nil {
			return nil, types.PersistenceErr("update action target", err)
		}
		res.ResolvedPath = action.SourcePath

	case types.StrategyRename:
		unique, err := UniquePath(action.TargetPath)
		if err != nil {
			return nil, err
		}
		if err := r.store.UpdateActionTarget(ctx, action.ID, unique); err != nil {
			return nil, types.PersistenceErr("update action target", err)
		}
		res.ResolvedPath = unique

	case types.StrategyReplace:
		if !req.Confirmed {
			return nil, fmt.Errorf("REPLACE requires explicit confirmation for %s", action.TargetPath)
		}
		res.ResolvedPath = action.TargetPath

	case types.StrategyKeepNewest:
		keepSource, err := compare(action, func(src, dst os.FileInfo) bool {
			return src.ModTime().After(dst.ModTime())
		})
		if err != nil {
			return nil, err
		}
		res.ResolvedPath = r.applyKeep(ctx, action, keepSource, res)
		if res.ResolvedPath == "" {
			return nil, fmt.Errorf("failed to apply KEEP_NEWEST for %s", action.ID)
		}

	case types.StrategyKeepLargest:
		keepSource, err := compare(action, func(src, dst os.FileInfo) bool {
			return src.Size() > dst.Size()
		})
		if err != nil {
			return nil, err
		}
		res.ResolvedPath = r.applyKeep(ctx, action, keepSource, res)
		if res.ResolvedPath == "" {
			return nil, fmt.Errorf("failed to apply KEEP_LARGEST for %s", action.ID)
		}
	}

	if err := r.store.SaveResolution(ctx, res); err != nil {
		return nil, types.PersistenceErr("save resolution", err)
	}
	return res, nil
}

// applyKeep implements the KEEP_* strategies: when the source wins the
// comparison the action proceeds as a confirmed replace, otherwise it is
// demoted to keeping the existing target (source quarantined by rename).
func (r *Resolver) applyKeep(ctx context.Context, action *types.MigrationAction, keepSource bool, res *types.ConflictResolution) string {
	if keepSource {
		res.Confirmed = true
		return action.TargetPath
	}
	// Existing target wins: divert the source next to it under a suffix
	unique, err := UniquePath(action.TargetPath)
	if err != nil {
		return ""
	}
	if err := r.store.UpdateActionTarget(ctx, action.ID, unique); err != nil {
		return ""
	}
	return unique
}

func compare(action *types.MigrationAction, sourceWins func(src, dst os.FileInfo) bool) (bool, error) {
	src, err := os.Stat(action.SourcePath)
	if err != nil {
		return false, types.NewIOError("stat", action.SourcePath, err)
	}
	dst, err := os.Stat(action.TargetPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Conflict already vanished; source wins trivially
			return true, nil
		}
		return false, types.NewIOError("stat", action.TargetPath, err)
	}
	return sourceWins(src, dst), nil
}

// UniquePath appends " (n)" before the extension until the path does not
// exist. The numbering is deterministic: the smallest free suffix wins.
func UniquePath(path string) (string, error) {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return path, nil
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 1; n < 10000; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no unique name available for %s", path)
}
