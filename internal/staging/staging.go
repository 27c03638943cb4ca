// Package staging materializes a migration plan in an isolated preview
// tree and validates it. Staging never touches the source or destination
// trees: every entry lives under the staging root, and validation is
// read-only everywhere else.
package staging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/curatord/curator/internal/config"
	"github.com/curatord/curator/internal/storage"
	"github.com/curatord/curator/internal/types"
)

// Manager stages and validates migration plans
type Manager struct {
	store      storage.Storage
	cfg        config.StagingConfig
	validation config.ValidationConfig
	log        zerolog.Logger
}

// New creates a staging manager
func New(store storage.Storage, cfg config.StagingConfig, validation config.ValidationConfig, log zerolog.Logger) *Manager {
	return &Manager{
		store:      store,
		cfg:        cfg,
		validation: validation,
		log:        log.With().Str("component", "staging").Logger(),
	}
}

// PlanDir returns the isolated staging directory for a plan
func (m *Manager) PlanDir(planID string) string {
	return filepath.Join(m.cfg.Root, planID)
}

// Stage materializes the plan under the staging root using the given
// method. Symlinks and hardlinks fall back to COPY when the filesystem
// refuses them (cross-volume links, restricted symlinks).
func (m *Manager) Stage(ctx context.Context, planID string, method types.StageMethod) error {
	if !method.IsValid() {
		return fmt.Errorf("invalid stage method: %s", method)
	}
	plan, err := m.store.GetPlan(ctx, planID)
	if err != nil {
		return types.PersistenceErr("get plan", err)
	}
	if plan == nil {
		return fmt.Errorf("plan %s not found", planID)
	}
	if plan.Status != types.PlanDraft && plan.Status != types.PlanStaged && plan.Status != types.PlanValidated {
		return fmt.Errorf("plan %s cannot be staged from status %s", planID, plan.Status)
	}

	actions, err := m.store.ListActions(ctx, planID)
	if err != nil {
		return types.PersistenceErr("list actions", err)
	}

	// Re-staging replaces any previous materialization
	planDir := m.PlanDir(planID)
	if err := os.RemoveAll(planDir); err != nil {
		return fmt.Errorf("failed to clear staging dir: %w", err)
	}
	if err := m.store.ClearStagingActions(ctx, planID); err != nil {
		return types.PersistenceErr("clear staging actions", err)
	}

	var staged []*types.StagingAction
	for _, action := range actions {
		if action.Type == types.ActionSkip {
			continue
		}
		stagedPath := m.stagedPath(planID, action.TargetPath)
		used, err := m.materialize(action.SourcePath, stagedPath, method)
		if err != nil {
			return fmt.Errorf("failed to stage %s: %w", action.SourcePath, err)
		}
		staged = append(staged, &types.StagingAction{
			ID:         uuid.NewString(),
			PlanID:     planID,
			ActionID:   action.ID,
			StagedPath: stagedPath,
			Method:     used,
			CreatedAt:  time.Now().UTC(),
		})
		if err := m.store.UpdateActionStatus(ctx, action.ID, types.ActionStaged, ""); err != nil {
			return types.PersistenceErr("mark action staged", err)
		}
	}

	if err := m.store.InsertStagingActions(ctx, staged); err != nil {
		return types.PersistenceErr("insert staging actions", err)
	}
	if plan.Status != types.PlanStaged {
		if err := m.store.UpdatePlanStatus(ctx, planID, plan.Status, types.PlanStaged); err != nil {
			return types.PersistenceErr("update plan status", err)
		}
	}

	m.log.Info().
		Str("plan", planID).
		Int("staged", len(staged)).
		Str("method", string(method)).
		Msg("plan staged")
	return nil
}

// stagedPath mirrors the absolute target path under the plan's staging dir
func (m *Manager) stagedPath(planID, target string) string {
	rel := filepath.ToSlash(target)
	rel = strings.TrimPrefix(rel, "/")
	if vol := filepath.VolumeName(target); vol != "" {
		rel = strings.TrimPrefix(rel, filepath.ToSlash(vol)+"/")
	}
	return filepath.Join(m.PlanDir(planID), filepath.FromSlash(rel))
}

// materialize creates one preview entry, reporting the method actually used
func (m *Manager) materialize(source, stagedPath string, method types.StageMethod) (types.StageMethod, error) {
	if err := os.MkdirAll(filepath.Dir(stagedPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	switch method {
	case types.StageSymlink:
		if err := os.Symlink(source, stagedPath); err == nil {
			return types.StageSymlink, nil
		}
		// Symlink refused: fall back to copy
		return m.copyStage(source, stagedPath)
	case types.StageHardlink:
		if err := os.Link(source, stagedPath); err == nil {
			return types.StageHardlink, nil
		}
		// Cross-volume hardlinks are unsupported: fall back to copy
		return m.copyStage(source, stagedPath)
	case types.StageCopy:
		return m.copyStage(source, stagedPath)
	}
	return "", fmt.Errorf("unknown stage method: %s", method)
}

func (m *Manager) copyStage(source, stagedPath string) (types.StageMethod, error) {
	in, err := os.Open(source)
	if err != nil {
		return "", types.NewIOError("open", source, err)
	}
	defer in.Close()
	out, err := os.Create(stagedPath)
	if err != nil {
		return "", types.NewIOError("create", stagedPath, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return "", types.NewIOError("copy", stagedPath, err)
	}
	return types.StageCopy, nil
}
