package staging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/curatord/curator/internal/types"
)

// Characters rejected by the filename sanitization check. The set is the
// portable intersection of what common filesystems refuse.
const invalidFilenameChars = "<>:\"|?*"

// Validate runs the fixed checklist over a staged plan and returns a
// structured report. Validation never raises for content problems: every
// issue becomes a finding or a conflict. Only store failures return an
// error.
func (m *Manager) Validate(ctx context.Context, planID string) (*types.ValidationReport, error) {
	plan, err := m.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, types.PersistenceErr("get plan", err)
	}
	if plan == nil {
		return nil, fmt.Errorf("plan %s not found", planID)
	}
	if plan.Status != types.PlanStaged && plan.Status != types.PlanValidated {
		return nil, fmt.Errorf("plan %s must be staged before validation (status %s)", planID, plan.Status)
	}

	actions, err := m.store.ListActions(ctx, planID)
	if err != nil {
		return nil, types.PersistenceErr("list actions", err)
	}
	resolutions, err := m.store.ListResolutions(ctx, planID)
	if err != nil {
		return nil, types.PersistenceErr("list resolutions", err)
	}
	resolved := make(map[string]types.ConflictType, len(resolutions))
	for _, r := range resolutions {
		resolved[r.ActionID] = r.ConflictType
	}

	report := &types.ValidationReport{
		PlanID:      planID,
		GeneratedAt: time.Now().UTC(),
	}

	// Source paths inside this plan never count as collisions: the plan
	// itself vacates them.
	planSources := make(map[string]bool, len(actions))
	for _, a := range actions {
		planSources[a.SourcePath] = true
	}
	targets := make(map[string]string) // target path -> first action ID

	for _, a := range actions {
		if a.Type == types.ActionSkip {
			continue
		}
		report.ActionsChecked++

		m.checkSource(report, a)
		m.checkTarget(report, a)
		m.checkPathLength(report, a)
		m.checkFilename(report, a)

		// Classification-confidence gate: below-threshold actions are
		// excluded from auto-commit, not blocked
		if a.Confidence < m.validation.ConfidenceThreshold || a.RequiresReview {
			report.ReviewCount++
			if !a.RequiresReview {
				if err := m.store.SetActionReview(ctx, a.ID, true); err != nil {
					return nil, types.PersistenceErr("set review flag", err)
				}
			}
			report.Findings = append(report.Findings, types.ValidationFinding{
				ActionID: a.ID,
				Check:    "confidence",
				Severity: types.SeverityWarning,
				Message:  fmt.Sprintf("classification confidence %.2f below threshold %.2f, requires review", a.Confidence, m.validation.ConfidenceThreshold),
			})
		}

		// Intra-plan collision: two actions computed the same target
		if firstID, dup := targets[a.TargetPath]; dup {
			report.Conflicts = append(report.Conflicts, types.Conflict{
				ActionID:     a.ID,
				Type:         types.ConflictDuplicateTarget,
				TargetPath:   a.TargetPath,
				ExistingPath: firstID,
				Resolved:     resolved[a.ID] == types.ConflictDuplicateTarget,
			})
		} else {
			targets[a.TargetPath] = a.ID
		}

		// Collision with a file outside this plan
		if info, err := os.Lstat(a.TargetPath); err == nil && !info.IsDir() && !planSources[a.TargetPath] {
			report.Conflicts = append(report.Conflicts, types.Conflict{
				ActionID:     a.ID,
				Type:         types.ConflictTargetExists,
				TargetPath:   a.TargetPath,
				ExistingPath: a.TargetPath,
				Resolved:     resolved[a.ID] == types.ConflictTargetExists,
			})
		}
	}

	// Free-space check applies only when the plan was staged by COPY:
	// links consume no meaningful space
	if err := m.checkFreeSpace(ctx, planID, actions, report); err != nil {
		return nil, err
	}

	if !report.Blocking() {
		for _, a := range actions {
			if a.Type == types.ActionSkip || a.Status == types.ActionValidated {
				continue
			}
			if err := m.store.UpdateActionStatus(ctx, a.ID, types.ActionValidated, ""); err != nil {
				return nil, types.PersistenceErr("mark action validated", err)
			}
		}
		if plan.Status == types.PlanStaged {
			if err := m.store.UpdatePlanStatus(ctx, planID, types.PlanStaged, types.PlanValidated); err != nil {
				return nil, types.PersistenceErr("update plan status", err)
			}
		}
	}

	m.log.Info().
		Str("plan", planID).
		Int("checked", report.ActionsChecked).
		Int("findings", len(report.Findings)).
		Int("conflicts", len(report.Conflicts)).
		Bool("blocking", report.Blocking()).
		Msg("validation complete")
	return report, nil
}

func (m *Manager) checkSource(report *types.ValidationReport, a *types.MigrationAction) {
	f, err := os.Open(a.SourcePath)
	if err != nil {
		report.Findings = append(report.Findings, types.ValidationFinding{
			ActionID: a.ID,
			Check:    "source_readable",
			Severity: types.SeverityError,
			Message:  fmt.Sprintf("source not readable: %v", err),
		})
		return
	}
	f.Close()
}

// checkTarget verifies the nearest existing ancestor of the target is a
// writable directory, without creating anything in the destination tree
func (m *Manager) checkTarget(report *types.ValidationReport, a *types.MigrationAction) {
	dir := filepath.Dir(a.TargetPath)
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				report.Findings = append(report.Findings, types.ValidationFinding{
					ActionID: a.ID,
					Check:    "target_writable",
					Severity: types.SeverityError,
					Message:  fmt.Sprintf("target ancestor %s is not a directory", dir),
				})
			} else if info.Mode().Perm()&0200 == 0 {
				report.Findings = append(report.Findings, types.ValidationFinding{
					ActionID: a.ID,
					Check:    "target_writable",
					Severity: types.SeverityError,
					Message:  fmt.Sprintf("target ancestor %s is not writable", dir),
				})
			}
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			report.Findings = append(report.Findings, types.ValidationFinding{
				ActionID: a.ID,
				Check:    "target_writable",
				Severity: types.SeverityError,
				Message:  fmt.Sprintf("no existing ancestor for target %s", a.TargetPath),
			})
			return
		}
		dir = parent
	}
}

func (m *Manager) checkPathLength(report *types.ValidationReport, a *types.MigrationAction) {
	if len(a.TargetPath) > m.validation.MaxPathLength {
		report.Findings = append(report.Findings, types.ValidationFinding{
			ActionID: a.ID,
			Check:    "path_length",
			Severity: types.SeverityError,
			Message:  fmt.Sprintf("target path is %d chars, limit is %d", len(a.TargetPath), m.validation.MaxPathLength),
		})
	}
}

func (m *Manager) checkFilename(report *types.ValidationReport, a *types.MigrationAction) {
	base := filepath.Base(a.TargetPath)
	if strings.ContainsAny(base, invalidFilenameChars) || strings.ContainsFunc(base, func(r rune) bool { return r < 0x20 }) {
		report.Findings = append(report.Findings, types.ValidationFinding{
			ActionID: a.ID,
			Check:    "filename_sanitization",
			Severity: types.SeverityError,
			Message:  fmt.Sprintf("target filename %q contains invalid characters", base),
		})
	}
}

// checkFreeSpace sums the bytes a COPY-staged plan will need and compares
// against the free space of the destination volume
func (m *Manager) checkFreeSpace(ctx context.Context, planID string, actions []*types.MigrationAction, report *types.ValidationReport) error {
	staged, err := m.store.ListStagingActions(ctx, planID)
	if err != nil {
		return types.PersistenceErr("list staging actions", err)
	}
	copied := false
	for _, sa := range staged {
		if sa.Method == types.StageCopy {
			copied = true
			break
		}
	}
	if !copied {
		return nil
	}

	var needed int64
	var probe string
	for _, a := range actions {
		if a.Type == types.ActionSkip {
			continue
		}
		if info, err := os.Stat(a.SourcePath); err == nil {
			needed += info.Size()
		}
		if probe == "" {
			probe = nearestExistingDir(filepath.Dir(a.TargetPath))
		}
	}
	if probe == "" {
		return nil
	}

	var fs syscall.Statfs_t
	if err := syscall.Statfs(probe, &fs); err != nil {
		// Can't measure: warn rather than block
		report.Findings = append(report.Findings, types.ValidationFinding{
			Check:    "free_space",
			Severity: types.SeverityWarning,
			Message:  fmt.Sprintf("could not determine free space at %s: %v", probe, err),
		})
		return nil
	}
	free := int64(fs.Bavail) * int64(fs.Bsize)
	if free < needed {
		report.Findings = append(report.Findings, types.ValidationFinding{
			Check:    "free_space",
			Severity: types.SeverityError,
			Message:  fmt.Sprintf("plan needs %d bytes but volume has %d free", needed, free),
		})
	}
	return nil
}

func nearestExistingDir(dir string) string {
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
