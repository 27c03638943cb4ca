// Package planner computes a MigrationPlan for a session: target paths
// from path templates plus external classification, QUARANTINE actions for
// every duplicate, SKIP where source already equals target. Plan creation
// is purely computational and never touches the filesystem.
package planner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/curatord/curator/internal/classify"
	"github.com/curatord/curator/internal/config"
	"github.com/curatord/curator/internal/storage"
	"github.com/curatord/curator/internal/types"
)

// Planner computes migration plans
type Planner struct {
	store      storage.Storage
	classifier classify.Classifier
	cfg        config.PlanConfig
	threshold  float64
	log        zerolog.Logger
}

// New creates a planner. threshold is the classification-confidence gate
// below which actions are flagged requires_review.
func New(store storage.Storage, classifier classify.Classifier, cfg config.PlanConfig, threshold float64, log zerolog.Logger) *Planner {
	return &Planner{
		store:      store,
		classifier: classifier,
		cfg:        cfg,
		threshold:  threshold,
		log:        log.With().Str("component", "planner").Logger(),
	}
}

// BuildPlan computes and persists a draft plan for a session
func (p *Planner) BuildPlan(ctx context.Context, sessionID string) (*types.MigrationPlan, error) {
	session, err := p.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, types.PersistenceErr("get session", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}

	files, err := p.store.ListFiles(ctx, sessionID)
	if err != nil {
		return nil, types.PersistenceErr("list files", err)
	}

	now := time.Now().UTC()
	plan := &types.MigrationPlan{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Status:    types.PlanDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	quarantineDir := filepath.Join(p.cfg.QuarantineRoot, now.Format("2006-01-02"))

	var actions []*types.MigrationAction
	for _, f := range files {
		if f.ErrorFlag {
			continue
		}
		action, err := p.actionFor(ctx, f, quarantineDir)
		if err != nil {
			return nil, err
		}
		action.PlanID = plan.ID
		actions = append(actions, action)
	}

	if err := p.store.CreatePlan(ctx, plan, actions); err != nil {
		return nil, types.PersistenceErr("create plan", err)
	}

	p.log.Info().
		Str("plan", plan.ID).
		Int("actions", len(actions)).
		Msg("plan created")
	return plan, nil
}

func (p *Planner) actionFor(ctx context.Context, f *types.FileRecord, quarantineDir string) (*types.MigrationAction, error) {
	action := &types.MigrationAction{
		ID:         uuid.NewString(),
		FileID:     f.ID,
		SourcePath: f.Path,
		Status:     types.ActionPending,
		Confidence: 1,
	}

	// Duplicates are never deleted: they go to a dated quarantine
	// directory pending an operator's decision
	if f.IsDuplicate {
		action.Type = types.ActionQuarantine
		action.TargetPath = filepath.Join(quarantineDir, filepath.Base(f.Path))
		return action, nil
	}

	cls, err := p.classifier.Classify(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("classification of %s failed: %w", f.Path, err)
	}
	action.Confidence = cls.Confidence
	if cls.Confidence < p.threshold {
		action.RequiresReview = true
	}

	target := p.renderTarget(f, cls)

	// Old files go to the archive tree when archiving is configured
	if p.cfg.ArchiveRoot != "" && p.cfg.ArchiveMinAge > 0 &&
		time.Since(f.ModTime) > p.cfg.ArchiveMinAge {
		action.Type = types.ActionArchive
		action.TargetPath = filepath.Join(p.cfg.ArchiveRoot, p.relTemplate(f, cls))
		if action.TargetPath == f.Path {
			action.Type = types.ActionSkip
			action.TargetPath = f.Path
		}
		return action, nil
	}

	if target == f.Path {
		// Already in place: idempotence demands a SKIP, not a MOVE
		action.Type = types.ActionSkip
		action.TargetPath = f.Path
		return action, nil
	}
	action.Type = types.ActionMove
	action.TargetPath = target
	return action, nil
}

func (p *Planner) renderTarget(f *types.FileRecord, cls classify.Classification) string {
	return filepath.Join(p.cfg.DestinationRoot, p.relTemplate(f, cls))
}

// relTemplate substitutes the template variables for the file's category
func (p *Planner) relTemplate(f *types.FileRecord, cls classify.Classification) string {
	tmpl, ok := p.cfg.Templates[cls.DocumentType]
	if !ok {
		tmpl = p.cfg.Templates["default"]
	}

	base := filepath.Base(f.Path)
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	replacer := strings.NewReplacer(
		"{YYYY}", f.ModTime.Format("2006"),
		"{MM}", f.ModTime.Format("01"),
		"{DD}", f.ModTime.Format("02"),
		"{doc_type}", cls.DocumentType,
		"{domain}", cls.Domain,
		"{filename}", base,
		"{extension}", ext,
	)
	return filepath.FromSlash(replacer.Replace(tmpl))
}
