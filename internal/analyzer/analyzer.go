// Package analyzer runs the four-stage deduplication pipeline over a scan
// session: (size, extension) pre-filter, quick-hash narrowing, full-hash
// verification, and an opt-in fuzzy filename pass that only flags
// candidates for review. Full hash equality is the sole authority for
// "exact duplicate".
package analyzer

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/curatord/curator/internal/config"
	"github.com/curatord/curator/internal/filesource"
	"github.com/curatord/curator/internal/hashing"
	"github.com/curatord/curator/internal/storage"
	"github.com/curatord/curator/internal/types"
)

// Result summarizes one analyzer run
type Result struct {
	SessionID        string
	FilesConsidered  int
	Groups           []*types.DuplicateGroup
	DuplicateFiles   int
	ReviewCandidates []types.ReviewCandidate
}

// Analyzer detects exact duplicates and selects canonical files
type Analyzer struct {
	store      storage.Storage
	source     filesource.Source
	hasher     *hashing.Service
	cfg        config.DedupConfig
	log        zerolog.Logger
	// Similarity scores two normalized filenames in [0,1]. Replaceable;
	// defaults to a Levenshtein-based ratio.
	Similarity func(a, b string) float64
	// AccessCounts optionally supplies relative access frequency per file
	// ID for canonical scoring; nil means the term contributes 0.
	AccessCounts map[string]int
}

// New creates an analyzer
func New(store storage.Storage, source filesource.Source, hasher *hashing.Service, cfg config.DedupConfig, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		store:      store,
		source:     source,
		hasher:     hasher,
		cfg:        cfg,
		log:        log.With().Str("component", "analyzer").Logger(),
		Similarity: similarityRatio,
	}
}

type sizeExtKey struct {
	size int64
	ext  string
}

// Analyze runs the pipeline for a session. Persistence failures halt the
// run: partial dedup state must never be acted on.
func (a *Analyzer) Analyze(ctx context.Context, sessionID string) (*Result, error) {
	session, err := a.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, types.PersistenceErr("get session", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}

	// Re-running the analyzer replaces the previous grouping
	if err := a.store.ClearDuplicateGroups(ctx, sessionID); err != nil {
		return nil, types.PersistenceErr("clear duplicate groups", err)
	}

	files, err := a.store.ListFiles(ctx, sessionID)
	if err != nil {
		return nil, types.PersistenceErr("list files", err)
	}

	// Error-flagged records have no trustworthy hashes
	candidates := make([]*types.FileRecord, 0, len(files))
	for _, f := range files {
		if !f.ErrorFlag {
			candidates = append(candidates, f)
		}
	}

	result := &Result{SessionID: sessionID, FilesConsidered: len(candidates)}

	// Stage 1: group by (size, extension), discard singletons
	preGroups := make(map[sizeExtKey][]*types.FileRecord)
	for _, f := range candidates {
		key := sizeExtKey{size: f.Size, ext: f.Extension()}
		preGroups[key] = append(preGroups[key], f)
	}
	var stage1 [][]*types.FileRecord
	for _, group := range preGroups {
		if len(group) > 1 {
			stage1 = append(stage1, group)
		}
	}
	a.log.Debug().Int("groups", len(stage1)).Msg("stage 1: size/extension pre-filter")

	// Stage 2: sub-group by quick hash, discard singletons
	var stage2 [][]*types.FileRecord
	var leftovers []*types.FileRecord
	for _, group := range stage1 {
		byQuick := make(map[string][]*types.FileRecord)
		for _, f := range group {
			byQuick[f.QuickHash] = append(byQuick[f.QuickHash], f)
		}
		for _, sub := range byQuick {
			if len(sub) > 1 {
				stage2 = append(stage2, sub)
			} else {
				leftovers = append(leftovers, sub[0])
			}
		}
	}
	a.log.Debug().Int("groups", len(stage2)).Msg("stage 2: quick-hash match")

	// Stage 3: full-hash verification - the sole authority for exact
	// duplication
	for _, group := range stage2 {
		byFull := make(map[string][]*types.FileRecord)
		for _, f := range group {
			if f.FullHash == "" {
				full, err := a.fullHash(f)
				if err != nil {
					// Unreadable at verification time: drop from grouping
					a.log.Warn().Str("path", f.Path).Err(err).Msg("full hash failed, excluding from dedup")
					continue
				}
				if err := a.store.SetFullHash(ctx, f.ID, full); err != nil {
					return nil, types.PersistenceErr("persist full hash", err)
				}
				f.FullHash = full
			}
			byFull[f.FullHash] = append(byFull[f.FullHash], f)
		}
		for _, sub := range byFull {
			if len(sub) < 2 {
				if len(sub) == 1 {
					leftovers = append(leftovers, sub[0])
				}
				continue
			}
			dupGroup, err := a.buildGroup(ctx, sessionID, sub)
			if err != nil {
				return nil, err
			}
			result.Groups = append(result.Groups, dupGroup)
			result.DuplicateFiles += len(sub) - 1
		}
	}
	a.log.Info().
		Int("groups", len(result.Groups)).
		Int("duplicates", result.DuplicateFiles).
		Msg("stage 3: full-hash verification")

	// Stage 4 (opt-in): fuzzy filename similarity among leftovers. Flags
	// candidates for manual review only; never merged into a group.
	if a.cfg.FuzzyEnabled {
		result.ReviewCandidates = a.fuzzyCandidates(leftovers)
		a.log.Info().
			Int("candidates", len(result.ReviewCandidates)).
			Msg("stage 4: fuzzy match review candidates")
	}

	return result, nil
}

// buildGroup selects the canonical member and persists the group
func (a *Analyzer) buildGroup(ctx context.Context, sessionID string, members []*types.FileRecord) (*types.DuplicateGroup, error) {
	canonical := a.SelectCanonical(members)

	memberIDs := make([]string, 0, len(members))
	for _, f := range members {
		memberIDs = append(memberIDs, f.ID)
	}
	sort.Strings(memberIDs)

	group := &types.DuplicateGroup{
		ID:              uuid.NewString(),
		SessionID:       sessionID,
		Hash:            members[0].FullHash,
		CanonicalFileID: canonical.ID,
		MemberIDs:       memberIDs,
	}
	if err := a.store.CreateDuplicateGroup(ctx, group); err != nil {
		return nil, types.PersistenceErr("create duplicate group", err)
	}
	return group, nil
}

func (a *Analyzer) fullHash(f *types.FileRecord) (string, error) {
	r, err := a.source.Open(f.Path)
	if err != nil {
		return "", err
	}
	defer r.Close()
	return a.hasher.FullHash(r)
}
