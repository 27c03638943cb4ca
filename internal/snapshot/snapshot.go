// Package snapshot captures immutable point-in-time inventories of the
// files a plan touches and restores trees to them. A snapshot's manifest
// plus its content store are sufficient, by themselves, to reverse every
// action of the plan they were taken for.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/curatord/curator/internal/config"
	"github.com/curatord/curator/internal/hashing"
	"github.com/curatord/curator/internal/storage"
	"github.com/curatord/curator/internal/types"
)

// Manager creates, restores, and prunes snapshots
type Manager struct {
	store  storage.Storage
	hasher *hashing.Service
	cfg    config.SnapshotConfig
	log    zerolog.Logger
}

// New creates a snapshot manager
func New(store storage.Storage, hasher *hashing.Service, cfg config.SnapshotConfig, log zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		hasher: hasher,
		cfg:    cfg,
		log:    log.With().Str("component", "snapshot").Logger(),
	}
}

func (m *Manager) snapDir(id string) string {
	return filepath.Join(m.cfg.Root, id)
}

func (m *Manager) dataPath(id, hash string) string {
	return filepath.Join(m.snapDir(id), "data", hash)
}

func (m *Manager) manifestPath(id string) string {
	return filepath.Join(m.snapDir(id), "manifest.yaml")
}

// CapturePlan snapshots the source file of every mutating action in a
// plan. Content is stored by hash, so identical files cost one copy.
func (m *Manager) CapturePlan(ctx context.Context, planID string) (*types.Snapshot, error) {
	actions, err := m.store.ListActions(ctx, planID)
	if err != nil {
		return nil, types.PersistenceErr("list actions", err)
	}

	var paths []string
	for _, a := range actions {
		if a.Type == types.ActionSkip || a.SourcePath == a.TargetPath {
			continue
		}
		paths = append(paths, a.SourcePath)
	}
	return m.capture(ctx, planID, paths)
}

func (m *Manager) capture(ctx context.Context, planID string, paths []string) (*types.Snapshot, error) {
	id := uuid.NewString()
	manifest := &types.Manifest{
		SnapshotID: id,
		CreatedAt:  time.Now().UTC(),
	}

	if err := os.MkdirAll(filepath.Join(m.snapDir(id), "data"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, types.NewIOError("stat", p, err)
		}
		hash, err := m.hasher.FullHashPath(p)
		if err != nil {
			return nil, err
		}
		dataPath := m.dataPath(id, hash)
		if _, err := os.Stat(dataPath); os.IsNotExist(err) {
			if err := copyFile(p, dataPath); err != nil {
				return nil, err
			}
		}
		manifest.Entries = append(manifest.Entries, types.ManifestEntry{
			Path:    p,
			Size:    info.Size(),
			ModTime: info.ModTime().UTC(),
			Hash:    hash,
		})
	}

	if err := m.writeManifest(id, manifest); err != nil {
		return nil, err
	}

	snap := &types.Snapshot{
		ID:        id,
		PlanID:    planID,
		StoreRoot: m.snapDir(id),
		FileCount: len(manifest.Entries),
		CreatedAt: manifest.CreatedAt,
	}
	if err := m.store.CreateSnapshot(ctx, snap); err != nil {
		return nil, types.PersistenceErr("create snapshot", err)
	}

	if err := m.prune(ctx); err != nil {
		return nil, err
	}

	m.log.Info().
		Str("snapshot", id).
		Int("files", snap.FileCount).
		Msg("snapshot created")
	return snap, nil
}

func (m *Manager) writeManifest(id string, manifest *types.Manifest) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(m.manifestPath(id), data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// LoadManifest reads a snapshot's manifest from disk
func (m *Manager) LoadManifest(ctx context.Context, snapshotID string) (*types.Manifest, error) {
	snap, err := m.store.GetSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, types.PersistenceErr("get snapshot", err)
	}
	if snap == nil {
		return nil, fmt.Errorf("snapshot %s not found", snapshotID)
	}
	data, err := os.ReadFile(filepath.Join(snap.StoreRoot, "manifest.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var manifest types.Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &manifest, nil
}

// RestoreResult reports what a restore did per manifest entry
type RestoreResult struct {
	SnapshotID string
	Recreated  []string // entries whose file was missing
	Overwrote  []string // entries whose file had diverged
	Unchanged  []string // entries already converged
	DryRun     bool
}

// Restore reconciles the current tree to a snapshot's manifest: recreate
// missing files, overwrite diverged ones, and leave converged ones alone.
// Re-running a restore is a no-op.
func (m *Manager) Restore(ctx context.Context, snapshotID string, dryRun bool) (*RestoreResult, error) {
	manifest, err := m.LoadManifest(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{SnapshotID: snapshotID, DryRun: dryRun}
	for _, entry := range manifest.Entries {
		current, err := m.hashIfExists(entry.Path)
		if err != nil {
			return nil, err
		}
		switch {
		case current == entry.Hash:
			result.Unchanged = append(result.Unchanged, entry.Path)
		case current == "":
			if !dryRun {
				if err := m.restoreEntry(snapshotID, entry); err != nil {
					return nil, err
				}
			}
			result.Recreated = append(result.Recreated, entry.Path)
		default:
			if !dryRun {
				if err := m.restoreEntry(snapshotID, entry); err != nil {
					return nil, err
				}
			}
			result.Overwrote = append(result.Overwrote, entry.Path)
		}
	}

	m.log.Info().
		Str("snapshot", snapshotID).
		Int("recreated", len(result.Recreated)).
		Int("overwrote", len(result.Overwrote)).
		Int("unchanged", len(result.Unchanged)).
		Bool("dry_run", dryRun).
		Msg("restore complete")
	return result, nil
}

func (m *Manager) restoreEntry(snapshotID string, entry types.ManifestEntry) error {
	if err := os.MkdirAll(filepath.Dir(entry.Path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", entry.Path, err)
	}
	if err := copyFile(m.dataPath(snapshotID, entry.Hash), entry.Path); err != nil {
		return err
	}
	// Preserve the recorded mtime so a restored tree matches its snapshot
	return os.Chtimes(entry.Path, entry.ModTime, entry.ModTime)
}

func (m *Manager) hashIfExists(path string) (string, error) {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return "", nil
	}
	return m.hasher.FullHashPath(path)
}

// prune enforces retention: the oldest snapshots beyond the configured
// limit are removed, rows and disk both
func (m *Manager) prune(ctx context.Context) error {
	snaps, err := m.store.ListSnapshots(ctx)
	if err != nil {
		return types.PersistenceErr("list snapshots", err)
	}
	for len(snaps) > m.cfg.Retain {
		oldest := snaps[0]
		if err := m.store.DeleteSnapshot(ctx, oldest.ID); err != nil {
			return types.PersistenceErr("delete snapshot", err)
		}
		if err := os.RemoveAll(oldest.StoreRoot); err != nil {
			return fmt.Errorf("failed to remove snapshot data %s: %w", oldest.StoreRoot, err)
		}
		m.log.Info().Str("snapshot", oldest.ID).Msg("pruned old snapshot")
		snaps = snaps[1:]
	}
	return nil
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
