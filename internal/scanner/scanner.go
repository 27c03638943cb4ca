// Package scanner walks scan roots in parallel, producing one FileRecord
// per regular file with metadata and a quick hash. Scanning is the only
// parallel stage of the pipeline.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/curatord/curator/internal/config"
	"github.com/curatord/curator/internal/filesource"
	"github.com/curatord/curator/internal/hashing"
	"github.com/curatord/curator/internal/storage"
	"github.com/curatord/curator/internal/types"
)

// Stats is the mutex-guarded progress accumulator for one scan. Workers
// report through it; nothing is ambient.
type Stats struct {
	mu          sync.Mutex
	FilesSeen   int
	FilesFailed int
	BytesSeen   int64
}

func (s *Stats) addFile(size int64) {
	s.mu.Lock()
	s.FilesSeen++
	s.BytesSeen += size
	s.mu.Unlock()
}

func (s *Stats) addFailure() {
	s.mu.Lock()
	s.FilesFailed++
	s.mu.Unlock()
}

// Counts returns a consistent view of the accumulator
func (s *Stats) Counts() (seen, failed int, bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.FilesSeen, s.FilesFailed, s.BytesSeen
}

// Scanner indexes file trees into the store
type Scanner struct {
	store  storage.Storage
	source filesource.Source
	hasher *hashing.Service
	cfg    config.ScanConfig
	log    zerolog.Logger
}

// New creates a scanner
func New(store storage.Storage, source filesource.Source, hasher *hashing.Service, cfg config.ScanConfig, log zerolog.Logger) *Scanner {
	return &Scanner{
		store:  store,
		source: source,
		hasher: hasher,
		cfg:    cfg,
		log:    log.With().Str("component", "scanner").Logger(),
	}
}

type walkItem struct {
	path string
	info fs.FileInfo
}

// Scan walks the roots and returns the new session ID and final stats.
// Per-file I/O errors mark the record's error_flag and scanning continues;
// only store failures or cancellation abort the session.
func (s *Scanner) Scan(ctx context.Context, roots []string) (string, *Stats, error) {
	session := &types.ScanSession{
		ID:        uuid.NewString(),
		Roots:     roots,
		Status:    types.SessionRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return "", nil, types.PersistenceErr("create session", err)
	}

	stats := &Stats{}
	items := make(chan walkItem, s.cfg.ThreadCount*2)
	records := make(chan *types.FileRecord, s.cfg.BatchSize)

	g, gctx := errgroup.WithContext(ctx)

	// Producer: walk every root, filtering exclusions
	g.Go(func() error {
		defer close(items)
		for _, root := range roots {
			err := s.source.Walk(gctx, root, func(p string, info fs.FileInfo) error {
				if info == nil {
					// Unreadable entry surfaced by the walk
					stats.addFailure()
					s.log.Warn().Str("path", p).Msg("unreadable entry, skipping")
					return nil
				}
				if s.excluded(p) {
					return nil
				}
				select {
				case items <- walkItem{path: p, info: info}:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
			if err != nil {
				return fmt.Errorf("walk of %s failed: %w", root, err)
			}
		}
		return nil
	})

	// Bounded worker pool: stat is already done, workers hash
	var workerWg sync.WaitGroup
	for i := 0; i < s.cfg.ThreadCount; i++ {
		workerWg.Add(1)
		g.Go(func() error {
			defer workerWg.Done()
			return s.worker(gctx, session.ID, items, records, stats)
		})
	}
	go func() {
		workerWg.Wait()
		close(records)
	}()

	// Collector: batch records into transactions of BatchSize
	g.Go(func() error {
		return s.collect(gctx, records, stats)
	})

	err := g.Wait()

	seen, failed, bytes := stats.Counts()
	status := types.SessionComplete
	if err != nil {
		status = types.SessionFailed
	}
	if finishErr := s.store.FinishSession(context.WithoutCancel(ctx), session.ID, status, seen, failed, bytes); finishErr != nil {
		if err == nil {
			err = types.PersistenceErr("finish session", finishErr)
		}
	}
	if err != nil {
		return session.ID, stats, err
	}

	s.log.Info().
		Str("session", session.ID).
		Int("files", seen).
		Int("failed", failed).
		Int64("bytes", bytes).
		Msg("scan complete")
	return session.ID, stats, nil
}

func (s *Scanner) worker(ctx context.Context, sessionID string, items <-chan walkItem, records chan<- *types.FileRecord, stats *Stats) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-items:
			if !ok {
				return nil
			}
			rec := s.processFile(sessionID, item, stats)
			select {
			case records <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// processFile builds the record for one file. Hash failures degrade to an
// error-flagged record rather than aborting the scan.
func (s *Scanner) processFile(sessionID string, item walkItem, stats *Stats) *types.FileRecord {
	rec := &types.FileRecord{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Path:      item.path,
		Size:      item.info.Size(),
		ModTime:   item.info.ModTime().UTC(),
	}

	f, err := s.source.Open(item.path)
	if err != nil {
		rec.ErrorFlag = true
		stats.addFailure()
		s.log.Warn().Str("path", item.path).Err(err).Msg("cannot open file")
		return rec
	}
	defer f.Close()

	quick, full, err := s.hasher.Hash(f, rec.Size)
	if err != nil {
		rec.ErrorFlag = true
		stats.addFailure()
		s.log.Warn().Str("path", item.path).Err(err).Msg("hashing failed")
		return rec
	}
	rec.QuickHash = quick
	rec.FullHash = full
	stats.addFile(rec.Size)
	return rec
}

func (s *Scanner) collect(ctx context.Context, records <-chan *types.FileRecord, stats *Stats) error {
	batch := make([]*types.FileRecord, 0, s.cfg.BatchSize)
	progress := rate.NewLimiter(rate.Every(2*time.Second), 1)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.store.InsertFileBatch(ctx, batch); err != nil {
			return types.PersistenceErr("insert file batch", err)
		}
		batch = batch[:0]
		return nil
	}

	for rec := range records {
		batch = append(batch, rec)
		if len(batch) >= s.cfg.BatchSize {
			if err := flush(); err != nil {
				return err
			}
			// Cancellation is honored between batches, never inside one
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if progress.Allow() {
				seen, failed, bytes := stats.Counts()
				s.log.Info().
					Int("files", seen).
					Int("failed", failed).
					Int64("bytes", bytes).
					Msg("scan progress")
			}
		}
	}
	return flush()
}

// excluded matches the exclusion patterns against the slash path and the
// base name
func (s *Scanner) excluded(p string) bool {
	slashed := filepath.ToSlash(p)
	base := path.Base(slashed)
	for _, pattern := range s.cfg.ExclusionPatterns {
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
		if ok, _ := path.Match(pattern, slashed); ok {
			return true
		}
	}
	return false
}
