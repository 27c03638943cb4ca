// Package hashing provides the progressive SHA-256 service: a cheap prefix
// "quick" hash used as a duplicate prefilter and a streamed full-file hash
// that is the sole authority for exact duplication.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/curatord/curator/internal/config"
	"github.com/curatord/curator/internal/types"
)

// Service computes quick and full hashes with bounded memory
type Service struct {
	prefixBytes    int64
	chunkBytes     int
	smallThreshold int64
}

// New creates a hashing service from config
func New(cfg config.HashConfig) *Service {
	return &Service{
		prefixBytes:    cfg.PrefixBytes,
		chunkBytes:     cfg.ChunkBytes,
		smallThreshold: cfg.SmallFileThreshold,
	}
}

// QuickHash hashes the first prefixBytes of r
func (s *Service) QuickHash(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.CopyN(h, r, s.prefixBytes); err != nil && err != io.EOF {
		return "", fmt.Errorf("quick hash read failed: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FullHash streams all of r through SHA-256 in fixed chunks
func (s *Service) FullHash(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, s.chunkBytes)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("full hash read failed: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Hash applies the adaptive rule. Files at or below the small-file
// threshold are read once: the full hash doubles as the quick hash.
// Larger files get a quick hash only; full stays empty until the analyzer
// needs it.
func (s *Service) Hash(r io.Reader, size int64) (quick, full string, err error) {
	if size <= s.smallThreshold {
		full, err = s.FullHash(r)
		if err != nil {
			return "", "", err
		}
		return full, full, nil
	}
	quick, err = s.QuickHash(r)
	if err != nil {
		return "", "", err
	}
	return quick, "", nil
}

// FullHashPath hashes a file on the local filesystem. Unreadable files
// yield a *types.IOError; callers decide skip versus abort.
func (s *Service) FullHashPath(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", types.NewIOError("open", path, err)
	}
	defer f.Close()

	sum, err := s.FullHash(f)
	if err != nil {
		return "", types.NewIOError("read", path, err)
	}
	return sum, nil
}
