package storage

import (
	"context"
	"fmt"

	"github.com/curatord/curator/internal/storage/sqlite"
)

// NewStorage creates a storage backend from config
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	store, err := sqlite.New(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", cfg.Path, err)
	}
	return store, nil
}

// Compile-time check that the sqlite backend satisfies the interface
var _ Storage = (*sqlite.Store)(nil)
