// Package config holds the single strongly-typed configuration object shared
// by every component. Config is validated once at load; components never
// invent defaults of their own.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/curatord/curator/internal/types"
)

// ScanConfig controls the parallel scanner
type ScanConfig struct {
	// ThreadCount is the bounded worker pool size
	ThreadCount int `yaml:"thread_count"`
	// BatchSize is how many file records are written per transaction
	BatchSize int `yaml:"batch_size"`
	// ExclusionPatterns are shell patterns matched against both the full
	// slash path and the base name
	ExclusionPatterns []string `yaml:"exclusion_patterns"`
}

// HashConfig controls the progressive hashing service
type HashConfig struct {
	// PrefixBytes is how much of the file head the quick hash covers
	PrefixBytes int64 `yaml:"prefix_bytes"`
	// ChunkBytes is the streaming read size for full hashes
	ChunkBytes int `yaml:"chunk_bytes"`
	// SmallFileThreshold: files at or below this size are hashed in full
	// up front and quick_hash == full_hash
	SmallFileThreshold int64 `yaml:"small_file_threshold"`
}

// ScoringPolicy holds the canonical-selection weights. These are policy,
// not law: every weight is overridable.
type ScoringPolicy struct {
	NewestMtime     int `yaml:"newest_mtime"`     // mtime is group max
	PreferredRoot   int `yaml:"preferred_root"`   // path under a preferred root
	ShallowestPath  int `yaml:"shallowest_path"`  // path depth is group min
	DescriptiveName int `yaml:"descriptive_name"` // longer than median, no generic tokens
	AccessMax       int `yaml:"access_max"`       // upper bound of the access-frequency term
}

// DedupConfig controls the analyzer pipeline
type DedupConfig struct {
	// PreferredRoots boost canonical selection for files under them
	PreferredRoots []string `yaml:"preferred_roots"`
	// FuzzyEnabled turns on the opt-in stage-4 filename similarity pass
	FuzzyEnabled bool `yaml:"fuzzy_enabled"`
	// FuzzyThreshold is the minimum similarity ratio to flag for review
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
	// Scoring holds the canonical-selection weights
	Scoring ScoringPolicy `yaml:"scoring"`
}

// PlanConfig controls target path computation
type PlanConfig struct {
	// DestinationRoot is the base of the organized tree
	DestinationRoot string `yaml:"destination_root"`
	// QuarantineRoot holds detected duplicates pending operator deletion
	QuarantineRoot string `yaml:"quarantine_root"`
	// ArchiveRoot holds files older than ArchiveMinAge (disabled when empty)
	ArchiveRoot string `yaml:"archive_root"`
	// ArchiveMinAge: files with mtime older than this are archived
	ArchiveMinAge time.Duration `yaml:"archive_min_age"`
	// Templates maps a document type to a path template; "default" is the
	// fallback. Variables: {YYYY} {MM} {DD} {doc_type} {domain} {filename}
	// {extension}
	Templates map[string]string `yaml:"templates"`
	// Domain labels every classification and fills {domain} in templates
	Domain string `yaml:"domain"`
}

// StagingConfig controls plan materialization
type StagingConfig struct {
	// Root is the isolated staging tree; never inside a scan root
	Root string `yaml:"root"`
	// Method is the default materialization method
	Method types.StageMethod `yaml:"method"`
}

// ValidationConfig controls the staging checklist
type ValidationConfig struct {
	// MaxPathLength rejects over-long target paths
	MaxPathLength int `yaml:"max_path_length"`
	// ConfidenceThreshold: actions classified below it require review
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// ConflictConfig controls collision handling
type ConflictConfig struct {
	// DefaultStrategy applies to conflicts without a per-conflict choice
	DefaultStrategy types.ConflictStrategy `yaml:"default_strategy"`
}

// SnapshotConfig controls snapshot capture and retention
type SnapshotConfig struct {
	// Root is where snapshot data and manifests are stored
	Root string `yaml:"root"`
	// Retain keeps the last N snapshots; older ones are pruned on create
	Retain int `yaml:"retain"`
}

// Config is the complete configuration for one repository
type Config struct {
	Scan       ScanConfig       `yaml:"scan"`
	Hash       HashConfig       `yaml:"hash"`
	Dedup      DedupConfig      `yaml:"dedup"`
	Plan       PlanConfig       `yaml:"plan"`
	Staging    StagingConfig    `yaml:"staging"`
	Validation ValidationConfig `yaml:"validation"`
	Conflict   ConflictConfig   `yaml:"conflict"`
	Snapshots  SnapshotConfig   `yaml:"snapshots"`
}

// Default returns the documented defaults
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			ThreadCount: 8,
			BatchSize:   100,
		},
		Hash: HashConfig{
			PrefixBytes:        1 << 20, // 1 MiB
			ChunkBytes:         256 << 10,
			SmallFileThreshold: 1 << 20,
		},
		Dedup: DedupConfig{
			FuzzyEnabled:   false,
			FuzzyThreshold: 0.85,
			Scoring: ScoringPolicy{
				NewestMtime:     10,
				PreferredRoot:   20,
				ShallowestPath:  10,
				DescriptiveName: 5,
				AccessMax:       15,
			},
		},
		Plan: PlanConfig{
			QuarantineRoot: ".curator/quarantine",
			Templates: map[string]string{
				"default": "{domain}/{doc_type}/{YYYY}/{MM}/{filename}",
			},
			Domain: "general",
		},
		Staging: StagingConfig{
			Root:   ".curator/staging",
			Method: types.StageSymlink,
		},
		Validation: ValidationConfig{
			MaxPathLength:       260,
			ConfidenceThreshold: 0.7,
		},
		Conflict: ConflictConfig{
			DefaultStrategy: types.StrategyAsk,
		},
		Snapshots: SnapshotConfig{
			Root:   ".curator/snapshots",
			Retain: 2,
		},
	}
}

// Load reads a YAML config file over the defaults. Unknown keys are
// rejected so typos surface at load time instead of as silent defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the config once at load time
func (c *Config) Validate() error {
	if c.Scan.ThreadCount < 1 {
		return fmt.Errorf("scan.thread_count must be at least 1 (got %d)", c.Scan.ThreadCount)
	}
	if c.Scan.BatchSize < 1 {
		return fmt.Errorf("scan.batch_size must be at least 1 (got %d)", c.Scan.BatchSize)
	}
	if c.Hash.PrefixBytes < 1 {
		return fmt.Errorf("hash.prefix_bytes must be positive (got %d)", c.Hash.PrefixBytes)
	}
	if c.Hash.ChunkBytes < 1 {
		return fmt.Errorf("hash.chunk_bytes must be positive (got %d)", c.Hash.ChunkBytes)
	}
	if c.Hash.SmallFileThreshold < 0 {
		return fmt.Errorf("hash.small_file_threshold cannot be negative")
	}
	if c.Dedup.FuzzyThreshold < 0 || c.Dedup.FuzzyThreshold > 1 {
		return fmt.Errorf("dedup.fuzzy_threshold must be in [0,1] (got %v)", c.Dedup.FuzzyThreshold)
	}
	if !c.Staging.Method.IsValid() {
		return fmt.Errorf("staging.method must be one of SYMLINK, HARDLINK, COPY (got %q)", c.Staging.Method)
	}
	if c.Validation.MaxPathLength < 1 {
		return fmt.Errorf("validation.max_path_length must be positive (got %d)", c.Validation.MaxPathLength)
	}
	if c.Validation.ConfidenceThreshold < 0 || c.Validation.ConfidenceThreshold > 1 {
		return fmt.Errorf("validation.confidence_threshold must be in [0,1] (got %v)", c.Validation.ConfidenceThreshold)
	}
	if !c.Conflict.DefaultStrategy.IsValid() {
		return fmt.Errorf("conflict.default_strategy %q is not a known strategy", c.Conflict.DefaultStrategy)
	}
	if c.Snapshots.Retain < 1 {
		return fmt.Errorf("snapshots.retain must be at least 1 (got %d)", c.Snapshots.Retain)
	}
	if _, ok := c.Plan.Templates["default"]; !ok {
		return fmt.Errorf("plan.templates must include a \"default\" entry")
	}
	return nil
}
