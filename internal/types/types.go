package types

import (
	"fmt"
	"time"
)

// ScanSession represents one indexing pass over a set of roots.
// FileRecords are scoped to a session; identity is (session_id, path).
type ScanSession struct {
	ID          string        `json:"id"`
	Roots       []string      `json:"roots"`
	Status      SessionStatus `json:"status"`
	FilesSeen   int           `json:"files_seen"`
	FilesFailed int           `json:"files_failed"`
	BytesSeen   int64         `json:"bytes_seen"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// SessionStatus represents the lifecycle state of a scan session
type SessionStatus string

const (
	SessionRunning  SessionStatus = "running"
	SessionComplete SessionStatus = "complete"
	SessionFailed   SessionStatus = "failed"
)

// IsValid checks if the session status value is valid
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionRunning, SessionComplete, SessionFailed:
		return true
	}
	return false
}

// FileRecord is one indexed file. Hashes are immutable for the scan epoch:
// files are assumed not to mutate between scan and commit.
type FileRecord struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	Path          string    `json:"path"`
	Size          int64     `json:"size"`
	ModTime       time.Time `json:"mtime"`
	QuickHash     string    `json:"quick_hash"`
	FullHash      string    `json:"full_hash,omitempty"`
	CanonicalPath string    `json:"canonical_path,omitempty"`
	IsDuplicate   bool      `json:"is_duplicate"`
	DuplicateOf   string    `json:"duplicate_of,omitempty"` // lookup key into files, never an owning reference
	MoveCount     int       `json:"move_count"`
	ErrorFlag     bool      `json:"error_flag"`
}

// Validate checks if the file record has valid field values
func (f *FileRecord) Validate() error {
	if f.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if f.Path == "" {
		return fmt.Errorf("path is required")
	}
	if f.Size < 0 {
		return fmt.Errorf("size cannot be negative (got %d)", f.Size)
	}
	if f.IsDuplicate && f.DuplicateOf == "" {
		return fmt.Errorf("duplicate record must reference its canonical file")
	}
	return nil
}

// Extension returns the lowercased filename extension including the dot,
// or "" when there is none.
func (f *FileRecord) Extension() string {
	for i := len(f.Path) - 1; i >= 0; i-- {
		switch f.Path[i] {
		case '.':
			ext := f.Path[i:]
			b := make([]byte, len(ext))
			for j := 0; j < len(ext); j++ {
				c := ext[j]
				if 'A' <= c && c <= 'Z' {
					c += 'a' - 'A'
				}
				b[j] = c
			}
			return string(b)
		case '/', '\\':
			return ""
		}
	}
	return ""
}

// DuplicateGroup is a set of files proven byte-identical by full hash.
// Exactly one member is canonical.
type DuplicateGroup struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	Hash            string    `json:"hash"`
	CanonicalFileID string    `json:"canonical_file_id"`
	MemberIDs       []string  `json:"member_ids"`
	CreatedAt       time.Time `json:"created_at"`
}

// Validate checks the one-canonical-member invariant
func (g *DuplicateGroup) Validate() error {
	if g.Hash == "" {
		return fmt.Errorf("hash is required")
	}
	if len(g.MemberIDs) < 2 {
		return fmt.Errorf("duplicate group needs at least 2 members (got %d)", len(g.MemberIDs))
	}
	found := false
	for _, id := range g.MemberIDs {
		if id == g.CanonicalFileID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("canonical file %s is not a group member", g.CanonicalFileID)
	}
	return nil
}

// ReviewCandidate is a fuzzy-match pair flagged for manual review.
// Candidates are advisory only and are never merged into a DuplicateGroup.
type ReviewCandidate struct {
	FileAID    string  `json:"file_a_id"`
	FileBID    string  `json:"file_b_id"`
	PathA      string  `json:"path_a"`
	PathB      string  `json:"path_b"`
	Similarity float64 `json:"similarity"`
}

// MigrationPlan groups the ordered actions computed for a session
type MigrationPlan struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	Status    PlanStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PlanStatus represents the lifecycle state of a migration plan
type PlanStatus string

const (
	PlanDraft     PlanStatus = "draft"
	PlanStaged    PlanStatus = "staged"
	PlanValidated PlanStatus = "validated"
	PlanCommitted PlanStatus = "committed"
	PlanDiscarded PlanStatus = "discarded"
)

// IsValid checks if the plan status value is valid
func (s PlanStatus) IsValid() bool {
	switch s {
	case PlanDraft, PlanStaged, PlanValidated, PlanCommitted, PlanDiscarded:
		return true
	}
	return false
}

// CanTransitionTo enforces the plan state machine. Discard is allowed from
// any non-committed state; commit only from validated.
func (s PlanStatus) CanTransitionTo(next PlanStatus) bool {
	if next == PlanDiscarded {
		return s != PlanCommitted
	}
	switch s {
	case PlanDraft:
		return next == PlanStaged
	case PlanStaged:
		return next == PlanValidated || next == PlanStaged
	case PlanValidated:
		return next == PlanCommitted || next == PlanStaged
	}
	return false
}

// ActionType categorizes what a migration action does to its source file
type ActionType string

const (
	ActionMove       ActionType = "MOVE"
	ActionQuarantine ActionType = "QUARANTINE"
	ActionArchive    ActionType = "ARCHIVE"
	ActionSkip       ActionType = "SKIP"
)

// IsValid checks if the action type value is valid
func (t ActionType) IsValid() bool {
	switch t {
	case ActionMove, ActionQuarantine, ActionArchive, ActionSkip:
		return true
	}
	return false
}

// ActionStatus represents the lifecycle state of a migration action
type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionStaged    ActionStatus = "staged"
	ActionValidated ActionStatus = "validated"
	ActionCommitted ActionStatus = "committed"
	ActionFailed    ActionStatus = "failed"
)

// IsValid checks if the action status value is valid
func (s ActionStatus) IsValid() bool {
	switch s {
	case ActionPending, ActionStaged, ActionValidated, ActionCommitted, ActionFailed:
		return true
	}
	return false
}

// MigrationAction is one planned filesystem mutation. source==target is
// always a SKIP.
type MigrationAction struct {
	ID             string       `json:"id"`
	PlanID         string       `json:"plan_id"`
	FileID         string       `json:"file_id"`
	SourcePath     string       `json:"source_path"`
	TargetPath     string       `json:"target_path"`
	Type           ActionType   `json:"action_type"`
	Status         ActionStatus `json:"status"`
	Confidence     float64      `json:"confidence"`
	RequiresReview bool         `json:"requires_review"`
	FailureReason  string       `json:"failure_reason,omitempty"`
}

// Validate checks if the action has valid field values
func (a *MigrationAction) Validate() error {
	if a.PlanID == "" {
		return fmt.Errorf("plan_id is required")
	}
	if a.SourcePath == "" {
		return fmt.Errorf("source_path is required")
	}
	if !a.Type.IsValid() {
		return fmt.Errorf("invalid action type: %s", a.Type)
	}
	if !a.Status.IsValid() {
		return fmt.Errorf("invalid action status: %s", a.Status)
	}
	if a.Type != ActionSkip && a.TargetPath == "" {
		return fmt.Errorf("target_path is required for %s actions", a.Type)
	}
	if a.SourcePath == a.TargetPath && a.Type != ActionSkip {
		return fmt.Errorf("source equals target but action type is %s, not SKIP", a.Type)
	}
	return nil
}

// StageMethod selects how a plan is materialized in the staging tree
type StageMethod string

const (
	StageSymlink  StageMethod = "SYMLINK"
	StageHardlink StageMethod = "HARDLINK"
	StageCopy     StageMethod = "COPY"
)

// IsValid checks if the stage method value is valid
func (m StageMethod) IsValid() bool {
	switch m {
	case StageSymlink, StageHardlink, StageCopy:
		return true
	}
	return false
}

// StagingAction records one materialized preview entry
type StagingAction struct {
	ID         string      `json:"id"`
	PlanID     string      `json:"plan_id"`
	ActionID   string      `json:"action_id"`
	StagedPath string      `json:"staged_path"`
	Method     StageMethod `json:"method"`
	CreatedAt  time.Time   `json:"created_at"`
}

// ConflictType categorizes a target-path collision
type ConflictType string

const (
	// ConflictTargetExists means the target path is occupied by a file
	// outside this plan.
	ConflictTargetExists ConflictType = "target_exists"
	// ConflictDuplicateTarget means two actions in the same plan computed
	// the same target path.
	ConflictDuplicateTarget ConflictType = "duplicate_target"
)

// IsValid checks if the conflict type value is valid
func (t ConflictType) IsValid() bool {
	switch t {
	case ConflictTargetExists, ConflictDuplicateTarget:
		return true
	}
	return false
}

// ConflictStrategy selects how a target collision is resolved
type ConflictStrategy string

const (
	StrategyAsk         ConflictStrategy = "ASK"
	StrategySkip        ConflictStrategy = "SKIP"
	StrategyRename      ConflictStrategy = "RENAME"
	StrategyReplace     ConflictStrategy = "REPLACE"
	StrategyKeepNewest  ConflictStrategy = "KEEP_NEWEST"
	StrategyKeepLargest ConflictStrategy = "KEEP_LARGEST"
)

// IsValid checks if the conflict strategy value is valid
func (s ConflictStrategy) IsValid() bool {
	switch s {
	case StrategyAsk, StrategySkip, StrategyRename, StrategyReplace,
		StrategyKeepNewest, StrategyKeepLargest:
		return true
	}
	return false
}

// ConflictResolution records how one collision was resolved so that
// re-validation of the same plan applies it deterministically.
type ConflictResolution struct {
	ID           string           `json:"id"`
	ActionID     string           `json:"action_id"`
	ConflictType ConflictType     `json:"conflict_type"`
	Strategy     ConflictStrategy `json:"strategy"`
	ResolvedPath string           `json:"resolved_path,omitempty"`
	Confirmed    bool             `json:"confirmed"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Snapshot is an immutable point-in-time inventory of a tree, sufficient
// by itself to reverse every action of the plan it was taken for.
type Snapshot struct {
	ID        string    `json:"id"`
	PlanID    string    `json:"plan_id,omitempty"`
	StoreRoot string    `json:"store_root"`
	FileCount int       `json:"file_count"`
	CreatedAt time.Time `json:"created_at"`
}

// ManifestEntry is one file in a snapshot manifest
type ManifestEntry struct {
	Path    string    `yaml:"path" json:"path"`
	Size    int64     `yaml:"size" json:"size"`
	ModTime time.Time `yaml:"mtime" json:"mtime"`
	Hash    string    `yaml:"hash" json:"hash"`
}

// Manifest is the full path+hash inventory of a snapshot
type Manifest struct {
	SnapshotID string          `yaml:"snapshot_id" json:"snapshot_id"`
	CreatedAt  time.Time       `yaml:"created_at" json:"created_at"`
	Entries    []ManifestEntry `yaml:"entries" json:"entries"`
}

// RollbackLogEntry records the before/after state of one applied action.
// Rows are append-only; only the rolled_back flag ever changes.
type RollbackLogEntry struct {
	ID         int64     `json:"id"`
	PlanID     string    `json:"plan_id"`
	ActionID   string    `json:"action_id"`
	BeforePath string    `json:"before_path"`
	AfterPath  string    `json:"after_path"`
	Hash       string    `json:"hash"`
	AppliedAt  time.Time `json:"applied_at"`
	RolledBack bool      `json:"rolled_back"`
}
