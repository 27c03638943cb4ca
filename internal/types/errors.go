package types

import (
	"errors"
	"fmt"
)

// Error taxonomy:
//   - IOError: unreadable/locked file; scanner skips and logs, never aborts.
//   - ErrPersistence: store failure; Analyzer and Executor halt on it because
//     partial dedup/migration state must never be acted on.
//   - ErrConflictUnresolved: commit attempted with unresolved collisions.
//   - RollbackIntegrityError: rollback target occupied by an unrelated file.
// Validation problems are not errors at all: they are rows in a
// ValidationReport.

// ErrPersistence marks store failures that must halt the current operation.
// Wrap with fmt.Errorf("...: %w", ErrPersistence) style joins so callers can
// errors.Is against it.
var ErrPersistence = errors.New("persistence error")

// ErrConflictUnresolved blocks commit until every collision has a resolution
var ErrConflictUnresolved = errors.New("plan has unresolved conflicts")

// ErrPlanLocked indicates another executor holds the plan's commit lock
var ErrPlanLocked = errors.New("plan is locked by another executor")

// IOError wraps a per-file I/O failure with the path and operation
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// NewIOError wraps err as an IOError for path
func NewIOError(op, path string, err error) *IOError {
	return &IOError{Op: op, Path: path, Err: err}
}

// RollbackIntegrityError reports a rollback entry whose restore target is
// occupied by a file that does not match the recorded hash. The entry is
// aborted; other entries continue.
type RollbackIntegrityError struct {
	EntryID int64
	Path    string
	Reason  string
}

func (e *RollbackIntegrityError) Error() string {
	return fmt.Sprintf("rollback entry %d: %s occupied: %s", e.EntryID, e.Path, e.Reason)
}

// PersistenceErr wraps a store error so errors.Is(err, ErrPersistence) holds
func PersistenceErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
