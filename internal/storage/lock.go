package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/curatord/curator/internal/types"
)

// PlanLock is the lock file format for claiming exclusive commit rights on
// a migration plan. Two executors must never apply overlapping actions
// concurrently; the lock lives next to the database so every executor on
// the host sees it.
type PlanLock struct {
	PlanID    string    `json:"plan_id"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`
}

// AcquirePlanLock creates an exclusive lock file for a plan. Returns the
// lock file path for release on completion (use defer). A live lock held
// by another process yields types.ErrPlanLocked; stale locks from dead
// processes are overwritten.
func AcquirePlanLock(dbPath, planID string) (lockPath string, err error) {
	dir := filepath.Dir(dbPath)
	lockPath = filepath.Join(dir, fmt.Sprintf(".plan-%s.lock", planID))

	// Check for existing lock
	if data, err := os.ReadFile(lockPath); err == nil {
		var existing PlanLock
		if json.Unmarshal(data, &existing) == nil {
			if isProcessAlive(existing.PID, existing.Hostname) {
				return "", fmt.Errorf("%w: held by PID %d on %s since %s",
					types.ErrPlanLocked, existing.PID, existing.Hostname,
					existing.StartedAt.Format(time.RFC3339))
			}
			// Stale lock - will overwrite
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to get hostname: %w", err)
	}

	lock := PlanLock{
		PlanID:    planID,
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal lock: %w", err)
	}

	if err := os.WriteFile(lockPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to create plan lock: %w", err)
	}

	return lockPath, nil
}

// ReleasePlanLock removes the plan lock file
func ReleasePlanLock(lockPath string) error {
	if lockPath == "" {
		return nil
	}
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove plan lock: %w", err)
	}
	return nil
}

// isProcessAlive checks if a process with the given PID exists on the given
// hostname. Locks from other hosts cannot be verified and are assumed live.
func isProcessAlive(pid int, hostname string) bool {
	currentHost, err := os.Hostname()
	if err != nil {
		// Can't check hostname, assume remote/alive
		return true
	}

	if !strings.EqualFold(hostname, currentHost) {
		// Remote host - can't check, assume alive
		return true
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 probes for existence without sending anything
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}

	// EPERM means the process exists but belongs to someone else
	if err == syscall.EPERM {
		return true
	}

	return false
}
