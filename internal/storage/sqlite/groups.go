package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/curatord/curator/internal/types"
)

// CreateDuplicateGroup writes the group, its membership rows, and the
// members' duplicate flags in one transaction. Partial dedup state is
// unsafe to act on, so any failure leaves the store untouched.
func (s *Store) CreateDuplicateGroup(ctx context.Context, group *types.DuplicateGroup) error {
	if err := group.Validate(); err != nil {
		return fmt.Errorf("invalid duplicate group: %w", err)
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO duplicate_groups (id, session_id, hash, canonical_file_id, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			group.ID, group.SessionID, group.Hash, group.CanonicalFileID, group.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert duplicate group: %w", err)
		}

		var canonicalPath string
		err = tx.QueryRowContext(ctx, "SELECT path FROM files WHERE id = ?",
			group.CanonicalFileID).Scan(&canonicalPath)
		if err != nil {
			return fmt.Errorf("failed to look up canonical file %s: %w", group.CanonicalFileID, err)
		}

		for _, fileID := range group.MemberIDs {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO duplicate_members (group_id, file_id) VALUES (?, ?)",
				group.ID, fileID)
			if err != nil {
				return fmt.Errorf("failed to insert group member %s: %w", fileID, err)
			}
			if fileID == group.CanonicalFileID {
				continue
			}
			_, err = tx.ExecContext(ctx,
				"UPDATE files SET is_duplicate = 1, duplicate_of = ? WHERE id = ?",
				group.CanonicalFileID, fileID)
			if err != nil {
				return fmt.Errorf("failed to flag duplicate %s: %w", fileID, err)
			}
		}
		return nil
	})
}

// ListDuplicateGroups returns all groups for a session with their members
func (s *Store) ListDuplicateGroups(ctx context.Context, sessionID string) ([]*types.DuplicateGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, hash, canonical_file_id, created_at
		FROM duplicate_groups WHERE session_id = ? ORDER BY hash`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list duplicate groups: %w", err)
	}
	defer rows.Close()

	var groups []*types.DuplicateGroup
	for rows.Next() {
		var g types.DuplicateGroup
		if err := rows.Scan(&g.ID, &g.SessionID, &g.Hash, &g.CanonicalFileID, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, g := range groups {
		memberRows, err := s.db.QueryContext(ctx,
			"SELECT file_id FROM duplicate_members WHERE group_id = ? ORDER BY file_id", g.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list members for group %s: %w", g.ID, err)
		}
		for memberRows.Next() {
			var id string
			if err := memberRows.Scan(&id); err != nil {
				memberRows.Close()
				return nil, fmt.Errorf("failed to scan member row: %w", err)
			}
			g.MemberIDs = append(g.MemberIDs, id)
		}
		if err := memberRows.Err(); err != nil {
			memberRows.Close()
			return nil, err
		}
		memberRows.Close()
	}
	return groups, nil
}

// ClearDuplicateGroups removes a session's groups and resets member flags,
// allowing the analyzer to be re-run over the same session.
func (s *Store) ClearDuplicateGroups(ctx context.Context, sessionID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE files SET is_duplicate = 0, duplicate_of = ''
			WHERE session_id = ?`, sessionID)
		if err != nil {
			return fmt.Errorf("failed to reset duplicate flags: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			"DELETE FROM duplicate_groups WHERE session_id = ?", sessionID)
		if err != nil {
			return fmt.Errorf("failed to delete duplicate groups: %w", err)
		}
		return nil
	})
}
