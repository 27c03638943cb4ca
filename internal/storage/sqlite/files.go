package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/curatord/curator/internal/types"
)

const fileColumns = `id, session_id, path, size, mtime, quick_hash, full_hash,
	canonical_path, is_duplicate, duplicate_of, move_count, error_flag`

// InsertFileBatch writes a batch of file records in one transaction. The
// scanner calls this with batch_size records at a time.
func (s *Store) InsertFileBatch(ctx context.Context, records []*types.FileRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO files (id, session_id, path, size, mtime, quick_hash, full_hash,
				canonical_path, is_duplicate, duplicate_of, move_count, error_flag)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare file insert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			if err := rec.Validate(); err != nil {
				return fmt.Errorf("invalid file record %s: %w", rec.Path, err)
			}
			_, err := stmt.ExecContext(ctx, rec.ID, rec.SessionID, rec.Path, rec.Size,
				rec.ModTime, rec.QuickHash, rec.FullHash, rec.CanonicalPath,
				rec.IsDuplicate, rec.DuplicateOf, rec.MoveCount, rec.ErrorFlag)
			if err != nil {
				return fmt.Errorf("failed to insert file %s: %w", rec.Path, err)
			}
		}
		return nil
	})
}

// GetFile returns a file record by ID, or nil when not found
func (s *Store) GetFile(ctx context.Context, id string) (*types.FileRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+fileColumns+" FROM files WHERE id = ?", id)
	rec, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", id, err)
	}
	return rec, nil
}

// GetFileByPath looks a record up by its (session_id, path) identity
func (s *Store) GetFileByPath(ctx context.Context, sessionID, path string) (*types.FileRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+fileColumns+" FROM files WHERE session_id = ? AND path = ?", sessionID, path)
	rec, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", path, err)
	}
	return rec, nil
}

// ListFiles returns all records for a session ordered by path
func (s *Store) ListFiles(ctx context.Context, sessionID string) ([]*types.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+fileColumns+" FROM files WHERE session_id = ? ORDER BY path", sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var records []*types.FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SetFullHash persists a lazily computed full hash
func (s *Store) SetFullHash(ctx context.Context, fileID, fullHash string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE files SET full_hash = ? WHERE id = ?", fullHash, fileID)
	if err != nil {
		return fmt.Errorf("failed to set full hash for %s: %w", fileID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check full hash update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("file %s not found", fileID)
	}
	return nil
}

func scanFile(row rowScanner) (*types.FileRecord, error) {
	var rec types.FileRecord
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.Path, &rec.Size, &rec.ModTime,
		&rec.QuickHash, &rec.FullHash, &rec.CanonicalPath, &rec.IsDuplicate,
		&rec.DuplicateOf, &rec.MoveCount, &rec.ErrorFlag)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
