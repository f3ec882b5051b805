package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/AIMultiverse/internal/models"
)

type FileRepository struct {
	db DBTX
}

func NewFileRepository(db DBTX) *FileRepository {
	return &FileRepository{db: db}
}

const fileColumns = `id, account_id, kind, name, url, storage_key, created_at`

func scanFile(row rowScanner) (*models.SavedFile, error) {
	var f models.SavedFile
	if err := row.Scan(&f.ID, &f.AccountID, &f.Kind, &f.Name, &f.URL, &f.StorageKey, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.CreatedAt = f.CreatedAt.UTC()
	return &f, nil
}

func (r *FileRepository) Create(ctx context.Context, f *models.SavedFile) error {
	const query = `
INSERT INTO saved_files (` + fileColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	f.CreatedAt = dbTime(f.CreatedAt)
	if _, err := r.db.ExecContext(ctx, query, f.ID, f.AccountID, f.Kind, f.Name, f.URL, f.StorageKey, f.CreatedAt); err != nil {
		return fmt.Errorf("insert saved file: %w", err)
	}
	return nil
}

func (r *FileRepository) FindByID(ctx context.Context, id string) (*models.SavedFile, error) {
	query := `SELECT ` + fileColumns + ` FROM saved_files WHERE id = ?`
	f, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan saved file: %w", err)
	}
	return f, nil
}

// ListByAccount returns the account's files, newest first.
func (r *FileRepository) ListByAccount(ctx context.Context, accountID string) ([]models.SavedFile, error) {
	query := `SELECT ` + fileColumns + ` FROM saved_files WHERE account_id = ? ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list saved files: %w", err)
	}
	defer rows.Close()

	var out []models.SavedFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saved file: %w", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// Delete removes a file owned by accountID and reports whether a row was removed.
func (r *FileRepository) Delete(ctx context.Context, id, accountID string) (bool, error) {
	const query = `DELETE FROM saved_files WHERE id = ? AND account_id = ?`
	res, err := r.db.ExecContext(ctx, query, id, accountID)
	if err != nil {
		return false, fmt.Errorf("delete saved file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("saved file rows affected: %w", err)
	}
	return affected > 0, nil
}
