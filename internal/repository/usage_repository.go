package repository

import (
	"context"
	"fmt"

	"github.com/digkill/AIMultiverse/internal/models"
)

type UsageRepository struct {
	db DBTX
}

func NewUsageRepository(db DBTX) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) WithTx(tx DBTX) *UsageRepository {
	return &UsageRepository{db: tx}
}

func (r *UsageRepository) Insert(ctx context.Context, rec *models.UsageRecord) error {
	const query = `
INSERT INTO usage_records (id, account_id, action_kind, credits_deducted, created_at)
VALUES (?, ?, ?, ?, ?)`
	rec.CreatedAt = dbTime(rec.CreatedAt)
	if _, err := r.db.ExecContext(ctx, query, rec.ID, rec.AccountID, rec.ActionKind, rec.CreditsDeducted, rec.CreatedAt); err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

func (r *UsageRepository) CountByKind(ctx context.Context, accountID string, kind models.ActionKind) (int, error) {
	const query = `SELECT COUNT(*) FROM usage_records WHERE account_id = ? AND action_kind = ?`
	var count int
	if err := r.db.QueryRowContext(ctx, query, accountID, kind).Scan(&count); err != nil {
		return 0, fmt.Errorf("count usage: %w", err)
	}
	return count, nil
}

// ListByAccount returns an account's records, newest first.
func (r *UsageRepository) ListByAccount(ctx context.Context, accountID string) ([]models.UsageRecord, error) {
	const query = `
SELECT id, account_id, action_kind, credits_deducted, created_at
FROM usage_records WHERE account_id = ? ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var rec models.UsageRecord
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.ActionKind, &rec.CreditsDeducted, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}
