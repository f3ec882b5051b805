package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/digkill/AIMultiverse/internal/models"
)

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) WithTx(tx DBTX) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

const paymentColumns = `id, account_id, account_name, plan_type, amount_usd, duration_months, method, sender_name, sender_account, sender_bank, transaction_id, status, created_at, updated_at`

func scanPayment(row rowScanner) (*models.PaymentRequest, error) {
	var p models.PaymentRequest
	if err := row.Scan(&p.ID, &p.AccountID, &p.AccountName, &p.PlanType, &p.AmountUSD, &p.DurationMonths, &p.Method, &p.SenderName, &p.SenderAccount, &p.SenderBank, &p.TransactionID, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.PaymentRequest) error {
	const query = `
INSERT INTO payment_requests (` + paymentColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	p.CreatedAt = dbTime(p.CreatedAt)
	p.UpdatedAt = dbTime(p.UpdatedAt)
	_, err := r.db.ExecContext(ctx, query, p.ID, p.AccountID, p.AccountName, p.PlanType, p.AmountUSD, p.DurationMonths, p.Method,
		p.SenderName, p.SenderAccount, p.SenderBank, p.TransactionID, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.PaymentRequest, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_requests WHERE id = ?`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return p, nil
}

// UpdateStatus moves a request from one status to another. It reports false
// when the request was not in the expected status.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, from, to models.PaymentStatus, now time.Time) (bool, error) {
	const query = `UPDATE payment_requests SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, query, to, dbTime(now), id, from)
	if err != nil {
		return false, fmt.Errorf("update payment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("payment rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *PaymentRepository) ListByAccount(ctx context.Context, accountID string) ([]models.PaymentRequest, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_requests WHERE account_id = ? ORDER BY created_at DESC, id`
	return r.list(ctx, query, accountID)
}

func (r *PaymentRepository) ListAll(ctx context.Context) ([]models.PaymentRequest, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_requests ORDER BY created_at DESC, id`
	return r.list(ctx, query)
}

func (r *PaymentRepository) list(ctx context.Context, query string, args ...any) ([]models.PaymentRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []models.PaymentRequest
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
