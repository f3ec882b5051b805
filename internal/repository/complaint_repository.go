package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/AIMultiverse/internal/models"
)

type ComplaintRepository struct {
	db DBTX
}

func NewComplaintRepository(db DBTX) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

const complaintColumns = `id, account_id, account_name, account_email, account_plan, kind, message, admin_reply, status, created_at`

func scanComplaint(row rowScanner) (*models.Complaint, error) {
	var (
		c     models.Complaint
		reply sql.NullString
	)
	if err := row.Scan(&c.ID, &c.AccountID, &c.AccountName, &c.AccountEmail, &c.AccountPlan, &c.Kind, &c.Message, &reply, &c.Status, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.AdminReply = reply.String
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (r *ComplaintRepository) Create(ctx context.Context, c *models.Complaint) error {
	const query = `
INSERT INTO complaints (` + complaintColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?)`
	c.CreatedAt = dbTime(c.CreatedAt)
	_, err := r.db.ExecContext(ctx, query, c.ID, c.AccountID, c.AccountName, c.AccountEmail, c.AccountPlan, c.Kind, c.Message, c.AdminReply, c.Status, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert complaint: %w", err)
	}
	return nil
}

func (r *ComplaintRepository) FindByID(ctx context.Context, id string) (*models.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = ?`
	c, err := scanComplaint(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan complaint: %w", err)
	}
	return c, nil
}

// Reply stores the admin reply and resolves the complaint. It reports whether the complaint exists.
func (r *ComplaintRepository) Reply(ctx context.Context, id, reply string) (bool, error) {
	const query = `UPDATE complaints SET admin_reply = ?, status = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, reply, models.ComplaintResolved, id)
	if err != nil {
		return false, fmt.Errorf("reply complaint: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complaint rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *ComplaintRepository) ListByAccount(ctx context.Context, accountID string) ([]models.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE account_id = ? ORDER BY created_at DESC, id`
	return r.list(ctx, query, accountID)
}

func (r *ComplaintRepository) ListAll(ctx context.Context) ([]models.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints ORDER BY created_at DESC, id`
	return r.list(ctx, query)
}

func (r *ComplaintRepository) list(ctx context.Context, query string, args ...any) ([]models.Complaint, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	defer rows.Close()

	var out []models.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
