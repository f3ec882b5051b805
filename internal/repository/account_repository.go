package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/digkill/AIMultiverse/internal/models"
)

type AccountRepository struct {
	db DBTX
}

func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *AccountRepository) WithTx(tx DBTX) *AccountRepository {
	return &AccountRepository{db: tx}
}

const accountColumns = `id, name, email, password_hash, auth_provider, plan_type, credits, credits_unlimited, free_reset_date, plan_purchase_date, plan_expiry_date, is_admin, is_banned, chatbot_msg_count, version, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a                        models.Account
		unlimited, admin, banned int
		purchase, expiry         sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.AuthProvider, &a.PlanType, &a.Credits, &unlimited, &a.FreeResetDate, &purchase, &expiry, &admin, &banned, &a.ChatbotMsgCount, &a.Version, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.CreditsUnlimited = unlimited != 0
	a.IsAdmin = admin != 0
	a.IsBanned = banned != 0
	a.PlanPurchaseDate = timePtr(purchase)
	a.PlanExpiryDate = timePtr(expiry)
	a.FreeResetDate = a.FreeResetDate.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

func (r *AccountRepository) Create(ctx context.Context, a *models.Account) error {
	const query = `
INSERT INTO accounts (` + accountColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.FreeResetDate = dbTime(a.FreeResetDate)
	a.CreatedAt = dbTime(a.CreatedAt)
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Name, a.Email, a.PasswordHash, a.AuthProvider, a.PlanType, a.Credits, boolInt(a.CreditsUnlimited),
		a.FreeResetDate, nullTime(a.PlanPurchaseDate), nullTime(a.PlanExpiryDate),
		boolInt(a.IsAdmin), boolInt(a.IsBanned), a.ChatbotMsgCount, a.Version, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = ?`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) List(ctx context.Context) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// Update writes every mutable field if the stored version still matches a.Version.
// On success a.Version is advanced.
func (r *AccountRepository) Update(ctx context.Context, a *models.Account) error {
	const query = `
UPDATE accounts SET name = ?, password_hash = ?, plan_type = ?, credits = ?, credits_unlimited = ?, free_reset_date = ?,
    plan_purchase_date = ?, plan_expiry_date = ?, is_admin = ?, is_banned = ?, chatbot_msg_count = ?, version = version + 1
WHERE id = ? AND version = ?`
	a.FreeResetDate = dbTime(a.FreeResetDate)
	res, err := r.db.ExecContext(ctx, query,
		a.Name, a.PasswordHash, a.PlanType, a.Credits, boolInt(a.CreditsUnlimited), a.FreeResetDate,
		nullTime(a.PlanPurchaseDate), nullTime(a.PlanExpiryDate), boolInt(a.IsAdmin), boolInt(a.IsBanned), a.ChatbotMsgCount,
		a.ID, a.Version)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("account rows affected: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	a.Version++
	return nil
}

// SetBanned toggles the ban flag unconditionally. It reports whether the account exists.
func (r *AccountRepository) SetBanned(ctx context.Context, id string, banned bool) (bool, error) {
	const query = `UPDATE accounts SET is_banned = ?, version = version + 1 WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, boolInt(banned), id)
	if err != nil {
		return false, fmt.Errorf("set banned: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("banned rows affected: %w", err)
	}
	return affected > 0, nil
}
