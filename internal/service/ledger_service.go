package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/digkill/AIMultiverse/internal/catalog"
	"github.com/digkill/AIMultiverse/internal/models"
	"github.com/digkill/AIMultiverse/internal/repository"
)

// maxUpdateAttempts bounds optimistic retries on a contended account.
const maxUpdateAttempts = 5

// LedgerService owns credits, plans, permissions and payment requests.
type LedgerService struct {
	db          *sql.DB
	log         *slog.Logger
	catalog     *catalog.Catalog
	accounts    *repository.AccountRepository
	usage       *repository.UsageRepository
	payments    *repository.PaymentRepository
	notifier    Notifier
	autoApprove bool
	now         func() time.Time
}

type LedgerOptions struct {
	AutoApprovePayments bool
	Notifier            Notifier
	Now                 func() time.Time
}

func NewLedgerService(db *sql.DB, log *slog.Logger, cat *catalog.Catalog, opts LedgerOptions) *LedgerService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &LedgerService{
		db:          db,
		log:         log,
		catalog:     cat,
		accounts:    repository.NewAccountRepository(db),
		usage:       repository.NewUsageRepository(db),
		payments:    repository.NewPaymentRepository(db),
		notifier:    notifierOrNop(opts.Notifier),
		autoApprove: opts.AutoApprovePayments,
		now:         now,
	}
}

func (s *LedgerService) Catalog() *catalog.Catalog {
	return s.catalog
}

func (s *LedgerService) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// ResolveAccount loads an account and persists any due free-tier reset or plan expiry.
func (s *LedgerService) ResolveAccount(ctx context.Context, accountID string) (*models.Account, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		acc, err := s.accounts.FindByID(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("load account: %w", err)
		}
		if acc == nil {
			return nil, ErrAccountNotFound
		}
		if !s.applyTimeRules(acc, s.clock()) {
			return acc, nil
		}
		err = s.accounts.Update(ctx, acc)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		s.log.Info("account entitlement refreshed", "account_id", acc.ID, "plan", acc.PlanType)
		return acc, nil
	}
	return nil, ErrConcurrentUpdate
}

// applyTimeRules mutates acc for a due free reset and then a lapsed plan.
func (s *LedgerService) applyTimeRules(acc *models.Account, now time.Time) bool {
	free := s.catalog.FreePlan()
	window := time.Duration(s.catalog.FreeResetDays) * 24 * time.Hour
	changed := false

	if acc.PlanType == models.PlanFree && !now.Before(acc.FreeResetDate) {
		acc.Credits = free.Credits
		acc.CreditsUnlimited = free.Unlimited
		acc.FreeResetDate = now.Add(window)
		changed = true
	}

	if acc.PlanExpiryDate != nil && now.After(*acc.PlanExpiryDate) {
		acc.PlanType = models.PlanFree
		acc.Credits = free.Credits
		acc.CreditsUnlimited = free.Unlimited
		acc.PlanExpiryDate = nil
		acc.FreeResetDate = now.Add(window)
		changed = true
	}
	return changed
}

// CheckPermission reports whether the account's plan allows another use of kind.
// Non-premium kinds are always allowed.
func (s *LedgerService) CheckPermission(ctx context.Context, acc *models.Account, kind models.ActionKind) (bool, error) {
	return s.checkPermission(ctx, s.usage, acc, kind)
}

func (s *LedgerService) checkPermission(ctx context.Context, usage *repository.UsageRepository, acc *models.Account, kind models.ActionKind) (bool, error) {
	if acc == nil {
		return false, nil
	}
	feature, err := s.catalog.Feature(kind)
	if err != nil {
		return false, err
	}
	if !feature.Premium {
		return true, nil
	}

	plan, err := s.catalog.Plan(acc.PlanType)
	if err != nil {
		return false, err
	}
	if plan.Blocks(kind) {
		return false, nil
	}
	if plan.PremiumLimit > 0 {
		used, err := usage.CountByKind(ctx, acc.ID, kind)
		if err != nil {
			return false, err
		}
		if used >= plan.PremiumLimit {
			return false, nil
		}
	}
	return true, nil
}

// DeductCredits charges amount for kind. Entitlement denials return false with a nil error.
func (s *LedgerService) DeductCredits(ctx context.Context, accountID string, amount int64, kind models.ActionKind) (bool, error) {
	if _, err := s.Charge(ctx, accountID, kind, amount); err != nil {
		if IsDenial(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Charge debits the account and appends a usage record in one transaction.
// Batched kinds ignore amount and bill the catalog cost once per batch.
func (s *LedgerService) Charge(ctx context.Context, accountID string, kind models.ActionKind, amount int64) (*models.UsageRecord, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	feature, err := s.catalog.Feature(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var record *models.UsageRecord
		err := repository.InTx(ctx, s.db, func(tx *sql.Tx) error {
			accounts := s.accounts.WithTx(tx)
			usage := s.usage.WithTx(tx)

			acc, err := accounts.FindByID(ctx, accountID)
			if err != nil {
				return fmt.Errorf("load account: %w", err)
			}
			if acc == nil {
				return ErrAccountNotFound
			}

			now := s.clock()
			s.applyTimeRules(acc, now)

			if acc.IsBanned {
				return ErrAccountBanned
			}
			allowed, err := s.checkPermission(ctx, usage, acc, kind)
			if err != nil {
				return err
			}
			if !allowed {
				return ErrPermissionDenied
			}

			cost := amount
			switch {
			case acc.CreditsUnlimited:
				cost = 0
			case kind == models.ActionChatbot && feature.BatchSize > 1:
				next := acc.ChatbotMsgCount + 1
				cost = 0
				if next%feature.BatchSize == 0 {
					cost = feature.Cost
					if acc.Credits < cost {
						return ErrInsufficientCredits
					}
				}
				acc.ChatbotMsgCount = next
				acc.Credits -= cost
			default:
				if acc.Credits < cost {
					return ErrInsufficientCredits
				}
				acc.Credits -= cost
			}

			if err := accounts.Update(ctx, acc); err != nil {
				return err
			}

			record = &models.UsageRecord{
				ID:              uuid.NewString(),
				AccountID:       acc.ID,
				ActionKind:      kind,
				CreditsDeducted: cost,
				CreatedAt:       now,
			}
			return usage.Insert(ctx, record)
		})
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return record, nil
	}
	return nil, ErrConcurrentUpdate
}

type PaymentInput struct {
	Plan          models.PlanType
	Method        models.PaymentMethod
	SenderName    string
	SenderAccount string
	SenderBank    string
	TransactionID string
}

// RecordPayment files a payment request priced from the catalog and, when
// auto-approval is on, applies the plan immediately.
func (s *LedgerService) RecordPayment(ctx context.Context, accountID string, in PaymentInput) (*models.PaymentRequest, error) {
	plan, err := s.catalog.Plan(in.Plan)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !plan.Purchasable() {
		return nil, fmt.Errorf("%w: plan %s cannot be purchased", ErrInvalidInput, in.Plan)
	}
	method, ok := s.catalog.PaymentMethods[in.Method]
	if !ok || !method.Enabled {
		return nil, fmt.Errorf("%w: payment method %q is not available", ErrInvalidInput, in.Method)
	}
	in.SenderName = strings.TrimSpace(in.SenderName)
	in.SenderAccount = strings.TrimSpace(in.SenderAccount)
	in.SenderBank = strings.TrimSpace(in.SenderBank)
	if in.SenderAccount == "" {
		return nil, fmt.Errorf("%w: sender account is required", ErrInvalidInput)
	}
	if in.Method == models.PaymentBank && in.SenderBank == "" {
		return nil, fmt.Errorf("%w: sender bank is required", ErrInvalidInput)
	}

	acc, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}

	now := s.clock()
	req := &models.PaymentRequest{
		ID:             uuid.NewString(),
		AccountID:      acc.ID,
		AccountName:    acc.Name,
		PlanType:       plan.Type,
		AmountUSD:      plan.PriceUSD,
		DurationMonths: plan.DurationMonths,
		Method:         in.Method,
		SenderName:     in.SenderName,
		SenderAccount:  in.SenderAccount,
		SenderBank:     in.SenderBank,
		TransactionID:  strings.TrimSpace(in.TransactionID),
		Status:         models.PaymentPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.payments.Create(ctx, req); err != nil {
		return nil, err
	}
	s.log.Info("payment request recorded", "payment_id", req.ID, "account_id", acc.ID, "plan", plan.Type, "method", in.Method)

	if s.autoApprove {
		approved, err := s.ApprovePayment(ctx, req.ID)
		if err != nil {
			return nil, fmt.Errorf("auto approve payment: %w", err)
		}
		req = approved
	}

	s.notifier.PaymentRecorded(ctx, req)
	return req, nil
}

// ApprovePayment applies the requested plan. Requests that are no longer pending are returned unchanged.
func (s *LedgerService) ApprovePayment(ctx context.Context, paymentID string) (*models.PaymentRequest, error) {
	return s.settlePayment(ctx, paymentID, models.PaymentApproved)
}

// RejectPayment marks a pending request rejected without touching the account.
func (s *LedgerService) RejectPayment(ctx context.Context, paymentID string) (*models.PaymentRequest, error) {
	return s.settlePayment(ctx, paymentID, models.PaymentRejected)
}

func (s *LedgerService) settlePayment(ctx context.Context, paymentID string, to models.PaymentStatus) (*models.PaymentRequest, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var result *models.PaymentRequest
		err := repository.InTx(ctx, s.db, func(tx *sql.Tx) error {
			payments := s.payments.WithTx(tx)
			req, err := payments.FindByID(ctx, paymentID)
			if err != nil {
				return fmt.Errorf("load payment: %w", err)
			}
			if req == nil {
				return fmt.Errorf("payment %s: %w", paymentID, ErrNotFound)
			}
			result = req
			if req.Status != models.PaymentPending {
				return nil
			}

			now := s.clock()
			moved, err := payments.UpdateStatus(ctx, req.ID, models.PaymentPending, to, now)
			if err != nil {
				return err
			}
			if !moved {
				return nil
			}
			req.Status = to
			req.UpdatedAt = now

			if to != models.PaymentApproved {
				return nil
			}
			return s.applyPlan(ctx, s.accounts.WithTx(tx), req, now)
		})
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if result.Status == to {
			s.log.Info("payment settled", "payment_id", result.ID, "status", to)
		}
		return result, nil
	}
	return nil, ErrConcurrentUpdate
}

func (s *LedgerService) applyPlan(ctx context.Context, accounts *repository.AccountRepository, req *models.PaymentRequest, now time.Time) error {
	plan, err := s.catalog.Plan(req.PlanType)
	if err != nil {
		return err
	}
	acc, err := accounts.FindByID(ctx, req.AccountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if acc == nil {
		return ErrAccountNotFound
	}

	expiry := now.AddDate(0, req.DurationMonths, 0)
	purchase := now
	acc.PlanType = plan.Type
	acc.CreditsUnlimited = plan.Unlimited
	acc.Credits = plan.Credits
	if plan.Unlimited {
		acc.Credits = 0
	}
	acc.PlanPurchaseDate = &purchase
	acc.PlanExpiryDate = &expiry
	return accounts.Update(ctx, acc)
}

// BanAccount sets the banned flag. Callers are expected to refuse self-bans.
func (s *LedgerService) BanAccount(ctx context.Context, accountID string, banned bool) error {
	ok, err := s.accounts.SetBanned(ctx, accountID, banned)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccountNotFound
	}
	s.log.Info("account ban updated", "account_id", accountID, "banned", banned)
	return nil
}

func (s *LedgerService) History(ctx context.Context, accountID string) ([]models.UsageRecord, error) {
	return s.usage.ListByAccount(ctx, accountID)
}

func (s *LedgerService) Payments(ctx context.Context, accountID string) ([]models.PaymentRequest, error) {
	return s.payments.ListByAccount(ctx, accountID)
}

func (s *LedgerService) AllPayments(ctx context.Context) ([]models.PaymentRequest, error) {
	return s.payments.ListAll(ctx)
}

func (s *LedgerService) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return s.accounts.List(ctx)
}
