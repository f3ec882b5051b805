package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/digkill/AIMultiverse/internal/models"
	"github.com/digkill/AIMultiverse/internal/repository"
)

const maxComplaintLength = 4000

type SupportService struct {
	log        *slog.Logger
	accounts   *repository.AccountRepository
	complaints *repository.ComplaintRepository
	notifier   Notifier
	now        func() time.Time
}

func NewSupportService(log *slog.Logger, accounts *repository.AccountRepository, complaints *repository.ComplaintRepository, notifier Notifier) *SupportService {
	return &SupportService{
		log:        log,
		accounts:   accounts,
		complaints: complaints,
		notifier:   notifierOrNop(notifier),
		now:        time.Now,
	}
}

func (s *SupportService) SubmitComplaint(ctx context.Context, accountID string, kind models.ComplaintKind, message string) (*models.Complaint, error) {
	if kind != models.ComplaintIssue && kind != models.ComplaintSuggestion {
		return nil, fmt.Errorf("%w: kind must be issue or suggestion", ErrInvalidInput)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if len(message) > maxComplaintLength {
		return nil, fmt.Errorf("%w: message is too long", ErrInvalidInput)
	}

	acc, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}

	c := &models.Complaint{
		ID:           uuid.NewString(),
		AccountID:    acc.ID,
		AccountName:  acc.Name,
		AccountEmail: acc.Email,
		AccountPlan:  acc.PlanType,
		Kind:         kind,
		Message:      message,
		Status:       models.ComplaintPending,
		CreatedAt:    s.now(),
	}
	if err := s.complaints.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("complaint submitted", "complaint_id", c.ID, "account_id", acc.ID, "kind", kind)
	s.notifier.ComplaintSubmitted(ctx, c)
	return c, nil
}

func (s *SupportService) ListComplaints(ctx context.Context) ([]models.Complaint, error) {
	return s.complaints.ListAll(ctx)
}

func (s *SupportService) ListAccountComplaints(ctx context.Context, accountID string) ([]models.Complaint, error) {
	return s.complaints.ListByAccount(ctx, accountID)
}

// ReplyComplaint stores the admin reply and marks the complaint resolved.
func (s *SupportService) ReplyComplaint(ctx context.Context, complaintID, reply string) (*models.Complaint, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, fmt.Errorf("%w: reply is required", ErrInvalidInput)
	}
	ok, err := s.complaints.Reply(ctx, complaintID, reply)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("complaint %s: %w", complaintID, ErrNotFound)
	}
	return s.complaints.FindByID(ctx, complaintID)
}
