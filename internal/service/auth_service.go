package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/digkill/AIMultiverse/internal/catalog"
	"github.com/digkill/AIMultiverse/internal/models"
	"github.com/digkill/AIMultiverse/internal/repository"
)

const minPasswordLength = 6

// AuthService creates and authenticates accounts.
type AuthService struct {
	log      *slog.Logger
	catalog  *catalog.Catalog
	accounts *repository.AccountRepository
	now      func() time.Time
}

func NewAuthService(log *slog.Logger, cat *catalog.Catalog, accounts *repository.AccountRepository, now func() time.Time) *AuthService {
	if now == nil {
		now = time.Now
	}
	return &AuthService{log: log, catalog: cat, accounts: accounts, now: now}
}

func (s *AuthService) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

func (s *AuthService) newFreeAccount(name, email string, provider models.AuthProvider) *models.Account {
	now := s.clock()
	free := s.catalog.FreePlan()
	return &models.Account{
		ID:               uuid.NewString(),
		Name:             name,
		Email:            email,
		AuthProvider:     provider,
		PlanType:         models.PlanFree,
		Credits:          free.Credits,
		CreditsUnlimited: free.Unlimited,
		FreeResetDate:    now.AddDate(0, 0, s.catalog.FreeResetDays),
		CreatedAt:        now,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	return email, nil
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	existing, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc := s.newFreeAccount(name, email, models.AuthEmail)
	acc.PasswordHash = string(hash)
	if err := s.accounts.Create(ctx, acc); err != nil {
		return nil, err
	}
	s.log.Info("account registered", "account_id", acc.ID)
	return acc, nil
}

// Login checks credentials. Banned accounts may still sign in.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Account, error) {
	acc, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if acc == nil || acc.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}
	return acc, nil
}

// GuestLogin creates a throwaway account with a smaller, shorter grant.
func (s *AuthService) GuestLogin(ctx context.Context) (*models.Account, error) {
	id := uuid.NewString()
	short := strings.ReplaceAll(id, "-", "")[:9]
	acc := s.newFreeAccount("Guest User", "guest_"+short+"@temp.local", models.AuthGuest)
	acc.ID = id
	acc.Credits = s.catalog.GuestCredits
	acc.CreditsUnlimited = false
	acc.FreeResetDate = s.clock().AddDate(0, 0, s.catalog.GuestResetDays)
	if err := s.accounts.Create(ctx, acc); err != nil {
		return nil, err
	}
	s.log.Info("guest account created", "account_id", acc.ID)
	return acc, nil
}

// SocialLogin creates a fresh account for a provider sign-in. The provider's
// identity assertion is not verified, so it never resolves to an existing account.
func (s *AuthService) SocialLogin(ctx context.Context, provider models.AuthProvider, name string) (*models.Account, error) {
	var fallback string
	switch provider {
	case models.AuthGoogle:
		fallback = "Google User"
	case models.AuthYahoo:
		fallback = "Yahoo User"
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrInvalidInput, provider)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fallback
	}

	id := uuid.NewString()
	short := strings.ReplaceAll(id, "-", "")[:9]
	acc := s.newFreeAccount(name, fmt.Sprintf("%s_user_%s@social.local", provider, short), provider)
	acc.ID = id
	if err := s.accounts.Create(ctx, acc); err != nil {
		return nil, err
	}
	s.log.Info("social account created", "account_id", acc.ID, "provider", provider)
	return acc, nil
}

// EnsureAdmin creates or promotes the bootstrap administrator on the top tier.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, name string) (*models.Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: admin password is required", ErrInvalidInput)
	}
	top, err := s.catalog.Plan(models.PlanPremium2Year)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock()
	expiry := now.AddDate(0, top.DurationMonths, 0)

	acc, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = s.newFreeAccount(name, email, models.AuthEmail)
		acc.PasswordHash = string(hash)
		acc.PlanType = top.Type
		acc.CreditsUnlimited = top.Unlimited
		acc.Credits = top.Credits
		acc.PlanPurchaseDate = &now
		acc.PlanExpiryDate = &expiry
		acc.IsAdmin = true
		if err := s.accounts.Create(ctx, acc); err != nil {
			return nil, err
		}
		s.log.Info("admin account created", "account_id", acc.ID)
		return acc, nil
	}

	acc.PasswordHash = string(hash)
	acc.IsAdmin = true
	acc.IsBanned = false
	if acc.PlanType != top.Type || acc.PlanExpiryDate == nil || acc.PlanExpiryDate.Before(now) {
		acc.PlanType = top.Type
		acc.CreditsUnlimited = top.Unlimited
		acc.Credits = top.Credits
		acc.PlanPurchaseDate = &now
		acc.PlanExpiryDate = &expiry
	}
	if err := s.accounts.Update(ctx, acc); err != nil {
		return nil, fmt.Errorf("promote admin: %w", err)
	}
	return acc, nil
}
