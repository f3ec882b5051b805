package service_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/digkill/AIMultiverse/internal/catalog"
	"github.com/digkill/AIMultiverse/internal/database/dbtest"
	"github.com/digkill/AIMultiverse/internal/models"
	"github.com/digkill/AIMultiverse/internal/repository"
	"github.com/digkill/AIMultiverse/internal/service"
)

var epoch = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu         sync.Mutex
	payments   []*models.PaymentRequest
	complaints []*models.Complaint
}

func (n *recordingNotifier) PaymentRecorded(_ context.Context, p *models.PaymentRequest) {
	n.mu.Lock()
	n.payments = append(n.payments, p)
	n.mu.Unlock()
}

func (n *recordingNotifier) ComplaintSubmitted(_ context.Context, c *models.Complaint) {
	n.mu.Lock()
	n.complaints = append(n.complaints, c)
	n.mu.Unlock()
}

type ledgerFixture struct {
	db       *sql.DB
	clock    *testClock
	ledger   *service.LedgerService
	accounts *repository.AccountRepository
	notifier *recordingNotifier
}

func newLedgerFixture(t *testing.T, autoApprove bool) *ledgerFixture {
	t.Helper()
	db := dbtest.Open(t)
	clock := &testClock{t: epoch}
	notifier := &recordingNotifier{}
	ledger := service.NewLedgerService(db, discardLogger(), catalog.Default(), service.LedgerOptions{
		AutoApprovePayments: autoApprove,
		Notifier:            notifier,
		Now:                 clock.Now,
	})
	return &ledgerFixture{
		db:       db,
		clock:    clock,
		ledger:   ledger,
		accounts: repository.NewAccountRepository(db),
		notifier: notifier,
	}
}

// seed stores a free account with 1000 credits, adjusted by mutate.
func (f *ledgerFixture) seed(t *testing.T, mutate func(*models.Account)) *models.Account {
	t.Helper()
	acc := &models.Account{
		ID:            uuid.NewString(),
		Name:          "Test User",
		Email:         uuid.NewString()[:8] + "@example.com",
		AuthProvider:  models.AuthEmail,
		PlanType:      models.PlanFree,
		Credits:       1000,
		FreeResetDate: epoch.AddDate(0, 0, 30),
		CreatedAt:     epoch,
	}
	if mutate != nil {
		mutate(acc)
	}
	require.NoError(t, f.accounts.Create(context.Background(), acc))
	return acc
}

func (f *ledgerFixture) reload(t *testing.T, id string) *models.Account {
	t.Helper()
	acc, err := f.accounts.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, acc)
	return acc
}

func timePtr(t time.Time) *time.Time { return &t }
