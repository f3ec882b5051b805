package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/AIMultiverse/internal/auth"
	"github.com/digkill/AIMultiverse/internal/catalog"
	"github.com/digkill/AIMultiverse/internal/database/dbtest"
	"github.com/digkill/AIMultiverse/internal/live"
	"github.com/digkill/AIMultiverse/internal/models"
	"github.com/digkill/AIMultiverse/internal/repository"
	"github.com/digkill/AIMultiverse/internal/service"
)

type fixture struct {
	server   *Server
	ledger   *service.LedgerService
	support  *service.SupportService
	accounts *repository.AccountRepository
	sessions *live.Sessions
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := dbtest.Open(t)
	accounts := repository.NewAccountRepository(db)
	ledger := service.NewLedgerService(db, log, catalog.Default(), service.LedgerOptions{})
	support := service.NewSupportService(log, accounts, repository.NewComplaintRepository(db), nil)
	sessions := live.NewSessions()
	return &fixture{
		server:   NewServer(log, ledger, support, sessions),
		ledger:   ledger,
		support:  support,
		accounts: accounts,
		sessions: sessions,
	}
}

func (f *fixture) seed(t *testing.T, admin bool) *models.Account {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	acc := &models.Account{
		ID:            uuid.NewString(),
		Name:          "User",
		Email:         uuid.NewString()[:8] + "@example.com",
		AuthProvider:  models.AuthEmail,
		PlanType:      models.PlanFree,
		Credits:       1000,
		FreeResetDate: now.AddDate(0, 0, 30),
		IsAdmin:       admin,
		CreatedAt:     now,
	}
	require.NoError(t, f.accounts.Create(context.Background(), acc))
	return acc
}

func (f *fixture) do(t *testing.T, caller *models.Account, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if caller != nil {
		claims := &auth.Claims{}
		claims.Subject = caller.ID
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func TestRequireAdmin(t *testing.T) {
	f := newFixture(t)
	user := f.seed(t, false)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, nil, "GET", "/users", nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, user, "GET", "/users", nil).Code)

	// Rights are read from storage on each request.
	admin := f.seed(t, true)
	assert.Equal(t, http.StatusOK, f.do(t, admin, "GET", "/users", nil).Code)
	require.NoError(t, f.ledger.BanAccount(context.Background(), admin.ID, true))
	assert.Equal(t, http.StatusForbidden, f.do(t, admin, "GET", "/users", nil).Code)
}

func TestListUsers(t *testing.T) {
	f := newFixture(t)
	admin := f.seed(t, true)
	f.seed(t, false)

	rec := f.do(t, admin, "GET", "/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []models.Account
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&users))
	assert.Len(t, users, 2)
}

func TestBan(t *testing.T) {
	f := newFixture(t)
	admin := f.seed(t, true)
	user := f.seed(t, false)

	assert.Equal(t, http.StatusBadRequest, f.do(t, admin, "POST", "/users/"+admin.ID+"/ban", map[string]bool{"banned": true}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, admin, "POST", "/users/"+user.ID+"/ban", map[string]string{}).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, admin, "POST", "/users/nobody/ban", map[string]bool{"banned": true}).Code)

	require.Equal(t, http.StatusOK, f.do(t, admin, "POST", "/users/"+user.ID+"/ban", map[string]bool{"banned": true}).Code)
	acc, err := f.accounts.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, acc.IsBanned)

	_, err = f.ledger.Charge(context.Background(), user.ID, models.ActionTranslate, 1)
	assert.ErrorIs(t, err, service.ErrAccountBanned)

	require.Equal(t, http.StatusOK, f.do(t, admin, "POST", "/users/"+user.ID+"/ban", map[string]bool{"banned": false}).Code)
	acc, err = f.accounts.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, acc.IsBanned)
}

func TestUserHistory(t *testing.T) {
	f := newFixture(t)
	admin := f.seed(t, true)
	user := f.seed(t, false)
	_, err := f.ledger.Charge(context.Background(), user.ID, models.ActionDocAI, 20)
	require.NoError(t, err)

	rec := f.do(t, admin, "GET", "/users/"+user.ID+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []models.UsageRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	require.Len(t, history, 1)
	assert.Equal(t, models.ActionDocAI, history[0].ActionKind)
	assert.EqualValues(t, 20, history[0].CreditsDeducted)
}

func TestSettlePayments(t *testing.T) {
	f := newFixture(t)
	admin := f.seed(t, true)
	user := f.seed(t, false)
	ctx := context.Background()

	approveMe, err := f.ledger.RecordPayment(ctx, user.ID, service.PaymentInput{
		Plan: models.PlanPremiumYear, Method: models.PaymentBank, SenderAccount: "123", SenderBank: "HBL",
	})
	require.NoError(t, err)
	rejectMe, err := f.ledger.RecordPayment(ctx, user.ID, service.PaymentInput{
		Plan: models.PlanPremium3Month, Method: models.PaymentJazzCash, SenderAccount: "0300",
	})
	require.NoError(t, err)

	rec := f.do(t, admin, "GET", "/payments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var payments []models.PaymentRequest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&payments))
	assert.Len(t, payments, 2)

	rec = f.do(t, admin, "POST", "/payments/"+approveMe.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var approved models.PaymentRequest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&approved))
	assert.Equal(t, models.PaymentApproved, approved.Status)

	acc, err := f.accounts.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPremiumYear, acc.PlanType)
	assert.EqualValues(t, 35000, acc.Credits)

	rec = f.do(t, admin, "POST", "/payments/"+rejectMe.ID+"/reject", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	acc, err = f.accounts.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPremiumYear, acc.PlanType)

	assert.Equal(t, http.StatusNotFound, f.do(t, admin, "POST", "/payments/missing/approve", nil).Code)
}

func TestReplyComplaint(t *testing.T) {
	f := newFixture(t)
	admin := f.seed(t, true)
	user := f.seed(t, false)
	c, err := f.support.SubmitComplaint(context.Background(), user.ID, models.ComplaintSuggestion, "dark mode please")
	require.NoError(t, err)

	rec := f.do(t, admin, "GET", "/complaints", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusBadRequest, f.do(t, admin, "POST", "/complaints/"+c.ID+"/reply", map[string]string{"reply": " "}).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, admin, "POST", "/complaints/missing/reply", map[string]string{"reply": "ok"}).Code)

	rec = f.do(t, admin, "POST", "/complaints/"+c.ID+"/reply", map[string]string{"reply": "on the roadmap"})
	require.Equal(t, http.StatusOK, rec.Code)
	var replied models.Complaint
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&replied))
	assert.Equal(t, models.ComplaintResolved, replied.Status)
	assert.Equal(t, "on the roadmap", replied.AdminReply)
}

func TestLiveSessions(t *testing.T) {
	f := newFixture(t)
	admin := f.seed(t, true)
	f.sessions.Acquire("acc-9", time.Now())

	rec := f.do(t, admin, "GET", "/live", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []live.ActiveSession
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "acc-9", sessions[0].AccountID)
}
