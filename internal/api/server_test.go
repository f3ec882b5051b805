package api_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/AIMultiverse/internal/models"
)

type sessionBody struct {
	Token   string          `json:"token"`
	Account *models.Account `json:"account"`
}

type meBody struct {
	Account *models.Account `json:"account"`
	Plan    struct {
		Type models.PlanType `json:"type"`
	} `json:"plan"`
}

func TestHealthAndStatus(t *testing.T) {
	f := newFixture(t, false)

	resp, err := http.Get(f.srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	var status struct {
		AI      bool   `json:"ai"`
		Live    bool   `json:"live"`
		Storage string `json:"storage"`
	}
	require.Equal(t, http.StatusOK, f.do(t, "GET", "/api/status", "", nil, &status))
	assert.False(t, status.AI)
	assert.False(t, status.Live)
	assert.Equal(t, "inline", status.Storage)
}

func TestPlansAndPaymentMethods(t *testing.T) {
	f := newFixture(t, false)

	var plans struct {
		Plans []struct {
			Type models.PlanType `json:"type"`
		} `json:"plans"`
		Features map[string]struct {
			Cost int64 `json:"cost"`
		} `json:"features"`
		VoiceCloneCostPerSecond int64   `json:"voiceCloneCostPerSecond"`
		VoiceCloneMinSeconds    float64 `json:"voiceCloneMinSeconds"`
		VoiceCloneMaxSeconds    float64 `json:"voiceCloneMaxSeconds"`
	}
	require.Equal(t, http.StatusOK, f.do(t, "GET", "/api/plans", "", nil, &plans))
	require.Len(t, plans.Plans, 5)
	assert.Equal(t, models.PlanFree, plans.Plans[0].Type)
	assert.Equal(t, models.PlanPremium2Year, plans.Plans[4].Type)
	assert.EqualValues(t, 150, plans.Features["IMAGE_TO_VIDEO"].Cost)
	assert.EqualValues(t, 5, plans.VoiceCloneCostPerSecond)
	assert.EqualValues(t, 5, plans.VoiceCloneMinSeconds)
	assert.EqualValues(t, 60, plans.VoiceCloneMaxSeconds)

	var methods []struct {
		Method  models.PaymentMethod `json:"method"`
		Enabled bool                 `json:"enabled"`
	}
	require.Equal(t, http.StatusOK, f.do(t, "GET", "/api/payments/methods", "", nil, &methods))
	assert.Len(t, methods, 3)
}

func TestRegisterLoginAndMe(t *testing.T) {
	f := newFixture(t, false)

	var reg sessionBody
	status := f.do(t, "POST", "/api/auth/register", "", map[string]string{
		"name": "Ada", "email": "Ada@Example.com", "password": "secret1",
	}, &reg)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, reg.Token)
	assert.Equal(t, "ada@example.com", reg.Account.Email)

	var dup errorBody
	status = f.do(t, "POST", "/api/auth/register", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "secret1",
	}, &dup)
	assert.Equal(t, http.StatusConflict, status)

	var bad errorBody
	status = f.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "wrong"}, &bad)
	assert.Equal(t, http.StatusUnauthorized, status)

	var login sessionBody
	status = f.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "secret1"}, &login)
	require.Equal(t, http.StatusOK, status)

	var me meBody
	require.Equal(t, http.StatusOK, f.do(t, "GET", "/api/me", login.Token, nil, &me))
	assert.Equal(t, reg.Account.ID, me.Account.ID)
	assert.EqualValues(t, 1000, me.Account.Credits)
	assert.Equal(t, models.PlanFree, me.Plan.Type)
}

func TestGuestAndSocialLogin(t *testing.T) {
	f := newFixture(t, false)

	var guest sessionBody
	require.Equal(t, http.StatusCreated, f.do(t, "POST", "/api/auth/guest", "", nil, &guest))
	assert.Equal(t, models.AuthGuest, guest.Account.AuthProvider)
	assert.EqualValues(t, 500, guest.Account.Credits)

	var social sessionBody
	body := map[string]string{"provider": "google", "name": "Grace"}
	require.Equal(t, http.StatusCreated, f.do(t, "POST", "/api/auth/social", "", body, &social))
	assert.Equal(t, "Grace", social.Account.Name)
	assert.Equal(t, models.AuthGoogle, social.Account.AuthProvider)
	var again sessionBody
	require.Equal(t, http.StatusCreated, f.do(t, "POST", "/api/auth/social", "", body, &again))
	assert.NotEqual(t, social.Account.ID, again.Account.ID)

	body["provider"] = "myspace"
	assert.Equal(t, http.StatusBadRequest, f.do(t, "POST", "/api/auth/social", "", body, nil))
}

func TestSocialLoginCannotTakeOverAccount(t *testing.T) {
	f := newFixture(t, false)
	boss, _ := f.seed(t, func(a *models.Account) {
		a.Email = "boss@example.com"
		a.PasswordHash = "$2a$10$abcdefghijklmnopqrstuv"
		a.IsAdmin = true
	})

	var social sessionBody
	body := map[string]string{"provider": "google", "email": "boss@example.com"}
	require.Equal(t, http.StatusCreated, f.do(t, "POST", "/api/auth/social", "", body, &social))
	assert.NotEqual(t, boss.ID, social.Account.ID)
	assert.False(t, social.Account.IsAdmin)
	assert.NotEqual(t, "boss@example.com", social.Account.Email)

	assert.Equal(t, http.StatusForbidden, f.do(t, "GET", "/api/admin/users", social.Token, nil, nil))
}

func TestAuthenticationRequired(t *testing.T) {
	f := newFixture(t, false)

	var out errorBody
	assert.Equal(t, http.StatusUnauthorized, f.do(t, "GET", "/api/me", "", nil, &out))
	assert.Equal(t, http.StatusUnauthorized, f.do(t, "GET", "/api/me", "not-a-token", nil, &out))

	ghost := &models.Account{ID: "ghost"}
	token, _, err := f.tokens.Issue(ghost)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, f.do(t, "GET", "/api/me", token, nil, &out))
	assert.Contains(t, out.Error, "session expired")
}

func TestPermissionEndpoint(t *testing.T) {
	f := newFixture(t, false)
	_, token := f.seed(t, func(a *models.Account) { a.PlanType = models.PlanPremium3Month })

	var perm struct {
		Kind    models.ActionKind `json:"kind"`
		Allowed bool              `json:"allowed"`
	}
	require.Equal(t, http.StatusOK, f.do(t, "GET", "/api/me/permissions/TTS", token, nil, &perm))
	assert.True(t, perm.Allowed)
	require.Equal(t, http.StatusOK, f.do(t, "GET", "/api/me/permissions/LIVE_INTERACTION", token, nil, &perm))
	assert.False(t, perm.Allowed)
	assert.Equal(t, http.StatusBadRequest, f.do(t, "GET", "/api/me/permissions/TELEPORT", token, nil, nil))
}

func TestPaymentsAndComplaints(t *testing.T) {
	f := newFixture(t, false)
	acc, token := f.seed(t, nil)

	var payment models.PaymentRequest
	status := f.do(t, "POST", "/api/payments", token, map[string]string{
		"plan": "premium_6_month", "method": "jazzcash", "senderName": "Test", "senderAccount": "0300-1111111",
	}, &payment)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Equal(t, 79, payment.AmountUSD)

	var invalid errorBody
	status = f.do(t, "POST", "/api/payments", token, map[string]string{"plan": "free", "method": "bank"}, &invalid)
	assert.Equal(t, http.StatusBadRequest, status)

	var payments []models.PaymentRequest
	require.Equal(t, http.StatusOK, f.do(t, "GET", "/api/me/payments", token, nil, &payments))
	require.Len(t, payments, 1)
	assert.Equal(t, acc.ID, payments[0].AccountID)

	var complaint models.Complaint
	status = f.do(t, "POST", "/api/complaints", token, map[string]string{"kind": "issue", "message": "video stalls"}, &complaint)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, models.ComplaintPending, complaint.Status)

	var complaints []models.Complaint
	require.Equal(t, http.StatusOK, f.do(t, "GET", "/api/me/complaints", token, nil, &complaints))
	assert.Len(t, complaints, 1)
}

func TestFilesAndHistoryStartEmpty(t *testing.T) {
	f := newFixture(t, false)
	_, token := f.seed(t, nil)

	var files []models.SavedFile
	require.Equal(t, http.StatusOK, f.do(t, "GET", "/api/files", token, nil, &files))
	assert.Empty(t, files)

	var history []models.UsageRecord
	require.Equal(t, http.StatusOK, f.do(t, "GET", "/api/me/history", token, nil, &history))
	assert.Empty(t, history)

	assert.Equal(t, http.StatusNotFound, f.do(t, "DELETE", "/api/files/missing", token, nil, nil))
}

func TestAIRoutesWithoutVendor(t *testing.T) {
	f := newFixture(t, false)
	acc, token := f.seed(t, nil)

	var out errorBody
	status := f.do(t, "POST", "/api/ai/translate", token, map[string]string{"text": "hello", "targetLang": "French"}, &out)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.EqualValues(t, 1000, f.reload(t, acc.ID).Credits)

	status = f.do(t, "POST", "/api/ai/translate", token, map[string]string{"text": ""}, &out)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCORS(t *testing.T) {
	f := newFixture(t, false)

	req, err := http.NewRequest(http.MethodOptions, f.srv.URL+"/api/me", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://studio.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://studio.example.com", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example.com")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
