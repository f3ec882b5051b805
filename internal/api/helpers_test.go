package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/digkill/AIMultiverse/internal/admin"
	"github.com/digkill/AIMultiverse/internal/api"
	"github.com/digkill/AIMultiverse/internal/auth"
	"github.com/digkill/AIMultiverse/internal/catalog"
	"github.com/digkill/AIMultiverse/internal/database/dbtest"
	"github.com/digkill/AIMultiverse/internal/live"
	"github.com/digkill/AIMultiverse/internal/models"
	"github.com/digkill/AIMultiverse/internal/repository"
	"github.com/digkill/AIMultiverse/internal/service"
)

type fixture struct {
	srv      *httptest.Server
	tokens   *auth.Manager
	accounts *repository.AccountRepository
	sessions *live.Sessions

	mu        sync.Mutex
	upstreams []*fakeUpstream
}

func newFixture(t *testing.T, withLive bool) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := dbtest.Open(t)
	cat := catalog.Default()

	accounts := repository.NewAccountRepository(db)
	ledger := service.NewLedgerService(db, log, cat, service.LedgerOptions{})
	support := service.NewSupportService(log, accounts, repository.NewComplaintRepository(db), nil)
	files := service.NewFileService(log, repository.NewFileRepository(db), nil)

	f := &fixture{
		tokens:   auth.NewManager("test-secret", time.Hour),
		accounts: accounts,
		sessions: live.NewSessions(),
	}
	opts := api.Options{
		AllowedOrigin: "https://studio.example.com",
		Log:           log,
		Tokens:        f.tokens,
		Auth:          service.NewAuthService(log, cat, accounts, nil),
		Ledger:        ledger,
		Support:       support,
		Files:         files,
		Generation:    service.NewGenerationService(log, ledger, files, nil),
		Sessions:      f.sessions,
		Admin:         admin.NewServer(log, ledger, support, f.sessions),
		Storage:       "inline",
	}
	if withLive {
		opts.LiveDial = f.dial
	}
	f.srv = httptest.NewServer(api.NewServer(opts).Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) dial(context.Context) (live.Channel, error) {
	up := newFakeUpstream()
	f.mu.Lock()
	f.upstreams = append(f.upstreams, up)
	f.mu.Unlock()
	return up, nil
}

func (f *fixture) upstream(t *testing.T, i int) *fakeUpstream {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Greater(t, len(f.upstreams), i)
	return f.upstreams[i]
}

// seed stores an account and returns it with a signed token.
func (f *fixture) seed(t *testing.T, mutate func(*models.Account)) (*models.Account, string) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	acc := &models.Account{
		ID:            uuid.NewString(),
		Name:          "Test User",
		Email:         uuid.NewString()[:8] + "@example.com",
		AuthProvider:  models.AuthEmail,
		PlanType:      models.PlanFree,
		Credits:       1000,
		FreeResetDate: now.AddDate(0, 0, 30),
		CreatedAt:     now,
	}
	if mutate != nil {
		mutate(acc)
	}
	require.NoError(t, f.accounts.Create(context.Background(), acc))
	token, _, err := f.tokens.Issue(acc)
	require.NoError(t, err)
	return acc, token
}

func (f *fixture) reload(t *testing.T, id string) *models.Account {
	t.Helper()
	acc, err := f.accounts.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, acc)
	return acc
}

// do sends body as JSON and decodes the response into out when non-nil.
func (f *fixture) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type errorBody struct {
	Error string `json:"error"`
}

type fakeUpstream struct {
	sent   chan live.Blob
	events chan live.Event
	closed chan struct{}
	once   sync.Once
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		sent:   make(chan live.Blob, 16),
		events: make(chan live.Event, 16),
		closed: make(chan struct{}),
	}
}

func (u *fakeUpstream) SendAudio(_ context.Context, blob live.Blob) error {
	select {
	case <-u.closed:
		return io.ErrClosedPipe
	case u.sent <- blob:
		return nil
	}
}

func (u *fakeUpstream) Receive(ctx context.Context) (live.Event, error) {
	select {
	case ev := <-u.events:
		return ev, nil
	case <-u.closed:
		return live.Event{}, io.EOF
	case <-ctx.Done():
		return live.Event{}, ctx.Err()
	}
}

func (u *fakeUpstream) Close() error {
	u.once.Do(func() { close(u.closed) })
	return nil
}

func (u *fakeUpstream) isClosed() bool {
	select {
	case <-u.closed:
		return true
	default:
		return false
	}
}
