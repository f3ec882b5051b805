package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/AIMultiverse/internal/catalog"
	"github.com/digkill/AIMultiverse/internal/models"
	"github.com/digkill/AIMultiverse/internal/service"
)

func newAuthService(f *ledgerFixture) *service.AuthService {
	return service.NewAuthService(discardLogger(), catalog.Default(), f.accounts, f.clock.Now)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, true)
	auth := newAuthService(f)

	acc, err := auth.Register(ctx, "Sara", " Sara@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "sara@example.com", acc.Email)
	assert.Equal(t, models.PlanFree, acc.PlanType)
	assert.Equal(t, int64(1000), acc.Credits)
	assert.WithinDuration(t, epoch.AddDate(0, 0, 30), acc.FreeResetDate, 0)
	assert.NotEqual(t, "secret1", acc.PasswordHash)

	_, err = auth.Register(ctx, "Other", "sara@example.com", "secret2")
	require.ErrorIs(t, err, service.ErrEmailTaken)

	got, err := auth.Login(ctx, "SARA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)

	_, err = auth.Login(ctx, "sara@example.com", "wrong-pass")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, err = auth.Login(ctx, "nobody@example.com", "secret1")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	auth := newAuthService(newLedgerFixture(t, true))
	ctx := context.Background()

	_, err := auth.Register(ctx, "", "a@example.com", "secret1")
	require.ErrorIs(t, err, service.ErrInvalidInput)
	_, err = auth.Register(ctx, "A", "not-an-email", "secret1")
	require.ErrorIs(t, err, service.ErrInvalidInput)
	_, err = auth.Register(ctx, "A", "a@example.com", "123")
	require.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestBannedAccountCanStillLogin(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, true)
	auth := newAuthService(f)

	acc, err := auth.Register(ctx, "Ban Me", "ban@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, f.ledger.BanAccount(ctx, acc.ID, true))

	got, err := auth.Login(ctx, "ban@example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, got.IsBanned)
}

func TestGuestLogin(t *testing.T) {
	f := newLedgerFixture(t, true)
	acc, err := newAuthService(f).GuestLogin(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Guest User", acc.Name)
	assert.Equal(t, models.AuthGuest, acc.AuthProvider)
	assert.True(t, strings.HasPrefix(acc.Email, "guest_"))
	assert.True(t, strings.HasSuffix(acc.Email, "@temp.local"))
	assert.Equal(t, int64(500), acc.Credits)
	assert.WithinDuration(t, epoch.AddDate(0, 0, 7), acc.FreeResetDate, 0)
	assert.Empty(t, acc.PasswordHash)

	_, err = newAuthService(f).Login(context.Background(), acc.Email, "")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestSocialLoginCreatesFreshAccount(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, true)
	auth := newAuthService(f)

	first, err := auth.SocialLogin(ctx, models.AuthGoogle, "")
	require.NoError(t, err)
	assert.Equal(t, "Google User", first.Name)
	assert.Equal(t, models.AuthGoogle, first.AuthProvider)
	assert.True(t, strings.HasPrefix(first.Email, "google_user_"))
	assert.EqualValues(t, 1000, first.Credits)

	second, err := auth.SocialLogin(ctx, models.AuthYahoo, "Lee")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "Lee", second.Name)

	_, err = auth.SocialLogin(ctx, models.AuthEmail, "Lee")
	require.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestSocialLoginNeverResolvesExistingAccount(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, true)
	auth := newAuthService(f)

	admin, err := auth.EnsureAdmin(ctx, "boss@example.com", "root-pass", "Boss")
	require.NoError(t, err)

	acc, err := auth.SocialLogin(ctx, models.AuthGoogle, "Boss")
	require.NoError(t, err)
	assert.NotEqual(t, admin.ID, acc.ID)
	assert.False(t, acc.IsAdmin)
	assert.Empty(t, acc.PasswordHash)
	assert.Equal(t, models.PlanFree, acc.PlanType)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, true)
	auth := newAuthService(f)

	admin, err := auth.EnsureAdmin(ctx, "admin@example.com", "root-pass", "Administrator")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.Equal(t, models.PlanPremium2Year, admin.PlanType)
	assert.True(t, admin.CreditsUnlimited)
	require.NotNil(t, admin.PlanExpiryDate)
	assert.WithinDuration(t, epoch.AddDate(0, 24, 0), *admin.PlanExpiryDate, 0)

	again, err := auth.EnsureAdmin(ctx, "admin@example.com", "new-pass", "Administrator")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	_, err = auth.Login(ctx, "admin@example.com", "new-pass")
	require.NoError(t, err)

	user, err := auth.Register(ctx, "Promote", "promote@example.com", "secret1")
	require.NoError(t, err)
	promoted, err := auth.EnsureAdmin(ctx, "promote@example.com", "secret9", "ignored")
	require.NoError(t, err)
	assert.Equal(t, user.ID, promoted.ID)
	assert.True(t, f.reload(t, user.ID).IsAdmin)
	assert.Equal(t, models.PlanPremium2Year, f.reload(t, user.ID).PlanType)
}
