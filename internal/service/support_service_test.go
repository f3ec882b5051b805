package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/AIMultiverse/internal/models"
	"github.com/digkill/AIMultiverse/internal/repository"
	"github.com/digkill/AIMultiverse/internal/service"
)

func TestComplaintLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, true)
	acc := f.seed(t, nil)
	support := service.NewSupportService(discardLogger(), f.accounts, repository.NewComplaintRepository(f.db), f.notifier)

	c, err := support.SubmitComplaint(ctx, acc.ID, models.ComplaintIssue, "  video never finishes  ")
	require.NoError(t, err)
	assert.Equal(t, "video never finishes", c.Message)
	assert.Equal(t, models.ComplaintPending, c.Status)
	assert.Equal(t, acc.Email, c.AccountEmail)
	assert.Equal(t, models.PlanFree, c.AccountPlan)
	require.Len(t, f.notifier.complaints, 1)

	_, err = support.ReplyComplaint(ctx, c.ID, " ")
	require.ErrorIs(t, err, service.ErrInvalidInput)

	replied, err := support.ReplyComplaint(ctx, c.ID, "Fixed in the latest release.")
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintResolved, replied.Status)
	assert.Equal(t, "Fixed in the latest release.", replied.AdminReply)

	_, err = support.ReplyComplaint(ctx, "missing", "hello")
	require.ErrorIs(t, err, service.ErrNotFound)

	mine, err := support.ListAccountComplaints(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	all, err := support.ListComplaints(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestComplaintValidation(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, true)
	acc := f.seed(t, nil)
	support := service.NewSupportService(discardLogger(), f.accounts, repository.NewComplaintRepository(f.db), nil)

	_, err := support.SubmitComplaint(ctx, acc.ID, models.ComplaintKind("rant"), "x")
	require.ErrorIs(t, err, service.ErrInvalidInput)
	_, err = support.SubmitComplaint(ctx, acc.ID, models.ComplaintSuggestion, "")
	require.ErrorIs(t, err, service.ErrInvalidInput)
	_, err = support.SubmitComplaint(ctx, acc.ID, models.ComplaintSuggestion, strings.Repeat("a", 5000))
	require.ErrorIs(t, err, service.ErrInvalidInput)
	_, err = support.SubmitComplaint(ctx, "missing", models.ComplaintSuggestion, "more voices")
	require.ErrorIs(t, err, service.ErrAccountNotFound)
}
