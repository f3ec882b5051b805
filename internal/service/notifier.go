package service

import (
	"context"

	"github.com/digkill/AIMultiverse/internal/models"
)

// Notifier is told about events an administrator should review.
type Notifier interface {
	PaymentRecorded(ctx context.Context, p *models.PaymentRequest)
	ComplaintSubmitted(ctx context.Context, c *models.Complaint)
}

type nopNotifier struct{}

func (nopNotifier) PaymentRecorded(context.Context, *models.PaymentRequest) {}
func (nopNotifier) ComplaintSubmitted(context.Context, *models.Complaint)   {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
