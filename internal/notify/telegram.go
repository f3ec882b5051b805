// Package notify tells administrators about payment requests and complaints
// over Telegram and lets them settle payments from the chat.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/digkill/AIMultiverse/internal/models"
)

const (
	actionApprove = "approve"
	actionReject  = "reject"
)

// BotAPI is the subset of *tgbotapi.BotAPI the notifier uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type PaymentReviewer interface {
	ApprovePayment(ctx context.Context, paymentID string) (*models.PaymentRequest, error)
	RejectPayment(ctx context.Context, paymentID string) (*models.PaymentRequest, error)
}

type Telegram struct {
	api      BotAPI
	chatID   int64
	log      *slog.Logger
	reviewer PaymentReviewer
}

func NewTelegram(api BotAPI, chatID int64, log *slog.Logger) *Telegram {
	return &Telegram{api: api, chatID: chatID, log: log}
}

// SetReviewer enables approve/reject buttons on pending payment requests.
func (t *Telegram) SetReviewer(r PaymentReviewer) {
	t.reviewer = r
}

func (t *Telegram) PaymentRecorded(_ context.Context, p *models.PaymentRequest) {
	msg := tgbotapi.NewMessage(t.chatID, formatPayment(p))
	if p.Status == models.PaymentPending && t.reviewer != nil {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Approve", actionApprove+":"+p.ID),
				tgbotapi.NewInlineKeyboardButtonData("Reject", actionReject+":"+p.ID),
			),
		)
	}
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error("notify payment", "payment_id", p.ID, "err", err)
	}
}

func (t *Telegram) ComplaintSubmitted(_ context.Context, c *models.Complaint) {
	text := fmt.Sprintf("New %s from %s (%s, %s)\n\n%s\n\nID: %s",
		c.Kind, c.AccountName, c.AccountEmail, c.AccountPlan, c.Message, c.ID)
	t.sendText(text)
}

// Run handles button presses from the admin chat until ctx is done.
func (t *Telegram) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"callback_query"}

	updates := t.api.GetUpdatesChan(u)
	t.log.Info("telegram notifier started", "chat_id", t.chatID)

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.CallbackQuery != nil {
				t.handleCallback(ctx, update.CallbackQuery)
			}
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

func (t *Telegram) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil || cb.Message.Chat.ID != t.chatID || t.reviewer == nil {
		t.answer(cb.ID, "Not allowed")
		return
	}

	action, paymentID, ok := strings.Cut(cb.Data, ":")
	if !ok || paymentID == "" {
		t.answer(cb.ID, "Unknown action")
		return
	}

	var (
		p   *models.PaymentRequest
		err error
	)
	switch action {
	case actionApprove:
		p, err = t.reviewer.ApprovePayment(ctx, paymentID)
	case actionReject:
		p, err = t.reviewer.RejectPayment(ctx, paymentID)
	default:
		t.answer(cb.ID, "Unknown action")
		return
	}
	if err != nil {
		t.log.Error("settle payment from chat", "payment_id", paymentID, "action", action, "err", err)
		t.answer(cb.ID, "Failed")
		return
	}

	t.answer(cb.ID, "Payment "+string(p.Status))
	edit := tgbotapi.NewEditMessageText(t.chatID, cb.Message.MessageID, formatPayment(p))
	if _, err := t.api.Send(edit); err != nil {
		t.log.Error("edit payment message", "payment_id", p.ID, "err", err)
	}
}

func (t *Telegram) answer(callbackID, text string) {
	if _, err := t.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		t.log.Error("callback ack", "err", err)
	}
}

func (t *Telegram) sendText(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error("send text", "err", err)
	}
}

func formatPayment(p *models.PaymentRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Payment request %s\n", strings.ToUpper(string(p.Status)))
	fmt.Fprintf(&b, "User: %s (%s)\n", p.AccountName, p.AccountID)
	fmt.Fprintf(&b, "Plan: %s, $%d for %d months\n", p.PlanType, p.AmountUSD, p.DurationMonths)
	fmt.Fprintf(&b, "Method: %s\n", p.Method)
	fmt.Fprintf(&b, "Sender: %s, %s", p.SenderName, p.SenderAccount)
	if p.SenderBank != "" {
		fmt.Fprintf(&b, " (%s)", p.SenderBank)
	}
	b.WriteString("\n")
	if p.TransactionID != "" {
		fmt.Fprintf(&b, "Transaction: %s\n", p.TransactionID)
	}
	fmt.Fprintf(&b, "ID: %s", p.ID)
	return b.String()
}
