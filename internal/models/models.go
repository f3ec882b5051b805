package models

import "time"

type PlanType string

const (
	PlanFree          PlanType = "free"
	PlanPremium3Month PlanType = "premium_3_month"
	PlanPremium6Month PlanType = "premium_6_month"
	PlanPremiumYear   PlanType = "premium_year"
	PlanPremium2Year  PlanType = "premium_2year"
)

// PlanTypes lists every tier in ascending order.
var PlanTypes = []PlanType{PlanFree, PlanPremium3Month, PlanPremium6Month, PlanPremiumYear, PlanPremium2Year}

func (p PlanType) Valid() bool {
	for _, known := range PlanTypes {
		if p == known {
			return true
		}
	}
	return false
}

type ActionKind string

const (
	ActionVoiceClone      ActionKind = "VOICE_CLONE"
	ActionTranslate       ActionKind = "TRANSLATE"
	ActionTTS             ActionKind = "TTS"
	ActionImageToVideo    ActionKind = "IMAGE_TO_VIDEO"
	ActionChatbot         ActionKind = "CHATBOT"
	ActionDocAI           ActionKind = "DOC_AI"
	ActionTextToImage     ActionKind = "TEXT_TO_IMAGE"
	ActionVideoAnalysis   ActionKind = "VIDEO_ANALYSIS"
	ActionLiveInteraction ActionKind = "LIVE_INTERACTION"
)

var ActionKinds = []ActionKind{
	ActionVoiceClone,
	ActionTranslate,
	ActionTTS,
	ActionImageToVideo,
	ActionChatbot,
	ActionDocAI,
	ActionTextToImage,
	ActionVideoAnalysis,
	ActionLiveInteraction,
}

func (k ActionKind) Valid() bool {
	for _, known := range ActionKinds {
		if k == known {
			return true
		}
	}
	return false
}

type AuthProvider string

const (
	AuthEmail  AuthProvider = "email"
	AuthGuest  AuthProvider = "guest"
	AuthGoogle AuthProvider = "google"
	AuthYahoo  AuthProvider = "yahoo"
)

type PaymentMethod string

const (
	PaymentBank      PaymentMethod = "bank"
	PaymentJazzCash  PaymentMethod = "jazzcash"
	PaymentEasyPaisa PaymentMethod = "easypaisa"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
)

type ComplaintKind string

const (
	ComplaintIssue      ComplaintKind = "issue"
	ComplaintSuggestion ComplaintKind = "suggestion"
)

type ComplaintStatus string

const (
	ComplaintPending  ComplaintStatus = "pending"
	ComplaintResolved ComplaintStatus = "resolved"
)

type FileKind string

const (
	FileImage    FileKind = "image"
	FileVideo    FileKind = "video"
	FileAudio    FileKind = "audio"
	FileDocument FileKind = "document"
)

func (k FileKind) Valid() bool {
	switch k {
	case FileImage, FileVideo, FileAudio, FileDocument:
		return true
	}
	return false
}

// Account is an identity plus its commercial state.
// When CreditsUnlimited is set Credits is ignored.
type Account struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Email            string       `json:"email"`
	PasswordHash     string       `json:"-"`
	AuthProvider     AuthProvider `json:"authProvider"`
	PlanType         PlanType     `json:"planType"`
	Credits          int64        `json:"credits"`
	CreditsUnlimited bool         `json:"creditsUnlimited"`
	FreeResetDate    time.Time    `json:"freeResetDate"`
	PlanPurchaseDate *time.Time   `json:"planPurchaseDate,omitempty"`
	PlanExpiryDate   *time.Time   `json:"planExpiryDate,omitempty"`
	IsAdmin          bool         `json:"isAdmin"`
	IsBanned         bool         `json:"isBanned"`
	ChatbotMsgCount  int          `json:"chatbotMsgCount"`
	Version          int64        `json:"-"`
	CreatedAt        time.Time    `json:"createdAt"`
}

type UsageRecord struct {
	ID              string     `json:"id"`
	AccountID       string     `json:"accountId"`
	ActionKind      ActionKind `json:"actionKind"`
	CreditsDeducted int64      `json:"creditsDeducted"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type PaymentRequest struct {
	ID             string        `json:"id"`
	AccountID      string        `json:"accountId"`
	AccountName    string        `json:"accountName"`
	PlanType       PlanType      `json:"planType"`
	AmountUSD      int           `json:"amountUsd"`
	DurationMonths int           `json:"durationMonths"`
	Method         PaymentMethod `json:"method"`
	SenderName     string        `json:"senderName"`
	SenderAccount  string        `json:"senderAccount"`
	SenderBank     string        `json:"senderBank,omitempty"`
	TransactionID  string        `json:"transactionId,omitempty"`
	Status         PaymentStatus `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

type Complaint struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"accountId"`
	AccountName  string          `json:"accountName"`
	AccountEmail string          `json:"accountEmail"`
	AccountPlan  PlanType        `json:"accountPlan"`
	Kind         ComplaintKind   `json:"kind"`
	Message      string          `json:"message"`
	AdminReply   string          `json:"adminReply,omitempty"`
	Status       ComplaintStatus `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type SavedFile struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"accountId"`
	Kind       FileKind  `json:"kind"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	StorageKey string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}
