package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/digkill/AIMultiverse/internal/ai"
	"github.com/digkill/AIMultiverse/internal/models"
)

// AI is the vendor surface used by the studio features.
type AI interface {
	Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatResult, error)
	Translate(ctx context.Context, text, targetLang string) (string, error)
	Speech(ctx context.Context, text, voice string) (*ai.Media, error)
	Transcribe(ctx context.Context, audio ai.Media) (string, error)
	Image(ctx context.Context, req ai.ImageRequest) (*ai.Media, error)
	Video(ctx context.Context, req ai.VideoRequest) (*ai.Media, error)
	AnalyzeDocument(ctx context.Context, doc ai.Media, prompt string) (string, error)
}

const defaultDocumentPrompt = "Summarize this document and list its key points."

type GenerationService struct {
	log    *slog.Logger
	ledger *LedgerService
	files  *FileService
	ai     AI
}

// NewGenerationService wires the studio. A nil client leaves every feature
// reporting ErrAIUnavailable.
func NewGenerationService(log *slog.Logger, ledger *LedgerService, files *FileService, client AI) *GenerationService {
	return &GenerationService{log: log, ledger: ledger, files: files, ai: client}
}

func (s *GenerationService) Available() bool {
	return s.ai != nil
}

type TextResult struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources,omitempty"`
	Charged int64    `json:"charged"`
}

type MediaResult struct {
	File    *models.SavedFile `json:"file"`
	Charged int64             `json:"charged"`
}

// charge bills kind at its catalog cost, or at amount when amount is positive.
func (s *GenerationService) charge(ctx context.Context, accountID string, kind models.ActionKind, amount int64) (*models.UsageRecord, error) {
	if s.ai == nil {
		return nil, ErrAIUnavailable
	}
	if amount <= 0 {
		feature, err := s.ledger.Catalog().Feature(kind)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		amount = feature.Cost
	}
	return s.ledger.Charge(ctx, accountID, kind, amount)
}

func (s *GenerationService) vendorError(op, accountID string, err error) error {
	s.log.Error("vendor call failed", "op", op, "account_id", accountID, "err", err)
	return fmt.Errorf("%w: %s: %v", ErrVendor, op, err)
}

type ChatInput struct {
	Mode      ai.ChatMode
	Message   string
	Image     *ai.Media
	Video     *ai.Media
	Latitude  *float64
	Longitude *float64
}

// Chat bills VIDEO_ANALYSIS when a video is attached and CHATBOT otherwise.
func (s *GenerationService) Chat(ctx context.Context, accountID string, in ChatInput) (*TextResult, error) {
	in.Message = strings.TrimSpace(in.Message)
	if in.Message == "" && in.Image == nil && in.Video == nil {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if in.Mode == "" {
		in.Mode = ai.ModeStandard
	}
	if !in.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown chat mode %q", ErrInvalidInput, in.Mode)
	}
	if in.Message == "" {
		in.Message = "Describe this."
	}

	kind := models.ActionChatbot
	if in.Video != nil {
		kind = models.ActionVideoAnalysis
	}
	record, err := s.charge(ctx, accountID, kind, 0)
	if err != nil {
		return nil, err
	}

	res, err := s.ai.Chat(ctx, ai.ChatRequest{
		Mode:      in.Mode,
		Message:   in.Message,
		Image:     in.Image,
		Video:     in.Video,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
	})
	if err != nil {
		return nil, s.vendorError("chat", accountID, err)
	}

	text := res.Text
	if len(res.Sources) > 0 {
		var b strings.Builder
		b.WriteString(text)
		b.WriteString("\n\nSources:")
		for _, src := range res.Sources {
			b.WriteString("\n- ")
			b.WriteString(src)
		}
		text = b.String()
	}
	return &TextResult{Text: text, Sources: res.Sources, Charged: record.CreditsDeducted}, nil
}

func (s *GenerationService) Translate(ctx context.Context, accountID, text, targetLang string) (*TextResult, error) {
	text = strings.TrimSpace(text)
	targetLang = strings.TrimSpace(targetLang)
	if text == "" || targetLang == "" {
		return nil, fmt.Errorf("%w: text and target language are required", ErrInvalidInput)
	}
	record, err := s.charge(ctx, accountID, models.ActionTranslate, 0)
	if err != nil {
		return nil, err
	}
	out, err := s.ai.Translate(ctx, text, targetLang)
	if err != nil {
		return nil, s.vendorError("translate", accountID, err)
	}
	return &TextResult{Text: out, Charged: record.CreditsDeducted}, nil
}

func (s *GenerationService) Speech(ctx context.Context, accountID, text, voice string) (*MediaResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	record, err := s.charge(ctx, accountID, models.ActionTTS, 0)
	if err != nil {
		return nil, err
	}
	audio, err := s.ai.Speech(ctx, text, voice)
	if err != nil {
		return nil, s.vendorError("speech", accountID, err)
	}
	name := "TTS"
	if voice != "" {
		name = "TTS - " + voice
	}
	return s.save(ctx, accountID, models.FileAudio, name, audio, record)
}

// Transcribe is free but still requires a live account.
func (s *GenerationService) Transcribe(ctx context.Context, accountID string, audio ai.Media) (*TextResult, error) {
	if len(audio.Data) == 0 {
		return nil, fmt.Errorf("%w: audio is required", ErrInvalidInput)
	}
	if s.ai == nil {
		return nil, ErrAIUnavailable
	}
	if _, err := s.ledger.ResolveAccount(ctx, accountID); err != nil {
		return nil, err
	}
	text, err := s.ai.Transcribe(ctx, audio)
	if err != nil {
		return nil, s.vendorError("transcribe", accountID, err)
	}
	return &TextResult{Text: text}, nil
}

func (s *GenerationService) Image(ctx context.Context, accountID string, req ai.ImageRequest) (*MediaResult, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}
	record, err := s.charge(ctx, accountID, models.ActionTextToImage, 0)
	if err != nil {
		return nil, err
	}
	img, err := s.ai.Image(ctx, req)
	if err != nil {
		return nil, s.vendorError("image", accountID, err)
	}
	return s.save(ctx, accountID, models.FileImage, shorten(req.Prompt, 30), img, record)
}

func (s *GenerationService) Video(ctx context.Context, accountID string, req ai.VideoRequest) (*MediaResult, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" && req.Image == nil {
		return nil, fmt.Errorf("%w: prompt or image is required", ErrInvalidInput)
	}
	record, err := s.charge(ctx, accountID, models.ActionImageToVideo, 0)
	if err != nil {
		return nil, err
	}
	clip, err := s.ai.Video(ctx, req)
	if err != nil {
		return nil, s.vendorError("video", accountID, err)
	}
	return s.save(ctx, accountID, models.FileVideo, "Video: "+shorten(req.Prompt, 30), clip, record)
}

func (s *GenerationService) AnalyzeDocument(ctx context.Context, accountID string, doc ai.Media, prompt string) (*TextResult, error) {
	if len(doc.Data) == 0 || doc.MIMEType == "" {
		return nil, fmt.Errorf("%w: document and mime type are required", ErrInvalidInput)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = defaultDocumentPrompt
	}
	record, err := s.charge(ctx, accountID, models.ActionDocAI, 0)
	if err != nil {
		return nil, err
	}
	out, err := s.ai.AnalyzeDocument(ctx, doc, prompt)
	if err != nil {
		return nil, s.vendorError("document", accountID, err)
	}
	return &TextResult{Text: out, Charged: record.CreditsDeducted}, nil
}

type VoiceCloneInput struct {
	Sample  ai.Media
	Text    string
	Model   string
	Seconds float64
	Voice   string
}

// VoiceClone enforces the plan's script word limit and bills by sample length.
func (s *GenerationService) VoiceClone(ctx context.Context, accountID string, in VoiceCloneInput) (*MediaResult, error) {
	in.Text = strings.TrimSpace(in.Text)
	if len(in.Sample.Data) == 0 || in.Text == "" {
		return nil, fmt.Errorf("%w: voice sample and script are required", ErrInvalidInput)
	}
	if s.ai == nil {
		return nil, ErrAIUnavailable
	}

	cat := s.ledger.Catalog()
	cost, err := cat.VoiceCloneCost(in.Model, in.Seconds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	acc, err := s.ledger.ResolveAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	plan, err := cat.Plan(acc.PlanType)
	if err != nil {
		return nil, err
	}
	if words := len(strings.Fields(in.Text)); plan.VoiceCloneWordLimit > 0 && words > plan.VoiceCloneWordLimit {
		return nil, fmt.Errorf("%w: script has %d words, plan limit is %d", ErrInvalidInput, words, plan.VoiceCloneWordLimit)
	}

	record, err := s.ledger.Charge(ctx, accountID, models.ActionVoiceClone, cost)
	if err != nil {
		return nil, err
	}
	audio, err := s.ai.Speech(ctx, in.Text, in.Voice)
	if err != nil {
		return nil, s.vendorError("voice clone", accountID, err)
	}
	return s.save(ctx, accountID, models.FileAudio, "Clone: "+shorten(in.Text, 20), audio, record)
}

func (s *GenerationService) save(ctx context.Context, accountID string, kind models.FileKind, name string, media *ai.Media, record *models.UsageRecord) (*MediaResult, error) {
	file, err := s.files.Save(ctx, accountID, kind, name, media.Data, media.MIMEType)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", kind, err)
	}
	return &MediaResult{File: file, Charged: record.CreditsDeducted}, nil
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
