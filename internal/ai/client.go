// Package ai wraps the vendor generative models used by the studio features.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/digkill/AIMultiverse/internal/config"
)

var ErrEmptyResponse = errors.New("model returned no content")

// Models names the vendor model used for each feature.
type Models struct {
	Chat     string
	Fast     string
	Thinking string
	Image    string
	Video    string
	Speech   string
	Document string
	Live     string
}

type Client struct {
	genai           *genai.Client
	log             *slog.Logger
	models          Models
	liveVoice       string
	liveSystem      string
	downloadTimeout time.Duration
	pollInterval    time.Duration
	pollAttempts    int
}

func NewClient(ctx context.Context, cfg config.Config, log *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.GeminiBaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.GeminiBaseURL}
	}

	gc, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	pollInterval := cfg.VideoPollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	pollAttempts := cfg.VideoPollAttempts
	if pollAttempts <= 0 {
		pollAttempts = 120
	}

	return &Client{
		genai: gc,
		log:   log,
		models: Models{
			Chat:     cfg.ChatModel,
			Fast:     cfg.FastChatModel,
			Thinking: cfg.ThinkingModel,
			Image:    cfg.ImageModel,
			Video:    cfg.VideoModel,
			Speech:   cfg.SpeechModel,
			Document: cfg.DocumentModel,
			Live:     cfg.LiveModel,
		},
		liveVoice:       cfg.LiveVoice,
		liveSystem:      cfg.LiveSystemInstruction,
		downloadTimeout: timeout,
		pollInterval:    pollInterval,
		pollAttempts:    pollAttempts,
	}, nil
}

// Media is an inline attachment sent with a prompt.
type Media struct {
	Data     []byte
	MIMEType string
}

func (m *Media) part() *genai.Part {
	return genai.NewPartFromBytes(m.Data, m.MIMEType)
}

func (c *Client) generate(ctx context.Context, model string, parts []*genai.Part, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := c.genai.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		if c.log != nil {
			c.log.Error("genai request failed", "model", model, "err", err)
		}
		return nil, fmt.Errorf("generate content with %s: %w", model, err)
	}
	return resp, nil
}

// firstInline returns the first inline blob of the first candidate.
func firstInline(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData
		}
	}
	return nil
}
