package ai

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/digkill/AIMultiverse/internal/live"
)

type ChatMode string

const (
	ModeFast           ChatMode = "fast"
	ModeStandard       ChatMode = "standard"
	ModeThinking       ChatMode = "thinking"
	ModeGroundedSearch ChatMode = "grounded_search"
	ModeGroundedMaps   ChatMode = "grounded_maps"
)

func (m ChatMode) Valid() bool {
	switch m {
	case ModeFast, ModeStandard, ModeThinking, ModeGroundedSearch, ModeGroundedMaps:
		return true
	}
	return false
}

const thinkingBudget int32 = 32768

// Default map location when the client sends none.
const (
	defaultLatitude  = 40.7128
	defaultLongitude = -74.0060
)

type ChatRequest struct {
	Mode      ChatMode
	Message   string
	Image     *Media
	Video     *Media
	Latitude  *float64
	Longitude *float64
}

type ChatResult struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources,omitempty"`
}

func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	model := c.models.Chat
	cfg := &genai.GenerateContentConfig{}

	switch req.Mode {
	case ModeFast:
		model = c.models.Fast
	case ModeThinking:
		model = c.models.Thinking
		budget := thinkingBudget
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: &budget}
	case ModeGroundedSearch:
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	case ModeGroundedMaps:
		lat, lng := defaultLatitude, defaultLongitude
		if req.Latitude != nil && req.Longitude != nil {
			lat, lng = *req.Latitude, *req.Longitude
		}
		cfg.Tools = []*genai.Tool{{GoogleMaps: &genai.GoogleMaps{}}}
		cfg.ToolConfig = &genai.ToolConfig{
			RetrievalConfig: &genai.RetrievalConfig{
				LatLng: &genai.LatLng{Latitude: &lat, Longitude: &lng},
			},
		}
	default:
		if req.Video != nil {
			model = c.models.Thinking
		}
	}

	var parts []*genai.Part
	if req.Image != nil {
		parts = append(parts, req.Image.part())
	}
	if req.Video != nil {
		parts = append(parts, req.Video.part())
	}
	parts = append(parts, genai.NewPartFromText(req.Message))

	resp, err := c.generate(ctx, model, parts, cfg)
	if err != nil {
		return nil, err
	}

	result := &ChatResult{Text: resp.Text(), Sources: groundingSources(resp)}
	if result.Text == "" && len(result.Sources) == 0 {
		return nil, ErrEmptyResponse
	}
	return result, nil
}

func groundingSources(resp *genai.GenerateContentResponse) []string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var out []string
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil {
			continue
		}
		switch {
		case chunk.Web != nil && chunk.Web.URI != "":
			out = append(out, chunk.Web.URI)
		case chunk.Maps != nil && chunk.Maps.URI != "":
			out = append(out, chunk.Maps.URI)
		}
	}
	return out
}

func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	prompt := fmt.Sprintf("Translate the following text to %s. Only output the translated text.\n\nText: %s", targetLang, text)
	resp, err := c.generate(ctx, c.models.Chat, []*genai.Part{genai.NewPartFromText(prompt)}, nil)
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// Speech synthesizes text with a prebuilt voice and returns a WAV file.
func (c *Client) Speech(ctx context.Context, text, voice string) (*Media, error) {
	if voice == "" {
		voice = "Kore"
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}
	resp, err := c.generate(ctx, c.models.Speech, []*genai.Part{genai.NewPartFromText(text)}, cfg)
	if err != nil {
		return nil, err
	}
	blob := firstInline(resp)
	if blob == nil {
		return nil, ErrEmptyResponse
	}
	return asWAV(blob), nil
}

// asWAV wraps raw PCM in a WAV container. Anything else passes through.
func asWAV(blob *genai.Blob) *Media {
	mime := strings.ToLower(blob.MIMEType)
	if !strings.HasPrefix(mime, "audio/l16") && !strings.HasPrefix(mime, "audio/pcm") {
		return &Media{Data: blob.Data, MIMEType: blob.MIMEType}
	}
	rate := live.OutputSampleRate
	for _, param := range strings.Split(mime, ";") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(param), "rate="); ok {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
				rate = parsed
			}
		}
	}
	return &Media{Data: live.WAV(blob.Data, rate, 1), MIMEType: "audio/wav"}
}

func (c *Client) Transcribe(ctx context.Context, audio Media) (string, error) {
	parts := []*genai.Part{audio.part(), genai.NewPartFromText("Transcribe this audio exactly.")}
	resp, err := c.generate(ctx, c.models.Chat, parts, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

type ImageRequest struct {
	Prompt      string
	AspectRatio string
	Size        string
}

func (c *Client) Image(ctx context.Context, req ImageRequest) (*Media, error) {
	if req.AspectRatio == "" {
		req.AspectRatio = "1:1"
	}
	if req.Size == "" {
		req.Size = "1K"
	}
	cfg := &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: req.AspectRatio, ImageSize: req.Size},
	}
	resp, err := c.generate(ctx, c.models.Image, []*genai.Part{genai.NewPartFromText(req.Prompt)}, cfg)
	if err != nil {
		return nil, err
	}
	blob := firstInline(resp)
	if blob == nil {
		return nil, ErrEmptyResponse
	}
	mime := blob.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return &Media{Data: blob.Data, MIMEType: mime}, nil
}

func (c *Client) AnalyzeDocument(ctx context.Context, doc Media, prompt string) (string, error) {
	resp, err := c.generate(ctx, c.models.Document, []*genai.Part{doc.part(), genai.NewPartFromText(prompt)}, nil)
	if err != nil {
		return "", err
	}
	out := resp.Text()
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

type VideoRequest struct {
	Prompt      string
	AspectRatio string
	Image       *Media
}

// Video starts a long-running generation and polls it until the clip is ready.
func (c *Client) Video(ctx context.Context, req VideoRequest) (*Media, error) {
	if req.AspectRatio != "9:16" {
		req.AspectRatio = "16:9"
	}
	var image *genai.Image
	if req.Image != nil {
		image = &genai.Image{ImageBytes: req.Image.Data, MIMEType: req.Image.MIMEType}
	}
	cfg := &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		Resolution:     "720p",
		AspectRatio:    req.AspectRatio,
	}

	op, err := c.genai.Models.GenerateVideos(ctx, c.models.Video, req.Prompt, image, cfg)
	if err != nil {
		return nil, fmt.Errorf("start video generation: %w", err)
	}
	if c.log != nil {
		c.log.Info("video generation started", "operation", op.Name)
	}

	op, err = c.pollVideo(ctx, op)
	if err != nil {
		return nil, err
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
		return nil, ErrEmptyResponse
	}
	video := op.Response.GeneratedVideos[0].Video
	mime := video.MIMEType
	if mime == "" {
		mime = "video/mp4"
	}
	if len(video.VideoBytes) > 0 {
		return &Media{Data: video.VideoBytes, MIMEType: mime}, nil
	}
	if video.URI == "" {
		return nil, fmt.Errorf("no video uri returned")
	}
	data, err := c.downloadVideo(ctx, video)
	if err != nil {
		return nil, err
	}
	return &Media{Data: data, MIMEType: mime}, nil
}

// downloadVideo fetches a vendor-hosted clip through the files API.
func (c *Client) downloadVideo(ctx context.Context, video *genai.Video) ([]byte, error) {
	if c.downloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.downloadTimeout)
		defer cancel()
	}
	data, err := c.genai.Files.Download(ctx, genai.NewDownloadURIFromVideo(video), nil)
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyResponse
	}
	return data, nil
}

func (c *Client) pollVideo(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	for attempt := 0; attempt < c.pollAttempts; attempt++ {
		if op.Done {
			if len(op.Error) > 0 {
				if c.log != nil {
					c.log.Error("video generation failed", "operation", op.Name, "error", op.Error)
				}
				return nil, fmt.Errorf("video generation failed: %v", op.Error["message"])
			}
			if c.log != nil {
				c.log.Info("video generation completed", "operation", op.Name, "attempt", attempt+1)
			}
			return op, nil
		}

		if c.log != nil && attempt%10 == 0 {
			c.log.Info("video generation waiting", "operation", op.Name, "attempt", attempt+1, "max_attempts", c.pollAttempts)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		next, err := c.genai.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return nil, fmt.Errorf("get video operation: %w", err)
		}
		op = next
	}
	return nil, fmt.Errorf("video generation timeout after %d attempts", c.pollAttempts)
}
