package api

import (
	"net/http"

	"github.com/digkill/AIMultiverse/internal/ai"
	"github.com/digkill/AIMultiverse/internal/httpx"
	"github.com/digkill/AIMultiverse/internal/service"
)

// mediaPayload carries an attachment; Data is base64 in JSON.
type mediaPayload struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mimeType"`
}

func (p *mediaPayload) media() *ai.Media {
	if p == nil || len(p.Data) == 0 {
		return nil
	}
	return &ai.Media{Data: p.Data, MIMEType: p.MIMEType}
}

func (p mediaPayload) value() ai.Media {
	return ai.Media{Data: p.Data, MIMEType: p.MIMEType}
}

type chatRequest struct {
	Mode      ai.ChatMode   `json:"mode"`
	Message   string        `json:"message"`
	Image     *mediaPayload `json:"image"`
	Video     *mediaPayload `json:"video"`
	Latitude  *float64      `json:"latitude"`
	Longitude *float64      `json:"longitude"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.generation.Chat(r.Context(), s.accountID(r), service.ChatInput{
		Mode:      req.Mode,
		Message:   req.Message,
		Image:     req.Image.media(),
		Video:     req.Video.media(),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type translateRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"targetLang"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.generation.Translate(r.Context(), s.accountID(r), req.Text, req.TargetLang)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type speechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.generation.Speech(r.Context(), s.accountID(r), req.Text, req.Voice)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type transcribeRequest struct {
	Audio mediaPayload `json:"audio"`
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.generation.Transcribe(r.Context(), s.accountID(r), req.Audio.value())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type imageRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio"`
	Size        string `json:"size"`
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.generation.Image(r.Context(), s.accountID(r), ai.ImageRequest{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Size:        req.Size,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type videoRequest struct {
	Prompt      string        `json:"prompt"`
	AspectRatio string        `json:"aspectRatio"`
	Image       *mediaPayload `json:"image"`
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	var req videoRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.generation.Video(r.Context(), s.accountID(r), ai.VideoRequest{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Image:       req.Image.media(),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type documentRequest struct {
	Document mediaPayload `json:"document"`
	Prompt   string       `json:"prompt"`
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.generation.AnalyzeDocument(r.Context(), s.accountID(r), req.Document.value(), req.Prompt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type voiceCloneRequest struct {
	Sample  mediaPayload `json:"sample"`
	Text    string       `json:"text"`
	Model   string       `json:"model"`
	Seconds float64      `json:"seconds"`
	Voice   string       `json:"voice"`
}

func (s *Server) handleVoiceClone(w http.ResponseWriter, r *http.Request) {
	var req voiceCloneRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.generation.VoiceClone(r.Context(), s.accountID(r), service.VoiceCloneInput{
		Sample:  req.Sample.value(),
		Text:    req.Text,
		Model:   req.Model,
		Seconds: req.Seconds,
		Voice:   req.Voice,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
