package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"google.golang.org/genai"

	"github.com/digkill/AIMultiverse/internal/live"
)

// LiveSession adapts a vendor live session to live.Channel.
type LiveSession struct {
	session *genai.Session
	pending []live.Event
	closed  atomic.Bool
	sendMu  sync.Mutex
	once    sync.Once
}

// ConnectLive opens a native-audio session with the configured voice and persona.
func (c *Client) ConnectLive(ctx context.Context) (*LiveSession, error) {
	cfg := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.liveVoice},
			},
		},
	}
	if c.liveSystem != "" {
		cfg.SystemInstruction = genai.NewContentFromText(c.liveSystem, genai.RoleUser)
	}

	session, err := c.genai.Live.Connect(ctx, c.models.Live, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect live session: %w", err)
	}
	if c.log != nil {
		c.log.Info("live vendor session opened", "model", c.models.Live)
	}
	return &LiveSession{session: session}, nil
}

// LiveDialer exposes ConnectLive as a live.Dialer.
func (c *Client) LiveDialer() live.Dialer {
	return func(ctx context.Context) (live.Channel, error) {
		s, err := c.ConnectLive(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func (s *LiveSession) SendAudio(_ context.Context, blob live.Blob) error {
	data, err := base64.StdEncoding.DecodeString(blob.Data)
	if err != nil {
		return fmt.Errorf("decode input frame: %w", err)
	}
	mime := blob.MIMEType
	if mime == "" {
		mime = live.InputMIMEType
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := s.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: data, MIMEType: mime},
	}); err != nil {
		return fmt.Errorf("send realtime input: %w", err)
	}
	return nil
}

// Receive returns the next event. After Close it reports io.EOF.
func (s *LiveSession) Receive(_ context.Context) (live.Event, error) {
	for len(s.pending) == 0 {
		msg, err := s.session.Receive()
		if err != nil {
			if s.closed.Load() {
				return live.Event{}, io.EOF
			}
			return live.Event{}, fmt.Errorf("receive live message: %w", err)
		}
		s.pending = liveEvents(msg)
	}
	ev := s.pending[0]
	s.pending = s.pending[1:]
	return ev, nil
}

func (s *LiveSession) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		err = s.session.Close()
	})
	return err
}

func liveEvents(msg *genai.LiveServerMessage) []live.Event {
	if msg == nil || msg.ServerContent == nil {
		return nil
	}
	sc := msg.ServerContent
	var out []live.Event
	if sc.Interrupted {
		out = append(out, live.Event{Type: live.EventInterrupted})
	}
	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			out = append(out, live.Event{
				Type:  live.EventAudio,
				Audio: base64.StdEncoding.EncodeToString(part.InlineData.Data),
			})
		}
	}
	if sc.TurnComplete {
		out = append(out, live.Event{Type: live.EventTurnComplete})
	}
	return out
}
