package live

// EventType classifies what arrived from the model side of a session.
type EventType string

const (
	EventAudio        EventType = "audio"
	EventInterrupted  EventType = "interrupted"
	EventTurnComplete EventType = "turn_complete"
	EventError        EventType = "error"
)

// Event is one inbound session event. Audio is base64 PCM16 at OutputSampleRate.
type Event struct {
	Type  EventType
	Audio string
	Err   string
}

// ClientMessage is what the caller sends over the websocket.
type ClientMessage struct {
	RealtimeInput *RealtimeInput `json:"realtime_input,omitempty"`
}

type RealtimeInput struct {
	Media Blob `json:"media"`
}

// ServerMessage is what the relay sends back.
type ServerMessage struct {
	ServerContent *ServerContent `json:"server_content,omitempty"`
	Error         *ErrorMessage  `json:"error,omitempty"`
}

type ServerContent struct {
	Audio        string `json:"audio,omitempty"`
	Interrupted  bool   `json:"interrupted,omitempty"`
	TurnComplete bool   `json:"turn_complete,omitempty"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

// Events expands a server message in arrival order: interruption, audio, turn end.
func (m ServerMessage) Events() []Event {
	var out []Event
	if m.Error != nil {
		out = append(out, Event{Type: EventError, Err: m.Error.Message})
	}
	if sc := m.ServerContent; sc != nil {
		if sc.Interrupted {
			out = append(out, Event{Type: EventInterrupted})
		}
		if sc.Audio != "" {
			out = append(out, Event{Type: EventAudio, Audio: sc.Audio})
		}
		if sc.TurnComplete {
			out = append(out, Event{Type: EventTurnComplete})
		}
	}
	return out
}

// MessageFromEvent is the inverse of Events for a single event.
func MessageFromEvent(ev Event) ServerMessage {
	switch ev.Type {
	case EventError:
		return ServerMessage{Error: &ErrorMessage{Message: ev.Err}}
	case EventInterrupted:
		return ServerMessage{ServerContent: &ServerContent{Interrupted: true}}
	case EventTurnComplete:
		return ServerMessage{ServerContent: &ServerContent{TurnComplete: true}}
	default:
		return ServerMessage{ServerContent: &ServerContent{Audio: ev.Audio}}
	}
}
