package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// WSChannel is the client end of the relay websocket.
type WSChannel struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	pending []Event
	once    sync.Once
}

// Dial opens the relay at url, authenticating with a bearer token.
func Dial(ctx context.Context, url, token string) (*WSChannel, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial live relay: status=%d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial live relay: %w", err)
	}
	return &WSChannel{conn: conn}, nil
}

func (c *WSChannel) SendAudio(_ context.Context, blob Blob) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(ClientMessage{RealtimeInput: &RealtimeInput{Media: blob}}); err != nil {
		return fmt.Errorf("send audio: %w", err)
	}
	return nil
}

// Receive returns the next event. A normal close from the relay yields io.EOF.
func (c *WSChannel) Receive(_ context.Context) (Event, error) {
	for len(c.pending) == 0 {
		var msg ServerMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return Event{}, io.EOF
			}
			return Event{}, fmt.Errorf("receive: %w", err)
		}
		c.pending = msg.Events()
	}
	ev := c.pending[0]
	c.pending = c.pending[1:]
	return ev, nil
}

func (c *WSChannel) Close() error {
	var err error
	c.once.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// ServerConn is the relay side of the same websocket.
type ServerConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	once    sync.Once
}

func NewServerConn(conn *websocket.Conn) *ServerConn {
	return &ServerConn{conn: conn}
}

// ReadInput blocks for the next audio frame from the caller.
func (s *ServerConn) ReadInput() (Blob, error) {
	for {
		var msg ClientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return Blob{}, io.EOF
			}
			return Blob{}, fmt.Errorf("read input: %w", err)
		}
		if msg.RealtimeInput != nil && msg.RealtimeInput.Media.Data != "" {
			return msg.RealtimeInput.Media, nil
		}
	}
}

func (s *ServerConn) WriteEvent(ev Event) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(MessageFromEvent(ev))
}

func (s *ServerConn) Close() error {
	var err error
	s.once.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
