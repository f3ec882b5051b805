package live

import (
	"context"
	"errors"
	"io"
	"sync"
)

type fakeSource struct {
	at      float64
	samples int
	done    chan struct{}
	once    sync.Once
}

func (s *fakeSource) Stop()                 { s.once.Do(func() { close(s.done) }) }
func (s *fakeSource) Done() <-chan struct{} { return s.done }

type fakeOutput struct {
	mu      sync.Mutex
	now     float64
	played  []*fakeSource
	closed  bool
	playErr error
}

func (o *fakeOutput) CurrentTime() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.now
}

func (o *fakeOutput) setNow(t float64) {
	o.mu.Lock()
	o.now = t
	o.mu.Unlock()
}

func (o *fakeOutput) Play(samples []float32, _ int, at float64) (Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.playErr != nil {
		return nil, o.playErr
	}
	src := &fakeSource{at: at, samples: len(samples), done: make(chan struct{})}
	o.played = append(o.played, src)
	return src, nil
}

func (o *fakeOutput) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	return nil
}

func (o *fakeOutput) snapshot() ([]*fakeSource, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*fakeSource(nil), o.played...), o.closed
}

type fakeCapture struct {
	frames chan []float32
	mu     sync.Mutex
	closed bool
}

func (c *fakeCapture) Frames() <-chan []float32 { return c.frames }

func (c *fakeCapture) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeCapture) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeMic struct {
	capture *fakeCapture
	err     error
}

func (m *fakeMic) Open(context.Context) (Capture, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.capture, nil
}

type fakeChannel struct {
	sent   chan Blob
	events chan Event
	errs   chan error
	closed chan struct{}
	once   sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		sent:   make(chan Blob, 16),
		events: make(chan Event, 16),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (c *fakeChannel) SendAudio(_ context.Context, blob Blob) error {
	select {
	case <-c.closed:
		return errors.New("closed")
	default:
	}
	c.sent <- blob
	return nil
}

func (c *fakeChannel) Receive(context.Context) (Event, error) {
	select {
	case ev := <-c.events:
		return ev, nil
	case err := <-c.errs:
		return Event{}, err
	case <-c.closed:
		return Event{}, io.EOF
	}
}

func (c *fakeChannel) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeChannel) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
