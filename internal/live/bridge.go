package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
)

var (
	ErrAlreadyActive = errors.New("live session already active")
	ErrMicrophone    = errors.New("microphone unavailable")
	ErrConnectAbort  = errors.New("connect aborted by disconnect")
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	default:
		return "idle"
	}
}

const (
	StatusReady        = "Ready to connect"
	StatusInitializing = "Initializing..."
	StatusConnected    = "Connected! Speak now."
	StatusDisconnected = "Disconnected."
	StatusError        = "Error occurred."
	StatusMicDenied    = "Microphone access denied"
)

// Capture delivers fixed-size frames of float samples at InputSampleRate.
type Capture interface {
	Frames() <-chan []float32
	Close() error
}

type Microphone interface {
	Open(ctx context.Context) (Capture, error)
}

// Channel is one bidirectional session with the remote model.
type Channel interface {
	SendAudio(ctx context.Context, blob Blob) error
	Receive(ctx context.Context) (Event, error)
	Close() error
}

type Dialer func(ctx context.Context) (Channel, error)

type BridgeConfig struct {
	Microphone Microphone
	Dial       Dialer
	NewOutput  func() (Output, error)
	Logger     *slog.Logger
	// OnChange, when set, is called after every state or status change.
	OnChange func(Snapshot)
}

// Snapshot is a consistent view of the bridge for rendering.
type Snapshot struct {
	State  State
	Status string
	Muted  bool
	Level  float64
}

type Bridge struct {
	cfg BridgeConfig
	log *slog.Logger

	mu     sync.Mutex
	state  State
	status string
	muted  bool
	level  float64
	sess   *session
	// abort cancels an in-flight Connect; aborted records that Disconnect asked for it.
	abort   context.CancelFunc
	aborted bool
}

type session struct {
	capture  Capture
	channel  Channel
	output   Output
	playback *Playback
	cancel   context.CancelFunc
	once     sync.Once
}

// release frees every resource the session holds. Safe to call more than once.
func (s *session) release() {
	s.once.Do(func() {
		s.cancel()
		_ = s.capture.Close()
		_ = s.channel.Close()
		s.playback.Interrupt()
		_ = s.output.Close()
	})
}

func NewBridge(cfg BridgeConfig) *Bridge {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bridge{cfg: cfg, log: log, status: StatusReady}
}

// Connect acquires the microphone, the output and the channel, then starts
// both pipelines. On any failure everything acquired so far is released.
// A Disconnect during Connect aborts it once the pending step returns.
func (b *Bridge) Connect(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateIdle {
		b.mu.Unlock()
		return ErrAlreadyActive
	}
	ctx, abort := context.WithCancel(ctx)
	b.state = StateConnecting
	b.status = StatusInitializing
	b.abort = abort
	b.aborted = false
	b.mu.Unlock()
	b.changed()

	capture, err := b.cfg.Microphone.Open(ctx)
	if err != nil {
		b.log.Warn("microphone open failed", "err", err)
		return b.failConnect(StatusMicDenied, fmt.Errorf("%w: %v", ErrMicrophone, err))
	}

	output, err := b.cfg.NewOutput()
	if err != nil {
		_ = capture.Close()
		b.log.Error("audio output open failed", "err", err)
		return b.failConnect(StatusError, fmt.Errorf("open output: %w", err))
	}

	channel, err := b.cfg.Dial(ctx)
	if err != nil {
		_ = capture.Close()
		_ = output.Close()
		b.log.Error("live channel open failed", "err", err)
		return b.failConnect(StatusError, fmt.Errorf("open channel: %w", err))
	}

	runCtx, cancel := context.WithCancel(context.Background())
	stop := func() {
		cancel()
		abort()
	}
	s := &session{
		capture:  capture,
		channel:  channel,
		output:   output,
		playback: NewPlayback(output, OutputSampleRate),
		cancel:   stop,
	}

	b.mu.Lock()
	if b.aborted {
		b.mu.Unlock()
		s.release()
		return b.failConnect(StatusDisconnected, ErrConnectAbort)
	}
	b.sess = s
	b.abort = nil
	b.state = StateStreaming
	b.status = StatusConnected
	b.mu.Unlock()
	b.changed()
	b.log.Info("live session started")

	go b.captureLoop(runCtx, s)
	go b.receiveLoop(runCtx, s)
	return nil
}

// failConnect returns the bridge to idle after a failed Connect. A failure
// caused by Disconnect reports as a plain disconnect.
func (b *Bridge) failConnect(status string, err error) error {
	b.mu.Lock()
	abort := b.abort
	b.abort = nil
	if b.aborted {
		status = StatusDisconnected
		err = ErrConnectAbort
	}
	b.mu.Unlock()
	if abort != nil {
		abort()
	}
	b.reset(status)
	return err
}

// Disconnect tears the session down, or aborts a Connect in progress.
// Calling it while idle is a no-op.
func (b *Bridge) Disconnect() {
	b.mu.Lock()
	if b.state == StateConnecting && b.abort != nil {
		b.aborted = true
		abort := b.abort
		b.mu.Unlock()
		abort()
		b.log.Info("live connect aborted")
		return
	}
	b.mu.Unlock()
	b.end(nil, nil)
}

func (b *Bridge) SetMuted(muted bool) {
	b.mu.Lock()
	b.muted = muted
	b.mu.Unlock()
	b.changed()
}

func (b *Bridge) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{State: b.state, Status: b.status, Muted: b.muted, Level: b.level}
}

func (b *Bridge) State() State   { return b.Snapshot().State }
func (b *Bridge) Status() string { return b.Snapshot().Status }

// Playback exposes the active scheduler, nil when idle.
func (b *Bridge) Playback() *Playback {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sess == nil {
		return nil
	}
	return b.sess.playback
}

func (b *Bridge) captureLoop(ctx context.Context, s *session) {
	frames := s.capture.Frames()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				b.end(s, io.EOF)
				return
			}
			b.mu.Lock()
			b.level = RMSLevel(frame)
			muted := b.muted
			b.mu.Unlock()
			if muted {
				continue
			}
			if err := s.channel.SendAudio(ctx, EncodeFrame(frame)); err != nil {
				if ctx.Err() != nil {
					return
				}
				b.end(s, err)
				return
			}
		}
	}
}

func (b *Bridge) receiveLoop(ctx context.Context, s *session) {
	for {
		ev, err := s.channel.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.end(s, err)
			return
		}

		switch ev.Type {
		case EventAudio:
			samples, err := DecodeFrame(ev.Audio)
			if err != nil {
				b.log.Warn("drop undecodable frame", "err", err)
				continue
			}
			if _, err := s.playback.Enqueue(samples); err != nil {
				b.log.Warn("schedule frame failed", "err", err)
			}
		case EventInterrupted:
			s.playback.Interrupt()
		case EventError:
			b.end(s, errors.New(ev.Err))
			return
		}
	}
}

// end releases s if it is still the active session. A nil s means the
// current one, whatever it is.
func (b *Bridge) end(s *session, cause error) {
	b.mu.Lock()
	if b.sess == nil || (s != nil && b.sess != s) {
		b.mu.Unlock()
		return
	}
	s = b.sess
	b.sess = nil
	b.state = StateIdle
	b.level = 0
	b.status = StatusDisconnected
	if cause != nil && !errors.Is(cause, io.EOF) {
		b.status = StatusError
	}
	b.mu.Unlock()

	s.release()
	if cause != nil && !errors.Is(cause, io.EOF) {
		b.log.Error("live session failed", "err", cause)
	} else {
		b.log.Info("live session closed")
	}
	b.changed()
}

func (b *Bridge) reset(status string) {
	b.mu.Lock()
	b.state = StateIdle
	b.status = status
	b.mu.Unlock()
	b.changed()
}

func (b *Bridge) changed() {
	if b.cfg.OnChange != nil {
		b.cfg.OnChange(b.Snapshot())
	}
}

// LevelBars renders a level as a count of n bars, for simple meters.
func LevelBars(level float64, n int) int {
	bars := int(math.Round(math.Min(level*4, 1) * float64(n)))
	if bars < 0 {
		return 0
	}
	return bars
}
