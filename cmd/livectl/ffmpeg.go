package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/digkill/AIMultiverse/internal/live"
)

// captureFrameSamples matches the 4096-sample buffers the browser client sends.
const captureFrameSamples = 4096

func micArgs(goos, device string) ([]string, error) {
	var input []string
	switch goos {
	case "darwin":
		if device == "" {
			device = ":0"
		}
		input = []string{"-f", "avfoundation", "-i", device}
	case "linux":
		if device == "" {
			device = "default"
		}
		input = []string{"-f", "pulse", "-i", device}
	default:
		return nil, fmt.Errorf("microphone capture is not supported on %s", goos)
	}
	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, input...)
	return append(args,
		"-ac", "1", "-ar", strconv.Itoa(live.InputSampleRate),
		"-f", "f32le", "-",
	), nil
}

type ffmpegMic struct {
	device string
}

func (m ffmpegMic) Open(ctx context.Context) (live.Capture, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, errors.New("ffmpeg is required for microphone capture")
	}
	args, err := micArgs(runtime.GOOS, m.device)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open ffmpeg stdout: %w", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	c := &ffmpegCapture{cmd: cmd, frames: make(chan []float32, 8)}
	go c.read(stdout)
	return c, nil
}

type ffmpegCapture struct {
	cmd    *exec.Cmd
	frames chan []float32
	once   sync.Once
}

func (c *ffmpegCapture) read(r io.Reader) {
	defer close(c.frames)
	buf := make([]byte, captureFrameSamples*4)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return
		}
		c.frames <- decodeF32LE(buf)
	}
}

func decodeF32LE(buf []byte) []float32 {
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

func (c *ffmpegCapture) Frames() <-chan []float32 {
	return c.frames
}

func (c *ffmpegCapture) Close() error {
	c.once.Do(func() {
		if c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
			_ = c.cmd.Wait()
		}
	})
	return nil
}

// ffplayOutput plays 16-bit PCM through ffplay. Frames are written to the
// player at their scheduled time so that stopping a frame that has not
// started yet drops it cleanly. Stopping one that is already playing
// restarts the player to flush its buffer.
type ffplayOutput struct {
	start  time.Time
	queue  chan *ffplaySource
	closed chan struct{}
	once   sync.Once

	// qmu orders Play against Close so nothing is queued after the drain.
	qmu      sync.Mutex
	shutdown bool

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
	gen   int64
}

func newFFplayOutput() (live.Output, error) {
	if _, err := exec.LookPath("ffplay"); err != nil {
		return nil, errors.New("ffplay is required for playback")
	}
	o := &ffplayOutput{
		start:  time.Now(),
		queue:  make(chan *ffplaySource, 512),
		closed: make(chan struct{}),
	}
	o.mu.Lock()
	err := o.startLocked()
	o.mu.Unlock()
	if err != nil {
		return nil, err
	}
	go o.writeLoop()
	return o, nil
}

func (o *ffplayOutput) startLocked() error {
	o.cmd = exec.Command("ffplay",
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(live.OutputSampleRate),
		"-ac", "1",
		"-i", "pipe:0",
	)
	stdin, err := o.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open ffplay stdin: %w", err)
	}
	o.cmd.Stdout = io.Discard
	o.cmd.Stderr = io.Discard
	if err := o.cmd.Start(); err != nil {
		return fmt.Errorf("start ffplay: %w", err)
	}
	o.stdin = stdin
	o.gen++
	return nil
}

func (o *ffplayOutput) stopLocked() {
	if o.cmd != nil && o.cmd.Process != nil {
		_ = o.cmd.Process.Kill()
		_ = o.cmd.Wait()
	}
	o.stdin = nil
}

func (o *ffplayOutput) CurrentTime() float64 {
	return time.Since(o.start).Seconds()
}

func (o *ffplayOutput) Play(samples []float32, sampleRate int, at float64) (live.Source, error) {
	src := &ffplaySource{
		out:      o,
		pcm:      live.PCM16FromFloat(samples),
		at:       at,
		duration: time.Duration(live.FrameDuration(len(samples), sampleRate) * float64(time.Second)),
		stopped:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	o.qmu.Lock()
	defer o.qmu.Unlock()
	if o.shutdown {
		return nil, errors.New("output closed")
	}
	select {
	case o.queue <- src:
		return src, nil
	default:
		return nil, errors.New("playback queue full")
	}
}

func (o *ffplayOutput) writeLoop() {
	for {
		var src *ffplaySource
		select {
		case <-o.closed:
			return
		case src = <-o.queue:
		}

		wait := time.Until(o.start.Add(time.Duration(src.at * float64(time.Second))))
		timer := time.NewTimer(max(wait, 0))
		select {
		case <-o.closed:
			timer.Stop()
			src.finish()
			return
		case <-src.stopped:
			timer.Stop()
			continue
		case <-timer.C:
		}

		o.mu.Lock()
		if o.stdin == nil {
			o.mu.Unlock()
			src.finish()
			continue
		}
		_, err := o.stdin.Write(src.pcm)
		src.gen.Store(o.gen)
		o.mu.Unlock()
		if err != nil {
			src.finish()
			continue
		}
		time.AfterFunc(src.duration, src.finish)
	}
}

// flush restarts the player if it is still on generation gen.
func (o *ffplayOutput) flush(gen int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen || o.stdin == nil {
		return
	}
	select {
	case <-o.closed:
		return
	default:
	}
	o.stopLocked()
	_ = o.startLocked()
}

// Close stops the player and finishes every source still waiting to play.
func (o *ffplayOutput) Close() error {
	o.once.Do(func() {
		o.qmu.Lock()
		o.shutdown = true
		close(o.closed)
	drain:
		for {
			select {
			case src := <-o.queue:
				src.finish()
			default:
				break drain
			}
		}
		o.qmu.Unlock()

		o.mu.Lock()
		o.stopLocked()
		o.mu.Unlock()
	})
	return nil
}

type ffplaySource struct {
	out      *ffplayOutput
	pcm      []byte
	at       float64
	duration time.Duration
	gen      atomic.Int64

	stopped  chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	doneOnce sync.Once
}

func (s *ffplaySource) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		if gen := s.gen.Load(); gen != 0 {
			select {
			case <-s.done:
			default:
				s.out.flush(gen)
			}
		}
		s.finish()
	})
}

func (s *ffplaySource) Done() <-chan struct{} {
	return s.done
}

func (s *ffplaySource) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}
