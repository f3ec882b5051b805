package live

import (
	"fmt"
	"sync"
)

// Source is one scheduled frame on an Output.
type Source interface {
	Stop()
	Done() <-chan struct{}
}

// Output is an audio sink with its own clock, in seconds.
type Output interface {
	CurrentTime() float64
	Play(samples []float32, sampleRate int, at float64) (Source, error)
	Close() error
}

// Playback schedules inbound frames back to back on an Output.
type Playback struct {
	mu         sync.Mutex
	out        Output
	sampleRate int
	cursor     float64
	sources    map[Source]struct{}
}

func NewPlayback(out Output, sampleRate int) *Playback {
	if sampleRate <= 0 {
		sampleRate = OutputSampleRate
	}
	return &Playback{
		out:        out,
		sampleRate: sampleRate,
		sources:    make(map[Source]struct{}),
	}
}

// Enqueue starts samples at max(cursor, now) and advances the cursor by their duration.
func (p *Playback) Enqueue(samples []float32) (float64, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	start := p.cursor
	if now := p.out.CurrentTime(); now > start {
		start = now
	}
	src, err := p.out.Play(samples, p.sampleRate, start)
	if err != nil {
		return 0, fmt.Errorf("schedule frame: %w", err)
	}
	p.cursor = start + FrameDuration(len(samples), p.sampleRate)
	p.sources[src] = struct{}{}

	go func() {
		<-src.Done()
		p.mu.Lock()
		delete(p.sources, src)
		p.mu.Unlock()
	}()
	return start, nil
}

// Interrupt stops every scheduled source and rewinds the cursor.
func (p *Playback) Interrupt() {
	p.mu.Lock()
	sources := p.sources
	p.sources = make(map[Source]struct{})
	p.cursor = 0
	p.mu.Unlock()

	for src := range sources {
		src.Stop()
	}
}

func (p *Playback) Cursor() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Pending is the number of sources scheduled and not yet finished.
func (p *Playback) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sources)
}
