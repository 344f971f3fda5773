// Package clock decides when each click happens and feeds the engine one
// tick at a time.
package clock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tack/engine"
)

type Ticker interface {
	Tick(t engine.Tick, tempo, subdivisions int, beats []engine.Accent) error
}

// resetter is implemented by tickers that must drop queued audio when the
// bar layout changes.
type resetter interface {
	ResetTracks()
}

// Pattern is one bar. Subdivisions has one entry per slot of a beat; the
// first slot is the beat itself and always plays the beat's accent.
type Pattern struct {
	Beats        []engine.Accent
	Subdivisions []engine.Accent
}

func (p Pattern) SubdivisionCount() int {
	return max(1, len(p.Subdivisions))
}

func (p Pattern) TicksPerBar() int {
	return len(p.Beats) * p.SubdivisionCount()
}

// TickAt returns the n-th tick counted from the start of a bar, wrapping
// across bars.
func (p Pattern) TickAt(n int) engine.Tick {
	subs := p.SubdivisionCount()
	n %= p.TicksPerBar()
	beat, sub := n/subs, n%subs
	t := engine.Tick{Type: p.Beats[beat], Beat: beat + 1, Subdivision: sub + 1}
	if sub > 0 {
		t.Type = p.Subdivisions[sub]
	}
	return t
}

// Ticks returns the first n ticks starting at the top of a bar.
func (p Pattern) Ticks(n int) []engine.Tick {
	ticks := make([]engine.Tick, n)
	for i := range ticks {
		ticks[i] = p.TickAt(i)
	}
	return ticks
}

func (p Pattern) Bar() []engine.Tick {
	return p.Ticks(p.TicksPerBar())
}

// Interval is the wall-clock time between two ticks.
func Interval(tempo, subdivisions int) time.Duration {
	return time.Minute / time.Duration(tempo*subdivisions)
}

// Metronome fires ticks against absolute deadlines so scheduling jitter
// never accumulates.
type Metronome struct {
	ticker Ticker

	// OnTick runs after every tick the engine accepted.
	OnTick func(engine.Tick)

	mu      sync.Mutex
	tempo   int
	pattern Pattern
	restart bool
}

func New(t Ticker, tempo int, p Pattern) *Metronome {
	return &Metronome{ticker: t, tempo: tempo, pattern: p}
}

func (m *Metronome) SetTempo(bpm int) {
	m.mu.Lock()
	m.tempo = bpm
	m.mu.Unlock()
}

func (m *Metronome) Tempo() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tempo
}

// SetPattern takes effect on the next tick, which starts a new bar.
func (m *Metronome) SetPattern(p Pattern) {
	m.mu.Lock()
	m.pattern = p
	m.restart = true
	m.mu.Unlock()
}

func (m *Metronome) Pattern() Pattern {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pattern
}

// Run ticks until ctx is done or the ticker rejects a tick.
func (m *Metronome) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	next := time.Now()
	n := 0
	for {
		m.mu.Lock()
		tempo, p, restart := m.tempo, m.pattern, m.restart
		m.restart = false
		m.mu.Unlock()

		if len(p.Beats) == 0 || tempo <= 0 {
			return fmt.Errorf("%w: tempo %d with %d beats", engine.ErrInvalidTick, tempo, len(p.Beats))
		}
		if restart {
			n = 0
			if r, ok := m.ticker.(resetter); ok {
				r.ResetTracks()
			}
		}

		t := p.TickAt(n)
		if err := m.ticker.Tick(t, tempo, p.SubdivisionCount(), p.Beats); err != nil {
			return err
		}
		if m.OnTick != nil {
			m.OnTick(t)
		}
		n++

		next = next.Add(Interval(tempo, p.SubdivisionCount()))
		timer.Reset(time.Until(next))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}
