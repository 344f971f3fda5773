package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"tack/audio"
	"tack/focus"
	"tack/log"
	"tack/soundbank"
)

const (
	fullVolume   = 1.0
	duckedVolume = 0.25
)

// Listener is told when playback stopped because another player took the
// output for good.
type Listener interface {
	OnAudioStop()
}

type ListenerFunc func()

func (f ListenerFunc) OnAudioStop() { f() }

type Options struct {
	Device       *audio.DeviceInfo
	BufferFrames int
	Arbiter      focus.Arbiter
	Listener     Listener
}

var _ focus.Listener = (*Engine)(nil)

type Stats struct {
	Ticks int64
	Main  TrackStats
	Long  TrackStats
}

// Engine is driven by an external clock calling Tick once per click.
// Settings may change at any time; a tick uses the values current when it
// is planned.
type Engine struct {
	actx     audio.Context
	bank     *soundbank.Bank
	opts     Options
	renderer *renderer

	sound       atomic.Pointer[soundbank.Sound]
	gain        atomic.Int32
	muted       atomic.Bool
	ignoreFocus atomic.Bool
	ticks       atomic.Int64

	mu     sync.Mutex
	main   *boostedStream
	long   *boostedStream
	volume float32
}

func New(actx audio.Context, bank *soundbank.Bank, opts Options) (*Engine, error) {
	if opts.Arbiter == nil {
		opts.Arbiter = focus.None{}
	}
	if opts.BufferFrames <= 0 {
		opts.BufferFrames = audio.DefaultBufferFrames
	}
	e := &Engine{
		actx:   actx,
		bank:   bank,
		opts:   opts,
		volume: fullVolume,
	}
	if err := e.SetSound(soundbank.Default); err != nil {
		return nil, err
	}
	e.renderer = newRenderer()
	return e, nil
}

func (e *Engine) openStream(name string) (*boostedStream, error) {
	cfg := audio.DefaultPlaybackConfig(name)
	cfg.BufferFrames = e.opts.BufferFrames
	s, err := e.actx.NewPlayback(e.opts.Device, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s track: %w", name, err)
	}
	return newBoostedStream(s, int(e.gain.Load())), nil
}

// Play opens and starts both tracks, then asks for audio focus unless
// focus is ignored. Calling Play while playing does nothing.
func (e *Engine) Play() error {
	e.mu.Lock()
	if e.main != nil {
		e.mu.Unlock()
		return nil
	}

	main, err := e.openStream(Main.String())
	if err != nil {
		e.mu.Unlock()
		return err
	}
	long, err := e.openStream(Long.String())
	if err != nil {
		main.Release()
		e.mu.Unlock()
		return err
	}

	e.volume = fullVolume
	e.renderer.playing.Store(true)
	streams := []*boostedStream{main, long}
	for i, s := range streams {
		if err := s.Start(); err != nil {
			e.renderer.playing.Store(false)
			for _, started := range streams[:i] {
				started.Stop()
			}
			main.Release()
			long.Release()
			e.mu.Unlock()
			return fmt.Errorf("starting playback: %w", err)
		}
	}
	e.main, e.long = main, long
	e.renderer.setOutputs(main, long)
	e.mu.Unlock()

	if e.ignoreFocus.Load() {
		return nil
	}
	if err := e.opts.Arbiter.Request(e); err != nil {
		log.Warnf("audio focus request: %v", err)
	}
	return nil
}

// Stop halts and releases both tracks and gives focus back. Queued ticks
// keep draining silently.
func (e *Engine) Stop() {
	e.stop()
}

// stop reports whether this call closed the tracks.
func (e *Engine) stop() bool {
	e.mu.Lock()
	e.renderer.playing.Store(false)
	main, long := e.main, e.long
	e.main, e.long = nil, nil
	e.renderer.setOutputs(nil, nil)
	e.mu.Unlock()

	for _, s := range []*boostedStream{main, long} {
		if s == nil {
			continue
		}
		s.Stop()
		s.Flush()
		s.Release()
	}
	if !e.ignoreFocus.Load() {
		e.opts.Arbiter.Abandon(e)
	}
	return main != nil
}

func (e *Engine) Playing() bool {
	return e.renderer.playing.Load()
}

// Tick plans one click and queues its segments. It never waits for audio.
func (e *Engine) Tick(t Tick, tempo, subdivisions int, beats []Accent) error {
	segments, err := Plan(t, tempo, subdivisions, beats, e.sound.Load(), e.muted.Load())
	if err != nil {
		return err
	}
	for _, s := range segments {
		e.renderer.enqueue(s)
	}
	e.ticks.Add(1)
	return nil
}

// SetSound resolves a preset. Unknown names fall back to the default
// sound; a payload that fails to decode leaves the current sound in place.
func (e *Engine) SetSound(name string) error {
	snd, err := e.bank.Select(name)
	if err != nil {
		return err
	}
	e.sound.Store(snd)
	return nil
}

func (e *Engine) Sound() *soundbank.Sound {
	return e.sound.Load()
}

func (e *Engine) SetGain(level int) {
	if level < 0 {
		level = 0
	}
	e.gain.Store(int32(level))

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range []*boostedStream{e.main, e.long} {
		if s != nil {
			s.setGain(level)
		}
	}
}

func (e *Engine) Gain() int {
	return int(e.gain.Load())
}

// SetMuted swaps every tick sound for silence without touching timing.
func (e *Engine) SetMuted(muted bool) {
	e.muted.Store(muted)
}

func (e *Engine) Muted() bool {
	return e.muted.Load()
}

func (e *Engine) SetIgnoreFocus(ignore bool) {
	e.ignoreFocus.Store(ignore)
}

func (e *Engine) IgnoreFocus() bool {
	return e.ignoreFocus.Load()
}

// ResetTracks clears the main queue and replaces the long worker, cutting
// off any sustained sound.
func (e *Engine) ResetTracks() {
	e.renderer.reset()
}

// Drain waits until every queued segment has been rendered.
func (e *Engine) Drain(ctx context.Context) error {
	return e.renderer.drain(ctx)
}

func (e *Engine) Stats() Stats {
	main, long := e.renderer.snapshot()
	return Stats{Ticks: e.ticks.Load(), Main: main, Long: long}
}

// Volume is the focus-driven output level, 1 or 0.25 while ducked.
func (e *Engine) Volume() float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

func (e *Engine) setVolume(v float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = v
	for _, s := range []*boostedStream{e.main, e.long} {
		if s != nil {
			s.SetVolume(v)
		}
	}
}

func (e *Engine) OnFocusGained() {
	log.FocusChange("gain", fullVolume)
	e.setVolume(fullVolume)
}

// OnFocusLostPermanent stops playback and tells the listener once.
func (e *Engine) OnFocusLostPermanent() {
	log.FocusChange("loss", 0)
	if e.stop() && e.opts.Listener != nil {
		e.opts.Listener.OnAudioStop()
	}
}

func (e *Engine) OnFocusLostTransient() {
	log.FocusChange("loss_transient", duckedVolume)
	e.setVolume(duckedVolume)
}

// Close stops playback and every worker. The engine is unusable after.
func (e *Engine) Close() {
	e.Stop()
	e.renderer.close()
}
