package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"tack/audio"
	"tack/clock"
	"tack/config"
	"tack/engine"
	"tack/focus"
	"tack/log"
	"tack/soundbank"
)

const maxNotes = 8

// session owns the clock goroutine and the engine it drives. The TUI and
// the headless loop only talk to the engine through it.
type session struct {
	ctx     context.Context
	eng     *engine.Engine
	metro   *clock.Metronome
	arbiter *focus.Manual
	bank    *soundbank.Bank
	device  *audio.DeviceInfo
	backend string
	// hotkey names the global play/stop combination, if one is registered.
	hotkey string

	// echo, when set, receives every note as it is taken.
	echo io.Writer

	last atomic.Pointer[engine.Tick]

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	notes  []string
}

var _ engine.Listener = (*session)(nil)

type sessionOptions struct {
	Context audio.Context
	Bank    *soundbank.Bank
	Device  *audio.DeviceInfo
	Backend string
	Config  config.Config
}

func newSession(ctx context.Context, opts sessionOptions) (*session, error) {
	cfg := opts.Config
	s := &session{
		ctx:     ctx,
		arbiter: focus.NewManual(),
		bank:    opts.Bank,
		device:  opts.Device,
		backend: opts.Backend,
	}

	eng, err := engine.New(opts.Context, opts.Bank, engine.Options{
		Device:       opts.Device,
		BufferFrames: cfg.BufferFrames,
		Arbiter:      s.arbiter,
		Listener:     s,
	})
	if err != nil {
		return nil, err
	}
	if err := eng.SetSound(cfg.Sound); err != nil {
		eng.Close()
		return nil, err
	}
	eng.SetGain(cfg.Gain)
	eng.SetMuted(cfg.Muted)
	eng.SetIgnoreFocus(cfg.IgnoreFocus)
	s.eng = eng

	s.metro = clock.New(eng, cfg.Tempo, clock.Pattern{Beats: cfg.Beats, Subdivisions: cfg.Subdivisions})
	s.metro.OnTick = func(t engine.Tick) { s.last.Store(&t) }
	return s, nil
}

// start opens the outputs and starts the clock. Starting a running session
// does nothing.
func (s *session) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runningLocked() {
		return nil
	}
	if err := s.eng.Play(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	go func() {
		defer close(done)
		if err := s.metro.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.note("Clock stopped: %v", err)
			s.eng.Stop()
		}
	}()
	return nil
}

// stop halts the clock and the outputs, and drops whatever audio is still
// queued so the next start begins on a clean bar.
func (s *session) stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	s.eng.Stop()
	s.eng.ResetTracks()
	s.last.Store(nil)
}

func (s *session) toggle() error {
	if s.running() {
		s.stop()
		s.note("Stopped")
		return nil
	}
	if err := s.start(); err != nil {
		s.note("Cannot play: %v", err)
		return err
	}
	s.note("Playing")
	return nil
}

func (s *session) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningLocked()
}

func (s *session) runningLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// OnAudioStop is called by the engine after another player took the
// output for good.
func (s *session) OnAudioStop() {
	s.stop()
	s.note("Output taken by another player, stopped")
}

// lastTick returns the most recent tick while the clock runs.
func (s *session) lastTick() (engine.Tick, bool) {
	t := s.last.Load()
	if t == nil || !s.running() {
		return engine.Tick{}, false
	}
	return *t, true
}

func (s *session) nudgeTempo(delta int) int {
	bpm := min(max(s.metro.Tempo()+delta, config.MinTempo), config.MaxTempo)
	s.metro.SetTempo(bpm)
	return bpm
}

func (s *session) nudgeGain(delta int) int {
	level := min(max(s.eng.Gain()+delta, 0), config.MaxGain)
	s.eng.SetGain(level)
	return level
}

// nextSound switches to the preset after the current one and cuts off
// anything the old sound still had queued.
func (s *session) nextSound() string {
	names := s.bank.Names()
	if len(names) == 0 {
		return ""
	}
	i := 0
	if snd := s.eng.Sound(); snd != nil {
		i = slices.Index(names, snd.Name) + 1
	}
	name := names[i%len(names)]
	if err := s.eng.SetSound(name); err != nil {
		s.note("Sound %s: %v", name, err)
		return s.eng.Sound().Name
	}
	s.eng.ResetTracks()
	s.note("Sound: %s", name)
	return name
}

func (s *session) toggleMuted() bool {
	muted := !s.eng.Muted()
	s.eng.SetMuted(muted)
	return muted
}

func (s *session) toggleIgnoreFocus() bool {
	ignore := !s.eng.IgnoreFocus()
	s.eng.SetIgnoreFocus(ignore)
	if ignore {
		s.note("Ignoring other players")
	} else {
		s.note("Yielding to other players")
	}
	return ignore
}

// focusEvent plays the part of another player on the same output.
func (s *session) focusEvent(kind string) {
	if !s.arbiter.Held() {
		s.note("No audio focus held")
		return
	}
	switch kind {
	case "duck":
		s.note("Another player speaks, ducking")
		s.arbiter.Duck()
	case "loss":
		s.arbiter.Loss()
	case "gain":
		s.note("Focus back, full volume")
		s.arbiter.Gain()
	}
}

func (s *session) note(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	log.Info(text)

	s.mu.Lock()
	s.notes = append(s.notes, time.Now().Format("15:04:05")+" "+text)
	if len(s.notes) > maxNotes {
		s.notes = s.notes[len(s.notes)-maxNotes:]
	}
	echo := s.echo
	s.mu.Unlock()

	if echo != nil {
		fmt.Fprintln(echo, text)
	}
}

func (s *session) recentNotes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.notes)
}

// close stops everything and returns the number of ticks played.
func (s *session) close() int64 {
	s.stop()
	ticks := s.eng.Stats().Ticks
	s.eng.Close()
	return ticks
}
