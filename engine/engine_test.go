package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"tack/audio"
	"tack/focus"
	"tack/sample"
	"tack/soundbank"
)

type payloads map[string]sample.Buffer

func (p payloads) Payload(id string) ([]byte, error) {
	b, ok := p[id]
	if !ok {
		return nil, soundbank.ErrPayloadNotFound
	}
	return sample.Encode(b), nil
}

var (
	normalSound = constant(1000, 0.25)
	strongSound = constant(3000, 0.5)
	subSound    = constant(500, 0.125)
)

func testBank() *soundbank.Bank {
	src := soundbank.Chain{
		payloads{"n": normalSound, "s": strongSound, "u": subSound},
		soundbank.NewSynthSource(),
	}
	slots := func(name string, long bool) soundbank.Preset {
		return soundbank.Preset{
			Name:       name,
			Normal:     soundbank.Slot{Payload: "n"},
			Strong:     soundbank.Slot{Payload: "s"},
			Sub:        soundbank.Slot{Payload: "u"},
			StrongLong: long,
		}
	}
	return soundbank.New(src, slots("clicks", false), slots("ring", true))
}

func newTestEngine(t *testing.T, opts Options) (*Engine, *audio.FakeContext) {
	t.Helper()
	actx := audio.NewFakeContext()
	e, err := New(actx, testBank(), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Close)
	return e, actx
}

func drain(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func playBar(t *testing.T, e *Engine, tempo int, beats []Accent) {
	t.Helper()
	for i, a := range beats {
		if err := e.Tick(Tick{Type: a, Beat: i + 1, Subdivision: 1}, tempo, 1, beats); err != nil {
			t.Fatalf("Tick %d: %v", i+1, err)
		}
	}
}

func checkSpan(t *testing.T, label string, got []float32, sound sample.Buffer, frames int) {
	t.Helper()
	if len(got) != frames {
		t.Fatalf("%s: %d frames, want %d", label, len(got), frames)
	}
	for i, v := range got {
		want := float32(0)
		if i < len(sound) {
			want = sound[i]
		}
		if v != want {
			t.Fatalf("%s: frame %d = %v, want %v", label, i, v, want)
		}
	}
}

func TestLongSoundBar(t *testing.T) {
	e, actx := newTestEngine(t, Options{})
	if err := e.SetSound("ring"); err != nil {
		t.Fatalf("SetSound: %v", err)
	}
	if err := e.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	playBar(t, e, 120, []Accent{Strong, Normal, Normal, Normal})
	drain(t, e)

	main := actx.Stream("main").Frames()
	long := actx.Stream("long").Frames()
	if len(main) != 4*24000 {
		t.Fatalf("main track has %d frames, want %d", len(main), 4*24000)
	}
	checkSpan(t, "main beat 1", main[:24000], nil, 24000)
	for beat := 1; beat < 4; beat++ {
		checkSpan(t, "main normal beat", main[beat*24000:(beat+1)*24000], normalSound, 24000)
	}
	checkSpan(t, "long", long, strongSound, 96000)

	st := e.Stats()
	if st.Ticks != 4 || st.Main.Tasks != 4 || st.Long.Tasks != 1 {
		t.Errorf("stats = %+v, want 4 ticks, 4 main tasks, 1 long task", st)
	}
}

func TestShortSoundKeepsTracksInStep(t *testing.T) {
	e, actx := newTestEngine(t, Options{})
	e.SetSound("clicks")
	e.Play()

	beats := []Accent{Strong, Sub}
	for i, a := range beats {
		e.Tick(Tick{Type: a, Beat: i + 1, Subdivision: 1}, 240, 1, beats)
	}
	drain(t, e)

	main := actx.Stream("main").Frames()
	checkSpan(t, "strong", main[:12000], strongSound, 12000)
	checkSpan(t, "sub", main[12000:], subSound, 12000)
	checkSpan(t, "long", actx.Stream("long").Frames(), nil, 24000)
}

func TestMutedRendersSilence(t *testing.T) {
	e, actx := newTestEngine(t, Options{})
	e.SetSound("ring")
	e.SetMuted(true)
	e.Play()

	playBar(t, e, 120, []Accent{Strong, Normal, Normal, Normal})
	drain(t, e)

	checkSpan(t, "main", actx.Stream("main").Frames(), nil, 96000)
	checkSpan(t, "long", actx.Stream("long").Frames(), nil, 96000)
}

func TestTicksWhileStoppedAreConsumed(t *testing.T) {
	e, actx := newTestEngine(t, Options{})
	e.SetSound("clicks")

	playBar(t, e, 120, []Accent{Strong, Normal})
	drain(t, e)

	if n := len(actx.Streams()); n != 0 {
		t.Errorf("%d streams opened while stopped", n)
	}
	st := e.Stats()
	if st.Main.Skipped != 48000 || st.Main.Frames != 0 {
		t.Errorf("main stats = %+v, want 48000 skipped frames", st.Main)
	}
}

func TestWriteFailureAbandonsTask(t *testing.T) {
	e, actx := newTestEngine(t, Options{})
	e.SetSound("clicks")
	e.Play()

	boom := errors.New("device gone")
	main := actx.Stream("main")
	main.FailWritesAfter(0, boom)

	beats := []Accent{Strong}
	e.Tick(Tick{Type: Strong, Beat: 1}, 120, 1, beats)
	drain(t, e)

	if st := e.Stats(); st.Main.Failures != 1 {
		t.Fatalf("main failures = %d, want 1", st.Main.Failures)
	}
	if n := len(main.Frames()); n != 0 {
		t.Fatalf("main got %d frames from a failed task", n)
	}

	main.FailWritesAfter(-1, nil)
	e.Tick(Tick{Type: Strong, Beat: 1}, 120, 1, beats)
	drain(t, e)
	checkSpan(t, "main after failure", main.Frames(), strongSound, 24000)
	checkSpan(t, "long", actx.Stream("long").Frames(), nil, 48000)
}

func TestResetReplacesLongWorkerOnly(t *testing.T) {
	e, actx := newTestEngine(t, Options{})
	e.SetSound("ring")
	e.Play()

	long := actx.Stream("long")
	long.Block()

	beats := []Accent{Strong, Normal, Normal, Normal}
	e.Tick(Tick{Type: Strong, Beat: 1}, 120, 1, beats)

	r := e.renderer
	mainWorker, oldLong := r.main, r.long
	e.ResetTracks()
	long.Unblock()

	select {
	case <-oldLong.done:
	case <-time.After(5 * time.Second):
		t.Fatal("replaced long worker did not exit")
	}
	if r.main != mainWorker {
		t.Error("main worker was replaced by reset")
	}
	if r.long == oldLong {
		t.Error("long worker was not replaced by reset")
	}
	if n := len(long.Frames()); n >= 96000 {
		t.Errorf("cancelled sustain wrote %d frames, want it cut short", n)
	}

	before := len(long.Frames())
	e.Tick(Tick{Type: Strong, Beat: 1}, 120, 1, beats)
	drain(t, e)
	if got := len(long.Frames()) - before; got != 96000 {
		t.Errorf("new long worker wrote %d frames, want 96000", got)
	}
}

func TestResetClearsMainQueue(t *testing.T) {
	e, actx := newTestEngine(t, Options{})
	e.SetSound("clicks")
	e.Play()

	main := actx.Stream("main")
	main.Block()

	beats := []Accent{Strong, Normal, Normal}
	playBar(t, e, 120, beats)
	waitFor(t, "first main task to start", func() bool { return e.renderer.main.queue.len() == 2 })

	e.ResetTracks()
	main.Unblock()
	drain(t, e)

	if st := e.Stats(); st.Main.Cleared != 2 || st.Main.Tasks != 1 {
		t.Errorf("main stats = %+v, want 1 task run and 2 cleared", st.Main)
	}
	checkSpan(t, "main", main.Frames(), strongSound, 24000)
}

func TestDrainHonoursContext(t *testing.T) {
	e, actx := newTestEngine(t, Options{})
	e.Play()
	main := actx.Stream("main")
	main.Block()
	defer main.Unblock()

	e.Tick(Tick{Type: Strong, Beat: 1}, 120, 1, []Accent{Strong})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Drain = %v, want DeadlineExceeded", err)
	}
}

func TestGainBoostAppliesToOutput(t *testing.T) {
	e, actx := newTestEngine(t, Options{})
	e.SetSound("clicks")
	e.SetGain(6)
	e.Play()

	e.Tick(Tick{Type: Normal, Beat: 1}, 120, 1, []Accent{Normal})
	drain(t, e)

	got := actx.Stream("main").Frames()
	want := normalSound[0] * GainFactor(6)
	if d := got[0] - want; d > 1e-5 || d < -1e-5 {
		t.Errorf("boosted frame = %v, want %v", got[0], want)
	}
	if normalSound[0] != 0.25 {
		t.Error("gain boost modified the shared sound buffer")
	}
	if e.Gain() != 6 {
		t.Errorf("Gain() = %d, want 6", e.Gain())
	}
}

func TestPlayRequestsFocusAndStopAbandons(t *testing.T) {
	arb := focus.NewManual()
	e, actx := newTestEngine(t, Options{Arbiter: arb})

	if err := e.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := e.Play(); err != nil {
		t.Fatalf("second Play: %v", err)
	}
	if n := len(actx.Streams()); n != 2 {
		t.Errorf("opened %d streams, want 2", n)
	}
	if !arb.Held() {
		t.Fatal("focus not requested on Play")
	}

	e.Stop()
	for _, s := range actx.Streams() {
		if s.Running() || s.Flushes() != 1 || !s.Released() {
			t.Errorf("%s: running=%v flushes=%d released=%v", s.Name, s.Running(), s.Flushes(), s.Released())
		}
	}
	if arb.Held() {
		t.Error("focus still held after Stop")
	}
	if e.Playing() {
		t.Error("Playing() after Stop")
	}
}

func TestIgnoreFocusSkipsArbiter(t *testing.T) {
	arb := focus.NewManual()
	e, _ := newTestEngine(t, Options{Arbiter: arb})
	e.SetIgnoreFocus(true)
	if !e.IgnoreFocus() {
		t.Fatal("IgnoreFocus() = false")
	}

	e.Play()
	if arb.Held() {
		t.Error("focus requested with ignore focus set")
	}
}

func TestFocusTransitions(t *testing.T) {
	arb := focus.NewManual()
	var stops atomic.Int32
	e, actx := newTestEngine(t, Options{
		Arbiter:  arb,
		Listener: ListenerFunc(func() { stops.Add(1) }),
	})
	e.Play()

	arb.Duck()
	for _, s := range actx.Streams() {
		if s.Volume() != duckedVolume {
			t.Errorf("%s volume after duck = %v, want %v", s.Name, s.Volume(), duckedVolume)
		}
	}
	if !e.Playing() {
		t.Error("transient loss stopped playback")
	}

	arb.Gain()
	for _, s := range actx.Streams() {
		if s.Volume() != fullVolume {
			t.Errorf("%s volume after regain = %v, want 1", s.Name, s.Volume())
		}
	}

	arb.Loss()
	for _, s := range actx.Streams() {
		if s.Running() || !s.Released() {
			t.Errorf("%s still open after permanent loss", s.Name)
		}
	}
	if n := stops.Load(); n != 1 {
		t.Errorf("listener called %d times, want 1", n)
	}

	e.OnFocusLostPermanent()
	if n := stops.Load(); n != 1 {
		t.Errorf("listener called %d times after a second loss, want 1", n)
	}
}

func TestSetSoundFallsBackToDefault(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	if err := e.SetSound("kazoo"); err != nil {
		t.Fatalf("SetSound: %v", err)
	}
	if got := e.Sound().Name; got != soundbank.Default {
		t.Errorf("sound = %q, want %q", got, soundbank.Default)
	}
}

func TestPlayFailsWhenOutputCannotOpen(t *testing.T) {
	actx := audio.NewFakeContext()
	actx.OpenErr = errors.New("no device")
	e, err := New(actx, testBank(), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	if err := e.Play(); err == nil {
		t.Fatal("Play succeeded without an output")
	}
	if e.Playing() {
		t.Error("Playing() after failed Play")
	}
}

func TestRestartWhileWriteInFlight(t *testing.T) {
	e, actx := newTestEngine(t, Options{})
	e.SetSound("clicks")
	if err := e.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	old := actx.Stream("main")
	old.Hold()
	e.Tick(Tick{Type: Strong, Beat: 1, Subdivision: 1}, 120, 1, []Accent{Strong})
	old.WaitParked()

	e.Stop()
	if err := e.Play(); err != nil {
		t.Fatalf("second Play: %v", err)
	}
	old.Unblock()
	drain(t, e)

	if st := e.Stats(); st.Main.Failures != 0 || st.Long.Failures != 0 {
		t.Fatalf("stats = %+v, want no failures after restart", st)
	}
	current := actx.Stream("main")
	if current == old {
		t.Fatal("Play reused the released main stream")
	}
	checkSpan(t, "main after restart", current.Frames(), strongSound, 24000)
}

func TestPlayStopsStartedTrackWhenStartFails(t *testing.T) {
	actx := audio.NewFakeContext()
	actx.StartErr = map[string]error{"long": errors.New("device busy")}
	e, err := New(actx, testBank(), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	if err := e.Play(); err == nil {
		t.Fatal("Play succeeded with a long track that cannot start")
	}
	if e.Playing() {
		t.Error("Playing() after failed Play")
	}
	main := actx.Stream("main")
	if main.Starts() != 1 || main.Stops() != 1 || !main.Released() {
		t.Errorf("main starts=%d stops=%d released=%v, want 1, 1, true",
			main.Starts(), main.Stops(), main.Released())
	}
	if long := actx.Stream("long"); long.Stops() != 0 || !long.Released() {
		t.Errorf("long stops=%d released=%v, want 0, true", long.Stops(), long.Released())
	}
}
