package engine

import (
	"errors"
	"testing"

	"tack/sample"
	"tack/soundbank"
)

func testSound(long bool) *soundbank.Sound {
	return &soundbank.Sound{
		Name:       "test",
		Normal:     constant(100, 0.2),
		Strong:     constant(300, 0.8),
		Sub:        constant(50, 0.1),
		StrongLong: long,
	}
}

func constant(n int, v float32) sample.Buffer {
	b := make(sample.Buffer, n)
	for i := range b {
		b[i] = v
	}
	return b
}

func isSilence(b sample.Buffer) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func TestPeriodSize(t *testing.T) {
	cases := []struct{ bpm, subs, want int }{
		{120, 1, 24000},
		{120, 4, 6000},
		{7, 3, 137142},
		{60 * SampleRate, 1, 1},
	}
	for _, c := range cases {
		if got := PeriodSize(c.bpm, c.subs); got != c.want {
			t.Errorf("PeriodSize(%d, %d) = %d, want %d", c.bpm, c.subs, got, c.want)
		}
	}
}

func TestLongPeriodSize(t *testing.T) {
	if got := LongPeriodSize(120, 4); got != 96000 {
		t.Errorf("LongPeriodSize(120, 4) = %d, want 96000", got)
	}
	if got := LongPeriodSize(7, 2); got != 822856 {
		t.Errorf("LongPeriodSize(7, 2) = %d, want 822856", got)
	}
}

func TestBeatsToNextStrong(t *testing.T) {
	p := []Accent{Normal, Strong, Sub, Muted}
	for index, want := range []int{1, 4, 3, 2} {
		if got := BeatsToNextStrong(p, index); got != want {
			t.Errorf("BeatsToNextStrong(%v, %d) = %d, want %d", p, index, got, want)
		}
	}

	none := []Accent{Normal, Sub, Muted}
	for index := range none {
		if got := BeatsToNextStrong(none, index); got != 0 {
			t.Errorf("no strong beat: BeatsToNextStrong(%d) = %d, want 0", index, got)
		}
	}
}

func TestPlanShortSound(t *testing.T) {
	snd := testSound(false)
	segs, err := Plan(Tick{Type: Strong, Beat: 1, Subdivision: 1}, 120, 2, []Accent{Strong, Normal}, snd, false)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if segs[0].Track != Main || segs[0].Frames != 12000 || &segs[0].Sound[0] != &snd.Strong[0] {
		t.Errorf("main segment = %v, want strong sound for 12000 frames", segs[0])
	}
	if segs[1].Track != Long || segs[1].Frames != 12000 || !isSilence(segs[1].Sound) {
		t.Errorf("long segment = %v, want 12000 silent frames", segs[1])
	}
}

func TestPlanLongSoundWithoutStrongBeat(t *testing.T) {
	segs, err := Plan(Tick{Type: Normal, Beat: 2}, 120, 1, []Accent{Normal, Normal}, testSound(true), false)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(segs) != 2 || segs[0].Track != Main || segs[1].Track != Long {
		t.Fatalf("segments = %v, want main then long", segs)
	}
	if segs[1].Frames != 24000 {
		t.Errorf("long filler = %d frames, want one period", segs[1].Frames)
	}
}

func TestPlanLongStrongTick(t *testing.T) {
	snd := testSound(true)
	beats := []Accent{Strong, Normal, Normal, Normal}
	segs, err := Plan(Tick{Type: Strong, Beat: 1}, 120, 1, beats, snd, false)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	main, long := segs[0], segs[1]
	if main.Track != Main || main.Frames != 24000 || !isSilence(main.Sound) {
		t.Errorf("main = %v, want silence for one period", main)
	}
	if long.Track != Long || long.Frames != 96000 || &long.Sound[0] != &snd.Strong[0] {
		t.Errorf("long = %v, want strong sound for four beats", long)
	}
}

func TestPlanLongNormalTickLeavesLongTrackAlone(t *testing.T) {
	beats := []Accent{Strong, Normal, Normal, Normal}
	for beat := 2; beat <= 4; beat++ {
		segs, err := Plan(Tick{Type: Normal, Beat: beat}, 120, 1, beats, testSound(true), false)
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		if len(segs) != 1 || segs[0].Track != Main || segs[0].Frames != 24000 {
			t.Errorf("beat %d: segments = %v, want a single main period", beat, segs)
		}
	}
}

func TestPlanLongPreSeedsBeforeFirstStrong(t *testing.T) {
	beats := []Accent{Normal, Normal, Strong}
	segs, err := Plan(Tick{Type: Normal, Beat: 1}, 120, 1, beats, testSound(true), false)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if segs[0].Track != Long || segs[0].Frames != 48000 || !isSilence(segs[0].Sound) {
		t.Errorf("long = %v, want two beats of silence", segs[0])
	}
	if segs[1].Track != Main || segs[1].Frames != 24000 {
		t.Errorf("main = %v, want one period", segs[1])
	}
}

func TestPlanMutedKeepsPeriods(t *testing.T) {
	beats := []Accent{Strong, Normal}
	for _, long := range []bool{false, true} {
		loud, _ := Plan(Tick{Type: Strong, Beat: 1}, 90, 3, beats, testSound(long), false)
		quiet, err := Plan(Tick{Type: Strong, Beat: 1}, 90, 3, beats, testSound(long), true)
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		if len(loud) != len(quiet) {
			t.Fatalf("long=%v: muted plan has %d segments, want %d", long, len(quiet), len(loud))
		}
		for i := range quiet {
			if quiet[i].Frames != loud[i].Frames || quiet[i].Track != loud[i].Track {
				t.Errorf("long=%v: muted segment %d = %v, want %v", long, i, quiet[i], loud[i])
			}
			if !isSilence(quiet[i].Sound) {
				t.Errorf("long=%v: muted segment %d is not silent", long, i)
			}
		}
	}
}

func TestPlanMutedAccentIsSilent(t *testing.T) {
	segs, _ := Plan(Tick{Type: Muted, Beat: 2}, 120, 1, []Accent{Strong, Muted}, testSound(false), false)
	if !isSilence(segs[0].Sound) || len(segs[0].Sound) != silenceFrames {
		t.Errorf("muted accent sound = %d frames, want the silence buffer", len(segs[0].Sound))
	}
}

func TestPlanRejectsInvalidTicks(t *testing.T) {
	beats := []Accent{Strong}
	cases := []struct {
		name  string
		tick  Tick
		tempo int
		subs  int
		beats []Accent
	}{
		{"zero tempo", Tick{Type: Strong, Beat: 1}, 0, 1, beats},
		{"zero subdivisions", Tick{Type: Strong, Beat: 1}, 120, 0, beats},
		{"empty pattern", Tick{Type: Strong, Beat: 1}, 120, 1, nil},
		{"beat zero", Tick{Type: Strong, Beat: 0}, 120, 1, beats},
		{"unknown accent", Tick{Type: "loud", Beat: 1}, 120, 1, beats},
		{"sub-frame period", Tick{Type: Strong, Beat: 1}, 60 * SampleRate, 2, beats},
	}
	for _, c := range cases {
		if _, err := Plan(c.tick, c.tempo, c.subs, c.beats, testSound(false), false); !errors.Is(err, ErrInvalidTick) {
			t.Errorf("%s: err = %v, want ErrInvalidTick", c.name, err)
		}
	}
}

func TestParsePattern(t *testing.T) {
	p, err := ParsePattern("strong, Normal,sub,muted")
	if err != nil {
		t.Fatalf("ParsePattern: %v", err)
	}
	want := []Accent{Strong, Normal, Sub, Muted}
	for i := range want {
		if p[i] != want[i] {
			t.Errorf("p[%d] = %q, want %q", i, p[i], want[i])
		}
	}
	if FormatPattern(p) != "strong,normal,sub,muted" {
		t.Errorf("FormatPattern = %q", FormatPattern(p))
	}
	if _, err := ParsePattern("strong,,normal"); err == nil {
		t.Error("expected error for empty entry")
	}
	if _, err := ParsePattern(""); err == nil {
		t.Error("expected error for empty pattern")
	}
}
