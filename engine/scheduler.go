package engine

import (
	"fmt"

	"tack/sample"
	"tack/soundbank"
)

// silenceFrames is the largest span of silence handed to a stream in one
// piece; the silence buffer is also what a muted tick plays.
const silenceFrames = 8000

var silence = make(sample.Buffer, silenceFrames)

// PeriodSize is the number of frames one subdivision slot lasts.
// Truncation happens left to right so every implementation agrees.
func PeriodSize(bpm, subdivisions int) int {
	return 60 * SampleRate / bpm / subdivisions
}

// LongPeriodSize is the number of frames from a beat to the next strong
// beat, beatsToNextStrong beats later.
func LongPeriodSize(bpm, beatsToNextStrong int) int {
	return 60 * SampleRate / bpm * beatsToNextStrong
}

// BeatsToNextStrong counts the steps from index to the next strong entry,
// scanning forward and wrapping, including the strong entry itself. A
// pattern without any strong entry yields 0.
func BeatsToNextStrong(pattern []Accent, index int) int {
	n := len(pattern)
	for i := 0; i < n; i++ {
		if pattern[((index+i+1)%n+n)%n] == Strong {
			return i + 1
		}
	}
	return 0
}

// Segment is one render task: play Sound from its start and pad with
// silence until exactly Frames frames have gone to the track.
type Segment struct {
	Track  Track
	Sound  sample.Buffer
	Frames int
}

func (s Segment) String() string {
	return fmt.Sprintf("%s[%d/%d]", s.Track, min(len(s.Sound), s.Frames), s.Frames)
}

func tickSound(snd *soundbank.Sound, a Accent) sample.Buffer {
	switch a {
	case Strong:
		return snd.Strong
	case Sub:
		return snd.Sub
	case Muted:
		return silence
	}
	return snd.Normal
}

func checkTick(t Tick, tempo, subdivisions int, beats []Accent) error {
	switch {
	case tempo <= 0:
		return fmt.Errorf("%w: tempo %d", ErrInvalidTick, tempo)
	case subdivisions <= 0:
		return fmt.Errorf("%w: %d subdivisions", ErrInvalidTick, subdivisions)
	case len(beats) == 0:
		return fmt.Errorf("%w: empty beat pattern", ErrInvalidTick)
	case t.Beat < 1:
		return fmt.Errorf("%w: beat %d", ErrInvalidTick, t.Beat)
	case PeriodSize(tempo, subdivisions) == 0:
		return fmt.Errorf("%w: %d bpm x%d is shorter than one frame", ErrInvalidTick, tempo, subdivisions)
	}
	if _, err := ParseAccent(string(t.Type)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTick, err)
	}
	return nil
}

// Plan decides which tracks a tick renders on, in enqueue order.
//
// Short sounds, or patterns without a strong beat, go to the main track
// with a matching silent segment on the long track so both queues advance
// together. With a long sound the strong tick moves to the long track and
// rings until the next strong beat while main plays one silent period.
// Other ticks stay on main; the long track only gets a silent filler when
// the bar does not open with a strong beat, to cover the time before the
// first one.
func Plan(t Tick, tempo, subdivisions int, beats []Accent, snd *soundbank.Sound, muted bool) ([]Segment, error) {
	if err := checkTick(t, tempo, subdivisions, beats); err != nil {
		return nil, err
	}

	sound := silence
	if !muted {
		sound = tickSound(snd, t.Type)
	}
	period := PeriodSize(tempo, subdivisions)
	toStrong := BeatsToNextStrong(beats, t.Beat-1)
	periodLong := LongPeriodSize(tempo, toStrong)

	if !snd.StrongLong || toStrong == 0 {
		return []Segment{
			{Track: Main, Sound: sound, Frames: period},
			{Track: Long, Sound: silence, Frames: period},
		}, nil
	}
	if t.Type == Strong {
		return []Segment{
			{Track: Main, Sound: silence, Frames: period},
			{Track: Long, Sound: sound, Frames: periodLong},
		}, nil
	}
	if beats[0] != Strong {
		return []Segment{
			{Track: Long, Sound: silence, Frames: periodLong},
			{Track: Main, Sound: sound, Frames: period},
		}, nil
	}
	return []Segment{{Track: Main, Sound: sound, Frames: period}}, nil
}
