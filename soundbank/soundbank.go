// Package soundbank resolves named sound presets into the three sample
// buffers a metronome tick can use.
package soundbank

import (
	"fmt"
	"sort"
	"sync"

	"tack/log"
	"tack/sample"
)

const (
	Sine       = "sine"
	Wood       = "wood"
	Mechanical = "mechanical"
	Beatbox1   = "beatbox_1"
	Beatbox2   = "beatbox_2"
	Hands      = "hands"
	Folding    = "folding"

	// Default is used for any name the bank does not know.
	Default = Sine
)

type Slot struct {
	Payload string
	Pitch   sample.Pitch
}

type Preset struct {
	Name       string
	Normal     Slot
	Strong     Slot
	Sub        Slot
	StrongLong bool
}

// Sound is a resolved preset. The three buffers never share backing arrays.
type Sound struct {
	Name       string
	Normal     sample.Buffer
	Strong     sample.Buffer
	Sub        sample.Buffer
	StrongLong bool
}

// defaultPitched builds a preset that uses one payload for every slot with
// strong shifted up and sub shifted down.
func defaultPitched(name, payload string) Preset {
	return Preset{
		Name:   name,
		Normal: Slot{Payload: payload, Pitch: sample.PitchNone},
		Strong: Slot{Payload: payload, Pitch: sample.PitchUp},
		Sub:    Slot{Payload: payload, Pitch: sample.PitchDown},
	}
}

func unpitched(name, normal, strong, sub string, long bool) Preset {
	return Preset{
		Name:       name,
		Normal:     Slot{Payload: normal},
		Strong:     Slot{Payload: strong},
		Sub:        Slot{Payload: sub},
		StrongLong: long,
	}
}

// BuiltinPresets returns the presets shipped with tack.
func BuiltinPresets() []Preset {
	return []Preset{
		defaultPitched(Sine, "sine"),
		defaultPitched(Wood, "wood"),
		unpitched(Mechanical, "mechanical_tick", "mechanical_ding", "mechanical_knock", true),
		unpitched(Beatbox1, "beatbox_snare1", "beatbox_kick1", "beatbox_hihat1", false),
		unpitched(Beatbox2, "beatbox_snare2", "beatbox_kick2", "beatbox_hihat2", false),
		unpitched(Hands, "hands_hit", "hands_clap", "hands_snap", false),
		unpitched(Folding, "folding_knock", "folding_fold", "folding_tap", false),
	}
}

type Bank struct {
	src Source

	mu      sync.RWMutex
	presets map[string]Preset
}

// New creates a bank over src holding the built-in presets plus extra.
// Extra presets replace built-ins of the same name.
func New(src Source, extra ...Preset) *Bank {
	b := &Bank{src: src, presets: make(map[string]Preset)}
	for _, p := range BuiltinPresets() {
		b.presets[p.Name] = p
	}
	for _, p := range extra {
		b.presets[p.Name] = p
	}
	return b
}

func (b *Bank) Add(p Preset) {
	b.mu.Lock()
	b.presets[p.Name] = p
	b.mu.Unlock()
}

func (b *Bank) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.presets))
	for n := range b.presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Preset returns the preset name resolves to and whether it was known.
// Unknown names resolve to Default.
func (b *Bank) Preset(name string) (Preset, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if p, ok := b.presets[name]; ok {
		return p, true
	}
	return b.presets[Default], false
}

// Select decodes all three slots of the named preset. Unknown names fall
// back to Default without error; decode failures are returned so a bad
// asset shows up before playback starts.
func (b *Bank) Select(name string) (*Sound, error) {
	p, known := b.Preset(name)
	if !known {
		log.Warnf("unknown sound %q, using %q", name, p.Name)
	}

	normal, err := b.load(p.Normal)
	if err != nil {
		return nil, fmt.Errorf("sound %s normal: %w", p.Name, err)
	}
	strong, err := b.load(p.Strong)
	if err != nil {
		return nil, fmt.Errorf("sound %s strong: %w", p.Name, err)
	}
	sub, err := b.load(p.Sub)
	if err != nil {
		return nil, fmt.Errorf("sound %s sub: %w", p.Name, err)
	}

	log.Selection(name, p.Name, p.StrongLong)
	return &Sound{
		Name:       p.Name,
		Normal:     normal,
		Strong:     strong,
		Sub:        sub,
		StrongLong: p.StrongLong,
	}, nil
}

// load decodes every slot afresh so slots sharing a payload do not alias.
func (b *Bank) load(s Slot) (sample.Buffer, error) {
	payload, err := b.src.Payload(s.Payload)
	if err != nil {
		return nil, err
	}
	buf, err := sample.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("payload %s: %w", s.Payload, err)
	}
	return sample.ApplyPitch(buf, s.Pitch), nil
}
