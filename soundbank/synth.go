package soundbank

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sync"

	"tack/sample"
)

// voice describes a decaying tone with an optional noise component and a
// downward frequency sweep (sweep > 1 starts that many times higher).
type voice struct {
	freq     float64
	sweep    float64
	duration float64
	volume   float64
	decay    float64
	noise    float64
}

var voices = map[string]voice{
	"sine": {freq: 1000, duration: 0.06, volume: 0.6, decay: 40},
	"wood": {freq: 1800, duration: 0.04, volume: 0.7, decay: 120, noise: 0.2},

	"mechanical_tick":  {freq: 3000, duration: 0.025, volume: 0.6, decay: 200, noise: 0.5},
	"mechanical_ding":  {freq: 1320, duration: 1.8, volume: 0.5, decay: 2.5},
	"mechanical_knock": {freq: 600, duration: 0.05, volume: 0.6, decay: 90, noise: 0.3},

	"beatbox_kick1":  {freq: 55, sweep: 3, duration: 0.18, volume: 0.9, decay: 18},
	"beatbox_snare1": {freq: 200, duration: 0.15, volume: 0.6, decay: 25, noise: 0.8},
	"beatbox_hihat1": {freq: 8000, duration: 0.06, volume: 0.4, decay: 70, noise: 1},
	"beatbox_kick2":  {freq: 48, sweep: 4, duration: 0.22, volume: 0.9, decay: 14},
	"beatbox_snare2": {freq: 240, duration: 0.12, volume: 0.6, decay: 30, noise: 0.7},
	"beatbox_hihat2": {freq: 9500, duration: 0.04, volume: 0.35, decay: 95, noise: 1},

	"hands_hit":  {freq: 300, duration: 0.09, volume: 0.6, decay: 45, noise: 0.6},
	"hands_clap": {freq: 1200, duration: 0.12, volume: 0.6, decay: 35, noise: 0.9},
	"hands_snap": {freq: 2500, duration: 0.05, volume: 0.5, decay: 90, noise: 0.7},

	"folding_knock": {freq: 450, duration: 0.07, volume: 0.6, decay: 60, noise: 0.4},
	"folding_fold":  {freq: 180, duration: 0.25, volume: 0.5, decay: 15, noise: 0.7},
	"folding_tap":   {freq: 900, duration: 0.04, volume: 0.5, decay: 110, noise: 0.3},
}

// SynthSource generates every built-in payload id instead of reading asset
// files. Output is deterministic per id.
type SynthSource struct {
	mu    sync.Mutex
	cache map[string][]byte
}

func NewSynthSource() *SynthSource {
	return &SynthSource{cache: make(map[string][]byte)}
}

func (s *SynthSource) Payload(id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.cache[id]; ok {
		return p, nil
	}
	v, ok := voices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPayloadNotFound, id)
	}
	p := sample.Encode(generate(id, v))
	s.cache[id] = p
	return p, nil
}

func generate(id string, v voice) []float32 {
	h := fnv.New64a()
	h.Write([]byte(id))
	rng := rand.New(rand.NewPCG(h.Sum64(), 0x7ac))

	n := int(sample.SampleRate * v.duration)
	out := make([]float32, n)
	phase := 0.0
	for i := 0; i < n; i++ {
		t := float64(i) / sample.SampleRate
		envelope := math.Exp(-t * v.decay)
		freq := v.freq
		if v.sweep > 1 {
			freq *= 1 + (v.sweep-1)*math.Exp(-t*v.decay*2)
		}
		phase += 2 * math.Pi * freq / sample.SampleRate
		s := (1-v.noise)*math.Sin(phase) + v.noise*(rng.Float64()*2-1)
		out[i] = float32(s * v.volume * envelope)
	}
	return out
}
