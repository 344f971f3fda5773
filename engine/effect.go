package engine

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/viterin/vek/vek32"

	"tack/audio"
)

// GainFactor converts a boost level to a linear factor. Each level is
// 100 millibel (1 dB) of target gain; 0 leaves the signal untouched.
func GainFactor(level int) float32 {
	if level <= 0 {
		return 1
	}
	mB := float64(level * 100)
	return float32(math.Pow(10, mB/2000))
}

// boostedStream applies the gain boost in software before frames reach
// the output. Writes are serialized so an outgoing worker and its
// replacement never interleave on one stream.
type boostedStream struct {
	audio.PlaybackStream

	level   atomic.Int32
	mu      sync.Mutex
	scratch []float32
}

func newBoostedStream(s audio.PlaybackStream, level int) *boostedStream {
	b := &boostedStream{PlaybackStream: s}
	b.setGain(level)
	return b
}

func (b *boostedStream) setGain(level int) {
	b.level.Store(int32(level))
}

// Write never touches frames: sound buffers are shared between ticks.
func (b *boostedStream) Write(frames []float32) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	level := int(b.level.Load())
	if level <= 0 {
		return b.PlaybackStream.Write(frames)
	}
	if cap(b.scratch) < len(frames) {
		b.scratch = make([]float32, len(frames))
	}
	out := vek32.MulNumber_Into(b.scratch[:len(frames)], frames, GainFactor(level))
	vek32.MinimumNumber_Inplace(out, 1)
	vek32.MaximumNumber_Inplace(out, -1)
	return b.PlaybackStream.Write(out)
}
