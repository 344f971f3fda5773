package encoder

import (
	"math"

	"tack/sample"
)

const (
	SampleRate    = sample.SampleRate
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

type Encoder interface {
	EncodeBlock(block []int16) error
	EncodeFloat(block []float32) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
}

// Quantize converts float samples in [-1, 1] to 16-bit PCM, clipping
// anything outside that range.
func Quantize(dst []int16, src []float32) []int16 {
	dst = dst[:0]
	for _, v := range src {
		s := math.Round(float64(v) * math.MaxInt16)
		if s > math.MaxInt16 {
			s = math.MaxInt16
		} else if s < math.MinInt16 {
			s = math.MinInt16
		}
		dst = append(dst, int16(s))
	}
	return dst
}
