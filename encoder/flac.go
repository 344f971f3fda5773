package encoder

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// FlacEncoder writes 16-bit mono FLAC into memory.
type FlacEncoder struct {
	mu  sync.Mutex
	buf bytes.Buffer
	enc *flac.Encoder

	pcm  []int16
	wide []int32

	nframes     int
	totalFrames uint64
}

func NewFlac() (*FlacEncoder, error) {
	e := &FlacEncoder{}
	// The last block of a stream may be short.
	enc, err := flac.NewEncoder(&e.buf, &meta.StreamInfo{
		BlockSizeMin:  16,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
	})
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)
	e.enc = enc
	return e, nil
}

// EncodeBlock writes one frame. Blocks longer than BlockSize are split.
func (e *FlacEncoder) EncodeBlock(block []int16) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encode(block)
}

// EncodeFloat quantizes block to 16-bit before encoding it.
func (e *FlacEncoder) EncodeFloat(block []float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pcm = Quantize(e.pcm, block)
	return e.encode(e.pcm)
}

func (e *FlacEncoder) encode(block []int16) error {
	for len(block) > 0 {
		n := min(len(block), BlockSize)
		if err := e.writeFrame(block[:n]); err != nil {
			return err
		}
		block = block[n:]
	}
	return nil
}

// writeFrame emits one mono frame. Click tracks are mostly silence, so a
// block holding a single value goes out as a constant subframe.
func (e *FlacEncoder) writeFrame(block []int16) error {
	if cap(e.wide) < len(block) {
		e.wide = make([]int32, BlockSize)
	}
	wide := e.wide[:len(block)]
	constant := true
	for i, s := range block {
		wide[i] = int32(s)
		constant = constant && s == block[0]
	}

	pred := frame.PredVerbatim
	if constant {
		pred = frame.PredConstant
	}
	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: pred},
			Samples:   wide,
			NSamples:  len(block),
		}},
	}
	if err := e.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("writing flac frame %d: %w", e.nframes, err)
	}
	e.nframes++
	e.totalFrames += uint64(len(block))
	return nil
}

// Close flushes the stream header; Bytes is complete only after it.
func (e *FlacEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enc.Close()
}

func (e *FlacEncoder) Bytes() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.Bytes()
}

func (e *FlacEncoder) TotalFrames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalFrames
}
