package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows one context per process.
var (
	otoCtx     *oto.Context
	otoOnce    sync.Once
	otoInitErr error
)

func ensureOtoContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		var ready chan struct{}
		otoCtx, ready, otoInitErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: Channels,
			Format:       oto.FormatFloat32LE,
			BufferSize:   50 * time.Millisecond,
		})
		if otoInitErr != nil {
			return
		}
		<-ready
	})
	return otoCtx, otoInitErr
}

type otoContext struct {
	ctx *oto.Context
}

func NewOtoContext() (Context, error) {
	ctx, err := ensureOtoContext()
	if err != nil {
		return nil, fmt.Errorf("oto: %w", err)
	}
	return &otoContext{ctx: ctx}, nil
}

// Devices is empty: oto always plays on the system default output.
func (o *otoContext) Devices() ([]DeviceInfo, error) {
	return nil, nil
}

func (o *otoContext) NewPlayback(_ *DeviceInfo, config PlaybackConfig) (PlaybackStream, error) {
	if config.SampleRate != SampleRate || config.Channels != Channels {
		return nil, fmt.Errorf("oto playback %s: unsupported format %d Hz x%d", config.Name, config.SampleRate, config.Channels)
	}
	s := &otoStream{pipe: newPipe(config.BufferFrames)}
	s.player = o.ctx.NewPlayer(s)
	s.player.SetBufferSize(config.BufferFrames * 4)
	return s, nil
}

// Close is a no-op, the shared oto context lives until exit.
func (o *otoContext) Close() {}

type otoStream struct {
	player  *oto.Player
	pipe    *pipe
	scratch []float32

	mu       sync.Mutex
	released bool
}

// Read feeds the oto player from the pipe as little-endian float32 bytes.
func (s *otoStream) Read(p []byte) (int, error) {
	frames := len(p) / 4
	if frames == 0 {
		return 0, nil
	}
	if cap(s.scratch) < frames {
		s.scratch = make([]float32, frames)
	}
	buf := s.scratch[:frames]
	s.pipe.Read(buf)
	for i, v := range buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	return frames * 4, nil
}

func (s *otoStream) Write(frames []float32) (int, error) {
	return s.pipe.Write(frames)
}

func (s *otoStream) Start() error {
	s.pipe.SetRunning(true)
	s.player.Play()
	return s.player.Err()
}

func (s *otoStream) Stop() {
	s.pipe.SetRunning(false)
	s.player.Pause()
}

func (s *otoStream) Flush() {
	s.pipe.Flush()
}

func (s *otoStream) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	s.pipe.Close()
	s.player.Close()
}

func (s *otoStream) SetVolume(v float32) {
	s.player.SetVolume(float64(v))
}
