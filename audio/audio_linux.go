//go:build linux

package audio

import (
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
)

const PlatformBackend = "pulse"

type pulseContext struct {
	client *pulse.Client
}

func NewContext() (Context, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("tack"))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseContext{client: c}, nil
}

func (p *pulseContext) Devices() ([]DeviceInfo, error) {
	sinks, err := p.client.ListSinks()
	if err != nil {
		return nil, fmt.Errorf("pulse list sinks: %w", err)
	}
	var devices []DeviceInfo
	for _, s := range sinks {
		devices = append(devices, DeviceInfo{
			ID:   s.ID(),
			Name: s.Name(),
		})
	}
	return devices, nil
}

func (p *pulseContext) NewPlayback(device *DeviceInfo, config PlaybackConfig) (PlaybackStream, error) {
	pp := newPipe(config.BufferFrames)

	reader := pulse.Float32Reader(func(buf []float32) (int, error) {
		pp.Read(buf)
		return len(buf), nil
	})

	latency := float64(config.BufferFrames) / float64(config.SampleRate)
	opts := []pulse.PlaybackOption{
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(int(config.SampleRate)),
		pulse.PlaybackLatency(latency),
	}
	if device != nil {
		sink, err := p.client.SinkByID(device.ID)
		if err == nil && sink != nil {
			opts = append(opts, pulse.PlaybackSink(sink))
		}
	}

	stream, err := p.client.NewPlayback(reader, opts...)
	if err != nil {
		return nil, fmt.Errorf("pulse playback %s: %w", config.Name, err)
	}
	return &pulseStream{stream: stream, pipe: pp}, nil
}

func (p *pulseContext) Close() {
	p.client.Close()
}

type pulseStream struct {
	stream *pulse.PlaybackStream
	pipe   *pipe

	mu       sync.Mutex
	released bool
}

func (s *pulseStream) Write(frames []float32) (int, error) {
	n, err := s.pipe.Write(frames)
	if err != nil {
		return n, err
	}
	if err := s.stream.Error(); err != nil {
		return n, fmt.Errorf("pulse stream: %w", err)
	}
	return n, nil
}

func (s *pulseStream) Start() error {
	s.pipe.SetRunning(true)
	s.stream.Start()
	return s.stream.Error()
}

func (s *pulseStream) Stop() {
	s.pipe.SetRunning(false)
	s.stream.Stop()
}

func (s *pulseStream) Flush() {
	s.pipe.Flush()
}

func (s *pulseStream) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	s.pipe.Close()
	s.stream.Close()
}

func (s *pulseStream) SetVolume(v float32) {
	s.pipe.SetVolume(v)
}
