//go:build !linux

package audio

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

const PlatformBackend = "malgo"

type malgoContext struct {
	ctx *malgo.AllocatedContext
}

func NewContext() (Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	return &malgoContext{ctx: ctx}, nil
}

func (m *malgoContext) Devices() ([]DeviceInfo, error) {
	devices, err := m.ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("malgo devices: %w", err)
	}
	var result []DeviceInfo
	for _, d := range devices {
		result = append(result, DeviceInfo{
			ID:   hex.EncodeToString(d.ID.Pointer()[:]),
			Name: d.Name(),
		})
	}
	return result, nil
}

func (m *malgoContext) NewPlayback(device *DeviceInfo, config PlaybackConfig) (PlaybackStream, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = config.Channels
	deviceConfig.SampleRate = config.SampleRate
	deviceConfig.PeriodSizeInFrames = uint32(config.BufferFrames / 2)

	if device != nil {
		idBytes, err := hex.DecodeString(device.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid device ID: %w", err)
		}
		var devID malgo.DeviceID
		copy(devID[:], idBytes)
		deviceConfig.Playback.DeviceID = devID.Pointer()
	}

	s := &malgoStream{pipe: newPipe(config.BufferFrames)}
	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frameCount uint32) {
			s.fill(out, int(frameCount))
		},
	}

	dev, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("malgo playback %s: %w", config.Name, err)
	}
	s.device = dev
	return s, nil
}

func (m *malgoContext) Close() {
	m.ctx.Uninit()
	m.ctx.Free()
}

type malgoStream struct {
	device  *malgo.Device
	pipe    *pipe
	scratch []float32

	mu       sync.Mutex
	released bool
}

// fill runs on the device thread.
func (s *malgoStream) fill(out []byte, frames int) {
	if cap(s.scratch) < frames {
		s.scratch = make([]float32, frames)
	}
	buf := s.scratch[:frames]
	s.pipe.Read(buf)
	for i, v := range buf {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
}

func (s *malgoStream) Write(frames []float32) (int, error) {
	return s.pipe.Write(frames)
}

func (s *malgoStream) Start() error {
	s.pipe.SetRunning(true)
	return s.device.Start()
}

func (s *malgoStream) Stop() {
	s.pipe.SetRunning(false)
	s.device.Stop()
}

func (s *malgoStream) Flush() {
	s.pipe.Flush()
}

func (s *malgoStream) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	s.pipe.Close()
	s.device.Uninit()
}

func (s *malgoStream) SetVolume(v float32) {
	s.pipe.SetVolume(v)
}
