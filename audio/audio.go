package audio

import (
	"errors"
	"fmt"
	"strings"

	"tack/sample"
)

const (
	SampleRate = sample.SampleRate
	Channels   = 1

	// frames buffered between a blocking Write and the device callback
	DefaultBufferFrames = SampleRate / 20

	BackendAuto = "auto"
	BackendOto  = "oto"
)

var (
	ErrStreamClosed   = errors.New("playback stream closed")
	ErrUnknownBackend = errors.New("unknown audio backend")
)

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth guesses from the device name whether output goes over
// Bluetooth, where latency makes clicks drift audibly from the beat.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

type PlaybackConfig struct {
	Name         string
	SampleRate   uint32
	Channels     uint32
	BufferFrames int
}

func DefaultPlaybackConfig(name string) PlaybackConfig {
	return PlaybackConfig{
		Name:         name,
		SampleRate:   SampleRate,
		Channels:     Channels,
		BufferFrames: DefaultBufferFrames,
	}
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewPlayback(device *DeviceInfo, config PlaybackConfig) (PlaybackStream, error)
	Close()
}

// PlaybackStream is one mono float output. Write blocks until every frame
// has been accepted by the device buffer. Frames written while the stream
// is stopped are discarded.
type PlaybackStream interface {
	Write(frames []float32) (int, error)
	Start() error
	Stop()
	Flush()
	Release()
	SetVolume(v float32)
}

// Open returns the context for a backend name: "auto" (or the platform
// backend's own name) and "oto".
func Open(backend string) (Context, error) {
	switch backend {
	case "", BackendAuto, PlatformBackend:
		return NewContext()
	case BackendOto:
		return NewOtoContext()
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}

// FindDevice returns the device with the given name, or nil for the
// system default when name is empty or not found.
func FindDevice(ctx Context, name string) *DeviceInfo {
	if name == "" {
		return nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil
	}
	for i := range devices {
		if devices[i].Name == name {
			return &devices[i]
		}
	}
	return nil
}
