// Package sample decodes raw sample payloads into float PCM and applies the
// decimation/duplication pitch transform used by the sound bank.
package sample

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// SampleRate is the one rate every sound, track and file runs at.
	SampleRate = 48000

	// marker plus the 4-byte length field that follows it
	headerSize = 8
)

var (
	ErrMalformedContainer = errors.New("malformed sample container")

	dataMarker = []byte("data")
)

// Buffer is mono float32 PCM at SampleRate. Treat it as immutable once
// decoded; the renderer reads it concurrently.
type Buffer []float32

type Pitch int

const (
	PitchNone Pitch = iota
	PitchUp
	PitchDown
)

func (p Pitch) String() string {
	switch p {
	case PitchUp:
		return "up"
	case PitchDown:
		return "down"
	default:
		return "none"
	}
}

// ParsePitch accepts "none", "up"/"high" and "down"/"low". Empty means none.
func ParsePitch(s string) (Pitch, error) {
	switch s {
	case "", "none", "normal":
		return PitchNone, nil
	case "up", "high":
		return PitchUp, nil
	case "down", "low":
		return PitchDown, nil
	}
	return PitchNone, fmt.Errorf("unknown pitch %q", s)
}

// Decode locates the first "data" marker and reads every complete
// little-endian float32 after its length field.
func Decode(payload []byte) (Buffer, error) {
	idx := bytes.Index(payload, dataMarker)
	if idx < 0 {
		return nil, fmt.Errorf("%w: data marker not found", ErrMalformedContainer)
	}
	start := idx + headerSize
	if start > len(payload) {
		return nil, fmt.Errorf("%w: data chunk too short", ErrMalformedContainer)
	}
	raw := payload[start:]
	n := len(raw) / 4
	if n == 0 {
		return nil, fmt.Errorf("%w: no sample data after header", ErrMalformedContainer)
	}
	buf := make(Buffer, n)
	for i := range buf {
		buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return buf, nil
}

// Encode writes samples in the container layout Decode expects: a minimal
// RIFF/WAVE float header followed by the data chunk.
func Encode(samples []float32) []byte {
	dataSize := len(samples) * 4
	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 3) // IEEE float
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], SampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], SampleRate*4)
	binary.LittleEndian.PutUint16(buf[32:34], 4)
	binary.LittleEndian.PutUint16(buf[34:36], 32)
	copy(buf[36:40], dataMarker)
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[44+i*4:], math.Float32bits(s))
	}
	return buf
}

// ApplyPitch approximates a pitch change without filtering: up keeps every
// other sample, down repeats each sample twice. PitchNone returns buf as is.
func ApplyPitch(buf Buffer, p Pitch) Buffer {
	switch p {
	case PitchUp:
		out := make(Buffer, len(buf)/2)
		for i := range out {
			out[i] = buf[i*2]
		}
		return out
	case PitchDown:
		out := make(Buffer, len(buf)*2)
		for i, s := range buf {
			out[i*2] = s
			out[i*2+1] = s
		}
		return out
	default:
		return buf
	}
}

// Duration is the playback length of buf at SampleRate, in seconds.
func (b Buffer) Duration() float64 {
	return float64(len(b)) / SampleRate
}
