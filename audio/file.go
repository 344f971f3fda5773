package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"tack/encoder"
)

// FileContext renders every playback stream into <dir>/<name>.flac
// instead of a device. Writes never block, so output runs as fast as the
// producer.
type FileContext struct {
	dir string

	mu      sync.Mutex
	streams []*FileStream
}

func NewFileContext(dir string) (*FileContext, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("render dir: %w", err)
	}
	return &FileContext{dir: dir}, nil
}

func (f *FileContext) Devices() ([]DeviceInfo, error) { return nil, nil }

func (f *FileContext) NewPlayback(_ *DeviceInfo, config PlaybackConfig) (PlaybackStream, error) {
	if config.SampleRate != encoder.SampleRate || config.Channels != encoder.Channels {
		return nil, fmt.Errorf("file playback %s: unsupported format %d Hz x%d", config.Name, config.SampleRate, config.Channels)
	}
	enc, err := encoder.NewFlac()
	if err != nil {
		return nil, err
	}
	s := &FileStream{
		path:   filepath.Join(f.dir, config.Name+".flac"),
		enc:    enc,
		volume: 1,
	}
	f.mu.Lock()
	f.streams = append(f.streams, s)
	f.mu.Unlock()
	return s, nil
}

// Close releases any stream the caller left open.
func (f *FileContext) Close() {
	f.mu.Lock()
	streams := f.streams
	f.streams = nil
	f.mu.Unlock()
	for _, s := range streams {
		s.Release()
	}
}

// Paths returns the files written so far.
func (f *FileContext) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var paths []string
	for _, s := range f.streams {
		paths = append(paths, s.path)
	}
	return paths
}

// Err joins the encode or write errors of every stream.
func (f *FileContext) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs []error
	for _, s := range f.streams {
		errs = append(errs, s.Err())
	}
	return errors.Join(errs...)
}

type FileStream struct {
	path string
	enc  *encoder.FlacEncoder

	mu       sync.Mutex
	block    []float32
	volume   float32
	running  bool
	released bool
	err      error
}

func (s *FileStream) Write(frames []float32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return 0, ErrStreamClosed
	}
	if !s.running {
		return len(frames), nil
	}
	for _, v := range frames {
		s.block = append(s.block, v*s.volume)
		if len(s.block) == encoder.BlockSize {
			if err := s.enc.EncodeFloat(s.block); err != nil {
				return 0, err
			}
			s.block = s.block[:0]
		}
	}
	return len(frames), nil
}

func (s *FileStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return ErrStreamClosed
	}
	s.running = true
	return nil
}

func (s *FileStream) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Flush is a no-op: nothing is queued between Write and the encoder
// except the pending partial block, which Release writes out.
func (s *FileStream) Flush() {}

func (s *FileStream) SetVolume(v float32) {
	s.mu.Lock()
	s.volume = v
	s.mu.Unlock()
}

// Release finishes the FLAC stream and writes it to disk.
func (s *FileStream) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true

	if len(s.block) > 0 {
		if err := s.enc.EncodeFloat(s.block); err != nil {
			s.err = err
			return
		}
		s.block = nil
	}
	if err := s.enc.Close(); err != nil {
		s.err = fmt.Errorf("closing flac %s: %w", s.path, err)
		return
	}
	if err := os.WriteFile(s.path, s.enc.Bytes(), 0o644); err != nil {
		s.err = fmt.Errorf("writing %s: %w", s.path, err)
	}
}

// Err reports a failure from Release.
func (s *FileStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *FileStream) Path() string { return s.path }

func (s *FileStream) Frames() uint64 { return s.enc.TotalFrames() }
