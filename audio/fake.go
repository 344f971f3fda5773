package audio

import (
	"sync"
)

// FakeContext hands out in-memory streams that record everything written
// to them. Used by tests and the doctor's dry run.
type FakeContext struct {
	DeviceList []DeviceInfo
	OpenErr    error
	// StartErr fails Start on streams opened with a matching name.
	StartErr map[string]error

	mu      sync.Mutex
	streams []*FakeStream
	closed  bool
}

func NewFakeContext() *FakeContext {
	return &FakeContext{}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) { return f.DeviceList, nil }

func (f *FakeContext) NewPlayback(device *DeviceInfo, config PlaybackConfig) (PlaybackStream, error) {
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	s := &FakeStream{Name: config.Name, Device: device, volume: 1, failAfter: -1, startErr: f.StartErr[config.Name]}
	s.cond = sync.NewCond(&s.mu)
	f.mu.Lock()
	f.streams = append(f.streams, s)
	f.mu.Unlock()
	return s, nil
}

func (f *FakeContext) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *FakeContext) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Stream returns the most recently opened stream with the given name.
func (f *FakeContext) Stream(name string) *FakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.streams) - 1; i >= 0; i-- {
		if f.streams[i].Name == name {
			return f.streams[i]
		}
	}
	return nil
}

func (f *FakeContext) Streams() []*FakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeStream(nil), f.streams...)
}

type FakeStream struct {
	Name   string
	Device *DeviceInfo

	mu        sync.Mutex
	cond      *sync.Cond
	frames    []float32
	writes    int
	volume    float32
	volumes   []float32
	running   bool
	starts    int
	stops     int
	flushes   int
	released  bool
	blocked   bool
	held      bool
	parked    int
	startErr  error
	failAfter int
	failErr   error
}

func (s *FakeStream) Write(frames []float32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for (s.blocked && !s.released) || s.held {
		s.parked++
		s.cond.Broadcast()
		s.cond.Wait()
		s.parked--
	}
	if s.released {
		return 0, ErrStreamClosed
	}
	if s.failAfter == 0 {
		return 0, s.failErr
	}
	if s.failAfter > 0 {
		s.failAfter--
	}
	s.writes++
	if s.running {
		s.frames = append(s.frames, frames...)
	}
	s.cond.Broadcast()
	return len(frames), nil
}

func (s *FakeStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return ErrStreamClosed
	}
	if s.startErr != nil {
		return s.startErr
	}
	s.running = true
	s.starts++
	return nil
}

func (s *FakeStream) Stop() {
	s.mu.Lock()
	s.running = false
	s.stops++
	s.mu.Unlock()
}

func (s *FakeStream) Flush() {
	s.mu.Lock()
	s.flushes++
	s.mu.Unlock()
}

func (s *FakeStream) Release() {
	s.mu.Lock()
	s.released = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *FakeStream) SetVolume(v float32) {
	s.mu.Lock()
	s.volume = v
	s.volumes = append(s.volumes, v)
	s.mu.Unlock()
}

// FailWritesAfter makes every write after the next n fail with err.
func (s *FakeStream) FailWritesAfter(n int, err error) {
	s.mu.Lock()
	s.failAfter = n
	s.failErr = err
	s.mu.Unlock()
}

// Block holds every Write until Unblock or Release.
func (s *FakeStream) Block() {
	s.mu.Lock()
	s.blocked = true
	s.mu.Unlock()
}

// Hold parks every Write until Unblock, even across Release, like a
// device call that returns only after the stream was torn down.
func (s *FakeStream) Hold() {
	s.mu.Lock()
	s.held = true
	s.mu.Unlock()
}

// WaitParked blocks until a Write is parked by Block or Hold.
func (s *FakeStream) WaitParked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.parked == 0 {
		s.cond.Wait()
	}
}

func (s *FakeStream) Unblock() {
	s.mu.Lock()
	s.blocked = false
	s.held = false
	s.cond.Broadcast()
	s.mu.Unlock()
}

// WaitFrames blocks until at least n frames have been recorded or the
// stream is released, and reports whether n was reached.
func (s *FakeStream) WaitFrames(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.frames) < n && !s.released {
		s.cond.Wait()
	}
	return len(s.frames) >= n
}

func (s *FakeStream) Frames() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float32(nil), s.frames...)
}

func (s *FakeStream) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *FakeStream) Volume() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *FakeStream) Volumes() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float32(nil), s.volumes...)
}

func (s *FakeStream) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *FakeStream) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

func (s *FakeStream) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

func (s *FakeStream) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

func (s *FakeStream) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
