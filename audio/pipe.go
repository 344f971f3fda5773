package audio

import "sync"

// pipe adapts blocking pushes from the renderer to the pull callbacks of
// the device backends. Reads never block: missing frames are silence.
type pipe struct {
	mu      sync.Mutex
	space   *sync.Cond
	buf     []float32
	r, n    int
	volume  float32
	running bool
	closed  bool
}

func newPipe(capacity int) *pipe {
	if capacity <= 0 {
		capacity = DefaultBufferFrames
	}
	p := &pipe{buf: make([]float32, capacity), volume: 1}
	p.space = sync.NewCond(&p.mu)
	return p
}

func (p *pipe) Write(frames []float32) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	written := 0
	for written < len(frames) {
		if p.closed {
			return written, ErrStreamClosed
		}
		if !p.running {
			return len(frames), nil
		}
		if p.n == len(p.buf) {
			p.space.Wait()
			continue
		}
		w := (p.r + p.n) % len(p.buf)
		free := len(p.buf) - p.n
		if end := len(p.buf) - w; free > end {
			free = end
		}
		c := copy(p.buf[w:w+free], frames[written:])
		p.n += c
		written += c
	}
	return written, nil
}

// Read fills dst with buffered frames scaled by the volume, padding with
// silence on underrun, and returns how many real frames were consumed.
func (p *pipe) Read(dst []float32) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	got := 0
	for got < len(dst) && p.n > 0 {
		c := len(dst) - got
		if c > p.n {
			c = p.n
		}
		if end := len(p.buf) - p.r; c > end {
			c = end
		}
		for i := 0; i < c; i++ {
			dst[got+i] = p.buf[p.r+i] * p.volume
		}
		p.r = (p.r + c) % len(p.buf)
		p.n -= c
		got += c
	}
	clear(dst[got:])
	if got > 0 {
		p.space.Broadcast()
	}
	return got
}

func (p *pipe) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

func (p *pipe) Flush() {
	p.mu.Lock()
	p.r, p.n = 0, 0
	p.space.Broadcast()
	p.mu.Unlock()
}

func (p *pipe) SetVolume(v float32) {
	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()
}

func (p *pipe) SetRunning(running bool) {
	p.mu.Lock()
	p.running = running
	p.space.Broadcast()
	p.mu.Unlock()
}

func (p *pipe) Close() {
	p.mu.Lock()
	p.closed = true
	p.space.Broadcast()
	p.mu.Unlock()
}
