package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"tack/audio"
	"tack/log"
)

// writeChunk bounds a single blocking write so cancellation is noticed
// within about 20 ms of audio.
const writeChunk = SampleRate / 50

type TrackStats struct {
	Tasks    int64 // tasks taken off the queue
	Frames   int64 // frames handed to the output
	Skipped  int64 // frames consumed while not playing
	Failures int64 // tasks abandoned after a write error
	Cleared  int64 // tasks dropped by a reset
}

type trackCounters struct {
	tasks, frames, skipped, failures, cleared atomic.Int64
}

func (c *trackCounters) snapshot() TrackStats {
	return TrackStats{
		Tasks:    c.tasks.Load(),
		Frames:   c.frames.Load(),
		Skipped:  c.skipped.Load(),
		Failures: c.failures.Load(),
		Cleared:  c.cleared.Load(),
	}
}

type worker struct {
	track  Track
	queue  *taskQueue
	cancel context.CancelFunc
	done   chan struct{}
}

// renderer owns one queue and one consumer goroutine per track. The main
// worker lives as long as the renderer; the long worker is replaced on
// every reset so a sustained sound never outlives a sound or pattern
// change.
type renderer struct {
	ctx    context.Context
	cancel context.CancelFunc

	playing atomic.Bool
	outputs [2]atomic.Pointer[boostedStream]
	stats   [2]trackCounters

	mu   sync.Mutex
	main *worker
	long *worker
	wg   sync.WaitGroup
}

func newRenderer() *renderer {
	ctx, cancel := context.WithCancel(context.Background())
	r := &renderer{ctx: ctx, cancel: cancel}
	r.reset()
	return r
}

func (r *renderer) spawn(track Track) *worker {
	ctx, cancel := context.WithCancel(r.ctx)
	w := &worker{
		track:  track,
		queue:  newTaskQueue(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.wg.Add(1)
	go r.run(ctx, w)
	return w
}

func (r *renderer) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.main == nil {
		r.main = r.spawn(Main)
	} else {
		r.stats[Main].cleared.Add(int64(r.main.queue.clear()))
	}

	if r.long != nil {
		r.long.cancel()
		r.stats[Long].cleared.Add(int64(r.long.queue.len()))
	}
	r.long = r.spawn(Long)
}

func (r *renderer) enqueue(s Segment) {
	r.mu.Lock()
	w := r.main
	if s.Track == Long {
		w = r.long
	}
	r.mu.Unlock()
	w.queue.push(s)
}

func (r *renderer) run(ctx context.Context, w *worker) {
	defer r.wg.Done()
	defer close(w.done)
	for {
		s, ok := w.queue.pop(ctx)
		if !ok {
			return
		}
		r.execute(ctx, s)
		w.queue.done()
	}
}

// execute writes the segment's sound, then silence, until exactly
// s.Frames frames have been consumed. Frames are still consumed at the
// same rate while stopped, they just never reach an output.
func (r *renderer) execute(ctx context.Context, s Segment) {
	c := &r.stats[s.Track]
	c.tasks.Add(1)

	written := 0
	for written < s.Frames {
		if ctx.Err() != nil {
			return
		}

		var chunk []float32
		if written < len(s.Sound) {
			chunk = s.Sound[written:min(len(s.Sound), s.Frames)]
		} else {
			chunk = silence[:min(len(silence), s.Frames-written)]
		}
		if len(chunk) > writeChunk {
			chunk = chunk[:writeChunk]
		}

		out := r.outputs[s.Track].Load()
		if !r.playing.Load() || out == nil {
			c.skipped.Add(int64(len(chunk)))
			written += len(chunk)
			continue
		}

		n, err := out.Write(chunk)
		c.frames.Add(int64(n))
		if err != nil {
			// A stream closed by Stop, or swapped out by Stop and Play
			// while this write was in flight, is not a device failure.
			// The rest of the period goes to whatever output is current.
			if errors.Is(err, audio.ErrStreamClosed) && (!r.playing.Load() || r.outputs[s.Track].Load() != out) {
				written += n
				continue
			}
			c.failures.Add(1)
			err = fmt.Errorf("%w: %s track: %w", ErrHardwareWrite, s.Track, err)
			log.WriteFailure(s.Track.String(), s.Frames-written-n, err)
			return
		}
		written += len(chunk)
	}
}

func (r *renderer) setOutputs(main, long *boostedStream) {
	r.outputs[Main].Store(main)
	r.outputs[Long].Store(long)
}

// drain waits until both current queues are empty and idle.
func (r *renderer) drain(ctx context.Context) error {
	for {
		r.mu.Lock()
		main, long := r.main.queue, r.long.queue
		r.mu.Unlock()

		for _, q := range []*taskQueue{main, long} {
			select {
			case <-q.idleCh():
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		r.mu.Lock()
		same := r.main.queue == main && r.long.queue == long
		r.mu.Unlock()
		if same && isClosed(main.idleCh()) && isClosed(long.idleCh()) {
			return nil
		}
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func (r *renderer) snapshot() (TrackStats, TrackStats) {
	return r.stats[Main].snapshot(), r.stats[Long].snapshot()
}

// close stops every worker, including long workers already replaced.
func (r *renderer) close() {
	r.cancel()
	r.wg.Wait()
}
