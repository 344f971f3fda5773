package engine

import (
	"context"
	"sync"
)

// taskQueue is an unbounded FIFO with a single consumer. push never
// blocks; pop waits for work or cancellation.
type taskQueue struct {
	mu    sync.Mutex
	items []Segment
	busy  bool
	ready chan struct{}
	// idle is closed while the queue is empty and no task is running.
	idle chan struct{}
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{
		ready: make(chan struct{}, 1),
		idle:  make(chan struct{}),
	}
	close(q.idle)
	return q
}

func (q *taskQueue) push(s Segment) {
	q.mu.Lock()
	if len(q.items) == 0 && !q.busy {
		q.idle = make(chan struct{})
	}
	q.items = append(q.items, s)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// pop hands out the oldest task and marks the queue busy until done.
func (q *taskQueue) pop(ctx context.Context) (Segment, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			s := q.items[0]
			q.items[0] = Segment{}
			q.items = q.items[1:]
			q.busy = true
			q.mu.Unlock()
			return s, true
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return Segment{}, false
		}
	}
}

func (q *taskQueue) done() {
	q.mu.Lock()
	q.busy = false
	if len(q.items) == 0 {
		close(q.idle)
	}
	q.mu.Unlock()
}

// clear drops every queued task; a task already running is unaffected.
func (q *taskQueue) clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	if n > 0 && !q.busy {
		close(q.idle)
	}
	return n
}

func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *taskQueue) idleCh() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.idle
}
