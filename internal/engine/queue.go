package engine

import "sync"

// runQueue is the FIFO of pending ability runs.
//
// The queue is unbounded: a run whose node effects trigger many chain effects
// must never block on its own enqueues. Runs enqueued by node effects land
// behind every run that was already waiting, which is what makes chain
// effects commit in trigger order.
//
// The mutex lets callers on other goroutines enqueue safely; draining is
// single-threaded.
type runQueue struct {
	mu     sync.Mutex
	runs   []*run
	closed bool
}

func newRunQueue() *runQueue {
	return &runQueue{runs: make([]*run, 0, 16)}
}

// Enqueue appends r. Returns false once the queue is closed.
func (q *runQueue) Enqueue(r *run) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.runs = append(q.runs, r)
	return true
}

// TryDequeue pops the head run without blocking.
func (q *runQueue) TryDequeue() (*run, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.runs) == 0 {
		return nil, false
	}
	r := q.runs[0]
	// Drop the reference so a finished run's interpreter can be collected.
	q.runs[0] = nil
	if len(q.runs) == 1 {
		q.runs = q.runs[:0]
	} else {
		q.runs = q.runs[1:]
	}
	return r, true
}

// Len returns the number of waiting runs.
func (q *runQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.runs)
}

// Pending returns the ids of waiting runs in queue order.
func (q *runQueue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.runs))
	for i, r := range q.runs {
		out[i] = r.id
	}
	return out
}

// Close rejects further enqueues. Runs already waiting stay queued.
func (q *runQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Closed reports whether Close was called.
func (q *runQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
