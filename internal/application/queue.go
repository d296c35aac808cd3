package application

import "sync"

// requestQueue is an unbounded FIFO. Push never blocks the caller; pop
// blocks until an item arrives or the queue closes. Close discards
// anything still queued.
type requestQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []Request
	closed bool
}

func newRequestQueue() *requestQueue {
	q := &requestQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *requestQueue) push(req Request) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, req)
	q.cond.Signal()
}

func (q *requestQueue) pop() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return nil, false
	}
	req := q.items[0]
	q.items = q.items[1:]
	return req, true
}

func (q *requestQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.items = nil
	q.cond.Broadcast()
}
