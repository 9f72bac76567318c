package queue

import (
	"context"
	"sync"
)

// Pending is the FIFO of job ids awaiting a worker slot. Enqueue appends and
// Dequeue removes from the front, so jobs leave in arrival order.
type Pending struct {
	mu     sync.Mutex
	ids    []string
	notify chan struct{}
}

// NewPending returns an empty queue.
func NewPending() *Pending {
	return &Pending{notify: make(chan struct{})}
}

// Enqueue appends id to the back of the queue.
func (p *Pending) Enqueue(id string) {
	p.mu.Lock()
	p.ids = append(p.ids, id)
	close(p.notify)
	p.notify = make(chan struct{})
	p.mu.Unlock()
}

// Dequeue blocks until an id is available or ctx is done.
func (p *Pending) Dequeue(ctx context.Context) (string, error) {
	for {
		p.mu.Lock()
		if len(p.ids) > 0 {
			id := p.ids[0]
			p.ids[0] = ""
			p.ids = p.ids[1:]
			p.mu.Unlock()
			return id, nil
		}
		wait := p.notify
		p.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Len reports the number of waiting ids.
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ids)
}

// Snapshot returns the waiting ids in dequeue order.
func (p *Pending) Snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.ids))
	copy(out, p.ids)
	return out
}
