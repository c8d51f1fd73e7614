package framed

import (
	"net"
	"sync"

	"github.com/eapache/queue"
)

// inbound is an accepted socket on its way from the listener to the engine.
type inbound struct {
	conn *net.TCPConn
	addr net.Addr
}

// inboundQueue hands accepted sockets from the listener goroutine to the
// engine goroutine in acceptance order. Each push notifies the consumer.
type inboundQueue struct {
	mu     sync.Mutex
	items  *queue.Queue
	notify func()
}

func newInboundQueue(notify func()) *inboundQueue {
	return &inboundQueue{
		items:  queue.New(),
		notify: notify,
	}
}

func (q *inboundQueue) push(in inbound) {
	q.mu.Lock()
	q.items.Add(in)
	q.mu.Unlock()

	if q.notify != nil {
		q.notify()
	}
}

// drain removes every pending entry and passes it to fn, oldest first.
// fn runs without the lock held.
func (q *inboundQueue) drain(fn func(inbound)) {
	q.mu.Lock()
	pending := make([]inbound, 0, q.items.Length())
	for q.items.Length() > 0 {
		pending = append(pending, q.items.Remove().(inbound))
	}
	q.mu.Unlock()

	for _, in := range pending {
		fn(in)
	}
}

func (q *inboundQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}
