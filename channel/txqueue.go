package channel

import "context"

// txQueue is the bounded producer/consumer handoff between a caller's
// Send and the protocol goroutine, generalizing the teacher's
// condvar-guarded tq_append/tq_remove pair (src/tq.go) to a buffered Go
// channel: the producer never blocks past the capacity check. The
// protocol loops consume with popNonBlocking; pop, which blocks until a
// payload arrives or ctx is done, is also available.
type txQueue struct {
	ch chan []byte
}

func newTxQueue(capacity int) *txQueue {
	return &txQueue{ch: make(chan []byte, capacity)}
}

// tryPush enqueues payload, returning false if the queue is full. This
// realizes the back-pressure contract: callers must check the result
// rather than assume delivery.
func (q *txQueue) tryPush(payload []byte) bool {
	select {
	case q.ch <- payload:
		return true
	default:
		return false
	}
}

// pop blocks for the next queued payload, or returns (nil, false) if
// none arrives before ctx is done.
func (q *txQueue) pop(ctx context.Context) ([]byte, bool) {
	select {
	case p := <-q.ch:
		return p, true
	case <-ctx.Done():
		return nil, false
	}
}

// popNonBlocking returns the next queued payload without waiting, or
// (nil, false) if the queue is currently empty. The master loop uses
// this: it must still run an exchange round (to drain any inbound data
// the slave is holding) even when it has nothing new to send.
func (q *txQueue) popNonBlocking() ([]byte, bool) {
	select {
	case p := <-q.ch:
		return p, true
	default:
		return nil, false
	}
}

func (q *txQueue) len() int {
	return len(q.ch)
}
