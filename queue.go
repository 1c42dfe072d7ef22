package duplex

import (
	"sync"
	"time"
)

// NoTimeout makes Get and Receive wait until a message arrives or the
// connection stops running.
const NoTimeout time.Duration = -1

// Queue is a bounded FIFO of messages safe for concurrent use.
// Put never blocks; Get waits according to its timeout.
type Queue struct {
	items chan []byte

	shutOnce sync.Once
	done     chan struct{}
}

// NewQueue creates a queue holding at most capacity messages.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = defaultQueueSize
	}
	return &Queue{
		items: make(chan []byte, capacity),
		done:  make(chan struct{}),
	}
}

// Put appends msg to the queue.
// Returns ErrQueueFull, without queuing, when the queue is at capacity.
func (q *Queue) Put(msg []byte) error {
	select {
	case q.items <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Get removes and returns the oldest message.
//
// A zero timeout returns immediately, a positive timeout waits at most that
// long; both return ErrQueueEmpty when no message shows up. NoTimeout (any
// negative value) waits until a message arrives or the queue is shut, in
// which case ErrQueueClosed is returned. Messages queued before the shut are
// still handed out.
func (q *Queue) Get(timeout time.Duration) ([]byte, error) {
	select {
	case msg := <-q.items:
		return msg, nil
	default:
	}

	switch {
	case timeout == 0:
		return nil, ErrQueueEmpty
	case timeout > 0:
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case msg := <-q.items:
			return msg, nil
		case <-timer.C:
			return nil, ErrQueueEmpty
		}
	default:
		select {
		case msg := <-q.items:
			return msg, nil
		case <-q.done:
			// An item may have raced in with the shut.
			select {
			case msg := <-q.items:
				return msg, nil
			default:
				return nil, ErrQueueClosed
			}
		}
	}
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	return len(q.items)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.items)
}

// shut wakes every Get blocked with NoTimeout. Safe to call multiple times.
func (q *Queue) shut() {
	q.shutOnce.Do(func() {
		close(q.done)
	})
}
