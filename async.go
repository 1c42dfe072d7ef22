package duplex

import (
	"context"
	"time"
)

// Result carries the outcome of an asynchronous call.
type Result[T any] struct {
	Value T
	Err   error
}

// async runs fn on its own goroutine and delivers its result on a buffered
// channel, so the caller can select on it next to other work.
func async[T any](fn func() (T, error)) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	go func() {
		v, err := fn()
		ch <- Result[T]{Value: v, Err: err}
	}()
	return ch
}

// ListenOnAsync is ListenOn without blocking the caller.
func ListenOnAsync(ctx context.Context, addr string, opt ...Option) <-chan Result[*Duplex] {
	return async(func() (*Duplex, error) {
		return ListenOn(ctx, addr, opt...)
	})
}

// ReceiveAsync is Receive without blocking the caller.
func (d *Duplex) ReceiveAsync(timeout time.Duration) <-chan Result[[]byte] {
	return async(func() ([]byte, error) {
		return d.Receive(timeout)
	})
}
