// Package duplex provides a bidirectional message channel over a TCP stream.
// Messages are framed between fixed markers, partial reads are buffered, and
// callers exchange whole messages through two bounded queues serviced by a
// background exchange loop.
package duplex

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Duplex is one end of a message channel.
// The inbox and outbox are the only state shared between callers and the
// exchange loop; everything else is guarded by mu.
type Duplex struct {
	opts    options
	logger  Logger
	metrics *metrics

	inbox  *Queue
	outbox *Queue

	running atomic.Bool

	mu     sync.Mutex
	state  State
	err    error
	conn   net.Conn
	cancel context.CancelFunc
	group  *errgroup.Group
	done   chan struct{}
}

// New creates an unconnected Duplex. Call Connect or Listen, then Start.
func New(opt ...Option) *Duplex {
	opts := newOptions(opt...)
	return &Duplex{
		opts:    opts,
		logger:  opts.logger,
		metrics: newMetrics(opts.metrics),
		inbox:   NewQueue(opts.inboxSize),
		outbox:  NewQueue(opts.outboxSize),
		done:    make(chan struct{}),
	}
}

// ConnectTo connects to addr (DefaultConnectAddr when empty) and starts the
// exchange loop.
func ConnectTo(ctx context.Context, addr string, opt ...Option) (*Duplex, error) {
	d := New(opt...)
	if err := d.Connect(ctx, addr); err != nil {
		return nil, err
	}
	if err := d.Start(); err != nil {
		d.Discard()
		return nil, err
	}
	return d, nil
}

// ListenOn accepts one peer on addr (DefaultListenAddr when empty) and
// starts the exchange loop. It blocks until a peer connects or ctx is done.
func ListenOn(ctx context.Context, addr string, opt ...Option) (*Duplex, error) {
	d := New(opt...)
	if err := d.Listen(ctx, addr); err != nil {
		return nil, err
	}
	if err := d.Start(); err != nil {
		d.Discard()
		return nil, err
	}
	return d, nil
}

// AcceptOn accepts one peer on l and starts the exchange loop.
func AcceptOn(ctx context.Context, l *Listener, opt ...Option) (*Duplex, error) {
	d := New(opt...)
	if err := d.Accept(ctx, l); err != nil {
		return nil, err
	}
	if err := d.Start(); err != nil {
		d.Discard()
		return nil, err
	}
	return d, nil
}

// Send queues msg for the exchange loop without blocking.
//
// Connection failures are not reported here: they are captured and returned
// by Close. When the connection is no longer running, Send closes it and
// returns the captured error, or ErrClosed. ErrQueueFull means the outbox is
// full and msg was dropped.
func (d *Duplex) Send(msg []byte) error {
	if !d.running.Load() {
		if err := d.Close(); err != nil {
			return err
		}
		return ErrClosed
	}

	if err := d.outbox.Put(msg); err != nil {
		d.logger.Warn("outbox full, message dropped", "size", len(msg))
		d.metrics.dropped("outbox")
		return err
	}
	return nil
}

// Receive returns the next message.
//
// With NoTimeout it waits while the connection runs and returns an empty
// message once the connection ends; messages already received are handed out
// first. With a timeout of zero or more it waits at most that long and returns
// ErrQueueEmpty on expiry.
//
// When the connection is no longer running, Receive closes it first and
// returns the captured error if there is one.
func (d *Duplex) Receive(timeout time.Duration) ([]byte, error) {
	if !d.running.Load() {
		if err := d.Close(); err != nil {
			return nil, err
		}
	}

	msg, err := d.inbox.Get(timeout)
	if timeout < 0 && errors.Is(err, ErrQueueClosed) {
		return nil, nil
	}
	return msg, err
}

// Inbox returns the queue of received messages.
func (d *Duplex) Inbox() *Queue {
	return d.inbox
}

// Outbox returns the queue of messages waiting to be written.
func (d *Duplex) Outbox() *Queue {
	return d.outbox
}
