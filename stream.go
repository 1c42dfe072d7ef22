package duplex

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// StreamConn is the event-driven binding of Channel.
// A reader goroutine blocks on the socket and frames what arrives into the
// inbox, a writer goroutine blocks on the outbox and writes frames. It is
// wire compatible with Duplex.
type StreamConn struct {
	rawConn net.Conn
	logger  Logger
	metrics *metrics
	opts    options

	inbox  *Queue
	outbox *Queue

	started atomic.Bool
	running atomic.Bool
	closed  atomic.Bool

	mu     sync.Mutex
	err    error
	cancel context.CancelFunc
	done   chan struct{}
}

// NewStreamConn wraps an established connection. Call Start or Run to begin
// exchanging messages.
func NewStreamConn(conn net.Conn, opt ...Option) *StreamConn {
	opts := newOptions(opt...)
	return &StreamConn{
		rawConn: conn,
		logger:  opts.logger,
		metrics: newMetrics(opts.metrics),
		opts:    opts,
		inbox:   NewQueue(opts.inboxSize),
		outbox:  NewQueue(opts.outboxSize),
		done:    make(chan struct{}),
	}
}

// DialStream connects to addr (DefaultConnectAddr when empty) and starts the connection.
func DialStream(ctx context.Context, addr string, opt ...Option) (*StreamConn, error) {
	conn, err := dial(ctx, addr)
	if err != nil {
		return nil, err
	}

	c := NewStreamConn(conn, opt...)
	c.Start()
	return c, nil
}

// AcceptStream accepts one peer on l and starts the connection.
func AcceptStream(ctx context.Context, l *Listener, opt ...Option) (*StreamConn, error) {
	conn, err := l.accept(ctx)
	if err != nil {
		return nil, err
	}

	c := NewStreamConn(conn, opt...)
	c.Start()
	return c, nil
}

// Start runs the connection in the background. The error that ends it is
// captured and returned by Close.
func (c *StreamConn) Start() {
	if c.started.Swap(true) {
		return
	}

	c.running.Store(true)
	go func() {
		defer close(c.done)

		err := c.Run(context.Background())
		if err != nil && !errors.Is(err, context.Canceled) && !c.closed.Load() {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
		}
	}()
}

// Run starts the connection's read and write loops and blocks until one of
// them fails or the context is canceled. The connection is closed when Run
// returns.
func (c *StreamConn) Run(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.running.Store(true)
	c.logger.Info("connection established", "addr", c.Addr())

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	group, child := errgroup.WithContext(ctx)

	// Unblock the reader once either loop is done.
	stop := context.AfterFunc(child, func() {
		_ = c.rawConn.Close()
	})
	defer stop()

	group.Go(func() error {
		return c.readLoop(child)
	})

	group.Go(func() error {
		return c.writeLoop(child)
	})

	err := group.Wait()
	c.closeConn()

	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Info("connection closed with error", "addr", c.Addr(), "error", err)
	} else {
		c.logger.Info("connection closed", "addr", c.Addr())
	}

	return err
}

// readLoop reads until the socket fails and delivers every complete frame.
func (c *StreamConn) readLoop(ctx context.Context) error {
	var buf []byte
	chunk := make([]byte, c.opts.readBufferSize)

	for {
		n, err := c.rawConn.Read(chunk)
		if n > 0 {
			c.metrics.bytesRead.Add(float64(n))
			buf = append(buf, chunk[:n]...)

			var msgs [][]byte
			msgs, buf = c.opts.codec.Unpack(buf)
			for _, msg := range msgs {
				if err := c.inbox.Put(msg); err != nil {
					c.logger.Warn("inbox full, message dropped", "size", len(msg), "error", err)
					c.metrics.dropped("inbox")
					continue
				}
				c.metrics.messagesReceived.Inc()
			}
		}

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				c.logger.Info("peer disconnected", "addr", c.Addr())
				c.metrics.disconnects.Inc()
				return ErrPeerDisconnected
			}
			c.logger.Debug("read error", "addr", c.Addr(), "error", err)
			return errors.Wrap(err, "duplex: read")
		}
	}
}

// writeLoop writes outbox messages until the context is canceled or a write fails.
func (c *StreamConn) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-c.outbox.items:
			if err := c.write(c.opts.codec.Pack(msg)); err != nil {
				return err
			}
		}
	}
}

// write sends one frame with a deadline.
func (c *StreamConn) write(frame []byte) error {
	_ = c.rawConn.SetWriteDeadline(time.Now().Add(c.opts.writeTimeout))

	if _, err := c.rawConn.Write(frame); err != nil {
		c.logger.Debug("write error", "addr", c.Addr(), "error", err)
		return errors.Wrap(err, "duplex: write")
	}

	c.metrics.messagesSent.Inc()
	c.metrics.bytesWritten.Add(float64(len(frame)))
	return nil
}

// Send queues msg without blocking. See Duplex.Send.
func (c *StreamConn) Send(msg []byte) error {
	if !c.running.Load() {
		if err := c.Close(); err != nil {
			return err
		}
		return ErrClosed
	}

	if err := c.outbox.Put(msg); err != nil {
		c.logger.Warn("outbox full, message dropped", "size", len(msg))
		c.metrics.dropped("outbox")
		return err
	}
	return nil
}

// Receive returns the next message. See Duplex.Receive.
func (c *StreamConn) Receive(timeout time.Duration) ([]byte, error) {
	if !c.running.Load() {
		if err := c.Close(); err != nil {
			return nil, err
		}
	}

	msg, err := c.inbox.Get(timeout)
	if timeout < 0 && errors.Is(err, ErrQueueClosed) {
		return nil, nil
	}
	return msg, err
}

// Close cancels both loops, closes the socket and waits for Start's
// goroutine to finish. The captured error, if any, is returned and cleared.
// Safe to call multiple times.
func (c *StreamConn) Close() error {
	if !c.closed.Swap(true) {
		c.mu.Lock()
		cancel := c.cancel
		c.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		_ = c.rawConn.Close()
		c.closeConn()
	}

	if c.started.Load() {
		<-c.done
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.err
	c.err = nil
	return err
}

// IsClosed returns true if the connection has been closed.
func (c *StreamConn) IsClosed() bool {
	return c.closed.Load()
}

// Addr returns the remote address of the connection.
func (c *StreamConn) Addr() net.Addr {
	return c.rawConn.RemoteAddr()
}

// closeConn marks the connection as no longer running and wakes blocked receivers.
func (c *StreamConn) closeConn() {
	c.running.Store(false)
	c.inbox.shut()
}
