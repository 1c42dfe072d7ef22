package duplex

import (
	"context"
	"net"

	"golang.org/x/sync/errgroup"
)

// State is the lifecycle stage of a Duplex.
type State int

const (
	// StateUnconnected is the state of a new Duplex.
	StateUnconnected State = iota
	// StateConnecting is held while Connect or Listen is establishing the socket.
	StateConnecting
	// StateConnected means the socket is established but the exchange loop is not started.
	StateConnected
	// StateRunning means the exchange loop is pumping messages.
	StateRunning
	// StateStopped means the loop was asked to stop or ended on an error.
	StateStopped
	// StateClosed means the socket is closed and the loop has exited.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connect opens an outbound connection to addr (DefaultConnectAddr when empty).
// It blocks until the connection is established or ctx is done.
func (d *Duplex) Connect(ctx context.Context, addr string) error {
	if err := d.beginConnect(); err != nil {
		return err
	}

	conn, err := dial(ctx, addr)
	if err != nil {
		d.abortConnect()
		return err
	}

	return d.attach(conn)
}

// Listen binds addr (DefaultListenAddr when empty) and accepts exactly one
// peer. It blocks until a peer connects or ctx is done.
func (d *Duplex) Listen(ctx context.Context, addr string) error {
	l, err := NewListener(addr, LoggerOption(d.logger))
	if err != nil {
		return err
	}
	defer l.Close()

	return d.Accept(ctx, l)
}

// Accept waits for one peer on an already bound listener.
// The listener stays open.
func (d *Duplex) Accept(ctx context.Context, l *Listener) error {
	if err := d.beginConnect(); err != nil {
		return err
	}

	conn, err := l.accept(ctx)
	if err != nil {
		d.abortConnect()
		return err
	}

	return d.attach(conn)
}

func (d *Duplex) beginConnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateUnconnected:
		d.state = StateConnecting
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return ErrAlreadyConnected
	}
}

func (d *Duplex) abortConnect() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateConnecting {
		d.state = StateUnconnected
	}
}

// attach adopts conn unless Close ran while it was being established.
func (d *Duplex) attach(conn net.Conn) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateConnecting {
		_ = conn.Close()
		return ErrClosed
	}

	d.conn = conn
	d.state = StateConnected
	d.logger.Info("connection established", "local_addr", conn.LocalAddr(), "remote_addr", conn.RemoteAddr())
	return nil
}

// Start spawns the exchange loop.
// Returns ErrNotConnected before Connect or Listen and ErrAlreadyStarted when running.
func (d *Duplex) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateConnected:
	case StateRunning:
		return ErrAlreadyStarted
	case StateStopped, StateClosed:
		return ErrClosed
	default:
		return ErrNotConnected
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	loop := &exchangeLoop{
		sock:       newSocketIO(d.conn, d.opts, d.onDisconnect),
		codec:      d.opts.codec,
		inbox:      d.inbox,
		outbox:     d.outbox,
		logger:     d.logger,
		metrics:    d.metrics,
		outboxWait: d.opts.outboxWait,
		running:    &d.running,
		stop:       d.Stop,
	}

	d.cancel = cancel
	d.group = group
	d.state = StateRunning
	d.running.Store(true)

	d.logger.Debug("exchange loop started", "addr", d.conn.RemoteAddr(),
		"inbox_size", d.inbox.Cap(),
		"outbox_size", d.outbox.Cap())

	group.Go(func() error {
		return loop.run(ctx)
	})
	return nil
}

func (d *Duplex) onDisconnect() {
	d.logger.Debug("disconnect signaled", "addr", d.conn.RemoteAddr())
}

// Stop asks the exchange loop to end after its current turn and wakes every
// Receive waiting without timeout. A non-nil err replaces the captured error.
// Safe to call multiple times.
func (d *Duplex) Stop(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked(err)
}

func (d *Duplex) stopLocked(err error) {
	if d.state == StateRunning {
		d.state = StateStopped
		d.running.Store(false)
		d.inbox.shut()
		d.logger.Debug("exchange loop stopping")
	}

	if err != nil {
		if d.err != nil {
			d.logger.Debug("replacing captured error", "previous", d.err, "error", err)
		}
		d.err = err
	}
}

// Close stops the loop if it is running, closes the socket and waits for the
// loop to exit. The captured error, if any, is returned and cleared.
// Safe to call multiple times and from multiple goroutines.
func (d *Duplex) Close() error {
	return d.close(true)
}

// Discard tears the connection down like Close but only logs the captured
// error, leaving it readable through Err.
func (d *Duplex) Discard() {
	_ = d.close(false)
}

func (d *Duplex) close(raiseError bool) error {
	d.mu.Lock()
	if d.state != StateClosed {
		d.stopLocked(nil)
		d.state = StateClosed
		d.inbox.shut()

		cancel, group, conn := d.cancel, d.group, d.conn
		d.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if conn != nil {
			if err := conn.Close(); err != nil {
				d.logger.Debug("socket close error", "error", err)
			}
		}
		if group != nil {
			_ = group.Wait()
		}

		if conn != nil {
			d.logger.Info("connection closed", "addr", conn.RemoteAddr())
		}
		close(d.done)
		d.mu.Lock()
	}
	d.mu.Unlock()

	// A concurrent Close may still be joining the loop.
	<-d.done

	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.err
	if err == nil {
		return nil
	}
	if raiseError {
		d.err = nil
		return err
	}
	d.logger.Warn("connection error suppressed", "error", err)
	return nil
}

// Err returns the captured error without clearing it.
func (d *Duplex) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.err
}

// State returns the current lifecycle state.
func (d *Duplex) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state
}

// IsRunning reports whether the exchange loop is pumping messages.
func (d *Duplex) IsRunning() bool {
	return d.running.Load()
}

// Addr returns the remote address, or nil before a connection is established.
func (d *Duplex) Addr() net.Addr {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil
	}
	return d.conn.RemoteAddr()
}
