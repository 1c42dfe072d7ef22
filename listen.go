package duplex

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
)

// Default endpoints used when an empty address is given.
const (
	DefaultConnectAddr = "127.0.0.1:8765"
	DefaultListenAddr  = "0.0.0.0:8765"
)

// Listener is a bound TCP socket that hands out single peer connections.
// Duplex.Listen binds one, accepts once and closes it; bind your own with
// NewListener when the address must be known before a peer connects
// (port 0, tests).
type Listener struct {
	listener *net.TCPListener
	logger   Logger
}

// NewListener binds addr. An empty addr binds DefaultListenAddr.
// Returns an error if the address cannot be bound.
func NewListener(addr string, opt ...Option) (*Listener, error) {
	if addr == "" {
		addr = DefaultListenAddr
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "duplex: resolve %s", addr)
	}

	listener, err := net.ListenTCP(tcpAddr.Network(), tcpAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "duplex: listen %s", addr)
	}

	opts := newOptions(opt...)
	return &Listener{listener: listener, logger: opts.logger}, nil
}

// accept waits for one peer. It blocks until a peer connects, the context
// is canceled or the listener is closed.
func (l *Listener) accept(ctx context.Context) (*net.TCPConn, error) {
	l.logger.Info("waiting for peer", "addr", l.listener.Addr())

	// Set a deadline to unblock Accept when the context ends.
	stop := context.AfterFunc(ctx, func() {
		_ = l.listener.SetDeadline(time.Now())
	})
	defer stop()

	conn, err := l.listener.AcceptTCP()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(err, "duplex: accept")
	}

	l.logger.Debug("accepted connection", "remote_addr", conn.RemoteAddr())
	_ = conn.SetNoDelay(true)
	return conn, nil
}

// Close stops the listener. Any blocked accept returns with an error.
func (l *Listener) Close() error {
	return l.listener.Close()
}

// Addr returns the listener's network address.
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

// dial opens an outbound TCP connection to addr, or DefaultConnectAddr.
func dial(ctx context.Context, addr string) (net.Conn, error) {
	if addr == "" {
		addr = DefaultConnectAddr
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "duplex: connect %s", addr)
	}
	return conn, nil
}
