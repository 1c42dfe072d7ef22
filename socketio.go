package duplex

import (
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

// socketIO owns a connected socket for the exchange loop.
// Reads never block: they drain whatever the kernel already holds.
type socketIO struct {
	conn net.Conn
	raw  syscall.RawConn // nil when the connection exposes no descriptor
	buf  []byte

	pollInterval time.Duration
	writeTimeout time.Duration

	disconnectOnce sync.Once
	onDisconnect   func()
}

func newSocketIO(conn net.Conn, opts options, onDisconnect func()) *socketIO {
	return &socketIO{
		conn:         conn,
		raw:          rawConn(conn),
		buf:          make([]byte, opts.readBufferSize),
		pollInterval: opts.pollInterval,
		writeTimeout: opts.writeTimeout,
		onDisconnect: onDisconnect,
	}
}

// readAvailable returns every byte currently available on the socket, or an
// empty slice when there is none. An orderly close by the peer fires the
// disconnect callback and returns ErrPeerDisconnected together with the bytes
// read before it.
func (s *socketIO) readAvailable() ([]byte, error) {
	if s.raw != nil {
		return s.drainRaw()
	}
	return s.drainDeadline()
}

// drainDeadline emulates a non-blocking drain with a short read deadline.
func (s *socketIO) drainDeadline() ([]byte, error) {
	var out []byte
	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.pollInterval))

		n, err := s.conn.Read(s.buf)
		out = append(out, s.buf[:n]...)
		if err == nil {
			continue
		}

		var netErr net.Error
		switch {
		case errors.As(err, &netErr) && netErr.Timeout():
			return out, nil
		case errors.Is(err, io.EOF):
			s.disconnected()
			return out, ErrPeerDisconnected
		default:
			return out, errors.Wrap(err, "duplex: read")
		}
	}
}

// writeAll writes data completely or fails.
func (s *socketIO) writeAll(data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))

	for len(data) > 0 {
		n, err := s.conn.Write(data)
		if err != nil {
			return errors.Wrap(err, "duplex: write")
		}
		data = data[n:]
	}
	return nil
}

func (s *socketIO) disconnected() {
	s.disconnectOnce.Do(func() {
		if s.onDisconnect != nil {
			s.onDisconnect()
		}
	})
}
