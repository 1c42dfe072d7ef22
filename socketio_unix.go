//go:build unix

package duplex

import (
	"net"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func rawConn(conn net.Conn) syscall.RawConn {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return nil
	}
	return raw
}

// drainRaw reads straight from the descriptor, which the runtime keeps in
// non-blocking mode, until the kernel reports EAGAIN.
func (s *socketIO) drainRaw() ([]byte, error) {
	var out []byte
	for {
		var (
			n    int
			rerr error
		)
		// Returning true from the callback stops the runtime from parking on EAGAIN.
		err := s.raw.Read(func(fd uintptr) bool {
			n, rerr = unix.Read(int(fd), s.buf)
			return true
		})
		if err != nil {
			return out, errors.Wrap(err, "duplex: read")
		}

		switch {
		case rerr == unix.EAGAIN || rerr == unix.EWOULDBLOCK:
			return out, nil
		case rerr == unix.EINTR:
			continue
		case rerr != nil:
			return out, errors.Wrap(rerr, "duplex: read")
		case n == 0:
			s.disconnected()
			return out, ErrPeerDisconnected
		}

		out = append(out, s.buf[:n]...)
	}
}
