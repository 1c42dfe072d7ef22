//go:build !unix

package duplex

import (
	"net"
	"syscall"
)

// rawConn returns nil so reads fall back to short deadlines.
func rawConn(net.Conn) syscall.RawConn {
	return nil
}

func (s *socketIO) drainRaw() ([]byte, error) {
	return s.drainDeadline()
}
