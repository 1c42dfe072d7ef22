package duplex

import "time"

// Channel is the contract shared by the connection bindings: Duplex drives
// the socket from one polling loop, StreamConn from a blocking reader and a
// blocking writer. Both speak the same wire format.
type Channel interface {
	// Send queues a message without blocking.
	Send(msg []byte) error
	// Receive returns the next message, waiting according to timeout.
	Receive(timeout time.Duration) ([]byte, error)
	// Close tears the connection down and returns the captured error.
	Close() error
}

var (
	_ Channel = (*Duplex)(nil)
	_ Channel = (*StreamConn)(nil)
)
