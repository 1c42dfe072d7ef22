package duplex

import "errors"

// Errors returned by queue operations.
var (
	// ErrQueueEmpty is returned when a Get times out before a message is available.
	ErrQueueEmpty = errors.New("queue empty")
	// ErrQueueFull is returned when a Put finds the queue at capacity. The message is dropped.
	ErrQueueFull = errors.New("queue full")
	// ErrQueueClosed is returned by a blocking Get once the queue has been shut and drained.
	ErrQueueClosed = errors.New("queue closed")
)

// Errors returned by connection operations.
var (
	// ErrPeerDisconnected is captured when the remote side closes the stream.
	ErrPeerDisconnected = errors.New("peer disconnected")
	// ErrNotConnected is returned when Start is called before Connect or Listen.
	ErrNotConnected = errors.New("not connected")
	// ErrAlreadyConnected is returned when Connect or Listen is called twice.
	ErrAlreadyConnected = errors.New("already connected")
	// ErrAlreadyStarted is returned when Start is called on a running connection.
	ErrAlreadyStarted = errors.New("already started")
	// ErrClosed is returned when operating on a closed connection.
	ErrClosed = errors.New("connection closed")
)
