package duplex

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Default configuration values.
const (
	// defaultQueueSize is the default capacity of the inbox and the outbox.
	defaultQueueSize = 1024
	// defaultOutboxWait bounds how long the exchange loop waits for an outbox item it saw queued.
	defaultOutboxWait = 10 * time.Millisecond
	// defaultPollInterval is the read deadline used where non-blocking reads are emulated.
	defaultPollInterval = time.Millisecond
	// defaultWriteTimeout is the write deadline for one frame.
	defaultWriteTimeout = 30 * time.Second
	// defaultReadBufferSize is the size of a single socket read.
	defaultReadBufferSize = 64 * 1024
)

// options holds the configuration for a connection.
type options struct {
	codec   Codec
	logger  Logger
	metrics prometheus.Registerer

	inboxSize      int           // capacity of the received message queue
	outboxSize     int           // capacity of the pending message queue
	outboxWait     time.Duration // bounded wait for an outbox item each turn
	pollInterval   time.Duration // read deadline for emulated non-blocking reads
	writeTimeout   time.Duration // write deadline for one frame
	readBufferSize int           // size of a single read
}

// Option is a function that configures connection options.
type Option func(*options)

// newOptions applies opt over the defaults.
func newOptions(opt ...Option) options {
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)
	return opts
}

// checkOptions sets default values for unset connection options.
func checkOptions(opts *options) {
	if opts.codec == nil {
		opts.codec = MarkerCodec{}
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	if opts.inboxSize <= 0 {
		opts.inboxSize = defaultQueueSize
	}

	if opts.outboxSize <= 0 {
		opts.outboxSize = defaultQueueSize
	}

	if opts.outboxWait <= 0 {
		opts.outboxWait = defaultOutboxWait
	}

	if opts.pollInterval <= 0 {
		opts.pollInterval = defaultPollInterval
	}

	if opts.writeTimeout <= 0 {
		opts.writeTimeout = defaultWriteTimeout
	}

	if opts.readBufferSize <= 0 {
		opts.readBufferSize = defaultReadBufferSize
	}
}

// CodecOption returns an Option that sets the wire framing.
// MarkerCodec is used when not set.
func CodecOption(codec Codec) Option {
	return func(o *options) {
		o.codec = codec
	}
}

// LoggerOption returns an Option that sets the logger.
// If not set, the package logger controlled by SetVerbose is used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// MetricsOption returns an Option that registers the connection counters
// with reg. Connections sharing a registerer share the counters.
func MetricsOption(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.metrics = reg
	}
}

// InboxSizeOption returns an Option that sets the capacity of the received message queue.
// Messages arriving while the inbox is full are dropped.
func InboxSizeOption(size int) Option {
	return func(o *options) {
		o.inboxSize = size
	}
}

// OutboxSizeOption returns an Option that sets the capacity of the pending message queue.
// Send returns ErrQueueFull while the outbox is full.
func OutboxSizeOption(size int) Option {
	return func(o *options) {
		o.outboxSize = size
	}
}

// OutboxWaitOption returns an Option that bounds how long one loop turn
// waits for an outbox message.
func OutboxWaitOption(wait time.Duration) Option {
	return func(o *options) {
		o.outboxWait = wait
	}
}

// PollIntervalOption returns an Option that sets the read deadline used on
// platforms without raw non-blocking reads.
func PollIntervalOption(interval time.Duration) Option {
	return func(o *options) {
		o.pollInterval = interval
	}
}

// WriteTimeoutOption returns an Option that sets the write deadline for one frame.
func WriteTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = timeout
	}
}

// ReadBufferSizeOption returns an Option that sets the size of a single socket read.
func ReadBufferSizeOption(size int) Option {
	return func(o *options) {
		o.readBufferSize = size
	}
}
