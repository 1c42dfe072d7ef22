package duplex

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCheckOptions_Defaults(t *testing.T) {
	var opts options
	checkOptions(&opts)

	if _, ok := opts.codec.(MarkerCodec); !ok {
		t.Errorf("codec = %T, want MarkerCodec", opts.codec)
	}
	if opts.logger == nil {
		t.Error("logger not set")
	}
	if opts.metrics != nil {
		t.Error("metrics registerer should stay nil")
	}
	if opts.inboxSize != defaultQueueSize {
		t.Errorf("inboxSize = %d, want %d", opts.inboxSize, defaultQueueSize)
	}
	if opts.outboxSize != defaultQueueSize {
		t.Errorf("outboxSize = %d, want %d", opts.outboxSize, defaultQueueSize)
	}
	if opts.outboxWait != defaultOutboxWait {
		t.Errorf("outboxWait = %v, want %v", opts.outboxWait, defaultOutboxWait)
	}
	if opts.pollInterval != defaultPollInterval {
		t.Errorf("pollInterval = %v, want %v", opts.pollInterval, defaultPollInterval)
	}
	if opts.writeTimeout != defaultWriteTimeout {
		t.Errorf("writeTimeout = %v, want %v", opts.writeTimeout, defaultWriteTimeout)
	}
	if opts.readBufferSize != defaultReadBufferSize {
		t.Errorf("readBufferSize = %d, want %d", opts.readBufferSize, defaultReadBufferSize)
	}
}

func TestCheckOptions_NegativeValues(t *testing.T) {
	opts := options{
		inboxSize:      -1,
		outboxSize:     -5,
		outboxWait:     -time.Second,
		readBufferSize: -1,
	}
	checkOptions(&opts)

	if opts.inboxSize != defaultQueueSize || opts.outboxSize != defaultQueueSize {
		t.Errorf("queue sizes = %d/%d, want %d", opts.inboxSize, opts.outboxSize, defaultQueueSize)
	}
	if opts.outboxWait != defaultOutboxWait {
		t.Errorf("outboxWait = %v, want %v", opts.outboxWait, defaultOutboxWait)
	}
	if opts.readBufferSize != defaultReadBufferSize {
		t.Errorf("readBufferSize = %d, want %d", opts.readBufferSize, defaultReadBufferSize)
	}
}

func TestCodecOption(t *testing.T) {
	opt := CodecOption(LengthCodec{})

	var opts options
	opt(&opts)

	if _, ok := opts.codec.(LengthCodec); !ok {
		t.Errorf("codec = %T, want LengthCodec", opts.codec)
	}
}

func TestLoggerOption(t *testing.T) {
	logger := &mockLogger{}
	opt := LoggerOption(logger)

	var opts options
	opt(&opts)

	if opts.logger != logger {
		t.Error("logger not set correctly")
	}
}

func TestMetricsOption(t *testing.T) {
	reg := prometheus.NewRegistry()
	opt := MetricsOption(reg)

	var opts options
	opt(&opts)

	if opts.metrics != reg {
		t.Error("metrics registerer not set correctly")
	}
}

func TestOptions_MultipleOptions(t *testing.T) {
	logger := &mockLogger{}

	opts := newOptions(
		CodecOption(LengthCodec{}),
		LoggerOption(logger),
		InboxSizeOption(16),
		OutboxSizeOption(32),
		OutboxWaitOption(50*time.Millisecond),
		PollIntervalOption(5*time.Millisecond),
		WriteTimeoutOption(time.Second),
		ReadBufferSizeOption(512),
	)

	if _, ok := opts.codec.(LengthCodec); !ok {
		t.Errorf("codec = %T, want LengthCodec", opts.codec)
	}
	if opts.logger != logger {
		t.Error("logger not set")
	}
	if opts.inboxSize != 16 {
		t.Errorf("inboxSize = %d, want 16", opts.inboxSize)
	}
	if opts.outboxSize != 32 {
		t.Errorf("outboxSize = %d, want 32", opts.outboxSize)
	}
	if opts.outboxWait != 50*time.Millisecond {
		t.Errorf("outboxWait = %v, want 50ms", opts.outboxWait)
	}
	if opts.pollInterval != 5*time.Millisecond {
		t.Errorf("pollInterval = %v, want 5ms", opts.pollInterval)
	}
	if opts.writeTimeout != time.Second {
		t.Errorf("writeTimeout = %v, want 1s", opts.writeTimeout)
	}
	if opts.readBufferSize != 512 {
		t.Errorf("readBufferSize = %d, want 512", opts.readBufferSize)
	}
}

func TestNew_AppliesQueueSizes(t *testing.T) {
	d := New(InboxSizeOption(3), OutboxSizeOption(7))

	if d.Inbox().Cap() != 3 {
		t.Errorf("inbox cap = %d, want 3", d.Inbox().Cap())
	}
	if d.Outbox().Cap() != 7 {
		t.Errorf("outbox cap = %d, want 7", d.Outbox().Cap())
	}
}
