package duplex

import (
	"context"
	"sync/atomic"
	"time"

	"code.hybscloud.com/iox"
	"github.com/pkg/errors"
)

// exchangeLoop pumps the outbox to the socket and the socket into the inbox.
// The buffer and the socket belong to the loop goroutine alone.
type exchangeLoop struct {
	sock    *socketIO
	codec   Codec
	inbox   *Queue
	outbox  *Queue
	logger  Logger
	metrics *metrics

	outboxWait time.Duration
	running    *atomic.Bool
	stop       func(error)

	buf     []byte
	backoff iox.Backoff
}

// run turns the loop until the running flag is cleared, the context is
// canceled or a turn fails. A failure, panics included, is handed to stop
// as the terminal error and returned.
func (l *exchangeLoop) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("duplex: exchange loop panic: %v", r)
		}
		if err != nil {
			l.stop(err)
		}
	}()

	for l.running.Load() {
		if ctx.Err() != nil {
			return nil
		}

		progress, err := l.turn()
		if err != nil {
			// A socket closed under us by Close is not a fault.
			if ctx.Err() != nil || !l.running.Load() {
				return nil
			}
			if errors.Is(err, ErrPeerDisconnected) {
				l.logger.Info("peer disconnected", "addr", l.sock.conn.RemoteAddr())
				l.metrics.disconnects.Inc()
				l.stop(err)
				return nil
			}
			l.logger.Error("exchange loop failed", "addr", l.sock.conn.RemoteAddr(), "error", err)
			return err
		}

		if progress {
			l.backoff.Reset()
		} else {
			l.backoff.Wait()
		}
	}
	return nil
}

// turn writes at most one outbox message, drains the socket and delivers
// every complete frame. It reports whether anything moved.
func (l *exchangeLoop) turn() (progress bool, err error) {
	if l.outbox.Len() > 0 {
		msg, err := l.outbox.Get(l.outboxWait)
		switch {
		case errors.Is(err, ErrQueueEmpty):
			l.logger.Debug("outbox emptied before read")
		case err != nil:
			return false, err
		default:
			frame := l.codec.Pack(msg)
			if err := l.sock.writeAll(frame); err != nil {
				return false, err
			}
			l.metrics.messagesSent.Inc()
			l.metrics.bytesWritten.Add(float64(len(frame)))
			progress = true
		}
	}

	data, readErr := l.sock.readAvailable()
	if len(data) > 0 {
		l.metrics.bytesRead.Add(float64(len(data)))
		l.buf = append(l.buf, data...)
		l.deliver()
		progress = true
	}

	return progress, readErr
}

// deliver moves complete frames from the buffer to the inbox, dropping
// messages the inbox has no room for.
func (l *exchangeLoop) deliver() {
	msgs, rest := l.codec.Unpack(l.buf)
	l.buf = rest

	for _, msg := range msgs {
		if err := l.inbox.Put(msg); err != nil {
			l.logger.Warn("inbox full, message dropped", "size", len(msg), "error", err)
			l.metrics.dropped("inbox")
			continue
		}
		l.metrics.messagesReceived.Inc()
	}
}
