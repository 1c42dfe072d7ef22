package duplex

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "duplex"

// metrics holds the Prometheus counters of one connection.
// Without MetricsOption the counters exist but are never registered.
type metrics struct {
	messagesSent     prometheus.Counter
	messagesReceived prometheus.Counter
	messagesDropped  *prometheus.CounterVec
	bytesWritten     prometheus.Counter
	bytesRead        prometheus.Counter
	disconnects      prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_sent_total",
			Help:      "Total number of messages written to the socket",
		}),
		messagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages delivered to the inbox",
		}),
		messagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_dropped_total",
			Help:      "Total number of messages dropped on a full queue",
		}, []string{"queue"}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bytes_written_total",
			Help:      "Total number of framed bytes written to the socket",
		}),
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bytes_read_total",
			Help:      "Total number of bytes read from the socket",
		}),
		disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "peer_disconnects_total",
			Help:      "Total number of connections closed by the peer",
		}),
	}

	if reg == nil {
		return m
	}

	m.messagesSent = register(reg, m.messagesSent)
	m.messagesReceived = register(reg, m.messagesReceived)
	m.messagesDropped = register(reg, m.messagesDropped)
	m.bytesWritten = register(reg, m.bytesWritten)
	m.bytesRead = register(reg, m.bytesRead)
	m.disconnects = register(reg, m.disconnects)
	return m
}

// register registers c with reg, or returns the collector already registered
// under the same description.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	return c
}

func (m *metrics) dropped(queue string) {
	m.messagesDropped.WithLabelValues(queue).Inc()
}
