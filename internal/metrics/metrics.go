// Package metrics exposes Prometheus counters for discovery node traffic.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "lanping"
	subsystem = "node"

	// KindCustom labels every application-defined message type, keeping
	// label cardinality bounded.
	KindCustom = "custom"
)

// Metrics holds the counters a node updates. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	datagramsReceived prometheus.Counter
	bytesReceived     prometheus.Counter
	decodeErrors      prometheus.Counter
	messagesReceived  *prometheus.CounterVec
	messagesSent      *prometheus.CounterVec
	sendErrors        *prometheus.CounterVec
	repliesSent       prometheus.Counter
	filtered          prometheus.Counter
	unhandled         prometheus.Counter
}

// New creates the node counters and registers them with reg. A nil reg
// returns nil metrics.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		datagramsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "datagrams_received_total",
			Help:      "Total datagrams handed to the dispatcher",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bytes_received_total",
			Help:      "Total datagram bytes received",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "decode_errors_total",
			Help:      "Datagrams dropped because they were not valid messages",
		}),
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_received_total",
			Help:      "Decoded messages by type",
		}, []string{"type"}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_sent_total",
			Help:      "Messages handed to the transport by type",
		}, []string{"type"}),
		sendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "send_errors_total",
			Help:      "Transport send failures by type",
		}, []string{"type"}),
		repliesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "replies_sent_total",
			Help:      "Automatic pong replies sent",
		}),
		filtered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_ignored_total",
			Help:      "Ping and broadcast requests rejected by the interest filter",
		}),
		unhandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "unhandled_messages_total",
			Help:      "Application messages with no registered handlers",
		}),
	}

	collectors := []prometheus.Collector{
		m.datagramsReceived, m.bytesReceived, m.decodeErrors,
		m.messagesReceived, m.messagesSent, m.sendErrors,
		m.repliesSent, m.filtered, m.unhandled,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				return nil, fmt.Errorf("metrics already registered: %w", err)
			}
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

// Kind maps a message type onto a bounded label value.
func Kind(msgType string, builtin bool) string {
	if builtin {
		return msgType
	}
	return KindCustom
}

func (m *Metrics) DatagramReceived(size int) {
	if m == nil {
		return
	}
	m.datagramsReceived.Inc()
	m.bytesReceived.Add(float64(size))
}

func (m *Metrics) DecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

func (m *Metrics) MessageReceived(kind string) {
	if m == nil {
		return
	}
	m.messagesReceived.WithLabelValues(kind).Inc()
}

func (m *Metrics) MessageSent(kind string) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(kind).Inc()
}

func (m *Metrics) SendError(kind string) {
	if m == nil {
		return
	}
	m.sendErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) ReplySent() {
	if m == nil {
		return
	}
	m.repliesSent.Inc()
}

func (m *Metrics) Filtered() {
	if m == nil {
		return
	}
	m.filtered.Inc()
}

func (m *Metrics) Unhandled() {
	if m == nil {
		return
	}
	m.unhandled.Inc()
}
