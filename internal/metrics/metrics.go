package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Disconnect reasons
const (
	ReasonLocal         = "local"          // Disconnect() called by the application
	ReasonRemote        = "remote"         // peer closed or I/O failed
	ReasonSendOverflow  = "send_overflow"  // outbound queue limit reached
	ReasonRecvOverflow  = "recv_overflow"  // inbound queue limit reached
	ReasonConnectFailed = "connect_failed" // dial never succeeded
)

// Send rejection reasons
const (
	RejectNotConnected = "not_connected"
	RejectTooLarge     = "too_large"
	RejectQueueFull    = "queue_full"
)

// Connection lifecycle metrics
var (
	ConnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickwire_connect_attempts_total",
			Help: "Total number of connection attempts started",
		},
	)

	ConnectionsEstablished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickwire_connections_established_total",
			Help: "Total number of connection attempts that completed the dial",
		},
	)

	ConnectFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickwire_connect_failures_total",
			Help: "Total number of connection attempts that failed to dial",
		},
	)

	Disconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickwire_disconnects_total",
			Help: "Total number of disconnects by reason",
		},
		[]string{"reason"},
	)

	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tickwire_active_connections",
			Help: "Current number of established connections",
		},
	)
)

// Traffic metrics
var (
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickwire_messages_sent_total",
			Help: "Total number of messages written to the wire",
		},
	)

	BytesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickwire_bytes_sent_total",
			Help: "Total payload bytes written to the wire",
		},
	)

	SendBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tickwire_send_batch_size",
			Help:    "Number of messages written per send loop wake",
			Buckets: prometheus.ExponentialBuckets(1, 2, 11),
		},
	)

	MessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickwire_messages_received_total",
			Help: "Total number of messages read from the wire",
		},
	)

	BytesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickwire_bytes_received_total",
			Help: "Total payload bytes read from the wire",
		},
	)
)

// Backpressure metrics
var (
	SendQueueOverflows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickwire_send_queue_overflows_total",
			Help: "Total number of connections closed because the outbound queue was full",
		},
	)

	ReceiveQueueOverflows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickwire_receive_queue_overflows_total",
			Help: "Total number of connections closed because the inbound queue was full",
		},
	)

	SendRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickwire_send_rejections_total",
			Help: "Total number of rejected sends by reason",
		},
		[]string{"reason"},
	)
)

// Handler returns the HTTP handler exposing all registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
