package wire

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts connection traffic. One Metrics is usually shared by every
// connection of a server. A nil *Metrics records nothing.
type Metrics struct {
	framesIn     prometheus.Counter
	framesOut    prometheus.Counter
	bytesIn      prometheus.Counter
	bytesOut     prometheus.Counter
	decodeErrors prometheus.Counter
	encrypted    prometheus.Counter
	active       prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered. Registering the same namespace twice panics.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		framesIn: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Total number of frames decoded",
		}),
		framesOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Total number of frames written",
		}),
		bytesIn: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "received_bytes_total",
			Help:      "Total bytes read from connections",
		}),
		bytesOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sent_bytes_total",
			Help:      "Total bytes written to connections",
		}),
		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Total number of frames that failed to decode",
		}),
		encrypted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encryption_enabled_total",
			Help:      "Total number of connections that switched on encryption",
		}),
		active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of connections currently running",
		}),
	}
}

func (m *Metrics) frameIn() {
	if m != nil {
		m.framesIn.Inc()
	}
}

func (m *Metrics) frameOut() {
	if m != nil {
		m.framesOut.Inc()
	}
}

func (m *Metrics) decodeFailed() {
	if m != nil {
		m.decodeErrors.Inc()
	}
}

func (m *Metrics) encryptionEnabled() {
	if m != nil {
		m.encrypted.Inc()
	}
}

func (m *Metrics) connOpened() {
	if m != nil {
		m.active.Inc()
	}
}

func (m *Metrics) connClosed() {
	if m != nil {
		m.active.Dec()
	}
}

// countingReader adds every byte read to the received bytes counter.
type countingReader struct {
	r io.Reader
	m *Metrics
}

func (c countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if c.m != nil && n > 0 {
		c.m.bytesIn.Add(float64(n))
	}
	return n, err
}

// countingWriter adds every byte written to the sent bytes counter.
type countingWriter struct {
	w io.Writer
	m *Metrics
}

func (c countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if c.m != nil && n > 0 {
		c.m.bytesOut.Add(float64(n))
	}
	return n, err
}
