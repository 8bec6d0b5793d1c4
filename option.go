package wire

import (
	"time"
)

// ErrorAction defines the action to take when an error occurs.
type ErrorAction int

const (
	// Disconnect closes the connection when an error occurs.
	Disconnect ErrorAction = iota
	// Continue suppresses the error and continues processing.
	Continue
)

// options holds the configuration for a connection.
type options struct {
	codec   Codec
	logger  Logger
	metrics *Metrics

	onMessage     func(message Message) error
	onConnMessage func(conn *Conn, message Message) error
	// onError is called for frames that fail to decode and for write errors.
	// Returns Disconnect to close the connection, Continue to suppress the error.
	onError func(error) ErrorAction

	bufferSize    int           // size of buffered channel
	maxReadLength int           // largest frame the reader will buffer
	maxDataLength int           // largest declared decompressed length
	heartbeat     time.Duration // heartbeat interval for read/write deadlines

	compressionThreshold int
	compressionSet       bool
}

// Option is a function that configures connection options.
type Option func(*options)

// CodecOption returns an Option that sets the message codec.
// The codec is required and must be provided before creating a connection.
func CodecOption(codec Codec) Option {
	return func(o *options) {
		o.codec = codec
	}
}

// BufferSizeOption returns an Option that sets the size of the send channel buffer.
// A larger buffer allows more messages to be queued before blocking.
func BufferSizeOption(size int) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

// HeartbeatOption returns an Option that sets the heartbeat interval.
// This determines the read/write deadline timeout (heartbeat * 2).
func HeartbeatOption(heartbeat time.Duration) Option {
	return func(o *options) {
		o.heartbeat = heartbeat
	}
}

// MessageMaxSize returns an Option that sets the largest frame, in bytes,
// the connection will buffer. Larger frames fail with transport.ErrBufferFull.
func MessageMaxSize(size int) Option {
	return func(o *options) {
		o.maxReadLength = size
	}
}

// MaxDataLengthOption caps the decompressed length a compressed frame may declare.
func MaxDataLengthOption(size int) Option {
	return func(o *options) {
		o.maxDataLength = size
	}
}

// CompressionThresholdOption enables compression for frame bodies of at least
// threshold bytes. A negative threshold disables compression, which is the
// default.
func CompressionThresholdOption(threshold int) Option {
	return func(o *options) {
		o.compressionThreshold = threshold
		o.compressionSet = true
	}
}

// OnErrorOption returns an Option that sets the error callback.
// The callback is invoked when a frame fails to decode or a write fails.
// Return Disconnect to close the connection, or Continue to suppress the error.
func OnErrorOption(cb func(error) ErrorAction) Option {
	return func(o *options) {
		o.onError = cb
	}
}

// OnMessageOption returns an Option that sets the message handler callback.
// This callback is required and is invoked for each received message.
func OnMessageOption(cb func(Message) error) Option {
	return func(o *options) {
		o.onMessage = cb
	}
}

// OnConnMessageOption is like OnMessageOption but also passes the receiving
// connection, which lets a handler shared by many connections reply.
func OnConnMessageOption(cb func(*Conn, Message) error) Option {
	return func(o *options) {
		o.onConnMessage = cb
	}
}

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// MetricsOption returns an Option that records connection traffic in m.
func MetricsOption(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
