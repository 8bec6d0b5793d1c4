// Package wire provides TCP connections that exchange length-framed,
// optionally compressed and encrypted packets.
// Packet bodies are described with the codecs in the component package, and
// each connection runs its read and write loops until either side fails.
package wire

import (
	"context"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Zereker/wire/cfb8"
	"github.com/Zereker/wire/pipeline"
	"github.com/Zereker/wire/transport"
)

// Errors returned by connection operations.
var (
	// ErrInvalidCodec is returned when no codec is provided.
	ErrInvalidCodec = errors.New("invalid codec callback")
	// ErrInvalidOnMessage is returned when no message handler is provided.
	ErrInvalidOnMessage = errors.New("invalid on message callback")
)

// ErrConnectionClosed is returned when operating on a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// Conn represents a framed connection over TCP.
// Inbound bytes flow through the frame reader, decompression and the codec;
// outbound messages take the reverse path and are queued for the write loop.
type Conn struct {
	rawConn *net.TCPConn
	logger  Logger

	reader  *transport.Reader[Message]
	writer  *transport.Writer[Message]
	encoder *pipeline.FrameEncoder
	decoder *pipeline.FrameDecoder

	opts options

	sendMsg chan []byte
	closed  atomic.Bool
	cancel  atomic.Pointer[context.CancelFunc]
}

// Default configuration values.
const (
	// defaultBufferSize is the default size of the message channel buffer.
	defaultBufferSize = 1
	// defaultHeartbeat is the default heartbeat interval.
	defaultHeartbeat = 30 * time.Second
)

// NewConn creates a new connection wrapper around the given TCP connection.
// It applies the provided options and validates them before returning.
// Returns an error if required options (codec, onMessage) are missing.
func NewConn(conn *net.TCPConn, opt ...Option) (*Conn, error) {
	var opts options
	for _, o := range opt {
		o(&opts)
	}

	err := checkOptions(&opts)
	if err != nil {
		return nil, err
	}

	return newClientConnWithOptions(conn, opts), nil
}

// checkOptions validates and sets default values for connection options.
func checkOptions(opts *options) error {
	if opts.bufferSize <= 0 {
		opts.bufferSize = defaultBufferSize
	}

	if opts.maxReadLength <= 0 {
		opts.maxReadLength = transport.DefaultMaxSize
	}

	if opts.maxDataLength <= 0 {
		opts.maxDataLength = pipeline.DefaultMaxDataLength
	}

	if !opts.compressionSet {
		opts.compressionThreshold = -1
	}

	if opts.onMessage == nil && opts.onConnMessage == nil {
		return ErrInvalidOnMessage
	}

	if opts.heartbeat <= 0 {
		opts.heartbeat = defaultHeartbeat
	}

	if opts.codec == nil {
		return ErrInvalidCodec
	}

	if opts.onError == nil {
		opts.onError = func(err error) ErrorAction { return Disconnect }
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	return nil
}

// newClientConnWithOptions creates a new Conn with the given options.
func newClientConnWithOptions(c *net.TCPConn, opts options) *Conn {
	encoder := pipeline.NewFrameEncoder(opts.compressionThreshold)
	decoder := pipeline.NewFrameDecoder(opts.compressionThreshold)
	decoder.MaxDataLength = opts.maxDataLength

	inbound := pipeline.Link[[]byte, []byte, Message](decoder, pipeline.Decoder[Message]{Codec: opts.codec})
	outbound := pipeline.Link[Message, []byte, []byte](
		pipeline.Link[Message, []byte, []byte](pipeline.Encoder[Message]{Codec: opts.codec}, encoder),
		pipeline.SizeAppender{},
	)

	cc := &Conn{
		rawConn: c,
		logger:  opts.logger,
		reader:  transport.NewReader[Message](countingReader{r: c, m: opts.metrics}, inbound, opts.maxReadLength),
		writer:  transport.NewWriter[Message](countingWriter{w: c, m: opts.metrics}, outbound),
		encoder: encoder,
		decoder: decoder,
		opts:    opts,
		sendMsg: make(chan []byte, opts.bufferSize),
	}
	if opts.onConnMessage != nil {
		cc.opts.onMessage = func(m Message) error { return opts.onConnMessage(cc, m) }
	}

	return cc
}

// Run starts the connection's read and write loops.
// It creates two goroutines for concurrent reading and writing,
// and blocks until an error occurs or the context is canceled.
// The connection is automatically closed when Run returns.
func (c *Conn) Run(ctx context.Context) error {
	c.logger.Info("connection established", "addr", c.Addr())
	c.logger.Debug("connection options", "addr", c.Addr(),
		"buffer_size", c.opts.bufferSize,
		"max_read_length", c.opts.maxReadLength,
		"compression_threshold", c.opts.compressionThreshold,
		"heartbeat", c.opts.heartbeat)

	c.opts.metrics.connOpened()
	defer c.opts.metrics.connClosed()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel.Store(&cancel)
	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		return c.readLoop(child)
	})

	group.Go(func() error {
		return c.writeLoop(child)
	})

	// closing the socket unblocks a read loop waiting in Read
	group.Go(func() error {
		<-child.Done()
		c.closeConn()
		return nil
	})

	err := group.Wait()
	c.closeConn()

	switch {
	case err == nil, errors.Is(err, context.Canceled):
		c.logger.Info("connection closed", "addr", c.Addr())
	case errors.Is(err, io.EOF):
		c.logger.Info("connection closed by peer", "addr", c.Addr())
	default:
		c.logger.Info("connection closed with error", "addr", c.Addr(), "error", err)
	}

	return err
}

// Close gracefully closes the connection.
// It cancels the context and closes the underlying TCP connection.
// Safe to call multiple times.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil // already closed
	}
	if cancel := c.cancel.Load(); cancel != nil {
		(*cancel)()
	}
	return c.rawConn.Close()
}

// IsClosed returns true if the connection has been closed.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// ErrBufferFull is returned when the send buffer is full and cannot accept more messages.
// This error indicates backpressure - the receiver is not consuming messages fast enough.
// Recommended handling strategies:
//   - Drop the message (for non-critical data like metrics)
//   - Use WriteBlocking or WriteTimeout to wait for buffer space
//   - Implement application-level flow control
var ErrBufferFull = errors.New("send buffer full")

// Write sends a message through the connection without blocking (fire-and-forget).
// The message is framed in the calling goroutine, so encoding errors are
// returned here, and the frame is queued for sending.
//
// Returns:
//   - nil: message was successfully queued (not yet sent)
//   - ErrBufferFull: send buffer is full, message was NOT queued
//   - ErrConnectionClosed: connection is closed
//   - encoding error: if the codec fails
//
// For guaranteed delivery, use WriteBlocking or WriteTimeout instead.
func (c *Conn) Write(message Message) error {
	frame, err := c.encode(message)
	if err != nil {
		return err
	}

	select {
	case c.sendMsg <- frame:
		return nil
	default:
		return ErrBufferFull
	}
}

// WriteBlocking sends a message through the connection, blocking until the message
// is queued or the context is canceled.
//
// Returns:
//   - nil: message was successfully queued
//   - context.Canceled or context.DeadlineExceeded: context was canceled
//   - ErrConnectionClosed: connection is closed
//   - encoding error: if the codec fails
func (c *Conn) WriteBlocking(ctx context.Context, message Message) error {
	frame, err := c.encode(message)
	if err != nil {
		return err
	}

	select {
	case c.sendMsg <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WriteTimeout sends a message through the connection with a timeout.
// This provides a middle ground between Write (non-blocking) and WriteBlocking.
//
// Returns:
//   - nil: message was successfully queued
//   - ErrBufferFull: timeout expired before message could be queued
//   - ErrConnectionClosed: connection is closed
//   - encoding error: if the codec fails
func (c *Conn) WriteTimeout(message Message, timeout time.Duration) error {
	frame, err := c.encode(message)
	if err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case c.sendMsg <- frame:
		return nil
	case <-timer.C:
		return ErrBufferFull
	}
}

func (c *Conn) encode(message Message) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}
	frame, err := c.writer.Encode(message)
	if err != nil {
		return nil, errors.Wrap(err, "encode message")
	}
	return frame, nil
}

// SetCompressionThreshold changes the compression threshold for both
// directions. Frames already queued keep the framing they were encoded with,
// so callers normally switch right after sending the packet that announces
// the change.
func (c *Conn) SetCompressionThreshold(threshold int) {
	c.encoder.SetThreshold(threshold)
	c.decoder.SetThreshold(threshold)
	c.logger.Debug("compression threshold changed", "addr", c.Addr(), "threshold", threshold)
}

// EnableEncryption switches both directions to AES/CFB8 with the given key
// and IV. It must be called from the message handler, which runs on the read
// goroutine, so no frame is decoded while the input is switched over.
func (c *Conn) EnableEncryption(key, iv []byte) error {
	enc, dec, err := cfb8.NewAES(key, iv)
	if err != nil {
		return err
	}
	c.reader.EnableDecryption(dec)
	c.writer.EnableEncryption(enc)
	c.opts.metrics.encryptionEnabled()
	c.logger.Debug("encryption enabled", "addr", c.Addr())
	return nil
}

// Addr returns the remote address of the connection.
func (c *Conn) Addr() net.Addr {
	return c.rawConn.RemoteAddr()
}

// readLoop continuously reads frames from the connection and hands the
// decoded messages to the message handler.
// Frames that fail to decode are passed to onError; any other read error ends
// the loop since the stream can no longer be trusted.
func (c *Conn) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			_ = c.rawConn.SetReadDeadline(time.Now().Add(c.opts.heartbeat * 2))

			message, err := c.reader.Next()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				var frameErr *transport.FrameError
				if !errors.As(err, &frameErr) {
					return err
				}

				c.opts.metrics.decodeFailed()
				c.logger.Debug("decode error", "addr", c.Addr(), "error", err)
				if c.opts.onError(err) == Disconnect {
					return err
				}
				continue
			}

			c.opts.metrics.frameIn()
			if err = c.opts.onMessage(message); err != nil {
				return err
			}
		}
	}
}

// writeLoop continuously sends frames from the send channel to the connection.
// Returns when the context is canceled or an unrecoverable error occurs.
func (c *Conn) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data := <-c.sendMsg:
			if err := c.write(data); err != nil {
				return err
			}
		}
	}
}

// write sends a frame to the connection with a deadline.
// If an error occurs and onError returns Disconnect, the error is propagated.
// Otherwise, the error is suppressed and writing continues.
func (c *Conn) write(data []byte) error {
	_ = c.rawConn.SetWriteDeadline(time.Now().Add(c.opts.heartbeat * 2))

	err := c.writer.WriteFrame(data)
	if err != nil {
		c.logger.Debug("write error", "addr", c.Addr(), "error", err)
		if c.opts.onError(err) == Disconnect {
			return err
		}
		return nil
	}

	c.opts.metrics.frameOut()
	return nil
}

// closeConn marks the connection as closed and closes the underlying TCP connection.
func (c *Conn) closeConn() {
	c.closed.Store(true)
	c.rawConn.Close()
}
