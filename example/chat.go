package main

import (
	"context"
	"flag"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Zereker/wire"
	"github.com/Zereker/wire/component"
	"github.com/Zereker/wire/nbt"
)

const compressionThreshold = 256

// login is sent once by each client. The server answers with
// setCompression and then switches both directions to compressed framing.
type login struct {
	Name    string
	Profile nbt.Compound
}

func (login) PacketID() int32 { return 0 }

type chat struct {
	From string
	Text string
}

func (chat) PacketID() int32 { return 1 }

type setCompression struct {
	Threshold int32
}

func (setCompression) PacketID() int32 { return 2 }

type loginCodec struct {
	profile component.NBT
}

func (c loginCodec) Decode(ctx *component.Context, r io.Reader) (wire.Message, error) {
	var (
		l   login
		err error
	)
	if l.Name, err = (component.String{MaxChars: 16}).Decode(ctx, r); err != nil {
		return nil, err
	}
	l.Profile, err = c.profile.Decode(ctx, r)
	return l, err
}

func (c loginCodec) Encode(m wire.Message, ctx *component.Context, w io.Writer) error {
	l := m.(login)
	if err := (component.String{MaxChars: 16}).Encode(l.Name, ctx, w); err != nil {
		return err
	}
	return c.profile.Encode(l.Profile, ctx, w)
}

func (c loginCodec) Size(m wire.Message, ctx *component.Context) (component.Size, error) {
	l := m.(login)
	name, err := (component.String{MaxChars: 16}).Size(l.Name, ctx)
	if err != nil {
		return name, err
	}
	profile, err := c.profile.Size(l.Profile, ctx)
	return name.Add(profile), err
}

type chatCodec struct{}

func (chatCodec) Decode(ctx *component.Context, r io.Reader) (wire.Message, error) {
	var (
		c   chat
		err error
	)
	if c.From, err = (component.String{MaxChars: 16}).Decode(ctx, r); err != nil {
		return nil, err
	}
	c.Text, err = (component.String{MaxChars: 256}).Decode(ctx, r)
	return c, err
}

func (chatCodec) Encode(m wire.Message, ctx *component.Context, w io.Writer) error {
	c := m.(chat)
	if err := (component.String{MaxChars: 16}).Encode(c.From, ctx, w); err != nil {
		return err
	}
	return (component.String{MaxChars: 256}).Encode(c.Text, ctx, w)
}

func (chatCodec) Size(m wire.Message, ctx *component.Context) (component.Size, error) {
	c := m.(chat)
	from, _ := (component.String{}).Size(c.From, ctx)
	text, _ := (component.String{}).Size(c.Text, ctx)
	return from.Add(text), nil
}

func codec(cfg wire.Config) wire.Codec {
	return wire.Packets(map[int32]wire.Codec{
		0: loginCodec{profile: cfg.NBT()},
		1: chatCodec{},
		2: component.Mapped[int32, wire.Message]{
			Codec: component.VarInt{},
			To:    func(n int32) (wire.Message, error) { return setCompression{Threshold: n}, nil },
			From:  func(m wire.Message) int32 { return m.(setCompression).Threshold },
		},
	})
}

// Server relays chat lines between logged in connections.
type Server struct {
	logger wire.Logger

	sync.RWMutex
	names map[*wire.Conn]string
}

func newServer(logger wire.Logger) *Server {
	return &Server{logger: logger, names: make(map[*wire.Conn]string)}
}

func (s *Server) Handle(ctx context.Context, conn *wire.Conn) {
	_ = conn.Run(ctx)

	s.Lock()
	delete(s.names, conn)
	s.Unlock()
}

func (s *Server) onMessage(conn *wire.Conn, m wire.Message) error {
	switch m := m.(type) {
	case login:
		s.Lock()
		s.names[conn] = m.Name
		s.Unlock()
		s.logger.Info("player logged in", "name", m.Name, "addr", conn.Addr(), "profile_keys", len(m.Profile))

		if err := conn.Write(setCompression{Threshold: compressionThreshold}); err != nil {
			return err
		}
		conn.SetCompressionThreshold(compressionThreshold)
		return nil
	case chat:
		s.RLock()
		from, ok := s.names[conn]
		peers := make([]*wire.Conn, 0, len(s.names))
		for c := range s.names {
			peers = append(peers, c)
		}
		s.RUnlock()
		if !ok {
			return nil
		}

		for _, peer := range peers {
			// slow peers drop lines rather than stall the sender
			if err := peer.Write(chat{From: from, Text: m.Text}); err != nil {
				s.logger.Warn("dropped chat line", "addr", peer.Addr(), "error", err)
			}
		}
		return nil
	default:
		return nil
	}
}

func main() {
	listen := flag.String("listen", "127.0.0.1:12345", "address to accept connections on")
	metricsAddr := flag.String("metrics", "127.0.0.1:9100", "address to serve /metrics on, empty to disable")
	configPath := flag.String("config", "", "optional TOML or YAML config file")
	flag.Parse()

	logger := wire.ZerologLogger(zerolog.New(os.Stderr).With().Timestamp().Logger())

	cfg := wire.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = wire.LoadConfig(*configPath); err != nil {
			logger.Error("failed to load config", "error", err)
			return
		}
	}
	// the handshake turns compression on, so connections start without it
	cfg.CompressionThreshold = -1

	addr, err := net.ResolveTCPAddr("tcp", *listen)
	if err != nil {
		logger.Error("failed to resolve address", "error", err)
		return
	}

	metrics := wire.NewMetrics(prometheus.DefaultRegisterer, "chat")
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	handler := newServer(logger)
	connOpts := append(cfg.Options(),
		wire.CodecOption(codec(cfg)),
		wire.OnConnMessageOption(handler.onMessage),
		wire.OnErrorOption(func(err error) wire.ErrorAction {
			logger.Debug("dropping bad frame", "error", err)
			return wire.Continue
		}),
		wire.LoggerOption(logger),
		wire.MetricsOption(metrics),
	)

	server, err := wire.New(addr, wire.ServerLoggerOption(logger), wire.ServerConnOptions(connOpts...))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		return
	}

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down server...")
		cancel()
	}()

	if err := server.Serve(ctx, handler); err != nil && err != context.Canceled {
		logger.Error("server error", "error", err)
	}
}
