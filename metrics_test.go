package wire

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics

	// none of these may panic
	m.frameIn()
	m.frameOut()
	m.decodeFailed()
	m.encryptionEnabled()
	m.connOpened()
	m.connClosed()

	var buf bytes.Buffer
	if _, err := (countingWriter{w: &buf, m: m}).Write([]byte("abc")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg, "wire")

	n, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("GatherAndCount failed: %v", err)
	}
	if n != 7 {
		t.Errorf("registered %d metrics, want 7", n)
	}
}

func TestMetrics_Counting(t *testing.T) {
	m := NewMetrics(nil, "wire")

	var buf bytes.Buffer
	w := countingWriter{w: &buf, m: m}
	w.Write([]byte("hello"))
	w.Write([]byte("!"))

	r := countingReader{r: &buf, m: m}
	p := make([]byte, 4)
	r.Read(p)

	if got := testutil.ToFloat64(m.bytesOut); got != 6 {
		t.Errorf("bytesOut = %v, want 6", got)
	}
	if got := testutil.ToFloat64(m.bytesIn); got != 4 {
		t.Errorf("bytesIn = %v, want 4", got)
	}
}

func TestMetrics_Conn(t *testing.T) {
	serverConn, clientConn := createTestTCPPair(t)
	defer clientConn.Close()

	m := NewMetrics(prometheus.NewRegistry(), "wire")
	received := make(chan struct{}, 2)
	conn, err := NewConn(serverConn,
		CodecOption(testCodec()),
		OnConnMessageOption(func(c *Conn, msg Message) error {
			received <- struct{}{}
			return c.Write(msg)
		}),
		OnErrorOption(func(err error) ErrorAction { return Continue }),
		MetricsOption(m),
		HeartbeatOption(5*time.Second),
	)
	if err != nil {
		t.Fatalf("NewConn failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := runConn(t, conn, ctx)

	client := newPeer(clientConn, -1)
	if _, err := clientConn.Write([]byte{1, 9}); err != nil {
		t.Fatalf("client write failed: %v", err)
	}
	if err := client.w.Write(textMessage{Text: "count me"}); err != nil {
		t.Fatalf("client write failed: %v", err)
	}

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}

	clientConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := client.r.Next(); err != nil {
		t.Fatalf("client read failed: %v", err)
	}

	if got := testutil.ToFloat64(m.active); got != 1 {
		t.Errorf("active = %v, want 1", got)
	}

	cancel()
	waitDone(t, done)

	// frame {1, 9} plus "count me" framed as 1 + 1 + 1 + 8 bytes
	checks := map[string]struct {
		c    prometheus.Collector
		want float64
	}{
		"frames in":     {m.framesIn, 1},
		"frames out":    {m.framesOut, 1},
		"decode errors": {m.decodeErrors, 1},
		"bytes in":      {m.bytesIn, 13},
		"bytes out":     {m.bytesOut, 11},
		"active":        {m.active, 0},
	}
	for name, c := range checks {
		if got := testutil.ToFloat64(c.c); got != c.want {
			t.Errorf("%s = %v, want %v", name, got, c.want)
		}
	}
}
