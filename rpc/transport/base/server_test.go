package base

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dorea/rpc/common"
	"github.com/ValentinKolb/dorea/rpc/transport"
)

// --------------------------------------------------------------------------
// Test helpers
// --------------------------------------------------------------------------

type loopbackConnector struct{}

func (loopbackConnector) GetName() string { return "loopback" }

func (loopbackConnector) Listen(common.ServerConfig) (net.Listener, error) {
	return net.Listen("tcp", "127.0.0.1:0")
}

func (loopbackConnector) UpgradeConnection(net.Conn, common.ServerConfig) error { return nil }

func (loopbackConnector) Connect(endpoint string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", endpoint, timeout)
}

// echoSession answers every request with "echo:<request>"
type echoSession struct {
	closed *atomic.Int32
}

func (s *echoSession) Handle(request string) (common.State, []byte) {
	switch {
	case strings.TrimSpace(request) == "":
		return common.StateEmpty, nil
	case request == "FAIL":
		return common.StateErr, []byte("failed")
	}
	return common.StateOK, []byte("echo:" + request)
}

func (s *echoSession) Close() {
	s.closed.Add(1)
}

func startServer(t *testing.T, mutate func(cfg *common.ServerConfig)) (transport.IRPCServerTransport, string, *atomic.Int32) {
	t.Helper()

	cfg := common.DefaultServerConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	listener, err := loopbackConnector{}.Listen(cfg)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	closed := &atomic.Int32{}
	server := NewBaseServerTransport(loopbackConnector{})
	server.RegisterHandler(func(net.Addr) transport.ISession {
		return &echoSession{closed: closed}
	})

	done := make(chan error, 1)
	go func() { done <- server.Serve(listener, cfg) }()

	t.Cleanup(func() {
		server.Close()
		if err := <-done; err != nil {
			t.Errorf("serve returned %v", err)
		}
	})

	return server, listener.Addr().String(), closed
}

func dialRaw(t *testing.T, addr string) (net.Conn, *Decoder) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	t.Cleanup(func() { conn.Close() })
	return conn, NewDecoder(conn)
}

func expectFrame(t *testing.T, dec *Decoder, state common.State, body string) {
	t.Helper()
	frame, err := dec.ReadFrame()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if frame.State != state || string(frame.Body) != body {
		t.Errorf("expected %s %q, got %s %q", state, body, frame.State, frame.Body)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// --------------------------------------------------------------------------
// Server tests
// --------------------------------------------------------------------------

func TestServerRequests(t *testing.T) {
	_, addr, _ := startServer(t, nil)
	conn, dec := dialRaw(t, addr)

	t.Run("Single", func(t *testing.T) {
		WriteFrame(conn, common.StateOK, []byte("PING"))
		expectFrame(t, dec, common.StateOK, "echo:PING")
	})

	t.Run("Error", func(t *testing.T) {
		WriteFrame(conn, common.StateOK, []byte("FAIL"))
		expectFrame(t, dec, common.StateErr, "failed")
	})

	t.Run("Pipelined", func(t *testing.T) {
		var batch []byte
		for _, req := range []string{"a", "b", "c"} {
			batch = append(batch, EncodeFrame(common.StateOK, []byte(req))...)
		}
		conn.Write(batch)
		for _, req := range []string{"a", "b", "c"} {
			expectFrame(t, dec, common.StateOK, "echo:"+req)
		}
	})

	t.Run("MalformedFrame", func(t *testing.T) {
		conn.Write([]byte("$: abc | %: OK | #: x;"))
		frame, err := dec.ReadFrame()
		if err != nil {
			t.Fatal(err)
		}
		if frame.State != common.StateErr {
			t.Errorf("expected ERR for a malformed frame, got %s", frame.State)
		}

		// the session survives
		WriteFrame(conn, common.StateOK, []byte("still there"))
		expectFrame(t, dec, common.StateOK, "echo:still there")
	})

	t.Run("MalformedLongFrame", func(t *testing.T) {
		batch := []byte("$: abc | %: OK | #: B64'" + strings.Repeat("QUJD", 1500) + "';")
		batch = append(batch, EncodeFrame(common.StateOK, []byte("next"))...)
		conn.Write(batch)

		frame, err := dec.ReadFrame()
		if err != nil {
			t.Fatal(err)
		}
		if frame.State != common.StateErr {
			t.Errorf("expected ERR for a malformed frame, got %s", frame.State)
		}
		expectFrame(t, dec, common.StateOK, "echo:next")
	})
}

func TestServerEmptyRequestEndsSession(t *testing.T) {
	_, addr, closed := startServer(t, nil)
	conn, dec := dialRaw(t, addr)

	WriteFrame(conn, common.StateOK, []byte("\n"))
	if _, err := dec.ReadFrame(); !errors.Is(err, io.EOF) {
		t.Errorf("expected the connection to be closed, got %v", err)
	}
	waitFor(t, func() bool { return closed.Load() == 1 })
}

func TestServerConnectionLimit(t *testing.T) {
	server, addr, _ := startServer(t, func(cfg *common.ServerConfig) {
		cfg.MaxConnectNumber = 1
	})

	first, firstDec := dialRaw(t, addr)
	WriteFrame(first, common.StateOK, []byte("hello"))
	expectFrame(t, firstDec, common.StateOK, "echo:hello")

	_, secondDec := dialRaw(t, addr)
	expectFrame(t, secondDec, common.StateErr, connLimitMsg)
	if _, err := secondDec.ReadFrame(); !errors.Is(err, io.EOF) {
		t.Errorf("expected rejected connection to be closed, got %v", err)
	}

	// a slot frees up once the first connection is gone
	first.Close()
	waitFor(t, func() bool { return server.Connections() == 0 })

	third, thirdDec := dialRaw(t, addr)
	WriteFrame(third, common.StateOK, []byte("again"))
	expectFrame(t, thirdDec, common.StateOK, "echo:again")
}

func TestServerClose(t *testing.T) {
	server, addr, closed := startServer(t, nil)
	_, dec := dialRaw(t, addr)
	waitFor(t, func() bool { return server.Connections() == 1 })

	if err := server.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := dec.ReadFrame(); err == nil {
		t.Error("expected open connections to be closed")
	}
	if closed.Load() != 1 {
		t.Errorf("expected session to be closed, got %d", closed.Load())
	}
}

// --------------------------------------------------------------------------
// Client tests
// --------------------------------------------------------------------------

func TestClientTransport(t *testing.T) {
	_, addr, closed := startServer(t, nil)

	var hookCalls atomic.Int32
	client := NewBaseClientTransport(loopbackConnector{})
	err := client.Connect(common.ClientConfig{Endpoint: addr, TimeoutSecond: 5, RetryCount: 3},
		func(roundTrip transport.RoundTrip) error {
			hookCalls.Add(1)
			state, body, err := roundTrip([]byte("AUTH secret"))
			if err != nil {
				return err
			}
			if state != common.StateOK || string(body) != "echo:AUTH secret" {
				return errors.New("unexpected hook reply")
			}
			return nil
		})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	state, body, err := client.Send([]byte("GET a"))
	if err != nil {
		t.Fatal(err)
	}
	if state != common.StateOK || string(body) != "echo:GET a" {
		t.Errorf("unexpected reply %s %q", state, body)
	}

	large := strings.Repeat("x", 10_000)
	_, body, err = client.Send([]byte(large))
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "echo:"+large {
		t.Errorf("large reply mismatch (%d bytes)", len(body))
	}

	if hookCalls.Load() != 1 {
		t.Errorf("expected hook to run once, ran %d times", hookCalls.Load())
	}

	if err := client.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	waitFor(t, func() bool { return closed.Load() == 1 })

	if _, _, err := client.Send([]byte("PING")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestClientReconnect(t *testing.T) {
	server, addr, _ := startServer(t, nil)

	var hookCalls atomic.Int32
	client := NewBaseClientTransport(loopbackConnector{})
	err := client.Connect(common.ClientConfig{Endpoint: addr, TimeoutSecond: 5, RetryCount: 3},
		func(transport.RoundTrip) error {
			hookCalls.Add(1)
			return nil
		})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	// the server drops the connection after an empty request
	if _, _, err := client.Send([]byte("")); err == nil {
		t.Error("expected an empty request to end the session")
	}
	waitFor(t, func() bool { return server.Connections() == 0 })

	_, body, err := client.Send([]byte("PING"))
	if err != nil {
		t.Fatalf("expected reconnect to succeed: %v", err)
	}
	if string(body) != "echo:PING" {
		t.Errorf("unexpected reply %q", body)
	}
	if hookCalls.Load() < 2 {
		t.Errorf("expected hook to run again after reconnect, ran %d times", hookCalls.Load())
	}
}

func TestClientConnectFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := listener.Addr().String()
	listener.Close()

	client := NewBaseClientTransport(loopbackConnector{})
	if err := client.Connect(common.ClientConfig{Endpoint: addr, TimeoutSecond: 1}, nil); err == nil {
		t.Error("expected connect to a closed port to fail")
	}
	if err := client.Connect(common.ClientConfig{}, nil); err == nil {
		t.Error("expected missing endpoint to fail")
	}
}
