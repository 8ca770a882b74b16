package unix

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/dorea/rpc/common"
	"github.com/ValentinKolb/dorea/rpc/transport"
)

type upperSession struct{}

func (upperSession) Handle(request string) (common.State, []byte) {
	return common.StateOK, []byte("got " + request)
}

func (upperSession) Close() {}

func TestUnixRoundTrip(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "dorea.sock")

	// a stale file at the socket path is replaced
	if err := os.WriteFile(socket, []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := common.DefaultServerConfig()
	cfg.Endpoint = socket

	srv := NewUnixServerTransport()
	srv.RegisterHandler(func(net.Addr) transport.ISession { return upperSession{} })

	done := make(chan error, 1)
	go func() { done <- srv.Listen(cfg) }()
	defer func() {
		srv.Close()
		<-done
	}()

	cli := NewUnixClientTransport()
	clientCfg := common.ClientConfig{Endpoint: socket, TimeoutSecond: 2, RetryCount: 1}

	// the listener starts asynchronously
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := cli.Connect(clientCfg, nil)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("connect: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	defer cli.Close()

	state, body, err := cli.Send([]byte("PING"))
	if err != nil {
		t.Fatal(err)
	}
	if state != common.StateOK || string(body) != "got PING" {
		t.Errorf("unexpected reply %s %q", state, body)
	}
}
