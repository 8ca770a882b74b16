package client

import (
	"context"
	"errors"
	"net"
	"sort"
	"sync"
	"testing"

	"github.com/ValentinKolb/dorea/lib/store"
	"github.com/ValentinKolb/dorea/lib/value"
	"github.com/ValentinKolb/dorea/rpc/common"
	"github.com/ValentinKolb/dorea/rpc/serializer"
	"github.com/ValentinKolb/dorea/rpc/server"
	"github.com/ValentinKolb/dorea/rpc/transport/tcp"
)

// startServer runs a server on a loopback port and returns a client config for it
func startServer(t *testing.T, mutate func(cfg *common.ServerConfig)) common.ClientConfig {
	t.Helper()

	cfg := common.DefaultServerConfig()
	cfg.DataDir = t.TempDir()
	cfg.Endpoint = "127.0.0.1:0"
	if mutate != nil {
		mutate(&cfg)
	}

	style, err := serializer.New(cfg.ValueStyle)
	if err != nil {
		t.Fatal(err)
	}
	s, err := server.NewRPCServer(cfg, tcp.NewTCPServerTransport(), style)
	if err != nil {
		t.Fatalf("NewRPCServer: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- s.ServeListener(listener) }()

	t.Cleanup(func() {
		s.Close()
		<-done
	})

	return common.ClientConfig{
		Endpoint:      listener.Addr().String(),
		Transport:     "tcp",
		Password:      cfg.Password,
		TimeoutSecond: 5,
		RetryCount:    2,
		PoolSize:      4,
	}
}

func newClient(t *testing.T, config common.ClientConfig) *Client {
	t.Helper()
	style, _ := serializer.New("doson")
	c, err := NewClient(config, tcp.NewTCPClientTransport(), style)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// --------------------------------------------------------------------------
// Client tests
// --------------------------------------------------------------------------

func TestClientCommands(t *testing.T) {
	c := newClient(t, startServer(t, nil))

	if err := c.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}

	t.Run("SetGet", func(t *testing.T) {
		want := value.List{value.String("dorea"), value.Tuple{value.Integer(1), value.Float(2.5)}, value.Boolean(true)}
		if err := c.Set("doc", want, 0); err != nil {
			t.Fatalf("set: %v", err)
		}
		got, found, err := c.Get("doc")
		if err != nil || !found {
			t.Fatalf("get: found=%v err=%v", found, err)
		}
		if !value.Equal(got, want) {
			t.Errorf("expected %s, got %s", value.Encode(want), value.Encode(got))
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, found, err := c.Get("missing")
		if err != nil || found {
			t.Errorf("expected not found without error, got found=%v err=%v", found, err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		c.Set("tmp", value.Integer(1), 0)
		if err := c.Delete("tmp"); err != nil {
			t.Fatal(err)
		}
		if _, found, _ := c.Get("tmp"); found {
			t.Error("key still present after delete")
		}
	})

	t.Run("Search", func(t *testing.T) {
		c.Set("user:1", value.Integer(1), 0)
		c.Set("user:2", value.Integer(2), 0)
		keys, err := c.Search("user:*")
		if err != nil {
			t.Fatal(err)
		}
		sort.Strings(keys)
		if len(keys) != 2 || keys[0] != "user:1" || keys[1] != "user:2" {
			t.Errorf("unexpected keys %v", keys)
		}
	})

	t.Run("Edit", func(t *testing.T) {
		c.Set("counter", value.Integer(1), 0)
		if _, err := c.Edit("counter", "incr", "4"); err != nil {
			t.Fatal(err)
		}
		got, _, _ := c.Get("counter")
		if !value.Equal(got, value.Integer(5)) {
			t.Errorf("expected Integer(5), got %s", value.Encode(got))
		}
	})

	t.Run("Echo", func(t *testing.T) {
		got, err := c.Echo("hello")
		if err != nil || got != "hello" {
			t.Errorf("expected hello, got %q (%v)", got, err)
		}
	})

	t.Run("Info", func(t *testing.T) {
		got, err := c.Info("version")
		if err != nil || got != "V"+common.Version {
			t.Errorf("expected V%s, got %q (%v)", common.Version, got, err)
		}
	})

	t.Run("ErrorReply", func(t *testing.T) {
		_, err := c.Edit("counter", "explode")
		var respErr *ResponseError
		if !errors.As(err, &respErr) || respErr.State != common.StateErr {
			t.Errorf("expected an ERR reply, got %v", err)
		}
	})
}

func TestClientSelect(t *testing.T) {
	config := startServer(t, func(cfg *common.ServerConfig) { cfg.PreloadGroups = []string{"default", "users"} })
	c := newClient(t, config)

	if err := c.Select("users"); err != nil {
		t.Fatal(err)
	}
	if c.Group() != "users" {
		t.Errorf("expected group users, got %q", c.Group())
	}
	c.Set("alice", value.Integer(1), 0)

	// a client configured with a group starts in it
	config.Group = "users"
	other := newClient(t, config)
	if _, found, _ := other.Get("alice"); !found {
		t.Error("expected key in the configured group")
	}

	if _, found, _ := newClient(t, common.ClientConfig{
		Endpoint: config.Endpoint, Transport: "tcp", TimeoutSecond: 5,
	}).Get("alice"); found {
		t.Error("expected key to be absent from the default group")
	}
}

func TestClientAuth(t *testing.T) {
	config := startServer(t, func(cfg *common.ServerConfig) { cfg.Password = "secret" })

	t.Run("Authenticated", func(t *testing.T) {
		if err := newClient(t, config).Ping(); err != nil {
			t.Errorf("ping: %v", err)
		}
	})

	t.Run("NoPassword", func(t *testing.T) {
		config := config
		config.Password = ""
		err := newClient(t, config).Ping()
		var respErr *ResponseError
		if !errors.As(err, &respErr) || !respErr.IsNoAuth() {
			t.Errorf("expected NOAUTH, got %v", err)
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		config := config
		config.Password = "wrong"
		config.RetryCount = 0
		style, _ := serializer.New("doson")
		if _, err := NewClient(config, tcp.NewTCPClientTransport(), style); err == nil {
			t.Error("expected connect to fail")
		}
	})
}

func TestRPCStore(t *testing.T) {
	config := startServer(t, nil)
	style, _ := serializer.New("doson")
	s, err := NewRPCStore(config, tcp.NewTCPClientTransport(), style)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Set("a", value.String("x"), 0); err != nil {
		t.Fatal(err)
	}
	if ok, err := s.Has("a"); err != nil || !ok {
		t.Errorf("expected a to exist, got %v (%v)", ok, err)
	}
	if ok, err := s.Has("b"); err != nil || ok {
		t.Errorf("expected b to be missing, got %v (%v)", ok, err)
	}

	if err := s.Select("does/not/work"); !store.IsCode(err, store.RetCGroupNotFound) {
		t.Errorf("expected GroupNotFound, got %v", err)
	}

	if err := s.Clean(); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := s.Get("a"); found {
		t.Error("expected a to be removed by clean")
	}
}

func TestPool(t *testing.T) {
	config := startServer(t, nil)
	style, _ := serializer.New("doson")
	ctx := context.Background()

	p := NewPool(ctx, config, style)
	defer p.Close(ctx)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- p.Do(ctx, func(c *Client) error {
				return c.Set("k", value.Integer(i), 0)
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("pooled set: %v", err)
		}
	}
	if p.Active() != 0 {
		t.Errorf("expected no borrowed clients, got %d", p.Active())
	}

	err := p.Do(ctx, func(c *Client) error {
		_, found, err := c.Get("k")
		if err == nil && !found {
			return errors.New("k not found")
		}
		return err
	})
	if err != nil {
		t.Error(err)
	}
}

func TestNewTransport(t *testing.T) {
	for _, name := range []string{"", "tcp", "TCP", "unix"} {
		if _, err := NewTransport(name); err != nil {
			t.Errorf("%q: %v", name, err)
		}
	}
	if _, err := NewTransport("http"); err == nil {
		t.Error("expected error for unknown transport")
	}
}
