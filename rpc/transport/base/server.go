package base

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dorea/rpc/common"
	"github.com/ValentinKolb/dorea/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// connLimitMsg is sent to connections exceeding the configured limit
const connLimitMsg = "Connection limit reached."

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector IServerConnector
	factory   transport.SessionFactory
	mu        sync.Mutex
	listener  net.Listener
	closed    atomic.Bool

	nextID uint64
	conns  *xsync.MapOf[uint64, net.Conn]
	open   *xsync.Counter
	wg     sync.WaitGroup
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with one goroutine per connection
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{
		connector: connector,
		conns:     xsync.NewMapOf[uint64, net.Conn](),
		open:      xsync.NewCounter(),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(factory transport.SessionFactory) {
	t.factory = factory
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	return t.Serve(listener, config)
}

func (t *serverTransport) Serve(listener net.Listener, config common.ServerConfig) error {
	if t.factory == nil {
		listener.Close()
		return errors.New("no session handler registered")
	}

	t.mu.Lock()
	t.listener = listener
	t.mu.Unlock()

	if t.closed.Load() {
		return listener.Close()
	}

	Logger.Infof("Starting %s server on %s (max %d connections)",
		t.connector.GetName(), listener.Addr(), config.MaxConnectNumber)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		if err := t.connector.UpgradeConnection(conn, config); err != nil {
			Logger.Warningf("Failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
		}

		if config.MaxConnectNumber > 0 && t.open.Value() >= int64(config.MaxConnectNumber) {
			Logger.Warningf("Rejecting connection from %s: limit of %d reached", conn.RemoteAddr(), config.MaxConnectNumber)
			_ = WriteFrame(conn, common.StateErr, []byte(connLimitMsg))
			conn.Close()
			continue
		}

		id := atomic.AddUint64(&t.nextID, 1)
		t.conns.Store(id, conn)
		t.open.Inc()
		t.wg.Add(1)

		go func() {
			defer func() {
				t.conns.Delete(id)
				t.open.Dec()
				t.wg.Done()
			}()
			t.handleConnection(conn, config)
		}()
	}
}

func (t *serverTransport) Connections() int {
	return int(t.open.Value())
}

func (t *serverTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	t.mu.Lock()
	listener := t.listener
	t.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}

	t.conns.Range(func(_ uint64, conn net.Conn) bool {
		conn.Close()
		return true
	})
	t.wg.Wait()

	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection serves the requests of one connection strictly in order
func (t *serverTransport) handleConnection(conn net.Conn, config common.ServerConfig) {
	defer conn.Close()

	remote := conn.RemoteAddr()
	session := t.factory(remote)
	defer session.Close()

	Logger.Debugf("Connection from %s opened", remote)

	timeout := time.Duration(config.TimeoutSecond) * time.Second
	decoder := NewDecoder(conn)

	for {
		if timeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Failed to set read deadline: %v", err)
				return
			}
		}

		request, err := decoder.ReadCommand()

		var protoErr *ProtocolError
		switch {
		case err == nil:
		case errors.As(err, &protoErr):
			Logger.Debugf("Malformed frame from %s: %v", remote, err)
			if err := t.reply(conn, timeout, common.StateErr, []byte(protoErr.Error())); err != nil {
				Logger.Errorf("Failed to write response to %s: %v", remote, err)
				return
			}
			continue
		case errors.Is(err, io.EOF):
			Logger.Debugf("Connection closed by client %s", remote)
			return
		default:
			if !t.closed.Load() {
				Logger.Warningf("Error reading from %s: %v", remote, err)
			}
			return
		}

		start := time.Now()
		state, body := session.Handle(request)
		Logger.Debugf("Processed request from %s in %s", remote, time.Since(start))

		// empty replies end the session without a further frame
		if state == common.StateEmpty {
			Logger.Debugf("Session of %s ended", remote)
			return
		}

		if err := t.reply(conn, timeout, state, body); err != nil {
			Logger.Errorf("Failed to write response to %s: %v", remote, err)
			return
		}
	}
}

func (t *serverTransport) reply(conn net.Conn, timeout time.Duration, state common.State, body []byte) error {
	if timeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	return WriteFrame(conn, state, body)
}
