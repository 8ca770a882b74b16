package base

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/dorea/rpc/common"
	"github.com/ValentinKolb/dorea/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/rpc")

// ErrClosed is returned when a closed client transport is used
var ErrClosed = errors.New("transport is closed")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport holds one connection and sends requests strictly one after
// another, since the protocol carries no request ids
type clientTransport struct {
	connector IClientConnector
	config    common.ClientConfig
	hook      transport.ConnectHook

	mu      sync.Mutex
	conn    net.Conn
	decoder *Decoder
	closed  bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{connector: connector}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig, hook transport.ConnectHook) error {
	if config.Endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.config = config
	t.hook = hook
	t.closed = false
	t.dropLocked()

	if err := t.reconnectLocked(); err != nil {
		return err
	}

	Logger.Infof("Connected to %s using %s transport", config.Endpoint, t.connector.GetName())
	return nil
}

func (t *clientTransport) Send(request []byte) (common.State, []byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, nil, ErrClosed
	}

	// We always try at least once
	maxRetries := t.config.RetryCount
	if maxRetries < 1 {
		maxRetries = 1
	}

	// Initial backoff duration in milliseconds
	backoffMs := 50

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if t.conn == nil {
			lastErr = t.reconnectLocked()
		}

		if t.conn != nil {
			state, body, err := t.roundTripLocked(request)
			if err == nil {
				return state, body, nil
			}
			lastErr = err
			t.dropLocked()
		}

		Logger.Debugf("Request attempt %d/%d failed: %v", i+1, maxRetries, lastErr)

		if i < maxRetries-1 {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			time.Sleep(time.Duration(jitter) * time.Millisecond)
			backoffMs *= 2
		}
	}

	return 0, nil, fmt.Errorf("failed to send request after %d attempts: %w", maxRetries, lastErr)
}

func (t *clientTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	if t.conn == nil {
		return nil
	}

	// an empty frame ends the session on the server
	t.setDeadline()
	_ = WriteFrame(t.conn, common.StateEmpty, nil)
	err := t.conn.Close()
	t.conn = nil
	t.decoder = nil
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *clientTransport) timeout() time.Duration {
	return time.Duration(t.config.TimeoutSecond) * time.Second
}

func (t *clientTransport) setDeadline() {
	if timeout := t.timeout(); timeout > 0 {
		t.conn.SetDeadline(time.Now().Add(timeout))
	}
}

// roundTripLocked writes one request and reads its reply
func (t *clientTransport) roundTripLocked(request []byte) (common.State, []byte, error) {
	t.setDeadline()

	if err := WriteFrame(t.conn, common.StateOK, request); err != nil {
		return 0, nil, fmt.Errorf("write request: %w", err)
	}

	frame, err := t.decoder.ReadFrame()
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return frame.State, frame.Body, nil
}

// reconnectLocked establishes a new connection and replays the connect hook
func (t *clientTransport) reconnectLocked() error {
	t.dropLocked()

	conn, err := t.connector.Connect(t.config.Endpoint, t.timeout())
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", t.config.Endpoint, err)
	}

	t.conn = conn
	t.decoder = NewDecoder(conn)

	if t.hook != nil {
		if err := t.hook(t.roundTripLocked); err != nil {
			t.dropLocked()
			return err
		}
	}
	return nil
}

// dropLocked closes the current connection without ending the session politely
func (t *clientTransport) dropLocked() {
	if t.conn != nil {
		t.conn.Close()
	}
	t.conn = nil
	t.decoder = nil
}
