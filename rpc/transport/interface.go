package transport

import (
	"net"

	"github.com/ValentinKolb/dorea/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ISession processes the requests of a single connection. A session is
// owned by the goroutine serving its connection and never shared.
type ISession interface {
	// Handle processes one request and returns the reply.
	// A reply with common.StateEmpty ends the connection without being sent.
	Handle(request string) (state common.State, body []byte)
	// Close releases the session when its connection ends.
	Close()
}

// SessionFactory creates the session for a newly accepted connection
type SessionFactory func(remote net.Addr) ISession

// IRPCServerTransport is the interface for the server side of the transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers the factory used to create one session per connection
	RegisterHandler(factory SessionFactory)
	// Listen creates a listener for the configured endpoint and serves it until Close is called
	Listen(config common.ServerConfig) error
	// Serve accepts connections on an existing listener until Close is called
	Serve(listener net.Listener, config common.ServerConfig) error
	// Connections returns the number of open connections
	Connections() int
	// Close stops accepting connections and closes all open connections
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// RoundTrip sends a request on a connection and returns the reply
type RoundTrip func(request []byte) (state common.State, body []byte, err error)

// ConnectHook runs on every new connection before it is used, e.g. to
// authenticate and select the group again after a reconnect
type ConnectHook func(roundTrip RoundTrip) error

// IRPCClientTransport is the interface for the client side of the transport layer.
// A client transport holds one session, requests are sent strictly one after another.
type IRPCClientTransport interface {
	// Connect establishes the connection and runs the hook (optional)
	Connect(config common.ClientConfig, hook ConnectHook) error
	// Send sends a request and returns the reply
	Send(request []byte) (state common.State, body []byte, err error)
	// Close ends the session and closes the connection
	Close() error
}
