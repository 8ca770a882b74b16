// Package transport defines the interfaces for the network communication of
// the Dorea server. It provides a common contract for all transport
// implementations, so server and client do not depend on the network medium.
//
// Key Components:
//
//   - IRPCServerTransport: accepts connections and serves every connection
//     with its own ISession, created by the registered SessionFactory.
//
//   - ISession: the per-connection request handler. A session is owned by
//     the goroutine serving its connection and handles one request at a time.
//
//   - IRPCClientTransport: holds a single session to the server. The
//     ConnectHook runs after every (re)connect to restore session state.
package transport
