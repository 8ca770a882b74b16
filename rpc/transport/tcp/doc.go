// Package tcp implements the TCP socket transport of the Dorea server and
// client. It provides the connectors plugged into the base package, which
// holds the frame codec and the connection handling.
//
// Accepted connections get TCP_NODELAY and keep-alive enabled. The server
// listens on 0.0.0.0:3450 unless configured otherwise.
package tcp
