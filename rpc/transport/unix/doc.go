// Package unix implements the Unix domain socket transport of the Dorea
// server and client, for processes running on the same machine.
//
// The endpoint is the socket path. A stale socket file is removed before
// listening. Framing and connection handling are inherited from the base
// package.
package unix
