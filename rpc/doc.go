// Package rpc contains everything that is needed to serve the store over the
// network and to talk to it as a client.
//
// The package is organized into several subpackages:
//
//   - common: The wire states and command table, server and client
//     configuration, version and logging.
//
//   - transport: The frame codec and connection handling with pluggable
//     connectors (TCP, Unix sockets).
//
//   - serializer: The value styles used to render replies (doson, json, binary).
//
//   - server: Sessions, command dispatch, INFO/EDIT/EVAL and metrics.
//
//   - client: A typed client, a store.IStore over the wire and a connection pool.
package rpc
