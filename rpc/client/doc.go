// Package client implements clients for the Dorea server.
//
// Key Components:
//
//   - Client: A typed client bound to one server session. Every command of the
//     protocol has a method (Get, Set, Delete, Clean, Select, Search, Info,
//     Edit, Echo, Eval, Ping). Replies with a state other than OK are returned
//     as *ResponseError. When the transport reconnects, the session is
//     authenticated again and the last selected group is restored.
//
//   - NewRPCStore: Factory function that creates a client implementing the
//     store.IStore interface, so remote groups can be used like a local store.
//
//   - Pool: A pool of clients (github.com/jolestar/go-commons-pool) for
//     concurrent callers. A session handles one request at a time, so parallel
//     load needs one connection per worker.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoint:      "localhost:3450",
//	  Transport:     "tcp",
//	  TimeoutSecond: 5,
//	  RetryCount:    3,
//	}
//
//	style, _ := serializer.New("doson")
//	t, _ := client.NewTransport(config.Transport)
//	c, err := client.NewClient(config, t, style)
//	if err != nil {
//	  log.Fatalf("failed to connect: %v", err)
//	}
//	defer c.Close()
//
//	c.Set("foo", value.String("bar"), 0)
//	v, found, err := c.Get("foo")
//
// The serializer has to match the value style of the server, requests always
// carry values in constructor notation.
package client
