// Package base provides the foundation for the transport layers of the Dorea
// server, implementing the frame codec and the connection handling
// independent of the network medium (TCP, Unix sockets). Medium specific
// packages plug in through the connector interfaces.
//
// Frame Format:
//
// Every request and every reply is one text frame:
//
//	$: <len> | %: <STATE> | #: B64'<base64 body>';
//
// The length field counts the bytes of the escaped body, the state is one of
// OK, ERR, EMPTY or NOAUTH. The decoder reads in chunks of at most ChunkSize
// bytes and keeps bytes following the terminator for the next frame, so
// pipelined requests are answered in order. Unescaped bodies are accepted
// as-is, and a missing state field decodes as EMPTY.
//
// Key Components:
//
//   - Decoder / EncodeFrame: the frame codec. Malformed frames yield a
//     *ProtocolError which the server answers with an ERR frame before
//     continuing the session. The decoder skips the rest of a malformed
//     frame up to its terminator, so the following frame decodes intact.
//
//   - serverTransport: accepts connections and serves each one in its own
//     goroutine. A session (transport.ISession) is created per connection and
//     handles its requests strictly in order. Connections above the
//     configured limit receive one ERR frame and are closed. An empty request
//     or EOF ends the session without a further frame.
//
//   - clientTransport: holds one connection. After every (re)connect the
//     connect hook runs, so authentication and the selected group survive a
//     reconnect. Failed requests are retried with exponential backoff.
//
// Thread Safety:
//
//	All public methods are thread-safe. The client serializes requests with a
//	mutex, use one client per goroutine (or a pool) for parallel requests.
package base
