// Package serializer provides the value rendering styles of the Dorea
// server. A style decides how values are written into reply bodies, e.g.
// for GET, SEARCH or INFO keys, and how the client library reads them back.
//
// Key Components:
//
//   - IValueSerializer: Core interface that all styles satisfy.
//
//   - dosonSerializerImpl: constructor notation (String("a"), List([...])),
//     the default style. Lossless except for nested Dict members, which are
//     flattened.
//
//   - jsonSerializerImpl: natural JSON, useful for integration with other
//     systems. Tuples become arrays and binary data becomes base64 strings.
//
//   - binarySerializerImpl: the tagged binary encoding also used by the
//     storage files. Lossless and the most compact.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	s, err := serializer.New(config.ValueStyle)
//	body, err := s.Serialize(value.List{value.Integer(1)})
//	v, err := s.Deserialize(body)
package serializer
