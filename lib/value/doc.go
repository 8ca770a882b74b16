// Package value implements the value model of the store: a closed tagged
// union (DataValue) with the variants None, String, Integer, Float, Boolean,
// List, Dict, Tuple and Binary.
//
// Three encodings are provided:
//
//   - Constructor notation (Encode / Parse), used on the wire and in commands,
//     e.g. String("bar"), Integer(3), List([Integer(1), Boolean(true)]).
//     Dicts are written as a flat JSON object of strings, nested members lose
//     their structure at this boundary.
//   - A lossless tagged binary format (MarshalBinary / UnmarshalBinary), used
//     for the group files on disk.
//   - Natural JSON (ToJSON / FromJSON) for clients that prefer json rendering.
//
// The edit operations (Incr, Insert, Remove, Push, Pop, Sort, Reverse) are
// pure functions returning a new value.
package value
