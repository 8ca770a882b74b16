// Package db defines the contract between the storage layer and the
// in-memory index of a single group.
//
// Key Components:
//
//   - KVDB Interface: the index of one group. It stores Entry values under
//     string keys, keeps them in least-recently-used order and is bounded by
//     a fixed capacity. Set reports the key it had to evict, Get promotes,
//     Peek and Has do not. Save and Load persist the live entries in recency
//     order so the order survives a restart.
//
//   - Entry: a value.DataValue together with its expiry deadline and the
//     time of the last write, both in unix milliseconds. An entry whose
//     deadline has passed is logically absent even if it still occupies a
//     slot; implementations purge such entries lazily.
//
//   - Feature Flags: the Feature type defines capability flags that
//     implementations advertise through SupportsFeature.
//
//   - Database Information: DatabaseInfo reports estimated size, the
//     implementation type and implementation specific metadata.
//
// Implementations are not required to be safe for concurrent use. The
// storage layer (lib/store/lstore) serializes every access with a single
// mutex.
//
// Related Packages:
//
// The engines/lru package (github.com/ValentinKolb/dorea/lib/db/engines/lru)
// provides the strict LRU implementation used by the server.
//
// The util package (github.com/ValentinKolb/dorea/lib/db/util) provides the
// expiry queue (MapHeap), the wildcard matcher used by SEARCH and a size
// histogram.
//
// The testing package (github.com/ValentinKolb/dorea/lib/db/testing) provides
// the conformance suite (RunKVDBTests) and benchmarks (RunKVDBBenchmarks).
package db
