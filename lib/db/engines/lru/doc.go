// Package lru implements the in-memory index of a group as a strictly
// bounded least-recently-used map. It satisfies the db.KVDB interface and
// is the only engine the storage layer uses.
//
// Key Components:
//
//   - lruImpl: wraps a simplelru.LRU (github.com/hashicorp/golang-lru) that
//     holds db.Entry values. Get and Set promote a key to the most recently
//     used position, Peek and Has do not. Inserting a new key into a full
//     index evicts the least recently used key inline and reports it to the
//     caller.
//
//   - Expiry queue: a util.MapHeap keyed by the entry key and ordered by the
//     ExpireAt timestamp. Expired entries are logically absent as soon as
//     their deadline passes. They are physically removed lazily, either when
//     they are read, when a new key needs a slot, or through PurgeExpired.
//
//   - Persistence: Save writes all live entries least recently used first,
//     Load replays them in the same order so the recency order survives a
//     restart. The body is a little endian binary stream:
//
//     uint64 entry count
//     per entry: uint32 key length, key, int64 expireAt, int64 timestamp,
//     uint32 value length, value (value.MarshalBinary)
//
// Thread-safety: an lruImpl is not safe for concurrent use. The storage
// layer (lib/store/lstore) serializes all access with the manager mutex.
package lru
