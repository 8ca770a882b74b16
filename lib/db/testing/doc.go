// Package testing provides standardised tests and benchmarks for
// index implementations that satisfy the db.KVDB interface.
//
// The package contains:
//   - RunKVDBTests: a conformance suite covering strict LRU eviction,
//     promotion on Get, expiry against an injected clock and the Save/Load
//     round trip including recency order
//   - RunKVDBBenchmarks: sequential benchmarks of the common operations
//   - FakeClock: a manually advanced time source for expiry tests
//
// Example usage:
//
//	factory := func(capacity int, clock func() time.Time) db.KVDB {
//		return NewMyIndex(capacity, clock)
//	}
//
//	dbtesting.RunKVDBTests(t, "MyIndex", factory)
//	dbtesting.RunKVDBBenchmarks(b, "MyIndex", factory)
package testing
