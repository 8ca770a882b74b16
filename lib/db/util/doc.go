// Package util provides helper components for the db.KVDB engines and the
// storage layer built on top of them.
//
// The package contains:
//   - mapheap: a priority queue with key based access, used to track entry expiry
//   - functions: wildcard key matching used by SEARCH
//   - statistics: a size histogram and basic descriptive statistics for INFO output
//
// None of the types are safe for concurrent use, callers synchronize access.
package util
