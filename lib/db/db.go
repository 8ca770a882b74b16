package db

import (
	"io"

	"github.com/ValentinKolb/dorea/lib/value"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplLRU Implementation = "lru"
)

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureSet    Feature = 1 << iota // Support for Set operations
	FeatureGet                        // Support for Get and Peek operations
	FeatureDelete                     // Support for Delete and Clean operations
	FeatureHas                        // Support for Has operations
	FeatureExpire                     // Entries honor their ExpireAt timestamp
	FeatureEvict                      // The index is bounded and evicts entries
	FeatureSave                       // Support for Save operations
	FeatureLoad                       // Support for Load operations
)

func (f Feature) String() string {
	switch f {
	case FeatureSet:
		return "Set"
	case FeatureGet:
		return "Get"
	case FeatureDelete:
		return "Delete"
	case FeatureHas:
		return "Has"
	case FeatureExpire:
		return "Expire"
	case FeatureEvict:
		return "Evict"
	case FeatureSave:
		return "Save"
	case FeatureLoad:
		return "Load"
	default:
		return "Unknown"
	}
}

// Entry is a stored value together with its metadata
type Entry struct {
	Value     value.DataValue
	ExpireAt  int64 // unix milliseconds, 0 means the entry never expires
	Timestamp int64 // unix milliseconds of the last write
}

// Expired reports whether the entry is expired at the given time (unix milliseconds)
func (e Entry) Expired(nowMs int64) bool {
	return e.ExpireAt != 0 && nowMs >= e.ExpireAt
}

// TTL returns the remaining lifetime in milliseconds, 0 if the entry never expires
func (e Entry) TTL(nowMs int64) int64 {
	if e.ExpireAt == 0 {
		return 0
	}
	if rest := e.ExpireAt - nowMs; rest > 0 {
		return rest
	}
	return 0
}

type DatabaseInfo struct {
	SizeBytes         int            `json:"size_bytes"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB is the in-memory index of a single group.
// Implementations are not required to be safe for concurrent use, the
// storage layer serializes all access.
// Expired entries are logically absent: Get, Peek, Has and Keys never return
// them, even if they still occupy a slot.
type KVDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set inserts or updates an entry and marks the key as most recently used.
	// If a new key does not fit into the index, the least recently used key is
	// evicted first and returned.
	Set(key string, entry Entry) (evicted string, didEvict bool)

	// Delete removes a key. The return value reports whether the key was present.
	Delete(key string) (ok bool)

	// Clean removes all entries.
	Clean()

	// RemoveOldest evicts the least recently used key.
	RemoveOldest() (key string, ok bool)

	// PurgeExpired physically removes all expired entries and returns their number.
	PurgeExpired() (n int)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get returns the entry for a key and marks the key as most recently used.
	Get(key string) (entry Entry, ok bool)

	// Peek returns the entry for a key without touching the recency order.
	Peek(key string) (entry Entry, ok bool)

	// Has reports whether a live entry exists for a key.
	Has(key string) (ok bool)

	// Keys returns all live keys, least recently used first.
	Keys() (keys []string)

	// Len returns the number of occupied slots (including expired entries not yet purged).
	Len() int

	// Capacity returns the maximum number of slots.
	Capacity() int

	// --------------------------------------------------------------------------
	// Persistence Operations
	// --------------------------------------------------------------------------

	// Save writes all live entries to w, least recently used first.
	Save(w io.Writer) (err error)

	// Load replaces the content of the index with the entries read from r.
	Load(r io.Reader) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// Close releases all resources.
	Close() (err error)
}
