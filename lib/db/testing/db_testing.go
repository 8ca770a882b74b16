package testing

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dorea/lib/db"
	"github.com/ValentinKolb/dorea/lib/value"
)

// DBFactory creates a new instance of a KVDB implementation with the given
// capacity that reads the current time from clock
type DBFactory func(capacity int, clock func() time.Time) db.KVDB

// FakeClock is a manually advanced time source
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock returns a clock starting at a fixed instant
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// NowMs returns the current fake time in unix milliseconds
func (c *FakeClock) NowMs() int64 {
	return c.Now().UnixMilli()
}

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory(16, time.Now))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(16, time.Now))
		})

		t.Run("Clean", func(t *testing.T) {
			testClean(t, factory(16, time.Now))
		})

		t.Run("LRUEviction", func(t *testing.T) {
			testLRUEviction(t, factory(3, time.Now))
		})

		t.Run("Promotion", func(t *testing.T) {
			testPromotion(t, factory(3, time.Now))
		})

		t.Run("Peek", func(t *testing.T) {
			testPeekDoesNotPromote(t, factory(2, time.Now))
		})

		t.Run("KeyExpiry", func(t *testing.T) {
			clock := NewFakeClock()
			testKeyExpiry(t, factory(16, clock.Now), clock)
		})

		t.Run("ExpiredMakeRoom", func(t *testing.T) {
			clock := NewFakeClock()
			testExpiredMakeRoom(t, factory(2, clock.Now), clock)
		})

		t.Run("PurgeExpired", func(t *testing.T) {
			clock := NewFakeClock()
			testPurgeExpired(t, factory(1000, clock.Now), clock)
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory(16, time.Now))
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, factory(100, time.Now))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

func entryOf(v value.DataValue) db.Entry {
	return db.Entry{Value: v, Timestamp: time.Now().UnixMilli()}
}

func expectKeys(t *testing.T, database db.KVDB, want ...string) {
	t.Helper()
	got := database.Keys()
	if len(got) != len(want) {
		t.Fatalf("Expected keys %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected keys %v, got %v", want, got)
		}
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	testKey := "test-key"
	database.Set(testKey, entryOf(value.String("test-value1")))

	result, exists := database.Get(testKey)
	if !exists {
		t.Fatalf("Expected key %s to exist after Set", testKey)
	}
	if !value.Equal(result.Value, value.String("test-value1")) {
		t.Errorf("Expected value test-value1, got %s", value.Encode(result.Value))
	}

	database.Set(testKey, entryOf(value.Integer(2)))
	result, _ = database.Get(testKey)
	if !value.Equal(result.Value, value.Integer(2)) {
		t.Errorf("Expected updated value Integer(2), got %s", value.Encode(result.Value))
	}
	if database.Len() != 1 {
		t.Errorf("Update must not occupy a second slot, Len() = %d", database.Len())
	}

	if _, exists = database.Get("nonexistent-key"); exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	database.Set("nil", db.Entry{})
	if result, _ = database.Get("nil"); !value.Equal(result.Value, value.None{}) {
		t.Errorf("A nil value should be stored as None")
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureDelete|db.FeatureHas)

	database.Set("a", entryOf(value.Integer(1)))
	if !database.Delete("a") {
		t.Errorf("Delete of existing key should return true")
	}
	if database.Has("a") {
		t.Errorf("Key should not exist after Delete")
	}
	if database.Delete("a") {
		t.Errorf("Delete of missing key should return false")
	}
	if database.Len() != 0 {
		t.Errorf("Expected empty index, Len() = %d", database.Len())
	}
}

func testClean(t *testing.T, database db.KVDB) {
	defer database.Close()

	for i := 0; i < 10; i++ {
		database.Set(fmt.Sprintf("k%d", i), entryOf(value.Integer(i)))
	}
	database.Clean()
	if database.Len() != 0 || len(database.Keys()) != 0 {
		t.Errorf("Clean should remove all entries")
	}
	database.Set("again", entryOf(value.None{}))
	if !database.Has("again") {
		t.Errorf("Index should be usable after Clean")
	}
}

func testLRUEviction(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureEvict)

	for _, k := range []string{"a", "b", "c"} {
		if _, evicted := database.Set(k, entryOf(value.String(k))); evicted {
			t.Fatalf("Nothing should be evicted below capacity")
		}
	}

	evictedKey, evicted := database.Set("d", entryOf(value.String("d")))
	if !evicted || evictedKey != "a" {
		t.Errorf("Expected eviction of a, got %q (%v)", evictedKey, evicted)
	}
	if database.Len() != database.Capacity() {
		t.Errorf("Len() = %d, want capacity %d", database.Len(), database.Capacity())
	}
	expectKeys(t, database, "b", "c", "d")

	// overwriting an existing key never evicts
	if _, evicted := database.Set("b", entryOf(value.Integer(0))); evicted {
		t.Errorf("Overwriting an existing key must not evict")
	}

	key, ok := database.RemoveOldest()
	if !ok || key != "c" {
		t.Errorf("RemoveOldest() = %q, %v, want c", key, ok)
	}
}

func testPromotion(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureEvict|db.FeatureGet)

	database.Set("a", entryOf(value.Integer(1)))
	database.Set("b", entryOf(value.Integer(2)))
	database.Set("c", entryOf(value.Integer(3)))

	// a becomes the most recently used entry
	if _, ok := database.Get("a"); !ok {
		t.Fatalf("Expected key a to exist")
	}
	evictedKey, _ := database.Set("d", entryOf(value.Integer(4)))
	if evictedKey != "b" {
		t.Errorf("Expected eviction of b after promoting a, got %q", evictedKey)
	}
	expectKeys(t, database, "c", "a", "d")
}

func testPeekDoesNotPromote(t *testing.T, database db.KVDB) {
	defer database.Close()

	database.Set("a", entryOf(value.Integer(1)))
	database.Set("b", entryOf(value.Integer(2)))

	if e, ok := database.Peek("a"); !ok || !value.Equal(e.Value, value.Integer(1)) {
		t.Fatalf("Peek(a) = %v, %v", e, ok)
	}
	if !database.Has("a") {
		t.Fatalf("Has(a) should be true")
	}

	evictedKey, _ := database.Set("c", entryOf(value.Integer(3)))
	if evictedKey != "a" {
		t.Errorf("Peek and Has must not promote, expected eviction of a, got %q", evictedKey)
	}
}

func testKeyExpiry(t *testing.T, database db.KVDB, clock *FakeClock) {
	defer database.Close()

	requireFeature(t, database, db.FeatureExpire)

	now := clock.NowMs()
	database.Set("expiring", db.Entry{Value: value.String("v"), ExpireAt: now + 1000, Timestamp: now})
	database.Set("forever", db.Entry{Value: value.String("v"), Timestamp: now})

	clock.Advance(999 * time.Millisecond)
	if _, ok := database.Get("expiring"); !ok {
		t.Errorf("Key should still exist 1ms before its deadline")
	}
	if e, _ := database.Peek("expiring"); e.TTL(clock.NowMs()) != 1 {
		t.Errorf("Expected a remaining ttl of 1ms, got %d", e.TTL(clock.NowMs()))
	}

	clock.Advance(time.Millisecond)
	if _, ok := database.Peek("expiring"); ok {
		t.Errorf("Key should be expired at its deadline (peek)")
	}
	if database.Has("expiring") {
		t.Errorf("Key should be expired at its deadline (has)")
	}
	expectKeys(t, database, "forever")
	if _, ok := database.Get("expiring"); ok {
		t.Errorf("Key should be expired at its deadline (get)")
	}

	clock.Advance(24 * time.Hour)
	if _, ok := database.Get("forever"); !ok {
		t.Errorf("Key without ExpireAt should never expire")
	}

	// overwriting an expiring entry without a deadline removes the deadline
	now = clock.NowMs()
	database.Set("k", db.Entry{Value: value.Integer(1), ExpireAt: now + 10})
	database.Set("k", db.Entry{Value: value.Integer(2)})
	clock.Advance(time.Second)
	if _, ok := database.Get("k"); !ok {
		t.Errorf("Overwritten entry should no longer expire")
	}
}

func testExpiredMakeRoom(t *testing.T, database db.KVDB, clock *FakeClock) {
	defer database.Close()

	requireFeature(t, database, db.FeatureExpire|db.FeatureEvict)

	now := clock.NowMs()
	database.Set("live", db.Entry{Value: value.Integer(1)})
	database.Set("short", db.Entry{Value: value.Integer(2), ExpireAt: now + 10})

	clock.Advance(time.Second)
	evictedKey, evicted := database.Set("new", db.Entry{Value: value.Integer(3)})
	if evicted {
		t.Errorf("An expired entry should make room before a live key is evicted, evicted %q", evictedKey)
	}
	expectKeys(t, database, "live", "new")
}

func testPurgeExpired(t *testing.T, database db.KVDB, clock *FakeClock) {
	defer database.Close()

	requireFeature(t, database, db.FeatureExpire)

	now := clock.NowMs()
	numKeys := 500
	for i := 0; i < numKeys; i++ {
		entry := db.Entry{Value: value.Integer(i)}
		if i%2 == 0 {
			entry.ExpireAt = now + int64(i+1)
		}
		database.Set(fmt.Sprintf("key-%d", i), entry)
	}

	clock.Advance(time.Duration(numKeys) * time.Millisecond)
	if n := database.PurgeExpired(); n != numKeys/2 {
		t.Errorf("PurgeExpired() = %d, want %d", n, numKeys/2)
	}
	if database.Len() != numKeys/2 {
		t.Errorf("Len() = %d after purge, want %d", database.Len(), numKeys/2)
	}
	if n := database.PurgeExpired(); n != 0 {
		t.Errorf("Second PurgeExpired() = %d, want 0", n)
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	clock := NewFakeClock()
	database := factory(10, clock.Now)
	defer database.Close()

	requireFeature(t, database, db.FeatureSave|db.FeatureLoad)

	now := clock.NowMs()
	testData := map[string]db.Entry{
		"str":   {Value: value.String("hello"), Timestamp: now},
		"list":  {Value: value.List{value.Integer(1), value.Float(2.5)}, Timestamp: now},
		"dict":  {Value: value.Dict{"a": value.Boolean(true)}, ExpireAt: now + 60_000, Timestamp: now},
		"bin":   {Value: value.Binary{0, 1, 2}, Timestamp: now},
		"gone":  {Value: value.None{}, ExpireAt: now + 1, Timestamp: now},
		"tuple": {Value: value.Tuple{value.String("x"), value.None{}}, Timestamp: now},
	}
	order := []string{"str", "list", "dict", "bin", "gone", "tuple"}
	for _, key := range order {
		database.Set(key, testData[key])
	}
	database.Get("str") // promote

	clock.Advance(10 * time.Millisecond)

	var buf bytes.Buffer
	if err := database.Save(&buf); err != nil {
		t.Fatalf("Unexpected error during Save: %v", err)
	}

	database2 := factory(10, clock.Now)
	defer database2.Close()
	database2.Set("stale", entryOf(value.None{}))

	if err := database2.Load(&buf); err != nil {
		t.Fatalf("Unexpected error during Load: %v", err)
	}

	expectKeys(t, database2, "list", "dict", "bin", "tuple", "str")
	for _, key := range database2.Keys() {
		got, _ := database2.Peek(key)
		want := testData[key]
		if !value.Equal(got.Value, want.Value) {
			t.Errorf("Key %s: expected %s, got %s", key, value.Encode(want.Value), value.Encode(got.Value))
		}
		if got.ExpireAt != want.ExpireAt || got.Timestamp != want.Timestamp {
			t.Errorf("Key %s: metadata not preserved, got %+v", key, got)
		}
	}

	// truncated input
	buf.Reset()
	database.Save(&buf)
	data := buf.Bytes()
	if err := factory(10, clock.Now).Load(bytes.NewReader(data[:len(data)-1])); err == nil {
		t.Errorf("Expected error when loading truncated data")
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	// empty key
	database.Set("", entryOf(value.String("empty-key")))
	if e, ok := database.Get(""); !ok || !value.Equal(e.Value, value.String("empty-key")) {
		t.Errorf("Empty key not handled correctly")
	}

	// large value
	large := make(value.Binary, 1024*1024)
	for i := range large {
		large[i] = byte(i % 256)
	}
	database.Set("large", entryOf(large))
	if e, ok := database.Get("large"); !ok || !value.Equal(e.Value, large) {
		t.Errorf("Large value not stored correctly")
	}

	// special characters
	specialKey := "!@#$%^&*()_+{}|:<>?~`-=[]\\;',./\"\n\t日本"
	database.Set(specialKey, entryOf(value.String(specialKey)))
	if e, ok := database.Get(specialKey); !ok || !value.Equal(e.Value, value.String(specialKey)) {
		t.Errorf("Special characters in key not handled correctly")
	}

	info := database.GetInfo()
	if info.SizeBytes <= len(large) {
		t.Errorf("SizeBytes %d should account for the large value", info.SizeBytes)
	}
	if !database.SupportsFeature(db.FeatureSet) {
		t.Errorf("Every implementation must support Set")
	}
}

func testRealisticUsage(t *testing.T, database db.KVDB) {
	defer database.Close()

	numKeys := 1000
	var lastEvicted string
	evictions := 0
	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("user:%d", i)
		if k, ok := database.Set(key, entryOf(value.Dict{"id": value.Integer(i)})); ok {
			evictions++
			lastEvicted = k
		}
		// keep the first user hot
		database.Get("user:0")
	}

	if database.Len() != database.Capacity() {
		t.Errorf("Len() = %d, want %d", database.Len(), database.Capacity())
	}
	if evictions != numKeys-database.Capacity() {
		t.Errorf("Expected %d evictions, got %d", numKeys-database.Capacity(), evictions)
	}
	if lastEvicted == "user:0" || !database.Has("user:0") {
		t.Errorf("Hot key user:0 should never be evicted")
	}
	if database.Has("user:1") {
		t.Errorf("Cold key user:1 should have been evicted")
	}
}
