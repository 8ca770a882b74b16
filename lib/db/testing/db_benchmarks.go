package testing

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/ValentinKolb/dorea/lib/db"
	"github.com/ValentinKolb/dorea/lib/value"
)

// RunKVDBBenchmarks runs all benchmarks for a key-value database implementation.
// Engines are not safe for concurrent use, so all benchmarks run sequentially.
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {
	const capacity = 100_000

	b.Run("Set", func(b *testing.B) {
		benchmarkSet(b, factory(capacity, time.Now))
	})

	b.Run("SetEvicting", func(b *testing.B) {
		benchmarkSet(b, factory(1000, time.Now))
	})

	b.Run("SetWithExpiry", func(b *testing.B) {
		benchmarkSetWithExpiry(b, factory(capacity, time.Now))
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, factory(capacity, time.Now))
	})

	b.Run("Has(not)", func(b *testing.B) {
		benchmarkHasNot(b, factory(capacity, time.Now))
	})

	b.Run("SaveLoad", func(b *testing.B) {
		benchmarkSaveLoad(b, factory)
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, factory(capacity, time.Now))
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkSet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Set(fmt.Sprintf("test-key-%d", i), db.Entry{Value: value.Integer(i)})
	}
}

func benchmarkSetWithExpiry(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureExpire)

	now := time.Now().UnixMilli()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Set(fmt.Sprintf("test-expiry-key-%d", i), db.Entry{
			Value:    value.String("test-expiry-value"),
			ExpireAt: now + int64(i%1000) + 60_000,
		})
	}
}

func benchmarkGet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet)

	numKeys := 10000
	keys := make([]string, numKeys)
	for i := range keys {
		keys[i] = fmt.Sprintf("test-key-%d", i)
		database.Set(keys[i], db.Entry{Value: value.String(keys[i])})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Get(keys[i%numKeys])
	}
}

func benchmarkHasNot(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureHas)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Has("test-key")
	}
}

func benchmarkSaveLoad(b *testing.B, factory DBFactory) {
	database := factory(20000, time.Now)

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSave|db.FeatureLoad)

	numEntries := 10000
	for i := 0; i < numEntries; i++ {
		database.Set(fmt.Sprintf("test-key-%d", i), db.Entry{
			Value: value.List{value.Integer(i), value.String("test-value")},
		})
	}

	b.Run("Save", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var buf bytes.Buffer
			database.Save(&buf)
		}
	})

	var loadBuf bytes.Buffer
	database.Save(&loadBuf)
	data := loadBuf.Bytes()

	b.Run("Load", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			loadDB := factory(20000, time.Now)
			loadDB.Load(bytes.NewReader(data))
			loadDB.Close()
		}
	})
}

func benchmarkMixedUsage(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete|db.FeatureHas)

	numKeys := 10000
	keys := make([]string, numKeys)
	for i := range keys {
		keys[i] = fmt.Sprintf("test-key-%d", i)
		database.Set(keys[i], db.Entry{Value: value.Integer(i)})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := keys[i%numKeys]
		if i%10 == 0 {
			key = fmt.Sprintf("new-key-%d", i)
		}

		switch i % 4 {
		case 0:
			database.Get(key)
		case 1:
			database.Set(key, db.Entry{Value: value.Integer(i)})
		case 2:
			database.Delete(key)
		case 3:
			database.Has(key)
		}
	}
}
