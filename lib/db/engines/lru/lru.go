package lru

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/dorea/lib/db"
	"github.com/ValentinKolb/dorea/lib/db/util"
	"github.com/ValentinKolb/dorea/lib/value"
	"github.com/hashicorp/golang-lru/simplelru"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// FormatVersion identifies the layout written by Save
	FormatVersion = 1

	// DefaultCapacity is the number of slots used when no capacity is configured
	DefaultCapacity = 20480

	// maxFieldLen guards Load against corrupted length fields
	maxFieldLen = 1 << 30
)

// --------------------------------------------------------------------------
// Core structure
// --------------------------------------------------------------------------

type lruImpl struct {
	cache    *simplelru.LRU
	expiry   *util.MapHeap[string] // key -> ExpireAt (unix ms)
	capacity int
	clock    func() time.Time
}

// Options configures the index
type Options struct {
	Capacity int              // maximum number of slots (0 = DefaultCapacity)
	Clock    func() time.Time // time source for expiry checks (nil = time.Now)
}

// DefaultOptions returns the default options
func DefaultOptions() *Options {
	return &Options{
		Capacity: DefaultCapacity,
		Clock:    time.Now,
	}
}

// NewLRUDB creates a new LRU index with the specified options (optional)
func NewLRUDB(opts *Options) db.KVDB {
	if opts == nil {
		opts = DefaultOptions()
	}
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	l := &lruImpl{
		expiry:   util.NewMapHeap[string](),
		capacity: capacity,
		clock:    clock,
	}

	// the callback fires for Remove, RemoveOldest and Purge, never for an
	// Add that only updates an existing key
	cache, err := simplelru.NewLRU(capacity, func(key interface{}, _ interface{}) {
		l.expiry.RemoveByKey(key.(string))
	})
	if err != nil {
		// only possible for a non-positive size, which is excluded above
		panic(err)
	}
	l.cache = cache
	return l
}

func (l *lruImpl) nowMs() int64 {
	return l.clock().UnixMilli()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.KVDB)
// --------------------------------------------------------------------------

func (l *lruImpl) Set(key string, entry db.Entry) (evicted string, didEvict bool) {
	if entry.Value == nil {
		entry.Value = value.None{}
	}

	if !l.cache.Contains(key) && l.cache.Len() >= l.capacity {
		// expired entries are dropped before a live key has to go
		l.PurgeExpired()
		if l.cache.Len() >= l.capacity {
			if k, _, ok := l.cache.RemoveOldest(); ok {
				evicted, didEvict = k.(string), true
			}
		}
	}

	l.cache.Add(key, entry)
	if entry.ExpireAt != 0 {
		l.expiry.AddItem(key, uint64(entry.ExpireAt))
	} else {
		l.expiry.RemoveByKey(key)
	}
	return evicted, didEvict
}

func (l *lruImpl) Delete(key string) bool {
	ok := l.Has(key)
	l.cache.Remove(key)
	return ok
}

func (l *lruImpl) Clean() {
	l.cache.Purge()
	l.expiry.Clear()
}

func (l *lruImpl) RemoveOldest() (string, bool) {
	k, _, ok := l.cache.RemoveOldest()
	if !ok {
		return "", false
	}
	return k.(string), true
}

func (l *lruImpl) PurgeExpired() int {
	now := uint64(l.nowMs())
	n := 0
	for {
		next, ok := l.expiry.Peek()
		if !ok || next.Priority > now {
			return n
		}
		l.expiry.PopMin()
		if l.cache.Remove(next.Key) {
			n++
		}
	}
}

func (l *lruImpl) Get(key string) (db.Entry, bool) {
	raw, ok := l.cache.Get(key)
	if !ok {
		return db.Entry{}, false
	}
	entry := raw.(db.Entry)
	if entry.Expired(l.nowMs()) {
		l.cache.Remove(key)
		return db.Entry{}, false
	}
	return entry, true
}

func (l *lruImpl) Peek(key string) (db.Entry, bool) {
	raw, ok := l.cache.Peek(key)
	if !ok {
		return db.Entry{}, false
	}
	entry := raw.(db.Entry)
	if entry.Expired(l.nowMs()) {
		return db.Entry{}, false
	}
	return entry, true
}

func (l *lruImpl) Has(key string) bool {
	_, ok := l.Peek(key)
	return ok
}

func (l *lruImpl) Keys() []string {
	now := l.nowMs()
	raw := l.cache.Keys()
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		v, ok := l.cache.Peek(k)
		if !ok || v.(db.Entry).Expired(now) {
			continue
		}
		keys = append(keys, k.(string))
	}
	return keys
}

func (l *lruImpl) Len() int {
	return l.cache.Len()
}

func (l *lruImpl) Capacity() int {
	return l.capacity
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

func (l *lruImpl) Save(w io.Writer) error {
	bw := bufio.NewWriterSize(w, 64*1024)

	keys := l.Keys()
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(keys))); err != nil {
		return err
	}

	for _, key := range keys {
		raw, _ := l.cache.Peek(key)
		entry := raw.(db.Entry)

		// Write key
		if err := writeBytes(bw, []byte(key)); err != nil {
			return err
		}

		// Write expiration and write timestamps
		if err := binary.Write(bw, binary.LittleEndian, entry.ExpireAt); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, entry.Timestamp); err != nil {
			return err
		}

		// Write value
		if err := writeBytes(bw, value.MarshalBinary(entry.Value)); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func (l *lruImpl) Load(r io.Reader) error {
	br := bufio.NewReaderSize(r, 64*1024)

	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("read entry count: %w", err)
	}

	l.Clean()
	now := l.nowMs()

	for i := uint64(0); i < count; i++ {
		key, err := readBytes(br)
		if err != nil {
			return fmt.Errorf("entry %d: read key: %w", i, err)
		}

		var entry db.Entry
		if err := binary.Read(br, binary.LittleEndian, &entry.ExpireAt); err != nil {
			return fmt.Errorf("entry %d: read expiry: %w", i, err)
		}
		if err := binary.Read(br, binary.LittleEndian, &entry.Timestamp); err != nil {
			return fmt.Errorf("entry %d: read timestamp: %w", i, err)
		}

		raw, err := readBytes(br)
		if err != nil {
			return fmt.Errorf("entry %d: read value: %w", i, err)
		}
		if entry.Value, err = value.UnmarshalBinary(raw); err != nil {
			return fmt.Errorf("entry %d: decode value: %w", i, err)
		}

		if entry.Expired(now) {
			continue
		}
		l.Set(string(key), entry)
	}
	return nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > maxFieldLen {
		return nil, fmt.Errorf("field length %d exceeds limit", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// --------------------------------------------------------------------------
// Features and Metadata
// --------------------------------------------------------------------------

const supportedFeatures = db.FeatureSet |
	db.FeatureGet |
	db.FeatureDelete |
	db.FeatureHas |
	db.FeatureExpire |
	db.FeatureEvict |
	db.FeatureSave |
	db.FeatureLoad

func (l *lruImpl) SupportsFeature(feature db.Feature) bool {
	return supportedFeatures&feature == feature
}

func (l *lruImpl) GetInfo() db.DatabaseInfo {
	histogram := util.NewSizeHistogram()
	for _, k := range l.cache.Keys() {
		raw, _ := l.cache.Peek(k)
		histogram.AddSample(len(k.(string)) + value.Weight(raw.(db.Entry).Value))
	}

	entryOverhead := 16 // expireAt and timestamp
	meta := &struct {
		Capacity    int     `json:"capacity"`
		Slots       int     `json:"slots"`
		Expiring    int     `json:"expiring"`
		Utilization float64 `json:"utilization"`
		MedianSize  int     `json:"median_size"`
	}{
		Capacity:    l.capacity,
		Slots:       l.cache.Len(),
		Expiring:    l.expiry.Len(),
		Utilization: float64(l.cache.Len()) / float64(l.capacity),
		MedianSize:  histogram.PercentileEstimate(50),
	}

	return db.DatabaseInfo{
		SizeBytes: int(histogram.Sum()) + int(histogram.Count())*entryOverhead,
		DbType:    db.ImplLRU,
		SupportedFeatures: []db.Feature{
			db.FeatureSet, db.FeatureGet, db.FeatureDelete, db.FeatureHas,
			db.FeatureExpire, db.FeatureEvict,
			db.FeatureSave, db.FeatureLoad,
		},
		Metadata: meta,
	}
}

func (l *lruImpl) Close() error {
	l.Clean()
	return nil
}
