package lstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dorea/lib/db"
	dbtesting "github.com/ValentinKolb/dorea/lib/db/testing"
	"github.com/ValentinKolb/dorea/lib/store"
	"github.com/ValentinKolb/dorea/lib/value"
)

func newTestManager(t *testing.T, mutate func(cfg *Config)) (*DataBaseManager, *dbtesting.FakeClock) {
	t.Helper()
	clock := dbtesting.NewFakeClock()
	cfg := DefaultConfig(t.TempDir())
	cfg.Clock = clock.Now
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewDataBaseManager(cfg)
	if err != nil {
		t.Fatalf("NewDataBaseManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m, clock
}

func groupNames(m *DataBaseManager) []string {
	var names []string
	for _, gi := range m.Groups() {
		names = append(names, gi.Name)
	}
	return names
}

func TestPreload(t *testing.T) {
	m, _ := newTestManager(t, func(cfg *Config) {
		cfg.PreloadGroups = []string{"system", "a", "b", "c", "d", "a"}
	})

	names := groupNames(m)
	if len(names) != MaxPreloadGroups {
		t.Fatalf("expected %d preloaded groups, got %v", MaxPreloadGroups, names)
	}
	pre := m.Config().PreloadGroups
	if pre[0] != "default" || pre[1] != "system" || pre[2] != "a" || pre[3] != "b" {
		t.Errorf("unexpected preload order %v", pre)
	}

	for _, gi := range m.Groups() {
		wantLocked := gi.Name == "default" || gi.Name == "system"
		if gi.Locked != wantLocked {
			t.Errorf("group %s locked = %v, want %v", gi.Name, gi.Locked, wantLocked)
		}
	}
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"index limit", func(cfg *Config) { cfg.MaxIndexNumber = MaxIndexLimit + 1 }},
		{"group limit", func(cfg *Config) { cfg.MaxGroupNumber = 1 }},
		{"bad group", func(cfg *Config) { cfg.PreloadGroups = []string{"../etc"} }},
		{"empty root", func(cfg *Config) { cfg.Root = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(t.TempDir())
			tt.mutate(&cfg)
			if _, err := NewDataBaseManager(cfg); err == nil {
				t.Errorf("expected an error")
			}
		})
	}

	// a file in place of the root directory is unusable
	file := filepath.Join(t.TempDir(), "file")
	os.WriteFile(file, nil, 0o644)
	if _, err := NewDataBaseManager(DefaultConfig(filepath.Join(file, "sub"))); !store.IsCode(err, store.RetCStorageIO) {
		t.Errorf("expected RetCStorageIO for an unusable root, got %v", err)
	}
}

func TestSelectTo(t *testing.T) {
	m, _ := newTestManager(t, func(cfg *Config) {
		cfg.MaxGroupNumber = 3
	})

	if err := m.SelectTo("g1"); err != nil {
		t.Fatalf("SelectTo(g1): %v", err)
	}
	m.Set("g1", "k", value.Integer(1), 0)

	// selecting a loaded group keeps the same index
	if err := m.SelectTo("g1"); err != nil {
		t.Fatalf("second SelectTo(g1): %v", err)
	}
	if v, ok, _ := m.Get("g1", "k"); !ok || !value.Equal(v, value.Integer(1)) {
		t.Errorf("value lost after reselect")
	}

	err := m.SelectTo("g2")
	if !store.IsCode(err, store.RetCGroupNotFound) {
		t.Fatalf("expected RetCGroupNotFound at the group limit, got %v", err)
	}
	if len(m.Groups()) != 3 {
		t.Errorf("failed select must not load a group")
	}

	if err := m.SelectTo("../x"); !store.IsCode(err, store.RetCGroupNotFound) {
		t.Errorf("expected RetCGroupNotFound for an invalid name, got %v", err)
	}
}

func TestKeyOperations(t *testing.T) {
	m, clock := newTestManager(t, nil)

	if _, ok, _ := m.Get("default", "missing"); ok {
		t.Errorf("missing key reported as found")
	}

	m.Set("default", "k", value.String("v"), 0)
	m.Set("default", "t", value.String("v"), 10*time.Second)

	if ok, _ := m.ContainsKey("default", "t"); !ok {
		t.Errorf("ContainsKey(t) should be true")
	}
	entry, ok, _ := m.Meta("default", "t")
	if !ok || entry.ExpireAt != entry.Timestamp+10_000 {
		t.Errorf("unexpected meta %+v", entry)
	}

	clock.Advance(10 * time.Second)
	if _, ok, _ := m.Get("default", "t"); ok {
		t.Errorf("expired key still readable")
	}
	if keys, _ := m.Keys("default"); len(keys) != 1 || keys[0] != "k" {
		t.Errorf("Keys() = %v, want [k]", keys)
	}

	if ok, _ := m.Delete("default", "k"); !ok {
		t.Errorf("Delete(k) should report an existing key")
	}
	if ok, _ := m.Delete("default", "k"); ok {
		t.Errorf("Delete(k) twice should report a missing key")
	}

	m.Set("default", "a", value.None{}, 0)
	m.Clean("default")
	if cur, _ := m.TotalIndex(); cur != 0 {
		t.Errorf("TotalIndex after Clean = %d, want 0", cur)
	}
}

func TestUpdate(t *testing.T) {
	m, _ := newTestManager(t, nil)

	err := m.Update("default", "nope", func(*db.Entry) error { return nil })
	if !store.IsCode(err, store.RetCKeyNotFound) {
		t.Fatalf("expected RetCKeyNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "Key 'nope' not found.") {
		t.Errorf("unexpected message %v", err)
	}

	m.Set("default", "n", value.Integer(1), 0)
	err = m.Update("default", "n", func(e *db.Entry) error {
		e.Value = value.Integer(int64(e.Value.(value.Integer)) + 41)
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if v, _, _ := m.Get("default", "n"); !value.Equal(v, value.Integer(42)) {
		t.Errorf("got %s, want Integer(42)", value.Encode(v))
	}

	// a failing update writes nothing
	m.Update("default", "n", func(e *db.Entry) error {
		e.Value = value.None{}
		return store.NewError(store.RetCInvalidOperation, "Unknown data struct.")
	})
	if v, _, _ := m.Get("default", "n"); !value.Equal(v, value.Integer(42)) {
		t.Errorf("failed update modified the value: %s", value.Encode(v))
	}
}

func TestGroupCapacity(t *testing.T) {
	m, _ := newTestManager(t, func(cfg *Config) {
		cfg.GroupCapacity = 3
	})

	for _, k := range []string{"a", "b", "c", "d"} {
		m.Set("default", k, value.String(k), 0)
	}
	keys, _ := m.Keys("default")
	if strings.Join(keys, ",") != "b,c,d" {
		t.Errorf("Keys() = %v, want [b c d]", keys)
	}
}

func TestMaxIndexNumber(t *testing.T) {
	m, _ := newTestManager(t, func(cfg *Config) {
		cfg.MaxIndexNumber = 5
		cfg.PreloadGroups = []string{"big"}
	})

	for _, k := range []string{"b1", "b2", "b3"} {
		m.Set("big", k, value.None{}, 0)
	}
	m.Set("default", "d1", value.None{}, 0)
	m.Set("default", "d2", value.None{}, 0)

	// the total is at the limit, the oldest key of the largest group goes
	m.Set("default", "d3", value.None{}, 0)
	cur, max := m.TotalIndex()
	if cur != 5 || max != 5 {
		t.Errorf("TotalIndex() = %d/%d, want 5/5", cur, max)
	}
	if ok, _ := m.ContainsKey("big", "b1"); ok {
		t.Errorf("b1 should have been evicted from the largest group")
	}

	// overwriting never evicts
	m.Set("default", "d3", value.Integer(1), 0)
	if ok, _ := m.ContainsKey("big", "b2"); !ok {
		t.Errorf("overwrite must not evict")
	}
}

func TestUnload(t *testing.T) {
	m, _ := newTestManager(t, nil)

	if err := m.Unload("default"); !store.IsCode(err, store.RetCGroupLocked) {
		t.Errorf("expected RetCGroupLocked for the default group, got %v", err)
	}
	if err := m.Unload("nope"); !store.IsCode(err, store.RetCGroupNotFound) {
		t.Errorf("expected RetCGroupNotFound, got %v", err)
	}

	m.Set("tmp", "k", value.Integer(7), 0)
	if err := m.Unload("tmp"); err != nil {
		t.Fatalf("Unload(tmp): %v", err)
	}
	for _, name := range groupNames(m) {
		if name == "tmp" {
			t.Fatalf("tmp still loaded")
		}
	}

	// the group is flushed before it is dropped
	if v, ok, _ := m.Get("tmp", "k"); !ok || !value.Equal(v, value.Integer(7)) {
		t.Errorf("value lost after unload")
	}

	m.Lock("tmp")
	if err := m.Unload("tmp"); !store.IsCode(err, store.RetCGroupLocked) {
		t.Errorf("expected RetCGroupLocked after Lock, got %v", err)
	}
	m.Unlock("tmp")
	if err := m.Unload("tmp"); err != nil {
		t.Errorf("Unload after Unlock: %v", err)
	}
}

func TestFlushAndReload(t *testing.T) {
	root := t.TempDir()
	clock := dbtesting.NewFakeClock()
	cfg := DefaultConfig(root)
	cfg.Clock = clock.Now

	m, err := NewDataBaseManager(cfg)
	if err != nil {
		t.Fatalf("NewDataBaseManager: %v", err)
	}
	m.Set("default", "a", value.List{value.Integer(1), value.String("x")}, 0)
	m.Set("default", "b", value.Dict{"k": value.Float(1.5)}, time.Hour)
	m.Set("default", "c", value.Binary{1, 2, 3}, 0)
	m.Get("default", "a")
	if err := m.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if st := m.FlushStats(); st.Flushes != 1 || st.Groups == 0 {
		t.Errorf("unexpected flush stats %+v", st)
	}
	for _, gi := range m.Groups() {
		if gi.Dirty {
			t.Errorf("group %s still dirty after flush", gi.Name)
		}
	}

	raw, err := os.ReadFile(filepath.Join(root, "default"+FileExt))
	if err != nil {
		t.Fatalf("group file missing: %v", err)
	}
	if !strings.HasPrefix(string(raw), "Dorea::default ") {
		t.Errorf("unexpected header %q", strings.SplitN(string(raw), "\n", 2)[0])
	}
	if _, err := os.Stat(filepath.Join(root, "default"+FileExt+".tmp")); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind")
	}
	m.Close()

	m2, err := NewDataBaseManager(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer m2.Close()

	keys, _ := m2.Keys("default")
	if strings.Join(keys, ",") != "b,c,a" {
		t.Errorf("recency order not preserved: %v", keys)
	}
	if v, _, _ := m2.Get("default", "b"); !value.Equal(v, value.Dict{"k": value.Float(1.5)}) {
		t.Errorf("b = %s", value.Encode(v))
	}
	if e, _, _ := m2.Meta("default", "b"); e.ExpireAt == 0 {
		t.Errorf("expiry lost on reload")
	}

	// expired entries are not reloaded
	clock.Advance(2 * time.Hour)
	m2.Close()
	m3, _ := NewDataBaseManager(cfg)
	defer m3.Close()
	if ok, _ := m3.ContainsKey("default", "b"); ok {
		t.Errorf("expired entry survived the reload")
	}
}

func TestInvalidHeader(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "other"+FileExt), []byte("Dorea::default 1\n"), 0o644)

	m, err := NewDataBaseManager(DefaultConfig(root))
	if err != nil {
		t.Fatalf("NewDataBaseManager: %v", err)
	}
	defer m.Close()

	if err := m.SelectTo("other"); !store.IsCode(err, store.RetCStorageIO) {
		t.Errorf("expected RetCStorageIO for a foreign header, got %v", err)
	}

	// preloading a broken group is fatal
	cfg := DefaultConfig(root)
	cfg.PreloadGroups = []string{"other"}
	if _, err := NewDataBaseManager(cfg); err == nil {
		t.Errorf("expected preload of a broken group to fail")
	}
}

func TestLocalStore(t *testing.T) {
	m, _ := newTestManager(t, nil)
	s := NewLocalStore(m, "")

	if s.Group() != "default" {
		t.Errorf("Group() = %s, want default", s.Group())
	}
	if err := s.Set("k", value.Boolean(true), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Select("other"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if ok, _ := s.Has("k"); ok {
		t.Errorf("key leaked into another group")
	}
	s.Set("k", value.Integer(2), 0)
	s.Select("default")
	if v, ok, _ := s.Get("k"); !ok || !value.Equal(v, value.Boolean(true)) {
		t.Errorf("Get(k) = %v, %v", v, ok)
	}
	s.Delete("k")
	if ok, _ := s.Has("k"); ok {
		t.Errorf("key still present after Delete")
	}
	s.Select("other")
	if err := s.Clean(); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if ok, _ := s.Has("k"); ok {
		t.Errorf("key still present after Clean")
	}
}

func TestLocalStoreTTLLimit(t *testing.T) {
	m, clock := newTestManager(t, nil)
	s := NewLocalStore(m, "")

	err := s.Set("k", value.Integer(1), MaxTTLSeconds+1)
	if !store.IsCode(err, store.RetCInvalidOperation) {
		t.Fatalf("Set beyond the ttl limit: err = %v, want invalid operation", err)
	}
	if ok, _ := s.Has("k"); ok {
		t.Errorf("rejected Set stored the key")
	}

	if err := s.Set("k", value.Integer(1), MaxTTLSeconds); err != nil {
		t.Fatalf("Set at the ttl limit: %v", err)
	}
	entry, found, err := m.Meta("default", "k")
	if err != nil || !found {
		t.Fatalf("Meta(k) = %v, %v", found, err)
	}
	if got, want := entry.TTL(clock.Now().UnixMilli()), int64(MaxTTLSeconds)*1000; got != want {
		t.Errorf("TTL = %d, want %d", got, want)
	}
}

func TestEvictedKeyGoneAfterFlush(t *testing.T) {
	m, _ := newTestManager(t, func(cfg *Config) {
		cfg.MaxIndexNumber = 2
	})

	m.Set("default", "a", value.Integer(1), 0)
	m.Set("default", "b", value.Integer(2), 0)
	m.Set("default", "c", value.Integer(3), 0)

	// a miss is not read through from the group file
	if _, ok, _ := m.Get("default", "a"); ok {
		t.Fatalf("evicted key a still readable")
	}
	if err := m.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	cfg := m.cfg
	cfg.MaxIndexNumber = DefaultConfig(cfg.Root).MaxIndexNumber
	reopened, err := NewDataBaseManager(cfg)
	if err != nil {
		t.Fatalf("NewDataBaseManager: %v", err)
	}
	defer reopened.Close()

	if ok, _ := reopened.ContainsKey("default", "a"); ok {
		t.Errorf("evicted key a came back from the group file")
	}
	for _, k := range []string{"b", "c"} {
		if ok, _ := reopened.ContainsKey("default", k); !ok {
			t.Errorf("key %s missing after reopen", k)
		}
	}
}
