package lstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/dorea/lib/db"
	"github.com/ValentinKolb/dorea/lib/db/engines/lru"
	"github.com/ValentinKolb/dorea/lib/store"
	"github.com/ValentinKolb/dorea/lib/value"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("store")

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

const (
	// SystemGroup is always locked once loaded
	SystemGroup = "system"
	// MaxPreloadGroups is the maximum number of groups loaded at startup
	MaxPreloadGroups = 4
	// MaxIndexLimit is the upper bound for Config.MaxIndexNumber
	MaxIndexLimit = 2_048_000
	// MaxTTLSeconds is the longest lifetime an entry can be given
	MaxTTLSeconds = math.MaxUint32
)

// Config configures a DataBaseManager
type Config struct {
	Root           string           // directory holding the group files
	MaxGroupNumber int              // maximum number of loaded groups
	DefaultGroup   string           // group every session starts in
	PreloadGroups  []string         // groups loaded at startup (the default group is always first)
	MaxIndexNumber int              // maximum number of entries over all loaded groups
	GroupCapacity  int              // maximum number of entries of one group
	FlushInterval  time.Duration    // interval of the periodic flush
	Factory        store.DBFactory  // index factory (nil = LRU engine)
	Clock          func() time.Time // time source (nil = time.Now)
}

// DefaultConfig returns the default configuration for the given storage root
func DefaultConfig(root string) Config {
	return Config{
		Root:           root,
		MaxGroupNumber: 20,
		DefaultGroup:   "default",
		PreloadGroups:  []string{"default", SystemGroup},
		MaxIndexNumber: 102400,
		GroupCapacity:  lru.DefaultCapacity,
		FlushInterval:  40 * time.Second,
	}
}

// normalize validates the config and fills in defaults
func (c *Config) normalize() error {
	if c.Root == "" {
		return errors.New("storage root must not be empty")
	}
	if c.DefaultGroup == "" {
		c.DefaultGroup = "default"
	}
	if !validGroupName(c.DefaultGroup) {
		return fmt.Errorf("invalid default group %q", c.DefaultGroup)
	}
	if c.MaxIndexNumber <= 0 {
		c.MaxIndexNumber = 102400
	}
	if c.MaxIndexNumber > MaxIndexLimit {
		return fmt.Errorf("max index number %d exceeds the limit of %d", c.MaxIndexNumber, MaxIndexLimit)
	}
	if c.GroupCapacity <= 0 {
		c.GroupCapacity = lru.DefaultCapacity
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 40 * time.Second
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Factory == nil {
		clock := c.Clock
		c.Factory = func(capacity int) db.KVDB {
			return lru.NewLRUDB(&lru.Options{Capacity: capacity, Clock: clock})
		}
	}

	// default group first, no duplicates, at most MaxPreloadGroups
	preload := []string{c.DefaultGroup}
	for _, name := range c.PreloadGroups {
		name = strings.TrimSpace(name)
		if name == "" || name == c.DefaultGroup {
			continue
		}
		if !validGroupName(name) {
			return fmt.Errorf("invalid preload group %q", name)
		}
		dup := false
		for _, p := range preload {
			dup = dup || p == name
		}
		if !dup {
			preload = append(preload, name)
		}
	}
	if len(preload) > MaxPreloadGroups {
		Logger.Warningf("only the first %d preload groups are loaded, ignoring %v", MaxPreloadGroups, preload[MaxPreloadGroups:])
		preload = preload[:MaxPreloadGroups]
	}
	c.PreloadGroups = preload

	if c.MaxGroupNumber < len(preload) {
		return fmt.Errorf("max group number %d is lower than the number of preload groups (%d)", c.MaxGroupNumber, len(preload))
	}
	return nil
}

// --------------------------------------------------------------------------
// Manager
// --------------------------------------------------------------------------

// FlushStats describes the periodic persistence
type FlushStats struct {
	Flushes      uint64        `json:"flushes"`
	Failures     uint64        `json:"failures"`
	Groups       uint64        `json:"groups_written"`
	LastFlush    time.Time     `json:"last_flush"`
	LastDuration time.Duration `json:"last_duration"`
}

// DataBaseManager owns all loaded groups. A single mutex guards the whole
// manager and is held for the full duration of every operation.
type DataBaseManager struct {
	mu     sync.Mutex
	cfg    Config
	groups map[string]*Group
	stats  FlushStats
	closed bool
}

// NewDataBaseManager creates the storage root if needed and preloads the
// configured groups. An error means the storage is unusable.
func NewDataBaseManager(cfg Config) (*DataBaseManager, error) {
	if err := cfg.normalize(); err != nil {
		return nil, store.NewError(store.RetCInvalidOperation, err.Error())
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, store.Errorf(store.RetCStorageIO, "create storage root: %v", err)
	}

	m := &DataBaseManager{
		cfg:    cfg,
		groups: make(map[string]*Group),
	}

	for _, name := range cfg.PreloadGroups {
		if _, err := m.loadLocked(name); err != nil {
			return nil, err
		}
	}

	Logger.Infof("storage ready at %s, preloaded groups %v", cfg.Root, cfg.PreloadGroups)
	return m, nil
}

// Config returns the normalized configuration
func (m *DataBaseManager) Config() Config {
	return m.cfg
}

// Now returns the current time of the manager's clock
func (m *DataBaseManager) Now() time.Time {
	return m.cfg.Clock()
}

func (m *DataBaseManager) nowMs() int64 {
	return m.cfg.Clock().UnixMilli()
}

// loadLocked returns a loaded group or loads it. The caller holds m.mu.
func (m *DataBaseManager) loadLocked(name string) (*Group, error) {
	if g, ok := m.groups[name]; ok {
		return g, nil
	}
	if m.closed {
		return nil, store.NewError(store.RetCInternalError, "storage is closed")
	}
	if !validGroupName(name) {
		return nil, store.Errorf(store.RetCGroupNotFound, "invalid group name %q", name)
	}
	if len(m.groups) >= m.cfg.MaxGroupNumber {
		return nil, store.NewError(store.RetCGroupNotFound, "group not found or group limit reached")
	}

	g := newGroup(m.cfg.Root, name, m.cfg.Factory(m.cfg.GroupCapacity))
	if err := g.load(); err != nil {
		g.index.Close()
		return nil, err
	}
	g.locked = name == m.cfg.DefaultGroup || name == SystemGroup

	m.groups[name] = g
	Logger.Debugf("loaded group %s (%d entries)", name, g.index.Len())

	// a loaded group may push the total over the limit
	for m.totalLocked() > m.cfg.MaxIndexNumber {
		if !m.evictLocked() {
			break
		}
	}
	return g, nil
}

func (m *DataBaseManager) totalLocked() int {
	total := 0
	for _, g := range m.groups {
		total += g.index.Len()
	}
	return total
}

// evictLocked makes room for one entry: expired entries go first, then the
// least recently used entry of the largest group
func (m *DataBaseManager) evictLocked() bool {
	purged := 0
	for _, g := range m.groups {
		if n := g.index.PurgeExpired(); n > 0 {
			g.dirty = true
			purged += n
		}
	}
	if purged > 0 {
		return true
	}

	var largest *Group
	for _, g := range m.groups {
		if largest == nil || g.index.Len() > largest.index.Len() ||
			(g.index.Len() == largest.index.Len() && g.name < largest.name) {
			largest = g
		}
	}
	if largest == nil {
		return false
	}
	key, ok := largest.index.RemoveOldest()
	if ok {
		largest.dirty = true
		Logger.Debugf("index limit reached, evicted %s from %s", key, largest.name)
	}
	return ok
}

// --------------------------------------------------------------------------
// Group Operations
// --------------------------------------------------------------------------

// SelectTo ensures the group is loaded. Selecting a loaded group is a no-op.
func (m *DataBaseManager) SelectTo(group string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.loadLocked(group)
	return err
}

// Clean removes all entries of a group
func (m *DataBaseManager) Clean(group string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.loadLocked(group)
	if err != nil {
		return err
	}
	g.index.Clean()
	g.dirty = true
	return nil
}

// Lock marks a group as locked, locked groups cannot be unloaded
func (m *DataBaseManager) Lock(group string) error {
	return m.setLocked(group, true)
}

// Unlock removes the lock of a group
func (m *DataBaseManager) Unlock(group string) error {
	return m.setLocked(group, false)
}

func (m *DataBaseManager) setLocked(group string, locked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.loadLocked(group)
	if err != nil {
		return err
	}
	g.locked = locked
	return nil
}

// Unload flushes a group and drops it from memory
func (m *DataBaseManager) Unload(group string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.groups[group]
	if !ok {
		return store.Errorf(store.RetCGroupNotFound, "group %s is not loaded", group)
	}
	if g.locked {
		return store.Errorf(store.RetCGroupLocked, "group %s is locked", group)
	}
	if g.dirty {
		if err := g.flush(); err != nil {
			return err
		}
	}
	delete(m.groups, group)
	Logger.Infof("unloaded group %s", group)
	return g.index.Close()
}

// Groups returns a snapshot of all loaded groups sorted by name
func (m *DataBaseManager) Groups() []GroupInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	infos := make([]GroupInfo, 0, len(m.groups))
	for _, g := range m.groups {
		infos = append(infos, g.info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// TotalIndex returns the number of entries over all loaded groups and the limit
func (m *DataBaseManager) TotalIndex() (cur, max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalLocked(), m.cfg.MaxIndexNumber
}

// GroupInfo returns database information about the index of a group
func (m *DataBaseManager) GroupInfo(group string) (db.DatabaseInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.loadLocked(group)
	if err != nil {
		return db.DatabaseInfo{}, err
	}
	return g.index.GetInfo(), nil
}

// --------------------------------------------------------------------------
// Key Operations
// --------------------------------------------------------------------------

// Get returns the value of a key and marks it as most recently used
func (m *DataBaseManager) Get(group, key string) (value.DataValue, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.loadLocked(group)
	if err != nil {
		return nil, false, err
	}
	entry, ok := g.index.Get(key)
	if !ok {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Set stores a value. ttl 0 means the value never expires.
func (m *DataBaseManager) Set(group, key string, v value.DataValue, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.loadLocked(group)
	if err != nil {
		return err
	}

	now := m.nowMs()
	entry := db.Entry{Value: v, Timestamp: now}
	if ttl > 0 {
		entry.ExpireAt = now + ttl.Milliseconds()
	}
	m.putLocked(g, key, entry)
	return nil
}

// putLocked writes an entry and enforces the global index limit
func (m *DataBaseManager) putLocked(g *Group, key string, entry db.Entry) {
	// a full group evicts inline, the total does not grow
	_, exists := g.index.Peek(key)
	if !exists && g.index.Len() < g.index.Capacity() {
		for m.totalLocked() >= m.cfg.MaxIndexNumber {
			if !m.evictLocked() {
				break
			}
		}
	}
	if evicted, ok := g.index.Set(key, entry); ok {
		Logger.Debugf("group %s is full, evicted %s", g.name, evicted)
	}
	g.dirty = true
}

// Delete removes a key and reports whether it existed
func (m *DataBaseManager) Delete(group, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.loadLocked(group)
	if err != nil {
		return false, err
	}
	ok := g.index.Delete(key)
	if ok {
		g.dirty = true
	}
	return ok, nil
}

// ContainsKey reports whether a live value exists for a key
func (m *DataBaseManager) ContainsKey(group, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.loadLocked(group)
	if err != nil {
		return false, err
	}
	return g.index.Has(key), nil
}

// Keys returns all live keys of a group, least recently used first
func (m *DataBaseManager) Keys(group string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.loadLocked(group)
	if err != nil {
		return nil, err
	}
	return g.index.Keys(), nil
}

// Meta returns the entry of a key without touching the recency order
func (m *DataBaseManager) Meta(group, key string) (db.Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.loadLocked(group)
	if err != nil {
		return db.Entry{}, false, err
	}
	entry, ok := g.index.Peek(key)
	return entry, ok, nil
}

// Update runs fn on the entry of an existing key while holding the lock
// and stores the result. If fn returns an error nothing is written.
func (m *DataBaseManager) Update(group, key string, fn func(entry *db.Entry) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.loadLocked(group)
	if err != nil {
		return err
	}

	entry, ok := g.index.Get(key)
	if !ok {
		return store.Errorf(store.RetCKeyNotFound, "Key '%s' not found.", key)
	}
	if err := fn(&entry); err != nil {
		return err
	}
	entry.Timestamp = m.nowMs()
	m.putLocked(g, key, entry)
	return nil
}

// --------------------------------------------------------------------------
// Persistence
// --------------------------------------------------------------------------

// Flush writes every dirty group to disk. Failing groups stay dirty and
// are retried by the next flush.
func (m *DataBaseManager) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushLocked()
}

func (m *DataBaseManager) flushLocked() error {
	start := time.Now()
	var errs []error
	written := 0
	for _, g := range m.groups {
		if !g.dirty {
			continue
		}
		if err := g.flush(); err != nil {
			errs = append(errs, err)
			continue
		}
		written++
	}

	m.stats.Flushes++
	m.stats.Groups += uint64(written)
	m.stats.LastFlush = start
	m.stats.LastDuration = time.Since(start)
	if len(errs) > 0 {
		m.stats.Failures++
	}
	if written > 0 {
		Logger.Debugf("flushed %d groups in %s", written, m.stats.LastDuration)
	}
	return errors.Join(errs...)
}

// FlushStats returns statistics about the persistence
func (m *DataBaseManager) FlushStats() FlushStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Run flushes periodically until ctx is done. Errors are logged and the
// affected groups are retried on the next tick.
func (m *DataBaseManager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.FlushInterval)
	defer ticker.Stop()
	Logger.Infof("flushing every %s", m.cfg.FlushInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Flush(); err != nil {
				Logger.Errorf("periodic flush failed: %v", err)
			}
		}
	}
}

// Close performs a final flush and releases all groups
func (m *DataBaseManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	err := m.flushLocked()
	for name, g := range m.groups {
		g.index.Close()
		delete(m.groups, name)
	}
	m.closed = true
	return err
}
