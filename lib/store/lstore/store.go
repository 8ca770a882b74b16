package lstore

import (
	"sync"
	"time"

	"github.com/ValentinKolb/dorea/lib/store"
	"github.com/ValentinKolb/dorea/lib/value"
)

type storeImpl struct {
	m     *DataBaseManager
	mu    sync.RWMutex
	group string
}

// NewLocalStore creates a store.IStore that operates directly on the manager.
// The store starts in the given group, an empty group selects the default group.
func NewLocalStore(m *DataBaseManager, group string) store.IStore {
	if group == "" {
		group = m.cfg.DefaultGroup
	}
	return &storeImpl{m: m, group: group}
}

func (s *storeImpl) current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.group
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Select(group string) error {
	if err := s.m.SelectTo(group); err != nil {
		return err
	}
	s.mu.Lock()
	s.group = group
	s.mu.Unlock()
	return nil
}

func (s *storeImpl) Group() string {
	return s.current()
}

func (s *storeImpl) Set(key string, v value.DataValue, ttl uint64) error {
	if ttl > MaxTTLSeconds {
		return store.Errorf(store.RetCInvalidOperation, "ttl %d exceeds the limit of %d seconds", ttl, uint64(MaxTTLSeconds))
	}
	return s.m.Set(s.current(), key, v, time.Duration(ttl)*time.Second)
}

func (s *storeImpl) Delete(key string) error {
	_, err := s.m.Delete(s.current(), key)
	return err
}

func (s *storeImpl) Get(key string) (value.DataValue, bool, error) {
	return s.m.Get(s.current(), key)
}

func (s *storeImpl) Has(key string) (bool, error) {
	return s.m.ContainsKey(s.current(), key)
}

func (s *storeImpl) Clean() error {
	return s.m.Clean(s.current())
}
