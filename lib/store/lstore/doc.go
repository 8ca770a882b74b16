// Package lstore implements the grouped storage engine of the server: a set
// of named groups, each with a bounded in-memory index, backed by one file
// per group and flushed periodically.
//
// Key Components:
//
//   - DataBaseManager: owns all loaded groups. Every operation acquires the
//     single manager mutex for its whole duration, so at most one writer acts
//     on a group at any time. The manager is passed explicitly to its users,
//     there is no global instance.
//
//   - Group: a named key space with a db.KVDB index (strict LRU, capacity
//     capped), the path of its backing file, a dirty flag and a lock flag.
//     Locked groups cannot be unloaded. The default group and the system
//     group are locked as soon as they are loaded.
//
//   - Local Store: NewLocalStore binds a store.IStore to the manager. It is
//     used by in-process callers such as script evaluators.
//
// Limits:
//
//   - MaxGroupNumber bounds the number of loaded groups. Selecting a new group
//     beyond the limit fails with RetCGroupNotFound.
//   - GroupCapacity bounds each index; inserting a new key into a full group
//     evicts its least recently used key.
//   - MaxIndexNumber (at most 2,048,000) bounds the sum over all groups. When
//     a new key would exceed it, expired entries are purged first, then the
//     least recently used key of the largest group is evicted.
//   - At most four groups are preloaded at startup, the default group first.
//
// Persistence:
//
// Each group lives in <root>/<group>.db. The first line of the file is the
// header "Dorea::<group> <format-version>", followed by the binary body
// written by the index (see lib/db/engines/lru). A flush writes a temporary
// file and renames it over the old one, so a crash never leaves a partially
// written group file. Files with a wrong header are rejected on load.
//
// Run flushes all dirty groups every FlushInterval until its context is
// cancelled; Close performs a final flush. Flush errors are logged and the
// affected groups stay dirty, so they are retried by the next flush.
//
// Usage Example:
//
//	m, err := lstore.NewDataBaseManager(lstore.DefaultConfig("./data"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer m.Close()
//	go m.Run(ctx)
//
//	s := lstore.NewLocalStore(m, "")
//	err = s.Set("session:123", value.String("data"), 300)
//	v, ok, err := s.Get("session:123")
package lstore
