// Package util
//
// This file provides a priority queue with key based access. The engines use
// it to track when entries expire: the heap yields the entry that expires
// next, the map allows an entry to be rescheduled or dropped when it is
// overwritten, deleted or evicted.
//
// Complexity:
//   - O(log n) for AddItem, RemoveByKey and PopMin
//   - O(1) for Peek, Contains and GetByKey
//
// Example usage:
//
//	expiry := NewMapHeap[string]()
//	expiry.AddItem("session:1", deadline1)
//	expiry.AddItem("session:2", deadline2)
//
//	for {
//	    next, ok := expiry.Peek()
//	    if !ok || next.Priority > now {
//	        break
//	    }
//	    expiry.PopMin()
//	    // drop next.Key from the index
//	}
package util

import (
	"container/heap"
	"fmt"
)

// item is an entry of the MapHeap
type item[K comparable] struct {
	Key      K      // Unique identifier for the item
	Priority uint64 // Lower values are popped first
	index    int    // Index in the heap, maintained by the heap package
}

func (i *item[K]) String() string {
	return fmt.Sprintf("{Key: %v, Priority: %d}", i.Key, i.Priority)
}

// MapHeap is a min-heap ordered by priority that also supports access by key
type MapHeap[K comparable] struct {
	items    []*item[K]
	itemsMap map[K]*item[K]
}

// NewMapHeap creates an empty MapHeap. The returned heap is ready for use,
// heap.Init is not required.
func NewMapHeap[K comparable]() *MapHeap[K] {
	return &MapHeap[K]{
		items:    make([]*item[K], 0),
		itemsMap: make(map[K]*item[K]),
	}
}

// --------------------------------------------------------------------------
// heap.Interface
// --------------------------------------------------------------------------

func (h *MapHeap[K]) Len() int { return len(h.items) }

func (h *MapHeap[K]) Less(i, j int) bool {
	return h.items[i].Priority < h.items[j].Priority
}

func (h *MapHeap[K]) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *MapHeap[K]) Push(x interface{}) {
	it := x.(*item[K])
	it.index = len(h.items)
	h.items = append(h.items, it)
	h.itemsMap[it.Key] = it
}

func (h *MapHeap[K]) Pop() interface{} {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil // avoid memory leak
	it.index = -1
	h.items = old[:n-1]
	delete(h.itemsMap, it.Key)
	return it
}

// --------------------------------------------------------------------------
// Key based access
// --------------------------------------------------------------------------

// AddItem adds a new item or updates the priority of an existing one
func (h *MapHeap[K]) AddItem(key K, priority uint64) {
	if it, exists := h.itemsMap[key]; exists {
		it.Priority = priority
		heap.Fix(h, it.index)
		return
	}
	heap.Push(h, &item[K]{Key: key, Priority: priority})
}

// RemoveByKey removes an item and returns its priority
func (h *MapHeap[K]) RemoveByKey(key K) (uint64, bool) {
	it, exists := h.itemsMap[key]
	if !exists {
		return 0, false
	}
	heap.Remove(h, it.index)
	return it.Priority, true
}

// Peek returns the item with the lowest priority without removing it
func (h *MapHeap[K]) Peek() (*item[K], bool) {
	if len(h.items) == 0 {
		return nil, false
	}
	return h.items[0], true
}

// PopMin removes and returns the item with the lowest priority
func (h *MapHeap[K]) PopMin() (*item[K], bool) {
	if len(h.items) == 0 {
		return nil, false
	}
	return heap.Pop(h).(*item[K]), true
}

// Contains checks if a key is scheduled
func (h *MapHeap[K]) Contains(key K) bool {
	_, exists := h.itemsMap[key]
	return exists
}

// GetByKey returns the item for a key without removing it
func (h *MapHeap[K]) GetByKey(key K) (*item[K], bool) {
	it, exists := h.itemsMap[key]
	return it, exists
}

// Clear removes all items
func (h *MapHeap[K]) Clear() {
	h.items = make([]*item[K], 0)
	h.itemsMap = make(map[K]*item[K])
}
