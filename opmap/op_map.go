// Package opmap provides a type-safe concurrent table built on sync.Map,
// tailored to tracking in-flight asynchronous operation records. Besides the
// usual store/load/delete operations it supports Drain, which atomically
// removes and returns every entry, used when all pending operations on a
// handle must be aborted at once.
package opmap

import "sync"

// Map is a concurrent table that is safe for use by multiple goroutines.
// It wraps sync.Map and exposes a generic, type-safe API. Keys must be
// comparable; values may be any type.
//
// Map must not be copied after first use. Store and Load operations are
// amortized O(1). Len, Range, and Drain are O(n) in the number of entries.
type Map[K comparable, V any] struct {
	m sync.Map
}

// NewMap returns a new Map ready for use. The table is empty and safe for
// concurrent use by multiple goroutines.
//
// Returns:
//   - A pointer to a new Map[K, V]
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{}
}

// Store sets the value for key k. It overwrites any existing value for k.
//
// Parameters:
//   - k: The key to store
//   - v: The value to associate with k
func (m *Map[K, V]) Store(k K, v V) {
	m.m.Store(k, v)
}

// Load returns the value for key k and a boolean indicating whether the key
// was present. If the key is not in the table, the value is the zero value
// for V and the boolean is false.
//
// Parameters:
//   - k: The key to look up
//
// Returns:
//   - The value associated with k, or the zero value of V if not found
//   - true if the key was present, false otherwise
func (m *Map[K, V]) Load(k K) (V, bool) {
	v, found := m.m.Load(k)
	if !found {
		var empty V
		return empty, found
	}

	return v.(V), found
}

// LoadAndDelete removes the entry for key k and returns its previous value,
// if any. At most one concurrent caller observes the value for a given key.
//
// Parameters:
//   - k: The key to remove
//
// Returns:
//   - The value previously associated with k, or the zero value of V
//   - true if the key was present, false otherwise
func (m *Map[K, V]) LoadAndDelete(k K) (V, bool) {
	v, found := m.m.LoadAndDelete(k)
	if !found {
		var empty V
		return empty, found
	}

	return v.(V), found
}

// Delete removes the entry for key k. It is safe to call for a key that
// is not in the table; the call is a no-op in that case.
//
// Parameters:
//   - k: The key to delete
func (m *Map[K, V]) Delete(k K) {
	m.m.Delete(k)
}

// Range calls f sequentially for each key and value present in the table.
// If f returns false, Range stops the iteration.
//
// Parameters:
//   - f: Function called for each entry; return false to stop iteration
func (m *Map[K, V]) Range(f func(k K, v V) bool) {
	m.m.Range(func(k, v interface{}) bool {
		return f(k.(K), v.(V))
	})
}

// Drain removes every entry from the table and returns the removed values.
// Each entry is claimed with LoadAndDelete, so an entry concurrently removed
// by another goroutine appears in at most one of the two results.
//
// Returns:
//   - A slice of the values that were removed; empty if the table was empty
func (m *Map[K, V]) Drain() []V {
	var drained []V
	m.m.Range(func(k, _ interface{}) bool {
		if v, found := m.m.LoadAndDelete(k); found {
			drained = append(drained, v.(V))
		}
		return true
	})

	return drained
}

// Len returns the number of entries in the table. It iterates over all
// entries to compute the count; use sparingly on large tables.
//
// Returns:
//   - The number of key-value pairs in the table
func (m *Map[K, V]) Len() int {
	length := 0
	m.Range(func(k K, v V) bool {
		length++
		return true
	})

	return length
}
