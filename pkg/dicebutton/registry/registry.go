// Package registry provides the immutable routing tables the framework
// dispatches on. A table is constructed once at process start from a
// complete entry map and never mutated afterwards, so lookups need no
// locking and the dispatch surface is fixed for the process lifetime.
package registry

// Table is an immutable lookup table for values indexed by key.
type Table[K comparable, V any] struct {
	entries map[K]V
}

// New builds a table from the given entries. The map is copied; later
// mutation of the argument does not affect the table.
func New[K comparable, V any](entries map[K]V) *Table[K, V] {
	copied := make(map[K]V, len(entries))
	for k, v := range entries {
		copied[k] = v
	}
	return &Table[K, V]{entries: copied}
}

// Get returns the value for a key and whether it exists.
func (t *Table[K, V]) Get(key K) (V, bool) {
	v, ok := t.entries[key]
	return v, ok
}

// Has returns true if the key exists in the table.
func (t *Table[K, V]) Has(key K) bool {
	_, ok := t.entries[key]
	return ok
}

// Keys returns all keys in the table. The order is not guaranteed.
func (t *Table[K, V]) Keys() []K {
	keys := make([]K, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of entries in the table.
func (t *Table[K, V]) Len() int {
	return len(t.entries)
}
