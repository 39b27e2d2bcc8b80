// Package defaultmap implements a thread safe map that returns a
// default value for absent keys.
package defaultmap

import (
	"sync"
)

// Map is a thread safe map returning a default value for keys
// that have never been set.
type Map[K comparable, V any] struct {
	mx          sync.RWMutex
	data        map[K]V
	defaultFunc func() V
}

// New returns an empty Map whose absent keys read as defaultFunc().
func New[K comparable, V any](defaultFunc func() V) *Map[K, V] {
	return &Map[K, V]{
		data:        make(map[K]V),
		defaultFunc: defaultFunc,
	}
}

// Get returns the value stored for key, or the default value.
// Reading an absent key does not insert it.
func (m *Map[K, V]) Get(key K) V {
	m.mx.RLock()
	v, ok := m.data[key]
	m.mx.RUnlock()
	if !ok {
		return m.defaultFunc()
	}

	return v
}

// Lookup returns the value stored for key and whether it was present.
func (m *Map[K, V]) Lookup(key K) (V, bool) {
	m.mx.RLock()
	defer m.mx.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *Map[K, V]) Set(key K, val V) {
	m.mx.Lock()
	m.data[key] = val
	m.mx.Unlock()
}

// Update replaces the value for key with f(current value).
func (m *Map[K, V]) Update(key K, f func(V) V) {
	m.mx.Lock()
	v, ok := m.data[key]
	if !ok {
		v = m.defaultFunc()
	}
	m.data[key] = f(v)
	m.mx.Unlock()
}

func (m *Map[K, V]) Delete(key K) {
	m.mx.Lock()
	delete(m.data, key)
	m.mx.Unlock()
}

func (m *Map[K, V]) Count() int {
	m.mx.RLock()
	defer m.mx.RUnlock()
	return len(m.data)
}

// Reset removes every key.
func (m *Map[K, V]) Reset() {
	m.mx.Lock()
	m.data = make(map[K]V)
	m.mx.Unlock()
}

// Foreach calls it for every entry until it returns false.
// it must not modify the map.
func (m *Map[K, V]) Foreach(it func(K, V) bool) {
	m.mx.RLock()
	defer m.mx.RUnlock()
	for k, v := range m.data {
		if !it(k, v) {
			break
		}
	}
}

// Copy returns a snapshot of the stored entries.
func (m *Map[K, V]) Copy() map[K]V {
	m.mx.RLock()
	defer m.mx.RUnlock()
	result := make(map[K]V, len(m.data))
	for k, v := range m.data {
		result[k] = v
	}

	return result
}
