package safe_map

import "sync"

// SafeMap is a generic map guarded by a RWMutex. The actor runtime uses it
// for the background task and interval operation registries, which are
// written by workers and read by the pool shutdown path concurrently.
type SafeMap[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

func New[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{
		data: make(map[K]V),
	}
}

func (m *SafeMap[K, V]) Insert(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *SafeMap[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	return value, ok
}

// Delete removes the key and reports whether it was present.
func (m *SafeMap[K, V]) Delete(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	delete(m.data, key)
	return ok
}

func (m *SafeMap[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *SafeMap[K, V]) ForEach(fn func(K, V)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for key, value := range m.data {
		fn(key, value)
	}
}

// Drain removes every entry and hands it to fn. It is used at pool
// shutdown where entries must be consumed exactly once.
func (m *SafeMap[K, V]) Drain(fn func(K, V)) {
	m.mu.Lock()
	data := m.data
	m.data = make(map[K]V)
	m.mu.Unlock()
	for key, value := range data {
		fn(key, value)
	}
}
