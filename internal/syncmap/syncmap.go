// Package syncmap is a type-safe wrapper around [sync.Map].
package syncmap

import "sync"

type syncMap = sync.Map

type Map[K comparable, V any] struct {
	syncMap
}

func (m *Map[K, V]) LoadOrStore(k K, v V) (V, bool) {
	vAny, loaded := m.syncMap.LoadOrStore(k, v)
	return vAny.(V), loaded
}

func (m *Map[K, V]) Load(k K) (V, bool) {
	vAny, ok := m.syncMap.Load(k)
	if !ok {
		vAny = *new(V)
	}
	return vAny.(V), ok
}

func (m *Map[K, V]) Delete(k K) {
	m.syncMap.Delete(k)
}

// Len returns the number of entries.  It is only a snapshot if the map is modified concurrently.
func (m *Map[K, V]) Len() int {
	n := 0
	m.syncMap.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
