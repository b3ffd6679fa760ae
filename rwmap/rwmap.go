package rwmap

import (
	"sync"
)

// RWMap is a read-write-locked map keyed by CAN ID, used for lookup tables
// that are mutated from one goroutine and read from many.
type RWMap struct {
	sync.RWMutex
	m map[uint32]any
}

func NewRWMap(n int) *RWMap {
	return &RWMap{
		m: make(map[uint32]any, n),
	}
}

func (m *RWMap) Get(key uint32) (any, bool) {
	m.RLock()
	defer m.RUnlock()
	v, existed := m.m[key]
	return v, existed
}

func (m *RWMap) Set(key uint32, v any) {
	m.Lock()
	defer m.Unlock()
	m.m[key] = v
}

func (m *RWMap) Delete(key uint32) {
	m.Lock()
	defer m.Unlock()
	delete(m.m, key)
}

func (m *RWMap) Clear() {
	m.Lock()
	defer m.Unlock()
	m.m = map[uint32]any{}
}

func (m *RWMap) Len() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.m)
}

// Each holds the read lock for the whole traversal.
func (m *RWMap) Each(f func(key uint32, v any) bool) {
	m.RLock()
	defer m.RUnlock()

	for key, v := range m.m {
		if !f(key, v) {
			return
		}
	}
}
