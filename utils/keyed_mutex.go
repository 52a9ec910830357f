package utils

import "sync"

// KeyedMutex serializes work per key while leaving different keys
// independent. Entries are reference counted and dropped when unused.
type KeyedMutex[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex[K comparable]() *KeyedMutex[K] {
	return &KeyedMutex[K]{entries: make(map[K]*keyedEntry)}
}

// Lock blocks until key is free and returns the function that frees it.
func (m *KeyedMutex[K]) Lock(key K) (unlock func()) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &keyedEntry{}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			m.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(m.entries, key)
			}
			m.mu.Unlock()
		})
	}
}

// Len returns the number of keys locked or waited on.
func (m *KeyedMutex[K]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// MemberKey is the KeyedMutex key for one member of a guild.
func MemberKey(guildID, userID string) string {
	return guildID + ":" + userID
}
