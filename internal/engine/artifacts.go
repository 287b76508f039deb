package engine

import "sync"

// Artifacts is the per-execution scratch space handlers use to pass outputs
// downstream (a fetched response body feeds the file writer, the written
// file feeds the compressor, and so on). It is safe for concurrent use.
type Artifacts struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewArtifacts creates an empty artifact store.
func NewArtifacts() *Artifacts {
	return &Artifacts{
		values: make(map[string]any),
	}
}

// Put stores a value under the given key.
func (a *Artifacts) Put(key string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[key] = value
}

// Get returns the value stored under the given key.
func (a *Artifacts) Get(key string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.values[key]
	return v, ok
}

// GetString returns the value under key as a string.
// Returns false when the key is absent or holds a different type.
func (a *Artifacts) GetString(key string) (string, bool) {
	v, ok := a.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetBytes returns the value under key as a byte slice.
// Returns false when the key is absent or holds a different type.
func (a *Artifacts) GetBytes(key string) ([]byte, bool) {
	v, ok := a.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}
