package primitives

import (
	"maps"
	"sync"
)

// ExtendedState is the key/value data a machine carries next to its active configuration.
// Actions, guards and custom handlers receive it. Reads may come from other goroutines
// (a Runner serving HTTP queries), so access is guarded.
type ExtendedState struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewExtendedState creates an empty ExtendedState.
func NewExtendedState() *ExtendedState {
	return &ExtendedState{data: make(map[string]any)}
}

// Get returns the value stored under key.
func (s *ExtendedState) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores val under key.
func (s *ExtendedState) Set(key string, val any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = val
}

// Delete removes key.
func (s *ExtendedState) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Int returns the value under key as an int, or 0.
func (s *ExtendedState) Int(key string) int {
	v, _ := s.Get(key)
	return toInt(v)
}

// toInt accepts the numeric types a value has after a JSON or YAML round trip.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// Incr adds delta to the int stored under key and returns the new value.
func (s *ExtendedState) Incr(key string, delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := toInt(s.data[key]) + delta
	s.data[key] = n
	return n
}

// Snapshot returns a copy of the stored data for persistence.
func (s *ExtendedState) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data)
}

// Restore replaces the stored data with a copy of snap.
func (s *ExtendedState) Restore(snap map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]any, len(snap))
	maps.Copy(s.data, snap)
}
