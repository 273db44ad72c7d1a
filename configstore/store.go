// Package configstore holds a registry's named policies as an ordered map
// from string keys to typed config values.
package configstore

import (
	"github.com/vitwit/paymentkit/types"
)

// Store is an insertion-ordered map of config values. Upsert removes an
// existing key before re-inserting it, so the most recently written key is
// always last.
//
// Store is not safe for concurrent use; store.MemoryConfig guards it.
type Store struct {
	keys   []string
	values map[string]types.ConfigValue
}

func New() *Store {
	return &Store{values: make(map[string]types.ConfigValue)}
}

// Upsert inserts value under key, replacing any previous value. There is no
// merge and no history: the last write wins.
func (s *Store) Upsert(key string, value types.ConfigValue) {
	s.Remove(key)
	s.keys = append(s.keys, key)
	s.values[key] = value
}

// Get returns the value stored under key, if any.
func (s *Store) Get(key string) (types.ConfigValue, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *Store) Contains(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Remove deletes key and returns the value it held.
func (s *Store) Remove(key string) (types.ConfigValue, bool) {
	v, ok := s.values[key]
	if !ok {
		return types.ConfigValue{}, false
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// Keys returns the keys in insertion order.
func (s *Store) Keys() []string {
	return append([]string(nil), s.keys...)
}

func (s *Store) Len() int {
	return len(s.keys)
}
