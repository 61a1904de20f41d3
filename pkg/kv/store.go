// Package kv provides a generic thread-safe key-value store with optional
// bounded capacity.
package kv

import (
	"slices"
	"sync"
)

// Store is a thread-safe generic key-value store. When capacity is positive,
// inserting a new key beyond it evicts the least recently written key.
type Store[K comparable, V any] struct {
	mu       sync.RWMutex
	data     map[K]V
	order    []K
	capacity int
	onEvict  func(K, V)
}

// Option configures a Store.
type Option[K comparable, V any] func(*Store[K, V])

// WithCapacity bounds the number of keys held.
func WithCapacity[K comparable, V any](n int) Option[K, V] {
	return func(s *Store[K, V]) { s.capacity = n }
}

// WithEvictHook registers a callback for evicted entries. It runs with the
// store locked and must not call back into the store.
func WithEvictHook[K comparable, V any](fn func(K, V)) Option[K, V] {
	return func(s *Store[K, V]) { s.onEvict = fn }
}

// New creates a new key-value store.
func New[K comparable, V any](opts ...Option[K, V]) *Store[K, V] {
	s := &Store[K, V]{data: make(map[K]V)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves a value by key.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

// Set stores a value by key.
func (s *Store[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(key, value)
}

// Update atomically replaces the value of key with fn's result. fn receives
// the current value and whether it existed.
func (s *Store[K, V]) Update(key K, fn func(V, bool) V) V {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.data[key]
	next := fn(cur, ok)
	s.set(key, next)
	return next
}

func (s *Store[K, V]) set(key K, value V) {
	if _, ok := s.data[key]; ok {
		s.order = slices.DeleteFunc(s.order, func(k K) bool { return k == key })
	}
	s.data[key] = value
	s.order = append(s.order, key)

	for s.capacity > 0 && len(s.order) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		if s.onEvict != nil {
			s.onEvict(oldest, s.data[oldest])
		}
		delete(s.data, oldest)
	}
}

// Delete removes a key from the store.
func (s *Store[K, V]) Delete(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return
	}
	delete(s.data, key)
	s.order = slices.DeleteFunc(s.order, func(k K) bool { return k == key })
}

// Len returns the number of items in the store.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Keys returns all keys, least recently written first.
func (s *Store[K, V]) Keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}
