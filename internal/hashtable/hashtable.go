// Package hashtable implements a generic hash table with separate chaining
// and doubling growth.
//
// A Table is not safe for concurrent use. Callers sharing one across
// goroutines must guard it with a single lock.
package hashtable

import (
	"errors"
	"fmt"
	"hash/maphash"
	"iter"
	"slices"
)

const (
	LoadFactorThreshold = 0.75
	GrowthFactor        = 2
)

var ErrInvalidCapacity = errors.New("capacity must be at least 1")

// seed is shared by every table so Hash is stable for the life of the process.
var seed = maphash.MakeSeed()

type entry[K comparable, V any] struct {
	key   K
	value V
}

type bucket[K comparable, V any] []entry[K, V]

type Table[K comparable, V any] struct {
	buckets []bucket[K, V]
	size    int
}

func New[K comparable, V any](capacity int) (*Table[K, V], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}

	return &Table[K, V]{
		buckets: make([]bucket[K, V], capacity),
	}, nil
}

// Hash returns the 64-bit hash of key.
func Hash[K comparable](key K) uint64 {
	return maphash.Comparable(seed, key)
}

func indexFor[K comparable](key K, capacity int) int {
	return int(Hash(key) % uint64(capacity))
}

// Index returns the bucket key maps to at the current capacity.
func (t *Table[K, V]) Index(key K) int {
	return indexFor(key, len(t.buckets))
}

func (t *Table[K, V]) Insert(key K, value V) {
	if t.needsGrow() {
		t.resize()
	}

	if place(t.buckets, key, value) {
		t.size++
	}
}

func (t *Table[K, V]) Get(key K) (V, bool) {
	for _, e := range t.buckets[t.Index(key)] {
		if e.key == key {
			return e.value, true
		}
	}

	var zero V
	return zero, false
}

func (t *Table[K, V]) Contains(key K) bool {
	_, ok := t.Get(key)
	return ok
}

func (t *Table[K, V]) Remove(key K) (V, bool) {
	i := t.Index(key)
	b := t.buckets[i]
	for j, e := range b {
		if e.key == key {
			t.buckets[i] = slices.Delete(b, j, j+1)
			t.size--
			return e.value, true
		}
	}

	var zero V
	return zero, false
}

func (t *Table[K, V]) Len() int {
	return t.size
}

func (t *Table[K, V]) Cap() int {
	return len(t.buckets)
}

func (t *Table[K, V]) LoadFactor() float64 {
	return float64(t.size) / float64(len(t.buckets))
}

// All yields every entry. The order is unspecified and changes across resizes.
func (t *Table[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, b := range t.buckets {
			for _, e := range b {
				if !yield(e.key, e.value) {
					return
				}
			}
		}
	}
}

func (t *Table[K, V]) Keys() []K {
	keys := make([]K, 0, t.size)
	for k := range t.All() {
		keys = append(keys, k)
	}
	return keys
}

// needsGrow reports size >= 0.75 * capacity without going through floats.
func (t *Table[K, V]) needsGrow() bool {
	return t.size*4 >= len(t.buckets)*3
}

func (t *Table[K, V]) resize() {
	grown := make([]bucket[K, V], len(t.buckets)*GrowthFactor)
	for _, b := range t.buckets {
		for _, e := range b {
			place(grown, e.key, e.value)
		}
	}
	t.buckets = grown
}

// place overwrites an existing key or appends a new entry, and reports
// whether the entry is new.
func place[K comparable, V any](buckets []bucket[K, V], key K, value V) bool {
	i := indexFor(key, len(buckets))
	b := buckets[i]
	for j := range b {
		if b[j].key == key {
			b[j].value = value
			return false
		}
	}

	buckets[i] = append(b, entry[K, V]{key: key, value: value})
	return true
}
