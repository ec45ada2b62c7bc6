package store

import (
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lojhan/chainmap/internal/hashtable"
)

type Stats struct {
	Keys       int
	Capacity   int
	LoadFactor float64
	Resizes    int64
}

// Store guards a single hash table with one lock so command handlers on
// different event loops can share it.
type Store struct {
	mu              sync.RWMutex
	table           *hashtable.Table[string, string]
	initialCapacity int
	resizes         atomic.Int64
	logger          *zap.Logger
}

func NewStore(initialCapacity int, logger *zap.Logger) (*Store, error) {
	table, err := hashtable.New[string, string](initialCapacity)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		table:           table,
		initialCapacity: initialCapacity,
		logger:          logger,
	}, nil
}

// Set reports whether key was newly added.
func (s *Store) Set(key, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insert(key, value)
}

// SetNX stores value only when key is absent.
func (s *Store) SetNX(key, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table.Contains(key) {
		return false
	}
	return s.insert(key, value)
}

// SetXX stores value only when key is present.
func (s *Store) SetXX(key, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.table.Contains(key) {
		return false
	}
	s.insert(key, value)
	return true
}

func (s *Store) insert(key, value string) bool {
	size, capacity := s.table.Len(), s.table.Cap()
	s.table.Insert(key, value)

	if s.table.Cap() != capacity {
		s.resizes.Inc()
		s.logger.Debug("table grown",
			zap.Int("old_capacity", capacity),
			zap.Int("new_capacity", s.table.Cap()),
			zap.Int("size", size),
		)
	}

	return s.table.Len() > size
}

func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.table.Get(key)
}

func (s *Store) Delete(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.table.Remove(key)
}

func (s *Store) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.table.Contains(key)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.table.Len()
}

func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.table.Keys()
}

func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]string, s.table.Len())
	for k, v := range s.table.All() {
		result[k] = v
	}
	return result
}

// FlushDB drops every key and goes back to the initial capacity. On error
// the current keys are kept.
func (s *Store) FlushDB() error {
	table, err := hashtable.New[string, string](s.initialCapacity)
	if err != nil {
		s.logger.Error("flushing store", zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := s.table.Len()
	s.table = table
	s.logger.Info("store flushed", zap.Int("keys", dropped))
	return nil
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Keys:       s.table.Len(),
		Capacity:   s.table.Cap(),
		LoadFactor: s.table.LoadFactor(),
		Resizes:    s.resizes.Load(),
	}
}
