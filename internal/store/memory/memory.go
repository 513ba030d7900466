package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"resaletracker/backend/internal/store"
)

var ErrOffline = errors.New("memory backend offline")

// Store is an in-process document backend. It enforces an optional byte
// capacity like a browser-style local cache and can be switched offline,
// slowed down or made to reject writes for a key prefix.
type Store struct {
	mu         sync.RWMutex
	name       string
	docs       map[string][]byte
	capacity   int
	offline    bool
	latency    time.Duration
	failPrefix string
	failErr    error
}

func New(capacity int) *Store {
	return NewNamed("memory", capacity)
}

func NewNamed(name string, capacity int) *Store {
	return &Store{
		name:     name,
		docs:     make(map[string][]byte),
		capacity: capacity,
	}
}

func (s *Store) Name() string {
	return s.name
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.wait(ctx); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.offline {
		return nil, false, ErrOffline
	}
	payload, ok := s.docs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), payload...), true, nil
}

func (s *Store) Put(ctx context.Context, key string, payload []byte) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return ErrOffline
	}
	if s.failErr != nil && strings.HasPrefix(key, s.failPrefix) {
		return s.failErr
	}

	used := 0
	for _, doc := range s.docs {
		used += len(doc)
	}
	if err := store.CheckQuota(key, s.capacity, used, len(s.docs[key]), payload); err != nil {
		return err
	}
	s.docs[key] = append([]byte(nil), payload...)
	return nil
}

// SetOffline makes every call fail with ErrOffline.
func (s *Store) SetOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = offline
}

// SetLatency delays every call; a context deadline shorter than the
// latency aborts the call.
func (s *Store) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// FailWrites rejects writes to keys with the given prefix. A nil err
// clears the rule.
func (s *Store) FailWrites(prefix string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPrefix = prefix
	s.failErr = err
}

func (s *Store) SetCapacity(capacity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capacity = capacity
}

func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.docs))
	for key := range s.docs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) wait(ctx context.Context) error {
	s.mu.RLock()
	latency := s.latency
	s.mu.RUnlock()
	if latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
