package middleware

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"saas-platform/internal/cache"
)

// memStore is an in-memory cache.Store used across the middleware
// tests. TTLs are recorded but entries never expire on their own; the
// rate limiter's own resetTime bookkeeping is what the tests exercise.
type memStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration

	failReads  bool
	failWrites bool
}

func newMemStore() *memStore {
	return &memStore{
		data: map[string]string{},
		ttls: map[string]time.Duration{},
	}
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return "", errors.New("store unavailable")
	}
	val, ok := s.data[key]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return val, nil
}

func (s *memStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return errors.New("store unavailable")
	}
	s.data[key] = value
	s.ttls[key] = ttl
	return nil
}

func (s *memStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
		delete(s.ttls, key)
	}
	return nil
}

func (s *memStore) Keys(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for key := range s.data {
		if matchGlob(pattern, key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// matchGlob implements the subset of redis MATCH the middleware relies
// on: literal characters plus '*' spanning any run, slashes included.
func matchGlob(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(s, part)
		if idx < 0 {
			return false
		}
		s = s[idx+len(part):]
	}
	return strings.HasSuffix(s, parts[len(parts)-1])
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
