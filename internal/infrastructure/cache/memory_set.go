package cache

import (
	"context"
	"sync"
	"time"
)

// MemorySet хранит ключи с временем жизни в памяти процесса.
// Просроченные ключи не видны сразу, а удаляются фоновой очисткой.
type MemorySet struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

func NewMemorySet(cleanupInterval time.Duration) *MemorySet {
	s := &MemorySet{
		entries: make(map[string]time.Time),
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go s.cleanup(cleanupInterval)
	}

	return s
}

func (s *MemorySet) Add(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = s.now().Add(ttl)
	return nil
}

func (s *MemorySet) Contains(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiresAt, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	return s.now().Before(expiresAt), nil
}

// size возвращает число ещё не удалённых записей, включая просроченные.
func (s *MemorySet) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemorySet) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *MemorySet) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *MemorySet) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, expiresAt := range s.entries {
		if !now.Before(expiresAt) {
			delete(s.entries, key)
		}
	}
}
