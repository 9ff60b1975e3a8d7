package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for development and tests. Expired
// records are dropped lazily on Get and swept by a janitor goroutine.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	done    chan struct{}
	once    sync.Once
}

// NewMemoryStore returns a MemoryStore sweeping expired records every
// sweepInterval; a non-positive interval disables the janitor.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]Record),
		done:    make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.janitor(sweepInterval)
	}
	return s
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for token, rec := range s.records {
				if now.After(rec.Expiry) {
					delete(s.records, token)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Close stops the janitor.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *MemoryStore) Get(_ context.Context, token string) (*Record, error) {
	s.mu.RLock()
	rec, ok := s.records[token]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if time.Now().After(rec.Expiry) {
		s.mu.Lock()
		delete(s.records, token)
		s.mu.Unlock()
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (s *MemoryStore) Set(_ context.Context, token string, rec *Record, ttl time.Duration) error {
	stored := *rec
	stored.Expiry = time.Now().Add(ttl)
	s.mu.Lock()
	s.records[token] = stored
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.records, token)
	s.mu.Unlock()
	return nil
}
