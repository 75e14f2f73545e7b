package session

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"
)

const shardCount = 16

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// MemoryStore is a sharded in-process Store with idle eviction.
type MemoryStore struct {
	shards  [shardCount]*shard
	idleTTL time.Duration
	now     func() time.Time
}

func NewMemoryStore(idleTTL time.Duration) *MemoryStore {
	m := &MemoryStore{idleTTL: idleTTL, now: time.Now}
	for i := range m.shards {
		m.shards[i] = &shard{sessions: make(map[string]*Session)}
	}
	return m
}

func shardIndex(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % shardCount
}

func (m *MemoryStore) shardFor(userID string) *shard {
	return m.shards[shardIndex(userID)]
}

func (m *MemoryStore) Get(_ context.Context, userID string) (*Session, error) {
	sh := m.shardFor(userID)
	sh.mu.RLock()
	s, ok := sh.sessions[userID]
	sh.mu.RUnlock()
	if !ok || m.expired(s) {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	c := s.Clone()
	c.UpdatedAt = m.now()
	sh := m.shardFor(s.UserID)
	sh.mu.Lock()
	sh.sessions[s.UserID] = c
	sh.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID string) error {
	sh := m.shardFor(userID)
	sh.mu.Lock()
	delete(sh.sessions, userID)
	sh.mu.Unlock()
	return nil
}

func (m *MemoryStore) Len() int {
	n := 0
	for _, sh := range m.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

func (m *MemoryStore) expired(s *Session) bool {
	return m.idleTTL > 0 && m.now().Sub(s.UpdatedAt) > m.idleTTL
}

// Sweep drops idle sessions and returns how many were evicted.
func (m *MemoryStore) Sweep() int {
	evicted := 0
	for _, sh := range m.shards {
		sh.mu.Lock()
		for id, s := range sh.sessions {
			if m.expired(s) {
				delete(sh.sessions, id)
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	return evicted
}

// Run sweeps every interval until ctx is done.
func (m *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Info("evicted idle sessions", "count", n)
			}
		}
	}
}
