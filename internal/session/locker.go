package session

import "sync"

// Locker marks users whose message is being processed. It never blocks: a
// second message for a busy user is turned away by the caller.
type Locker struct {
	shards [shardCount]lockShard
}

type lockShard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func NewLocker() *Locker {
	l := &Locker{}
	for i := range l.shards {
		l.shards[i].busy = make(map[string]struct{})
	}
	return l
}

func (l *Locker) TryAcquire(userID string) bool {
	sh := &l.shards[shardIndex(userID)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, held := sh.busy[userID]; held {
		return false
	}
	sh.busy[userID] = struct{}{}
	return true
}

func (l *Locker) Release(userID string) {
	sh := &l.shards[shardIndex(userID)]
	sh.mu.Lock()
	delete(sh.busy, userID)
	sh.mu.Unlock()
}
