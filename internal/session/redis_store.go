package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "atsbot:session:"

// RedisStore keeps sessions as JSON with a sliding idle TTL.
type RedisStore struct {
	client  redis.UniversalClient
	idleTTL time.Duration
}

func NewRedisStore(client redis.UniversalClient, idleTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, idleTTL: idleTTL}
}

func redisKey(userID string) string {
	return redisKeyPrefix + userID
}

func (r *RedisStore) Get(ctx context.Context, userID string) (*Session, error) {
	raw, err := r.client.Get(ctx, redisKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", userID, err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", userID, err)
	}
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	c := s.Clone()
	c.UpdatedAt = time.Now()
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.UserID, err)
	}
	if err := r.client.Set(ctx, redisKey(s.UserID), raw, r.idleTTL).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", s.UserID, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, userID string) error {
	return r.client.Del(ctx, redisKey(userID)).Err()
}
