package service

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// HeartbeatService tracks client liveness per session in Redis. Keys expire
// on their own, so an abandoned session simply stops being "alive".
type HeartbeatService struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewHeartbeatService(rdb *redis.Client, ttl time.Duration) *HeartbeatService {
	return &HeartbeatService{rdb: rdb, ttl: ttl}
}

func (s *HeartbeatService) key(sessionID string) string {
	return "proctor:hb:" + sessionID
}

func (s *HeartbeatService) Touch(ctx context.Context, sessionID string) error {
	return s.rdb.Set(ctx, s.key(sessionID), time.Now().Unix(), s.ttl).Err()
}

func (s *HeartbeatService) Alive(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
