package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisSink publishes each record on the channel <prefix><room id>.
// Records without a room are not published.
type RedisSink struct {
	client redisPublisher
	prefix string
}

func NewRedisSink(addr, password string, db int, prefix string) *RedisSink {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisSink{client: client, prefix: prefix}
}

func (s *RedisSink) Channel(rec Record) string {
	return s.prefix + string(rec.RoomID)
}

func (s *RedisSink) Publish(ctx context.Context, rec Record) error {
	if rec.RoomID == "" {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := s.client.Publish(ctx, s.Channel(rec), data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSink) Close() error { return s.client.Close() }
