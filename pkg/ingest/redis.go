package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anyone-protocol/margot/pkg/model"
	"github.com/redis/go-redis/v9"
)

// stringGetter is the slice of the redis client the source needs.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisSource reads a JSON snapshot document published under a Redis key by a
// directory collector.
type RedisSource struct {
	client stringGetter
	addr   string
	key    string
}

func NewRedisSource(addr, password string, db int, key string) *RedisSource {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisSource{
		client: rdb,
		addr:   addr,
		key:    key,
	}
}

func (s *RedisSource) Name() string {
	return fmt.Sprintf("redis://%s/%s", s.addr, s.key)
}

func (s *RedisSource) Load(ctx context.Context) (*model.Snapshot, error) {
	val, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: no snapshot under key %q", model.ErrSnapshot, s.key)
	} else if err != nil {
		return nil, fmt.Errorf("%w: redis get %q: %v", model.ErrWrongIO, s.key, err)
	}
	slog.Debug("snapshot document fetched", "source", s.Name(), "bytes", len(val))

	return DecodeDocument(val)
}

// Close releases the underlying client when it owns one.
func (s *RedisSource) Close() error {
	if c, ok := s.client.(*redis.Client); ok {
		return c.Close()
	}
	return nil
}
