package threads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "wazzup:thread:"

type redisThread struct {
	ThreadID  string    `json:"thread_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisStore keeps mappings as plain keys; SETNX gives insert-if-absent.
type RedisStore struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func OpenRedisStore(ctx context.Context, addr, password string, db int, logger *slog.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	s := NewRedisStore(rdb, logger)
	s.logger.Info("thread store initialized", "addr", addr)
	return s, nil
}

func NewRedisStore(rdb *redis.Client, logger *slog.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, logger: logger.With("component", "store", "driver", "redis")}
}

func redisKey(chatID string) string {
	return redisKeyPrefix + chatID
}

func (s *RedisStore) GetThread(ctx context.Context, chatID string) (*Thread, error) {
	raw, err := s.rdb.Get(ctx, redisKey(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading thread: %w", err)
	}

	var v redisThread
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decoding thread %s: %w", chatID, err)
	}
	return &Thread{ChatID: chatID, ThreadID: v.ThreadID, CreatedAt: v.CreatedAt}, nil
}

func (s *RedisStore) InsertThread(ctx context.Context, t *Thread) (*Thread, bool, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	b, err := json.Marshal(redisThread{ThreadID: t.ThreadID, CreatedAt: t.CreatedAt})
	if err != nil {
		return nil, false, err
	}

	ok, err := s.rdb.SetNX(ctx, redisKey(t.ChatID), b, 0).Result()
	if err != nil {
		return nil, false, fmt.Errorf("inserting thread: %w", err)
	}
	if ok {
		return t, true, nil
	}

	existing, err := s.GetThread(ctx, t.ChatID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
