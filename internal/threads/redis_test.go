package threads

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only when a Redis server is available via REDIS_ADDR.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()

	s, err := OpenRedisStore(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0, discardLogger())
	require.NoError(t, err)
	defer s.Close()

	chatID := "test-" + uuid.NewString()
	t.Cleanup(func() { s.rdb.Del(context.Background(), redisKey(chatID)) })

	_, err = s.GetThread(ctx, chatID)
	require.ErrorIs(t, err, ErrThreadNotFound)

	_, inserted, err := s.InsertThread(ctx, &Thread{ChatID: chatID, ThreadID: "thread_a"})
	require.NoError(t, err)
	assert.True(t, inserted)

	stored, inserted, err := s.InsertThread(ctx, &Thread{ChatID: chatID, ThreadID: "thread_b"})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, "thread_a", stored.ThreadID)
}

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "wazzup:thread:79001234567", redisKey("79001234567"))
}
