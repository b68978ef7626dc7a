package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/markdave123-py/fieldreport/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisStore(t *testing.T) *RedisStore {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return NewRedisStore(rdb, time.Minute)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	s := redisStore(t)
	ctx := context.Background()
	uid := time.Now().UnixNano()
	t.Cleanup(func() { _ = s.Clear(ctx, uid) })

	require.NoError(t, s.AppendNote(ctx, uid, "ana", "check bolt torque"))
	cat, err := s.AppendPhoto(ctx, uid, "ana", models.Photo{FileID: "f", Content: []byte{1, 2, 3}, Caption: "final check"})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryFinal, cat)

	sess, ok, err := s.Get(ctx, uid)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ana", sess.Username)
	assert.Equal(t, []string{"check bolt torque"}, sess.Notes)
	require.Len(t, sess.Photos, 1)
	assert.Equal(t, []byte{1, 2, 3}, sess.Photos[0].Content)

	require.NoError(t, s.Clear(ctx, uid))
	_, ok, err = s.Get(ctx, uid)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreConcurrentAppends(t *testing.T) {
	s := redisStore(t)
	ctx := context.Background()
	uid := time.Now().UnixNano()
	t.Cleanup(func() { _ = s.Clear(ctx, uid) })

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.AppendNote(ctx, uid, "", fmt.Sprintf("n%d", i)))
		}(i)
	}
	wg.Wait()

	sess, ok, err := s.Get(ctx, uid)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, sess.Notes, 20)
}
