package redis_test

import (
	"context"
	"testing"
	"time"

	"jvc-ledger/internal/adapter/storage/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDedupe_SeenAndMark(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	dedupe := redis.NewEventDedupe(client)
	ctx := context.Background()

	t.Run("unmarked event is not seen", func(t *testing.T) {
		seen, err := dedupe.Seen(ctx, "evt_1")
		require.NoError(t, err)
		assert.False(t, seen)
	})

	t.Run("marked event is seen", func(t *testing.T) {
		require.NoError(t, dedupe.Mark(ctx, "evt_1", time.Hour))

		seen, err := dedupe.Seen(ctx, "evt_1")
		require.NoError(t, err)
		assert.True(t, seen)
	})

	t.Run("distinct events are independent", func(t *testing.T) {
		seen, err := dedupe.Seen(ctx, "evt_2")
		require.NoError(t, err)
		assert.False(t, seen)
	})

	t.Run("event forgotten after ttl", func(t *testing.T) {
		require.NoError(t, dedupe.Mark(ctx, "evt_3", time.Minute))

		mr.FastForward(2 * time.Minute)

		seen, err := dedupe.Seen(ctx, "evt_3")
		require.NoError(t, err)
		assert.False(t, seen, "expired entries no longer count as seen")
	})
}
