//go:build integration

package redis_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/marcelsud/webhook-relay/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Integration(t *testing.T) {
	ctx := context.Background()

	addr, cleanup := SetupRedisContainer(t, ctx)
	defer cleanup()

	t.Run("entries are shared between store instances", func(t *testing.T) {
		writer := CreateTestStore(t, addr)
		defer writer.Close(ctx)
		reader := CreateTestStore(t, addr)
		defer reader.Close(ctx)

		ts := time.Now().Truncate(time.Millisecond)
		require.NoError(t, writer.Set(ctx, "replicated", health.Entry{Timestamp: ts, FailureCount: 3}))

		got, found, err := reader.Get(ctx, "replicated")
		require.NoError(t, err)
		require.True(t, found)
		assert.False(t, got.Result)
		assert.Equal(t, 3, got.FailureCount)
		assert.True(t, ts.Equal(got.Timestamp))
	})

	t.Run("concurrent writes leave a complete entry", func(t *testing.T) {
		store := CreateTestStore(t, addr)
		defer store.Close(ctx)

		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, store.Set(ctx, "contended", health.Entry{Result: i%2 == 0, Timestamp: time.Now(), FailureCount: i}))
			}()
		}
		wg.Wait()

		got, found, err := store.Get(ctx, "contended")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, got.Result, got.FailureCount%2 == 0)
	})
}
