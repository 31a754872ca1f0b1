package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marcelsud/webhook-relay/endpoint"
	"github.com/marcelsud/webhook-relay/health"
	"github.com/marcelsud/webhook-relay/health/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLister []endpoint.Endpoint

func (l staticLister) List() []endpoint.Endpoint { return l }

func TestHealthCollector_Collect(t *testing.T) {
	ctx := context.Background()
	checkedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	store := memory.NewStore(0)
	require.NoError(t, store.Set(ctx, "up", health.Entry{Result: true, Timestamp: checkedAt}))
	require.NoError(t, store.Set(ctx, "down", health.Entry{Timestamp: checkedAt, FailureCount: 3}))

	collector := NewHealthCollector(staticLister{{ID: "up"}, {ID: "down"}, {ID: "new"}}, StoreReader{Store: store})

	snapshot, err := collector.Collect(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Endpoints, 3)

	up := snapshot.Endpoints["up"]
	assert.True(t, up.Checked)
	assert.True(t, up.Healthy)
	assert.True(t, checkedAt.Equal(up.LastCheck))
	assert.Equal(t, int64(3), snapshot.Endpoints["down"].FailureCount)
	assert.False(t, snapshot.Endpoints["down"].Healthy)
	assert.False(t, snapshot.Endpoints["new"].Checked)
	assert.False(t, snapshot.Timestamp.IsZero())
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (health.Entry, bool, error) {
	return health.Entry{Result: true}, true, errors.New("connection refused")
}

func (failingStore) Set(context.Context, string, health.Entry) error { return nil }

func TestStoreReader_Peek(t *testing.T) {
	ctx := context.Background()

	t.Run("success - reads the stored entry", func(t *testing.T) {
		store := memory.NewStore(0)
		require.NoError(t, store.Set(ctx, "up", health.Entry{Result: true, FailureCount: 1}))

		e, found := StoreReader{Store: store}.Peek(ctx, "up")

		assert.True(t, found)
		assert.True(t, e.Result)
		assert.Equal(t, 1, e.FailureCount)
	})

	t.Run("success - missing entry is not found", func(t *testing.T) {
		_, found := StoreReader{Store: memory.NewStore(0)}.Peek(ctx, "new")

		assert.False(t, found)
	})

	t.Run("error - store failure reads as unchecked", func(t *testing.T) {
		e, found := StoreReader{Store: failingStore{}}.Peek(ctx, "up")

		assert.False(t, found)
		assert.False(t, e.Result)
	})
}
