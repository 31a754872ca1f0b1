package health_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marcelsud/webhook-relay/endpoint"
	"github.com/marcelsud/webhook-relay/health"
	"github.com/marcelsud/webhook-relay/health/memory"
	"github.com/marcelsud/webhook-relay/health/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var defaultEndpoint = endpoint.Endpoint{ID: "default", URL: webhookURL, Secret: "s3cret"}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// blockingProber counts probes and holds each one until released
type blockingProber struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	healthy bool
}

func (p *blockingProber) Probe(ctx context.Context, target health.Target) health.Verdict {
	if p.calls.Add(1) == 1 {
		close(p.started)
	}
	<-p.release
	return health.Verdict{Healthy: p.healthy}
}

type countingRecorder struct {
	mu        sync.Mutex
	decisions map[health.Decision]int
	probes    int
}

func (r *countingRecorder) RecordProbe(context.Context, string, bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes++
}

func (r *countingRecorder) RecordDecision(_ context.Context, _ string, d health.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.decisions == nil {
		r.decisions = make(map[health.Decision]int)
	}
	r.decisions[d]++
}

func TestBackoffWindow(t *testing.T) {
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 0},
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
		{5, 60 * time.Second},
		{6, 60 * time.Second},
		{1000, 60 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, health.BackoffWindow(tt.failures), "failures=%d", tt.failures)
	}
}

func TestCache_Check(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy verdict is reused for 30 seconds", func(t *testing.T) {
		prober := mocks.NewProber(t)
		clock := newFakeClock()
		cache := health.NewCache(prober, memory.NewStore(0), zerolog.Nop(), health.WithClock(clock.Now))

		prober.On("Probe", mock.Anything, health.Target{URL: webhookURL, Secret: "s3cret"}).
			Return(health.Verdict{Healthy: true}).Twice()

		assert.True(t, cache.Check(ctx, defaultEndpoint))
		clock.Advance(29 * time.Second)
		assert.True(t, cache.Check(ctx, defaultEndpoint))
		prober.AssertNumberOfCalls(t, "Probe", 1)

		clock.Advance(time.Second)
		assert.True(t, cache.Check(ctx, defaultEndpoint))
		prober.AssertNumberOfCalls(t, "Probe", 2)
	})

	t.Run("unhealthy endpoint is probed again only after its backoff window", func(t *testing.T) {
		prober := mocks.NewProber(t)
		clock := newFakeClock()
		store := memory.NewStore(0)
		cache := health.NewCache(prober, store, zerolog.Nop(), health.WithClock(clock.Now))

		prober.On("Probe", mock.Anything, mock.Anything).Return(health.Verdict{Healthy: false})

		probes := 0
		for failures, window := range []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second} {
			assert.False(t, cache.Check(ctx, defaultEndpoint))
			probes++
			prober.AssertNumberOfCalls(t, "Probe", probes)

			e, found, err := store.Get(ctx, defaultEndpoint.ID)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, failures+1, e.FailureCount)

			clock.Advance(window - time.Millisecond)
			assert.False(t, cache.Check(ctx, defaultEndpoint))
			prober.AssertNumberOfCalls(t, "Probe", probes)

			clock.Advance(time.Millisecond)
		}
	})

	t.Run("success resets the failure count", func(t *testing.T) {
		prober := mocks.NewProber(t)
		clock := newFakeClock()
		store := memory.NewStore(0)
		cache := health.NewCache(prober, store, zerolog.Nop(), health.WithClock(clock.Now))

		require.NoError(t, store.Set(ctx, defaultEndpoint.ID, health.Entry{Timestamp: clock.Now(), FailureCount: 4}))
		clock.Advance(40 * time.Second)

		prober.On("Probe", mock.Anything, mock.Anything).Return(health.Verdict{Healthy: true}).Once()

		assert.True(t, cache.Check(ctx, defaultEndpoint))

		e, found, err := store.Get(ctx, defaultEndpoint.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.True(t, e.Result)
		assert.Zero(t, e.FailureCount)
	})

	t.Run("concurrent checks share one probe", func(t *testing.T) {
		prober := &blockingProber{started: make(chan struct{}), release: make(chan struct{}), healthy: true}
		recorder := &countingRecorder{}
		cache := health.NewCache(prober, memory.NewStore(0), zerolog.Nop(), health.WithRecorder(recorder))

		const callers = 20
		results := make(chan bool, callers)
		var wg sync.WaitGroup
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- cache.Check(ctx, defaultEndpoint)
			}()
		}

		<-prober.started
		time.Sleep(50 * time.Millisecond)
		close(prober.release)
		wg.Wait()
		close(results)

		for healthy := range results {
			assert.True(t, healthy)
		}
		assert.Equal(t, int32(1), prober.calls.Load())
		assert.Equal(t, 1, recorder.probes)
		assert.Equal(t, 1, recorder.decisions[health.Probed])
	})

	t.Run("a cancelled caller does not cancel the shared probe", func(t *testing.T) {
		prober := &blockingProber{started: make(chan struct{}), release: make(chan struct{}), healthy: true}
		store := memory.NewStore(0)
		cache := health.NewCache(prober, store, zerolog.Nop())

		cctx, cancel := context.WithCancel(ctx)
		done := make(chan bool)
		go func() { done <- cache.Check(cctx, defaultEndpoint) }()

		<-prober.started
		cancel()
		assert.False(t, <-done)

		close(prober.release)
		assert.Eventually(t, func() bool {
			e, found, err := store.Get(ctx, defaultEndpoint.ID)
			return err == nil && found && e.Result
		}, time.Second, 10*time.Millisecond)
		assert.True(t, cache.Check(ctx, defaultEndpoint))
		assert.Equal(t, int32(1), prober.calls.Load())
	})

	t.Run("entries are kept per endpoint", func(t *testing.T) {
		prober := mocks.NewProber(t)
		cache := health.NewCache(prober, memory.NewStore(0), zerolog.Nop())
		other := endpoint.Endpoint{ID: "other", URL: "https://other.example.com/hook"}

		prober.On("Probe", mock.Anything, health.Target{URL: defaultEndpoint.URL, Secret: "s3cret"}).Return(health.Verdict{Healthy: true}).Once()
		prober.On("Probe", mock.Anything, health.Target{URL: other.URL}).Return(health.Verdict{Healthy: false}).Once()

		assert.True(t, cache.Check(ctx, defaultEndpoint))
		assert.False(t, cache.Check(ctx, other))
		assert.True(t, cache.Check(ctx, defaultEndpoint))
		assert.False(t, cache.Check(ctx, other))

		e, found := cache.Peek(ctx, "other")
		require.True(t, found)
		assert.Equal(t, 1, e.FailureCount)
	})
}
