package health

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/marcelsud/webhook-relay/endpoint"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	// HealthyTTL is how long a healthy verdict is trusted
	HealthyTTL = 30 * time.Second

	// BaseBackoff and MaxBackoff bound how long an unhealthy endpoint is left alone
	BaseBackoff = 5 * time.Second
	MaxBackoff  = 60 * time.Second
)

// Decision is how a Check was answered
type Decision int

const (
	Fresh Decision = iota + 1
	BackingOff
	Probed
	Shared
)

// String returns the string representation of the decision
func (d Decision) String() string {
	switch d {
	case Fresh:
		return "fresh"
	case BackingOff:
		return "backoff"
	case Probed:
		return "probed"
	case Shared:
		return "shared"
	default:
		return "unknown"
	}
}

// Checker answers whether an endpoint is healthy, probing only when needed
type Checker interface {
	Check(ctx context.Context, ep endpoint.Endpoint) bool
}

// Recorder receives cache decisions and probe outcomes
type Recorder interface {
	RecordProbe(ctx context.Context, endpointID string, healthy bool, elapsed time.Duration)
	RecordDecision(ctx context.Context, endpointID string, d Decision)
}

type nopRecorder struct{}

func (nopRecorder) RecordProbe(context.Context, string, bool, time.Duration) {}
func (nopRecorder) RecordDecision(context.Context, string, Decision) {}

/* Cache deduplicates probes per endpoint id
 * A healthy verdict is reused for HealthyTTL, an unhealthy one for its backoff
 * window, and concurrent callers share the single probe in flight
 */
type Cache struct {
	prober   Prober
	store    Store
	group    singleflight.Group
	clock    func() time.Time
	recorder Recorder
	logger   zerolog.Logger
}

// Ensure Cache implements Checker
var _ Checker = (*Cache)(nil)

type Option func(*Cache)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.clock = now }
}

func WithRecorder(r Recorder) Option {
	return func(c *Cache) { c.recorder = r }
}

// NewCache creates a cache over the given prober and entry store
func NewCache(prober Prober, store Store, logger zerolog.Logger, opts ...Option) *Cache {
	c := &Cache{
		prober:   prober,
		store:    store,
		clock:    time.Now,
		recorder: nopRecorder{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BackoffWindow is 5s doubling per consecutive failure, capped at 60s
func BackoffWindow(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = BaseBackoff
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = MaxBackoff
	b.MaxElapsedTime = 0
	b.Reset()

	window := b.NextBackOff()
	for i := 1; i < failures && window < MaxBackoff; i++ {
		window = b.NextBackOff()
	}
	return window
}

// Check returns a cached verdict or probes. A caller that gives up gets false,
// the shared probe keeps running for the others.
func (c *Cache) Check(ctx context.Context, ep endpoint.Endpoint) bool {
	if healthy, ok := c.cached(ctx, ep.ID); ok {
		return healthy
	}

	ch := c.group.DoChan(ep.ID, func() (any, error) {
		detached := context.WithoutCancel(ctx)
		if healthy, ok := c.cached(detached, ep.ID); ok {
			return healthy, nil
		}
		return c.probe(detached, ep), nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.recorder.RecordDecision(ctx, ep.ID, Shared)
		}
		return res.Val.(bool)
	case <-ctx.Done():
		return false
	}
}

// Peek returns the stored entry without probing
func (c *Cache) Peek(ctx context.Context, id string) (Entry, bool) {
	e, found, err := c.store.Get(ctx, id)
	if err != nil {
		c.logger.Warn().Err(err).Str("endpoint_id", id).Msg("reading health entry")
		return Entry{}, false
	}
	return e, found
}

func (c *Cache) cached(ctx context.Context, id string) (healthy bool, ok bool) {
	e, found := c.Peek(ctx, id)
	if !found {
		return false, false
	}

	age := c.clock().Sub(e.Timestamp)
	if e.Result && age < HealthyTTL {
		c.recorder.RecordDecision(ctx, id, Fresh)
		return true, true
	}
	if !e.Result && age < BackoffWindow(e.FailureCount) {
		c.recorder.RecordDecision(ctx, id, BackingOff)
		return false, true
	}
	return false, false
}

func (c *Cache) probe(ctx context.Context, ep endpoint.Endpoint) bool {
	prev, _ := c.Peek(ctx, ep.ID)

	start := c.clock()
	verdict := c.prober.Probe(ctx, Target{URL: ep.URL, Secret: ep.Secret})
	now := c.clock()

	entry := Entry{Result: verdict.Healthy, Timestamp: now}
	if !verdict.Healthy {
		entry.FailureCount = prev.FailureCount + 1
	}
	if err := c.store.Set(ctx, ep.ID, entry); err != nil {
		c.logger.Warn().Err(err).Str("endpoint_id", ep.ID).Msg("storing health entry")
	}

	c.recorder.RecordDecision(ctx, ep.ID, Probed)
	c.recorder.RecordProbe(ctx, ep.ID, verdict.Healthy, now.Sub(start))

	level := zerolog.InfoLevel
	if !verdict.Healthy {
		level = zerolog.WarnLevel
	}
	c.logger.WithLevel(level).
		Object("endpoint", ep).
		Bool("healthy", verdict.Healthy).
		Int("failure_count", entry.FailureCount).
		Dur("backoff", BackoffWindow(entry.FailureCount)).
		Str("reason", verdict.Message).
		Msg("health probe settled")

	return verdict.Healthy
}
