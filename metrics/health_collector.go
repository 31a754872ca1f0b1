package metrics

import (
	"context"
	"time"

	"github.com/marcelsud/webhook-relay/health"
)

// EntryReader reads cached health without probing
type EntryReader interface {
	Peek(ctx context.Context, id string) (health.Entry, bool)
}

// StoreReader reads entries straight from a health.Store; read errors count as unchecked
type StoreReader struct {
	Store health.Store
}

// Ensure StoreReader and the cache can both feed the collector
var (
	_ EntryReader = StoreReader{}
	_ EntryReader = (*health.Cache)(nil)
)

func (r StoreReader) Peek(ctx context.Context, id string) (health.Entry, bool) {
	e, found, err := r.Store.Get(ctx, id)
	if err != nil {
		return health.Entry{}, false
	}
	return e, found
}

// HealthCollector implements Collector over the health cache
type HealthCollector struct {
	endpoints health.Lister
	entries   EntryReader
}

// NewHealthCollector creates a collector that never triggers probes
func NewHealthCollector(endpoints health.Lister, entries EntryReader) *HealthCollector {
	return &HealthCollector{
		endpoints: endpoints,
		entries:   entries,
	}
}

// Collect reads the cached entry of every registered endpoint
func (c *HealthCollector) Collect(ctx context.Context) (Snapshot, error) {
	snapshot := Snapshot{
		Endpoints: make(map[string]EndpointHealth),
		Timestamp: time.Now(),
	}

	for _, ep := range c.endpoints.List() {
		e, found := c.entries.Peek(ctx, ep.ID)
		if !found {
			snapshot.Endpoints[ep.ID] = EndpointHealth{}
			continue
		}
		snapshot.Endpoints[ep.ID] = EndpointHealth{
			Checked:      true,
			Healthy:      e.Result,
			FailureCount: int64(e.FailureCount),
			LastCheck:    e.Timestamp,
		}
	}

	return snapshot, nil
}
