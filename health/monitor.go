package health

import (
	"context"
	"time"

	"github.com/marcelsud/webhook-relay/config"
	"github.com/marcelsud/webhook-relay/endpoint"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultMonitorConcurrency bounds concurrent checks during a sweep
const DefaultMonitorConcurrency = 8

// Lister provides the endpoints to monitor
type Lister interface {
	List() []endpoint.Endpoint
}

/* Monitor periodically drives the cache for every registered endpoint
 * It never probes directly, so backoff and coalescing still apply
 */
type Monitor struct {
	checker     Checker
	endpoints   Lister
	interval    time.Duration
	concurrency int
	logger      zerolog.Logger
}

// NewMonitor creates a monitor; a zero interval disables it
func NewMonitor(cfg *config.Config, checker Checker, endpoints Lister, logger zerolog.Logger) *Monitor {
	return &Monitor{
		checker:     checker,
		endpoints:   endpoints,
		interval:    cfg.MonitorInterval(),
		concurrency: DefaultMonitorConcurrency,
		logger:      logger,
	}
}

// Run sweeps immediately and then on every tick until ctx is cancelled
func (m *Monitor) Run(ctx context.Context) error {
	if m.interval <= 0 {
		m.logger.Info().Msg("health monitor disabled")
		return nil
	}

	m.logger.Info().Dur("interval", m.interval).Msg("health monitor started")
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.Sweep(ctx)

		select {
		case <-ctx.Done():
			m.logger.Info().Msg("health monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep checks every endpoint once and returns how many are healthy
func (m *Monitor) Sweep(ctx context.Context) int {
	endpoints := m.endpoints.List()
	results := make([]bool, len(endpoints))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, ep := range endpoints {
		g.Go(func() error {
			results[i] = m.checker.Check(gctx, ep)
			return nil
		})
	}
	_ = g.Wait()

	healthy := 0
	for _, ok := range results {
		if ok {
			healthy++
		}
	}
	m.logger.Debug().
		Int("endpoints", len(endpoints)).
		Int("healthy", healthy).
		Msg("health sweep finished")
	return healthy
}
