package metrics

import (
	"context"
	"time"
)

// Snapshot represents the last known health of every registered endpoint.
type Snapshot struct {
	// Endpoints maps endpoint id to its cached health
	Endpoints map[string]EndpointHealth `json:"endpoints"`

	// Timestamp when the snapshot was collected
	Timestamp time.Time `json:"timestamp"`
}

// EndpointHealth is the cached verdict of one endpoint.
type EndpointHealth struct {
	// Checked is false until the first probe settles
	Checked bool `json:"checked"`

	Healthy bool `json:"healthy"`

	// FailureCount is the number of consecutive failed probes
	FailureCount int64 `json:"failure_count"`

	// LastCheck is when the verdict was stored
	LastCheck time.Time `json:"last_check"`
}

// Collector gathers the state observed by the gauges.
type Collector interface {
	Collect(ctx context.Context) (Snapshot, error)
}
