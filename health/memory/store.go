package memory

import (
	"context"
	"fmt"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/marcelsud/webhook-relay/health"
	"github.com/segmentio/encoding/json"
)

// DefaultMaxBytes is the smallest arena fastcache allocates
const DefaultMaxBytes = 32 << 20

/* Store keeps health entries in a fixed-size in-process arena
 * Memory stays bounded, old buckets are overwritten when it fills
 */
type Store struct {
	cache *fastcache.Cache
}

// Ensure Store implements health.Store
var _ health.Store = (*Store)(nil)

// NewStore creates a store bounded to maxBytes
func NewStore(maxBytes int) *Store {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Store{cache: fastcache.New(maxBytes)}
}

// Get returns the entry for id, found is false when absent
func (s *Store) Get(_ context.Context, id string) (health.Entry, bool, error) {
	data, found := s.cache.HasGet(nil, []byte(id))
	if !found {
		return health.Entry{}, false, nil
	}

	var e health.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return health.Entry{}, false, fmt.Errorf("decoding health entry %s: %w", id, err)
	}
	return e, true, nil
}

// Set stores the entry for id, replacing any previous one
func (s *Store) Set(_ context.Context, id string, e health.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding health entry %s: %w", id, err)
	}
	s.cache.Set([]byte(id), data)
	return nil
}

// Reset drops every entry
func (s *Store) Reset() {
	s.cache.Reset()
}
