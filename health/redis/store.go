package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/marcelsud/webhook-relay/health"
	"github.com/redis/go-redis/v9"
)

/* Redis implementation of health.Store
 * One hash per endpoint so every replica shares verdicts and backoff
 */

const (
	hashPrefix = "health" // Hash naming: health:{endpoint_id}

	// entryTTL only reclaims entries of endpoints that were removed
	entryTTL = 24 * time.Hour
)

type Store struct {
	client *redis.Client
}

// Ensure Store implements health.Store
var _ health.Store = (*Store)(nil)

// NewStore connects to Redis and verifies the connection
func NewStore(addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewStoreWithClient wraps an existing client
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Get reads the entry hash for id
func (s *Store) Get(ctx context.Context, id string) (health.Entry, bool, error) {
	data, err := s.client.HGetAll(ctx, key(id)).Result()
	if err != nil {
		return health.Entry{}, false, fmt.Errorf("getting health entry: %w", err)
	}
	if len(data) == 0 {
		return health.Entry{}, false, nil
	}

	ts, err := strconv.ParseInt(data["timestamp"], 10, 64)
	if err != nil {
		return health.Entry{}, false, fmt.Errorf("parsing timestamp of %s: %w", id, err)
	}
	failures, err := strconv.Atoi(data["failure_count"])
	if err != nil {
		return health.Entry{}, false, fmt.Errorf("parsing failure count of %s: %w", id, err)
	}

	return health.Entry{
		Result:       data["result"] == "1",
		Timestamp:    time.UnixMilli(ts),
		FailureCount: failures,
	}, true, nil
}

// Set writes the entry hash for id and refreshes its TTL
func (s *Store) Set(ctx context.Context, id string, e health.Entry) error {
	result := "0"
	if e.Result {
		result = "1"
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key(id), map[string]interface{}{
		"result":        result,
		"timestamp":     e.Timestamp.UnixMilli(),
		"failure_count": e.FailureCount,
	})
	pipe.Expire(ctx, key(id), entryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing health entry: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close()
}

func key(id string) string {
	return fmt.Sprintf("%s:%s", hashPrefix, id)
}
