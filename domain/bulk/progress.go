package bulk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// ErrProgressNotFound is returned when no progress is tracked for an id.
var ErrProgressNotFound = errors.New("operation progress not found")

const (
	progressTTL       = time.Hour
	progressKeyPrefix = "bulk:progress:"
)

// NewProgressTracker returns a redis-backed tracker when a client is given,
// otherwise an in-process one.
func NewProgressTracker(client *redis.Client) ProgressTracker {
	if client != nil {
		return NewRedisProgressStore(client, progressTTL)
	}
	return NewMemoryProgressStore(1024, progressTTL)
}

// RedisProgressStore keeps progress as JSON under a TTL so any API instance
// can answer a poll.
type RedisProgressStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProgressStore(client *redis.Client, ttl time.Duration) *RedisProgressStore {
	return &RedisProgressStore{client: client, ttl: ttl}
}

func (s *RedisProgressStore) Save(ctx context.Context, p *Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	return s.client.Set(ctx, progressKeyPrefix+p.OperationID, data, s.ttl).Err()
}

func (s *RedisProgressStore) Get(ctx context.Context, operationID string) (*Progress, error) {
	data, err := s.client.Get(ctx, progressKeyPrefix+operationID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal progress: %w", err)
	}
	return &p, nil
}

// MemoryProgressStore is a bounded, expiring in-process tracker.
type MemoryProgressStore struct {
	cache *expirable.LRU[string, Progress]
}

func NewMemoryProgressStore(size int, ttl time.Duration) *MemoryProgressStore {
	return &MemoryProgressStore{cache: expirable.NewLRU[string, Progress](size, nil, ttl)}
}

func (s *MemoryProgressStore) Save(_ context.Context, p *Progress) error {
	s.cache.Add(p.OperationID, *p)
	return nil
}

func (s *MemoryProgressStore) Get(_ context.Context, operationID string) (*Progress, error) {
	p, ok := s.cache.Get(operationID)
	if !ok {
		return nil, ErrProgressNotFound
	}
	return &p, nil
}
