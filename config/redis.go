package config

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

const lastActiveTTL = 15 * time.Minute
const lastActiveKeyPrefix = "user:lastactive:"

// InitRedis connects when REDIS_URL is set. Without redis the activity
// status falls back to last_login and bulk progress is kept in memory.
func InitRedis(cfg *Config) {
	if cfg.RedisURL == "" {
		log.Println("REDIS_URL not configured, redis-backed features disabled")
		return
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("Warning: failed to parse REDIS_URL: %v - redis-backed features disabled", err)
		return
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: failed to connect to Redis: %v - redis-backed features disabled", err)
		_ = client.Close()
		return
	}

	RedisClient = client
	log.Println("Connected to Redis")
}

// LastActiveStore reads and writes per-user heartbeat timestamps in redis.
type LastActiveStore struct {
	client *redis.Client
}

func NewLastActiveStore(client *redis.Client) *LastActiveStore {
	return &LastActiveStore{client: client}
}

// Touch stores the current timestamp for the given user.
func (s *LastActiveStore) Touch(ctx context.Context, userID string) error {
	if s == nil || s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	val := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return s.client.Set(ctx, lastActiveKeyPrefix+userID, val, lastActiveTTL).Err()
}

// LastActive returns the last heartbeat for each of ids that has one.
func (s *LastActiveStore) LastActive(ctx context.Context, ids []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time, len(ids))
	if s == nil || s.client == nil || len(ids) == 0 {
		return out, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = lastActiveKeyPrefix + id
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return out, fmt.Errorf("mget last active: %w", err)
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		ms, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			continue
		}
		out[ids[i]] = time.UnixMilli(ms)
	}
	return out, nil
}
