package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/huseinhashi/academic-record/internal/config"
	"github.com/huseinhashi/academic-record/internal/logger"
	"github.com/huseinhashi/academic-record/internal/model"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const checkHashPrefix = "checkhash:"

// Store is the minimal key-value surface the cache needs. Get reports a
// miss as (nil, false, nil); errors are reserved for backend failures.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// NewRedisClient connects to redis. The cache is optional: callers may
// run without it when the connection fails.
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore adapts a redis client to the Store interface.
func NewRedisStore(client *redis.Client) Store {
	return redisStore{client: client}
}

func (r redisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r redisStore) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// CheckCache caches public fingerprint-check outcomes. Only validity and
// the record id are cached; signed links are always minted fresh. A nil
// *CheckCache is a no-op, so the service runs cacheless in tests and
// when redis is down.
type CheckCache struct {
	store Store
	ttl   time.Duration
	log   zerolog.Logger
}

func NewCheckCache(store Store, ttl time.Duration) *CheckCache {
	return &CheckCache{
		store: store,
		ttl:   ttl,
		log:   logger.Get().With().Str("component", "check_cache").Logger(),
	}
}

func (c *CheckCache) Get(ctx context.Context, fingerprint string) (*model.CheckHashCacheEntry, bool) {
	if c == nil {
		return nil, false
	}

	data, ok, err := c.store.Get(ctx, checkHashPrefix+fingerprint)
	if err != nil {
		c.log.Warn().Err(err).Msg("Cache read failed, falling back to repository")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var entry model.CheckHashCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.log.Warn().Err(err).Msg("Corrupt cache entry, ignoring")
		return nil, false
	}
	return &entry, true
}

func (c *CheckCache) Set(ctx context.Context, fingerprint string, entry model.CheckHashCacheEntry) {
	if c == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, checkHashPrefix+fingerprint, data, c.ttl); err != nil {
		c.log.Warn().Err(err).Msg("Cache write failed")
	}
}

// Invalidate drops cached outcomes for the given fingerprints. Called on
// every status or fingerprint change so the public oracle never serves a
// stale positive beyond the cache TTL.
func (c *CheckCache) Invalidate(ctx context.Context, fingerprints ...string) {
	if c == nil || len(fingerprints) == 0 {
		return
	}

	keys := make([]string, 0, len(fingerprints))
	for _, fp := range fingerprints {
		if fp != "" {
			keys = append(keys, checkHashPrefix+fp)
		}
	}
	if len(keys) == 0 {
		return
	}

	if err := c.store.Del(ctx, keys...); err != nil {
		c.log.Warn().Err(err).Msg("Cache invalidation failed")
	}
}
