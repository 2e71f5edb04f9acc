package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"inspectra.app/offline-gateway/app/domain/offlinecache"
	"inspectra.app/offline-gateway/app/utils/logger"
	"inspectra.app/offline-gateway/config/environment_variables"
)

// RedisCacheStorage stores caches in Redis so every gateway replica serves the
// same generations. Cache names live in a sorted set scored by a creation sequence;
// each cache is a hash of url -> JSON response.
type RedisCacheStorage struct {
	client *redis.Client
	prefix string
	rs     *redsync.Redsync
}

// NewRedisClient connects using CACHE_URL, CACHE_PASSWORD and CACHE_DB.
func NewRedisClient() (*redis.Client, error) {
	redisURL := environment_variables.EnvironmentVariables.CACHE_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.GetLogger().Error(fmt.Sprintf("Failed to parse Redis URL: %v", err))
		opts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	if environment_variables.EnvironmentVariables.CACHE_PASSWORD != "" {
		opts.Password = environment_variables.EnvironmentVariables.CACHE_PASSWORD
	}
	if environment_variables.EnvironmentVariables.CACHE_DB != "" {
		if db, err := strconv.Atoi(environment_variables.EnvironmentVariables.CACHE_DB); err == nil {
			opts.DB = db
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.GetLogger().Info("Successfully connected to Redis")
	return client, nil
}

func NewRedisCacheStorage(client *redis.Client, prefix string) *RedisCacheStorage {
	return &RedisCacheStorage{
		client: client,
		prefix: prefix,
		rs:     redsync.New(goredis.NewPool(client)),
	}
}

// Open registers name on first use. The creation sequence only advances for
// names that are not registered yet.
func (r *RedisCacheStorage) Open(ctx context.Context, name string) (offlinecache.Cache, error) {
	c := &redisCache{client: r.client, name: name, key: cacheEntriesKey(r.prefix, name)}
	exists, err := r.Has(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return c, nil
	}
	seq, err := r.client.Incr(ctx, cacheSequenceKey(r.prefix)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", name, err)
	}
	err = r.client.ZAddNX(ctx, cacheNamesKey(r.prefix), redis.Z{
		Score:  float64(seq),
		Member: name,
	}).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", name, err)
	}
	return c, nil
}

func (r *RedisCacheStorage) Has(ctx context.Context, name string) (bool, error) {
	_, err := r.client.ZScore(ctx, cacheNamesKey(r.prefix), name).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check cache %s: %w", name, err)
	}
	return true, nil
}

func (r *RedisCacheStorage) Delete(ctx context.Context, name string) (bool, error) {
	var removed *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.ZRem(ctx, cacheNamesKey(r.prefix), name)
		pipe.Unlink(ctx, cacheEntriesKey(r.prefix, name))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete cache %s: %w", name, err)
	}
	return removed.Val() > 0, nil
}

func (r *RedisCacheStorage) Keys(ctx context.Context) ([]string, error) {
	names, err := r.client.ZRange(ctx, cacheNamesKey(r.prefix), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list caches: %w", err)
	}
	return names, nil
}

func (r *RedisCacheStorage) Match(ctx context.Context, key string) (*offlinecache.Response, bool, error) {
	names, err := r.Keys(ctx)
	if err != nil {
		return nil, false, err
	}
	for _, name := range names {
		c := &redisCache{client: r.client, name: name, key: cacheEntriesKey(r.prefix, name)}
		resp, ok, err := c.Match(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return resp, true, nil
		}
	}
	return nil, false, nil
}

// Lock implements offlinecache.Locker with a redsync mutex.
func (r *RedisCacheStorage) Lock(ctx context.Context, name string) (func(), error) {
	mutex := r.rs.NewMutex(r.prefix+":lock:"+name, redsync.WithExpiry(ActivationLockExpiry), redsync.WithTries(64))
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	return func() {
		if _, err := mutex.UnlockContext(context.Background()); err != nil {
			logger.GetLogger().Warnf("failed to release lock %s: %v", name, err)
		}
	}, nil
}

// HealthCheck verifies Redis connectivity
func (r *RedisCacheStorage) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisCacheStorage) Close() error {
	return r.client.Close()
}

type redisCache struct {
	client *redis.Client
	name   string
	key    string
}

func (c *redisCache) Name() string { return c.name }

func (c *redisCache) Match(ctx context.Context, key string) (*offlinecache.Response, bool, error) {
	raw, err := c.client.HGet(ctx, c.key, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get value: %w", err)
	}
	resp, err := decodeResponse(raw)
	if err != nil {
		return nil, false, err
	}
	return resp, true, nil
}

func (c *redisCache) Put(ctx context.Context, key string, resp *offlinecache.Response) error {
	raw, err := encodeResponse(resp)
	if err != nil {
		return err
	}
	return c.client.HSet(ctx, c.key, key, raw).Err()
}

func (c *redisCache) Delete(ctx context.Context, key string) (bool, error) {
	n, err := c.client.HDel(ctx, c.key, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}
	return n > 0, nil
}

func (c *redisCache) Keys(ctx context.Context) ([]string, error) {
	keys, err := c.client.HKeys(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}
