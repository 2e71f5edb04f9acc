package cache

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
	"inspectra.app/offline-gateway/app/domain/offlinecache"
	"inspectra.app/offline-gateway/config/environment_variables"
)

// ValkeyCacheStorage provides the Redis layout on top of a Valkey client.
type ValkeyCacheStorage struct {
	client valkey.Client
	prefix string
}

// parseValkeyURL parses a Valkey URL and returns address, password, database, and error
func parseValkeyURL(valkeyURL string) (address, password string, database int, err error) {
	database = -1 // -1 means no database specified

	// Handle plain address without protocol
	if !strings.Contains(valkeyURL, "://") {
		return valkeyURL, "", -1, nil
	}

	u, err := url.Parse(valkeyURL)
	if err != nil {
		return "", "", -1, fmt.Errorf("invalid URL format: %w", err)
	}

	address = u.Host
	if address == "" {
		return "", "", -1, fmt.Errorf("no host specified in URL")
	}

	if u.User != nil {
		password, _ = u.User.Password()
	}

	if u.Path != "" && u.Path != "/" {
		dbStr := strings.TrimPrefix(u.Path, "/")
		if dbStr != "" {
			if db, parseErr := strconv.Atoi(dbStr); parseErr == nil {
				database = db
			}
		}
	}

	return address, password, database, nil
}

// NewValkeyClient connects using CACHE_URL, CACHE_PASSWORD and CACHE_DB.
func NewValkeyClient() (valkey.Client, error) {
	valkeyURL := environment_variables.EnvironmentVariables.CACHE_URL
	if valkeyURL == "" {
		valkeyURL = "valkey://localhost:6379"
	}

	address, password, db, err := parseValkeyURL(valkeyURL)
	if err != nil {
		return nil, err
	}

	opts := valkey.ClientOption{
		InitAddress: []string{address},
	}
	if password != "" {
		opts.Password = password
	}
	if db != -1 {
		opts.SelectDB = db
	}
	if environment_variables.EnvironmentVariables.CACHE_PASSWORD != "" {
		opts.Password = environment_variables.EnvironmentVariables.CACHE_PASSWORD
	}
	if environment_variables.EnvironmentVariables.CACHE_DB != "" {
		if db, err := strconv.Atoi(environment_variables.EnvironmentVariables.CACHE_DB); err == nil {
			opts.SelectDB = db
		}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func NewValkeyCacheStorage(client valkey.Client, prefix string) *ValkeyCacheStorage {
	return &ValkeyCacheStorage{client: client, prefix: prefix}
}

func (v *ValkeyCacheStorage) Open(ctx context.Context, name string) (offlinecache.Cache, error) {
	c := &valkeyCache{client: v.client, name: name, key: cacheEntriesKey(v.prefix, name)}
	exists, err := v.Has(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return c, nil
	}
	seq, err := v.client.Do(ctx, v.client.B().Incr().Key(cacheSequenceKey(v.prefix)).Build()).AsInt64()
	if err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", name, err)
	}
	cmd := v.client.B().Zadd().Key(cacheNamesKey(v.prefix)).Nx().
		ScoreMember().ScoreMember(float64(seq), name).Build()
	if err := v.client.Do(ctx, cmd).Error(); err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", name, err)
	}
	return c, nil
}

func (v *ValkeyCacheStorage) Has(ctx context.Context, name string) (bool, error) {
	err := v.client.Do(ctx, v.client.B().Zscore().Key(cacheNamesKey(v.prefix)).Member(name).Build()).Error()
	if valkey.IsValkeyNil(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check cache %s: %w", name, err)
	}
	return true, nil
}

func (v *ValkeyCacheStorage) Delete(ctx context.Context, name string) (bool, error) {
	removed, err := v.client.Do(ctx, v.client.B().Zrem().Key(cacheNamesKey(v.prefix)).Member(name).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to delete cache %s: %w", name, err)
	}
	if err := v.client.Do(ctx, v.client.B().Unlink().Key(cacheEntriesKey(v.prefix, name)).Build()).Error(); err != nil {
		return false, fmt.Errorf("failed to unlink cache %s: %w", name, err)
	}
	return removed > 0, nil
}

func (v *ValkeyCacheStorage) Keys(ctx context.Context) ([]string, error) {
	names, err := v.client.Do(ctx, v.client.B().Zrange().Key(cacheNamesKey(v.prefix)).Min("0").Max("-1").Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to list caches: %w", err)
	}
	return names, nil
}

func (v *ValkeyCacheStorage) Match(ctx context.Context, key string) (*offlinecache.Response, bool, error) {
	names, err := v.Keys(ctx)
	if err != nil {
		return nil, false, err
	}
	for _, name := range names {
		c := &valkeyCache{client: v.client, name: name, key: cacheEntriesKey(v.prefix, name)}
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

// HealthCheck verifies Valkey connectivity
func (v *ValkeyCacheStorage) HealthCheck(ctx context.Context) error {
	return v.client.Do(ctx, v.client.B().Ping().Build()).Error()
}

// Close closes the Valkey connection
func (v *ValkeyCacheStorage) Close() error {
	v.client.Close()
	return nil
}

type valkeyCache struct {
	client valkey.Client
	name   string
	key    string
}

func (c *valkeyCache) Name() string { return c.name }

func (c *valkeyCache) Match(ctx context.Context, key string) (*offlinecache.Response, bool, error) {
	raw, err := c.client.Do(ctx, c.client.B().Hget().Key(c.key).Field(key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
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

func (c *valkeyCache) Put(ctx context.Context, key string, resp *offlinecache.Response) error {
	raw, err := encodeResponse(resp)
	if err != nil {
		return err
	}
	return c.client.Do(ctx, c.client.B().Hset().Key(c.key).FieldValue().FieldValue(key, string(raw)).Build()).Error()
}

func (c *valkeyCache) Delete(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Do(ctx, c.client.B().Hdel().Key(c.key).Field(key).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}
	return n > 0, nil
}

func (c *valkeyCache) Keys(ctx context.Context) ([]string, error) {
	keys, err := c.client.Do(ctx, c.client.B().Hkeys().Key(c.key).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}
