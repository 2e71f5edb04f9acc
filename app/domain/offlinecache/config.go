package offlinecache

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"inspectra.app/offline-gateway/config/environment_variables"
)

const (
	DefaultSyncTag     = "sync-inspections"
	DefaultSyncTimeout = 30 * time.Second
	DefaultAPIPrefix   = "/api"

	// CacheBustParam carries the unix-ms timestamp appended to API requests.
	CacheBustParam = "_t"
)

var DefaultShellAssets = []string{"/", "/index.html", "/manifest.json"}

type Config struct {
	Version     string
	Origin      *url.URL
	APIPrefix   string
	ShellAssets []string
	SyncTag     string
	SyncTimeout time.Duration
}

// NewConfigFromEnvironment builds the worker configuration from the loaded
// environment variables.
func NewConfigFromEnvironment() (Config, error) {
	ev := environment_variables.EnvironmentVariables
	origin, err := url.Parse(ev.OFFLINE_ORIGIN_URL)
	if err != nil {
		return Config{}, fmt.Errorf("invalid OFFLINE_ORIGIN_URL: %w", err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return Config{}, fmt.Errorf("OFFLINE_ORIGIN_URL must be absolute, got %q", ev.OFFLINE_ORIGIN_URL)
	}
	cfg := Config{
		Version:     ev.OFFLINE_CACHE_VERSION,
		Origin:      origin,
		APIPrefix:   ev.OFFLINE_API_PREFIX,
		SyncTag:     ev.OFFLINE_SYNC_TAG,
		SyncTimeout: ev.OFFLINE_SYNC_TIMEOUT,
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.Version == "" {
		c.Version = "v1"
	}
	if c.APIPrefix == "" {
		c.APIPrefix = DefaultAPIPrefix
	}
	c.APIPrefix = "/" + strings.Trim(c.APIPrefix, "/")
	if len(c.ShellAssets) == 0 {
		c.ShellAssets = DefaultShellAssets
	}
	if c.SyncTag == "" {
		c.SyncTag = DefaultSyncTag
	}
	if c.SyncTimeout <= 0 {
		c.SyncTimeout = DefaultSyncTimeout
	}
	return c
}

func (c Config) ShellCacheName() string {
	return c.Version + "-shell"
}

func (c Config) RuntimeCacheName() string {
	return c.Version + "-runtime"
}

// IsAPIPath reports whether path falls under the API namespace.
func (c Config) IsAPIPath(path string) bool {
	return path == c.APIPrefix || strings.HasPrefix(path, c.APIPrefix+"/")
}

// IsAPIKey reports whether a stored cache key points into the API namespace.
func (c Config) IsAPIKey(key string) bool {
	u, err := url.Parse(key)
	if err != nil {
		return false
	}
	return c.IsAPIPath(u.Path)
}
