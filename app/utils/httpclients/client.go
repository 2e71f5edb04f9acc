package httpclients

import (
	"time"

	"inspectra.app/offline-gateway/app/utils/logger"
	"inspectra.app/offline-gateway/config"
	"resty.dev/v3"
)

const DefaultTimeout = 60 * time.Second

// NewClient returns a resty client that logs through the shared logger
// under the given name.
func NewClient(name string) *resty.Client {
	return resty.New().
		SetTimeout(DefaultTimeout).
		SetLogger(logger.GetLogger().WithField("http_client", name)).
		SetHeader("User-Agent", "offline-gateway/"+config.Version)
}
