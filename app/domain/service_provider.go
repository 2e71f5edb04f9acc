package domain

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"inspectra.app/offline-gateway/app/domain/backgroundsync"
	"inspectra.app/offline-gateway/app/domain/offlinecache"
	"inspectra.app/offline-gateway/app/domain/pageclient"
	"k8s.io/utils/clock"
)

func ProvideClock() clock.Clock {
	return clock.RealClock{}
}

func ProvideMetrics() *offlinecache.Metrics {
	return offlinecache.NewMetrics(prometheus.DefaultRegisterer)
}

var ServiceProvider = wire.NewSet(
	ProvideClock,
	ProvideMetrics,
	offlinecache.NewConfigFromEnvironment,
	wire.Struct(new(offlinecache.Dependencies), "Storage", "Network", "Clients", "Clock", "Metrics"),
	offlinecache.NewWorker,
	offlinecache.NewRegistration,
	pageclient.NewRegistry,
	wire.Bind(new(offlinecache.Clients), new(*pageclient.Registry)),
	backgroundsync.NewConfigFromEnvironment,
	backgroundsync.NewManager,
	wire.Bind(new(backgroundsync.Dispatcher), new(*offlinecache.Registration)),
)
