package routes

import (
	"github.com/google/wire"
	"inspectra.app/offline-gateway/app/interfaces/http/routes/gateway"
	"inspectra.app/offline-gateway/app/interfaces/http/routes/sw"
)

var RouteProvider = wire.NewSet(
	sw.NewSWRoute,
	sw.NewCachesRoute,
	gateway.NewGatewayRoute,
)
