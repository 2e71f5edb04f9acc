//go:build wireinject

package main

import (
	"github.com/google/wire"
	"inspectra.app/offline-gateway/app/domain"
	"inspectra.app/offline-gateway/app/infrastructure"
	"inspectra.app/offline-gateway/app/infrastructure/cache"
	"inspectra.app/offline-gateway/app/infrastructure/database"
	"inspectra.app/offline-gateway/app/infrastructure/database/repository"
	"inspectra.app/offline-gateway/app/interfaces/http"
	"inspectra.app/offline-gateway/app/interfaces/http/routes"
)

func CreateApplication() (*Application, error) {
	wire.Build(
		database.NewDB,
		repository.RepositoryProvider,
		infrastructure.InfrastructureProvider,
		domain.ServiceProvider,
		routes.RouteProvider,
		http.NewHttpServer,
		wire.Bind(new(http.HealthChecker), new(*cache.Backend)),
		wire.Struct(new(Application), "*"),
	)
	return nil, nil
}
