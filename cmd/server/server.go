package main

import (
	"context"

	"github.com/mileusna/crontab"
	"inspectra.app/offline-gateway/app/domain/backgroundsync"
	"inspectra.app/offline-gateway/app/domain/offlinecache"
	"inspectra.app/offline-gateway/app/infrastructure/cache"
	"inspectra.app/offline-gateway/app/interfaces/http"
	"inspectra.app/offline-gateway/app/utils/logger"
	"inspectra.app/offline-gateway/config"
	"inspectra.app/offline-gateway/config/environment_variables"
)

type Application struct {
	HttpServer   *http.HttpServer
	Registration *offlinecache.Registration
	Worker       *offlinecache.Worker
	SyncManager  *backgroundsync.Manager
	CacheBackend *cache.Backend
}

func (application *Application) Start() {
	ctx := context.Background()
	defer application.CacheBackend.Close()

	if err := application.Registration.Register(ctx, application.Worker); err != nil {
		logger.GetLogger().WithField("error_code", "7c1e4a8f-3b2d-4f69-9a05-e6d8c2b1f437").
			Errorf("failed to register worker %s, serving from network only: %v", application.Worker.Version(), err)
	}

	cron := crontab.New()
	if err := application.SyncManager.Start(ctx, cron); err != nil {
		logger.GetLogger().WithField("error_code", "2a9d6f3c-8e1b-4c57-b4a0-d3f7e9c1a682").
			Errorf("failed to schedule background sync: %v", err)
	}

	logger.GetLogger().Infof("offline gateway %s listening on :%s", config.Version, environment_variables.EnvironmentVariables.HTTP_PORT)
	if err := application.HttpServer.Run(); err != nil {
		panic(err)
	}
}

func init() {
	environment_variables.EnvironmentVariables.LoadFromEnv()
	logger.SetLevel(environment_variables.EnvironmentVariables.LOG_LEVEL)
}

func main() {
	application, err := CreateApplication()
	if err != nil {
		panic(err)
	}
	application.Start()
}
