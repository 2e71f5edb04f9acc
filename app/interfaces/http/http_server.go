package http

import (
	"context"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"inspectra.app/offline-gateway/app/interfaces/http/middleware"
	"inspectra.app/offline-gateway/app/interfaces/http/responses"
	"inspectra.app/offline-gateway/app/interfaces/http/routes/gateway"
	"inspectra.app/offline-gateway/app/interfaces/http/routes/sw"
	"inspectra.app/offline-gateway/app/utils/logger"
	"inspectra.app/offline-gateway/config"
	"inspectra.app/offline-gateway/config/environment_variables"
)

const healthCheckTimeout = 2 * time.Second

// HealthChecker reports whether the cache backend can serve requests.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type HttpServer struct {
	engine       *gin.Engine
	swRoute      *sw.SWRoute
	cachesRoute  *sw.CachesRoute
	gatewayRoute *gateway.GatewayRoute
	health       HealthChecker
}

func NewHttpServer(swRoute *sw.SWRoute, cachesRoute *sw.CachesRoute, gatewayRoute *gateway.GatewayRoute, health HealthChecker) *HttpServer {
	gin.SetMode(gin.ReleaseMode)
	server := HttpServer{
		engine:       gin.New(),
		swRoute:      swRoute,
		cachesRoute:  cachesRoute,
		gatewayRoute: gatewayRoute,
		health:       health,
	}
	server.engine.Use(gin.Recovery(), middleware.LoggerMiddleware(logger.GetLogger()))
	server.engine.GET("/health-check", server.healthCheck)
	server.engine.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{"version": config.Version})
	})
	server.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	server.swRoute.RegisterRouter(server.engine)
	server.cachesRoute.RegisterRouter(server.engine)
	server.gatewayRoute.RegisterRouter(server.engine)
	return &server
}

func (httpServer *HttpServer) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()
	if err := httpServer.health.HealthCheck(ctx); err != nil {
		logger.GetLogger().WithField("error_code", "f3a9c1d7-2e6b-4b80-9d54-8c1e7a2f6b03").
			Warnf("health check failed: %v", err)
		c.AbortWithStatusJSON(nethttp.StatusServiceUnavailable, responses.ErrorResponse{
			Code:  "f3a9c1d7-2e6b-4b80-9d54-8c1e7a2f6b03",
			Error: "cache backend unavailable",
		})
		return
	}
	c.JSON(nethttp.StatusOK, "ok")
}

func (httpServer *HttpServer) Handler() nethttp.Handler {
	return httpServer.engine
}

func (httpServer *HttpServer) Run() error {
	port := environment_variables.EnvironmentVariables.HTTP_PORT
	if err := httpServer.engine.Run(fmt.Sprintf(":%s", port)); err != nil {
		return err
	}
	return nil
}
