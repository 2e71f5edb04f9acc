package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"inspectra.app/offline-gateway/app/domain/offlinecache"
	"inspectra.app/offline-gateway/app/interfaces/http/responses"
	"inspectra.app/offline-gateway/app/utils/logger"
)

// GatewayRoute hands every request that no other route claims to the
// registration, which answers it from the active worker or the network.
type GatewayRoute struct {
	registration *offlinecache.Registration
}

func NewGatewayRoute(registration *offlinecache.Registration) *GatewayRoute {
	return &GatewayRoute{
		registration: registration,
	}
}

func (route *GatewayRoute) RegisterRouter(engine *gin.Engine) {
	engine.NoRoute(route.Serve)
}

func (route *GatewayRoute) Serve(reqCtx *gin.Context) {
	resp, err := route.registration.Fetch(reqCtx.Request.Context(), reqCtx.Request)
	if err != nil {
		logger.GetLogger().WithField("error_code", "f1b8d3a6-2e7c-4d94-a0b5-c6e9f2d7a138").
			Warnf("gateway: %s %s failed: %v", reqCtx.Request.Method, reqCtx.Request.URL, err)
		reqCtx.AbortWithStatusJSON(http.StatusBadGateway, responses.ErrorResponse{
			Code:  "f1b8d3a6-2e7c-4d94-a0b5-c6e9f2d7a138",
			Error: "origin unreachable and no cached response",
		})
		return
	}

	header := reqCtx.Writer.Header()
	for name, values := range resp.Header {
		header.Del(name)
		for _, v := range values {
			header.Add(name, v)
		}
	}
	reqCtx.Status(resp.Status)
	if reqCtx.Request.Method == http.MethodHead {
		return
	}
	if _, err := reqCtx.Writer.Write(resp.Body); err != nil {
		_ = reqCtx.Error(err)
	}
}
