package sw

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"inspectra.app/offline-gateway/app/domain/offlinecache"
	"inspectra.app/offline-gateway/app/infrastructure/cache"
	"inspectra.app/offline-gateway/app/interfaces/http/middleware"
	"inspectra.app/offline-gateway/app/interfaces/http/responses"
	"inspectra.app/offline-gateway/app/utils/logger"
	"inspectra.app/offline-gateway/config/environment_variables"
)

// CachesRoute exposes administrative cache operations.
type CachesRoute struct {
	storage offlinecache.CacheStorage
	secret  []byte
}

func NewCachesRoute(storage offlinecache.CacheStorage) *CachesRoute {
	return &CachesRoute{
		storage: storage,
		secret:  environment_variables.EnvironmentVariables.ADMIN_JWT_SECRET,
	}
}

func (route *CachesRoute) RegisterRouter(router gin.IRouter) {
	cachesRouter := router.Group("/sw/caches",
		middleware.CORS(),
		middleware.AdminAuthMiddleware(route.secret),
	)
	cachesRouter.GET("", route.ListCaches)
	cachesRouter.DELETE("/:name", route.DeleteCache)
}

// ListCaches godoc
// @Summary     List caches
// @Description Returns every named cache with its entry count.
// @Tags        admin
// @Security    BearerAuth
// @Produce     json
// @Success     200 {object} responses.ListResponse[cache.CacheSummary]
// @Failure     401 {object} responses.ErrorResponse
// @Router      /sw/caches [get]
func (route *CachesRoute) ListCaches(reqCtx *gin.Context) {
	summaries, err := cache.Summarize(reqCtx.Request.Context(), route.storage)
	if err != nil {
		logger.GetLogger().Errorf("admin cache: failed to list caches: %v", err)
		reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, responses.ErrorResponse{
			Code:  "b0c4f1c8-2a3b-4ad4-8b1d-7a2124d7c7b1",
			Error: "failed to list caches",
		})
		return
	}
	reqCtx.JSON(http.StatusOK, responses.NewListResponse(summaries))
}

type DeleteCacheResponse struct {
	Object  string `json:"object"`
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

// DeleteCache godoc
// @Summary     Delete a cache
// @Tags        admin
// @Security    BearerAuth
// @Produce     json
// @Param       name path string true "cache name"
// @Success     200 {object} DeleteCacheResponse
// @Failure     404 {object} responses.ErrorResponse
// @Router      /sw/caches/{name} [delete]
func (route *CachesRoute) DeleteCache(reqCtx *gin.Context) {
	name := reqCtx.Param("name")
	deleted, err := route.storage.Delete(reqCtx.Request.Context(), name)
	if err != nil {
		logger.GetLogger().Errorf("admin cache: failed to delete cache %s: %v", name, err)
		reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, responses.ErrorResponse{
			Code:  "8f3a6d1c-e9b4-4c27-a5f0-2b7d8e4c1a93",
			Error: "failed to delete cache",
		})
		return
	}
	if !deleted {
		reqCtx.AbortWithStatusJSON(http.StatusNotFound, responses.ErrorResponse{
			Code:  "2c9e7b4f-1a6d-4f83-b0c5-e8d3a1f7b962",
			Error: "cache not found",
		})
		return
	}
	logger.GetLogger().Infof("admin cache: deleted cache %s", name)
	reqCtx.JSON(http.StatusOK, DeleteCacheResponse{
		Object:  "cache.deletion",
		Name:    name,
		Deleted: true,
	})
}
