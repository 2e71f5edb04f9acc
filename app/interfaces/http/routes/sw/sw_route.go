package sw

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"inspectra.app/offline-gateway/app/domain/backgroundsync"
	"inspectra.app/offline-gateway/app/domain/offlinecache"
	"inspectra.app/offline-gateway/app/domain/pageclient"
	"inspectra.app/offline-gateway/app/domain/query"
	"inspectra.app/offline-gateway/app/interfaces/http/middleware"
	"inspectra.app/offline-gateway/app/interfaces/http/responses"
	"inspectra.app/offline-gateway/app/utils/duplex"
	"inspectra.app/offline-gateway/app/utils/idgen"
	"inspectra.app/offline-gateway/app/utils/logger"
)

// KeepAliveInterval is how often an idle client stream gets a ping event.
var KeepAliveInterval = 15 * time.Second

// SWRoute exposes the worker to pages: lifecycle status, direct messages,
// the client event stream and background sync.
type SWRoute struct {
	registration *offlinecache.Registration
	registry     *pageclient.Registry
	syncManager  *backgroundsync.Manager
}

func NewSWRoute(
	registration *offlinecache.Registration,
	registry *pageclient.Registry,
	syncManager *backgroundsync.Manager,
) *SWRoute {
	return &SWRoute{
		registration: registration,
		registry:     registry,
		syncManager:  syncManager,
	}
}

func (route *SWRoute) RegisterRouter(router gin.IRouter) {
	router.OPTIONS("/sw/*path", middleware.CORS())
	swRouter := router.Group("/sw", middleware.CORS())
	swRouter.GET("/status", route.GetStatus)
	swRouter.POST("/messages", route.PostMessage)
	swRouter.GET("/clients/stream", route.StreamClient)
	swRouter.POST("/ports/:port_id", route.PostPortReply)
	swRouter.POST("/sync", route.RegisterSync)
	swRouter.GET("/sync", route.ListSync)
	swRouter.GET("/sync/:sync_id", route.GetSync)
}

type StatusResponse struct {
	Registration offlinecache.RegistrationStatus `json:"registration"`
	Clients      []pageclient.ClientInfo         `json:"clients"`
	PendingPorts int                             `json:"pending_ports"`
}

// GetStatus godoc
// @Summary     Worker registration status
// @Description Returns the installing, waiting and active workers and the connected pages.
// @Tags        sw
// @Produce     json
// @Success     200 {object} responses.GeneralResponse[StatusResponse]
// @Router      /sw/status [get]
func (route *SWRoute) GetStatus(reqCtx *gin.Context) {
	reqCtx.JSON(http.StatusOK, responses.GeneralResponse[StatusResponse]{
		Status: responses.ResponseCodeOk,
		Result: StatusResponse{
			Registration: route.registration.Status(),
			Clients:      route.registry.List(),
			PendingPorts: route.registry.PendingPorts(),
		},
	})
}

// PostMessage godoc
// @Summary     Post a message to the worker
// @Description Delivers a page message (for example SKIP_WAITING) to the waiting worker, or the active one.
// @Tags        sw
// @Accept      json
// @Produce     json
// @Param       request body offlinecache.Message true "message"
// @Success     202 {object} responses.GeneralResponse[string]
// @Failure     400 {object} responses.ErrorResponse
// @Failure     409 {object} responses.ErrorResponse
// @Router      /sw/messages [post]
func (route *SWRoute) PostMessage(reqCtx *gin.Context) {
	var msg offlinecache.Message
	if err := reqCtx.ShouldBindJSON(&msg); err != nil || msg.Type == "" {
		reqCtx.AbortWithStatusJSON(http.StatusBadRequest, responses.ErrorResponse{
			Code:  "7a2f4c91-d8e3-4b60-9c15-e4a8b3f2d706",
			Error: "invalid message",
		})
		return
	}
	if err := route.registration.PostMessage(reqCtx.Request.Context(), msg); err != nil {
		if errors.Is(err, offlinecache.ErrNoActiveWorker) {
			reqCtx.AbortWithStatusJSON(http.StatusConflict, responses.ErrorResponse{
				Code:  "b4e81d2a-3c6f-4a97-8e05-f1d7c9a2b364",
				Error: err.Error(),
			})
			return
		}
		logger.GetLogger().Errorf("sw: failed to deliver message %s: %v", msg.Type, err)
		reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, responses.ErrorResponse{
			Code:  "0d5c3e8f-a1b7-4f26-b9d4-6e2a8c1f7b53",
			Error: "failed to deliver message",
		})
		return
	}
	reqCtx.JSON(http.StatusAccepted, responses.GeneralResponse[string]{
		Status: responses.ResponseCodeOk,
		Result: string(msg.Type),
	})
}

type HelloEvent struct {
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
}

// StreamClient godoc
// @Summary     Page client event stream
// @Description Registers the calling page as a client of its browser session and streams worker messages to it as server-sent events. Issues the offline_scope cookie when missing.
// @Tags        sw
// @Produce     text/event-stream
// @Param       url query string false "page URL"
// @Router      /sw/clients/stream [get]
func (route *SWRoute) StreamClient(reqCtx *gin.Context) {
	pageURL := reqCtx.Query("url")
	if pageURL == "" {
		pageURL = reqCtx.GetHeader("Referer")
	}
	scope, err := ensureClientScope(reqCtx)
	if err != nil {
		logger.GetLogger().Errorf("sw: failed to issue client scope: %v", err)
		reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, responses.ErrorResponse{
			Code:  "e2c7a9f4-5b1d-4e38-a6c0-9d3f8b2e1a75",
			Error: "failed to register client",
		})
		return
	}
	client, err := route.registry.Connect(pageURL, scope)
	if err != nil {
		logger.GetLogger().Errorf("sw: failed to register client: %v", err)
		reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, responses.ErrorResponse{
			Code:  "e2c7a9f4-5b1d-4e38-a6c0-9d3f8b2e1a75",
			Error: "failed to register client",
		})
		return
	}
	defer route.registry.Disconnect(client.ID())

	reqCtx.Header("Content-Type", "text/event-stream")
	reqCtx.Header("Cache-Control", "no-cache")
	reqCtx.Header("Connection", "keep-alive")
	reqCtx.Header("X-Accel-Buffering", "no")
	reqCtx.SSEvent("hello", HelloEvent{ClientID: client.ID(), Scope: scope})
	reqCtx.Writer.Flush()

	keepAlive := time.NewTicker(KeepAliveInterval)
	defer keepAlive.Stop()
	ctx := reqCtx.Request.Context()
	reqCtx.Stream(func(w io.Writer) bool {
		select {
		case env := <-client.Events():
			reqCtx.SSEvent("message", env)
			return true
		case <-keepAlive.C:
			reqCtx.SSEvent("ping", time.Now().UnixMilli())
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// PostPortReply godoc
// @Summary     Answer a worker request
// @Description Delivers a page reply (SYNC_RESULT or SYNC_ERROR) on the port it was handed.
// @Tags        sw
// @Accept      json
// @Produce     json
// @Param       port_id path string true "port id"
// @Param       request body offlinecache.Message true "reply"
// @Success     202 {object} responses.GeneralResponse[string]
// @Failure     404 {object} responses.ErrorResponse
// @Failure     410 {object} responses.ErrorResponse
// @Router      /sw/ports/{port_id} [post]
func (route *SWRoute) PostPortReply(reqCtx *gin.Context) {
	portID := reqCtx.Param("port_id")
	if !idgen.ValidateIDFormat(portID, idgen.PortIDPrefix) {
		reqCtx.AbortWithStatusJSON(http.StatusNotFound, responses.ErrorResponse{
			Code:  "a3d6f1e8-7c2b-4905-9e4a-b1f8d2c6e037",
			Error: pageclient.ErrUnknownPort.Error(),
		})
		return
	}
	var msg offlinecache.Message
	if err := reqCtx.ShouldBindJSON(&msg); err != nil {
		reqCtx.AbortWithStatusJSON(http.StatusBadRequest, responses.ErrorResponse{
			Code:  "5f9e2b7c-4a1d-4c83-b0e6-a8d3c7f1e924",
			Error: "invalid reply",
		})
		return
	}
	err := route.registry.Reply(reqCtx.Request.Context(), portID, msg)
	switch {
	case err == nil:
		reqCtx.JSON(http.StatusAccepted, responses.GeneralResponse[string]{
			Status: responses.ResponseCodeOk,
			Result: portID,
		})
	case errors.Is(err, pageclient.ErrUnknownPort):
		reqCtx.AbortWithStatusJSON(http.StatusNotFound, responses.ErrorResponse{
			Code:  "a3d6f1e8-7c2b-4905-9e4a-b1f8d2c6e037",
			Error: err.Error(),
		})
	case errors.Is(err, duplex.ErrClosed):
		reqCtx.AbortWithStatusJSON(http.StatusGone, responses.ErrorResponse{
			Code:  "c8b1e5a2-9d4f-4376-a2e0-5f7d3b9c1a86",
			Error: "the worker stopped waiting for this reply",
		})
	default:
		logger.GetLogger().Errorf("sw: failed to deliver reply on %s: %v", portID, err)
		reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, responses.ErrorResponse{
			Code:  "1e7c4a9d-b3f2-4d58-8a16-c9e2f5b7d340",
			Error: "failed to deliver reply",
		})
	}
}

type RegisterSyncRequest struct {
	Tag string `json:"tag" binding:"required"`
}

// RegisterSync godoc
// @Summary     Register a background sync
// @Description Records a deferred-sync request for tag by the caller's browser session and fires it at once. Only pages of that session are asked to replay.
// @Tags        sw
// @Accept      json
// @Produce     json
// @Param       request body RegisterSyncRequest true "tag"
// @Success     202 {object} responses.GeneralResponse[backgroundsync.Registration]
// @Failure     400 {object} responses.ErrorResponse
// @Router      /sw/sync [post]
func (route *SWRoute) RegisterSync(reqCtx *gin.Context) {
	scope, ok := requireClientScope(reqCtx)
	if !ok {
		return
	}
	var request RegisterSyncRequest
	if err := reqCtx.ShouldBindJSON(&request); err != nil {
		reqCtx.AbortWithStatusJSON(http.StatusBadRequest, responses.ErrorResponse{
			Code:  "d0a4e7b2-6f3c-4e19-b8d5-2a9c1f6e3b78",
			Error: "tag is required",
		})
		return
	}
	reg, err := route.syncManager.Register(reqCtx.Request.Context(), scope, request.Tag)
	if err != nil {
		if errors.Is(err, backgroundsync.ErrEmptyTag) {
			reqCtx.AbortWithStatusJSON(http.StatusBadRequest, responses.ErrorResponse{
				Code:  "d0a4e7b2-6f3c-4e19-b8d5-2a9c1f6e3b78",
				Error: err.Error(),
			})
			return
		}
		logger.GetLogger().Errorf("sw: failed to register sync %q: %v", request.Tag, err)
		reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, responses.ErrorResponse{
			Code:  "6b2d9f4e-c1a8-4753-9e07-d4f3a8c2b615",
			Error: "failed to register sync",
		})
		return
	}
	reqCtx.JSON(http.StatusAccepted, responses.GeneralResponse[*backgroundsync.Registration]{
		Status: responses.ResponseCodeOk,
		Result: reg,
	})
}

// ListSync godoc
// @Summary     List background sync registrations
// @Description Lists the registrations of the caller's browser session.
// @Tags        sw
// @Produce     json
// @Param       limit query int false "page size" default(20)
// @Param       order query string false "asc or desc" default(asc)
// @Param       after query int false "return registrations past this id"
// @Success     200 {object} responses.ListResponse[backgroundsync.Registration]
// @Failure     400 {object} responses.ErrorResponse
// @Router      /sw/sync [get]
func (route *SWRoute) ListSync(reqCtx *gin.Context) {
	scope, ok := requireClientScope(reqCtx)
	if !ok {
		return
	}
	pagination, err := query.GetPaginationFromQuery(reqCtx)
	if err != nil {
		reqCtx.AbortWithStatusJSON(http.StatusBadRequest, responses.ErrorResponse{
			Code:  "c8e1a5d3-7b2f-4f06-9a4c-1e6d3b8f2a75",
			Error: err.Error(),
		})
		return
	}
	regs, err := route.syncManager.List(reqCtx.Request.Context(), scope, pagination)
	if err != nil {
		logger.GetLogger().Errorf("sw: failed to list sync registrations: %v", err)
		reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, responses.ErrorResponse{
			Code:  "f47a2c8e-5d1b-4e96-a3c0-8b7e2d4f1c59",
			Error: "failed to list sync registrations",
		})
		return
	}
	reqCtx.JSON(http.StatusOK, responses.NewListResponse(regs))
}

type SyncDetailResponse struct {
	Registration *backgroundsync.Registration `json:"registration"`
	Attempts     []*backgroundsync.Attempt    `json:"attempts"`
}

// GetSync godoc
// @Summary     Background sync registration with its attempts
// @Tags        sw
// @Produce     json
// @Param       sync_id path int true "registration id"
// @Success     200 {object} responses.GeneralResponse[SyncDetailResponse]
// @Failure     400 {object} responses.ErrorResponse
// @Failure     404 {object} responses.ErrorResponse
// @Router      /sw/sync/{sync_id} [get]
func (route *SWRoute) GetSync(reqCtx *gin.Context) {
	scope, ok := requireClientScope(reqCtx)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(reqCtx.Param("sync_id"), 10, 64)
	if err != nil {
		reqCtx.AbortWithStatusJSON(http.StatusBadRequest, responses.ErrorResponse{
			Code:  "92c5e1f7-a4d3-4b08-8e6f-3d1a7c9b2e40",
			Error: "invalid sync id",
		})
		return
	}
	reg, attempts, err := route.syncManager.Get(reqCtx.Request.Context(), scope, uint(id))
	if err != nil {
		reqCtx.AbortWithStatusJSON(http.StatusNotFound, responses.ErrorResponse{
			Code:  "4d8b3f6a-e2c1-4a75-b9d0-7f5e1c3a8b26",
			Error: "sync registration not found",
		})
		return
	}
	reqCtx.JSON(http.StatusOK, responses.GeneralResponse[SyncDetailResponse]{
		Status: responses.ResponseCodeOk,
		Result: SyncDetailResponse{Registration: reg, Attempts: attempts},
	})
}
