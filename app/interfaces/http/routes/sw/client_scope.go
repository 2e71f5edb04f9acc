package sw

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"inspectra.app/offline-gateway/app/interfaces/http/responses"
	"inspectra.app/offline-gateway/app/utils/idgen"
)

// ClientScopeCookie names the browser session the calling page belongs to.
// Sync registrations and the clients they reach are matched on it.
const ClientScopeCookie = "offline_scope"

func clientScope(reqCtx *gin.Context) (string, bool) {
	scope, err := reqCtx.Cookie(ClientScopeCookie)
	if err != nil || !idgen.ValidateIDFormat(scope, idgen.ScopeIDPrefix) {
		return "", false
	}
	return scope, true
}

// ensureClientScope returns the caller's scope, issuing a new scope cookie
// when the request carries none.
func ensureClientScope(reqCtx *gin.Context) (string, error) {
	if scope, ok := clientScope(reqCtx); ok {
		return scope, nil
	}
	scope, err := idgen.GenerateScopeID()
	if err != nil {
		return "", err
	}
	reqCtx.SetSameSite(http.SameSiteLaxMode)
	reqCtx.SetCookie(ClientScopeCookie, scope, 0, "/", "", reqCtx.Request.TLS != nil, true)
	return scope, nil
}

func requireClientScope(reqCtx *gin.Context) (string, bool) {
	scope, ok := clientScope(reqCtx)
	if !ok {
		reqCtx.AbortWithStatusJSON(http.StatusBadRequest, responses.ErrorResponse{
			Code:  "2c6f8e1a-9b3d-4d47-a5e0-7f1b4c8d3e96",
			Error: "missing client scope, open the client stream first",
		})
		return "", false
	}
	return scope, true
}
