package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"inspectra.app/offline-gateway/app/domain/auth"
	"inspectra.app/offline-gateway/app/interfaces/http/responses"
)

// AdminAuthMiddleware accepts HS256 bearer tokens signed with secret that
// carry the admin role.
func AdminAuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, responses.ErrorResponse{
				Code:  "3e9a1c74-b6d2-4f05-8a3e-c17d2f9b4e68",
				Error: "admin endpoints are disabled",
			})
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, responses.ErrorResponse{
				Code:  "55312c8d-4fa4-4ecf-a0a2-6fee16c8d7e0",
				Error: "missing authorization header",
			})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, responses.ErrorResponse{
				Code:  "c6d6bafd-b9f3-4ebb-9c90-a21b07308ebc",
				Error: "expected a bearer token",
			})
			return
		}

		claim, err := auth.ParseAdminToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, responses.ErrorResponse{
				Code:  "9d7a21c4-d94c-4451-841b-4d9333f86942",
				Error: "invalid token",
			})
			return
		}

		c.Set(auth.ContextAdminClaim, claim)
		c.Next()
	}
}
