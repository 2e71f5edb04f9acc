package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"inspectra.app/offline-gateway/config/environment_variables"
)

// CORS allows the hosts listed in ALLOWED_CORS_HOSTS to call the control
// endpoints. Gateway traffic never goes through it.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		host := c.Request.Header.Get("Origin")
		if host != "" && slices.Contains(environment_variables.EnvironmentVariables.ALLOWED_CORS_HOSTS, host) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", host)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Authorization, Accept, Origin, Cache-Control, Last-Event-ID, X-Requested-With, X-Request-ID")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")
			c.Writer.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
			c.Writer.Header().Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
