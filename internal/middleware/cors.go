package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS sets cross-origin headers. The allowed list is "*" or a
// comma-separated set of origins from config.
func CORS(allowed string) gin.HandlerFunc {
	origins := splitOrigins(allowed)
	return func(c *gin.Context) {
		requestOrigin := c.GetHeader("Origin")
		grant := ""
		switch {
		case len(origins) == 0 || origins["*"]:
			grant = "*"
		case requestOrigin != "" && origins[requestOrigin]:
			grant = requestOrigin
		}
		if grant != "" {
			c.Header("Access-Control-Allow-Origin", grant)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Max-Age", "86400")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func splitOrigins(s string) map[string]bool {
	set := make(map[string]bool)
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			set[o] = true
		}
	}
	return set
}
