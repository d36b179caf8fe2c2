package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	allowedHeaders = strings.Join([]string{"Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"}, ", ")
	allowedMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}, ", ")
	exposedHeaders = strings.Join([]string{"Content-Disposition", "X-Request-ID"}, ", ")
)

// New returns a CORS middleware for the public site and the admin panel.
// An empty origin list allows every origin, which is only meant for local development.
func New(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		originSet[normalize(origin)] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		header := c.Writer.Header()
		header.Add("Vary", "Origin")

		if origin != "" {
			if _, ok := originSet[normalize(origin)]; !allowAll && !ok {
				if c.Request.Method == http.MethodOptions {
					c.AbortWithStatus(http.StatusForbidden)
					return
				}
				c.Next()
				return
			}
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
		}

		header.Set("Access-Control-Allow-Headers", allowedHeaders)
		header.Set("Access-Control-Allow-Methods", allowedMethods)
		header.Set("Access-Control-Expose-Headers", exposedHeaders)
		header.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func normalize(origin string) string {
	return strings.ToLower(strings.TrimRight(origin, "/"))
}
