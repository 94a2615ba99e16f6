package httpapi

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/infra/metrics"
)

const actorKey = "actor"

// requestLogger logs one line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// instrument records request counts and latency per route template.
func instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// authenticate resolves the bearer token to the acting user.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			s.fail(c, domain.ErrMissingCredentials)
			return
		}

		userID, err := s.auth.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			s.fail(c, err)
			return
		}

		c.Set(actorKey, userID)
		c.Next()
	}
}

func actor(c *gin.Context) string {
	return c.GetString(actorKey)
}
