package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

const identityKey = "identity"

// RequireSession reads "Authorization: Bearer <token>", runs it through the
// gate and stores the identity on the context. Anything else aborts with 401.
func (s *HTTPServer) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := s.gate.Authenticate(c.Request.Context(), bearerToken(c.GetHeader(common.AuthorizationHeaderName)))
		if err != nil {
			s.respondWithError(c, "authenticate", err)
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}

// identityFrom returns the identity stored by RequireSession.
func identityFrom(c *gin.Context) *models.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*models.Identity)
	return identity
}

func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		status := c.Writer.Status()

		s.metrics.observeRequest(c.Request.Method, route, status, elapsed.Seconds())
		s.logger.Debug(c.Request.Context(), "request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration", elapsed,
		)
	}
}
