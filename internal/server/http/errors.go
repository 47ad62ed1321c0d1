package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// User-facing messages.
const (
	msgEmailInUse       = "Email in use"
	msgWrongCredentials = "Email or password is wrong"
	msgNotAuthorized    = "Not authorized"
	msgNotFound         = "Not found"
	msgAlreadyVerified  = "Verification has already been passed"
	msgProcessing       = "Image processing failed"
	msgDependency       = "Email could not be sent"
	msgInternal         = "Internal server error"
	msgFileTooLarge     = "File too large"
	msgBadBody          = "Invalid request body"
)

// statusFor maps an error kind to a status and message. Validation errors
// carry their own description.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, strings.TrimPrefix(err.Error(), common.ErrValidation.Error()+": ")
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict, msgEmailInUse
	case errors.Is(err, common.ErrAuthentication):
		return http.StatusUnauthorized, msgWrongCredentials
	case errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized, msgNotAuthorized
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, common.ErrAlreadyVerified):
		return http.StatusBadRequest, msgAlreadyVerified
	case errors.Is(err, common.ErrProcessing):
		return http.StatusInternalServerError, msgProcessing
	case errors.Is(err, common.ErrDependency):
		return http.StatusBadGateway, msgDependency
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// respondWithError writes {"message": ...}. Server-side failures are logged
// with the full cause; clients only see the fixed message.
func (s *HTTPServer) respondWithError(c *gin.Context, op string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "operation", op, "error", err)
	}
	s.metrics.observe(op, status)
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}
