package http

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

const (
	opSignup       = "signup"
	opLogin        = "login"
	opLogout       = "logout"
	opCurrent      = "current"
	opSubscription = "update_subscription"
	opAvatar       = "update_avatar"
	opVerify       = "verify_email"
	opResend       = "resend_verification"
)

func (s *HTTPServer) signup(c *gin.Context) {
	var in services.CredentialsPayload
	if err := c.ShouldBindJSON(&in); err != nil {
		s.respondWithError(c, opSignup, fmt.Errorf("%w: %s", common.ErrValidation, msgBadBody))
		return
	}

	view, err := s.accounts.Signup(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		s.respondWithError(c, opSignup, err)
		return
	}

	s.metrics.observe(opSignup, http.StatusCreated)
	c.JSON(http.StatusCreated, gin.H{"user": view})
}

func (s *HTTPServer) login(c *gin.Context) {
	var in services.CredentialsPayload
	if err := c.ShouldBindJSON(&in); err != nil {
		s.respondWithError(c, opLogin, fmt.Errorf("%w: %s", common.ErrValidation, msgBadBody))
		return
	}

	session, err := s.accounts.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		s.respondWithError(c, opLogin, err)
		return
	}

	s.metrics.observe(opLogin, http.StatusOK)
	c.JSON(http.StatusOK, session)
}

func (s *HTTPServer) logout(c *gin.Context) {
	identity := identityFrom(c)
	if identity == nil {
		s.respondWithError(c, opLogout, common.ErrUnauthenticated)
		return
	}

	if err := s.accounts.Logout(c.Request.Context(), identity.ID); err != nil {
		s.respondWithError(c, opLogout, err)
		return
	}

	s.metrics.observe(opLogout, http.StatusNoContent)
	c.Status(http.StatusNoContent)
}

func (s *HTTPServer) current(c *gin.Context) {
	identity := identityFrom(c)
	if identity == nil {
		s.respondWithError(c, opCurrent, common.ErrUnauthenticated)
		return
	}

	s.metrics.observe(opCurrent, http.StatusOK)
	c.JSON(http.StatusOK, s.accounts.Current(*identity).View())
}

func (s *HTTPServer) updateSubscription(c *gin.Context) {
	identity := identityFrom(c)
	if identity == nil {
		s.respondWithError(c, opSubscription, common.ErrUnauthenticated)
		return
	}

	var in services.SubscriptionPayload
	if err := c.ShouldBindJSON(&in); err != nil {
		s.respondWithError(c, opSubscription, fmt.Errorf("%w: %s", common.ErrValidation, msgBadBody))
		return
	}

	updated, err := s.accounts.UpdateSubscription(c.Request.Context(), identity.ID, in.Subscription)
	if err != nil {
		s.respondWithError(c, opSubscription, err)
		return
	}

	s.metrics.observe(opSubscription, http.StatusOK)
	c.JSON(http.StatusOK, updated.View())
}

// updateAvatar saves the multipart "avatar" file into the upload directory
// as <uuid><ext> and hands it to the avatar pipeline, which owns the file
// from then on.
func (s *HTTPServer) updateAvatar(c *gin.Context) {
	identity := identityFrom(c)
	if identity == nil {
		s.respondWithError(c, opAvatar, common.ErrUnauthenticated)
		return
	}

	if s.opts.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	}

	var upload *services.Upload
	fh, err := c.FormFile(common.AvatarFormField)
	switch {
	case err == nil:
		tempPath := filepath.Join(s.opts.UploadDir, uuid.NewString()+strings.ToLower(filepath.Ext(fh.Filename)))
		if err := c.SaveUploadedFile(fh, tempPath); err != nil {
			s.respondWithError(c, opAvatar, fmt.Errorf("save upload: %w", err))
			return
		}
		upload = &services.Upload{TempPath: tempPath, OriginalName: fh.Filename}
	case isTooLarge(err):
		s.metrics.observe(opAvatar, http.StatusRequestEntityTooLarge)
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"message": msgFileTooLarge})
		return
	default:
		// Missing field or non-multipart body; the pipeline rejects a nil upload.
		s.logger.Debug(c.Request.Context(), "no avatar in request", "error", err)
	}

	url, err := s.avatars.Update(c.Request.Context(), identity, upload)
	if err != nil {
		s.respondWithError(c, opAvatar, err)
		return
	}

	s.metrics.observe(opAvatar, http.StatusOK)
	c.JSON(http.StatusOK, gin.H{"avatarURL": url})
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

func (s *HTTPServer) verifyEmail(c *gin.Context) {
	err := s.accounts.VerifyEmail(c.Request.Context(), c.Param("verificationToken"))
	if errors.Is(err, common.ErrNotFound) {
		s.metrics.observe(opVerify, http.StatusNotFound)
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	if err != nil {
		s.respondWithError(c, opVerify, err)
		return
	}

	s.metrics.observe(opVerify, http.StatusOK)
	c.JSON(http.StatusOK, gin.H{"message": "Verification successful"})
}

func (s *HTTPServer) resendVerification(c *gin.Context) {
	var in services.EmailPayload
	if err := c.ShouldBindJSON(&in); err != nil {
		s.respondWithError(c, opResend, fmt.Errorf("%w: %s", common.ErrValidation, msgBadBody))
		return
	}

	err := s.accounts.ResendVerification(c.Request.Context(), in.Email)
	if errors.Is(err, common.ErrNotFound) {
		s.metrics.observe(opResend, http.StatusNotFound)
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "The provided email address could not be found"})
		return
	}
	if err != nil {
		s.respondWithError(c, opResend, err)
		return
	}

	s.metrics.observe(opResend, http.StatusOK)
	c.JSON(http.StatusOK, gin.H{"message": "Verification email sent"})
}
