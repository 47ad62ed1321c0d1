// Package http exposes the account services over a gin router mounted at
// /api/users, plus health, metrics and the static avatars directory.
package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

// AccountService is the subset of services.AccountService the handlers use.
type AccountService interface {
	Signup(ctx context.Context, email, password string) (*models.AccountView, error)
	Login(ctx context.Context, email, password string) (*models.SessionView, error)
	Logout(ctx context.Context, accountID string) error
	Current(identity models.Identity) models.Identity
	UpdateSubscription(ctx context.Context, accountID string, tier models.SubscriptionTier) (*models.Identity, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
}

// Authenticator resolves a bearer token to an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*models.Identity, error)
}

// AvatarUpdater runs the avatar pipeline for a saved upload.
type AvatarUpdater interface {
	Update(ctx context.Context, identity *models.Identity, up *services.Upload) (string, error)
}

// Options carries the transport settings taken from config.
type Options struct {
	Address        string
	UploadDir      string
	MaxUploadBytes int64
	AvatarsDir     string
	CORSOrigins    []string
	GinMode        string
}

// OptionsFromConfig maps config fields to Options. uploadDir and avatarsDir
// are the resolved directories.
func OptionsFromConfig(cfg *config.Config, uploadDir, avatarsDir string) Options {
	var origins []string
	for _, o := range strings.Split(cfg.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return Options{
		Address:        cfg.EndpointAddrHTTP,
		UploadDir:      uploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		AvatarsDir:     avatarsDir,
		CORSOrigins:    origins,
		GinMode:        cfg.GinMode,
	}
}

type HTTPServer struct {
	opts     Options
	accounts AccountService
	gate     Authenticator
	avatars  AvatarUpdater
	metrics  *Metrics
	logger   logging.Logger
	engine   *gin.Engine
}

func NewHTTPServer(opts Options, l logging.Logger, as AccountService, gate Authenticator, av AvatarUpdater, m *Metrics) *HTTPServer {
	if opts.GinMode != "" {
		gin.SetMode(opts.GinMode)
	}

	s := &HTTPServer{
		opts:     opts,
		accounts: as,
		gate:     gate,
		avatars:  av,
		metrics:  m,
		logger:   l.With("module", "http_server"),
	}
	s.engine = s.routes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

func (s *HTTPServer) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	corsConfig := cors.DefaultConfig()
	if len(s.opts.CORSOrigins) == 0 || (len(s.opts.CORSOrigins) == 1 && s.opts.CORSOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.opts.CORSOrigins
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", common.AuthorizationHeaderName}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if s.opts.AvatarsDir != "" {
		router.Static("/avatars", s.opts.AvatarsDir)
	}

	users := router.Group("/api/users")
	{
		users.POST("/signup", s.signup)
		users.POST("/login", s.login)
		users.GET("/verify/:verificationToken", s.verifyEmail)
		users.POST("/verify", s.resendVerification)

		protected := users.Group("")
		protected.Use(s.RequireSession())
		{
			protected.GET("/logout", s.logout)
			protected.GET("/current", s.current)
			protected.PATCH("", s.updateSubscription)
			protected.PATCH("/", s.updateSubscription)
			protected.PATCH("/avatars", s.updateAvatar)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": msgNotFound})
	})

	return router
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.opts.Address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
