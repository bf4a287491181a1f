// Package api serves the bosun REST API over gin.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bosunhq/bosun/internal/auth"
	"github.com/bosunhq/bosun/internal/logging"
	"github.com/bosunhq/bosun/internal/statuscache"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	DB          *gorm.DB
	Port        int
	Out         io.Writer
	Logger      logrus.FieldLogger
	Issuer      *auth.Issuer
	Cache       *statuscache.Cache // optional; summaries computed on demand when nil
	CORSOrigins []string           // empty allows all origins
}

// env is what every handler needs.
type env struct {
	db     *gorm.DB
	cache  *statuscache.Cache
	logger logrus.FieldLogger
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("api: db is required")
	}
	if opts.Issuer == nil {
		return nil, fmt.Errorf("api: token issuer is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Cache == nil {
		opts.Cache = statuscache.New(nil, 0, opts.Logger)
	}
	if err := registerValidators(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.GinMiddleware(opts.Logger))
	router.Use(cors.New(corsConfig(opts.CORSOrigins)))

	e := &env{db: opts.DB, cache: opts.Cache, logger: opts.Logger}
	registerRoutes(router, e, opts.Issuer)
	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AddAllowMethods("PATCH")
	cfg.AddAllowHeaders("Authorization")
	cfg.AddExposeHeaders("Content-Length")
	return cfg
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	gin.SetMode(gin.ReleaseMode)
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "API listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
