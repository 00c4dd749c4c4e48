// Package server exposes the resolver and uploader to the browser UI over
// HTTP. Error bodies are always {"error": "..."} with a status derived from
// the typed failure.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"reclink/internal/history"
	"reclink/internal/httputil"
	"reclink/internal/metrics"
)

// Uploader sends a recording to the file host and returns its share page.
type Uploader interface {
	Upload(ctx context.Context, content io.Reader, filename, token string) (string, error)
}

// Options configures a Server.
type Options struct {
	Addr            string
	Resolver        history.Resolver
	Uploader        Uploader
	Book            *history.Book
	Client          *http.Client // media fetches for the download proxy
	DownloadTimeout time.Duration
	Metrics         *metrics.Metrics
	Logger          zerolog.Logger
	Debug           bool
}

// Server is the HTTP surface.
type Server struct {
	resolver        history.Resolver
	uploader        Uploader
	book            *history.Book
	client          *http.Client
	downloadTimeout time.Duration
	metrics         *metrics.Metrics
	log             zerolog.Logger

	engine     *gin.Engine
	httpServer *http.Server
}

// New builds the server and its routes.
func New(opts Options) *Server {
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.Client == nil {
		opts.Client = httputil.NewClient(0)
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = 60 * time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Book == nil {
		opts.Book = history.NewBook(history.NewMemoryStore(), opts.Logger)
	}

	engine := gin.New()
	engine.Use(requestID(), requestLogger(opts.Logger), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", requestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", requestIDHeader}
	engine.Use(cors.New(corsConfig))

	s := &Server{
		resolver:        opts.Resolver,
		uploader:        opts.Uploader,
		book:            opts.Book,
		client:          opts.Client,
		downloadTimeout: opts.DownloadTimeout,
		metrics:         opts.Metrics,
		log:             opts.Logger,
		engine:          engine,
	}
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	{
		api.POST("/gofile-media", s.handleResolve)
		api.GET("/download", s.handleDownload)
		api.POST("/upload", s.handleUpload)
		api.GET("/history", s.handleListHistory)
		api.DELETE("/history", s.handleRemoveHistory)
	}

	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.httpServer.Addr).Msg("listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info().Msg("shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
