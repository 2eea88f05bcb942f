package http

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/edhedges/receive-kit/internal/config"
	"github.com/edhedges/receive-kit/internal/domain"
	"github.com/edhedges/receive-kit/internal/infra/ratelimit"
	"github.com/edhedges/receive-kit/internal/usecase"
)

// Server owns the gin engine and the verification pipeline it exposes.
type Server struct {
	cfg config.Config
	r   *gin.Engine
	log zerolog.Logger

	verifyUC    *usecase.VerifyAttestation
	rateLimiter domain.RateLimiter
}

// ServerDeps lets tests and alternative wiring inject collaborators.
type ServerDeps struct {
	Verify      *usecase.VerifyAttestation
	RateLimiter domain.RateLimiter
	Logger      zerolog.Logger
}

// NewServer wires the production pipeline: the supplied fetcher plus the
// built-in record integrity checker.
func NewServer(cfg config.Config, fetcher usecase.LogFetcher, records domain.RecordVerifier, logger zerolog.Logger) *Server {
	deps := ServerDeps{
		Verify: &usecase.VerifyAttestation{
			Records:  records,
			Fetcher:  fetcher,
			Registry: cfg.RegistryContract,
		},
		Logger: logger,
	}
	if cfg.RateLimitRequests > 0 {
		if cfg.RedisAddr != "" {
			if limiter, err := ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, nil); err == nil {
				deps.RateLimiter = limiter
			}
		}
		if deps.RateLimiter == nil {
			deps.RateLimiter = ratelimit.NewMemoryLimiter(nil, cfg.RateLimitMaxKeys)
		}
	}
	return NewServerWithDeps(cfg, deps)
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	s := &Server{
		cfg:         cfg,
		r:           r,
		log:         deps.Logger.With().Str("component", "http").Logger(),
		verifyUC:    deps.Verify,
		rateLimiter: deps.RateLimiter,
	}
	r.Use(gin.Recovery(), requestID(), requestLogger(s.log))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.r.Group("/api")
	api.POST("/receive", s.rateLimit(), s.handleReceive)
}

// Handler exposes the engine for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.r
}

// Run serves until SIGINT/SIGTERM, then drains in-flight requests.
func (s *Server) Run() error {
	srv := &http.Server{Addr: s.cfg.HTTPAddr(), Handler: s.r}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info().Str("addr", srv.Addr).Msg("listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
