package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/decept/internal/adapter/metrics"
	"github.com/pscheid92/decept/internal/app"
	"github.com/pscheid92/decept/internal/domain"
	"github.com/pscheid92/decept/internal/platform/config"
)

type gameService interface {
	CreatePost(ctx context.Context, in app.CreatePostInput) (string, error)
	CastVote(ctx context.Context, in app.VoteInput) (app.VoteResult, error)
	GetPost(ctx context.Context, userID, postID string) (*domain.PostView, error)
	GetStats(ctx context.Context, userID string) (domain.UserStats, error)
	PublishPost(ctx context.Context) (domain.PublishedPost, error)
}

type sweepService interface {
	RunOnce(ctx context.Context) (app.SweepReport, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	game    gameService
	sweeper sweepService

	httpMetrics    *metrics.HTTPMetrics
	metricsHandler http.Handler

	healthChecks []HealthCheck
	startTime    time.Time
}

// Observability bundles the optional Prometheus pieces. A zero value disables both.
type Observability struct {
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
}

func NewServer(cfg *config.Config, game gameService, sweeper sweepService, obs Observability, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:           e,
		config:         cfg,
		game:           game,
		sweeper:        sweeper,
		httpMetrics:    obs.HTTPMetrics,
		metricsHandler: obs.MetricsHandler,
		healthChecks:   healthChecks,
		startTime:      time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// successResponse is the envelope for every successful game API answer.
type successResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

func respondSuccess(c echo.Context, data any) error {
	if err := c.JSON(http.StatusOK, successResponse{Status: "success", Data: data}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
