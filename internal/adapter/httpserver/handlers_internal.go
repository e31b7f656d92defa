package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/decept/internal/platform/errors"
)

// registerInternalRoutes exposes the hooks the platform calls on our behalf:
// menu actions and scheduled jobs.
func (s *Server) registerInternalRoutes() {
	internal := s.echo.Group("/internal", requireJobToken(s.config.JobToken), identityMiddleware)
	internal.POST("/menu/post-create", s.handleMenuPostCreate, s.setupTimeoutMiddleware())
	internal.POST("/jobs/reveal-expired", s.handleRevealExpired)
}

type menuPostCreateResponse struct {
	PostID     string `json:"postId"`
	NavigateTo string `json:"navigateTo"`
}

func (s *Server) handleMenuPostCreate(c echo.Context) error {
	post, err := s.game.PublishPost(c.Request().Context())
	if err != nil {
		return apperrors.ExternalError("failed to create post", err)
	}

	if err := c.JSON(http.StatusOK, menuPostCreateResponse{PostID: post.ID, NavigateTo: post.URL}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// handleRevealExpired runs one sweep. The scheduler only needs an
// acknowledgement, so failures are logged and the answer is always ok.
// The sweep is detached from the request deadline and bounded by its own timeout.
func (s *Server) handleRevealExpired(c echo.Context) error {
	ctx := context.WithoutCancel(c.Request().Context())

	report, err := s.sweeper.RunOnce(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Scheduled reveal sweep failed", "error", err)
	} else {
		slog.InfoContext(ctx, "Scheduled reveal sweep done",
			"candidates", report.Candidates,
			"revealed", report.Revealed,
			"failed", report.Failed,
		)
	}

	if err := c.JSON(http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
