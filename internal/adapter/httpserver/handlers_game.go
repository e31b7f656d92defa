package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/decept/internal/app"
	apperrors "github.com/pscheid92/decept/internal/platform/errors"
)

func (s *Server) registerGameRoutes() {
	api := s.echo.Group("/api", s.setupAPIRateLimiter(), s.setupTimeoutMiddleware(), identityMiddleware)
	api.POST("/create", s.handleCreatePost)
	api.POST("/vote", s.handleVote)
	api.GET("/post", s.handleGetPost)
	api.GET("/post/:postId", s.handleGetPost)
	api.GET("/user/stats", s.handleUserStats)
}

func (s *Server) setupAPIRateLimiter() echo.MiddlewareFunc {
	if s.config.APIRatePerSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return newRateLimiter(s.config.APIRatePerSecond, s.config.APIRateBurst)
}

type createPostRequest struct {
	Statement1 string `json:"statement1"`
	Statement2 string `json:"statement2"`
	Statement3 string `json:"statement3"`
	LieIndex   int    `json:"lieIndex"`
}

type createPostResponse struct {
	PostID string `json:"postId"`
}

func (s *Server) handleCreatePost(c echo.Context) error {
	var req createPostRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	postID, err := s.game.CreatePost(c.Request().Context(), app.CreatePostInput{
		UserID:     userIDFrom(c),
		PostID:     postIDFrom(c),
		Statements: [3]string{req.Statement1, req.Statement2, req.Statement3},
		LieIndex:   req.LieIndex,
	})
	if err != nil {
		return mapDomainError(err)
	}
	return respondSuccess(c, createPostResponse{PostID: postID})
}

type voteRequest struct {
	PostID string `json:"postId"`
	Vote   int    `json:"vote"`
}

func (s *Server) handleVote(c echo.Context) error {
	var req voteRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	res, err := s.game.CastVote(c.Request().Context(), app.VoteInput{
		UserID: userIDFrom(c),
		PostID: req.PostID,
		Vote:   req.Vote,
	})
	if err != nil {
		return mapDomainError(err).WithField("post_id", req.PostID)
	}
	return respondSuccess(c, res)
}

// handleGetPost serves both the path form and the header form; the path wins.
func (s *Server) handleGetPost(c echo.Context) error {
	postID := c.Param("postId")
	if postID == "" {
		postID = postIDFrom(c)
	}

	view, err := s.game.GetPost(c.Request().Context(), userIDFrom(c), postID)
	if err != nil {
		return mapDomainError(err)
	}
	return respondSuccess(c, view)
}

func (s *Server) handleUserStats(c echo.Context) error {
	stats, err := s.game.GetStats(c.Request().Context(), userIDFrom(c))
	if err != nil {
		return mapDomainError(err)
	}
	return respondSuccess(c, stats)
}
