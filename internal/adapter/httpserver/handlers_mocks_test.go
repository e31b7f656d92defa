package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/decept/internal/app"
	"github.com/pscheid92/decept/internal/domain"
	"github.com/pscheid92/decept/internal/platform/config"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockGameService struct {
	createPostFn  func(ctx context.Context, in app.CreatePostInput) (string, error)
	castVoteFn    func(ctx context.Context, in app.VoteInput) (app.VoteResult, error)
	getPostFn     func(ctx context.Context, userID, postID string) (*domain.PostView, error)
	getStatsFn    func(ctx context.Context, userID string) (domain.UserStats, error)
	publishPostFn func(ctx context.Context) (domain.PublishedPost, error)
}

func (m *mockGameService) CreatePost(ctx context.Context, in app.CreatePostInput) (string, error) {
	if m.createPostFn != nil {
		return m.createPostFn(ctx, in)
	}
	return in.PostID, nil
}

func (m *mockGameService) CastVote(ctx context.Context, in app.VoteInput) (app.VoteResult, error) {
	if m.castVoteFn != nil {
		return m.castVoteFn(ctx, in)
	}
	return app.VoteResult{TotalVotes: 1}, nil
}

func (m *mockGameService) GetPost(ctx context.Context, userID, postID string) (*domain.PostView, error) {
	if m.getPostFn != nil {
		return m.getPostFn(ctx, userID, postID)
	}
	return nil, domain.ErrPostNotFound
}

func (m *mockGameService) GetStats(ctx context.Context, userID string) (domain.UserStats, error) {
	if m.getStatsFn != nil {
		return m.getStatsFn(ctx, userID)
	}
	return domain.UserStats{}, nil
}

func (m *mockGameService) PublishPost(ctx context.Context) (domain.PublishedPost, error) {
	if m.publishPostFn != nil {
		return m.publishPostFn(ctx)
	}
	return domain.PublishedPost{}, errors.New("not implemented")
}

type mockSweepService struct {
	runOnceFn func(ctx context.Context) (app.SweepReport, error)
	calls     int
}

func (m *mockSweepService) RunOnce(ctx context.Context) (app.SweepReport, error) {
	m.calls++
	if m.runOnceFn != nil {
		return m.runOnceFn(ctx)
	}
	return app.SweepReport{}, nil
}

// --- Test helpers ---

func newTestServer(t *testing.T, game gameService, opts ...func(*Server)) *Server {
	t.Helper()

	srv := &Server{
		echo:    echo.New(),
		config:  &config.Config{Port: "0"},
		game:    game,
		sweeper: &mockSweepService{},
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withSweeper(sweeper sweepService) func(*Server) {
	return func(s *Server) {
		s.sweeper = sweeper
	}
}

func withConfig(mutate func(*config.Config)) func(*Server) {
	return func(s *Server) {
		mutate(s.config)
	}
}

// doRequest sends a request through the full echo stack.
func doRequest(t *testing.T, srv *Server, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := newJSONRequest(t, method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return serve(srv, req)
}

func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return req
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func asUser(userID string) map[string]string {
	return map[string]string{headerUserID: userID}
}

// decodeData unwraps the success envelope into out.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()

	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "success", envelope.Status, rec.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}
