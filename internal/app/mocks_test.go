package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/decept/internal/adapter/memory"
	"github.com/pscheid92/decept/internal/adapter/moderation"
	"github.com/pscheid92/decept/internal/domain"
)

var t0 = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

var validStatements = [3]string{
	"I have been to Japan twice",
	"I can juggle five oranges",
	"I once met a famous chef",
}

// defaultRules mirrors the config defaults.
func defaultRules() Rules {
	return Rules{
		VoteThreshold:   10,
		RevealAfter:     24 * time.Hour,
		MaxPostsPerDay:  3,
		MaxVotesPerDay:  50,
		StatementMinLen: 5,
		StatementMaxLen: 120,
		PostTitle:       "Decept: 2 Truths 1 Lie",
	}
}

// --- Mock implementations ---

type mockEventPublisher struct {
	mu     sync.Mutex
	events []domain.PostRevealed
	err    error
}

func (m *mockEventPublisher) PublishPostRevealed(_ context.Context, event domain.PostRevealed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func (m *mockEventPublisher) published() []domain.PostRevealed {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PostRevealed(nil), m.events...)
}

type mockPublisher struct {
	submitPostFn func(ctx context.Context, title string) (domain.PublishedPost, error)
}

func (m *mockPublisher) SubmitPost(ctx context.Context, title string) (domain.PublishedPost, error) {
	if m.submitPostFn != nil {
		return m.submitPostFn(ctx, title)
	}
	return domain.PublishedPost{ID: "t3_new", URL: "https://example.com/t3_new"}, nil
}

// flakyLedger wraps a real ledger and lets tests fail individual calls.
type flakyLedger struct {
	domain.VoteLedger
	recordVoteFn func(ctx context.Context, postID, userID string, choice domain.VoteChoice) (int64, error)
}

func (l *flakyLedger) RecordVote(ctx context.Context, postID, userID string, choice domain.VoteChoice) (int64, error) {
	if l.recordVoteFn != nil {
		return l.recordVoteFn(ctx, postID, userID, choice)
	}
	return l.VoteLedger.RecordVote(ctx, postID, userID, choice)
}

// flakyStats wraps a real stats store and lets tests fail individual awards.
type flakyStats struct {
	domain.StatsStore
	applyAwardFn func(ctx context.Context, postID, userID string, award domain.ScoreAward) (bool, error)
}

func (s *flakyStats) ApplyAward(ctx context.Context, postID, userID string, award domain.ScoreAward) (bool, error) {
	if s.applyAwardFn != nil {
		return s.applyAwardFn(ctx, postID, userID, award)
	}
	return s.StatsStore.ApplyAward(ctx, postID, userID, award)
}

type mockLeader struct {
	mu          sync.Mutex
	tries       int
	released    bool
	tryBecomeFn func(ctx context.Context) (bool, error)
}

func (m *mockLeader) TryBecomeLeader(ctx context.Context) (bool, error) {
	m.mu.Lock()
	m.tries++
	m.mu.Unlock()
	if m.tryBecomeFn != nil {
		return m.tryBecomeFn(ctx)
	}
	return true, nil
}

func (m *mockLeader) ReleaseLease(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = true
	return nil
}

func (m *mockLeader) state() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tries, m.released
}

// --- Test environment ---

type testEnv struct {
	clock    *clockwork.FakeClock
	store    *memory.Store
	stores   Stores
	events   *mockEventPublisher
	revealer *Revealer
	game     *Game
	rules    Rules
}

func newTestEnv(t *testing.T, rules Rules) *testEnv {
	t.Helper()
	clock := clockwork.NewFakeClockAt(t0)
	store := memory.NewStore(clock)
	stores := Stores{Posts: store, Votes: store, Limits: store, Stats: store}
	return buildTestEnv(clock, store, stores, rules)
}

func buildTestEnv(clock *clockwork.FakeClock, store *memory.Store, stores Stores, rules Rules) *testEnv {
	events := &mockEventPublisher{}
	revealer := NewRevealer(stores, events, clock, nil)
	return &testEnv{
		clock:    clock,
		store:    store,
		stores:   stores,
		events:   events,
		revealer: revealer,
		game:     NewGame(stores, moderation.NewFilter(), &mockPublisher{}, revealer, clock, rules, nil),
		rules:    rules,
	}
}

func rulesWithThreshold(n int64) Rules {
	r := defaultRules()
	r.VoteThreshold = n
	return r
}

func (e *testEnv) createPost(t *testing.T, postID, authorID string, lie int) {
	t.Helper()
	_, err := e.game.CreatePost(context.Background(), CreatePostInput{
		UserID:     authorID,
		PostID:     postID,
		Statements: validStatements,
		LieIndex:   lie,
	})
	if err != nil {
		t.Fatalf("create post %s: %v", postID, err)
	}
}

func (e *testEnv) vote(t *testing.T, postID, userID string, choice int) VoteResult {
	t.Helper()
	res, err := e.game.CastVote(context.Background(), VoteInput{UserID: userID, PostID: postID, Vote: choice})
	if err != nil {
		t.Fatalf("vote by %s: %v", userID, err)
	}
	return res
}

func (e *testEnv) post(t *testing.T, postID string) *domain.Post {
	t.Helper()
	p, err := e.store.GetPost(context.Background(), postID)
	if err != nil {
		t.Fatalf("get post %s: %v", postID, err)
	}
	return p
}

func (e *testEnv) stats(t *testing.T, userID string) domain.UserStats {
	t.Helper()
	s, err := e.store.GetStats(context.Background(), userID)
	if err != nil {
		t.Fatalf("get stats %s: %v", userID, err)
	}
	return s
}
