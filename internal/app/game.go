package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/decept/internal/domain"
)

// Stores bundles the persistence contracts the game needs.
type Stores struct {
	Posts  domain.PostStore
	Votes  domain.VoteLedger
	Limits domain.RateLimiter
	Stats  domain.StatsStore
}

// Rules are the tunable game constants.
type Rules struct {
	VoteThreshold   int64
	RevealAfter     time.Duration
	MaxPostsPerDay  int
	MaxVotesPerDay  int
	StatementMinLen int
	StatementMaxLen int
	PostTitle       string
}

type CreatePostInput struct {
	UserID     string
	PostID     string
	Statements [3]string
	LieIndex   int
}

type VoteInput struct {
	UserID string
	PostID string
	Vote   int
}

type VoteResult struct {
	TotalVotes int64 `json:"totalVotes"`
	Revealed   bool  `json:"revealed"`
}

type Game struct {
	stores    Stores
	filter    domain.ContentFilter
	publisher domain.PostPublisher
	revealer  *Revealer
	clock     clockwork.Clock
	rules     Rules
	metrics   Metrics
}

// NewGame wires the game use cases. m may be nil.
func NewGame(stores Stores, filter domain.ContentFilter, publisher domain.PostPublisher, revealer *Revealer, clock clockwork.Clock, rules Rules, m Metrics) *Game {
	return &Game{
		stores:    stores,
		filter:    filter,
		publisher: publisher,
		revealer:  revealer,
		clock:     clock,
		rules:     rules,
		metrics:   metricsOrNoop(m),
	}
}

// CreatePost fills the platform post with the author's statements and opens it
// for voting. All input checks run before anything is written.
func (g *Game) CreatePost(ctx context.Context, in CreatePostInput) (string, error) {
	if in.UserID == "" {
		return "", domain.ErrUnauthenticated
	}
	if in.PostID == "" {
		return "", domain.ErrNoPostContext
	}

	_, err := g.stores.Posts.GetPost(ctx, in.PostID)
	if err == nil {
		return "", domain.ErrPostExists
	}
	if !errors.Is(err, domain.ErrPostNotFound) {
		return "", fmt.Errorf("failed to check existing post: %w", err)
	}

	var statements [3]string
	for i, raw := range in.Statements {
		s, err := g.cleanStatement(raw)
		if err != nil {
			return "", fmt.Errorf("statement %d: %w", i+1, err)
		}
		statements[i] = s
	}

	lie, err := domain.ParseVoteChoice(in.LieIndex)
	if err != nil {
		return "", fmt.Errorf("lieIndex: %w", err)
	}

	for _, s := range statements {
		if !g.filter.IsClean(s) {
			return "", domain.ErrInappropriateContent
		}
	}

	blocked, err := g.stores.Limits.CheckLimit(ctx, in.UserID, domain.ActionPosts, g.rules.MaxPostsPerDay)
	if err != nil {
		return "", fmt.Errorf("failed to check post limit: %w", err)
	}
	if blocked {
		return "", fmt.Errorf("%w: you can only create %d posts per day", domain.ErrRateLimited, g.rules.MaxPostsPerDay)
	}

	post := &domain.Post{
		ID:         in.PostID,
		AuthorID:   in.UserID,
		Statements: statements,
		LieIndex:   lie,
		CreatedAt:  g.clock.Now(),
	}
	if err := g.stores.Posts.CreatePost(ctx, post); err != nil {
		if errors.Is(err, domain.ErrPostExists) {
			return "", err
		}
		return "", fmt.Errorf("failed to save post: %w", err)
	}

	g.countUse(ctx, in.UserID, domain.ActionPosts)
	g.metrics.PostCreated()
	slog.InfoContext(ctx, "Post created", "post_id", post.ID, "author_id", post.AuthorID)
	return post.ID, nil
}

// cleanStatement strips markup and surrounding whitespace and enforces the
// length bounds, counted in characters.
func (g *Game) cleanStatement(raw string) (string, error) {
	if !utf8.ValidString(raw) {
		return "", fmt.Errorf("%w: not valid UTF-8", domain.ErrInvalidStatement)
	}
	s := strings.TrimSpace(g.filter.Sanitize(raw))
	n := utf8.RuneCountInString(s)
	if n < g.rules.StatementMinLen || n > g.rules.StatementMaxLen {
		return "", fmt.Errorf("%w: each statement must be %d-%d characters", domain.ErrInvalidStatement, g.rules.StatementMinLen, g.rules.StatementMaxLen)
	}
	return s, nil
}

// CastVote records one vote and reveals the post once it reaches the vote
// threshold. A failed threshold reveal does not fail the vote. If the failure
// came before the post closed, the next vote retries it. If it came after,
// the next vote attempt resumes the scoring before being refused. Posts that
// get no further votes are picked up by the expiry sweep.
func (g *Game) CastVote(ctx context.Context, in VoteInput) (res VoteResult, err error) {
	defer func() { g.metrics.VoteResult(voteResultLabel(err)) }()

	if in.UserID == "" {
		return VoteResult{}, domain.ErrUnauthenticated
	}
	if in.PostID == "" {
		return VoteResult{}, domain.ErrMissingPostID
	}
	choice, err := domain.ParseVoteChoice(in.Vote)
	if err != nil {
		return VoteResult{}, err
	}

	post, err := g.stores.Posts.GetPost(ctx, in.PostID)
	if err != nil {
		return VoteResult{}, err
	}
	if post.AuthorID == in.UserID {
		return VoteResult{}, domain.ErrSelfVote
	}
	if post.Revealed {
		g.resumeReveal(ctx, in.PostID)
		return VoteResult{}, domain.ErrPostRevealed
	}

	voted, err := g.stores.Votes.HasVoted(ctx, in.PostID, in.UserID)
	if err != nil {
		return VoteResult{}, fmt.Errorf("failed to check vote: %w", err)
	}
	if voted {
		return VoteResult{}, domain.ErrAlreadyVoted
	}

	blocked, err := g.stores.Limits.CheckLimit(ctx, in.UserID, domain.ActionVotes, g.rules.MaxVotesPerDay)
	if err != nil {
		return VoteResult{}, fmt.Errorf("failed to check vote limit: %w", err)
	}
	if blocked {
		return VoteResult{}, fmt.Errorf("%w: you can only cast %d votes per day", domain.ErrRateLimited, g.rules.MaxVotesPerDay)
	}

	total, err := g.stores.Votes.RecordVote(ctx, in.PostID, in.UserID, choice)
	if err != nil {
		return VoteResult{}, err
	}
	g.countUse(ctx, in.UserID, domain.ActionVotes)

	res = VoteResult{TotalVotes: total}
	if total >= g.rules.VoteThreshold {
		if _, rerr := g.revealer.Reveal(ctx, in.PostID, domain.TriggerThreshold); rerr != nil {
			slog.ErrorContext(ctx, "Threshold reveal failed", "post_id", in.PostID, "total_votes", total, "error", rerr)
		} else {
			res.Revealed = true
		}
	}
	return res, nil
}

// resumeReveal finishes scoring a post that closed but is still indexed as
// unrevealed, which happens when a reveal failed halfway.
func (g *Game) resumeReveal(ctx context.Context, postID string) {
	pending, err := g.stores.Posts.IsUnrevealed(ctx, postID)
	if err != nil {
		slog.WarnContext(ctx, "Failed to check unrevealed index", "post_id", postID, "error", err)
		return
	}
	if !pending {
		return
	}
	if _, err := g.revealer.Reveal(ctx, postID, domain.TriggerThreshold); err != nil {
		slog.ErrorContext(ctx, "Resumed reveal failed", "post_id", postID, "error", err)
	}
}

// countUse increments a daily counter after the action succeeded. The limit
// is soft, so a failure here is logged rather than surfaced.
func (g *Game) countUse(ctx context.Context, userID string, action domain.RateLimitAction) {
	if err := g.stores.Limits.Increment(ctx, userID, action); err != nil {
		slog.WarnContext(ctx, "Failed to count rate-limited action", "user_id", userID, "action", action, "error", err)
	}
}

func voteResultLabel(err error) string {
	switch {
	case err == nil:
		return "recorded"
	case errors.Is(err, domain.ErrAlreadyVoted):
		return "duplicate"
	case errors.Is(err, domain.ErrSelfVote):
		return "self_vote"
	case errors.Is(err, domain.ErrPostRevealed):
		return "revealed"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrPostNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidChoice), errors.Is(err, domain.ErrMissingPostID):
		return "invalid"
	default:
		return "error"
	}
}

// GetPost builds the player's view of a post. userID may be empty for
// anonymous viewers. Results stay hidden until the post is revealed.
func (g *Game) GetPost(ctx context.Context, userID, postID string) (*domain.PostView, error) {
	if postID == "" {
		return nil, domain.ErrMissingPostID
	}

	post, err := g.stores.Posts.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	view := &domain.PostView{
		PostID:     post.ID,
		AuthorID:   post.AuthorID,
		Statements: post.Statements,
		Revealed:   post.Revealed,
		TotalVotes: post.TotalVotes,
		IsAuthor:   userID != "" && userID == post.AuthorID,
	}

	if userID != "" {
		choice, ok, err := g.stores.Votes.GetVote(ctx, postID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to read user vote: %w", err)
		}
		if ok {
			view.UserVote = &choice
		}
	}

	if post.Revealed {
		lie := post.LieIndex
		v1, v2, v3 := post.Votes[0], post.Votes[1], post.Votes[2]
		view.LieIndex = &lie
		view.VotesFor1, view.VotesFor2, view.VotesFor3 = &v1, &v2, &v3
		if post.TotalVotes > 0 {
			deception := int64(math.Round(post.Outcome().PercentFooled))
			view.DeceptionPercent = &deception
		}
	}
	return view, nil
}

func (g *Game) GetStats(ctx context.Context, userID string) (domain.UserStats, error) {
	if userID == "" {
		return domain.UserStats{}, domain.ErrUnauthenticated
	}
	stats, err := g.stores.Stats.GetStats(ctx, userID)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("failed to load stats: %w", err)
	}
	return stats, nil
}

// PublishPost asks the platform for a new, empty game post.
func (g *Game) PublishPost(ctx context.Context) (domain.PublishedPost, error) {
	post, err := g.publisher.SubmitPost(ctx, g.rules.PostTitle)
	if err != nil {
		return domain.PublishedPost{}, fmt.Errorf("failed to publish post: %w", err)
	}
	slog.InfoContext(ctx, "Platform post published", "post_id", post.ID)
	return post, nil
}
