package domain

import (
	"context"
	"time"
)

type Post struct {
	ID         string
	AuthorID   string
	Statements [3]string
	LieIndex   VoteChoice
	CreatedAt  time.Time
	Revealed   bool

	// Votes holds the per-choice tallies, indexed by VoteChoice.Index().
	Votes      [3]int64
	TotalVotes int64
}

// VotesFor returns the tally for a single choice.
func (p *Post) VotesFor(choice VoteChoice) int64 {
	return p.Votes[choice.Index()]
}

// Outcome summarises how voters did against the lie.
type Outcome struct {
	TotalVotes     int64
	CorrectGuesses int64
	WrongGuesses   int64
	PercentFooled  float64
	PercentCorrect float64
}

// Outcome computes the reveal statistics. Percentages are zero when nobody voted.
func (p *Post) Outcome() Outcome {
	correct := p.VotesFor(p.LieIndex)
	o := Outcome{
		TotalVotes:     p.TotalVotes,
		CorrectGuesses: correct,
		WrongGuesses:   p.TotalVotes - correct,
	}
	if p.TotalVotes > 0 {
		o.PercentFooled = 100 * float64(o.WrongGuesses) / float64(p.TotalVotes)
		o.PercentCorrect = 100 * float64(o.CorrectGuesses) / float64(p.TotalVotes)
	}
	return o
}

// PostView is the fetch-post response. Result fields stay nil until the post is revealed.
type PostView struct {
	PostID           string      `json:"postId"`
	AuthorID         string      `json:"authorId"`
	Statements       [3]string   `json:"statements"`
	Revealed         bool        `json:"revealed"`
	TotalVotes       int64       `json:"totalVotes"`
	UserVote         *VoteChoice `json:"userVote"`
	IsAuthor         bool        `json:"isAuthor"`
	LieIndex         *VoteChoice `json:"lieIndex"`
	VotesFor1        *int64      `json:"votesFor1"`
	VotesFor2        *int64      `json:"votesFor2"`
	VotesFor3        *int64      `json:"votesFor3"`
	DeceptionPercent *int64      `json:"deceptionPercent"`
}

// PostStore persists posts and the unrevealed index.
type PostStore interface {
	// CreatePost saves the post and inserts it into the unrevealed index in
	// one atomic step. Fails with ErrPostExists if the ID is taken.
	CreatePost(ctx context.Context, post *Post) error
	GetPost(ctx context.Context, postID string) (*Post, error)
	// MarkRevealed flips the revealed flag only if it is currently false.
	// Returns true if this call performed the flip.
	MarkRevealed(ctx context.Context, postID string) (bool, error)

	IsUnrevealed(ctx context.Context, postID string) (bool, error)
	RemoveUnrevealed(ctx context.Context, postID string) error
	// ListExpired returns up to limit unrevealed post IDs created at or before cutoff, oldest first.
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

// PublishedPost is the platform-side post materialised for a new game.
type PublishedPost struct {
	ID  string
	URL string
}

// PostPublisher asks the host platform to create a user-visible post.
type PostPublisher interface {
	SubmitPost(ctx context.Context, title string) (PublishedPost, error)
}

// ContentFilter cleans and screens user-written statements.
type ContentFilter interface {
	// Sanitize strips markup and returns plain text.
	Sanitize(text string) string
	// IsClean reports whether the text is free of banned words.
	IsClean(text string) bool
}
