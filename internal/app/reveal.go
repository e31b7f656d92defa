package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/pscheid92/decept/internal/domain"
	"github.com/pscheid92/decept/internal/scoring"
)

// RevealOutcome says what a Reveal call did.
type RevealOutcome string

const (
	// RevealScored means the post was closed and scores were handed out.
	RevealScored RevealOutcome = "revealed"
	// RevealEmpty means the post was closed without votes, so nobody was scored.
	RevealEmpty RevealOutcome = "empty"
	// RevealNoop means another trigger already owns or finished the reveal.
	RevealNoop RevealOutcome = "noop"
)

type RevealResult struct {
	PostID     string
	Outcome    RevealOutcome
	TotalVotes int64
	LiarScore  int64
	// Awarded counts users whose stats changed in this call. It is lower than
	// TotalVotes+1 when a previous attempt already scored some of them.
	Awarded int
}

// Revealer moves a post from open to revealed and scores the author and
// every voter exactly once.
//
// The revealed flag is flipped with a conditional write; whoever wins the flip
// owns the scoring. The post stays in the unrevealed index until scoring
// finishes, so a revealed post that is still indexed marks an interrupted
// attempt that any later call may resume. Per-user award guards in the stats
// store keep resumed scoring from counting anyone twice.
type Revealer struct {
	posts   domain.PostStore
	votes   domain.VoteLedger
	stats   domain.StatsStore
	events  domain.EventPublisher
	clock   clockwork.Clock
	metrics Metrics
	group   singleflight.Group
}

// NewRevealer creates a Revealer. events and m may be nil.
func NewRevealer(stores Stores, events domain.EventPublisher, clock clockwork.Clock, m Metrics) *Revealer {
	return &Revealer{
		posts:   stores.Posts,
		votes:   stores.Votes,
		stats:   stores.Stats,
		events:  events,
		clock:   clock,
		metrics: metricsOrNoop(m),
	}
}

// Reveal closes and scores the post. Concurrent calls for the same post in
// this process share one execution.
func (r *Revealer) Reveal(ctx context.Context, postID string, trigger domain.RevealTrigger) (RevealResult, error) {
	v, err, _ := r.group.Do(postID, func() (any, error) {
		start := r.clock.Now()
		res, err := r.reveal(ctx, postID, trigger)
		if err != nil {
			r.metrics.RevealFailed(string(trigger))
			return res, err
		}
		r.metrics.Revealed(string(trigger), string(res.Outcome), res.LiarScore, r.clock.Since(start))
		return res, nil
	})
	res, _ := v.(RevealResult)
	return res, err
}

func (r *Revealer) reveal(ctx context.Context, postID string, trigger domain.RevealTrigger) (RevealResult, error) {
	post, err := r.posts.GetPost(ctx, postID)
	if err != nil {
		return RevealResult{}, fmt.Errorf("failed to load post: %w", err)
	}

	if post.Revealed {
		pending, err := r.posts.IsUnrevealed(ctx, postID)
		if err != nil {
			return RevealResult{}, fmt.Errorf("failed to check unrevealed index: %w", err)
		}
		if !pending {
			return RevealResult{PostID: postID, Outcome: RevealNoop, TotalVotes: post.TotalVotes}, nil
		}
		slog.InfoContext(ctx, "Resuming interrupted reveal", "post_id", postID, "trigger", trigger)
	} else {
		flipped, err := r.posts.MarkRevealed(ctx, postID)
		if err != nil {
			return RevealResult{}, fmt.Errorf("failed to mark post revealed: %w", err)
		}
		if !flipped {
			return RevealResult{PostID: postID, Outcome: RevealNoop, TotalVotes: post.TotalVotes}, nil
		}

		// No vote can land after the flip, so this read has the final tallies.
		post, err = r.posts.GetPost(ctx, postID)
		if err != nil {
			return RevealResult{}, fmt.Errorf("failed to reload post: %w", err)
		}
	}

	res, err := r.score(ctx, post)
	if err != nil {
		return res, err
	}

	if err := r.posts.RemoveUnrevealed(ctx, postID); err != nil {
		return res, fmt.Errorf("failed to close post: %w", err)
	}

	slog.InfoContext(ctx, "Post revealed",
		"post_id", postID,
		"trigger", trigger,
		"outcome", res.Outcome,
		"total_votes", res.TotalVotes,
		"liar_score", res.LiarScore,
		"awarded", res.Awarded,
	)

	if res.Outcome == RevealScored {
		r.publish(ctx, post, res, trigger)
	}
	return res, nil
}

func (r *Revealer) score(ctx context.Context, post *domain.Post) (RevealResult, error) {
	outcome := post.Outcome()
	res := RevealResult{PostID: post.ID, Outcome: RevealEmpty, TotalVotes: outcome.TotalVotes}
	if outcome.TotalVotes == 0 {
		return res, nil
	}

	res.Outcome = RevealScored
	res.LiarScore = scoring.LiarScore(outcome.PercentFooled, outcome.TotalVotes)

	applied, err := r.stats.ApplyAward(ctx, post.ID, post.AuthorID, domain.ScoreAward{LiarScore: res.LiarScore, Posts: 1})
	if err != nil {
		return res, fmt.Errorf("failed to award author: %w", err)
	}
	if applied {
		res.Awarded++
	}

	voters, err := r.votes.ListVoters(ctx, post.ID)
	if err != nil {
		return res, fmt.Errorf("failed to list voters: %w", err)
	}

	for _, voterID := range voters {
		choice, ok, err := r.votes.GetVote(ctx, post.ID, voterID)
		if err != nil {
			return res, fmt.Errorf("failed to read vote of %s: %w", voterID, err)
		}
		if !ok {
			continue
		}

		correct := choice == post.LieIndex
		award := domain.ScoreAward{
			DetectiveScore: scoring.DetectiveScore(correct, outcome.PercentCorrect),
			Votes:          1,
		}
		if correct {
			award.CorrectVotes = 1
		}

		applied, err := r.stats.ApplyAward(ctx, post.ID, voterID, award)
		if err != nil {
			return res, fmt.Errorf("failed to award voter %s: %w", voterID, err)
		}
		if applied {
			res.Awarded++
		}
	}
	return res, nil
}

func (r *Revealer) publish(ctx context.Context, post *domain.Post, res RevealResult, trigger domain.RevealTrigger) {
	if r.events == nil {
		return
	}
	event := domain.PostRevealed{
		PostID:        post.ID,
		AuthorID:      post.AuthorID,
		LieIndex:      post.LieIndex,
		TotalVotes:    res.TotalVotes,
		PercentFooled: post.Outcome().PercentFooled,
		LiarScore:     res.LiarScore,
		Trigger:       trigger,
		RevealedAt:    r.clock.Now(),
	}
	if err := r.events.PublishPostRevealed(ctx, event); err != nil {
		slog.WarnContext(ctx, "Failed to publish reveal event", "post_id", post.ID, "error", err)
	}
}
