package domain

import "context"

// RateLimitAction names a daily-limited action.
type RateLimitAction string

const (
	ActionPosts RateLimitAction = "posts"
	ActionVotes RateLimitAction = "votes"
)

// RateLimiter gates actions per user and UTC calendar day.
// A missing counter means zero usage.
type RateLimiter interface {
	// CheckLimit returns true if the user is blocked.
	CheckLimit(ctx context.Context, userID string, action RateLimitAction, maxPerDay int) (bool, error)
	// Increment records one use. The first use of a day starts a 24h expiry.
	Increment(ctx context.Context, userID string, action RateLimitAction) error
}
