package domain

import (
	"context"
	"time"
)

// RevealTrigger says what caused a reveal.
type RevealTrigger string

const (
	TriggerThreshold RevealTrigger = "threshold"
	TriggerExpiry    RevealTrigger = "expiry"
)

// PostRevealed is emitted once a post has been revealed and scored.
type PostRevealed struct {
	PostID        string        `json:"postId"`
	AuthorID      string        `json:"authorId"`
	LieIndex      VoteChoice    `json:"lieIndex"`
	TotalVotes    int64         `json:"totalVotes"`
	PercentFooled float64       `json:"percentFooled"`
	LiarScore     int64         `json:"liarScore"`
	Trigger       RevealTrigger `json:"trigger"`
	RevealedAt    time.Time     `json:"revealedAt"`
}

// EventPublisher publishes domain events to infrastructure.
type EventPublisher interface {
	PublishPostRevealed(ctx context.Context, event PostRevealed) error
}
