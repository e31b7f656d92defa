package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/decept/internal/domain"
)

type VoteLedger struct {
	rdb   *goredis.Client
	clock clockwork.Clock
}

func NewVoteLedger(rdb *goredis.Client, clock clockwork.Clock) *VoteLedger {
	return &VoteLedger{rdb: rdb, clock: clock}
}

func (l *VoteLedger) HasVoted(ctx context.Context, postID, userID string) (bool, error) {
	n, err := l.rdb.Exists(ctx, voteKey(postID, userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check vote: %w", err)
	}
	return n == 1, nil
}

func (l *VoteLedger) GetVote(ctx context.Context, postID, userID string) (domain.VoteChoice, bool, error) {
	raw, err := l.rdb.Get(ctx, voteKey(postID, userID)).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read vote: %w", err)
	}

	choice, err := domain.ParseVoteChoiceString(raw)
	if err != nil {
		return 0, false, fmt.Errorf("vote of %s on %s is corrupt: %w", userID, postID, err)
	}
	return choice, true, nil
}

func (l *VoteLedger) RecordVote(ctx context.Context, postID, userID string, choice domain.VoteChoice) (int64, error) {
	keys := []string{postKey(postID), voteKey(postID, userID), votersKey(postID)}
	total, err := recordVoteScript.Run(ctx, l.rdb, keys, choice.String(), userID, l.clock.Now().UnixMilli()).Int64()
	if err != nil {
		return 0, fmt.Errorf("record vote script failed: %w", err)
	}

	switch total {
	case statusNotFound:
		return 0, domain.ErrPostNotFound
	case statusRevealed:
		return 0, domain.ErrPostRevealed
	case statusAlreadyVoted:
		return 0, domain.ErrAlreadyVoted
	}
	return total, nil
}

// ListVoters returns voters by ascending vote time; ties fall back to member order.
func (l *VoteLedger) ListVoters(ctx context.Context, postID string) ([]string, error) {
	voters, err := l.rdb.ZRange(ctx, votersKey(postID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list voters: %w", err)
	}
	return voters, nil
}
