package domain

import "context"

type UserStats struct {
	TotalLiarScore      int64 `json:"totalLiarScore"`
	TotalDetectiveScore int64 `json:"totalDetectiveScore"`
	TotalPosts          int64 `json:"totalPosts"`
	TotalVotes          int64 `json:"totalVotes"`
	CorrectVotes        int64 `json:"correctVotes"`
}

// ScoreAward is the stat delta applied to one user for one revealed post.
type ScoreAward struct {
	LiarScore      int64
	DetectiveScore int64
	Posts          int64
	Votes          int64
	CorrectVotes   int64
}

type StatsStore interface {
	GetStats(ctx context.Context, userID string) (UserStats, error)
	// ApplyAward adds the award to the user's stats unless this user was
	// already scored for postID. Returns false when the award was a duplicate.
	ApplyAward(ctx context.Context, postID, userID string, award ScoreAward) (bool, error)
}
