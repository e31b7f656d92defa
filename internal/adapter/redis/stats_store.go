package redis

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/decept/internal/domain"
)

const (
	statLiarScore      = "totalLiarScore"
	statDetectiveScore = "totalDetectiveScore"
	statPosts          = "totalPosts"
	statVotes          = "totalVotes"
	statCorrectVotes   = "correctVotes"
)

type StatsStore struct {
	rdb *goredis.Client
}

func NewStatsStore(rdb *goredis.Client) *StatsStore {
	return &StatsStore{rdb: rdb}
}

func (s *StatsStore) GetStats(ctx context.Context, userID string) (domain.UserStats, error) {
	fields, err := s.rdb.HGetAll(ctx, userStatsKey(userID)).Result()
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("failed to read user stats: %w", err)
	}
	return decodeStats(fields)
}

func (s *StatsStore) ApplyAward(ctx context.Context, postID, userID string, award domain.ScoreAward) (bool, error) {
	args := []any{userID}
	for _, inc := range []struct {
		field string
		value int64
	}{
		{statLiarScore, award.LiarScore},
		{statDetectiveScore, award.DetectiveScore},
		{statPosts, award.Posts},
		{statVotes, award.Votes},
		{statCorrectVotes, award.CorrectVotes},
	} {
		if inc.value != 0 {
			args = append(args, inc.field, inc.value)
		}
	}

	applied, err := applyAwardScript.Run(ctx, s.rdb, []string{scoredKey(postID), userStatsKey(userID)}, args...).Int()
	if err != nil {
		return false, fmt.Errorf("apply award script failed: %w", err)
	}
	return applied == 1, nil
}

func decodeStats(fields map[string]string) (domain.UserStats, error) {
	var stats domain.UserStats
	for field, dst := range map[string]*int64{
		statLiarScore:      &stats.TotalLiarScore,
		statDetectiveScore: &stats.TotalDetectiveScore,
		statPosts:          &stats.TotalPosts,
		statVotes:          &stats.TotalVotes,
		statCorrectVotes:   &stats.CorrectVotes,
	} {
		raw, ok := fields[field]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.UserStats{}, fmt.Errorf("user stat %s is corrupt: %w", field, err)
		}
		*dst = n
	}
	return stats, nil
}
