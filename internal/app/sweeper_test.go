package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/decept/internal/adapter/memory"
	"github.com/pscheid92/decept/internal/domain"
)

func testSweepConfig() SweepConfig {
	return SweepConfig{
		RevealAfter: 24 * time.Hour,
		BatchSize:   100,
		Timeout:     time.Minute,
		Interval:    5 * time.Minute,
	}
}

// Scenario F: an old post below the vote threshold is revealed by the sweep.
func TestSweeper_RevealsExpiredPosts(t *testing.T) {
	env := newTestEnv(t, defaultRules())
	env.createPost(t, "old", "author", 2)
	env.vote(t, "old", "u1", 2)
	env.vote(t, "old", "u2", 1)

	env.clock.Advance(23 * time.Hour)
	env.createPost(t, "young", "author", 1)
	env.clock.Advance(2 * time.Hour)

	sweeper := NewSweeper(env.store, env.revealer, nil, env.clock, testSweepConfig(), nil)
	report, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Candidates: 1, Revealed: 1}, report)

	old := env.post(t, "old")
	assert.True(t, old.Revealed)
	assert.Equal(t, int64(2), old.TotalVotes)
	assert.False(t, env.post(t, "young").Revealed)

	pending, err := env.store.IsUnrevealed(context.Background(), "old")
	require.NoError(t, err)
	assert.False(t, pending)

	// 50% fooled, 2 votes: round(50 * 1.2)
	assert.Equal(t, domain.UserStats{TotalLiarScore: 60, TotalPosts: 1}, env.stats(t, "author"))
	assert.Equal(t, domain.UserStats{TotalDetectiveScore: 20, TotalVotes: 1, CorrectVotes: 1}, env.stats(t, "u1"))

	events := env.events.published()
	require.Len(t, events, 1)
	assert.Equal(t, domain.TriggerExpiry, events[0].Trigger)
}

func TestSweeper_ContinuesPastFailures(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	store := memory.NewStore(clock)
	stats := &flakyStats{StatsStore: store}
	stores := Stores{Posts: store, Votes: store, Limits: store, Stats: stats}
	env := buildTestEnv(clock, store, stores, defaultRules())

	env.createPost(t, "bad", "author-bad", 1)
	env.vote(t, "bad", "u1", 1)
	clock.Advance(time.Minute)
	env.createPost(t, "good", "author-good", 1)
	env.vote(t, "good", "u1", 1)
	clock.Advance(25 * time.Hour)

	stats.applyAwardFn = func(ctx context.Context, postID, userID string, award domain.ScoreAward) (bool, error) {
		if postID == "bad" {
			return false, errors.New("boom")
		}
		return store.ApplyAward(ctx, postID, userID, award)
	}

	sweeper := NewSweeper(store, env.revealer, nil, clock, testSweepConfig(), nil)
	report, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Candidates: 2, Revealed: 1, Failed: 1}, report)

	pending, err := store.IsUnrevealed(context.Background(), "bad")
	require.NoError(t, err)
	assert.True(t, pending, "failed post is retried by the next sweep")

	stats.applyAwardFn = nil
	report, err = sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Candidates: 1, Revealed: 1}, report)
	assert.Equal(t, int64(1), env.stats(t, "author-bad").TotalPosts)
}

func TestSweeper_BatchSize(t *testing.T) {
	env := newTestEnv(t, defaultRules())
	for _, id := range []string{"p1", "p2", "p3"} {
		env.createPost(t, id, "author-"+id, 1)
		env.clock.Advance(time.Second)
	}
	env.clock.Advance(25 * time.Hour)

	cfg := testSweepConfig()
	cfg.BatchSize = 2
	sweeper := NewSweeper(env.store, env.revealer, nil, env.clock, cfg, nil)

	candidates, err := sweeper.Candidates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, candidates)

	report, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Revealed)
	assert.False(t, env.post(t, "p3").Revealed)
}

func TestSweeper_RunSweepsOnTickAsLeader(t *testing.T) {
	env := newTestEnv(t, defaultRules())
	env.createPost(t, "p", "author", 1)
	env.clock.Advance(25 * time.Hour)

	leader := &mockLeader{}
	cfg := testSweepConfig()
	sweeper := NewSweeper(env.store, env.revealer, leader, env.clock, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	require.NoError(t, env.clock.BlockUntilContext(ctx, 1))
	env.clock.Advance(cfg.Interval)

	assert.Eventually(t, func() bool {
		p, err := env.store.GetPost(context.Background(), "p")
		return err == nil && p.Revealed
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	tries, released := leader.state()
	assert.Equal(t, 1, tries)
	assert.True(t, released)
}

func TestSweeper_RunSkipsWhenNotLeader(t *testing.T) {
	env := newTestEnv(t, defaultRules())
	env.createPost(t, "p", "author", 1)
	env.clock.Advance(25 * time.Hour)

	leader := &mockLeader{tryBecomeFn: func(context.Context) (bool, error) { return false, nil }}
	cfg := testSweepConfig()
	sweeper := NewSweeper(env.store, env.revealer, leader, env.clock, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	require.NoError(t, env.clock.BlockUntilContext(ctx, 1))
	env.clock.Advance(cfg.Interval)

	assert.Eventually(t, func() bool {
		tries, _ := leader.state()
		return tries == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.False(t, env.post(t, "p").Revealed)
}
