package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/decept/internal/adapter/memory"
	"github.com/pscheid92/decept/internal/domain"
)

func TestReveal_Idempotent(t *testing.T) {
	env := newTestEnv(t, defaultRules())
	env.createPost(t, "p", "author", 1)
	env.vote(t, "p", "u1", 1)
	env.vote(t, "p", "u2", 2)
	ctx := context.Background()

	first, err := env.revealer.Reveal(ctx, "p", domain.TriggerExpiry)
	require.NoError(t, err)
	assert.Equal(t, RevealScored, first.Outcome)
	assert.Equal(t, 3, first.Awarded)

	authorAfterFirst := env.stats(t, "author")

	second, err := env.revealer.Reveal(ctx, "p", domain.TriggerThreshold)
	require.NoError(t, err)
	assert.Equal(t, RevealNoop, second.Outcome)
	assert.Equal(t, authorAfterFirst, env.stats(t, "author"))
	assert.Len(t, env.events.published(), 1)
}

func TestReveal_ConcurrentTriggersScoreOnce(t *testing.T) {
	env := newTestEnv(t, defaultRules())
	env.createPost(t, "p", "author", 2)
	for i, u := range []string{"u1", "u2", "u3", "u4"} {
		env.vote(t, "p", u, i%3+1)
	}

	// Two revealers over the same store behave like two instances: no shared singleflight.
	other := NewRevealer(env.stores, env.events, env.clock, nil)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, trigger := env.revealer, domain.TriggerThreshold
			if i%2 == 1 {
				r, trigger = other, domain.TriggerExpiry
			}
			_, err := r.Reveal(context.Background(), "p", trigger)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), env.stats(t, "author").TotalPosts)
	for _, u := range []string{"u1", "u2", "u3", "u4"} {
		assert.Equal(t, int64(1), env.stats(t, u).TotalVotes, u)
	}
}

func TestReveal_ZeroVotesClosesWithoutScoring(t *testing.T) {
	env := newTestEnv(t, defaultRules())
	env.createPost(t, "p", "author", 1)

	res, err := env.revealer.Reveal(context.Background(), "p", domain.TriggerExpiry)
	require.NoError(t, err)
	assert.Equal(t, RevealEmpty, res.Outcome)

	assert.True(t, env.post(t, "p").Revealed)
	unrevealed, err := env.store.IsUnrevealed(context.Background(), "p")
	require.NoError(t, err)
	assert.False(t, unrevealed)
	assert.Equal(t, domain.UserStats{}, env.stats(t, "author"))
	assert.Empty(t, env.events.published())
}

func TestReveal_NotFound(t *testing.T) {
	env := newTestEnv(t, defaultRules())

	_, err := env.revealer.Reveal(context.Background(), "ghost", domain.TriggerExpiry)
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestReveal_ResumesAfterFailure(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	store := memory.NewStore(clock)
	stats := &flakyStats{StatsStore: store}
	stores := Stores{Posts: store, Votes: store, Limits: store, Stats: stats}
	env := buildTestEnv(clock, store, stores, defaultRules())
	env.createPost(t, "p", "author", 3)
	env.vote(t, "p", "u1", 3)
	env.vote(t, "p", "u2", 1)
	ctx := context.Background()

	stats.applyAwardFn = func(ctx context.Context, postID, userID string, award domain.ScoreAward) (bool, error) {
		if userID == "u2" {
			return false, errors.New("connection reset")
		}
		return store.ApplyAward(ctx, postID, userID, award)
	}

	_, err := env.revealer.Reveal(ctx, "p", domain.TriggerExpiry)
	require.Error(t, err)

	assert.True(t, env.post(t, "p").Revealed)
	pending, err := store.IsUnrevealed(ctx, "p")
	require.NoError(t, err)
	assert.True(t, pending, "interrupted reveal stays indexed")
	assert.Equal(t, int64(1), env.stats(t, "author").TotalPosts)
	assert.Equal(t, int64(1), env.stats(t, "u1").TotalVotes)
	assert.Zero(t, env.stats(t, "u2").TotalVotes)

	stats.applyAwardFn = nil
	res, err := env.revealer.Reveal(ctx, "p", domain.TriggerExpiry)
	require.NoError(t, err)
	assert.Equal(t, RevealScored, res.Outcome)
	assert.Equal(t, 1, res.Awarded)

	assert.Equal(t, int64(1), env.stats(t, "author").TotalPosts)
	assert.Equal(t, int64(1), env.stats(t, "u1").TotalVotes)
	assert.Equal(t, domain.UserStats{TotalDetectiveScore: 5, TotalVotes: 1}, env.stats(t, "u2"))

	pending, err = store.IsUnrevealed(ctx, "p")
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestReveal_SharpEyeAndBonusTiers(t *testing.T) {
	env := newTestEnv(t, rulesWithThreshold(11))
	env.createPost(t, "p", "author", 1)
	// 1 of 11 correct: 90.9% fooled, 9.1% correct
	env.vote(t, "p", "sharp", 1)
	for i := range 9 {
		env.vote(t, "p", "fooled-"+string(rune('a'+i)), 2)
	}
	res := env.vote(t, "p", "last", 3)
	require.True(t, res.Revealed)

	// (90.91 + 50) * (1 + 11/10) = 295.9
	assert.Equal(t, int64(296), env.stats(t, "author").TotalLiarScore)
	assert.Equal(t, int64(50), env.stats(t, "sharp").TotalDetectiveScore)
	assert.Equal(t, int64(5), env.stats(t, "last").TotalDetectiveScore)
}

func TestReveal_EventPublishFailureIsIgnored(t *testing.T) {
	env := newTestEnv(t, defaultRules())
	env.events.err = errors.New("pubsub down")
	env.createPost(t, "p", "author", 1)
	env.vote(t, "p", "u1", 1)

	res, err := env.revealer.Reveal(context.Background(), "p", domain.TriggerExpiry)
	require.NoError(t, err)
	assert.Equal(t, RevealScored, res.Outcome)
}
