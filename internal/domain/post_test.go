package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVoteChoice(t *testing.T) {
	for _, v := range []int{1, 2, 3} {
		choice, err := ParseVoteChoice(v)
		require.NoError(t, err)
		assert.Equal(t, VoteChoice(v), choice)
		assert.Equal(t, v-1, choice.Index())
	}

	for _, v := range []int{-1, 0, 4, 100} {
		_, err := ParseVoteChoice(v)
		assert.ErrorIs(t, err, ErrInvalidChoice)
	}
}

func TestParseVoteChoiceString(t *testing.T) {
	choice, err := ParseVoteChoiceString("2")
	require.NoError(t, err)
	assert.Equal(t, Choice2, choice)

	_, err = ParseVoteChoiceString("two")
	assert.ErrorIs(t, err, ErrInvalidChoice)

	_, err = ParseVoteChoiceString("")
	assert.ErrorIs(t, err, ErrInvalidChoice)
}

func TestVoteChoice_IndexPanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { VoteChoice(0).Index() })
	assert.Panics(t, func() { VoteChoice(4).Index() })
}

func TestPostOutcome(t *testing.T) {
	p := &Post{LieIndex: Choice2, Votes: [3]int64{1, 1, 1}, TotalVotes: 3}

	o := p.Outcome()
	assert.Equal(t, int64(1), o.CorrectGuesses)
	assert.Equal(t, int64(2), o.WrongGuesses)
	assert.InDelta(t, 66.67, o.PercentFooled, 0.01)
	assert.InDelta(t, 33.33, o.PercentCorrect, 0.01)
}

func TestPostOutcome_NoVotes(t *testing.T) {
	p := &Post{LieIndex: Choice3}

	o := p.Outcome()
	assert.Zero(t, o.TotalVotes)
	assert.Zero(t, o.PercentFooled)
	assert.Zero(t, o.PercentCorrect)
}
