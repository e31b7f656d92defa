package domain

import (
	"context"
	"fmt"
	"strconv"
)

// VoteChoice is the 1-based position of a statement (1, 2 or 3).
type VoteChoice uint8

const (
	Choice1 VoteChoice = 1
	Choice2 VoteChoice = 2
	Choice3 VoteChoice = 3
)

// Choices lists every valid choice in order.
var Choices = [3]VoteChoice{Choice1, Choice2, Choice3}

// ParseVoteChoice validates an integer choice coming from a request.
func ParseVoteChoice(v int) (VoteChoice, error) {
	switch v {
	case 1, 2, 3:
		return VoteChoice(v), nil
	default:
		return 0, fmt.Errorf("%w: got %d", ErrInvalidChoice, v)
	}
}

// ParseVoteChoiceString is the store-boundary counterpart of ParseVoteChoice.
func ParseVoteChoiceString(s string) (VoteChoice, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChoice, s)
	}
	return ParseVoteChoice(v)
}

func (c VoteChoice) Valid() bool {
	return c >= Choice1 && c <= Choice3
}

// Index returns the zero-based tally slot for the choice. Callers must only
// pass valid choices; anything else panics.
func (c VoteChoice) Index() int {
	if !c.Valid() {
		panic(fmt.Sprintf("invalid vote choice %d", c))
	}
	return int(c) - 1
}

func (c VoteChoice) String() string {
	return strconv.Itoa(int(c))
}

// VoteLedger records one vote per (post, user) pair and keeps the running tallies.
type VoteLedger interface {
	HasVoted(ctx context.Context, postID, userID string) (bool, error)
	// GetVote returns the recorded choice; ok is false if the user has not voted.
	GetVote(ctx context.Context, postID, userID string) (choice VoteChoice, ok bool, err error)
	// RecordVote atomically writes the vote record, appends the voter to the
	// voter-order index and increments the per-choice and total counters.
	// It returns the post-increment total. Fails with ErrAlreadyVoted,
	// ErrPostRevealed or ErrPostNotFound without writing anything.
	RecordVote(ctx context.Context, postID, userID string, choice VoteChoice) (int64, error)
	// ListVoters returns voter IDs in the order they voted.
	ListVoters(ctx context.Context, postID string) ([]string, error)
}
