package domain

import "errors"

var (
	ErrUnauthenticated      = errors.New("login required")
	ErrNoPostContext        = errors.New("no post context found")
	ErrMissingPostID        = errors.New("postId is required")
	ErrPostNotFound         = errors.New("post not found")
	ErrPostExists           = errors.New("post already has statements")
	ErrInvalidStatement     = errors.New("invalid statement length")
	ErrInvalidChoice        = errors.New("choice must be 1, 2, or 3")
	ErrInappropriateContent = errors.New("statement contains inappropriate language")
	ErrSelfVote             = errors.New("cannot vote on your own post")
	ErrPostRevealed         = errors.New("post has already been revealed")
	ErrAlreadyVoted         = errors.New("already voted on this post")
	ErrRateLimited          = errors.New("daily limit reached")
)
