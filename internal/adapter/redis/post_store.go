package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/decept/internal/domain"
)

// Hash fields of a post. Values are stored as strings.
const (
	fieldAuthorID   = "authorId"
	fieldLieIndex   = "lieIndex"
	fieldCreatedAt  = "createdAt"
	fieldRevealed   = "revealed"
	fieldTotalVotes = "totalVotes"
)

func statementField(choice domain.VoteChoice) string {
	return "statement" + choice.String()
}

func votesForField(choice domain.VoteChoice) string {
	return "votesFor" + choice.String()
}

type PostStore struct {
	rdb *goredis.Client
}

func NewPostStore(rdb *goredis.Client) *PostStore {
	return &PostStore{rdb: rdb}
}

func (s *PostStore) CreatePost(ctx context.Context, post *domain.Post) error {
	createdAt := post.CreatedAt.UnixMilli()
	args := []any{createdAt, post.ID,
		fieldAuthorID, post.AuthorID,
		fieldLieIndex, post.LieIndex.String(),
		fieldCreatedAt, createdAt,
		fieldRevealed, strconv.FormatBool(post.Revealed),
		fieldTotalVotes, post.TotalVotes,
	}
	for _, c := range domain.Choices {
		args = append(args,
			statementField(c), post.Statements[c.Index()],
			votesForField(c), post.Votes[c.Index()],
		)
	}

	status, err := createPostScript.Run(ctx, s.rdb, []string{postKey(post.ID), unrevealedKey}, args...).Int()
	if err != nil {
		return fmt.Errorf("create post script failed: %w", err)
	}
	if status == statusExists {
		return domain.ErrPostExists
	}
	return nil
}

func (s *PostStore) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	fields, err := s.rdb.HGetAll(ctx, postKey(postID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read post: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrPostNotFound
	}
	return decodePost(postID, fields)
}

func (s *PostStore) MarkRevealed(ctx context.Context, postID string) (bool, error) {
	status, err := markRevealedScript.Run(ctx, s.rdb, []string{postKey(postID)}).Int()
	if err != nil {
		return false, fmt.Errorf("mark revealed script failed: %w", err)
	}
	if status == statusNotFound {
		return false, domain.ErrPostNotFound
	}
	return status == 1, nil
}

func (s *PostStore) IsUnrevealed(ctx context.Context, postID string) (bool, error) {
	_, err := s.rdb.ZScore(ctx, unrevealedKey, postID).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check unrevealed index: %w", err)
	}
	return true, nil
}

func (s *PostStore) RemoveUnrevealed(ctx context.Context, postID string) error {
	if err := s.rdb.ZRem(ctx, unrevealedKey, postID).Err(); err != nil {
		return fmt.Errorf("failed to remove from unrevealed index: %w", err)
	}
	return nil
}

func (s *PostStore) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	ids, err := s.rdb.ZRangeByScore(ctx, unrevealedKey, &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(cutoff.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list expired posts: %w", err)
	}
	return ids, nil
}

// decodePost converts the string hash into a typed post. Missing counters
// read as zero.
func decodePost(postID string, fields map[string]string) (*domain.Post, error) {
	lie, err := domain.ParseVoteChoiceString(fields[fieldLieIndex])
	if err != nil {
		return nil, fmt.Errorf("post %s has corrupt lie index: %w", postID, err)
	}

	createdMs, err := parseCounter(fields[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("post %s has corrupt createdAt: %w", postID, err)
	}

	post := &domain.Post{
		ID:        postID,
		AuthorID:  fields[fieldAuthorID],
		LieIndex:  lie,
		CreatedAt: time.UnixMilli(createdMs).UTC(),
		Revealed:  fields[fieldRevealed] == "true",
	}

	for _, c := range domain.Choices {
		post.Statements[c.Index()] = fields[statementField(c)]
		n, err := parseCounter(fields[votesForField(c)])
		if err != nil {
			return nil, fmt.Errorf("post %s has corrupt %s: %w", postID, votesForField(c), err)
		}
		post.Votes[c.Index()] = n
	}

	post.TotalVotes, err = parseCounter(fields[fieldTotalVotes])
	if err != nil {
		return nil, fmt.Errorf("post %s has corrupt totalVotes: %w", postID, err)
	}
	return post, nil
}

func parseCounter(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
