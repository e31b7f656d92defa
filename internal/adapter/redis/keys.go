package redis

import "github.com/pscheid92/decept/internal/domain"

const (
	prefix        = "decept"
	unrevealedKey = prefix + ":posts:unrevealed"
	eventsChannel = prefix + ":events"
)

func postKey(postID string) string {
	return prefix + ":post:" + postID
}

func votersKey(postID string) string {
	return postKey(postID) + ":voters"
}

func voteKey(postID, userID string) string {
	return postKey(postID) + ":vote:" + userID
}

// scoredKey holds the users already awarded for a revealed post.
func scoredKey(postID string) string {
	return postKey(postID) + ":scored"
}

func userStatsKey(userID string) string {
	return prefix + ":user:" + userID + ":stats"
}

func rateLimitKey(userID string, action domain.RateLimitAction, date string) string {
	return prefix + ":ratelimit:" + userID + ":" + string(action) + ":" + date
}
