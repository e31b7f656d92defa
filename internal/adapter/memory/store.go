// Package memory is a single-process implementation of the game stores.
// It backs STORE_BACKEND=memory and the app-level tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/decept/internal/domain"
)

var (
	_ domain.PostStore   = (*Store)(nil)
	_ domain.VoteLedger  = (*Store)(nil)
	_ domain.RateLimiter = (*Store)(nil)
	_ domain.StatsStore  = (*Store)(nil)
)

const rateLimitTTL = 24 * time.Hour

type voterEntry struct {
	userID string
	at     time.Time
}

type counter struct {
	value     int
	expiresAt time.Time
}

// Store keeps all state behind one mutex, which gives every operation the
// same all-or-nothing behaviour as the Redis scripts.
type Store struct {
	mu    sync.Mutex
	clock clockwork.Clock

	posts      map[string]*domain.Post
	unrevealed map[string]time.Time
	votes      map[string]map[string]domain.VoteChoice
	voters     map[string][]voterEntry
	stats      map[string]domain.UserStats
	scored     map[string]map[string]struct{}
	counters   map[string]counter
}

func NewStore(clock clockwork.Clock) *Store {
	return &Store{
		clock:      clock,
		posts:      make(map[string]*domain.Post),
		unrevealed: make(map[string]time.Time),
		votes:      make(map[string]map[string]domain.VoteChoice),
		voters:     make(map[string][]voterEntry),
		stats:      make(map[string]domain.UserStats),
		scored:     make(map[string]map[string]struct{}),
		counters:   make(map[string]counter),
	}
}

// Posts

func (s *Store) CreatePost(_ context.Context, post *domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[post.ID]; ok {
		return domain.ErrPostExists
	}
	cp := *post
	s.posts[post.ID] = &cp
	s.unrevealed[post.ID] = post.CreatedAt
	return nil
}

func (s *Store) GetPost(_ context.Context, postID string) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	cp := *post
	return &cp, nil
}

func (s *Store) MarkRevealed(_ context.Context, postID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return false, domain.ErrPostNotFound
	}
	if post.Revealed {
		return false, nil
	}
	post.Revealed = true
	return true, nil
}

func (s *Store) IsUnrevealed(_ context.Context, postID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.unrevealed[postID]
	return ok, nil
}

func (s *Store) RemoveUnrevealed(_ context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.unrevealed, postID)
	return nil
}

func (s *Store) ListExpired(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type entry struct {
		id string
		at time.Time
	}
	var expired []entry
	for id, at := range s.unrevealed {
		if !at.After(cutoff) {
			expired = append(expired, entry{id, at})
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		if expired[i].at.Equal(expired[j].at) {
			return expired[i].id < expired[j].id
		}
		return expired[i].at.Before(expired[j].at)
	})

	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	ids := make([]string, len(expired))
	for i, e := range expired {
		ids[i] = e.id
	}
	return ids, nil
}

// Votes

func (s *Store) HasVoted(_ context.Context, postID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.votes[postID][userID]
	return ok, nil
}

func (s *Store) GetVote(_ context.Context, postID, userID string) (domain.VoteChoice, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	choice, ok := s.votes[postID][userID]
	return choice, ok, nil
}

func (s *Store) RecordVote(_ context.Context, postID, userID string, choice domain.VoteChoice) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return 0, domain.ErrPostNotFound
	}
	if post.Revealed {
		return 0, domain.ErrPostRevealed
	}
	if _, voted := s.votes[postID][userID]; voted {
		return 0, domain.ErrAlreadyVoted
	}

	if s.votes[postID] == nil {
		s.votes[postID] = make(map[string]domain.VoteChoice)
	}
	s.votes[postID][userID] = choice
	s.voters[postID] = append(s.voters[postID], voterEntry{userID: userID, at: s.clock.Now()})
	post.Votes[choice.Index()]++
	post.TotalVotes++
	return post.TotalVotes, nil
}

func (s *Store) ListVoters(_ context.Context, postID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := slices.Clone(s.voters[postID])
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].at.Equal(entries[j].at) {
			return entries[i].userID < entries[j].userID
		}
		return entries[i].at.Before(entries[j].at)
	})

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.userID
	}
	return ids, nil
}

// Rate limits

func (s *Store) CheckLimit(_ context.Context, userID string, action domain.RateLimitAction, maxPerDay int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.liveCounter(s.rateKey(userID, action))
	return ok && c.value >= maxPerDay, nil
}

func (s *Store) Increment(_ context.Context, userID string, action domain.RateLimitAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.rateKey(userID, action)
	c, ok := s.liveCounter(key)
	if !ok {
		c = counter{expiresAt: s.clock.Now().Add(rateLimitTTL)}
	}
	c.value++
	s.counters[key] = c
	return nil
}

func (s *Store) rateKey(userID string, action domain.RateLimitAction) string {
	return userID + ":" + string(action) + ":" + s.clock.Now().UTC().Format(time.DateOnly)
}

// liveCounter drops the counter once it has expired. Callers hold mu.
func (s *Store) liveCounter(key string) (counter, bool) {
	c, ok := s.counters[key]
	if ok && !s.clock.Now().Before(c.expiresAt) {
		delete(s.counters, key)
		return counter{}, false
	}
	return c, ok
}

// Stats

func (s *Store) GetStats(_ context.Context, userID string) (domain.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stats[userID], nil
}

func (s *Store) ApplyAward(_ context.Context, postID, userID string, award domain.ScoreAward) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.scored[postID][userID]; done {
		return false, nil
	}
	if s.scored[postID] == nil {
		s.scored[postID] = make(map[string]struct{})
	}
	s.scored[postID][userID] = struct{}{}

	st := s.stats[userID]
	st.TotalLiarScore += award.LiarScore
	st.TotalDetectiveScore += award.DetectiveScore
	st.TotalPosts += award.Posts
	st.TotalVotes += award.Votes
	st.CorrectVotes += award.CorrectVotes
	s.stats[userID] = st
	return true, nil
}
