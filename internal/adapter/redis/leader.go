package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrNotLeader is returned by RenewLease when another instance holds the lease.
var ErrNotLeader = errors.New("not leader")

var renewLeaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

var releaseLeaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LeaderElection is a single-holder lease on a Redis key. The holder writes
// its instance ID with a TTL; others can take over once it expires.
type LeaderElection struct {
	rdb        *goredis.Client
	instanceID string
	key        string
	ttl        time.Duration
}

func NewLeaderElection(rdb *goredis.Client, instanceID, name string, ttl time.Duration) *LeaderElection {
	return &LeaderElection{
		rdb:        rdb,
		instanceID: instanceID,
		key:        prefix + ":leader:" + name,
		ttl:        ttl,
	}
}

// TryBecomeLeader acquires the lease, or renews it if this instance already
// holds it. Returns whether this instance is the leader afterwards.
func (l *LeaderElection) TryBecomeLeader(ctx context.Context) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.key, l.instanceID, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease: %w", err)
	}
	if ok {
		return true, nil
	}

	err = l.RenewLease(ctx)
	if errors.Is(err, ErrNotLeader) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *LeaderElection) RenewLease(ctx context.Context) error {
	n, err := renewLeaseScript.Run(ctx, l.rdb, []string{l.key}, l.instanceID, l.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to renew lease: %w", err)
	}
	if n == 0 {
		return ErrNotLeader
	}
	return nil
}

// ReleaseLease gives up the lease if this instance still holds it.
func (l *LeaderElection) ReleaseLease(ctx context.Context) error {
	if err := releaseLeaseScript.Run(ctx, l.rdb, []string{l.key}, l.instanceID).Err(); err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}
