package redis

import goredis "github.com/redis/go-redis/v9"

// Script status codes. Non-negative results are successful return values.
const (
	statusNotFound     = -1
	statusRevealed     = -2
	statusAlreadyVoted = -3
	statusExists       = -4
)

// KEYS: post hash, unrevealed index. ARGV: createdAt ms, post ID, then field/value pairs.
var createPostScript = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return -4
end
redis.call("HSET", KEYS[1], unpack(ARGV, 3))
redis.call("ZADD", KEYS[2], ARGV[1], ARGV[2])
return 1
`)

// KEYS: post hash, vote key, voters set. ARGV: choice, user ID, now ms.
var recordVoteScript = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
if redis.call("HGET", KEYS[1], "revealed") == "true" then
	return -2
end
if redis.call("EXISTS", KEYS[2]) == 1 then
	return -3
end
redis.call("SET", KEYS[2], ARGV[1])
redis.call("ZADD", KEYS[3], ARGV[3], ARGV[2])
redis.call("HINCRBY", KEYS[1], "votesFor" .. ARGV[1], 1)
return redis.call("HINCRBY", KEYS[1], "totalVotes", 1)
`)

// KEYS: post hash. Returns 1 if this call flipped the flag.
var markRevealedScript = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
if redis.call("HGET", KEYS[1], "revealed") == "true" then
	return 0
end
redis.call("HSET", KEYS[1], "revealed", "true")
return 1
`)

// KEYS: scored set, stats hash. ARGV: user ID, then field/increment pairs.
var applyAwardScript = goredis.NewScript(`
if redis.call("SADD", KEYS[1], ARGV[1]) == 0 then
	return 0
end
for i = 2, #ARGV, 2 do
	redis.call("HINCRBY", KEYS[2], ARGV[i], ARGV[i + 1])
end
return 1
`)
