package redis

import "github.com/redis/go-redis/v9"

// claimScript atomically pops the earliest ready message (score <= now),
// bumps its receive count, and either diverts it (receives exceeds the
// max) or re-leases it by moving its score forward and bumping its
// delivery version. KEYS[1] is the ready set; ARGV: now, leaseScore,
// maxReceives.
var claimScript = redis.NewScript(`
local now = ARGV[1]
local leaseScore = ARGV[2]
local maxReceives = tonumber(ARGV[3])

local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', now, 'LIMIT', 0, 1)
if #ids == 0 then
	return nil
end

local id = ids[1]
local msgKey = 'coldrun:queue:msg:' .. id
local receives = redis.call('HINCRBY', msgKey, 'receives', 1)
local fields = redis.call('HMGET', msgKey, 'job_type', 'request_body')

if maxReceives > 0 and receives > maxReceives then
	redis.call('ZREM', KEYS[1], id)
	redis.call('DEL', msgKey)
	return {'dlq', id, fields[1], fields[2], receives}
end

local version = redis.call('HINCRBY', msgKey, 'version', 1)
redis.call('ZADD', KEYS[1], leaseScore, id)
return {'ok', id, fields[1], fields[2], receives, version}
`)

// extendScript re-leases a message iff its delivery version still
// matches, so a stale caller (whose lease already expired and was
// reclaimed by someone else) cannot extend the new holder's lease.
// KEYS[1] is the ready set; ARGV: jobID, expectedVersion, newLeaseScore.
var extendScript = redis.NewScript(`
local msgKey = 'coldrun:queue:msg:' .. ARGV[1]
local version = redis.call('HGET', msgKey, 'version')
if version ~= ARGV[2] then
	return 0
end
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[1])
return 1
`)

// deleteScript removes a message iff its delivery version still
// matches (or the message is already gone). KEYS[1] is the ready set;
// ARGV: jobID, expectedVersion.
var deleteScript = redis.NewScript(`
local msgKey = 'coldrun:queue:msg:' .. ARGV[1]
local version = redis.call('HGET', msgKey, 'version')
if version and version ~= ARGV[2] then
	return 0
end
redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('DEL', msgKey)
return 1
`)
