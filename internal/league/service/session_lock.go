package service

import (
	"hash/fnv"
	"sync"
)

// sessionLockShards bounds the number of distinct session mutexes.
const sessionLockShards = 64

// sessionLocks serializes mutations per (team, session) key so the
// exactly-4-or-0-rows invariant cannot be raced from this process.
// Storage transactions still guard against partial batches.
type sessionLocks struct {
	shards [sessionLockShards]sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{}
}

// lock acquires the mutex shard for a session key and returns its unlock.
func (l *sessionLocks) lock(teamID, sessionID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(teamID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(sessionID))
	shard := &l.shards[h.Sum32()%sessionLockShards]
	shard.Lock()
	return shard.Unlock
}
