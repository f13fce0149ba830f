// Package objectlock implements the per-object mutex registry (spec
// §4.2): a process-wide map from a free-form key (the router uses
// bucket+object) to a mutex, created lazily and reaped once unheld.
package objectlock

import (
	"sync"

	"github.com/OneOfOne/xxhash"
)

const numShards = 64

type refMutex struct {
	sync.Mutex
	refs int
}

type shard struct {
	mu sync.Mutex
	m  map[string]*refMutex
}

// Registry provides Lock/Unlock on free-form keys. It is sharded by
// xxhash(key) into numShards stripes so that unrelated keys hitting the
// registry concurrently don't contend on one map lock — the same role
// xxhash plays in the teacher's sharding/HRW code paths (SPEC_FULL
// [DOMAIN]).
type Registry struct {
	shards [numShards]*shard
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &shard{m: make(map[string]*refMutex)}
	}
	return r
}

func (r *Registry) pick(key string) *shard {
	h := xxhash.ChecksumString64(key)
	return r.shards[h%uint64(numShards)]
}

// Lock blocks until no other holder exists for key, then returns holding
// it. Fairness is not guaranteed but Go's runtime mutex avoids starvation
// for practical loads (spec §4.2).
func (r *Registry) Lock(key string) {
	s := r.pick(key)
	s.mu.Lock()
	rm, ok := s.m[key]
	if !ok {
		rm = &refMutex{}
		s.m[key] = rm
	}
	rm.refs++
	s.mu.Unlock()

	rm.Lock()
}

// Unlock releases the lock held for key, reaping the mutex entry once no
// other caller is waiting on it.
func (r *Registry) Unlock(key string) {
	s := r.pick(key)
	s.mu.Lock()
	rm := s.m[key]
	rm.refs--
	if rm.refs == 0 {
		delete(s.m, key)
	}
	s.mu.Unlock()

	rm.Unlock()
}
