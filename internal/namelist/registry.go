package namelist

import (
	"sync"

	"github.com/golang/glog"
	"golang.org/x/sync/singleflight"

	"github.com/baotiao/zeppelin-gateway-go/internal/store"
)

// Scope selects which backend enumeration a Registry's 0->1 transition
// performs: a user's buckets, or a bucket's objects (spec §4.1).
type Scope int

const (
	BucketScope Scope = iota
	ObjectScope
)

type entry struct {
	nl       *Namelist
	refcount int
}

// Registry is the process-wide namelist cache for one scope kind. The
// gateway keeps exactly two: one for bucket-lists (scope key = user
// display name), one for object-lists (scope key = bucket name) — see
// gwctx.Context.
type Registry struct {
	scope   Scope
	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group
}

func NewRegistry(scope Scope) *Registry {
	return &Registry{scope: scope, entries: make(map[string]*entry)}
}

func (r *Registry) load(st store.Store, scopeKey string) ([]string, error) {
	if r.scope == BucketScope {
		return st.ListBucketNames(scopeKey)
	}
	return st.ListObjectNames(scopeKey)
}

// Ref atomically obtains or creates the entry for scopeKey against the
// caller's backend handle st. On the 0->1 transition it loads the name
// set from the backend before returning; concurrent Refs for the same
// scope all observe the same instance and only one of them performs the
// backend enumeration (singleflight collapses the load; see SPEC_FULL
// [DOMAIN]). Matches the original gateway's `Ref(store, scopeKey, &out)`.
func (r *Registry) Ref(st store.Store, scopeKey string) (*Namelist, error) {
	r.mu.Lock()
	if e, ok := r.entries[scopeKey]; ok {
		e.refcount++
		r.mu.Unlock()
		return e.nl, nil
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do(scopeKey, func() (interface{}, error) {
		names, err := r.load(st, scopeKey)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		e, ok := r.entries[scopeKey]
		if !ok {
			nl := New()
			for _, n := range names {
				nl.Insert(n)
			}
			e = &entry{nl: nl}
			r.entries[scopeKey] = e
		}
		r.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	e := v.(*entry)
	r.mu.Lock()
	e.refcount++
	r.mu.Unlock()
	return e.nl, nil
}

// Unref decrements the refcount for scopeKey. On the 1->0 transition the
// entry is evicted (the write-through consistency model means there is
// nothing to flush; spec §4.1 "Unref... flush... otherwise this is a
// no-op"). Unref on a scope with no live ref is logged and ignored —
// callers must balance every Ref (spec §8 invariant 4), but a cleanup
// path should not panic a response over it.
func (r *Registry) Unref(scopeKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[scopeKey]
	if !ok {
		glog.Warningf("namelist: unref of scope %q with no live ref", scopeKey)
		return
	}
	e.refcount--
	if e.refcount <= 0 {
		delete(r.entries, scopeKey)
	}
}
