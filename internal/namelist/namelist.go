// Package namelist implements the ref-counted namelist cache (spec §4.1):
// a process-wide registry mapping a scope key (a user's display name for
// bucket-lists, a bucket name for object-lists) to a shared, mutable
// ordered set of names plus a reference counter.
package namelist

import (
	"sync"

	cuckoo "github.com/seiflotfy/cuckoofilter"
)

const filterCapacity = 1 << 16

// Namelist is the derived index for one scope: a lock-protected set of
// names accelerated by a cuckoo filter for cheap negative existence
// checks (spec SPEC_FULL [DOMAIN]). The filter is never the source of
// truth — IsExist always confirms against the underlying set before
// answering "yes", so a filter false-positive can only cost an extra map
// lookup, never a wrong answer.
type Namelist struct {
	mu     sync.Mutex
	names  map[string]struct{}
	filter *cuckoo.Filter
}

func New() *Namelist {
	return &Namelist{
		names:  make(map[string]struct{}),
		filter: cuckoo.NewFilter(filterCapacity),
	}
}

func (nl *Namelist) Insert(name string) {
	nl.mu.Lock()
	defer nl.mu.Unlock()
	if _, ok := nl.names[name]; ok {
		return
	}
	nl.names[name] = struct{}{}
	nl.filter.InsertUnique([]byte(name))
}

func (nl *Namelist) Delete(name string) {
	nl.mu.Lock()
	defer nl.mu.Unlock()
	if _, ok := nl.names[name]; !ok {
		return
	}
	delete(nl.names, name)
	nl.filter.Delete([]byte(name))
}

func (nl *Namelist) IsExist(name string) bool {
	nl.mu.Lock()
	defer nl.mu.Unlock()
	if !nl.filter.Lookup([]byte(name)) {
		return false
	}
	_, ok := nl.names[name]
	return ok
}

func (nl *Namelist) IsEmpty() bool {
	nl.mu.Lock()
	defer nl.mu.Unlock()
	return len(nl.names) == 0
}

// Snapshot returns a point-in-time copy of the name set, taken under the
// namelist's lock, so a long-running iteration (e.g. ListObjects calling
// out to the backend per name) never blocks concurrent Insert/Delete nor
// observes a torn map (spec §4.1: "iterators see a snapshot or hold the
// lock for their duration").
func (nl *Namelist) Snapshot() []string {
	nl.mu.Lock()
	defer nl.mu.Unlock()
	out := make([]string, 0, len(nl.names))
	for n := range nl.names {
		out = append(out, n)
	}
	return out
}
