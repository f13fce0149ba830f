// Package gwctx assembles the gateway's shared, request-independent
// state into a single value that is threaded into handlers — the
// specification's "process-wide gateway-singleton" re-expressed as a
// long-lived context instead of package-level globals, so tests can
// instantiate more than one gateway in-process (spec §9).
package gwctx

import (
	"github.com/baotiao/zeppelin-gateway-go/internal/monitor"
	"github.com/baotiao/zeppelin-gateway-go/internal/namelist"
	"github.com/baotiao/zeppelin-gateway-go/internal/objectlock"
	"github.com/baotiao/zeppelin-gateway-go/internal/store"
)

// StoreOpener is the per-worker handle factory the pool calls once at
// worker start (spec §5: "each worker owns one backend handle for its
// lifetime").
type StoreOpener func(workerID int) (store.Store, error)

// Context carries everything a handler needs beyond the current request:
// the two namelist registries (bucket-lists keyed by display name,
// object-lists keyed by bucket name), the per-object mutex registry, and
// the QPS monitor. One Context is shared by every worker goroutine.
type Context struct {
	Buckets *namelist.Registry // scope key: user display name
	Objects *namelist.Registry // scope key: bucket name
	Locks   *objectlock.Registry
	Monitor *monitor.Monitor
}

// New builds a Context whose namelist registries load from store via the
// handle each caller passes in — handlers always call Ref/Unref with the
// store.Store bound to their own worker, never a shared one (spec §5).
func New() *Context {
	return &Context{
		Buckets: namelist.NewRegistry(namelist.BucketScope),
		Objects: namelist.NewRegistry(namelist.ObjectScope),
		Locks:   objectlock.NewRegistry(),
		Monitor: monitor.New(),
	}
}
