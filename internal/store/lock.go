package store

import (
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// threadSeq mirrors the original gateway's zgw_thread_id atomic counter
// (original_source/src/zgw_server.cc), used to make each worker's lock
// name unique: hostname + port + sequence.
var threadSeq int32

const defaultLockTTL = 10 * time.Second

// WorkerLock is the coordination-store (redis) advisory lock a worker
// acquires for the lifetime of its backend handle (spec §6: "a lock name
// unique per thread... a lock TTL (~10s)"). It is renewed on a timer so a
// long-lived worker doesn't lose its lock to TTL expiry.
type WorkerLock struct {
	client *redis.Client
	key    string
	stopCh chan struct{}
}

// NextLockName computes host+port+thread_seq exactly as the original
// ZgwThreadEnvHandle::SetEnv does.
func NextLockName(port int) string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown-host"
	}
	seq := atomic.AddInt32(&threadSeq, 1)
	return host + ":" + strconv.Itoa(port) + ":" + strconv.Itoa(int(seq))
}

// AcquireWorkerLock opens a client to redisAddr and takes an exclusive,
// TTL-bounded lock under key, failing if another live worker already
// holds it. The lock is renewed every ttl/2 until Release is called.
func AcquireWorkerLock(redisAddr, redisPasswd, key string, ttl time.Duration) (*WorkerLock, error) {
	if redisAddr == "" {
		// No coordination store configured: single-node / test mode, no
		// cross-process exclusion is required.
		return &WorkerLock{key: key, stopCh: make(chan struct{})}, nil
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	client := redis.NewClient(&redis.Options{Addr: redisAddr, Password: redisPasswd})
	ok, err := client.SetNX(key, "1", ttl).Result()
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "acquire worker lock")
	}
	if !ok {
		client.Close()
		return nil, errors.Errorf("worker lock %q already held", key)
	}
	wl := &WorkerLock{client: client, key: key, stopCh: make(chan struct{})}
	go wl.renewLoop(ttl)
	return wl, nil
}

func (wl *WorkerLock) renewLoop(ttl time.Duration) {
	t := time.NewTicker(ttl / 2)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if err := wl.client.Expire(wl.key, ttl).Err(); err != nil {
				glog.Warningf("worker lock %s: renew failed: %v", wl.key, err)
			}
		case <-wl.stopCh:
			return
		}
	}
}

func (wl *WorkerLock) Release() error {
	close(wl.stopCh)
	if wl.client == nil {
		return nil
	}
	defer wl.client.Close()
	return wl.client.Del(wl.key).Err()
}
