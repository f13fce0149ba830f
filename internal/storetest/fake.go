// Package storetest provides an in-memory store.Store used by other
// packages' tests, so the handler/router/registry test suites don't each
// need their own ad hoc fake backend.
package storetest

import (
	"fmt"
	"sort"
	"sync"

	"github.com/baotiao/zeppelin-gateway-go/internal/store"
)

// Fake is a minimal in-memory store.Store. It is not safe for the
// write-after-snapshot races a real backend would need to guard against;
// it exists purely to exercise the gateway's own logic in tests.
type Fake struct {
	mu      sync.Mutex
	users   map[string]*store.User // access_key -> user
	byOwner map[string][]string    // display_name -> bucket names
	buckets map[string]*store.Bucket
	objects map[string]map[string]*store.Object // bucket -> name -> object
	parts   map[string]map[string][]*store.Part // bucket -> shadowName -> parts
	nextKey int
}

func New() *Fake {
	return &Fake{
		users:   make(map[string]*store.User),
		byOwner: make(map[string][]string),
		buckets: make(map[string]*store.Bucket),
		objects: make(map[string]map[string]*store.Object),
		parts:   make(map[string]map[string][]*store.Part),
	}
}

func (f *Fake) Close() error { return nil }

func (f *Fake) AddUser(displayName string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextKey++
	accessKey := fmt.Sprintf("AK%06d", f.nextKey)
	secretKey := fmt.Sprintf("SK%06d", f.nextKey)
	u, ok := findUserLocked(f.users, displayName)
	if !ok {
		u = &store.User{Info: store.UserInfo{DisplayName: displayName}, Keys: map[string]string{}}
	}
	u.Keys[accessKey] = secretKey
	f.users[accessKey] = u
	return accessKey, secretKey, nil
}

func findUserLocked(users map[string]*store.User, displayName string) (*store.User, bool) {
	for _, u := range users {
		if u.Info.DisplayName == displayName {
			return u, true
		}
	}
	return nil, false
}

func (f *Fake) GetUser(accessKey string) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[accessKey]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *Fake) ListUsers() ([]*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var out []*store.User
	for _, u := range f.users {
		if seen[u.Info.DisplayName] {
			continue
		}
		seen[u.Info.DisplayName] = true
		out = append(out, u)
	}
	return out, nil
}

func (f *Fake) AddBucket(name string, owner store.UserInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.buckets[name]; ok {
		return store.ErrAlreadyExists
	}
	f.buckets[name] = &store.Bucket{Name: name, Owner: owner}
	f.byOwner[owner.DisplayName] = append(f.byOwner[owner.DisplayName], name)
	return nil
}

func (f *Fake) GetBucket(name string) (*store.Bucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.buckets[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	return b, nil
}

func (f *Fake) DelBucket(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.buckets[name]
	if !ok {
		return store.ErrNotFound
	}
	delete(f.buckets, name)
	owner := b.Owner.DisplayName
	names := f.byOwner[owner]
	for i, n := range names {
		if n == name {
			f.byOwner[owner] = append(names[:i], names[i+1:]...)
			break
		}
	}
	return nil
}

func (f *Fake) AddObject(bucket, name string, info store.ObjectInfo, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects[bucket] == nil {
		f.objects[bucket] = make(map[string]*store.Object)
	}
	f.objects[bucket][name] = &store.Object{Bucket: bucket, Name: name, Info: info, Content: content}
	return nil
}

func (f *Fake) GetObject(bucket, name string, needContent bool) (*store.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[bucket][name]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *o
	if !needContent {
		out.Content = nil
	}
	return &out, nil
}

func (f *Fake) DelObject(bucket, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[bucket][name]; !ok {
		return store.ErrNotFound
	}
	delete(f.objects[bucket], name)
	return nil
}

func (f *Fake) UploadPart(bucket, shadowName string, info store.ObjectInfo, content []byte, partNumber int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.parts[bucket] == nil {
		f.parts[bucket] = make(map[string][]*store.Part)
	}
	f.parts[bucket][shadowName] = append(f.parts[bucket][shadowName], &store.Part{PartNumber: partNumber, Info: info, Content: content})
	return nil
}

func (f *Fake) CompleteMultiUpload(bucket, shadowName, finalName string) error {
	f.mu.Lock()
	parts := append([]*store.Part(nil), f.parts[bucket][shadowName]...)
	f.mu.Unlock()
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	var content []byte
	var size int64
	for _, p := range parts {
		content = append(content, p.Content...)
		size += p.Info.Size
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	shadow, ok := f.objects[bucket][shadowName]
	if !ok {
		return store.ErrNotFound
	}
	info := shadow.Info
	info.Size = size
	if f.objects[bucket] == nil {
		f.objects[bucket] = make(map[string]*store.Object)
	}
	f.objects[bucket][finalName] = &store.Object{Bucket: bucket, Name: finalName, Info: info, Content: content}
	delete(f.objects[bucket], shadowName)
	delete(f.parts[bucket], shadowName)
	return nil
}

func (f *Fake) ListParts(bucket, shadowName string) ([]*store.Part, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]*store.Part(nil), f.parts[bucket][shadowName]...)
	sort.Slice(out, func(i, j int) bool { return out[i].PartNumber < out[j].PartNumber })
	return out, nil
}

func (f *Fake) ListBucketNames(displayName string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.byOwner[displayName]...), nil
}

func (f *Fake) ListObjectNames(bucket string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for name := range f.objects[bucket] {
		out = append(out, name)
	}
	return out, nil
}

var _ store.Store = (*Fake)(nil)
