package handlers

import (
	"net/http"

	"github.com/golang/glog"

	"github.com/baotiao/zeppelin-gateway-go/internal/gwerr"
	"github.com/baotiao/zeppelin-gateway-go/internal/namelist"
	"github.com/baotiao/zeppelin-gateway-go/internal/s3xml"
	"github.com/baotiao/zeppelin-gateway-go/internal/store"
)

// AllBucketNamelists enumerates every registered user's bucket-namelist,
// used by PutBucket to enforce global bucket-name uniqueness (spec §4.5).
// It is injected rather than hard-coded against gwctx so this package
// never imports the registry's owner package directly.
type AllBucketNamelists func(st store.Store) ([]*namelist.Namelist, error)

// PutBucket implements spec §4.5 PutBucket, including the §9 open-question
// resolution: any backend failure during the global-uniqueness scan aborts
// with 500 and never calls AddBucket.
func (c *Call) PutBucket(allBucketNamelists AllBucketNamelists) {
	if c.BucketsNL.IsExist(c.Bucket) {
		writeErr(c.W, gwerr.Conflict(gwerr.CodeBucketAlreadyOwnedByYou, c.Bucket))
		return
	}

	lists, err := allBucketNamelists(c.St)
	if err != nil {
		glog.Errorf("PutBucket %s: global uniqueness scan failed: %v", c.Bucket, err)
		writeErr(c.W, gwerr.Backend(c.Bucket, err))
		return
	}
	for _, nl := range lists {
		if nl.IsExist(c.Bucket) {
			writeErr(c.W, gwerr.Conflict(gwerr.CodeBucketAlreadyExists, c.Bucket))
			return
		}
	}

	if err := c.St.AddBucket(c.Bucket, c.User.Info); err != nil {
		glog.Errorf("PutBucket %s: backend AddBucket failed: %v", c.Bucket, err)
		writeErr(c.W, gwerr.Backend(c.Bucket, err))
		return
	}
	c.BucketsNL.Insert(c.Bucket)
	setCommonHeaders(c.W)
	c.W.WriteHeader(http.StatusOK)
}

// DeleteBucket implements spec §4.5 DeleteBucket.
func (c *Call) DeleteBucket() {
	if !c.BucketsNL.IsExist(c.Bucket) {
		writeErr(c.W, gwerr.NotFound(gwerr.CodeNoSuchBucket, c.Bucket))
		return
	}
	if c.ObjectsNL == nil || !c.ObjectsNL.IsEmpty() {
		writeErr(c.W, gwerr.Conflict(gwerr.CodeBucketNotEmpty, c.Bucket))
		return
	}
	if err := c.St.DelBucket(c.Bucket); err != nil {
		glog.Errorf("DeleteBucket %s: %v", c.Bucket, err)
		writeErr(c.W, gwerr.Backend(c.Bucket, err))
		return
	}
	c.BucketsNL.Delete(c.Bucket)
	setCommonHeaders(c.W)
	c.W.WriteHeader(http.StatusNoContent)
}

// HeadBucket implements spec §4.5 HeadBucket.
func (c *Call) HeadBucket() {
	setCommonHeaders(c.W)
	if c.BucketsNL.IsExist(c.Bucket) {
		c.W.WriteHeader(http.StatusOK)
		return
	}
	c.W.WriteHeader(http.StatusNotFound)
}

// ListBuckets implements spec §4.5 ListBuckets: a backend GetBucket per
// name in the snapshot, skipping names the backend no longer has (the
// namelist may be momentarily stale).
func (c *Call) ListBuckets() {
	var buckets []*store.Bucket
	for _, name := range c.BucketsNL.Snapshot() {
		b, err := c.St.GetBucket(name)
		if err != nil {
			if err == store.ErrNotFound {
				continue
			}
			glog.Errorf("ListBuckets: GetBucket %s: %v", name, err)
			writeErr(c.W, gwerr.Backend(name, err))
			return
		}
		buckets = append(buckets, b)
	}
	setCommonHeaders(c.W)
	c.W.Header().Set("Content-Type", "application/xml")
	c.W.WriteHeader(http.StatusOK)
	c.W.Write(s3xml.ListBucketsXML(c.User.Info, buckets))
}
