package handlers

import (
	"crypto/md5"
	"fmt"
	"io"
	"net/http"

	"github.com/golang/glog"

	"github.com/baotiao/zeppelin-gateway-go/internal/gwerr"
	"github.com/baotiao/zeppelin-gateway-go/internal/s3xml"
	"github.com/baotiao/zeppelin-gateway-go/internal/store"
)

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return fmt.Sprintf("%x", sum)
}

// PutObject implements spec §4.6 PutObject.
func (c *Call) PutObject() {
	body, err := io.ReadAll(c.R.Body)
	if err != nil {
		writeErr(c.W, gwerr.Client(c.Object))
		return
	}
	etag := `"` + md5Hex(body) + `"`
	info := store.ObjectInfo{
		ETag: etag, Size: int64(len(body)),
		StorageClass: store.StandardStorageClass, Owner: c.User.Info,
	}
	if err := c.St.AddObject(c.Bucket, c.Object, info, body); err != nil {
		glog.Errorf("PutObject %s/%s: %v", c.Bucket, c.Object, err)
		writeErr(c.W, gwerr.Backend(c.Object, err))
		return
	}
	c.ObjectsNL.Insert(c.Object)
	setCommonHeaders(c.W)
	c.W.Header().Set("ETag", etag)
	c.W.WriteHeader(http.StatusOK)
}

// GetObject implements spec §4.6 GetObject; headOnly mirrors the HEAD
// variant. Per the §9 open-question resolution, a HEAD response body is
// always empty regardless of what the backend fetch returns.
func (c *Call) GetObject(headOnly bool) {
	if !c.ObjectsNL.IsExist(c.Object) {
		writeErr(c.W, gwerr.NotFound(gwerr.CodeNoSuchKey, c.Object))
		return
	}
	obj, err := c.St.GetObject(c.Bucket, c.Object, !headOnly)
	if err != nil {
		glog.Errorf("GetObject %s/%s: %v", c.Bucket, c.Object, err)
		writeErr(c.W, gwerr.Backend(c.Object, err))
		return
	}
	setCommonHeaders(c.W)
	c.W.Header().Set("ETag", obj.Info.ETag)
	c.W.Header().Set("Content-Length", fmt.Sprintf("%d", obj.Info.Size))
	c.W.WriteHeader(http.StatusOK)
	if !headOnly {
		c.W.Write(obj.Content)
	}
}

// DeleteObject implements spec §4.6 DeleteObject, idempotent by design:
// a namelist miss and a backend NotFound both normalize to 204.
func (c *Call) DeleteObject() {
	if !c.ObjectsNL.IsExist(c.Object) {
		c.W.WriteHeader(http.StatusNoContent)
		return
	}
	if err := c.St.DelObject(c.Bucket, c.Object); err != nil && err != store.ErrNotFound {
		glog.Errorf("DeleteObject %s/%s: %v", c.Bucket, c.Object, err)
		writeErr(c.W, gwerr.Backend(c.Object, err))
		return
	}
	c.ObjectsNL.Delete(c.Object)
	setCommonHeaders(c.W)
	c.W.WriteHeader(http.StatusNoContent)
}

// ListObjects implements spec §4.6 ListObjects.
func (c *Call) ListObjects() {
	if !c.BucketsNL.IsExist(c.Bucket) {
		writeErr(c.W, gwerr.NotFound(gwerr.CodeNoSuchBucket, c.Bucket))
		return
	}
	var objects []*store.Object
	for _, name := range c.ObjectsNL.Snapshot() {
		if _, _, ok := splitShadowName(name); ok {
			// Shadow objects are never client-visible except via
			// ListMultipartUploads (spec §3).
			continue
		}
		o, err := c.St.GetObject(c.Bucket, name, false)
		if err != nil {
			if err == store.ErrNotFound {
				continue
			}
			glog.Errorf("ListObjects %s: GetObject %s: %v", c.Bucket, name, err)
			writeErr(c.W, gwerr.Backend(name, err))
			return
		}
		objects = append(objects, o)
	}
	setCommonHeaders(c.W)
	c.W.Header().Set("Content-Type", "application/xml")
	c.W.WriteHeader(http.StatusOK)
	c.W.Write(s3xml.ListObjectsXML(c.Bucket, objects))
}
