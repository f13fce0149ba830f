package handlers

import (
	"crypto/md5"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/baotiao/zeppelin-gateway-go/internal/gwerr"
	"github.com/baotiao/zeppelin-gateway-go/internal/s3xml"
	"github.com/baotiao/zeppelin-gateway-go/internal/store"
)

const shadowPrefix = "__"
const uploadIDLen = 32 // hex chars of an md5 sum

// uploadID derives the deterministic identifier from spec §3:
// md5(object_name || unix_seconds_now).
func uploadID(objectName string) string {
	sum := md5.Sum([]byte(objectName + strconv.FormatInt(time.Now().Unix(), 10)))
	return fmt.Sprintf("%x", sum)
}

func shadowName(objectName, uploadID string) string {
	return shadowPrefix + objectName + uploadID
}

// splitShadowName reverses shadowName, used by ListMultipartUploads to
// recover (object_name, upload_id) from a namelist entry (spec §4.7).
func splitShadowName(shadow string) (objectName, id string, ok bool) {
	if !strings.HasPrefix(shadow, shadowPrefix) {
		return "", "", false
	}
	rest := shadow[len(shadowPrefix):]
	if len(rest) < uploadIDLen {
		return "", "", false
	}
	return rest[:len(rest)-uploadIDLen], rest[len(rest)-uploadIDLen:], true
}

// InitiateMultipartUpload implements spec §4.7's absent->initiated transition.
// upload_id collisions within a bucket (spec §3: "collisions... are
// rejected by the backend as duplicate AddObject") are caught against the
// namelist before the backend call, since AddObject's general contract is
// PutObject's last-writer-wins upsert and would otherwise silently
// overwrite an in-progress shadow object's placeholder record.
func (c *Call) InitiateMultipartUpload() {
	id := uploadID(c.Object)
	shadow := shadowName(c.Object, id)
	if c.ObjectsNL.IsExist(shadow) {
		glog.Errorf("InitiateMultipartUpload %s/%s: duplicate upload_id %s", c.Bucket, c.Object, id)
		writeErr(c.W, gwerr.Backend(c.Object, store.ErrAlreadyExists))
		return
	}
	info := store.ObjectInfo{CreatedAt: time.Now(), StorageClass: store.StandardStorageClass, Owner: c.User.Info}
	if err := c.St.AddObject(c.Bucket, shadow, info, nil); err != nil {
		glog.Errorf("InitiateMultipartUpload %s/%s: %v", c.Bucket, c.Object, err)
		writeErr(c.W, gwerr.Backend(c.Object, err))
		return
	}
	c.ObjectsNL.Insert(shadow)
	setCommonHeaders(c.W)
	c.W.Header().Set("Content-Type", "application/xml")
	c.W.WriteHeader(http.StatusOK)
	c.W.Write(s3xml.InitiateMultipartUploadXML(c.Bucket, c.Object, id))
}

// UploadPart implements spec §4.7's initiated->initiated UploadPart event.
func (c *Call) UploadPart(partNumberStr, uploadIDStr string) {
	shadow := shadowName(c.Object, uploadIDStr)
	if !c.ObjectsNL.IsExist(shadow) {
		writeErr(c.W, gwerr.NotFound(gwerr.CodeNoSuchUpload, uploadIDStr))
		return
	}
	partNumber, err := strconv.Atoi(partNumberStr)
	if err != nil {
		writeErr(c.W, gwerr.Client(c.Object))
		return
	}
	body, err := io.ReadAll(c.R.Body)
	if err != nil {
		writeErr(c.W, gwerr.Client(c.Object))
		return
	}
	etag := `"` + md5Hex(body) + `"`
	info := store.ObjectInfo{
		CreatedAt: time.Now(), ETag: etag, Size: int64(len(body)),
		StorageClass: store.StandardStorageClass, Owner: c.User.Info,
	}
	if err := c.St.UploadPart(c.Bucket, shadow, info, body, partNumber); err != nil {
		glog.Errorf("UploadPart %s/%s part %d: %v", c.Bucket, c.Object, partNumber, err)
		writeErr(c.W, gwerr.Backend(c.Object, err))
		return
	}
	setCommonHeaders(c.W)
	c.W.Header().Set("ETag", etag)
	c.W.WriteHeader(http.StatusOK)
}

// CompleteMultipartUpload implements spec §4.7's initiated->completed
// transition: delete any prior final object, then promote the shadow.
func (c *Call) CompleteMultipartUpload(uploadIDStr string) {
	shadow := shadowName(c.Object, uploadIDStr)
	if !c.ObjectsNL.IsExist(shadow) {
		writeErr(c.W, gwerr.NotFound(gwerr.CodeNoSuchUpload, uploadIDStr))
		return
	}
	if c.ObjectsNL.IsExist(c.Object) {
		if err := c.St.DelObject(c.Bucket, c.Object); err != nil && err != store.ErrNotFound {
			glog.Errorf("CompleteMultipartUpload %s/%s: delete prior object: %v", c.Bucket, c.Object, err)
			writeErr(c.W, gwerr.Backend(c.Object, err))
			return
		}
	}
	if err := c.St.CompleteMultiUpload(c.Bucket, shadow, c.Object); err != nil {
		glog.Errorf("CompleteMultipartUpload %s/%s: %v", c.Bucket, c.Object, err)
		writeErr(c.W, gwerr.Backend(c.Object, err))
		return
	}
	c.ObjectsNL.Insert(c.Object)
	c.ObjectsNL.Delete(shadow)
	setCommonHeaders(c.W)
	c.W.WriteHeader(http.StatusOK)
}

// AbortMultipartUpload implements spec §4.7's initiated->aborted transition.
func (c *Call) AbortMultipartUpload(uploadIDStr string) {
	shadow := shadowName(c.Object, uploadIDStr)
	if !c.ObjectsNL.IsExist(shadow) {
		writeErr(c.W, gwerr.NotFound(gwerr.CodeNoSuchUpload, uploadIDStr))
		return
	}
	if err := c.St.DelObject(c.Bucket, shadow); err != nil && err != store.ErrNotFound {
		glog.Errorf("AbortMultipartUpload %s/%s: %v", c.Bucket, c.Object, err)
		writeErr(c.W, gwerr.Backend(c.Object, err))
		return
	}
	c.ObjectsNL.Delete(shadow)
	setCommonHeaders(c.W)
	c.W.WriteHeader(http.StatusNoContent)
}

// ListParts implements spec §4.7 ListParts.
func (c *Call) ListParts(uploadIDStr string) {
	shadow := shadowName(c.Object, uploadIDStr)
	if !c.ObjectsNL.IsExist(shadow) {
		writeErr(c.W, gwerr.NotFound(gwerr.CodeNoSuchUpload, uploadIDStr))
		return
	}
	parts, err := c.St.ListParts(c.Bucket, shadow)
	if err != nil {
		glog.Errorf("ListParts %s/%s: %v", c.Bucket, c.Object, err)
		writeErr(c.W, gwerr.Backend(c.Object, err))
		return
	}
	setCommonHeaders(c.W)
	c.W.Header().Set("Content-Type", "application/xml")
	c.W.WriteHeader(http.StatusOK)
	c.W.Write(s3xml.ListPartsXML(c.Bucket, c.Object, uploadIDStr, parts))
}

// ListMultipartUploads implements spec §4.7's listing of in-progress
// uploads: iterate the bucket's object-namelist, select shadow names, and
// parse each into (object_name, upload_id).
func (c *Call) ListMultipartUploads() {
	if !c.BucketsNL.IsExist(c.Bucket) {
		writeErr(c.W, gwerr.NotFound(gwerr.CodeNoSuchBucket, c.Bucket))
		return
	}
	var uploads []s3xml.UploadEntry
	for _, name := range c.ObjectsNL.Snapshot() {
		objectName, id, ok := splitShadowName(name)
		if !ok {
			continue
		}
		if _, err := c.St.GetObject(c.Bucket, name, false); err != nil {
			if err == store.ErrNotFound {
				continue
			}
			glog.Errorf("ListMultipartUploads %s: GetObject %s: %v", c.Bucket, name, err)
			writeErr(c.W, gwerr.Backend(name, err))
			return
		}
		uploads = append(uploads, s3xml.UploadEntry{Key: objectName, UploadID: id})
	}
	setCommonHeaders(c.W)
	c.W.Header().Set("Content-Type", "application/xml")
	c.W.WriteHeader(http.StatusOK)
	c.W.Write(s3xml.ListMultipartUploadsXML(c.Bucket, uploads))
}
