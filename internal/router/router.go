// Package router implements the gateway's request dispatch (spec §4.3):
// path parsing, admin short-circuiting, the auth gate, namelist Ref/Unref
// bracketing, and per-object mutex acquisition around every handler call.
package router

import (
	"net/http"
	"strings"

	"github.com/golang/glog"

	"github.com/baotiao/zeppelin-gateway-go/internal/auth"
	"github.com/baotiao/zeppelin-gateway-go/internal/gwctx"
	"github.com/baotiao/zeppelin-gateway-go/internal/gwerr"
	"github.com/baotiao/zeppelin-gateway-go/internal/handlers"
	"github.com/baotiao/zeppelin-gateway-go/internal/namelist"
	"github.com/baotiao/zeppelin-gateway-go/internal/store"
)

const (
	adminListUsersBucket = "admin_list_users"
	adminPutUserBucket   = "admin_put_user"
)

// ParsePath implements spec §4.3's path parsing: "/" yields an empty
// bucket and object (ListBuckets); "/{b}" yields a bucket-only path;
// "/{b}/{o}" yields bucket and object, with the object's trailing slash
// stripped.
func ParsePath(path string) (bucket, object string) {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return "", ""
	}
	slash := strings.IndexByte(trimmed, '/')
	if slash < 0 {
		return trimmed, ""
	}
	bucket = trimmed[:slash]
	object = strings.TrimSuffix(trimmed[slash+1:], "/")
	return bucket, object
}

// Router is the entry point shared by the worker-pool listener and, for
// the admin endpoints, the separate admin listener (spec §6 "Served on a
// separate admin port" and the classification table's inline admin
// handling both resolve to these same functions).
type Router struct {
	Ctx  *gwctx.Context
	Auth auth.Authenticator
}

func New(ctx *gwctx.Context, authenticator auth.Authenticator) *Router {
	return &Router{Ctx: ctx, Auth: authenticator}
}

// Handle dispatches one request against st, the calling worker's
// exclusive backend handle (spec §5).
func (rt *Router) Handle(st store.Store, w http.ResponseWriter, r *http.Request) {
	rt.Ctx.Monitor.Inc()

	bucket, object := ParsePath(r.URL.Path)

	if bucket == adminListUsersBucket && r.Method == http.MethodGet {
		handlers.AdminListUsers(w, st)
		return
	}
	if bucket == adminPutUserBucket && r.Method == http.MethodPut && object != "" {
		handlers.AdminPutUser(w, object, st)
		return
	}

	user, authErr := rt.Auth.Authenticate(st, r)
	if authErr != nil {
		handlers.WriteErr(w, authErr)
		return
	}

	bucketsNL, err := rt.Ctx.Buckets.Ref(st, user.Info.DisplayName)
	if err != nil {
		glog.Errorf("Ref buckets(%s): %v", user.Info.DisplayName, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer rt.Ctx.Buckets.Unref(user.Info.DisplayName)

	var objectsNL *namelist.Namelist
	if bucket != "" && bucketsNL.IsExist(bucket) {
		objectsNL, err = rt.Ctx.Objects.Ref(st, bucket)
		if err != nil {
			glog.Errorf("Ref objects(%s): %v", bucket, err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		defer rt.Ctx.Objects.Unref(bucket)
	}

	isObjectLevel := bucket != "" && object != ""
	if isObjectLevel && objectsNL == nil {
		// The bucket isn't in the caller's namelist, so no object-namelist
		// was Ref'd above; every object-level handler needs one. Bail out
		// before the mutex and the handler dispatch, matching
		// original_source/src/zgw_conn.cc's DealMessage, which checks
		// buckets_name_->IsExist(bucket_name_) before touching the
		// per-object mutex or any object handler.
		handlers.WriteErr(w, gwerr.NotFound(gwerr.CodeNoSuchBucket, bucket))
		return
	}
	if isObjectLevel {
		key := bucket + object
		rt.Ctx.Locks.Lock(key)
		defer rt.Ctx.Locks.Unlock(key)
	}

	call := &handlers.Call{
		W: w, R: r, St: st, User: user,
		Bucket: bucket, Object: object,
		BucketsNL: bucketsNL, ObjectsNL: objectsNL,
	}
	rt.dispatch(call, bucket, object, r)
}

// allBucketNamelists Refs every user's bucket-namelist for PutBucket's
// global-uniqueness scan. On a mid-scan failure it Unrefs everything it
// already holds before returning the error (spec §4.1 "Failure handling").
func (rt *Router) allBucketNamelists(st store.Store) ([]*namelist.Namelist, error) {
	users, err := st.ListUsers()
	if err != nil {
		return nil, err
	}
	held := make([]string, 0, len(users))
	lists := make([]*namelist.Namelist, 0, len(users))
	for _, u := range users {
		nl, err := rt.Ctx.Buckets.Ref(st, u.Info.DisplayName)
		if err != nil {
			for _, name := range held {
				rt.Ctx.Buckets.Unref(name)
			}
			return nil, err
		}
		held = append(held, u.Info.DisplayName)
		lists = append(lists, nl)
	}
	for _, name := range held {
		defer rt.Ctx.Buckets.Unref(name)
	}
	return lists, nil
}

// dispatch implements the post-auth fan-out table of spec §4.3.
func (rt *Router) dispatch(call *handlers.Call, bucket, object string, r *http.Request) {
	q := r.URL.Query()
	_, hasUploads := q["uploads"]
	_, hasUploadID := q["uploadId"]
	_, hasPartNumber := q["partNumber"]
	uploadID := q.Get("uploadId")
	partNumber := q.Get("partNumber")

	if bucket == "" {
		if r.Method == http.MethodGet {
			call.ListBuckets()
			return
		}
		handlers.WriteErr(call.W, gwerr.NotImplemented())
		return
	}

	if object == "" {
		switch {
		case r.Method == http.MethodGet && hasUploads:
			call.ListMultipartUploads()
		case r.Method == http.MethodGet:
			call.ListObjects()
		case r.Method == http.MethodPut:
			call.PutBucket(rt.allBucketNamelists)
		case r.Method == http.MethodDelete:
			call.DeleteBucket()
		case r.Method == http.MethodHead:
			call.HeadBucket()
		default:
			handlers.WriteErr(call.W, gwerr.NotImplemented())
		}
		return
	}

	switch {
	case r.Method == http.MethodGet && hasUploadID:
		call.ListParts(uploadID)
	case r.Method == http.MethodGet:
		call.GetObject(false)
	case r.Method == http.MethodPut && hasPartNumber && hasUploadID:
		call.UploadPart(partNumber, uploadID)
	case r.Method == http.MethodPut:
		call.PutObject()
	case r.Method == http.MethodDelete && hasUploadID:
		call.AbortMultipartUpload(uploadID)
	case r.Method == http.MethodDelete:
		call.DeleteObject()
	case r.Method == http.MethodHead:
		call.GetObject(true)
	case r.Method == http.MethodPost && hasUploads:
		call.InitiateMultipartUpload()
	case r.Method == http.MethodPost && hasUploadID:
		call.CompleteMultipartUpload(uploadID)
	default:
		handlers.WriteErr(call.W, gwerr.NotImplemented())
	}
}

