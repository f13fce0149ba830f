// Package handlers implements the bucket, object, multipart, and admin
// operations of spec §4.5-4.8: idempotent S3-semantic operations that
// consult the namelist cache, then the backend, then update the cache.
package handlers

import (
	"net/http"

	"github.com/golang/glog"

	"github.com/baotiao/zeppelin-gateway-go/internal/gwerr"
	"github.com/baotiao/zeppelin-gateway-go/internal/gwtime"
	"github.com/baotiao/zeppelin-gateway-go/internal/namelist"
	"github.com/baotiao/zeppelin-gateway-go/internal/s3xml"
	"github.com/baotiao/zeppelin-gateway-go/internal/store"
)

// Call bundles everything one handler invocation needs: the live request,
// the worker's backend handle, the authenticated caller, the parsed
// bucket/object names, and whichever namelists the router already
// Ref'd for this request (spec §4.3's "Ref acquisition order").
type Call struct {
	W      http.ResponseWriter
	R      *http.Request
	St     store.Store
	User   *store.User
	Bucket string
	Object string

	BucketsNL *namelist.Namelist // always set for authenticated requests
	ObjectsNL *namelist.Namelist // set only when Bucket exists in BucketsNL
}

func writeErr(w http.ResponseWriter, err *gwerr.Error) {
	if err.HasXMLBody() {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(err.Status)
		w.Write(s3xml.ErrorXML(err.Code, err.Resource))
		return
	}
	w.WriteHeader(err.Status)
	if err.Cause != nil {
		glog.Errorf("%v", err)
	}
}

// WriteErr is writeErr exported for the router, which must report
// auth-gate and dispatch-table failures (e.g. 501 NotImplemented) before
// a Call exists to carry the unexported helper's receiver.
func WriteErr(w http.ResponseWriter, err *gwerr.Error) {
	writeErr(w, err)
}

func setCommonHeaders(w http.ResponseWriter) {
	now := gwtime.HTTPNow()
	w.Header().Set("Last-Modified", now)
	w.Header().Set("Date", now)
}
