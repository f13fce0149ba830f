package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/baotiao/zeppelin-gateway-go/internal/namelist"
	"github.com/baotiao/zeppelin-gateway-go/internal/store"
	"github.com/baotiao/zeppelin-gateway-go/internal/storetest"
)

func newUser(name string) *store.User {
	return &store.User{Info: store.UserInfo{DisplayName: name}}
}

func TestPutBucketThenHeadAndList(t *testing.T) {
	st := storetest.New()
	user := newUser("alice")
	bucketsNL := namelist.New()

	req := httptest.NewRequest(http.MethodPut, "/b1", nil)
	w := httptest.NewRecorder()
	call := &Call{W: w, R: req, St: st, User: user, Bucket: "b1", BucketsNL: bucketsNL}
	call.PutBucket(func(store.Store) ([]*namelist.Namelist, error) { return nil, nil })
	if w.Code != http.StatusOK {
		t.Fatalf("PutBucket: expected 200, got %d", w.Code)
	}
	if !bucketsNL.IsExist("b1") {
		t.Fatal("expected bucket to be present in namelist after PutBucket")
	}

	w2 := httptest.NewRecorder()
	call2 := &Call{W: w2, R: httptest.NewRequest(http.MethodHead, "/b1", nil), St: st, User: user, Bucket: "b1", BucketsNL: bucketsNL}
	call2.HeadBucket()
	if w2.Code != http.StatusOK {
		t.Fatalf("HeadBucket: expected 200, got %d", w2.Code)
	}
}

func TestPutBucketDuplicateConflict(t *testing.T) {
	st := storetest.New()
	user := newUser("alice")
	bucketsNL := namelist.New()
	bucketsNL.Insert("b1")

	w := httptest.NewRecorder()
	call := &Call{W: w, R: httptest.NewRequest(http.MethodPut, "/b1", nil), St: st, User: user, Bucket: "b1", BucketsNL: bucketsNL}
	call.PutBucket(func(store.Store) ([]*namelist.Namelist, error) { return nil, nil })
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate PutBucket, got %d", w.Code)
	}
}

func TestDeleteNonEmptyBucketConflict(t *testing.T) {
	st := storetest.New()
	user := newUser("alice")
	bucketsNL := namelist.New()
	bucketsNL.Insert("b1")
	objectsNL := namelist.New()
	objectsNL.Insert("o1")

	w := httptest.NewRecorder()
	call := &Call{W: w, R: httptest.NewRequest(http.MethodDelete, "/b1", nil), St: st, User: user, Bucket: "b1", BucketsNL: bucketsNL, ObjectsNL: objectsNL}
	call.DeleteBucket()
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 BucketNotEmpty, got %d", w.Code)
	}
}

func TestPutObjectThenGetAndDelete(t *testing.T) {
	st := storetest.New()
	st.AddBucket("b1", store.UserInfo{DisplayName: "alice"})
	user := newUser("alice")
	bucketsNL := namelist.New()
	bucketsNL.Insert("b1")
	objectsNL := namelist.New()

	body := "hello world"
	putReq := httptest.NewRequest(http.MethodPut, "/b1/o1", strings.NewReader(body))
	w := httptest.NewRecorder()
	call := &Call{W: w, R: putReq, St: st, User: user, Bucket: "b1", Object: "o1", BucketsNL: bucketsNL, ObjectsNL: objectsNL}
	call.PutObject()
	if w.Code != http.StatusOK {
		t.Fatalf("PutObject: expected 200, got %d", w.Code)
	}
	etag := w.Header().Get("ETag")
	if etag == "" || !strings.HasPrefix(etag, `"`) {
		t.Fatalf("expected quoted ETag header, got %q", etag)
	}

	w2 := httptest.NewRecorder()
	getCall := &Call{W: w2, R: httptest.NewRequest(http.MethodGet, "/b1/o1", nil), St: st, User: user, Bucket: "b1", Object: "o1", BucketsNL: bucketsNL, ObjectsNL: objectsNL}
	getCall.GetObject(false)
	if w2.Code != http.StatusOK || w2.Body.String() != body {
		t.Fatalf("GetObject: expected 200 with body %q, got %d %q", body, w2.Code, w2.Body.String())
	}

	w3 := httptest.NewRecorder()
	headCall := &Call{W: w3, R: httptest.NewRequest(http.MethodHead, "/b1/o1", nil), St: st, User: user, Bucket: "b1", Object: "o1", BucketsNL: bucketsNL, ObjectsNL: objectsNL}
	headCall.GetObject(true)
	if w3.Body.Len() != 0 {
		t.Fatalf("HEAD must never emit a body, got %d bytes", w3.Body.Len())
	}

	w4 := httptest.NewRecorder()
	delCall := &Call{W: w4, R: httptest.NewRequest(http.MethodDelete, "/b1/o1", nil), St: st, User: user, Bucket: "b1", Object: "o1", BucketsNL: bucketsNL, ObjectsNL: objectsNL}
	delCall.DeleteObject()
	if w4.Code != http.StatusNoContent {
		t.Fatalf("DeleteObject: expected 204, got %d", w4.Code)
	}
	if objectsNL.IsExist("o1") {
		t.Fatal("expected object removed from namelist after delete")
	}
}

func TestDeleteObjectIsIdempotent(t *testing.T) {
	st := storetest.New()
	user := newUser("alice")
	objectsNL := namelist.New()

	w := httptest.NewRecorder()
	call := &Call{W: w, R: httptest.NewRequest(http.MethodDelete, "/b1/missing", nil), St: st, User: user, Bucket: "b1", Object: "missing", BucketsNL: namelist.New(), ObjectsNL: objectsNL}
	call.DeleteObject()
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for delete-of-absent object, got %d", w.Code)
	}
}

func TestListObjectsExcludesShadowEntries(t *testing.T) {
	st := storetest.New()
	st.AddBucket("b1", store.UserInfo{DisplayName: "alice"})
	user := newUser("alice")
	bucketsNL := namelist.New()
	bucketsNL.Insert("b1")
	objectsNL := namelist.New()

	if err := st.AddObject("b1", "o1", store.ObjectInfo{}, []byte("data")); err != nil {
		t.Fatalf("seed AddObject: %v", err)
	}
	objectsNL.Insert("o1")
	if err := st.AddObject("b1", "__o1deadbeefdeadbeefdeadbeefdeadbeef", store.ObjectInfo{}, nil); err != nil {
		t.Fatalf("seed shadow AddObject: %v", err)
	}
	objectsNL.Insert("__o1deadbeefdeadbeefdeadbeefdeadbeef")

	// A genuine client object whose name happens to start with "__" but
	// doesn't have the shadow shape (prefix + name + 32-hex upload_id)
	// must still be listed.
	if err := st.AddObject("b1", "__logs", store.ObjectInfo{}, []byte("log data")); err != nil {
		t.Fatalf("seed AddObject __logs: %v", err)
	}
	objectsNL.Insert("__logs")

	w := httptest.NewRecorder()
	call := &Call{W: w, R: httptest.NewRequest(http.MethodGet, "/b1", nil), St: st, User: user, Bucket: "b1", BucketsNL: bucketsNL, ObjectsNL: objectsNL}
	call.ListObjects()
	if w.Code != http.StatusOK {
		t.Fatalf("ListObjects: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<Key>o1</Key>") {
		t.Fatalf("expected o1 in listing, got %q", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "<Key>__logs</Key>") {
		t.Fatalf("expected non-shadow __-prefixed object __logs in listing, got %q", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "__o1deadbeef") {
		t.Fatalf("shadow object leaked into ListObjects body: %q", w.Body.String())
	}
}

func TestGetObjectNotFound(t *testing.T) {
	st := storetest.New()
	user := newUser("alice")
	w := httptest.NewRecorder()
	call := &Call{W: w, R: httptest.NewRequest(http.MethodGet, "/b1/missing", nil), St: st, User: user, Bucket: "b1", Object: "missing", BucketsNL: namelist.New(), ObjectsNL: namelist.New()}
	call.GetObject(false)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 NoSuchKey, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "NoSuchKey") {
		t.Fatalf("expected NoSuchKey in error body, got %q", w.Body.String())
	}
}
