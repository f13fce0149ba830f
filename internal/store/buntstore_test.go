package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *BuntStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zgw.db")
	st, err := OpenBunt(path)
	if err != nil {
		t.Fatalf("OpenBunt: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestBuntStoreUserLifecycle(t *testing.T) {
	st := openTestStore(t)
	accessKey, secretKey, err := st.AddUser("alice")
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	u, err := st.GetUser(accessKey)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Info.DisplayName != "alice" || u.Keys[accessKey] != secretKey {
		t.Fatalf("unexpected user record: %+v", u)
	}
	if _, err := st.GetUser("missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown access key, got %v", err)
	}
}

func TestBuntStoreBucketAndObjectRoundTrip(t *testing.T) {
	st := openTestStore(t)
	owner := UserInfo{DisplayName: "alice"}
	if _, _, err := st.AddUser("alice"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if err := st.AddBucket("b1", owner); err != nil {
		t.Fatalf("AddBucket: %v", err)
	}
	names, err := st.ListBucketNames("alice")
	if err != nil || len(names) != 1 || names[0] != "b1" {
		t.Fatalf("ListBucketNames: got %v, err %v", names, err)
	}

	info := ObjectInfo{ETag: `"abc"`, Size: 3, StorageClass: StandardStorageClass, Owner: owner}
	if err := st.AddObject("b1", "o1", info, []byte("xyz")); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	obj, err := st.GetObject("b1", "o1", true)
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	if string(obj.Content) != "xyz" || obj.Info.ETag != `"abc"` {
		t.Fatalf("unexpected object: %+v", obj)
	}

	if err := st.DelObject("b1", "o1"); err != nil {
		t.Fatalf("DelObject: %v", err)
	}
	if _, err := st.GetObject("b1", "o1", false); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	if err := st.DelBucket("b1"); err != nil {
		t.Fatalf("DelBucket: %v", err)
	}
	if _, err := st.GetBucket("b1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after bucket delete, got %v", err)
	}
}

func TestBuntStoreMultipartCompletion(t *testing.T) {
	st := openTestStore(t)
	owner := UserInfo{DisplayName: "alice"}
	st.AddBucket("b1", owner)

	shadow := "__bigU123"
	if err := st.AddObject("b1", shadow, ObjectInfo{Owner: owner}, nil); err != nil {
		t.Fatalf("AddObject(shadow): %v", err)
	}
	if err := st.UploadPart("b1", shadow, ObjectInfo{Size: 3, ETag: `"p1"`}, []byte("AAA"), 2); err != nil {
		t.Fatalf("UploadPart 2: %v", err)
	}
	if err := st.UploadPart("b1", shadow, ObjectInfo{Size: 3, ETag: `"p0"`}, []byte("BBB"), 1); err != nil {
		t.Fatalf("UploadPart 1: %v", err)
	}
	parts, err := st.ListParts("b1", shadow)
	if err != nil || len(parts) != 2 {
		t.Fatalf("ListParts: got %v, err %v", parts, err)
	}

	if err := st.CompleteMultiUpload("b1", shadow, "big"); err != nil {
		t.Fatalf("CompleteMultiUpload: %v", err)
	}
	final, err := st.GetObject("b1", "big", true)
	if err != nil {
		t.Fatalf("GetObject(final): %v", err)
	}
	if string(final.Content) != "BBBAAA" {
		t.Fatalf("expected parts concatenated in ascending part-number order, got %q", string(final.Content))
	}
	if _, err := st.GetObject("b1", shadow, false); err != ErrNotFound {
		t.Fatalf("expected shadow object removed after completion, got %v", err)
	}
}

// TestBuntStoreListObjectNamesIgnoresGlobMetacharacters guards against
// bucket/object names being interpreted as glob patterns during a prefix
// scan: a bucket named "b[1]" must not corrupt the match against its own
// objects, and must not accidentally match another bucket's objects.
func TestBuntStoreListObjectNamesIgnoresGlobMetacharacters(t *testing.T) {
	st := openTestStore(t)
	owner := UserInfo{DisplayName: "alice"}
	if err := st.AddBucket("b[1]", owner); err != nil {
		t.Fatalf("AddBucket: %v", err)
	}
	if err := st.AddObject("b[1]", "o*1", ObjectInfo{Owner: owner}, []byte("x")); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	if err := st.AddBucket("b", owner); err != nil {
		t.Fatalf("AddBucket: %v", err)
	}
	if err := st.AddObject("b", "unrelated", ObjectInfo{Owner: owner}, []byte("y")); err != nil {
		t.Fatalf("AddObject: %v", err)
	}

	names, err := st.ListObjectNames("b[1]")
	if err != nil {
		t.Fatalf("ListObjectNames: %v", err)
	}
	if len(names) != 1 || names[0] != "o*1" {
		t.Fatalf("expected exactly [\"o*1\"], got %v", names)
	}
}
