package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tidwall/buntdb"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BuntStore is the reference Store implementation: an embedded,
// single-file key/value table standing in for the out-of-scope "zp"
// metadata backend (spec §1, §6). It is what the reference deployment and
// the test suite run against; a production deployment is expected to
// plug in a real distributed backend behind the same Store interface.
type BuntStore struct {
	db *buntdb.DB
}

// OpenBunt opens (or creates) a buntdb file at path. Each worker in the
// pool calls this once at startup and keeps the handle for its lifetime
// (spec §5 "Backend handle: exclusive per worker, never shared").
func OpenBunt(path string) (*BuntStore, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open buntdb")
	}
	return &BuntStore{db: db}, nil
}

func (s *BuntStore) Close() error { return s.db.Close() }

const (
	userKeyPrefix   = "user:"    // user:<access_key> -> accessKeyRecord
	userInfoPrefix  = "uinfo:"   // uinfo:<display_name> -> User
	bucketPrefix    = "bucket:"  // bucket:<name> -> Bucket
	objectPrefix    = "object:"  // object:<bucket>/<name> -> Object (sans content)
	contentPrefix   = "content:" // content:<bucket>/<name> -> raw bytes (as string)
	partPrefix      = "part:"    // part:<bucket>/<shadow>/<num> -> Part (sans content)
	partContentPfx  = "partc:"   // partc:<bucket>/<shadow>/<num> -> raw bytes
)

type accessKeyRecord struct {
	AccessKey   string
	SecretKey   string
	DisplayName string
}

func objectKey(bucket, name string) string { return objectPrefix + bucket + "/" + name }
func contentKey(bucket, name string) string { return contentPrefix + bucket + "/" + name }
func partKey(bucket, shadow string, n int) string {
	return partPrefix + bucket + "/" + shadow + "/" + strconv.Itoa(n)
}
func partContentKey(bucket, shadow string, n int) string {
	return partContentPfx + bucket + "/" + shadow + "/" + strconv.Itoa(n)
}

// ascendPrefix walks every key with the literal prefix in lexicographic
// order. Unlike tx.AscendKeys(prefix+"*", ...), this never treats bucket,
// object, or shadow names containing glob metacharacters ('*', '?', '[')
// as pattern syntax — prefix is matched byte-for-byte via strings.HasPrefix,
// not glob-matched, since those names are client-supplied (spec §3) and
// must not be able to widen or narrow a scan by choosing a crafted name.
func ascendPrefix(tx *buntdb.Tx, prefix string, fn func(key, value string) bool) error {
	return tx.AscendGreaterOrEqual("", prefix, func(key, value string) bool {
		if !strings.HasPrefix(key, prefix) {
			return false
		}
		return fn(key, value)
	})
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *BuntStore) AddUser(displayName string) (accessKey, secretKey string, err error) {
	ak, err := randomHex(10) // 20 hex chars, AWS-access-key-id shaped
	if err != nil {
		return "", "", err
	}
	sk, err := randomHex(20)
	if err != nil {
		return "", "", err
	}
	rec := accessKeyRecord{AccessKey: ak, SecretKey: sk, DisplayName: displayName}
	buf, err := json.Marshal(rec)
	if err != nil {
		return "", "", err
	}
	err = s.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(userInfoPrefix + displayName); err == nil {
			return ErrAlreadyExists
		}
		if _, _, err := tx.Set(userKeyPrefix+ak, string(buf), nil); err != nil {
			return err
		}
		u := User{Info: UserInfo{DisplayName: displayName}, Keys: map[string]string{ak: sk}}
		ub, err := json.Marshal(u)
		if err != nil {
			return err
		}
		_, _, err = tx.Set(userInfoPrefix+displayName, string(ub), nil)
		return err
	})
	if err != nil {
		if err == buntdb.ErrNotFound {
			err = ErrNotFound
		}
		return "", "", err
	}
	return ak, sk, nil
}

func (s *BuntStore) GetUser(accessKey string) (*User, error) {
	var rec accessKeyRecord
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(userKeyPrefix + accessKey)
		if err != nil {
			if err == buntdb.ErrNotFound {
				return ErrNotFound
			}
			return err
		}
		return json.Unmarshal([]byte(v), &rec)
	})
	if err != nil {
		return nil, err
	}
	return &User{
		Info: UserInfo{DisplayName: rec.DisplayName},
		Keys: map[string]string{rec.AccessKey: rec.SecretKey},
	}, nil
}

func (s *BuntStore) ListUsers() ([]*User, error) {
	var out []*User
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(userInfoPrefix+"*", func(key, value string) bool {
			var u User
			if jerr := json.Unmarshal([]byte(value), &u); jerr == nil {
				out = append(out, &u)
			}
			return true
		})
	})
	return out, err
}

func (s *BuntStore) AddBucket(name string, owner UserInfo) error {
	b := Bucket{Name: name, Owner: owner, CreatedAt: time.Now()}
	buf, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(bucketPrefix + name); err == nil {
			return ErrAlreadyExists
		}
		_, _, err := tx.Set(bucketPrefix+name, string(buf), nil)
		return err
	})
}

func (s *BuntStore) GetBucket(name string) (*Bucket, error) {
	var b Bucket
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(bucketPrefix + name)
		if err != nil {
			if err == buntdb.ErrNotFound {
				return ErrNotFound
			}
			return err
		}
		return json.Unmarshal([]byte(v), &b)
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *BuntStore) DelBucket(name string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(bucketPrefix + name)
		if err == buntdb.ErrNotFound {
			return ErrNotFound
		}
		return err
	})
}

func (s *BuntStore) AddObject(bucket, name string, info ObjectInfo, content []byte) error {
	o := Object{Bucket: bucket, Name: name, Info: info}
	buf, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set(objectKey(bucket, name), string(buf), nil); err != nil {
			return err
		}
		_, _, err := tx.Set(contentKey(bucket, name), string(content), nil)
		return err
	})
}

func (s *BuntStore) GetObject(bucket, name string, needContent bool) (*Object, error) {
	var o Object
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(objectKey(bucket, name))
		if err != nil {
			if err == buntdb.ErrNotFound {
				return ErrNotFound
			}
			return err
		}
		if jerr := json.Unmarshal([]byte(v), &o); jerr != nil {
			return jerr
		}
		if needContent {
			c, err := tx.Get(contentKey(bucket, name))
			if err != nil && err != buntdb.ErrNotFound {
				return err
			}
			o.Content = []byte(c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *BuntStore) DelObject(bucket, name string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(objectKey(bucket, name))
		if err != nil && err != buntdb.ErrNotFound {
			return err
		}
		notFound := err == buntdb.ErrNotFound
		if _, cerr := tx.Delete(contentKey(bucket, name)); cerr != nil && cerr != buntdb.ErrNotFound {
			return cerr
		}
		if notFound {
			return ErrNotFound
		}
		return nil
	})
}

func (s *BuntStore) UploadPart(bucket, shadowName string, info ObjectInfo, content []byte, partNumber int) error {
	p := Part{PartNumber: partNumber, Info: info}
	buf, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set(partKey(bucket, shadowName, partNumber), string(buf), nil); err != nil {
			return err
		}
		_, _, err := tx.Set(partContentKey(bucket, shadowName, partNumber), string(content), nil)
		return err
	})
}

func (s *BuntStore) ListParts(bucket, shadowName string) ([]*Part, error) {
	prefix := partPrefix + bucket + "/" + shadowName + "/"
	var out []*Part
	err := s.db.View(func(tx *buntdb.Tx) error {
		return ascendPrefix(tx, prefix, func(key, value string) bool {
			var p Part
			if jerr := json.Unmarshal([]byte(value), &p); jerr == nil {
				out = append(out, &p)
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CompleteMultiUpload concatenates the shadow object's parts (in part-number
// order) into a final object named finalName, then removes the shadow and
// its parts. The caller (handlers.Multipart) is responsible for deleting
// any prior object of that name first (spec §4.7).
func (s *BuntStore) CompleteMultiUpload(bucket, shadowName, finalName string) error {
	parts, err := s.ListParts(bucket, shadowName)
	if err != nil {
		return err
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	combined := make([]byte, 0)
	owner := UserInfo{}
	for i, p := range parts {
		if p.PartNumber != i+1 {
			return fmt.Errorf("store: missing part %d for upload of %s", i+1, finalName)
		}
		content, cerr := s.partContent(bucket, shadowName, p.PartNumber)
		if cerr != nil {
			return cerr
		}
		combined = append(combined, content...)
		owner = p.Info.Owner
	}
	info := ObjectInfo{
		CreatedAt:    time.Now(),
		Size:         int64(len(combined)),
		StorageClass: StandardStorageClass,
		Owner:        owner,
	}
	if err := s.AddObject(bucket, finalName, info, combined); err != nil {
		return err
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		prefix := partPrefix + bucket + "/" + shadowName + "/"
		var keys []string
		_ = ascendPrefix(tx, prefix, func(key, _ string) bool {
			keys = append(keys, key)
			return true
		})
		for _, k := range keys {
			tx.Delete(k)
			tx.Delete(strings.Replace(k, partPrefix, partContentPfx, 1))
		}
		if _, err := tx.Delete(objectKey(bucket, shadowName)); err != nil && err != buntdb.ErrNotFound {
			return err
		}
		if _, err := tx.Delete(contentKey(bucket, shadowName)); err != nil && err != buntdb.ErrNotFound {
			return err
		}
		return nil
	})
}

func (s *BuntStore) partContent(bucket, shadow string, num int) ([]byte, error) {
	var c string
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(partContentKey(bucket, shadow, num))
		if err != nil {
			if err == buntdb.ErrNotFound {
				return nil
			}
			return err
		}
		c = v
		return nil
	})
	return []byte(c), err
}

func (s *BuntStore) ListBucketNames(displayName string) ([]string, error) {
	u, err := s.userByDisplayName(displayName)
	if err != nil {
		return nil, err
	}
	var out []string
	err = s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(bucketPrefix+"*", func(key, value string) bool {
			var b Bucket
			if jerr := json.Unmarshal([]byte(value), &b); jerr == nil && b.Owner.DisplayName == u.Info.DisplayName {
				out = append(out, b.Name)
			}
			return true
		})
	})
	return out, err
}

func (s *BuntStore) ListObjectNames(bucket string) ([]string, error) {
	prefix := objectPrefix + bucket + "/"
	var out []string
	err := s.db.View(func(tx *buntdb.Tx) error {
		return ascendPrefix(tx, prefix, func(key, _ string) bool {
			out = append(out, strings.TrimPrefix(key, prefix))
			return true
		})
	})
	return out, err
}

func (s *BuntStore) userByDisplayName(displayName string) (*User, error) {
	var u User
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(userInfoPrefix + displayName)
		if err != nil {
			if err == buntdb.ErrNotFound {
				return ErrNotFound
			}
			return err
		}
		return json.Unmarshal([]byte(v), &u)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}
