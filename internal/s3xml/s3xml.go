// Package s3xml renders the S3-compatible XML response and error bodies
// described in spec §6, grounded on the teacher's own S3-compatibility
// layer (ais/s3compat/object.go).
package s3xml

import (
	"encoding/xml"

	"github.com/baotiao/zeppelin-gateway-go/internal/gwtime"
	"github.com/baotiao/zeppelin-gateway-go/internal/store"
)

const xmlns = "http://s3.amazonaws.com/doc/2006-03-01/"

func marshal(v interface{}) []byte {
	b, err := xml.Marshal(v)
	if err != nil {
		// Every type in this package is a plain struct of strings/slices;
		// a marshal failure here means a programming error, not bad input.
		panic(err)
	}
	return append([]byte(xml.Header), b...)
}

// ---- errors ----

type errorResult struct {
	XMLName  xml.Name `xml:"Error"`
	Code     string   `xml:"Code"`
	Message  string   `xml:"Message"`
	Resource string   `xml:"Resource"`
}

func ErrorXML(code, resource string) []byte {
	return marshal(errorResult{Code: code, Message: code, Resource: resource})
}

// ---- ListBuckets ----

type bucketEntry struct {
	Name         string `xml:"Name"`
	CreationDate string `xml:"CreationDate"`
}

type ownerInfo struct {
	ID          string `xml:"ID"`
	DisplayName string `xml:"DisplayName"`
}

type listAllMyBuckets struct {
	XMLName xml.Name      `xml:"ListAllMyBucketsResult"`
	Ns      string        `xml:"xmlns,attr"`
	Owner   ownerInfo     `xml:"Owner"`
	Buckets []bucketEntry `xml:"Buckets>Bucket"`
}

func ListBucketsXML(owner store.UserInfo, buckets []*store.Bucket) []byte {
	out := listAllMyBuckets{
		Ns:    xmlns,
		Owner: ownerInfo{ID: owner.DisplayName, DisplayName: owner.DisplayName},
	}
	for _, b := range buckets {
		out.Buckets = append(out.Buckets, bucketEntry{
			Name:         b.Name,
			CreationDate: gwtime.Format(b.CreatedAt),
		})
	}
	return marshal(out)
}

// ---- ListObjects ----

type objectEntry struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
	Size         int64  `xml:"Size"`
	StorageClass string `xml:"StorageClass"`
}

type listBucketResult struct {
	XMLName     xml.Name      `xml:"ListBucketResult"`
	Ns          string        `xml:"xmlns,attr"`
	Name        string        `xml:"Name"`
	MaxKeys     int           `xml:"MaxKeys"`
	IsTruncated bool          `xml:"IsTruncated"`
	Contents    []objectEntry `xml:"Contents"`
}

func entryFromObject(o *store.Object) objectEntry {
	return objectEntry{
		Key:          o.Name,
		LastModified: gwtime.Format(o.Info.CreatedAt),
		ETag:         o.Info.ETag,
		Size:         o.Info.Size,
		StorageClass: string(o.Info.StorageClass),
	}
}

// ListObjectsXML renders the always-non-truncated ListBucketResult body
// (spec §4.6, §9: pagination is accepted but ignored).
func ListObjectsXML(bucket string, objects []*store.Object) []byte {
	out := listBucketResult{Ns: xmlns, Name: bucket, MaxKeys: 1000, IsTruncated: false}
	for _, o := range objects {
		out.Contents = append(out.Contents, entryFromObject(o))
	}
	return marshal(out)
}

// ---- multipart ----

type initiateMultipartUploadResult struct {
	XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
	Ns       string   `xml:"xmlns,attr"`
	Bucket   string   `xml:"Bucket"`
	Key      string   `xml:"Key"`
	UploadID string   `xml:"UploadId"`
}

func InitiateMultipartUploadXML(bucket, key, uploadID string) []byte {
	return marshal(initiateMultipartUploadResult{Ns: xmlns, Bucket: bucket, Key: key, UploadID: uploadID})
}

type partEntry struct {
	PartNumber   int    `xml:"PartNumber"`
	ETag         string `xml:"ETag"`
	Size         int64  `xml:"Size"`
	LastModified string `xml:"LastModified"`
}

type listPartsResult struct {
	XMLName      xml.Name    `xml:"ListPartsResult"`
	Ns           string      `xml:"xmlns,attr"`
	Bucket       string      `xml:"Bucket"`
	Key          string      `xml:"Key"`
	UploadID     string      `xml:"UploadId"`
	StorageClass string      `xml:"StorageClass"`
	MaxParts     int         `xml:"MaxParts"`
	IsTruncated  bool        `xml:"IsTruncated"`
	Parts        []partEntry `xml:"Part"`
}

func ListPartsXML(bucket, key, uploadID string, parts []*store.Part) []byte {
	out := listPartsResult{
		Ns: xmlns, Bucket: bucket, Key: key, UploadID: uploadID,
		StorageClass: string(store.StandardStorageClass), MaxParts: 1000, IsTruncated: false,
	}
	for _, p := range parts {
		out.Parts = append(out.Parts, partEntry{
			PartNumber:   p.PartNumber,
			ETag:         p.Info.ETag,
			Size:         p.Info.Size,
			LastModified: gwtime.Format(p.Info.CreatedAt),
		})
	}
	return marshal(out)
}

// UploadEntry is one row of a ListMultipartUploads response: the
// user-facing object name and the upload_id parsed back out of its
// shadow name (spec §4.7).
type UploadEntry struct {
	Key      string `xml:"Key"`
	UploadID string `xml:"UploadId"`
}

type listMultipartUploadsResult struct {
	XMLName     xml.Name      `xml:"ListMultipartUploadsResult"`
	Ns          string        `xml:"xmlns,attr"`
	Bucket      string        `xml:"Bucket"`
	MaxUploads  int           `xml:"MaxUploads"`
	IsTruncated bool          `xml:"IsTruncated"`
	Uploads     []UploadEntry `xml:"Upload"`
}

func ListMultipartUploadsXML(bucket string, uploads []UploadEntry) []byte {
	out := listMultipartUploadsResult{Ns: xmlns, Bucket: bucket, MaxUploads: 1000, IsTruncated: false, Uploads: uploads}
	return marshal(out)
}
