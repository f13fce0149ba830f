// Package gwerr defines the typed errors the gateway's handlers surface,
// each carrying the HTTP status and S3 error code described in the
// specification's error-handling section.
package gwerr

import "github.com/pkg/errors"

// S3 error codes used by the gateway (spec §6).
const (
	CodeInvalidAccessKeyId       = "InvalidAccessKeyId"
	CodeSignatureDoesNotMatch    = "SignatureDoesNotMatch"
	CodeNoSuchBucket             = "NoSuchBucket"
	CodeNoSuchKey                = "NoSuchKey"
	CodeNoSuchUpload             = "NoSuchUpload"
	CodeBucketAlreadyOwnedByYou  = "BucketAlreadyOwnedByYou"
	CodeBucketAlreadyExists      = "BucketAlreadyExists"
	CodeBucketNotEmpty           = "BucketNotEmpty"
	CodeNotImplemented           = "NotImplemented"
)

// Error is a classified gateway error: an HTTP status, an S3 error code
// (empty for errors with no XML body), a resource name, and an optional
// wrapped cause for logging.
type Error struct {
	Status   int
	Code     string
	Resource string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Code + ": " + e.Resource + ": " + e.Cause.Error()
	}
	return e.Code + ": " + e.Resource
}

func (e *Error) Unwrap() error { return e.Cause }

func Client(resource string) *Error {
	return &Error{Status: 400, Resource: resource}
}

func Auth(code, resource string) *Error {
	return &Error{Status: 403, Code: code, Resource: resource}
}

func NotFound(code, resource string) *Error {
	return &Error{Status: 404, Code: code, Resource: resource}
}

func Conflict(code, resource string) *Error {
	return &Error{Status: 409, Code: code, Resource: resource}
}

func NotImplemented() *Error {
	return &Error{Status: 501, Code: CodeNotImplemented}
}

// Backend wraps a backend-store failure as a 500. NotFound statuses from
// the store must never reach here — callers normalize those first.
func Backend(resource string, cause error) *Error {
	return &Error{Status: 500, Resource: resource, Cause: errors.Wrap(cause, "backend")}
}

// HasXMLBody reports whether this error should render an S3 error-XML body.
func (e *Error) HasXMLBody() bool { return e.Code != "" }
