package storage

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Sentinel errors for the backend failures callers care to distinguish.
var (
	ErrSessionNotFound = errors.New("storage: upload session not found")
	ErrAccessDenied    = errors.New("storage: access denied")
	ErrInvalidPart     = errors.New("storage: invalid part list")
	ErrNoSuchBucket    = errors.New("storage: bucket not found")
)

// Error records which gateway operation failed and on what object.
type Error struct {
	Op     string
	Bucket string
	Key    string
	Err    error

	kind error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("s3.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("s3.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
}

// Unwrap exposes both the classified sentinel and the SDK error.
func (e *Error) Unwrap() []error {
	if e.kind == nil {
		return []error{e.Err}
	}
	return []error{e.kind, e.Err}
}

func newError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
		kind:   classify(err),
	}
}

func classify(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return nil
	}
	switch apiErr.ErrorCode() {
	case "NoSuchUpload", "NoSuchKey", "NotFound", "404":
		return ErrSessionNotFound
	case "AccessDenied", "Forbidden", "403", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
		return ErrAccessDenied
	case "InvalidPart", "InvalidPartOrder", "EntityTooSmall", "MalformedXML":
		return ErrInvalidPart
	case "NoSuchBucket":
		return ErrNoSuchBucket
	}
	return nil
}
