// Package storage wraps the object store's multipart upload primitives.
//
// The gateway is stateless: every call is keyed by the bucket, key and session
// id supplied by the caller, and the backend remains the only authority on
// whether a session exists.
package storage

import (
	"context"
	"time"
)

// MaxParts is the largest part number the backend accepts.
const MaxParts = 10000

// CompletedPart identifies one uploaded part by number and backend ETag.
type CompletedPart struct {
	PartNumber int
	ETag       string
}

// Gateway is the capability surface the orchestrator needs from the object store.
type Gateway interface {
	// CreateSession opens a multipart upload and returns the backend session id
	// together with the key the backend resolved.
	CreateSession(ctx context.Context, bucket, key, contentType string) (sessionID, resolvedKey string, err error)

	// PresignPartUpload returns a write URL for one part of the session.
	PresignPartUpload(ctx context.Context, bucket, key, sessionID string, partNumber int, ttl time.Duration) (string, error)

	// CompleteSession assembles the object. Parts must already be in ascending order.
	CompleteSession(ctx context.Context, bucket, key, sessionID string, parts []CompletedPart) error

	// AbortSession discards the session and any uploaded parts.
	AbortSession(ctx context.Context, bucket, key, sessionID string) error

	// PresignObjectRead returns a read URL for a finished object.
	PresignObjectRead(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}
