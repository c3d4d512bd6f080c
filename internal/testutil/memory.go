package testutil

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stefando/multipartUploadAWS/internal/storage"
)

// SessionState mirrors the backend's view of a multipart session.
type SessionState int

const (
	SessionCreated SessionState = iota
	SessionCompleted
	SessionAborted
)

// Session is one multipart upload held by MemoryGateway.
type Session struct {
	Bucket      string
	Key         string
	ContentType string
	State       SessionState
	Parts       []storage.CompletedPart
}

// PresignCall records one presign request.
type PresignCall struct {
	Key        string
	SessionID  string
	PartNumber int
	TTL        time.Duration
}

// MemoryGateway is an in-memory storage.Gateway that enforces the backend's
// session rules: a session completes or aborts exactly once.
type MemoryGateway struct {
	// BaseURL prefixes every presigned URL. Defaults to https://s3.test.
	BaseURL string
	// Errors forces an operation ("create", "presign", "complete", "abort", "read") to fail.
	Errors map[string]error

	mu           sync.Mutex
	sessions     map[string]*Session
	presigns     []PresignCall
	reads        []PresignCall
	completeSeen [][]storage.CompletedPart
}

var _ storage.Gateway = (*MemoryGateway)(nil)

// NewMemoryGateway returns an empty backend.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		BaseURL:  "https://s3.test",
		Errors:   map[string]error{},
		sessions: map[string]*Session{},
	}
}

func (m *MemoryGateway) fail(op string) error {
	if err, ok := m.Errors[op]; ok {
		return err
	}
	return nil
}

func (m *MemoryGateway) CreateSession(ctx context.Context, bucket, key, contentType string) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("create"); err != nil {
		return "", "", err
	}

	id := uuid.NewString()
	m.sessions[id] = &Session{Bucket: bucket, Key: key, ContentType: contentType}
	return id, key, nil
}

func (m *MemoryGateway) PresignPartUpload(ctx context.Context, bucket, key, sessionID string, partNumber int, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("presign"); err != nil {
		return "", err
	}

	m.presigns = append(m.presigns, PresignCall{Key: key, SessionID: sessionID, PartNumber: partNumber, TTL: ttl})
	q := url.Values{}
	q.Set("partNumber", fmt.Sprint(partNumber))
	q.Set("uploadId", sessionID)
	q.Set("nonce", uuid.NewString())
	return fmt.Sprintf("%s/%s/%s?%s", m.BaseURL, bucket, key, q.Encode()), nil
}

func (m *MemoryGateway) CompleteSession(ctx context.Context, bucket, key, sessionID string, parts []storage.CompletedPart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make([]storage.CompletedPart, len(parts))
	copy(seen, parts)
	m.completeSeen = append(m.completeSeen, seen)

	if err := m.fail("complete"); err != nil {
		return err
	}
	s, err := m.open(key, sessionID)
	if err != nil {
		return err
	}
	for i := 1; i < len(parts); i++ {
		if parts[i-1].PartNumber >= parts[i].PartNumber {
			return fmt.Errorf("%w: parts out of order", storage.ErrInvalidPart)
		}
	}
	s.State = SessionCompleted
	s.Parts = seen
	return nil
}

func (m *MemoryGateway) AbortSession(ctx context.Context, bucket, key, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("abort"); err != nil {
		return err
	}
	s, err := m.open(key, sessionID)
	if err != nil {
		return err
	}
	s.State = SessionAborted
	return nil
}

func (m *MemoryGateway) PresignObjectRead(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("read"); err != nil {
		return "", err
	}
	m.reads = append(m.reads, PresignCall{Key: key, TTL: ttl})
	return fmt.Sprintf("%s/%s/%s?X-Amz-Expires=%d", m.BaseURL, bucket, key, int(ttl.Seconds())), nil
}

// open returns the session if it exists, matches the key and is still open.
func (m *MemoryGateway) open(key, sessionID string) (*Session, error) {
	s, ok := m.sessions[sessionID]
	if !ok || s.Key != key || s.State != SessionCreated {
		return nil, fmt.Errorf("%w: %s", storage.ErrSessionNotFound, sessionID)
	}
	return s, nil
}

// Session returns a copy of the named session.
func (m *MemoryGateway) Session(id string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Presigns returns every part presign request so far.
func (m *MemoryGateway) Presigns() []PresignCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PresignCall(nil), m.presigns...)
}

// Reads returns every read presign request so far.
func (m *MemoryGateway) Reads() []PresignCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PresignCall(nil), m.reads...)
}

// CompleteCalls returns the part lists handed to CompleteSession, in call order.
func (m *MemoryGateway) CompleteCalls() [][]storage.CompletedPart {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]storage.CompletedPart(nil), m.completeSeen...)
}
