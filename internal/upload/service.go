// Package upload coordinates the four phases of a multipart upload: Init,
// GetURLs, Finalize and Abort.
//
// The service keeps no session state. The storage backend alone decides
// whether a session exists and enforces that it is finalized or aborted at
// most once; misuse surfaces as a backend error.
package upload

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stefando/multipartUploadAWS/internal/auth"
	"github.com/stefando/multipartUploadAWS/internal/logging"
	"github.com/stefando/multipartUploadAWS/internal/notify"
	"github.com/stefando/multipartUploadAWS/internal/storage"
)

const (
	// ReadURLExpiry is the lifetime of the read URL handed out after finalize.
	ReadURLExpiry = time.Hour

	// DefaultPartURLExpiry applies when Options.PartURLExpiry is zero.
	DefaultPartURLExpiry = 2 * time.Hour

	// PresignedURLBuffer is kept between a part URL's expiry and the caller's token expiry.
	PresignedURLBuffer = 5 * time.Minute

	// MinPresignedURLDuration is the floor for part URLs.
	MinPresignedURLDuration = 5 * time.Minute

	// SuccessMessage is embedded in every completion notice.
	SuccessMessage = "File uploaded successfully"
)

// Options configures a Service.
type Options struct {
	Bucket        string
	EventType     string
	PartURLExpiry time.Duration
	// StrictNotify fails Finalize when the completion notice cannot be
	// published. Otherwise the failure is logged and Finalize succeeds.
	StrictNotify bool
	Logger       *slog.Logger
}

// Service implements the multipart upload protocol.
type Service struct {
	storage   storage.Gateway
	publisher notify.Publisher
	opts      Options
	log       *slog.Logger
}

// NewService wires the orchestrator to its storage and notification capabilities.
func NewService(gw storage.Gateway, pub notify.Publisher, opts Options) *Service {
	if opts.PartURLExpiry <= 0 {
		opts.PartURLExpiry = DefaultPartURLExpiry
	}
	if pub == nil {
		pub = notify.Nop{Logger: opts.Logger}
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Service{
		storage:   gw,
		publisher: pub,
		opts:      opts,
		log:       log,
	}
}

// Init opens a backend session for {S3Key}/{Name}.
func (s *Service) Init(ctx context.Context, req InitRequest) (*InitResponse, error) {
	if req.Name == "" {
		return nil, invalid("name", "cannot be empty")
	}

	key := objectKey(req.S3Key, req.Name)
	contentType := ContentTypeFor(req.Name)

	fileID, fileKey, err := s.storage.CreateSession(ctx, s.opts.Bucket, key, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart upload: %w", err)
	}

	s.logger(ctx).InfoContext(ctx, "multipart upload initiated",
		"file_key", fileKey, "file_id", fileID, "content_type", contentType)

	return &InitResponse{
		FileID:  fileID,
		FileKey: fileKey,
	}, nil
}

// GetURLs presigns part numbers 1..Parts in ascending order.
func (s *Service) GetURLs(ctx context.Context, req GetURLsRequest) (*GetURLsResponse, error) {
	if err := validateSession(req.FileID, req.FileKey); err != nil {
		return nil, err
	}
	if req.Parts < 0 || req.Parts > storage.MaxParts {
		return nil, invalid("parts", "must be between 0 and %d", storage.MaxParts)
	}

	expiration := s.presignExpiration(ctx)
	parts := make([]PartURL, 0, req.Parts)
	for i := 1; i <= req.Parts; i++ {
		url, err := s.storage.PresignPartUpload(ctx, s.opts.Bucket, req.FileKey, req.FileID, i, expiration)
		if err != nil {
			return nil, fmt.Errorf("failed to generate presigned URL for part %d: %w", i, err)
		}
		parts = append(parts, PartURL{SignedURL: url, PartNumber: i})
	}

	s.logger(ctx).DebugContext(ctx, "part URLs issued",
		"file_key", req.FileKey, "parts", req.Parts, "expires_in", expiration.String())

	return &GetURLsResponse{Parts: parts}, nil
}

// Finalize completes the session with the parts sorted by part number, then
// publishes a completion notice carrying a one-hour read URL.
func (s *Service) Finalize(ctx context.Context, req FinalizeRequest) (*FinalizeResponse, error) {
	if err := validateSession(req.FileID, req.FileKey); err != nil {
		return nil, err
	}
	parts, err := sortedParts(req.Parts)
	if err != nil {
		return nil, err
	}

	if err := s.storage.CompleteSession(ctx, s.opts.Bucket, req.FileKey, req.FileID, parts); err != nil {
		return nil, fmt.Errorf("failed to complete multipart upload: %w", err)
	}

	url, err := s.storage.PresignObjectRead(ctx, s.opts.Bucket, req.FileKey, ReadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to presign object read: %w", err)
	}

	s.logger(ctx).InfoContext(ctx, "multipart upload completed",
		"file_key", req.FileKey, "file_id", req.FileID, "parts", len(parts))

	if err := s.announce(ctx, req.FileKey, url); err != nil {
		if s.opts.StrictNotify {
			return nil, err
		}
		s.logger(ctx).ErrorContext(ctx, "completion notice not published",
			"file_key", req.FileKey, "error", err)
	}

	return &FinalizeResponse{
		PresignedURL: url,
		Message:      SuccessMessage,
	}, nil
}

// Abort discards the session and its uploaded parts.
func (s *Service) Abort(ctx context.Context, req AbortRequest) (*AbortResponse, error) {
	if err := validateSession(req.FileID, req.FileKey); err != nil {
		return nil, err
	}

	if err := s.storage.AbortSession(ctx, s.opts.Bucket, req.FileKey, req.FileID); err != nil {
		return nil, fmt.Errorf("failed to abort multipart upload: %w", err)
	}

	s.logger(ctx).InfoContext(ctx, "multipart upload aborted", "file_key", req.FileKey, "file_id", req.FileID)

	return &AbortResponse{
		Message: fmt.Sprintf("Multipart upload aborted for %s", req.FileKey),
	}, nil
}

func (s *Service) announce(ctx context.Context, fileKey, url string) error {
	body, err := json.Marshal(CompletionNotice{
		NoticeID:     uuid.NewString(),
		FileKey:      fileKey,
		PresignedURL: url,
		Message:      SuccessMessage,
	})
	if err != nil {
		return fmt.Errorf("failed to encode completion notice: %w", err)
	}

	if err := s.publisher.Publish(ctx, notify.Message{Body: body, EventType: s.opts.EventType}); err != nil {
		return fmt.Errorf("failed to publish completion notice: %w", err)
	}
	return nil
}

// logger tags log lines with the authenticated caller, when there is one.
func (s *Service) logger(ctx context.Context) *slog.Logger {
	if p, ok := auth.Principal(ctx); ok {
		return s.log.With("principal", p)
	}
	return s.log
}

// presignExpiration determines the part URL lifetime, capped by the caller's
// token expiry when the request carries one.
func (s *Service) presignExpiration(ctx context.Context) time.Duration {
	exp, ok := auth.TokenExpiration(ctx)
	if !ok {
		return s.opts.PartURLExpiry
	}

	remaining := time.Until(exp) - PresignedURLBuffer
	if remaining < MinPresignedURLDuration {
		return MinPresignedURLDuration
	}
	return min(remaining, s.opts.PartURLExpiry)
}

// objectKey joins verbatim: an empty prefix yields "/name" and a trailing
// slash on the prefix is kept.
func objectKey(prefix, name string) string {
	return prefix + "/" + name
}

func validateSession(fileID, fileKey string) error {
	if strings.TrimSpace(fileID) == "" {
		return invalid("fileId", "cannot be empty")
	}
	if strings.TrimSpace(fileKey) == "" {
		return invalid("fileKey", "cannot be empty")
	}
	return nil
}

// sortedParts validates the parts and returns a sorted copy.
func sortedParts(in []CompletedPart) ([]storage.CompletedPart, error) {
	if len(in) == 0 {
		return nil, invalid("parts", "cannot be empty")
	}

	parts := make([]storage.CompletedPart, len(in))
	for i, p := range in {
		if p.PartNumber < 1 || p.PartNumber > storage.MaxParts {
			return nil, invalid("parts", "part number %d out of range 1..%d", p.PartNumber, storage.MaxParts)
		}
		if strings.TrimSpace(p.ETag) == "" {
			return nil, invalid("parts", "part %d has no ETag", p.PartNumber)
		}
		parts[i] = storage.CompletedPart{PartNumber: p.PartNumber, ETag: p.ETag}
	}

	slices.SortFunc(parts, func(a, b storage.CompletedPart) int {
		return cmp.Compare(a.PartNumber, b.PartNumber)
	})
	for i := 1; i < len(parts); i++ {
		if parts[i].PartNumber == parts[i-1].PartNumber {
			return nil, invalid("parts", "duplicate part number %d", parts[i].PartNumber)
		}
	}
	return parts, nil
}
