// Package turnkey uploads a local file end to end through the upload
// orchestrator: it initiates the session, PUTs every part to its presigned
// URL in parallel and finalizes, aborting the session if anything fails.
package turnkey

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stefando/multipartUploadAWS/internal/logging"
	"github.com/stefando/multipartUploadAWS/internal/storage"
	"github.com/stefando/multipartUploadAWS/internal/upload"
)

const (
	DefaultPartSize    int64 = 8 << 20
	MinPartSize        int64 = 5 << 20
	DefaultConcurrency       = 4
)

// ErrMissingETag is returned when a part PUT succeeds without an ETag header.
var ErrMissingETag = errors.New("part upload returned no ETag")

// Orchestrator is the subset of upload.Service the driver needs.
type Orchestrator interface {
	Init(ctx context.Context, req upload.InitRequest) (*upload.InitResponse, error)
	GetURLs(ctx context.Context, req upload.GetURLsRequest) (*upload.GetURLsResponse, error)
	Finalize(ctx context.Context, req upload.FinalizeRequest) (*upload.FinalizeResponse, error)
	Abort(ctx context.Context, req upload.AbortRequest) (*upload.AbortResponse, error)
}

// Options tunes the driver. Zero values select the defaults.
type Options struct {
	PartSize    int64
	Concurrency int
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// Result describes a finished upload.
type Result struct {
	FileID       string
	FileKey      string
	PresignedURL string
	Message      string
	Size         int64
	Parts        int
	Duration     time.Duration
}

// PartError reports the part whose transfer failed.
type PartError struct {
	PartNumber int
	Err        error
}

func (e *PartError) Error() string {
	return fmt.Sprintf("part %d: %v", e.PartNumber, e.Err)
}

func (e *PartError) Unwrap() error {
	return e.Err
}

// Driver runs turnkey uploads. It is safe for concurrent use.
type Driver struct {
	svc    Orchestrator
	opts   Options
	client *http.Client
	log    *slog.Logger
}

// NewDriver validates opts and fills in defaults.
func NewDriver(svc Orchestrator, opts Options) (*Driver, error) {
	if opts.PartSize == 0 {
		opts.PartSize = DefaultPartSize
	}
	if opts.PartSize < MinPartSize {
		return nil, fmt.Errorf("part size %d is below the %d byte minimum", opts.PartSize, MinPartSize)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	return &Driver{svc: svc, opts: opts, client: client, log: log}, nil
}

// UploadFile uploads the file at path to {s3Key}/{basename}. Either every
// part lands and the upload is finalized, or the session is aborted and the
// first failure is returned.
func (d *Driver) UploadFile(ctx context.Context, path, s3Key string) (*Result, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	size := info.Size()
	parts := partCount(size, d.opts.PartSize)
	if parts > storage.MaxParts {
		return nil, fmt.Errorf("%s needs %d parts at %d bytes per part, the limit is %d",
			path, parts, d.opts.PartSize, storage.MaxParts)
	}

	session, err := d.svc.Init(ctx, upload.InitRequest{Name: filepath.Base(path), S3Key: s3Key})
	if err != nil {
		return nil, err
	}
	log := d.log.With("file_key", session.FileKey, "file_id", session.FileID)
	log.InfoContext(ctx, "upload started", "size", size, "parts", parts)

	urls, err := d.svc.GetURLs(ctx, upload.GetURLsRequest{
		FileID:  session.FileID,
		FileKey: session.FileKey,
		Parts:   parts,
	})
	if err != nil {
		return nil, d.abort(ctx, session, err)
	}
	if len(urls.Parts) != parts {
		return nil, d.abort(ctx, session, fmt.Errorf("requested %d part URLs, got %d", parts, len(urls.Parts)))
	}

	completed, err := d.uploadParts(ctx, log, f, size, urls.Parts)
	if err != nil {
		return nil, d.abort(ctx, session, err)
	}

	final, err := d.svc.Finalize(ctx, upload.FinalizeRequest{
		FileID:  session.FileID,
		FileKey: session.FileKey,
		Parts:   completed,
	})
	if err != nil {
		return nil, d.abort(ctx, session, err)
	}

	log.InfoContext(ctx, "upload finished", "duration", time.Since(start).String())

	return &Result{
		FileID:       session.FileID,
		FileKey:      session.FileKey,
		PresignedURL: final.PresignedURL,
		Message:      final.Message,
		Size:         size,
		Parts:        parts,
		Duration:     time.Since(start),
	}, nil
}

func (d *Driver) uploadParts(ctx context.Context, log *slog.Logger, r io.ReaderAt, size int64, urls []upload.PartURL) ([]upload.CompletedPart, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)

	completed := make([]upload.CompletedPart, len(urls))
	for i, part := range urls {
		i, part := i, part
		offset := int64(part.PartNumber-1) * d.opts.PartSize
		length := min(d.opts.PartSize, size-offset)

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			etag, err := d.putPart(gctx, part.SignedURL, io.NewSectionReader(r, offset, length), length)
			if err != nil {
				return &PartError{PartNumber: part.PartNumber, Err: err}
			}
			log.DebugContext(gctx, "part uploaded", "part", part.PartNumber, "bytes", length)
			completed[i] = upload.CompletedPart{PartNumber: part.PartNumber, ETag: etag}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return completed, nil
}

func (d *Driver) putPart(ctx context.Context, url string, body io.Reader, length int64) (string, error) {
	if length == 0 {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.ContentLength = length

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	etag := resp.Header.Get("ETag")
	if etag == "" {
		return "", ErrMissingETag
	}
	return etag, nil
}

// abort discards the session after cause. The abort runs even when ctx was
// cancelled; its own failure is joined to cause.
func (d *Driver) abort(ctx context.Context, session *upload.InitResponse, cause error) error {
	d.log.WarnContext(ctx, "aborting upload", "file_key", session.FileKey, "error", cause)

	_, err := d.svc.Abort(context.WithoutCancel(ctx), upload.AbortRequest{
		FileID:  session.FileID,
		FileKey: session.FileKey,
	})
	if err != nil {
		return errors.Join(cause, fmt.Errorf("failed to abort upload: %w", err))
	}
	return cause
}

// partCount is ceil(size/partSize); an empty file still takes one part.
func partCount(size, partSize int64) int {
	if size == 0 {
		return 1
	}
	return int((size + partSize - 1) / partSize)
}
