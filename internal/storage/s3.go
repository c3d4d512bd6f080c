package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by the gateway.
type S3API interface {
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// Presigner is the subset of the S3 presign client used by the gateway.
type Presigner interface {
	PresignUploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var (
	_ S3API     = (*s3.Client)(nil)
	_ Presigner = (*s3.PresignClient)(nil)
	_ Gateway   = (*S3Gateway)(nil)
)

// S3Gateway implements Gateway on top of the AWS S3 multipart API.
type S3Gateway struct {
	client    S3API
	presigner Presigner
}

// NewS3Gateway wraps an S3 client and its presign client.
func NewS3Gateway(client S3API, presigner Presigner) *S3Gateway {
	return &S3Gateway{
		client:    client,
		presigner: presigner,
	}
}

// NewS3GatewayFromClient builds the presign client from the S3 client.
func NewS3GatewayFromClient(client *s3.Client) *S3Gateway {
	return NewS3Gateway(client, s3.NewPresignClient(client))
}

func (g *S3Gateway) CreateSession(ctx context.Context, bucket, key, contentType string) (string, string, error) {
	out, err := g.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", "", newError("createMultipartUpload", bucket, key, err)
	}

	uploadID := aws.ToString(out.UploadId)
	if uploadID == "" {
		return "", "", newError("createMultipartUpload", bucket, key, errors.New("backend returned an empty upload id"))
	}

	// Fall back to the requested key if the backend does not echo it
	resolved := aws.ToString(out.Key)
	if resolved == "" {
		resolved = key
	}
	return uploadID, resolved, nil
}

func (g *S3Gateway) PresignPartUpload(ctx context.Context, bucket, key, sessionID string, partNumber int, ttl time.Duration) (string, error) {
	if partNumber < 1 || partNumber > MaxParts {
		return "", newError("presignUploadPart", bucket, key, fmt.Errorf("part number %d out of range", partNumber))
	}

	req, err := g.presigner.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(bucket),
		Key:        aws.String(key),
		PartNumber: aws.Int32(int32(partNumber)),
		UploadId:   aws.String(sessionID),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return "", newError("presignUploadPart", bucket, key, fmt.Errorf("part %d: %w", partNumber, err))
	}
	return req.URL, nil
}

func (g *S3Gateway) CompleteSession(ctx context.Context, bucket, key, sessionID string, parts []CompletedPart) error {
	_, err := g.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(sessionID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: toCompletedParts(parts),
		},
	})
	if err != nil {
		return newError("completeMultipartUpload", bucket, key, err)
	}
	return nil
}

func (g *S3Gateway) AbortSession(ctx context.Context, bucket, key, sessionID string) error {
	_, err := g.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(sessionID),
	})
	if err != nil {
		return newError("abortMultipartUpload", bucket, key, err)
	}
	return nil
}

func (g *S3Gateway) PresignObjectRead(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	req, err := g.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return "", newError("presignGetObject", bucket, key, err)
	}
	return req.URL, nil
}

// toCompletedParts converts parts to the SDK format, preserving order.
func toCompletedParts(parts []CompletedPart) []types.CompletedPart {
	completed := make([]types.CompletedPart, len(parts))
	for i, part := range parts {
		completed[i] = types.CompletedPart{
			ETag:       aws.String(part.ETag),
			PartNumber: aws.Int32(int32(part.PartNumber)),
		}
	}
	return completed
}
