package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefando/multipartUploadAWS/internal/storage"
	"github.com/stefando/multipartUploadAWS/internal/testutil"
)

func TestS3Gateway_CreateSession(t *testing.T) {
	tests := []struct {
		name        string
		mockFunc    func(*testutil.MockS3Client)
		wantID      string
		wantKey     string
		wantErr     error
		errContains string
	}{
		{
			name: "returns upload id and echoed key",
			mockFunc: func(m *testutil.MockS3Client) {
				m.CreateMultipartUploadFunc = func(ctx context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
					assert.Equal(t, "media", aws.ToString(in.Bucket))
					assert.Equal(t, "uploads/video.mp4", aws.ToString(in.Key))
					assert.Equal(t, "video/mp4", aws.ToString(in.ContentType))
					return &s3.CreateMultipartUploadOutput{
						UploadId: aws.String("upload-1"),
						Key:      aws.String("uploads/video.mp4"),
					}, nil
				}
			},
			wantID:  "upload-1",
			wantKey: "uploads/video.mp4",
		},
		{
			name: "falls back to requested key",
			mockFunc: func(m *testutil.MockS3Client) {
				m.CreateMultipartUploadFunc = func(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
					return &s3.CreateMultipartUploadOutput{UploadId: aws.String("upload-2")}, nil
				}
			},
			wantID:  "upload-2",
			wantKey: "uploads/video.mp4",
		},
		{
			name: "empty upload id is an error",
			mockFunc: func(m *testutil.MockS3Client) {
				m.CreateMultipartUploadFunc = func(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
					return &s3.CreateMultipartUploadOutput{}, nil
				}
			},
			errContains: "empty upload id",
		},
		{
			name: "missing bucket is classified",
			mockFunc: func(m *testutil.MockS3Client) {
				m.CreateMultipartUploadFunc = func(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
					return nil, &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "bucket does not exist"}
				}
			},
			wantErr:     storage.ErrNoSuchBucket,
			errContains: "s3.createMultipartUpload media/uploads/video.mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &testutil.MockS3Client{}
			tt.mockFunc(client)
			gw := storage.NewS3Gateway(client, &testutil.MockPresigner{})

			id, key, err := gw.CreateSession(context.Background(), "media", "uploads/video.mp4", "video/mp4")
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestS3Gateway_PresignPartUpload(t *testing.T) {
	presigner := &testutil.MockPresigner{
		PresignUploadPartFunc: func(ctx context.Context, in *s3.UploadPartInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
			assert.Equal(t, "media", aws.ToString(in.Bucket))
			assert.Equal(t, "uploads/video.mp4", aws.ToString(in.Key))
			assert.Equal(t, "upload-1", aws.ToString(in.UploadId))
			assert.Equal(t, int32(3), aws.ToInt32(in.PartNumber))
			assert.Equal(t, 90*time.Minute, testutil.PresignOptions(optFns...).Expires)
			return &v4.PresignedHTTPRequest{URL: "https://s3.test/part-3"}, nil
		},
	}
	gw := storage.NewS3Gateway(&testutil.MockS3Client{}, presigner)

	url, err := gw.PresignPartUpload(context.Background(), "media", "uploads/video.mp4", "upload-1", 3, 90*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.test/part-3", url)

	_, err = gw.PresignPartUpload(context.Background(), "media", "uploads/video.mp4", "upload-1", 0, time.Minute)
	assert.ErrorContains(t, err, "out of range")
	_, err = gw.PresignPartUpload(context.Background(), "media", "uploads/video.mp4", "upload-1", storage.MaxParts+1, time.Minute)
	assert.ErrorContains(t, err, "out of range")
}

func TestS3Gateway_CompleteSession(t *testing.T) {
	var got *s3.CompleteMultipartUploadInput
	client := &testutil.MockS3Client{
		CompleteMultipartUploadFunc: func(ctx context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
			got = in
			return &s3.CompleteMultipartUploadOutput{}, nil
		},
	}
	gw := storage.NewS3Gateway(client, &testutil.MockPresigner{})

	err := gw.CompleteSession(context.Background(), "media", "k", "upload-1", []storage.CompletedPart{
		{PartNumber: 1, ETag: `"a"`},
		{PartNumber: 2, ETag: `"b"`},
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "upload-1", aws.ToString(got.UploadId))
	require.Len(t, got.MultipartUpload.Parts, 2)
	assert.Equal(t, int32(1), aws.ToInt32(got.MultipartUpload.Parts[0].PartNumber))
	assert.Equal(t, `"a"`, aws.ToString(got.MultipartUpload.Parts[0].ETag))
	assert.Equal(t, int32(2), aws.ToInt32(got.MultipartUpload.Parts[1].PartNumber))
}

func TestS3Gateway_ErrorClassification(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{"NoSuchUpload", storage.ErrSessionNotFound},
		{"AccessDenied", storage.ErrAccessDenied},
		{"InvalidPart", storage.ErrInvalidPart},
		{"InvalidPartOrder", storage.ErrInvalidPart},
		{"NoSuchBucket", storage.ErrNoSuchBucket},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			apiErr := &smithy.GenericAPIError{Code: tt.code}
			client := &testutil.MockS3Client{
				CompleteMultipartUploadFunc: func(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
					return nil, apiErr
				},
				AbortMultipartUploadFunc: func(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
					return nil, apiErr
				},
			}
			gw := storage.NewS3Gateway(client, &testutil.MockPresigner{})

			err := gw.CompleteSession(context.Background(), "media", "k", "u", []storage.CompletedPart{{PartNumber: 1, ETag: "e"}})
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, apiErr)

			err = gw.AbortSession(context.Background(), "media", "k", "u")
			assert.ErrorIs(t, err, tt.want)

			var serr *storage.Error
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, "abortMultipartUpload", serr.Op)
			assert.Equal(t, "k", serr.Key)
		})
	}
}

func TestS3Gateway_UnclassifiedError(t *testing.T) {
	cause := errors.New("connection reset")
	client := &testutil.MockS3Client{
		AbortMultipartUploadFunc: func(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
			return nil, cause
		},
	}
	gw := storage.NewS3Gateway(client, &testutil.MockPresigner{})

	err := gw.AbortSession(context.Background(), "media", "k", "u")
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestS3Gateway_PresignObjectRead(t *testing.T) {
	presigner := &testutil.MockPresigner{
		PresignGetObjectFunc: func(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
			assert.Equal(t, "uploads/video.mp4", aws.ToString(in.Key))
			assert.Equal(t, time.Hour, testutil.PresignOptions(optFns...).Expires)
			return &v4.PresignedHTTPRequest{URL: "https://s3.test/read"}, nil
		},
	}
	gw := storage.NewS3Gateway(&testutil.MockS3Client{}, presigner)

	url, err := gw.PresignObjectRead(context.Background(), "media", "uploads/video.mp4", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.test/read", url)
}
