// Package app wires the configured AWS clients into an upload service.
package app

import (
	"context"
	"log/slog"

	"github.com/stefando/multipartUploadAWS/internal/awsclient"
	"github.com/stefando/multipartUploadAWS/internal/config"
	"github.com/stefando/multipartUploadAWS/internal/notify"
	"github.com/stefando/multipartUploadAWS/internal/storage"
	"github.com/stefando/multipartUploadAWS/internal/upload"
)

// NewService builds the S3 gateway and the publisher from cfg. Without a
// topic ARN completion notices are dropped.
func NewService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*upload.Service, error) {
	awsCfg, err := awsclient.NewConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	gateway := storage.NewS3GatewayFromClient(awsclient.NewS3Client(awsCfg, cfg))

	var publisher notify.Publisher = notify.Nop{Logger: logger}
	if cfg.TopicARN != "" {
		publisher = notify.NewSNSPublisher(awsclient.NewSNSClient(awsCfg), cfg.TopicARN)
	} else {
		logger.WarnContext(ctx, "SNS_TOPIC_ARN not set, completion notices will not be published")
	}

	logger.InfoContext(ctx, "upload service initialized",
		"bucket", cfg.Bucket, "managed", cfg.Managed, "event_type", cfg.EventType)

	return upload.NewService(gateway, publisher, upload.Options{
		Bucket:        cfg.Bucket,
		EventType:     cfg.EventType,
		PartURLExpiry: cfg.PartURLExpiry,
		StrictNotify:  cfg.StrictNotify,
		Logger:        logger,
	}), nil
}
