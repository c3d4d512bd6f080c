package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stefando/multipartUploadAWS/internal/app"
	"github.com/stefando/multipartUploadAWS/internal/config"
	"github.com/stefando/multipartUploadAWS/internal/logging"
	"github.com/stefando/multipartUploadAWS/internal/upload"
)

// newRootCmd represents the base command when called without any subcommands
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "mpupload",
		Short:        "Multipart upload API and client",
		Long:         `Runs the multipart upload API locally or uploads a file through it in-process.`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd(), newPutCmd())
	return root
}

// setup loads the environment configuration and builds the upload service.
func setup(ctx context.Context) (*config.Config, *slog.Logger, *upload.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := logging.New("mpupload", cfg.LogLevel)

	svc, err := app.NewService(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, svc, nil
}
