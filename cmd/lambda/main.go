package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/stefando/multipartUploadAWS/internal/api"
	"github.com/stefando/multipartUploadAWS/internal/app"
	"github.com/stefando/multipartUploadAWS/internal/config"
	"github.com/stefando/multipartUploadAWS/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New("upload-api", cfg.LogLevel)

	svc, err := app.NewService(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize upload service", "error", err)
		os.Exit(1)
	}

	// The router is built once per cold start and reused across invocations
	handler := api.NewLambdaHandler(api.NewRouter(svc, logger), logger)
	lambda.Start(handler.Handle)
}
